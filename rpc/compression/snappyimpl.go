package compression

import (
	"fmt"
	"github.com/golang/snappy"
)

// NewSnappyCompressor creates a compressor using the snappy block format
func NewSnappyCompressor() ICompressor {
	return &snappyCompressor{}
}

type snappyCompressor struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see compression.ICompressor)
// --------------------------------------------------------------------------

func (s snappyCompressor) ID() byte { return IDSnappy }

func (s snappyCompressor) Name() string { return "snappy" }

func (s snappyCompressor) Compress(src []byte) ([]byte, error) {
	return snappy.Encode(nil, src), nil
}

func (s snappyCompressor) Decompress(src []byte, limit uint64) ([]byte, error) {
	size, err := snappy.DecodedLen(src)
	if err != nil {
		return nil, fmt.Errorf("snappy: %v", err)
	}
	if uint64(size) > limitOrDefault(limit) {
		return nil, fmt.Errorf("snappy: %w: announced %d bytes, limit %d", ErrTooLarge, size, limitOrDefault(limit))
	}

	dst, err := snappy.Decode(nil, src)
	if err != nil {
		return nil, fmt.Errorf("snappy: %v", err)
	}
	return dst, nil
}
