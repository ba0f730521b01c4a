package compression

import (
	"encoding/binary"
	"fmt"
	"github.com/pierrec/lz4/v4"
)

// NewLZ4Compressor creates a compressor producing raw lz4 blocks prefixed with
// the uvarint encoded original length
func NewLZ4Compressor() ICompressor {
	return &lz4Compressor{}
}

type lz4Compressor struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see compression.ICompressor)
// --------------------------------------------------------------------------

func (l lz4Compressor) ID() byte { return IDLZ4 }

func (l lz4Compressor) Name() string { return "lz4" }

func (l lz4Compressor) Compress(src []byte) ([]byte, error) {
	dst := make([]byte, binary.MaxVarintLen64+lz4.CompressBlockBound(len(src)))
	prefix := binary.PutUvarint(dst, uint64(len(src)))

	n, err := lz4.CompressBlock(src, dst[prefix:], nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrIncompressible
	}
	return dst[:prefix+n], nil
}

func (l lz4Compressor) Decompress(src []byte, limit uint64) ([]byte, error) {
	size, prefix := binary.Uvarint(src)
	if prefix <= 0 {
		return nil, fmt.Errorf("lz4: invalid length prefix")
	}
	if size > limitOrDefault(limit) {
		return nil, fmt.Errorf("lz4: %w: announced %d bytes, limit %d", ErrTooLarge, size, limitOrDefault(limit))
	}

	dst := make([]byte, size)
	n, err := lz4.UncompressBlock(src[prefix:], dst)
	if err != nil {
		return nil, fmt.Errorf("lz4: %v", err)
	}
	if uint64(n) != size {
		return nil, fmt.Errorf("lz4: decompressed %d bytes, expected %d", n, size)
	}
	return dst, nil
}
