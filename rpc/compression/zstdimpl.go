package compression

import (
	"errors"
	"fmt"
	"github.com/klauspost/compress/zstd"
	"github.com/puzpuzpuz/xsync/v3"
	"sync"
)

// NewZstdCompressor creates a compressor using zstd frames. The encoder and decoders
// are created lazily and shared, all are safe for concurrent EncodeAll/DecodeAll calls.
func NewZstdCompressor() ICompressor {
	return &zstdCompressor{decoders: xsync.NewMapOf[uint64, *zstd.Decoder]()}
}

type zstdCompressor struct {
	once    sync.Once
	encoder *zstd.Encoder
	initErr error
	// decoders holds one decoder per output limit
	decoders *xsync.MapOf[uint64, *zstd.Decoder]
}

func (z *zstdCompressor) init() error {
	z.once.Do(func() {
		z.encoder, z.initErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	})
	return z.initErr
}

// decoder returns the shared decoder that refuses output above limit
func (z *zstdCompressor) decoder(limit uint64) (*zstd.Decoder, error) {
	if dec, ok := z.decoders.Load(limit); ok {
		return dec, nil
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(limit))
	if err != nil {
		return nil, err
	}
	actual, loaded := z.decoders.LoadOrStore(limit, dec)
	if loaded {
		dec.Close()
	}
	return actual, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see compression.ICompressor)
// --------------------------------------------------------------------------

func (z *zstdCompressor) ID() byte { return IDZstd }

func (z *zstdCompressor) Name() string { return "zstd" }

func (z *zstdCompressor) Compress(src []byte) ([]byte, error) {
	if err := z.init(); err != nil {
		return nil, err
	}
	return z.encoder.EncodeAll(src, make([]byte, 0, len(src)/2)), nil
}

func (z *zstdCompressor) Decompress(src []byte, limit uint64) ([]byte, error) {
	dec, err := z.decoder(limitOrDefault(limit))
	if err != nil {
		return nil, err
	}
	dst, err := dec.DecodeAll(src, nil)
	if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
		return nil, fmt.Errorf("zstd: %w: limit %d", ErrTooLarge, limitOrDefault(limit))
	}
	if err != nil {
		return nil, fmt.Errorf("zstd: %v", err)
	}
	return dst, nil
}
