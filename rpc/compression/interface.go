package compression

import (
	"errors"
	"fmt"
)

// ICompressor is the interface for all frame compressors
type ICompressor interface {
	// ID is carried in the flag byte of every frame compressed by this compressor.
	// ID 0 is reserved for raw frames.
	ID() byte
	// Name returns the configuration name (lz4, snappy, zstd, none)
	Name() string
	// Compress returns the compressed form of src. The result may be larger than src.
	Compress(src []byte) ([]byte, error)
	// Decompress reverses Compress. Output larger than limit bytes fails with ErrTooLarge
	// before it is allocated where the format announces its size.
	Decompress(src []byte, limit uint64) ([]byte, error)
}

// Compressor ids as written on the wire
const (
	IDNone   byte = 0x00
	IDLZ4    byte = 0x01
	IDSnappy byte = 0x02
	IDZstd   byte = 0x03
)

// ErrIncompressible is returned by Compress if the compressor gave up on the input
var ErrIncompressible = errors.New("incompressible data")

// ErrTooLarge is returned by Decompress if the output would exceed the limit
var ErrTooLarge = errors.New("decompressed size exceeds limit")

// DefaultLimit is used by Decompress if no limit is given
const DefaultLimit = 1 << 30

var registry map[byte]ICompressor

func init() {
	registry = map[byte]ICompressor{
		IDNone:   NewNoneCompressor(),
		IDLZ4:    NewLZ4Compressor(),
		IDSnappy: NewSnappyCompressor(),
		IDZstd:   NewZstdCompressor(),
	}
}

// ByName returns the compressor registered under name. An empty name selects none.
func ByName(name string) (ICompressor, error) {
	if name == "" {
		return registry[IDNone], nil
	}
	for _, c := range registry {
		if c.Name() == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("invalid compression %s", name)
}

// ByID returns the compressor identified by a frame's flag byte
func ByID(id byte) (ICompressor, error) {
	c, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("unknown compression id 0x%02x", id)
	}
	return c, nil
}

// Names returns the names of all registered compressors
func Names() []string {
	return []string{"lz4", "snappy", "zstd", "none"}
}
