package compression

// NewNoneCompressor creates a compressor that never compresses
func NewNoneCompressor() ICompressor {
	return noneCompressor{}
}

type noneCompressor struct{}

func (n noneCompressor) ID() byte { return IDNone }

func (n noneCompressor) Name() string { return "none" }

func (n noneCompressor) Compress(src []byte) ([]byte, error) { return src, nil }

func (n noneCompressor) Decompress(src []byte, _ uint64) ([]byte, error) { return src, nil }
