package compression

// Sampling parameters for large payloads
const (
	// SampleMinSize is the payload size above which a sample is compressed first
	SampleMinSize = 64 * 1024
	sampleSize    = 4 * 1024
	sampleCount   = 5
	// sampleRatio is the compressed/raw ratio a sample must beat
	sampleRatio = 0.9
)

// MaybeCompress compresses payload with c if it is at least threshold bytes long and the
// result is strictly smaller than the input. It returns the bytes to transmit and the
// compressor id for the frame flag, IDNone if the payload is sent raw.
//
// Payloads larger than SampleMinSize are sampled first; if the sample does not shrink
// below 90% the payload is sent raw without compressing it as a whole.
func MaybeCompress(c ICompressor, payload []byte, threshold int) ([]byte, byte) {
	if c == nil || c.ID() == IDNone || len(payload) < threshold || len(payload) == 0 {
		return payload, IDNone
	}

	if len(payload) > SampleMinSize {
		sample := byteSample(payload, sampleSize, sampleCount)
		compressed, err := c.Compress(sample)
		if err != nil || float64(len(compressed)) > sampleRatio*float64(len(sample)) {
			return payload, IDNone
		}
	}

	compressed, err := c.Compress(payload)
	if err != nil || len(compressed) >= len(payload) {
		return payload, IDNone
	}
	return compressed, c.ID()
}

// Decompress reverses MaybeCompress for a frame flagged with id.
// A limit of 0 selects DefaultLimit.
func Decompress(id byte, payload []byte, limit uint64) ([]byte, error) {
	if id == IDNone {
		return payload, nil
	}
	c, err := ByID(id)
	if err != nil {
		return nil, err
	}
	return c.Decompress(payload, limit)
}

func limitOrDefault(limit uint64) uint64 {
	if limit == 0 {
		return DefaultLimit
	}
	return limit
}

// byteSample concatenates count evenly spaced chunks of size bytes from data
func byteSample(data []byte, size, count int) []byte {
	if len(data) <= size*count {
		return data
	}
	step := (len(data) - size) / (count - 1)
	sample := make([]byte, 0, size*count)
	for i := 0; i < count; i++ {
		start := i * step
		sample = append(sample, data[start:start+size]...)
	}
	return sample
}
