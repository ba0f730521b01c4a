package codec

import "github.com/ValentinKolb/dComm/rpc/compression"

// Frame is the wire-level unit produced by the pipeline. A message maps to one header
// frame followed by one frame per out-of-band buffer.
type Frame struct {
	// Length is the exact number of payload bytes after compression
	Length uint64
	// Payload holds the (possibly compressed) bytes
	Payload []byte
	// Compression is the id of the compressor applied to the payload, 0 for raw
	Compression byte
}

// NewFrame creates a raw frame
func NewFrame(payload []byte) Frame {
	return Frame{Length: uint64(len(payload)), Payload: payload, Compression: compression.IDNone}
}

// Compressed reports whether the payload has to be decompressed before use
func (f Frame) Compressed() bool {
	return f.Compression != compression.IDNone
}

// FramesSize returns the total payload size of frames
func FramesSize(frames []Frame) int {
	n := 0
	for _, f := range frames {
		n += len(f.Payload)
	}
	return n
}
