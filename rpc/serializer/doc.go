// Package serializer turns message values into a header plus out-of-band buffers and back.
// It defines a common interface and multiple implementations that differ only in how
// the header is encoded; byte buffers and the frames of Serialized placeholders are
// never copied into the header.
//
// The package focuses on:
//   - Providing a consistent interface for different header formats
//   - Keeping large byte buffers out of the header so they can be written zero-copy
//   - Passing pre-serialized values through untouched
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations must satisfy.
//
//   - binarySerializerImpl: Custom tag based binary format optimized for speed
//     and space efficiency. This is the default.
//
//   - jsonSerializerImpl: Header encoded as JSON, useful for debugging. Cannot
//     represent NaN or infinite floats.
//
//   - gobSerializerImpl: Header encoded with Go's gob package.
//
// Every header starts with the ID byte of the serializer that produced it, so Decode
// can dispatch without out-of-band knowledge of the sender's configuration.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	s := serializer.NewBinarySerializer()
//	header, buffers, err := s.Serialize(msg)
//	// ... send header and buffers as frames ...
//	msg, err = serializer.Decode(header, buffers, true)
package serializer
