// Package compression provides the frame compressors used by the codec pipeline.
//
// Each compressor has a one byte id that is written into the flag byte of a frame,
// so a receiver can decompress any frame without knowing the sender's configuration.
// Available are lz4 (default), snappy, zstd and none.
//
// MaybeCompress implements the transmission policy: payloads below a threshold are
// sent raw, large payloads are sampled first, and a compression result that is not
// strictly smaller than its input is discarded.
package compression
