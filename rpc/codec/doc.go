// Package codec implements the pipeline between messages and wire frames.
//
// Encoding serializes a message into a header frame plus one frame per out-of-band
// buffer, then compresses every frame of at least the configured threshold if that
// makes it strictly smaller. Frames of Serialized placeholders are passed through
// untouched unless the pipeline is configured to re-serialize them.
//
// Decoding checks every frame's announced length, decompresses flagged frames and
// hands the result to the serializer named by the header's first byte.
//
// WriteFrames and ReadFrames define the self-describing byte layout used by the
// socket transports:
//
//	[8 byte frame count] then per frame [8 byte length][1 byte compression id][payload]
package codec
