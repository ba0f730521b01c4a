package codec

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/ValentinKolb/dComm/rpc/common"
)

const (
	// countHeaderSize is the size of the frame count preceding a message
	countHeaderSize = 8
	// frameHeaderSize is the size of the header preceding every frame
	frameHeaderSize = 9
	// maxFramesPerMessage bounds the announced frame count
	maxFramesPerMessage = 1 << 20
)

// WriteFrames writes all frames of one message with the format:
// - 8 bytes: number of frames (uint64, big endian)
// - per frame:
//   - 8 bytes: payload length (uint64, big endian)
//   - 1 byte: compression id (0 = raw)
//   - N bytes: payload
//
// The whole message is handed to the writer as one net.Buffers so a net.Conn can
// send it with a single writev call. The caller serializes concurrent writers.
func WriteFrames(w io.Writer, frames []Frame) (int64, error) {
	headers := make([]byte, countHeaderSize+frameHeaderSize*len(frames))
	binary.BigEndian.PutUint64(headers[:countHeaderSize], uint64(len(frames)))

	b := make(net.Buffers, 0, 1+2*len(frames))
	b = append(b, headers[:countHeaderSize])
	for i, f := range frames {
		h := headers[countHeaderSize+i*frameHeaderSize : countHeaderSize+(i+1)*frameHeaderSize]
		binary.BigEndian.PutUint64(h[:8], f.Length)
		h[8] = f.Compression
		b = append(b, h)
		if len(f.Payload) > 0 {
			b = append(b, f.Payload)
		}
	}
	return b.WriteTo(w)
}

// ReadFrames reads the frames of one message written by WriteFrames.
// Frames larger than maxFrameSize (0 = unlimited) fail with ErrFrameCorruption.
// Payloads are freshly allocated, the caller owns them.
func ReadFrames(r io.Reader, maxFrameSize uint64) ([]Frame, int64, error) {
	var header [countHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, 0, err
	}
	read := int64(countHeaderSize)

	count := binary.BigEndian.Uint64(header[:])
	if count == 0 || count > maxFramesPerMessage {
		return nil, read, fmt.Errorf("%w: invalid frame count %d", common.ErrFrameCorruption, count)
	}

	frames := make([]Frame, count)
	var frameHeader [frameHeaderSize]byte
	for i := range frames {
		if _, err := io.ReadFull(r, frameHeader[:]); err != nil {
			return nil, read, unexpectedEOF(err)
		}
		read += frameHeaderSize

		length := binary.BigEndian.Uint64(frameHeader[:8])
		if maxFrameSize > 0 && length > maxFrameSize {
			return nil, read, fmt.Errorf("%w: frame %d of %d bytes exceeds limit of %d bytes",
				common.ErrFrameCorruption, i, length, maxFrameSize)
		}

		// If no data, use empty slice
		payload := []byte{}
		if length > 0 {
			payload = make([]byte, length)
			if _, err := io.ReadFull(r, payload); err != nil {
				return nil, read, unexpectedEOF(err)
			}
			read += int64(length)
		}
		frames[i] = Frame{Length: length, Payload: payload, Compression: frameHeader[8]}
	}
	return frames, read, nil
}

// EncodedSize returns the number of bytes WriteFrames produces for frames
func EncodedSize(frames []Frame) int {
	return countHeaderSize + frameHeaderSize*len(frames) + FramesSize(frames)
}

// unexpectedEOF turns an EOF in the middle of a message into io.ErrUnexpectedEOF
func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
