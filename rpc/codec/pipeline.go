package codec

import (
	"fmt"
	"github.com/ValentinKolb/dComm/rpc/common"
	"github.com/ValentinKolb/dComm/rpc/compression"
	"github.com/ValentinKolb/dComm/rpc/serializer"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("codec")

// Pipeline turns messages into frames and back. A Pipeline is immutable after
// creation and safe for concurrent use.
type Pipeline struct {
	// Serializer encodes outgoing messages. Incoming headers are decoded by whatever
	// serializer their first byte names.
	Serializer serializer.IRPCSerializer
	// Compressor is tried on every frame of at least Threshold bytes
	Compressor compression.ICompressor
	Threshold  int
	// MaxFrameSize bounds every frame after decompression, 0 selects compression.DefaultLimit
	MaxFrameSize uint64
	// Reserialize decodes Serialized placeholders and encodes their content again
	// instead of passing their frames through
	Reserialize bool
	// Metrics is optional
	Metrics *common.TransportMetrics
}

// NewPipeline creates a pipeline from the codec part of a CommConfig
func NewPipeline(config common.CommConfig) (*Pipeline, error) {
	s, err := serializer.ByName(config.Serializer)
	if err != nil {
		return nil, err
	}
	c, err := compression.ByName(config.Compression)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		Serializer:   s,
		Compressor:   c,
		Threshold:    config.CompressionThreshold,
		MaxFrameSize: config.MaxFrameSize,
		Reserialize:  config.Reserialize,
	}, nil
}

// DefaultPipeline returns a pipeline with the default configuration
func DefaultPipeline() *Pipeline {
	p, err := NewPipeline(common.DefaultCommConfig())
	if err != nil {
		panic(err)
	}
	return p
}

// WithMetrics returns a copy of the pipeline reporting to m
func (p *Pipeline) WithMetrics(m *common.TransportMetrics) *Pipeline {
	cp := *p
	cp.Metrics = m
	return &cp
}

// --------------------------------------------------------------------------
// Encoding
// --------------------------------------------------------------------------

// Encode serializes msg into frames. Frames at or above the threshold are compressed
// if that makes them strictly smaller. Frames of Serialized placeholders are passed
// through untouched unless Reserialize is set.
func (p *Pipeline) Encode(msg common.Message) ([]Frame, error) {
	if p.Reserialize {
		resolved, err := resolve(msg, 0)
		if err != nil {
			return nil, err
		}
		msg = resolved
	}

	header, buffers, err := p.Serializer.Serialize(msg)
	if err != nil {
		return nil, err
	}

	// Frames owned by placeholders must not be recompressed
	var passthrough map[*byte]struct{}
	if !p.Reserialize {
		collectPassthrough(msg, &passthrough)
	}

	frames := make([]Frame, 1+len(buffers))
	frames[0] = p.encodeFrame(header)
	for i, buf := range buffers {
		if len(buf) > 0 && passthrough != nil {
			if _, ok := passthrough[&buf[0]]; ok {
				frames[i+1] = NewFrame(buf)
				continue
			}
		}
		frames[i+1] = p.encodeFrame(buf)
	}
	return frames, nil
}

func (p *Pipeline) encodeFrame(payload []byte) Frame {
	out, id := compression.MaybeCompress(p.Compressor, payload, p.Threshold)
	if id != compression.IDNone && p.Metrics != nil {
		p.Metrics.FramesCompressed.Inc()
	}
	return Frame{Length: uint64(len(out)), Payload: out, Compression: id}
}

// --------------------------------------------------------------------------
// Decoding
// --------------------------------------------------------------------------

// Decode reconstructs a message from frames. Compressed frames are decompressed first.
// If deserialize is false, Serialized sub-values are returned as placeholders.
func (p *Pipeline) Decode(frames []Frame, deserialize bool) (common.Message, error) {
	return Decode(frames, deserialize, p.MaxFrameSize)
}

// Decode reconstructs a message from frames without requiring a configured pipeline.
// A frame that would decompress to more than maxFrameSize bytes fails with
// ErrFrameCorruption before its output is allocated.
func Decode(frames []Frame, deserialize bool, maxFrameSize uint64) (common.Message, error) {
	if len(frames) == 0 {
		return common.Nil(), fmt.Errorf("%w: message without header frame", common.ErrFrameCorruption)
	}

	payloads := make([][]byte, len(frames))
	for i, f := range frames {
		if f.Length != uint64(len(f.Payload)) {
			return common.Nil(), fmt.Errorf("%w: frame %d announces %d bytes, carries %d",
				common.ErrFrameCorruption, i, f.Length, len(f.Payload))
		}
		if !f.Compressed() {
			payloads[i] = f.Payload
			continue
		}
		raw, err := compression.Decompress(f.Compression, f.Payload, maxFrameSize)
		if err != nil {
			Logger.Debugf("failed to decompress frame %d (compression 0x%02x, %d bytes): %v", i, f.Compression, len(f.Payload), err)
			return common.Nil(), fmt.Errorf("%w: frame %d: %v", common.ErrFrameCorruption, i, err)
		}
		payloads[i] = raw
	}

	return serializer.Decode(payloads[0], payloads[1:], deserialize)
}

// --------------------------------------------------------------------------
// Serialized helpers
// --------------------------------------------------------------------------

// ToSerialized encodes v with the pipeline's serializer into a placeholder that is
// passed through untouched when written
func (p *Pipeline) ToSerialized(v common.Value) (*common.Serialized, error) {
	return serializer.ToSerialized(p.Serializer, v)
}

// ToSerialized encodes v with the default serializer into a placeholder
func ToSerialized(v common.Value) (*common.Serialized, error) {
	return serializer.ToSerialized(serializer.NewBinarySerializer(), v)
}

// FromSerialized reconstructs the value held by a placeholder
func FromSerialized(ser *common.Serialized) (common.Value, error) {
	return serializer.FromSerialized(ser)
}

// resolve replaces every placeholder in v by its content
func resolve(v common.Value, depth int) (common.Value, error) {
	if depth > 512 {
		return common.Nil(), fmt.Errorf("%w: value nested too deep", common.ErrSerialization)
	}

	switch v.Kind() {
	case common.KindSerialized:
		ser, _ := v.AsSerialized()
		inner, err := serializer.FromSerialized(ser)
		if err != nil {
			return common.Nil(), err
		}
		return resolve(inner, depth+1)
	case common.KindList:
		items, _ := v.AsList()
		out := make([]common.Value, len(items))
		for i, item := range items {
			r, err := resolve(item, depth+1)
			if err != nil {
				return common.Nil(), err
			}
			out[i] = r
		}
		return common.List(out...), nil
	case common.KindMap:
		m, _ := v.AsMap()
		out := make(map[string]common.Value, len(m))
		for k, item := range m {
			r, err := resolve(item, depth+1)
			if err != nil {
				return common.Nil(), err
			}
			out[k] = r
		}
		return common.Map(out), nil
	default:
		return v, nil
	}
}

// collectPassthrough records the first byte of every placeholder frame in v
func collectPassthrough(v common.Value, set *map[*byte]struct{}) {
	switch v.Kind() {
	case common.KindSerialized:
		ser, _ := v.AsSerialized()
		for _, f := range ser.Frames {
			if len(f) == 0 {
				continue
			}
			if *set == nil {
				*set = make(map[*byte]struct{})
			}
			(*set)[&f[0]] = struct{}{}
		}
	case common.KindList:
		items, _ := v.AsList()
		for _, item := range items {
			collectPassthrough(item, set)
		}
	case common.KindMap:
		m, _ := v.AsMap()
		for _, item := range m {
			collectPassthrough(item, set)
		}
	}
}
