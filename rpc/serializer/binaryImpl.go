package serializer

import (
	"encoding/binary"
	"fmt"
	"github.com/ValentinKolb/dComm/rpc/common"
	"math"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format.
//
// Every value starts with a one byte tag followed by a tag specific body:
//   - nil, false, true: no body
//   - int, float: 8 bytes (big endian)
//   - string: 4 bytes length + data
//   - bytes: 4 bytes index into the out-of-band buffers
//   - list: 4 bytes count + items
//   - map: 4 bytes count + (4 bytes key length + key + value) sorted by key
//   - serialized: 4 bytes header length + header + 4 bytes first buffer index + 4 bytes frame count
type binarySerializerImpl struct {
}

// Value tags
const (
	tagNil        byte = 0
	tagFalse      byte = 1
	tagTrue       byte = 2
	tagInt        byte = 3
	tagFloat      byte = 4
	tagString     byte = 5
	tagBytes      byte = 6
	tagList       byte = 7
	tagMap        byte = 8
	tagSerialized byte = 9
)

// maxDepth bounds the nesting of decoded values
const maxDepth = 512

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) ID() byte { return idBinary }

func (b binarySerializerImpl) Name() string { return "binary" }

func (b binarySerializerImpl) Serialize(v common.Value) ([]byte, [][]byte, error) {
	// Calculate total size needed
	result := make([]byte, 0, 1+b.sizeBytes(v))

	// Write serializer id
	result = append(result, idBinary)

	var buffers [][]byte
	result, buffers, err := b.appendValue(result, buffers, v, 0)
	if err != nil {
		return nil, nil, err
	}
	return result, buffers, nil
}

func (b binarySerializerImpl) Deserialize(header []byte, buffers [][]byte, deserialize bool) (common.Value, error) {
	body, err := checkHeader(idBinary, header)
	if err != nil {
		return common.Nil(), err
	}

	r := &binaryReader{data: body, buffers: buffers, deserialize: deserialize}
	v, err := r.readValue(0)
	if err != nil {
		return common.Nil(), err
	}

	// The header must be consumed completely
	if r.pos != len(r.data) {
		return common.Nil(), fmt.Errorf("%w: %d trailing header bytes", common.ErrSerialization, len(r.data)-r.pos)
	}
	return v, nil
}

// --------------------------------------------------------------------------
// Helper Methods (encoding)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) appendValue(out []byte, buffers [][]byte, v common.Value, depth int) ([]byte, [][]byte, error) {
	if depth > maxDepth {
		return nil, nil, fmt.Errorf("%w: value nested deeper than %d", common.ErrSerialization, maxDepth)
	}

	switch v.Kind() {
	case common.KindNil:
		out = append(out, tagNil)

	case common.KindBool:
		if val, _ := v.AsBool(); val {
			out = append(out, tagTrue)
		} else {
			out = append(out, tagFalse)
		}

	case common.KindInt:
		val, _ := v.AsInt()
		out = append(out, tagInt)
		out = binary.BigEndian.AppendUint64(out, uint64(val))

	case common.KindFloat:
		val, _ := v.AsFloat()
		out = append(out, tagFloat)
		out = binary.BigEndian.AppendUint64(out, math.Float64bits(val))

	case common.KindString:
		val, _ := v.AsString()
		out = append(out, tagString)
		out = appendLenPrefixed(out, []byte(val))

	case common.KindBytes:
		// Byte buffers travel out-of-band, the header only references them
		val, _ := v.AsBytes()
		out = append(out, tagBytes)
		out = binary.BigEndian.AppendUint32(out, uint32(len(buffers)))
		buffers = append(buffers, val)

	case common.KindList:
		items, _ := v.AsList()
		out = append(out, tagList)
		out = binary.BigEndian.AppendUint32(out, uint32(len(items)))
		for _, item := range items {
			var err error
			if out, buffers, err = b.appendValue(out, buffers, item, depth+1); err != nil {
				return nil, nil, err
			}
		}

	case common.KindMap:
		m, _ := v.AsMap()
		out = append(out, tagMap)
		out = binary.BigEndian.AppendUint32(out, uint32(len(m)))
		for _, key := range v.Keys() {
			out = appendLenPrefixed(out, []byte(key))
			var err error
			if out, buffers, err = b.appendValue(out, buffers, m[key], depth+1); err != nil {
				return nil, nil, err
			}
		}

	case common.KindSerialized:
		// Pre-serialized values are passed through untouched
		ser, _ := v.AsSerialized()
		out = append(out, tagSerialized)
		out = appendLenPrefixed(out, ser.Header)
		out = binary.BigEndian.AppendUint32(out, uint32(len(buffers)))
		out = binary.BigEndian.AppendUint32(out, uint32(len(ser.Frames)))
		buffers = append(buffers, ser.Frames...)

	default:
		return nil, nil, fmt.Errorf("%w: unknown value kind %d", common.ErrSerialization, v.Kind())
	}

	return out, buffers, nil
}

// sizeBytes calculates the header size needed for serialization
func (b binarySerializerImpl) sizeBytes(v common.Value) int {
	switch v.Kind() {
	case common.KindInt, common.KindFloat:
		return 1 + 8
	case common.KindString:
		return 1 + 4 + v.Len()
	case common.KindBytes:
		return 1 + 4
	case common.KindList:
		items, _ := v.AsList()
		size := 1 + 4
		for _, item := range items {
			size += b.sizeBytes(item)
		}
		return size
	case common.KindMap:
		m, _ := v.AsMap()
		size := 1 + 4
		for key, item := range m {
			size += 4 + len(key) + b.sizeBytes(item)
		}
		return size
	case common.KindSerialized:
		ser, _ := v.AsSerialized()
		return 1 + 4 + len(ser.Header) + 4 + 4
	default:
		return 1
	}
}

func appendLenPrefixed(out []byte, data []byte) []byte {
	out = binary.BigEndian.AppendUint32(out, uint32(len(data)))
	return append(out, data...)
}

// --------------------------------------------------------------------------
// Helper Methods (decoding)
// --------------------------------------------------------------------------

// binaryReader holds the decoding position within a header
type binaryReader struct {
	data        []byte
	pos         int
	buffers     [][]byte
	deserialize bool
}

func (r *binaryReader) need(n int, what string) error {
	if n < 0 || r.pos+n > len(r.data) {
		return fmt.Errorf("%w: data too short for %s", common.ErrSerialization, what)
	}
	return nil
}

func (r *binaryReader) readUint32(what string) (uint32, error) {
	if err := r.need(4, what); err != nil {
		return 0, err
	}
	val := binary.BigEndian.Uint32(r.data[r.pos : r.pos+4])
	r.pos += 4
	return val, nil
}

func (r *binaryReader) readBytes(what string) ([]byte, error) {
	n, err := r.readUint32(what + " length")
	if err != nil {
		return nil, err
	}
	if err := r.need(int(n), what); err != nil {
		return nil, err
	}
	val := r.data[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return val, nil
}

func (r *binaryReader) buffer(idx uint32) ([]byte, error) {
	if int(idx) >= len(r.buffers) {
		return nil, fmt.Errorf("%w: buffer index %d out of range (%d buffers)", common.ErrSerialization, idx, len(r.buffers))
	}
	return r.buffers[idx], nil
}

func (r *binaryReader) readValue(depth int) (common.Value, error) {
	if depth > maxDepth {
		return common.Nil(), fmt.Errorf("%w: value nested deeper than %d", common.ErrSerialization, maxDepth)
	}
	if err := r.need(1, "tag"); err != nil {
		return common.Nil(), err
	}
	tag := r.data[r.pos]
	r.pos++

	switch tag {
	case tagNil:
		return common.Nil(), nil

	case tagFalse, tagTrue:
		return common.Bool(tag == tagTrue), nil

	case tagInt, tagFloat:
		if err := r.need(8, "number"); err != nil {
			return common.Nil(), err
		}
		bits := binary.BigEndian.Uint64(r.data[r.pos : r.pos+8])
		r.pos += 8
		if tag == tagInt {
			return common.Int(int64(bits)), nil
		}
		return common.Float(math.Float64frombits(bits)), nil

	case tagString:
		val, err := r.readBytes("string")
		if err != nil {
			return common.Nil(), err
		}
		return common.String(string(val)), nil

	case tagBytes:
		idx, err := r.readUint32("buffer index")
		if err != nil {
			return common.Nil(), err
		}
		buf, err := r.buffer(idx)
		if err != nil {
			return common.Nil(), err
		}
		return common.Bytes(buf), nil

	case tagList:
		n, err := r.readUint32("list length")
		if err != nil {
			return common.Nil(), err
		}
		// every item needs at least one byte
		if err := r.need(int(n), "list items"); err != nil {
			return common.Nil(), err
		}
		items := make([]common.Value, n)
		for i := range items {
			if items[i], err = r.readValue(depth + 1); err != nil {
				return common.Nil(), err
			}
		}
		return common.List(items...), nil

	case tagMap:
		n, err := r.readUint32("map length")
		if err != nil {
			return common.Nil(), err
		}
		if err := r.need(int(n)*5, "map entries"); err != nil {
			return common.Nil(), err
		}
		m := make(map[string]common.Value, n)
		for i := uint32(0); i < n; i++ {
			key, err := r.readBytes("map key")
			if err != nil {
				return common.Nil(), err
			}
			if m[string(key)], err = r.readValue(depth + 1); err != nil {
				return common.Nil(), err
			}
		}
		return common.Map(m), nil

	case tagSerialized:
		header, err := r.readBytes("serialized header")
		if err != nil {
			return common.Nil(), err
		}
		first, err := r.readUint32("serialized frame index")
		if err != nil {
			return common.Nil(), err
		}
		count, err := r.readUint32("serialized frame count")
		if err != nil {
			return common.Nil(), err
		}
		if uint64(first)+uint64(count) > uint64(len(r.buffers)) {
			return common.Nil(), fmt.Errorf("%w: serialized frames [%d,%d) out of range (%d buffers)",
				common.ErrSerialization, first, uint64(first)+uint64(count), len(r.buffers))
		}
		ser := &common.Serialized{Header: header, Frames: r.buffers[first : first+count : first+count]}

		// Case no deserialize: hand out the placeholder
		if !r.deserialize {
			return common.Wrap(ser), nil
		}
		return FromSerialized(ser)

	default:
		return common.Nil(), fmt.Errorf("%w: unknown tag %d", common.ErrSerialization, tag)
	}
}
