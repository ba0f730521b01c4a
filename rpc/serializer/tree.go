package serializer

import (
	"fmt"
	"github.com/ValentinKolb/dComm/rpc/common"
	"math"
)

// treeNode is the reflective representation of a Value shared by the JSON and GOB
// serializers. Which fields are used depends on Kind.
type treeNode struct {
	Kind  common.Kind         `json:"k"`
	Bool  bool                `json:"b,omitempty"`
	Int   int64               `json:"i,omitempty"`
	Float float64             `json:"f,omitempty"`
	Str   string              `json:"s,omitempty"`
	Buf   int                 `json:"buf,omitempty"` // Used for: bytes (buffer index), serialized (first frame)
	Count int                 `json:"n,omitempty"`   // Used for: serialized (frame count)
	Head  []byte              `json:"h,omitempty"`   // Used for: serialized (header)
	List  []treeNode          `json:"l,omitempty"`
	Map   map[string]treeNode `json:"m,omitempty"`
}

// toTree converts a value into a treeNode and collects its out-of-band buffers
func toTree(v common.Value, buffers *[][]byte, depth int) (treeNode, error) {
	if depth > maxDepth {
		return treeNode{}, fmt.Errorf("%w: value nested deeper than %d", common.ErrSerialization, maxDepth)
	}

	n := treeNode{Kind: v.Kind()}
	switch v.Kind() {
	case common.KindNil:
	case common.KindBool:
		n.Bool, _ = v.AsBool()
	case common.KindInt:
		n.Int, _ = v.AsInt()
	case common.KindFloat:
		n.Float, _ = v.AsFloat()
		if math.IsNaN(n.Float) || math.IsInf(n.Float, 0) {
			return treeNode{}, fmt.Errorf("%w: %v is not representable", common.ErrSerialization, n.Float)
		}
	case common.KindString:
		n.Str, _ = v.AsString()
	case common.KindBytes:
		buf, _ := v.AsBytes()
		n.Buf = len(*buffers)
		*buffers = append(*buffers, buf)
	case common.KindList:
		items, _ := v.AsList()
		n.List = make([]treeNode, len(items))
		for i, item := range items {
			child, err := toTree(item, buffers, depth+1)
			if err != nil {
				return treeNode{}, err
			}
			n.List[i] = child
		}
	case common.KindMap:
		m, _ := v.AsMap()
		n.Map = make(map[string]treeNode, len(m))
		for key, item := range m {
			child, err := toTree(item, buffers, depth+1)
			if err != nil {
				return treeNode{}, err
			}
			n.Map[key] = child
		}
	case common.KindSerialized:
		ser, _ := v.AsSerialized()
		n.Head = ser.Header
		n.Buf = len(*buffers)
		n.Count = len(ser.Frames)
		*buffers = append(*buffers, ser.Frames...)
	default:
		return treeNode{}, fmt.Errorf("%w: unknown value kind %d", common.ErrSerialization, v.Kind())
	}
	return n, nil
}

// fromTree converts a treeNode back into a value
func fromTree(n treeNode, buffers [][]byte, deserialize bool, depth int) (common.Value, error) {
	if depth > maxDepth {
		return common.Nil(), fmt.Errorf("%w: value nested deeper than %d", common.ErrSerialization, maxDepth)
	}

	switch n.Kind {
	case common.KindNil:
		return common.Nil(), nil
	case common.KindBool:
		return common.Bool(n.Bool), nil
	case common.KindInt:
		return common.Int(n.Int), nil
	case common.KindFloat:
		return common.Float(n.Float), nil
	case common.KindString:
		return common.String(n.Str), nil
	case common.KindBytes:
		if n.Buf < 0 || n.Buf >= len(buffers) {
			return common.Nil(), fmt.Errorf("%w: buffer index %d out of range (%d buffers)", common.ErrSerialization, n.Buf, len(buffers))
		}
		return common.Bytes(buffers[n.Buf]), nil
	case common.KindList:
		items := make([]common.Value, len(n.List))
		for i, child := range n.List {
			item, err := fromTree(child, buffers, deserialize, depth+1)
			if err != nil {
				return common.Nil(), err
			}
			items[i] = item
		}
		return common.List(items...), nil
	case common.KindMap:
		m := make(map[string]common.Value, len(n.Map))
		for key, child := range n.Map {
			item, err := fromTree(child, buffers, deserialize, depth+1)
			if err != nil {
				return common.Nil(), err
			}
			m[key] = item
		}
		return common.Map(m), nil
	case common.KindSerialized:
		if n.Buf < 0 || n.Count < 0 || n.Buf+n.Count > len(buffers) {
			return common.Nil(), fmt.Errorf("%w: serialized frames [%d,%d) out of range (%d buffers)",
				common.ErrSerialization, n.Buf, n.Buf+n.Count, len(buffers))
		}
		ser := &common.Serialized{Header: n.Head, Frames: buffers[n.Buf : n.Buf+n.Count : n.Buf+n.Count]}
		if !deserialize {
			return common.Wrap(ser), nil
		}
		return FromSerialized(ser)
	default:
		return common.Nil(), fmt.Errorf("%w: unknown value kind %d", common.ErrSerialization, n.Kind)
	}
}
