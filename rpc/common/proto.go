package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message is the unit exchanged over a Comm. It is an arbitrary structured value.
type Message = Value

// Value is a tagged variant holding one of: nil, bool, int, float, string, bytes,
// list, map or a Serialized placeholder. The zero Value is nil.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	raw  []byte
	list []Value
	m    map[string]Value
	ser  *Serialized
}

// Serialized holds a value in encoded form. Its deserialization is deferred until
// the receiver explicitly asks for it (see codec.FromSerialized).
type Serialized struct {
	// Header is the self-describing encoding of the wrapped value's structure
	Header []byte
	// Frames are the out-of-band buffers referenced by the header
	Frames [][]byte
}

// Size returns the total number of bytes held by the header and frames
func (s *Serialized) Size() int {
	n := len(s.Header)
	for _, f := range s.Frames {
		n += len(f)
	}
	return n
}

// --------------------------------------------------------------------------
// Value Factory Functions
// --------------------------------------------------------------------------

// Nil returns the nil value
func Nil() Value { return Value{} }

// Bool creates a boolean value
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int creates a signed integer value
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float creates a floating point value
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String creates a string value
func String(s string) Value { return Value{kind: KindString, s: s} }

// Bytes creates a byte buffer value. The buffer is not copied.
func Bytes(b []byte) Value {
	if b == nil {
		b = []byte{}
	}
	return Value{kind: KindBytes, raw: b}
}

// List creates a sequence value
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, list: items}
}

// Map creates a map value with string keys
func Map(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindMap, m: m}
}

// Wrap creates a value holding a Serialized placeholder
func Wrap(s *Serialized) Value {
	if s == nil {
		return Nil()
	}
	return Value{kind: KindSerialized, ser: s}
}

// FromGo converts plain Go values into a Value.
// Supported: nil, bool, all int/uint/float kinds, string, []byte, []any, []Value,
// map[string]any, map[string]Value, Value, *Serialized.
func FromGo(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Nil(), nil
	case Value:
		return t, nil
	case *Serialized:
		return Wrap(t), nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return fromUint(uint64(t))
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return fromUint(t)
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case string:
		return String(t), nil
	case []byte:
		return Bytes(t), nil
	case []Value:
		return List(t...), nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			conv, err := FromGo(item)
			if err != nil {
				return Nil(), fmt.Errorf("index %d: %w", i, err)
			}
			items[i] = conv
		}
		return List(items...), nil
	case map[string]Value:
		return Map(t), nil
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			conv, err := FromGo(item)
			if err != nil {
				return Nil(), fmt.Errorf("key %q: %w", k, err)
			}
			m[k] = conv
		}
		return Map(m), nil
	default:
		return Nil(), fmt.Errorf("%w: unsupported type %T", ErrSerialization, v)
	}
}

// MustFromGo is like FromGo but panics on error. Intended for literals in tests and tools.
func MustFromGo(v any) Value {
	val, err := FromGo(v)
	if err != nil {
		panic(err)
	}
	return val
}

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Nil(), fmt.Errorf("%w: integer %d overflows int64", ErrSerialization, u)
	}
	return Int(int64(u)), nil
}

// --------------------------------------------------------------------------
// Accessors
// --------------------------------------------------------------------------

// Kind returns the variant tag of the value
func (v Value) Kind() Kind { return v.kind }

// IsNil reports whether the value is nil
func (v Value) IsNil() bool { return v.kind == KindNil }

// AsBool returns the boolean and whether the value is a bool
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsInt returns the integer and whether the value is an int
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns the float and whether the value is a float
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

// AsString returns the string and whether the value is a string
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsBytes returns the buffer and whether the value is a byte buffer
func (v Value) AsBytes() ([]byte, bool) { return v.raw, v.kind == KindBytes }

// AsList returns the items and whether the value is a list
func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == KindList }

// AsMap returns the entries and whether the value is a map
func (v Value) AsMap() (map[string]Value, bool) { return v.m, v.kind == KindMap }

// AsSerialized returns the placeholder and whether the value is one
func (v Value) AsSerialized() (*Serialized, bool) { return v.ser, v.kind == KindSerialized }

// Get returns the entry for key if the value is a map
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Nil(), false
	}
	item, ok := v.m[key]
	return item, ok
}

// Len returns the number of items of a list or map, the length of a string or byte buffer, 0 otherwise
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.m)
	case KindString:
		return len(v.s)
	case KindBytes:
		return len(v.raw)
	default:
		return 0
	}
}

// Keys returns the sorted keys of a map value
func (v Value) Keys() []string {
	if v.kind != KindMap {
		return nil
	}
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Interface converts the value back into plain Go values (inverse of FromGo)
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindBytes:
		return v.raw
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[k] = item.Interface()
		}
		return out
	case KindSerialized:
		return v.ser
	default:
		return nil
	}
}

// Equal reports structural equality. Serialized placeholders are equal if their
// header and frames are byte-equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindString:
		return v.s == o.s
	case KindBytes:
		return bytes.Equal(v.raw, o.raw)
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, item := range v.m {
			other, ok := o.m[k]
			if !ok || !item.Equal(other) {
				return false
			}
		}
		return true
	case KindSerialized:
		if !bytes.Equal(v.ser.Header, o.ser.Header) || len(v.ser.Frames) != len(o.ser.Frames) {
			return false
		}
		for i := range v.ser.Frames {
			if !bytes.Equal(v.ser.Frames[i], o.ser.Frames[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String returns a short, human-readable rendering. Large buffers are abbreviated.
func (v Value) String() string {
	var sb strings.Builder
	v.render(&sb)
	return sb.String()
}

func (v Value) render(sb *strings.Builder) {
	switch v.kind {
	case KindNil:
		sb.WriteString("nil")
	case KindBool:
		fmt.Fprintf(sb, "%t", v.b)
	case KindInt:
		fmt.Fprintf(sb, "%d", v.i)
	case KindFloat:
		fmt.Fprintf(sb, "%g", v.f)
	case KindString:
		fmt.Fprintf(sb, "%q", v.s)
	case KindBytes:
		if len(v.raw) <= 32 {
			fmt.Fprintf(sb, "b%q", v.raw)
		} else {
			fmt.Fprintf(sb, "<%d bytes>", len(v.raw))
		}
	case KindList:
		sb.WriteString("[")
		for i, item := range v.list {
			if i > 0 {
				sb.WriteString(", ")
			}
			item.render(sb)
		}
		sb.WriteString("]")
	case KindMap:
		sb.WriteString("{")
		for i, k := range v.Keys() {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(sb, "%q: ", k)
			v.m[k].render(sb)
		}
		sb.WriteString("}")
	case KindSerialized:
		fmt.Fprintf(sb, "<serialized %d bytes, %d frames>", v.ser.Size(), len(v.ser.Frames))
	}
}

// --------------------------------------------------------------------------
// Kind Definition
// --------------------------------------------------------------------------

// Kind is the variant tag of a Value
type Kind uint8

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindSerialized:
		return "serialized"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for Kind.
// This allows Kind to be serialized as a string in JSON.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for Kind.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	for candidate := KindNil; candidate <= KindSerialized; candidate++ {
		if candidate.String() == s {
			*k = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown value kind: %s", s)
}

// --------------------------------------------------------------------------
// Kind Constants
// --------------------------------------------------------------------------

const (
	KindNil        Kind = iota // The nil value
	KindBool                   // true / false
	KindInt                    // int64
	KindFloat                  // float64
	KindString                 // utf-8 string
	KindBytes                  // raw byte buffer, transmitted out-of-band
	KindList                   // sequence of values
	KindMap                    // string keyed map of values
	KindSerialized             // pre-serialized placeholder
)
