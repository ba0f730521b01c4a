package serializer

import (
	"fmt"
	"github.com/ValentinKolb/dComm/rpc/common"
)

// IRPCSerializer is the interface for all Value serializers.
//
// A serializer splits a value into a header describing its structure and a list of
// out-of-band buffers (the byte buffers contained in the value and the frames of any
// Serialized placeholder). The first header byte is always the serializer's ID so any
// header can be decoded without knowing which serializer produced it.
type IRPCSerializer interface {
	// ID is written as the first byte of every header produced by this serializer
	ID() byte
	// Name returns the configuration name (binary, json, gob)
	Name() string
	// Serialize encodes a value into a header and out-of-band buffers.
	// Buffers are not copied.
	Serialize(v common.Value) (header []byte, buffers [][]byte, err error)
	// Deserialize reconstructs a value from a header and its buffers.
	// If deserialize is false, Serialized sub-values are returned as placeholders.
	Deserialize(header []byte, buffers [][]byte, deserialize bool) (common.Value, error)
}

// --------------------------------------------------------------------------
// Registry
// --------------------------------------------------------------------------

const (
	idBinary byte = 0x01
	idJSON   byte = 0x02
	idGOB    byte = 0x03
)

var registry map[byte]IRPCSerializer

func init() {
	registry = map[byte]IRPCSerializer{
		idBinary: NewBinarySerializer(),
		idJSON:   NewJSONSerializer(),
		idGOB:    NewGOBSerializer(),
	}
}

// ByName returns the serializer registered under name
func ByName(name string) (IRPCSerializer, error) {
	for _, s := range registry {
		if s.Name() == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("invalid serializer %s", name)
}

// Names returns the names of all registered serializers
func Names() []string {
	return []string{"binary", "json", "gob"}
}

// Decode dispatches a header to the serializer identified by its first byte
func Decode(header []byte, buffers [][]byte, deserialize bool) (common.Value, error) {
	if len(header) == 0 {
		return common.Nil(), fmt.Errorf("%w: empty header", common.ErrSerialization)
	}
	s, ok := registry[header[0]]
	if !ok {
		return common.Nil(), fmt.Errorf("%w: unknown serializer id 0x%02x", common.ErrSerialization, header[0])
	}
	return s.Deserialize(header, buffers, deserialize)
}

// ToSerialized encodes v with s into a Serialized placeholder
func ToSerialized(s IRPCSerializer, v common.Value) (*common.Serialized, error) {
	header, buffers, err := s.Serialize(v)
	if err != nil {
		return nil, err
	}
	return &common.Serialized{Header: header, Frames: buffers}, nil
}

// FromSerialized reconstructs the value held by a Serialized placeholder
func FromSerialized(ser *common.Serialized) (common.Value, error) {
	if ser == nil {
		return common.Nil(), fmt.Errorf("%w: nil placeholder", common.ErrSerialization)
	}
	return Decode(ser.Header, ser.Frames, true)
}

// checkHeader verifies the leading ID byte and returns the remaining body
func checkHeader(id byte, header []byte) ([]byte, error) {
	if len(header) == 0 {
		return nil, fmt.Errorf("%w: empty header", common.ErrSerialization)
	}
	if header[0] != id {
		return nil, fmt.Errorf("%w: header id 0x%02x, expected 0x%02x", common.ErrSerialization, header[0], id)
	}
	return header[1:], nil
}
