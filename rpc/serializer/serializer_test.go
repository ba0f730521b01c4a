package serializer

import (
	"errors"
	"github.com/ValentinKolb/dComm/rpc/common"
	"math"
	"testing"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testMessages creates a set of test messages covering every value kind
func testMessages() []common.Message {
	return []common.Message{
		// Scalars
		common.Nil(),
		common.Bool(true),
		common.Bool(false),
		common.Int(-42),
		common.Int(math.MaxInt64),
		common.Float(3.25),
		common.String(""),
		common.String("hello ✓"),

		// Byte buffers
		common.Bytes(nil),
		common.Bytes([]byte("foo")),

		// Containers
		common.List(),
		common.Map(map[string]common.Value{}),
		common.MustFromGo(map[string]any{
			"op":   "update",
			"x":    []any{123, 456},
			"data": []byte("foo"),
		}),
		common.MustFromGo([]any{
			"nested",
			[]any{1, 2.5, nil, true},
			map[string]any{"a": []byte{0, 1, 2}, "b": map[string]any{"c": "d"}},
		}),
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				// Serialize
				header, buffers, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}
				if header[0] != serializer.ID() {
					t.Errorf("Message %d: header starts with 0x%02x, expected 0x%02x", i, header[0], serializer.ID())
				}

				// Deserialize (through the dispatching decoder)
				result, err := Decode(header, buffers, true)
				if err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				// Compare
				if !msg.Equal(result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %s\nResult: %s", i, msg, result)
				}
			}
		})
	}
}

// TestBuffersOutOfBand tests that byte buffers are referenced, not copied into the header
func TestBuffersOutOfBand(t *testing.T) {
	payload := make([]byte, 1<<16)
	msg := common.List(common.Bytes(payload), common.String("x"), common.Bytes([]byte("y")))

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			header, buffers, err := factory().Serialize(msg)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}
			if len(buffers) != 2 {
				t.Fatalf("Expected 2 buffers, got %d", len(buffers))
			}
			if &buffers[0][0] != &payload[0] {
				t.Errorf("First buffer was copied")
			}
			if len(header) >= len(payload) {
				t.Errorf("Header of %d bytes contains the payload", len(header))
			}
		})
	}
}

// TestSerializedPlaceholder tests pass-through and deferred deserialization of Serialized values
func TestSerializedPlaceholder(t *testing.T) {
	inner := common.MustFromGo(map[string]any{"k": []byte("inner-bytes"), "n": 7})

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			ser, err := ToSerialized(serializer, inner)
			if err != nil {
				t.Fatalf("ToSerialized failed: %v", err)
			}
			msg := common.List(common.String("outer"), common.Wrap(ser), common.Bytes([]byte("after")))

			header, buffers, err := serializer.Serialize(msg)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			// deserialize=false keeps the placeholder
			lazy, err := Decode(header, buffers, false)
			if err != nil {
				t.Fatalf("Failed to decode lazily: %v", err)
			}
			items, _ := lazy.AsList()
			if items[1].Kind() != common.KindSerialized {
				t.Fatalf("Expected placeholder, got %s", items[1].Kind())
			}
			got, _ := items[1].AsSerialized()
			restored, err := FromSerialized(got)
			if err != nil {
				t.Fatalf("FromSerialized failed: %v", err)
			}
			if !restored.Equal(inner) {
				t.Errorf("Placeholder content mismatch: %s vs %s", restored, inner)
			}
			if last, _ := items[2].AsBytes(); string(last) != "after" {
				t.Errorf("Buffer after placeholder mismatch: %q", last)
			}

			// Growing the placeholder's frames must not touch the buffers behind it
			if cap(got.Frames) != len(got.Frames) {
				t.Errorf("Placeholder frames share capacity: len %d, cap %d", len(got.Frames), cap(got.Frames))
			}
			snapshot := append([][]byte(nil), buffers...)
			_ = append(got.Frames, []byte("overwrite"))
			for i := range buffers {
				if string(buffers[i]) != string(snapshot[i]) {
					t.Errorf("Buffer %d overwritten: %q", i, buffers[i])
				}
			}

			// deserialize=true resolves it in place
			eager, err := Decode(header, buffers, true)
			if err != nil {
				t.Fatalf("Failed to decode eagerly: %v", err)
			}
			items, _ = eager.AsList()
			if !items[1].Equal(inner) {
				t.Errorf("Expected resolved value %s, got %s", inner, items[1])
			}
		})
	}
}

// TestSerializedCrossFormat tests that a placeholder encoded with one format survives inside another
func TestSerializedCrossFormat(t *testing.T) {
	inner := common.MustFromGo([]any{"a", []byte("b")})
	ser, err := ToSerialized(NewGOBSerializer(), inner)
	if err != nil {
		t.Fatalf("ToSerialized failed: %v", err)
	}

	header, buffers, err := NewJSONSerializer().Serialize(common.Wrap(ser))
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}
	result, err := Decode(header, buffers, true)
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if !result.Equal(inner) {
		t.Errorf("Expected %s, got %s", inner, result)
	}
}

// TestJSONRejectsNaN tests that non-finite floats fail in the JSON serializer only
func TestJSONRejectsNaN(t *testing.T) {
	msg := common.List(common.Float(math.NaN()))

	if _, _, err := NewJSONSerializer().Serialize(msg); !errors.Is(err, common.ErrSerialization) {
		t.Errorf("Expected ErrSerialization, got %v", err)
	}

	header, buffers, err := NewBinarySerializer().Serialize(msg)
	if err != nil {
		t.Fatalf("Binary serializer failed: %v", err)
	}
	result, err := Decode(header, buffers, true)
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if !result.Equal(msg) {
		t.Errorf("NaN did not survive: %s", result)
	}
}

// TestByName tests the serializer registry lookup
func TestByName(t *testing.T) {
	for _, name := range Names() {
		s, err := ByName(name)
		if err != nil {
			t.Errorf("ByName(%q) failed: %v", name, err)
			continue
		}
		if s.Name() != name {
			t.Errorf("ByName(%q) returned %q", name, s.Name())
		}
	}
	if _, err := ByName("msgpack"); err == nil {
		t.Errorf("Expected error for unknown serializer")
	}
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name        string
		header      []byte
		buffers     [][]byte
		expectError bool
	}{
		{
			name:        "Empty data",
			header:      []byte{},
			expectError: true,
		},
		{
			name:        "Wrong serializer id",
			header:      []byte{idJSON, tagNil},
			expectError: true,
		},
		{
			name:        "Id only",
			header:      []byte{idBinary},
			expectError: true,
		},
		{
			name:        "Valid nil",
			header:      []byte{idBinary, tagNil},
			expectError: false,
		},
		{
			name:        "Trailing bytes",
			header:      []byte{idBinary, tagNil, tagNil},
			expectError: true,
		},
		{
			name:        "Unknown tag",
			header:      []byte{idBinary, 200},
			expectError: true,
		},
		{
			name:        "Truncated int",
			header:      []byte{idBinary, tagInt, 0, 0, 1},
			expectError: true,
		},
		{
			name:        "Invalid length for string",
			header:      []byte{idBinary, tagString, 0, 0, 0, 5, 'a', 'b', 'c'}, // Claims length 5 but only 3 bytes provided
			expectError: true,
		},
		{
			name:        "Buffer index out of range",
			header:      []byte{idBinary, tagBytes, 0, 0, 0, 1},
			buffers:     [][]byte{[]byte("only one")},
			expectError: true,
		},
		{
			name:        "Valid buffer reference",
			header:      []byte{idBinary, tagBytes, 0, 0, 0, 0},
			buffers:     [][]byte{[]byte("only one")},
			expectError: false,
		},
		{
			name:        "List claims too many items",
			header:      []byte{idBinary, tagList, 0xff, 0xff, 0xff, 0xff},
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := serializer.Deserialize(tc.header, tc.buffers, true)

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
			if err != nil && !errors.Is(err, common.ErrSerialization) {
				t.Errorf("Expected ErrSerialization, got: %v", err)
			}
		})
	}
}

// TestInvalidTreeData tests how the json and gob serializers handle corrupt headers
func TestInvalidTreeData(t *testing.T) {
	testCases := []struct {
		name   string
		header []byte
	}{
		{name: "JSON garbage", header: append([]byte{idJSON}, []byte("{not json")...)},
		{name: "JSON buffer out of range", header: append([]byte{idJSON}, []byte(`{"k":"bytes","buf":3}`)...)},
		{name: "GOB garbage", header: []byte{idGOB, 0xff, 0x00, 0x13}},
		{name: "Unknown id", header: []byte{0x7f}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode(tc.header, nil, true); !errors.Is(err, common.ErrSerialization) {
				t.Errorf("Expected ErrSerialization, got: %v", err)
			}
		})
	}
}
