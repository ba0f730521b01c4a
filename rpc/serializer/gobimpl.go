package serializer

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"github.com/ValentinKolb/dComm/rpc/common"
)

// NewGOBSerializer creates a new serializer using Go's binary gob format for the header
func NewGOBSerializer() IRPCSerializer {
	return &gobSerializerImpl{}
}

// gobSerializerImpl implements the IRPCSerializer interface using gob encoding
type gobSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (g gobSerializerImpl) ID() byte { return idGOB }

func (g gobSerializerImpl) Name() string { return "gob" }

func (g gobSerializerImpl) Serialize(v common.Value) ([]byte, [][]byte, error) {
	var buffers [][]byte
	tree, err := toTree(v, &buffers, 0)
	if err != nil {
		return nil, nil, err
	}

	var buf bytes.Buffer
	buf.WriteByte(idGOB)
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(tree); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrSerialization, err)
	}
	return buf.Bytes(), buffers, nil
}

func (g gobSerializerImpl) Deserialize(header []byte, buffers [][]byte, deserialize bool) (common.Value, error) {
	body, err := checkHeader(idGOB, header)
	if err != nil {
		return common.Nil(), err
	}

	var tree treeNode
	dec := gob.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&tree); err != nil {
		return common.Nil(), fmt.Errorf("%w: %v", common.ErrSerialization, err)
	}
	return fromTree(tree, buffers, deserialize, 0)
}
