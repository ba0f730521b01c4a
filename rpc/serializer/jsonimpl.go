package serializer

import (
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/dComm/rpc/common"
)

// NewJSONSerializer creates a new serializer using json encoding for the header
func NewJSONSerializer() IRPCSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the IRPCSerializer interface using json encoding.
// Byte buffers stay out-of-band, the header only references them by index.
type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) ID() byte { return idJSON }

func (j jsonSerializerImpl) Name() string { return "json" }

func (j jsonSerializerImpl) Serialize(v common.Value) ([]byte, [][]byte, error) {
	var buffers [][]byte
	tree, err := toTree(v, &buffers, 0)
	if err != nil {
		return nil, nil, err
	}

	body, err := json.Marshal(tree)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrSerialization, err)
	}
	return append([]byte{idJSON}, body...), buffers, nil
}

func (j jsonSerializerImpl) Deserialize(header []byte, buffers [][]byte, deserialize bool) (common.Value, error) {
	body, err := checkHeader(idJSON, header)
	if err != nil {
		return common.Nil(), err
	}

	var tree treeNode
	if err := json.Unmarshal(body, &tree); err != nil {
		return common.Nil(), fmt.Errorf("%w: %v", common.ErrSerialization, err)
	}
	return fromTree(tree, buffers, deserialize, 0)
}
