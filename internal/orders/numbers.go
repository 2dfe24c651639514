package orders

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

type NumberGenerator interface {
	Next() string
}

// SnowflakeNumbers issues order numbers that are unique per node id. Every API instance needs
// its own node id.
type SnowflakeNumbers struct {
	node   *snowflake.Node
	prefix string
}

func NewSnowflakeNumbers(nodeID int64) (*SnowflakeNumbers, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("create snowflake node: %w", err)
	}
	return &SnowflakeNumbers{node: node, prefix: "FM-"}, nil
}

func (g *SnowflakeNumbers) Next() string {
	return g.prefix + g.node.Generate().String()
}
