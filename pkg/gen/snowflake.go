package gen

import (
	"smallbiznis-license/pkg/config"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

type SnowflakeNode struct {
	node *snowflake.Node
}

func NewSnowflakeNode(nodeID int64) (*SnowflakeNode, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, err
	}
	return &SnowflakeNode{node: node}, nil
}

func (s *SnowflakeNode) GenerateID() snowflake.ID {
	return s.node.Generate()
}

var Module = fx.Module("gen", fx.Provide(ProvideSnowflake))

func ProvideSnowflake(cfg *config.Config) (*SnowflakeNode, error) {
	return NewSnowflakeNode(cfg.NodeID)
}
