package leaves

import (
	"context"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/kysee/zk-mixer/types"
)

// GetLeavesMethod is the JSON-RPC method serving tree leaves.
const GetLeavesMethod = "mt_getLeaves"

type rpcSource struct {
	client *rpc.Client
}

// NewRPCSource returns a Source backed by the mt_getLeaves RPC method.
func NewRPCSource(client *rpc.Client) Source {
	return &rpcSource{client: client}
}

func (s *rpcSource) GetLeaves(ctx context.Context, treeID uint32, from, to uint64) ([]types.Leaf, error) {
	var raw []hexutil.Bytes
	if err := s.client.CallContext(ctx, &raw, GetLeavesMethod, treeID, from, to); err != nil {
		return nil, err
	}
	ret := make([]types.Leaf, len(raw))
	for i, r := range raw {
		ret[i] = types.Leaf(r)
	}
	return ret, nil
}
