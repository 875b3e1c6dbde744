package submitter

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"
)

const (
	NonceMethod     = "system_accountNextIndex"
	MetadataMethod  = "state_getMetadata"
	AuthorNamespace = "author"
	WatchMethod     = "submitAndWatchExtrinsic"
)

// RPCChain is a Chain reached over JSON-RPC. Watching extrinsics needs a
// transport with subscriptions (websocket, ipc or in-process).
type RPCChain struct {
	client *rpc.Client
	meta   *Metadata
}

// NewRPCChain loads the chain metadata once and keeps it for the lifetime of
// the returned chain.
func NewRPCChain(ctx context.Context, client *rpc.Client) (*RPCChain, error) {
	meta := new(Metadata)
	if err := client.CallContext(ctx, meta, MetadataMethod); err != nil {
		return nil, fmt.Errorf("%s: %w", MetadataMethod, err)
	}
	return &RPCChain{
		client: client,
		meta:   meta,
	}, nil
}

func (c *RPCChain) Nonce(ctx context.Context, accountID []byte) (uint64, error) {
	var nonce hexutil.Uint64
	if err := c.client.CallContext(ctx, &nonce, NonceMethod, hexutil.Bytes(accountID)); err != nil {
		return 0, err
	}
	return uint64(nonce), nil
}

func (c *RPCChain) SubmitAndWatch(ctx context.Context, xt *Extrinsic, ch chan<- *Status) (event.Subscription, error) {
	sub, err := c.client.Subscribe(ctx, AuthorNamespace, ch, WatchMethod, xt)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (c *RPCChain) Metadata() MetadataRegistry {
	return c.meta
}
