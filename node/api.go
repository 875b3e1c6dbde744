package node

import (
	"context"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/kysee/zk-mixer/submitter"
)

// mtAPI serves the leaves and roots of the mixer trees under "mt".
type mtAPI struct {
	n *Node
}

// GetLeaves returns the leaves of tree treeID in [from, to).
func (api *mtAPI) GetLeaves(treeID uint32, from, to uint64) ([]hexutil.Bytes, error) {
	leaves, err := api.n.Leaves(treeID, from, to)
	if err != nil {
		return nil, err
	}
	ret := make([]hexutil.Bytes, len(leaves))
	for i, l := range leaves {
		ret[i] = hexutil.Bytes(l)
	}
	return ret, nil
}

func (api *mtAPI) GetRoot(treeID uint32) (hexutil.Bytes, error) {
	return api.n.Root(treeID)
}

type systemAPI struct {
	n *Node
}

func (api *systemAPI) AccountNextIndex(ctx context.Context, accountID hexutil.Bytes) (hexutil.Uint64, error) {
	nonce, err := api.n.Nonce(ctx, accountID)
	return hexutil.Uint64(nonce), err
}

func (api *systemAPI) Balance(accountID hexutil.Bytes) string {
	return api.n.Balance(accountID).Dec()
}

type stateAPI struct{}

func (api *stateAPI) GetMetadata() *submitter.Metadata {
	return Metadata
}

type authorAPI struct {
	n *Node
}

// SubmitAndWatchExtrinsic applies xt and notifies the subscriber of each of
// its statuses.
func (api *authorAPI) SubmitAndWatchExtrinsic(ctx context.Context, xt *submitter.Extrinsic) (*rpc.Subscription, error) {
	notifier, supported := rpc.NotifierFromContext(ctx)
	if !supported {
		return nil, rpc.ErrNotificationsUnsupported
	}
	statuses, err := api.n.submit(xt)
	if err != nil {
		return nil, err
	}

	rpcSub := notifier.CreateSubscription()
	go func() {
		for _, st := range statuses {
			select {
			case <-rpcSub.Err():
				return
			default:
			}
			if err := notifier.Notify(rpcSub.ID, st); err != nil {
				api.n.log.Debug().Err(err).Msg("notify extrinsic status")
				return
			}
		}
	}()
	return rpcSub, nil
}

func (n *Node) apis() []rpc.API {
	return []rpc.API{
		{Namespace: "mt", Service: &mtAPI{n}},
		{Namespace: "system", Service: &systemAPI{n}},
		{Namespace: "state", Service: &stateAPI{}},
		{Namespace: submitter.AuthorNamespace, Service: &authorAPI{n}},
	}
}
