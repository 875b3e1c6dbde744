package node

import (
	"context"
	"testing"

	"github.com/consensys/gnark-crypto/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
	"github.com/kysee/zk-mixer/crypto"
	"github.com/kysee/zk-mixer/leaves"
	"github.com/kysee/zk-mixer/prover"
	"github.com/kysee/zk-mixer/submitter"
	"github.com/kysee/zk-mixer/types"
	"github.com/stretchr/testify/require"
)

const depositSize = 100

func newAccount(t *testing.T) signature.Signer {
	signer, err := crypto.NewKey()
	require.NoError(t, err)
	return signer
}

func startNode(t *testing.T, cfg Config, endowed ...signature.Signer) *Node {
	cfg.Trees = []TreeConfig{{ID: 0, DepositSize: uint256.NewInt(depositSize)}}
	for _, s := range endowed {
		cfg.Endowments = append(cfg.Endowments, Endowment{AccountID: crypto.AccountID(s), Balance: uint256.NewInt(1000)})
	}
	n, err := Start(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { Stop(n) })
	return n
}

func TestDispatchErrors(t *testing.T) {
	alice, bob := newAccount(t), newAccount(t)
	n := startNode(t, Config{Depth: 3}, alice)
	sub := submitter.New(n)
	ctx := context.Background()

	cases := []struct {
		name   string
		signer signature.Signer
		call   submitter.Call
		reason string
	}{
		{"insufficient balance", bob, DepositCall(0, randLeaf(t)), "Balances.InsufficientBalance"},
		{"unknown tree", alice, DepositCall(9, randLeaf(t)), "Mixer.UnknownTree"},
		{"unknown call", alice, submitter.Call{Section: "mixer", Method: "mint"}, "CannotLookup"},
		{"bad params", alice, submitter.Call{Section: "mixer", Method: "deposit"}, "Other"},
		{
			"unknown root", alice,
			WithdrawCall(0, &types.ProofResult{Proof: []byte{0x1}, Root: []byte{0x2}, NullifierHash: []byte{0x3}}, []byte{0x4}, []byte{0x5}, nil, nil),
			"Mixer.UnknownRoot",
		},
		{
			"fee above deposit", alice,
			WithdrawCall(0, &types.ProofResult{Root: []byte{0x2}}, []byte{0x4}, []byte{0x5}, uint256.NewInt(depositSize+1), nil),
			"Mixer.InvalidFee",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := sub.Submit(ctx, tc.call, tc.signer)
			var xerr *submitter.ExtrinsicFailedError
			require.ErrorAs(t, err, &xerr)
			require.Equal(t, tc.reason, xerr.Reason)
		})
	}

	n.Freeze(crypto.AccountID(alice))
	out := sub.SubmitOutcome(ctx, DepositCall(0, randLeaf(t)), alice)
	require.Equal(t, types.Failed("Token.Frozen"), out)

	// failed extrinsics leave the ledger untouched
	require.Equal(t, uint256.NewInt(1000), n.Balance(crypto.AccountID(alice)))
	got, err := n.Leaves(0, 0, 10)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestRejectedExtrinsics(t *testing.T) {
	alice := newAccount(t)
	n := startNode(t, Config{Depth: 3}, alice)

	xt := &submitter.Extrinsic{
		Signer: crypto.AccountID(alice),
		Call:   DepositCall(0, randLeaf(t)),
	}
	payload, err := xt.SigningPayload()
	require.NoError(t, err)
	xt.Signature, err = crypto.Sign(alice, payload)
	require.NoError(t, err)

	forged := *xt
	forged.Call = DepositCall(0, randLeaf(t))
	_, err = n.SubmitAndWatch(context.Background(), &forged, make(chan *submitter.Status, 3))
	require.ErrorIs(t, err, ErrBadSignature)

	renonced := *xt
	renonced.Nonce = 1
	_, err = n.SubmitAndWatch(context.Background(), &renonced, make(chan *submitter.Status, 3))
	require.ErrorIs(t, err, ErrBadSignature)

	ch := make(chan *submitter.Status, 3)
	sub, err := n.SubmitAndWatch(context.Background(), xt, ch)
	require.NoError(t, err)
	defer sub.Unsubscribe()
	require.Equal(t, submitter.StatusReady, (<-ch).Kind)
	require.True(t, (<-ch).IsInBlock())
	require.True(t, (<-ch).IsFinalized())

	_, err = n.SubmitAndWatch(context.Background(), xt, make(chan *submitter.Status, 3))
	require.ErrorIs(t, err, ErrStaleNonce)

	nonce, err := n.Nonce(context.Background(), crypto.AccountID(alice))
	require.NoError(t, err)
	require.Equal(t, uint64(1), nonce)
}

func TestDepositOverRPC(t *testing.T) {
	alice := newAccount(t)
	n := startNode(t, Config{Depth: 4}, alice)
	client := n.Client()
	defer client.Close()
	ctx := context.Background()

	chain, err := submitter.NewRPCChain(ctx, client)
	require.NoError(t, err)
	sub := submitter.New(chain)

	var deposited []types.Leaf
	for i := 0; i < 5; i++ {
		leaf := randLeaf(t)
		_, err := sub.Submit(ctx, DepositCall(0, leaf), alice)
		require.NoError(t, err)
		deposited = append(deposited, leaf)
	}
	require.Equal(t, uint256.NewInt(500), n.Balance(crypto.AccountID(alice)))

	got, err := leaves.NewFetcher(leaves.NewRPCSource(client)).FetchLeaves(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, deposited, got)

	var root hexutil.Bytes
	require.NoError(t, client.CallContext(ctx, &root, "mt_getRoot", uint32(0)))
	expected, err := n.Root(0)
	require.NoError(t, err)
	require.Equal(t, expected, root)

	// module errors resolve through the metadata served by the node
	_, err = sub.Submit(ctx, DepositCall(0, randLeaf(t)), newAccount(t))
	require.EqualError(t, err, "Balances.InsufficientBalance")

	var balance string
	require.NoError(t, client.CallContext(ctx, &balance, "system_balance", hexutil.Bytes(crypto.AccountID(alice))))
	require.Equal(t, "500", balance)
}

func TestWebsocketEndpoint(t *testing.T) {
	alice := newAccount(t)
	n := startNode(t, Config{Depth: 3, ListenAddr: "127.0.0.1:0"}, alice)
	ctx := context.Background()

	client, err := rpc.DialContext(ctx, n.Endpoint())
	require.NoError(t, err)
	defer client.Close()

	chain, err := submitter.NewRPCChain(ctx, client)
	require.NoError(t, err)
	_, err = submitter.New(chain).Submit(ctx, DepositCall(0, randLeaf(t)), alice)
	require.NoError(t, err)

	got, err := leaves.NewFetcher(leaves.NewRPCSource(client)).FetchLeaves(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestStartTreeDepth(t *testing.T) {
	_, err := Start(Config{Depth: 0})
	require.ErrorIs(t, err, prover.ErrTreeDepth)
	_, err = Start(Config{Depth: prover.MaxTreeDepth + 1})
	require.ErrorIs(t, err, prover.ErrTreeDepth)
}
