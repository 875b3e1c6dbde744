package submitter

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/consensys/gnark-crypto/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/event"
	"github.com/kysee/zk-mixer/crypto"
	"github.com/kysee/zk-mixer/types"
	"github.com/stretchr/testify/require"
)

type registry map[ModuleError]*MetaError

func (r registry) FindMetaError(me ModuleError) (*MetaError, error) {
	if m, ok := r[me]; ok {
		return m, nil
	}
	return nil, ErrUnknownModuleError
}

var testRegistry = registry{
	{Index: 5, Error: 2}: {Section: "Balances", Name: "InsufficientBalance"},
	{Index: 40, Error: 0}: {Section: "Mixer", Name: "UnknownRoot"},
}

// scriptedChain plays statuses to every submission, then ends the stream with
// streamErr.
type scriptedChain struct {
	statuses  []*Status
	streamErr error
	submitErr error
	hold      bool

	submitted    *Extrinsic
	unsubscribed atomic.Bool
}

func (c *scriptedChain) Nonce(context.Context, []byte) (uint64, error) {
	return 7, nil
}

func (c *scriptedChain) SubmitAndWatch(_ context.Context, xt *Extrinsic, ch chan<- *Status) (event.Subscription, error) {
	if c.submitErr != nil {
		return nil, c.submitErr
	}
	c.submitted = xt
	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer c.unsubscribed.Store(true)
		for _, st := range c.statuses {
			select {
			case ch <- st:
			case <-quit:
				return nil
			}
		}
		if c.hold {
			<-quit
			return nil
		}
		return c.streamErr
	}), nil
}

func (c *scriptedChain) Metadata() MetadataRegistry {
	return testRegistry
}

func newSigner(t *testing.T) signature.Signer {
	signer, err := crypto.NewKey()
	require.NoError(t, err)
	return signer
}

func inBlock(events ...*EventRecord) *Status {
	return &Status{Kind: StatusInBlock, BlockHash: [32]byte{0x1}, Events: events}
}

func finalized(events ...*EventRecord) *Status {
	return &Status{Kind: StatusFinalized, BlockHash: [32]byte{0x1}, Events: events}
}

func failed(de *DispatchError) *EventRecord {
	return &EventRecord{Section: SystemSection, Method: EventExtrinsicFailed, Error: de}
}

var (
	success   = &EventRecord{Section: SystemSection, Method: EventExtrinsicSuccess}
	deposited = &EventRecord{Section: "mixer", Method: "Deposit"}
	withdraw  = Call{Section: "mixer", Method: "withdraw", Params: []hexutil.Bytes{{0x1}}}
)

func TestSubmitSuccess(t *testing.T) {
	chain := &scriptedChain{
		statuses: []*Status{{Kind: StatusReady}, inBlock(deposited, success), finalized(deposited, success)},
		hold:     true,
	}
	signer := newSigner(t)

	txHash, err := New(chain).Submit(context.Background(), withdraw, signer)
	require.NoError(t, err)
	require.Equal(t, chain.submitted.Hash(), txHash)
	require.Equal(t, uint64(7), chain.submitted.Nonce)
	require.Equal(t, hexutil.Bytes(crypto.AccountID(signer)), chain.submitted.Signer)

	payload, err := chain.submitted.SigningPayload()
	require.NoError(t, err)
	ok, err := crypto.Verify(chain.submitted.Signer, chain.submitted.Signature, payload)
	require.NoError(t, err)
	require.True(t, ok)

	require.Eventually(t, chain.unsubscribed.Load, time.Second, 10*time.Millisecond)
}

func TestSubmitDispatchErrors(t *testing.T) {
	cases := []struct {
		name   string
		de     *DispatchError
		reason string
	}{
		{"module", &DispatchError{Type: "Module", Module: &ModuleError{Index: 5, Error: 2}}, "Balances.InsufficientBalance"},
		{"mixer module", &DispatchError{Type: "Module", Module: &ModuleError{Index: 40, Error: 0}}, "Mixer.UnknownRoot"},
		{"unknown module", &DispatchError{Type: "Module", Module: &ModuleError{Index: 99, Error: 1}}, "Module"},
		{"token", &DispatchError{Type: "Token", Token: "Frozen"}, "Token.Frozen"},
		{"other", &DispatchError{Type: "BadOrigin"}, "BadOrigin"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chain := &scriptedChain{
				statuses: []*Status{inBlock(failed(tc.de))},
				hold:     true,
			}
			_, err := New(chain).Submit(context.Background(), withdraw, newSigner(t))
			var xerr *ExtrinsicFailedError
			require.ErrorAs(t, err, &xerr)
			require.Equal(t, tc.reason, err.Error())
			require.Equal(t, chain.submitted.Hash(), xerr.TxHash)
			require.Eventually(t, chain.unsubscribed.Load, time.Second, 10*time.Millisecond)
		})
	}
}

func TestSubmitIgnoresNonSystemEvents(t *testing.T) {
	chain := &scriptedChain{
		statuses: []*Status{
			inBlock(&EventRecord{Section: "mixer", Method: EventExtrinsicFailed}),
			finalized(deposited, success),
		},
		hold: true,
	}
	_, err := New(chain).Submit(context.Background(), withdraw, newSigner(t))
	require.NoError(t, err)
}

func TestSubmitInBlockAloneDoesNotSettle(t *testing.T) {
	chain := &scriptedChain{
		statuses: []*Status{{Kind: StatusReady}, inBlock(deposited)},
		hold:     true,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := New(chain).Submit(ctx, withdraw, newSigner(t))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Eventually(t, chain.unsubscribed.Load, time.Second, 10*time.Millisecond)
}

func TestSubmitTransportErrors(t *testing.T) {
	refused := errors.New("connection refused")
	_, err := New(&scriptedChain{submitErr: refused}).Submit(context.Background(), withdraw, newSigner(t))
	require.ErrorIs(t, err, refused)

	reset := errors.New("connection reset")
	chain := &scriptedChain{statuses: []*Status{{Kind: StatusReady}}, streamErr: reset}
	_, err = New(chain).Submit(context.Background(), withdraw, newSigner(t))
	require.ErrorIs(t, err, reset)
	var xerr *ExtrinsicFailedError
	require.False(t, errors.As(err, &xerr))
}

func TestSubmitStreamEnds(t *testing.T) {
	chain := &scriptedChain{statuses: []*Status{{Kind: StatusReady}, inBlock(deposited)}}
	_, err := New(chain).Submit(context.Background(), withdraw, newSigner(t))
	require.ErrorIs(t, err, ErrSubscriptionClosed)

	// statuses buffered before the end of the stream still settle it
	chain = &scriptedChain{statuses: []*Status{inBlock(success)}}
	_, err = New(chain).Submit(context.Background(), withdraw, newSigner(t))
	require.NoError(t, err)
}

func TestSubmitDropped(t *testing.T) {
	chain := &scriptedChain{statuses: []*Status{{Kind: StatusReady}, {Kind: StatusDropped}}, hold: true}
	_, err := New(chain).Submit(context.Background(), withdraw, newSigner(t))
	require.ErrorIs(t, err, ErrDropped)
}

func TestSubmitOutcome(t *testing.T) {
	chain := &scriptedChain{statuses: []*Status{inBlock(success)}, hold: true}
	out := New(chain).SubmitOutcome(context.Background(), withdraw, newSigner(t))
	require.Equal(t, types.OutcomeSuccess, out.Status)
	require.Equal(t, chain.submitted.Hash().Hex(), out.TxHash)

	chain = &scriptedChain{
		statuses: []*Status{inBlock(failed(&DispatchError{Type: "Token", Token: "Frozen"}))},
		hold:     true,
	}
	out = New(chain).SubmitOutcome(context.Background(), withdraw, newSigner(t))
	require.Equal(t, types.Failed("Token.Frozen"), out)
}
