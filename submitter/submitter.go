// Package submitter signs chain calls, submits them and follows their
// lifecycle until the chain reports a dispatch result.
package submitter

import (
	"context"
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/signature"
	"github.com/ethereum/go-ethereum/common"
	"github.com/kysee/zk-mixer/crypto"
	"github.com/kysee/zk-mixer/types"
	"github.com/rs/zerolog"
)

var (
	ErrSubscriptionClosed = errors.New("status subscription closed before a dispatch result")
	ErrDropped            = errors.New("extrinsic dropped")
)

// ExtrinsicFailedError is returned when the chain applied the extrinsic and
// reported system.ExtrinsicFailed. Reason is "<section>.<name>" for module
// errors, "Token.<subtype>" for token errors, otherwise the error type tag.
type ExtrinsicFailedError struct {
	TxHash common.Hash
	Reason string
}

func (e *ExtrinsicFailedError) Error() string {
	return e.Reason
}

type Submitter struct {
	chain Chain
	log   zerolog.Logger
}

type Option func(*Submitter)

func WithLogger(log zerolog.Logger) Option {
	return func(s *Submitter) {
		s.log = log
	}
}

func New(chain Chain, opts ...Option) *Submitter {
	s := &Submitter{
		chain: chain,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit signs call with signer, submits it and waits until a block reports
// its dispatch result. It returns the extrinsic hash on system.ExtrinsicSuccess
// and an *ExtrinsicFailedError on system.ExtrinsicFailed. Transport failures
// are returned as they occur, without looking at any event.
func (s *Submitter) Submit(ctx context.Context, call Call, signer signature.Signer) (common.Hash, error) {
	accountID := crypto.AccountID(signer)
	nonce, err := s.chain.Nonce(ctx, accountID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("nonce: %w", err)
	}

	xt := &Extrinsic{
		Signer: accountID,
		Nonce:  nonce,
		Call:   call,
	}
	payload, err := xt.SigningPayload()
	if err != nil {
		return common.Hash{}, err
	}
	if xt.Signature, err = crypto.Sign(signer, payload); err != nil {
		return common.Hash{}, fmt.Errorf("sign %s: %w", call, err)
	}
	txHash := xt.Hash()
	log := s.log.With().Stringer("call", call).Stringer("tx", txHash).Logger()

	statusCh := make(chan *Status, 8)
	sub, err := s.chain.SubmitAndWatch(ctx, xt, statusCh)
	if err != nil {
		return common.Hash{}, fmt.Errorf("submit %s: %w", call, err)
	}
	defer sub.Unsubscribe()
	log.Debug().Uint64("nonce", nonce).Msg("extrinsic submitted")

	for {
		select {
		case st := <-statusCh:
			if done, err := s.settle(log, txHash, st); done {
				return txHash, err
			}
		case err := <-sub.Err():
			if err != nil {
				return common.Hash{}, fmt.Errorf("watch %s: %w", call, err)
			}
			// the stream ended: only statuses already buffered can settle it
			for {
				select {
				case st := <-statusCh:
					if done, err := s.settle(log, txHash, st); done {
						return txHash, err
					}
				default:
					return common.Hash{}, ErrSubscriptionClosed
				}
			}
		case <-ctx.Done():
			return common.Hash{}, ctx.Err()
		}
	}
}

// SubmitOutcome is Submit folded into a TxOutcome.
func (s *Submitter) SubmitOutcome(ctx context.Context, call Call, signer signature.Signer) types.TxOutcome {
	txHash, err := s.Submit(ctx, call, signer)
	if err != nil {
		return types.Failed(err.Error())
	}
	return types.Succeeded(txHash.Hex())
}

func (s *Submitter) settle(log zerolog.Logger, txHash common.Hash, st *Status) (bool, error) {
	log.Debug().Stringer("status", st.Kind).Int("events", len(st.Events)).Msg("extrinsic status")
	if st.Kind == StatusDropped {
		return true, ErrDropped
	}
	if !st.IsInBlock() && !st.IsFinalized() {
		return false, nil
	}
	for _, ev := range st.Events {
		if ev.Section != SystemSection {
			continue
		}
		switch ev.Method {
		case EventExtrinsicFailed:
			reason := s.reason(ev.Error)
			log.Debug().Str("reason", reason).Msg("extrinsic failed")
			return true, &ExtrinsicFailedError{TxHash: txHash, Reason: reason}
		case EventExtrinsicSuccess:
			log.Debug().Stringer("block", st.BlockHash).Msg("extrinsic succeeded")
			return true, nil
		}
	}
	return false, nil
}

func (s *Submitter) reason(de *DispatchError) string {
	if de == nil {
		return "Unknown"
	}
	switch {
	case de.Module != nil:
		meta, err := s.chain.Metadata().FindMetaError(*de.Module)
		if err != nil {
			s.log.Debug().Err(err).Uint8("index", de.Module.Index).Uint8("error", de.Module.Error).Msg("module error lookup")
			return de.Type
		}
		return meta.Section + "." + meta.Name
	case de.Token != "":
		return de.Type + "." + de.Token
	}
	return de.Type
}
