package node

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/holiman/uint256"
	"github.com/kysee/zk-mixer/crypto"
	"github.com/kysee/zk-mixer/prover"
	"github.com/kysee/zk-mixer/submitter"
	"golang.org/x/crypto/blake2b"
)

var (
	ErrBadSignature = errors.New("invalid transaction: bad signature")
	ErrStaleNonce   = errors.New("invalid transaction: stale nonce")
	ErrFutureNonce  = errors.New("invalid transaction: future nonce")
)

// Nonce returns the next nonce expected from accountID.
func (n *Node) Nonce(_ context.Context, accountID []byte) (uint64, error) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	return n.nonces[string(accountID)], nil
}

func (n *Node) Metadata() submitter.MetadataRegistry {
	return Metadata
}

// SubmitAndWatch applies xt in a new block and streams its ready, in-block and
// finalized statuses to ch. Extrinsics with a bad signature or nonce are
// rejected without a block.
func (n *Node) SubmitAndWatch(_ context.Context, xt *submitter.Extrinsic, ch chan<- *submitter.Status) (event.Subscription, error) {
	statuses, err := n.submit(xt)
	if err != nil {
		return nil, err
	}
	return event.NewSubscription(func(quit <-chan struct{}) error {
		for _, st := range statuses {
			select {
			case ch <- st:
			case <-quit:
				return nil
			}
		}
		return nil
	}), nil
}

func (n *Node) submit(xt *submitter.Extrinsic) ([]*submitter.Status, error) {
	payload, err := xt.SigningPayload()
	if err != nil {
		return nil, err
	}
	if ok, err := crypto.Verify(xt.Signer, xt.Signature, payload); err != nil || !ok {
		return nil, ErrBadSignature
	}

	n.mtx.Lock()
	defer n.mtx.Unlock()

	signer := string(xt.Signer)
	switch expected := n.nonces[signer]; {
	case xt.Nonce < expected:
		return nil, ErrStaleNonce
	case xt.Nonce > expected:
		return nil, ErrFutureNonce
	}
	n.nonces[signer]++

	events, derr := n.dispatch(xt)
	if derr != nil {
		events = []*submitter.EventRecord{{
			Section: submitter.SystemSection,
			Method:  submitter.EventExtrinsicFailed,
			Error:   derr,
		}}
	} else {
		events = append(events, &submitter.EventRecord{
			Section: submitter.SystemSection,
			Method:  submitter.EventExtrinsicSuccess,
		})
	}

	n.blockNum++
	block := n.blockHash(xt.Hash())
	n.log.Debug().
		Uint64("block", n.blockNum).
		Stringer("call", xt.Call).
		Stringer("tx", xt.Hash()).
		Bool("ok", derr == nil).
		Msg("extrinsic applied")

	return []*submitter.Status{
		{Kind: submitter.StatusReady},
		{Kind: submitter.StatusInBlock, BlockHash: block, Events: events},
		{Kind: submitter.StatusFinalized, BlockHash: block, Events: events},
	}, nil
}

func (n *Node) blockHash(txHash common.Hash) common.Hash {
	buf := binary.BigEndian.AppendUint64(nil, n.blockNum)
	return blake2b.Sum256(append(buf, txHash[:]...))
}

// dispatch applies the call of xt. It must be called with mtx held and leaves
// state untouched when it returns a dispatch error.
func (n *Node) dispatch(xt *submitter.Extrinsic) ([]*submitter.EventRecord, *submitter.DispatchError) {
	call := xt.Call
	switch {
	case call.Section == SectionMixerCall && call.Method == MethodDeposit:
		return n.deposit(xt.Signer, call)
	case call.Section == SectionMixerCall && call.Method == MethodWithdraw:
		return n.withdraw(call)
	case call.Section == SectionBalancesCall && call.Method == MethodTransfer:
		return n.transfer(xt.Signer, call)
	}
	return nil, errCannotLookup
}

func (n *Node) deposit(signer []byte, call submitter.Call) ([]*submitter.EventRecord, *submitter.DispatchError) {
	p, err := parseDeposit(call.Params)
	if err != nil {
		return nil, errBadParams
	}
	t, err := n.ledger.tree(p.treeID)
	if err != nil {
		return nil, errUnknownTree
	}
	if n.isFrozen(signer) {
		return nil, errFrozen
	}
	if n.balance(signer).Lt(t.depositSize) {
		return nil, errInsufficientBalance
	}
	idx, err := t.insert(p.commitment)
	if errors.Is(err, ErrTreeFull) {
		return nil, errTreeFull
	} else if err != nil {
		n.log.Error().Err(err).Uint32("tree", p.treeID).Msg("insert leaf")
		return nil, errBadParams
	}
	n.debit(signer, t.depositSize)

	n.log.Info().Uint32("tree", p.treeID).Uint64("index", idx).Str("leaf", p.commitment.Hex()).Msg("deposit")
	return []*submitter.EventRecord{{Section: SectionMixerCall, Method: "Deposit"}}, nil
}

func (n *Node) withdraw(call submitter.Call) ([]*submitter.EventRecord, *submitter.DispatchError) {
	p, err := parseWithdraw(call.Params)
	if err != nil {
		return nil, errBadParams
	}
	t, err := n.ledger.tree(p.treeID)
	if err != nil {
		return nil, errUnknownTree
	}
	if p.fee.Gt(t.depositSize) {
		return nil, errInvalidFee
	}
	if !t.knownRoot(p.root) {
		return nil, errUnknownRoot
	}
	if t.spent(p.nullifierHash) {
		return nil, errAlreadyRevealedNullifier
	}
	if n.vk == nil {
		return nil, errInvalidWithdrawProof
	}
	err = prover.Verify(n.vk, p.proof, &prover.PublicInputs{
		Root:          p.root,
		NullifierHash: p.nullifierHash,
		Recipient:     p.recipient,
		Relayer:       p.relayer,
		Fee:           p.fee,
		Refund:        p.refund,
	})
	if err != nil {
		n.log.Debug().Err(err).Uint32("tree", p.treeID).Msg("withdraw proof rejected")
		return nil, errInvalidWithdrawProof
	}

	t.spend(p.nullifierHash)
	n.credit(p.recipient, new(uint256.Int).Sub(t.depositSize, p.fee))
	n.credit(p.relayer, p.fee)

	n.log.Info().Uint32("tree", p.treeID).Str("nullifierHash", fmt.Sprintf("%x", p.nullifierHash)).Msg("withdraw")
	return []*submitter.EventRecord{{Section: SectionMixerCall, Method: "Withdraw"}}, nil
}

func (n *Node) transfer(signer []byte, call submitter.Call) ([]*submitter.EventRecord, *submitter.DispatchError) {
	p, err := parseTransfer(call.Params)
	if err != nil {
		return nil, errBadParams
	}
	if n.isFrozen(signer) {
		return nil, errFrozen
	}
	if n.balance(signer).Lt(p.amount) {
		return nil, errInsufficientBalance
	}
	n.debit(signer, p.amount)
	n.credit(p.dest, p.amount)
	return []*submitter.EventRecord{{Section: SectionBalancesCall, Method: "Transfer"}}, nil
}

func (n *Node) balance(account []byte) *uint256.Int {
	if b, ok := n.balances[string(account)]; ok {
		return b
	}
	return new(uint256.Int)
}

func (n *Node) credit(account []byte, amt *uint256.Int) {
	n.balances[string(account)] = new(uint256.Int).Add(n.balance(account), amt)
}

func (n *Node) debit(account []byte, amt *uint256.Int) {
	n.balances[string(account)] = new(uint256.Int).Sub(n.balance(account), amt)
}

func (n *Node) isFrozen(account []byte) bool {
	_, ok := n.frozen[string(account)]
	return ok
}
