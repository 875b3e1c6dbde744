package submitter

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/crypto/blake2b"
)

// SystemSection is the only event section inspected to settle a submission.
const SystemSection = "system"

const (
	EventExtrinsicSuccess = "ExtrinsicSuccess"
	EventExtrinsicFailed  = "ExtrinsicFailed"
)

// Call is a dispatchable chain call, e.g. mixer.withdraw.
type Call struct {
	Section string          `json:"section"`
	Method  string          `json:"method"`
	Params  []hexutil.Bytes `json:"params"`
}

func (c Call) String() string {
	return c.Section + "." + c.Method
}

// Extrinsic is a signed Call.
type Extrinsic struct {
	Signer    hexutil.Bytes `json:"signer"`
	Nonce     uint64        `json:"nonce"`
	Call      Call          `json:"call"`
	Signature hexutil.Bytes `json:"signature"`
}

type signingPayload struct {
	Signer []byte
	Nonce  uint64
	Call   Call
}

// SigningPayload returns the bytes covered by the signature.
func (xt *Extrinsic) SigningPayload() ([]byte, error) {
	return rlp.EncodeToBytes(&signingPayload{
		Signer: xt.Signer,
		Nonce:  xt.Nonce,
		Call:   xt.Call,
	})
}

func (xt *Extrinsic) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(xt)
}

// Hash is the blake2b-256 digest of the encoded extrinsic.
func (xt *Extrinsic) Hash() common.Hash {
	bz, err := xt.Encode()
	if err != nil {
		return common.Hash{}
	}
	return blake2b.Sum256(bz)
}

type StatusKind uint8

const (
	StatusReady StatusKind = iota
	StatusInBlock
	StatusFinalized
	StatusDropped
)

func (k StatusKind) String() string {
	switch k {
	case StatusReady:
		return "ready"
	case StatusInBlock:
		return "inBlock"
	case StatusFinalized:
		return "finalized"
	case StatusDropped:
		return "dropped"
	}
	return fmt.Sprintf("StatusKind(%d)", uint8(k))
}

// Status is one step of an extrinsic's lifecycle. Events are only set once
// the extrinsic is in a block.
type Status struct {
	Kind      StatusKind     `json:"kind"`
	BlockHash common.Hash    `json:"blockHash"`
	Events    []*EventRecord `json:"events,omitempty"`
}

func (s *Status) IsInBlock() bool {
	return s.Kind == StatusInBlock
}

func (s *Status) IsFinalized() bool {
	return s.Kind == StatusFinalized
}

// EventRecord is an event emitted while applying an extrinsic. Error is set
// on system.ExtrinsicFailed.
type EventRecord struct {
	Section string         `json:"section"`
	Method  string         `json:"method"`
	Error   *DispatchError `json:"error,omitempty"`
}

// DispatchError is the failure reason attached to system.ExtrinsicFailed.
// Type is the variant tag ("Module", "Token", "BadOrigin", ...); Module and
// Token refine the Module and Token variants.
type DispatchError struct {
	Type   string       `json:"type"`
	Module *ModuleError `json:"module,omitempty"`
	Token  string       `json:"token,omitempty"`
}

type ModuleError struct {
	Index uint8 `json:"index"`
	Error uint8 `json:"error"`
}

// MetadataRegistry resolves module errors into their names.
type MetadataRegistry interface {
	FindMetaError(ModuleError) (*MetaError, error)
}

// Chain is the on-chain endpoint extrinsics are submitted to.
//
// SubmitAndWatch sends every lifecycle Status of xt to ch until the returned
// subscription is unsubscribed or fails.
type Chain interface {
	Nonce(ctx context.Context, accountID []byte) (uint64, error)
	SubmitAndWatch(ctx context.Context, xt *Extrinsic, ch chan<- *Status) (event.Subscription, error)
	Metadata() MetadataRegistry
}
