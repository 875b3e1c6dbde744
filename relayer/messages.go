package relayer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/kysee/zk-mixer/types"
)

var (
	ErrMalformedMessage = errors.New("malformed relayer message")
	ErrInvalidCommand   = errors.New("invalid relay command")
)

type MessageKind uint8

const (
	KindNetwork MessageKind = iota + 1
	KindError
	KindWithdraw
)

type WithdrawKind uint8

const (
	WithdrawSent WithdrawKind = iota + 1
	WithdrawSubmitted
	WithdrawFinalized
	WithdrawErrored
	WithdrawDropped
)

func (k WithdrawKind) String() string {
	switch k {
	case WithdrawSent:
		return "sent"
	case WithdrawSubmitted:
		return "submitted"
	case WithdrawFinalized:
		return "finalized"
	case WithdrawErrored:
		return "errored"
	case WithdrawDropped:
		return "droppedFromMemPool"
	}
	return fmt.Sprintf("WithdrawKind(%d)", uint8(k))
}

// Message is one inbound relayer message. Exactly one of the variants is set,
// as selected by Kind:
//
//	{"network": "connected"}
//	{"error": "..."}
//	{"withdraw": "sent" | "droppedFromMemPool" | {"submitted": {...}} | {"finalized": {...}} | {"errored": {...}}}
type Message struct {
	Kind     MessageKind
	Network  string
	Error    string
	Withdraw *WithdrawStatus
}

type WithdrawStatus struct {
	Kind   WithdrawKind
	TxHash string
	Code   int
	Reason string
}

type txHashJSON struct {
	TxHash string `json:"txHash"`
}

type erroredJSON struct {
	Code   int    `json:"code"`
	Reason string `json:"reason"`
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if len(fields) != 1 {
		return fmt.Errorf("%w: expected one key, got %d", ErrMalformedMessage, len(fields))
	}

	for key, raw := range fields {
		switch key {
		case "network":
			m.Kind = KindNetwork
			return unmarshalField(raw, &m.Network)
		case "error":
			m.Kind = KindError
			return unmarshalField(raw, &m.Error)
		case "withdraw":
			m.Kind = KindWithdraw
			m.Withdraw = new(WithdrawStatus)
			return m.Withdraw.unmarshal(raw)
		default:
			return fmt.Errorf("%w: unknown key %q", ErrMalformedMessage, key)
		}
	}
	return nil
}

func (w *WithdrawStatus) unmarshal(raw json.RawMessage) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := unmarshalField(raw, &s); err != nil {
			return err
		}
		switch s {
		case "sent":
			w.Kind = WithdrawSent
		case "droppedFromMemPool":
			w.Kind = WithdrawDropped
		default:
			return fmt.Errorf("%w: withdraw %q", ErrMalformedMessage, s)
		}
		return nil
	}

	var fields map[string]json.RawMessage
	if err := unmarshalField(raw, &fields); err != nil {
		return err
	}
	if len(fields) != 1 {
		return fmt.Errorf("%w: withdraw expects one key, got %d", ErrMalformedMessage, len(fields))
	}
	for key, body := range fields {
		switch key {
		case "submitted", "finalized":
			var tx txHashJSON
			if err := unmarshalField(body, &tx); err != nil {
				return err
			}
			w.Kind, w.TxHash = WithdrawSubmitted, tx.TxHash
			if key == "finalized" {
				w.Kind = WithdrawFinalized
			}
		case "errored":
			var e erroredJSON
			if err := unmarshalField(body, &e); err != nil {
				return err
			}
			w.Kind, w.Code, w.Reason = WithdrawErrored, e.Code, e.Reason
		default:
			return fmt.Errorf("%w: withdraw key %q", ErrMalformedMessage, key)
		}
	}
	return nil
}

func (m Message) MarshalJSON() ([]byte, error) {
	switch m.Kind {
	case KindNetwork:
		return json.Marshal(map[string]string{"network": m.Network})
	case KindError:
		return json.Marshal(map[string]string{"error": m.Error})
	case KindWithdraw:
		if m.Withdraw == nil {
			break
		}
		var body interface{}
		switch w := m.Withdraw; w.Kind {
		case WithdrawSent, WithdrawDropped:
			body = w.Kind.String()
		case WithdrawSubmitted, WithdrawFinalized:
			body = map[string]txHashJSON{w.Kind.String(): {TxHash: w.TxHash}}
		case WithdrawErrored:
			body = map[string]erroredJSON{"errored": {Code: w.Code, Reason: w.Reason}}
		default:
			return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, w.Kind)
		}
		return json.Marshal(map[string]interface{}{"withdraw": body})
	}
	return nil, fmt.Errorf("%w: kind %d", ErrMalformedMessage, m.Kind)
}

func unmarshalField(raw json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return nil
}

// Command is an outbound relay request. Exactly one of Substrate and EVM is
// set.
type Command struct {
	Substrate *SubstrateCommand `json:"substrate,omitempty"`
	EVM       *EVMCommand       `json:"evm,omitempty"`
}

type SubstrateCommand struct {
	MixerRelayTx *MixerRelayTx `json:"mixerRelayTx"`
}

// MixerRelayTx asks the relayer to submit a mixer withdrawal on a substrate
// chain. Accounts are SS58 encoded.
type MixerRelayTx struct {
	Chain         string        `json:"chain"`
	ID            uint32        `json:"id"`
	Proof         hexutil.Bytes `json:"proof"`
	Root          hexutil.Bytes `json:"root"`
	NullifierHash hexutil.Bytes `json:"nullifierHash"`
	Recipient     string        `json:"recipient"`
	Relayer       string        `json:"relayer"`
	Fee           string        `json:"fee"`
	Refund        string        `json:"refund"`
}

type EVMCommand struct {
	TornadoRelayTx *TornadoRelayTx `json:"tornadoRelayTx"`
}

// TornadoRelayTx asks the relayer to submit a withdrawal to a mixer contract
// on an EVM chain.
type TornadoRelayTx struct {
	Chain         string         `json:"chain"`
	Contract      common.Address `json:"contract"`
	Proof         hexutil.Bytes  `json:"proof"`
	Root          common.Hash    `json:"root"`
	NullifierHash common.Hash    `json:"nullifierHash"`
	Recipient     common.Address `json:"recipient"`
	Relayer       common.Address `json:"relayer"`
	Fee           string         `json:"fee"`
	Refund        string         `json:"refund"`
}

// NewMixerRelayCommand builds a substrate relay command for res. recipient and
// relayer are raw account ids.
func NewMixerRelayCommand(chain string, treeID uint32, res *types.ProofResult, recipient, relayer []byte, fee, refund *uint256.Int) (*Command, error) {
	recipientAddr, err := types.EncodeSS58(recipient, types.SubstratePrefix)
	if err != nil {
		return nil, fmt.Errorf("recipient: %w", err)
	}
	relayerAddr, err := types.EncodeSS58(relayer, types.SubstratePrefix)
	if err != nil {
		return nil, fmt.Errorf("relayer: %w", err)
	}
	return &Command{
		Substrate: &SubstrateCommand{
			MixerRelayTx: &MixerRelayTx{
				Chain:         chain,
				ID:            treeID,
				Proof:         res.Proof,
				Root:          res.Root,
				NullifierHash: res.NullifierHash,
				Recipient:     recipientAddr,
				Relayer:       relayerAddr,
				Fee:           decimal(fee),
				Refund:        decimal(refund),
			},
		},
	}, nil
}

func NewTornadoRelayCommand(chain string, contract common.Address, res *types.ProofResult, recipient, relayer common.Address, fee, refund *uint256.Int) *Command {
	return &Command{
		EVM: &EVMCommand{
			TornadoRelayTx: &TornadoRelayTx{
				Chain:         chain,
				Contract:      contract,
				Proof:         res.Proof,
				Root:          common.BytesToHash(res.Root),
				NullifierHash: common.BytesToHash(res.NullifierHash),
				Recipient:     recipient,
				Relayer:       relayer,
				Fee:           decimal(fee),
				Refund:        decimal(refund),
			},
		},
	}
}

func (c *Command) Validate() error {
	switch {
	case c.Substrate != nil && c.EVM != nil:
		return fmt.Errorf("%w: both substrate and evm are set", ErrInvalidCommand)
	case c.Substrate != nil:
		if c.Substrate.MixerRelayTx == nil {
			return fmt.Errorf("%w: empty substrate command", ErrInvalidCommand)
		}
	case c.EVM != nil:
		if c.EVM.TornadoRelayTx == nil {
			return fmt.Errorf("%w: empty evm command", ErrInvalidCommand)
		}
	default:
		return fmt.Errorf("%w: no command", ErrInvalidCommand)
	}
	return nil
}

func decimal(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
