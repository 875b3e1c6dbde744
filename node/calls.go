package node

import (
	"encoding/binary"
	"errors"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/kysee/zk-mixer/submitter"
	"github.com/kysee/zk-mixer/types"
)

const (
	SectionMixerCall    = "mixer"
	SectionBalancesCall = "balances"

	MethodDeposit  = "deposit"
	MethodWithdraw = "withdraw"
	MethodTransfer = "transfer"
)

var errParams = errors.New("bad call params")

// DepositCall inserts commitment into tree treeID and charges the tree's
// deposit size to the signer.
func DepositCall(treeID uint32, commitment types.Leaf) submitter.Call {
	return submitter.Call{
		Section: SectionMixerCall,
		Method:  MethodDeposit,
		Params:  []hexutil.Bytes{encodeU32(treeID), hexutil.Bytes(commitment)},
	}
}

// WithdrawCall pays the deposit of tree treeID to recipient, minus fee which
// goes to relayer.
func WithdrawCall(treeID uint32, res *types.ProofResult, recipient, relayer []byte, fee, refund *uint256.Int) submitter.Call {
	return submitter.Call{
		Section: SectionMixerCall,
		Method:  MethodWithdraw,
		Params: []hexutil.Bytes{
			encodeU32(treeID),
			res.Proof,
			res.Root,
			res.NullifierHash,
			recipient,
			relayer,
			encodeU256(fee),
			encodeU256(refund),
		},
	}
}

func TransferCall(dest []byte, amount *uint256.Int) submitter.Call {
	return submitter.Call{
		Section: SectionBalancesCall,
		Method:  MethodTransfer,
		Params:  []hexutil.Bytes{dest, encodeU256(amount)},
	}
}

type depositParams struct {
	treeID     uint32
	commitment types.Leaf
}

func parseDeposit(params []hexutil.Bytes) (*depositParams, error) {
	if len(params) != 2 || len(params[1]) != types.LeafSize {
		return nil, errParams
	}
	treeID, err := decodeU32(params[0])
	if err != nil {
		return nil, err
	}
	return &depositParams{treeID: treeID, commitment: types.Leaf(params[1]).Copy()}, nil
}

type withdrawParams struct {
	treeID        uint32
	proof         []byte
	root          []byte
	nullifierHash []byte
	recipient     []byte
	relayer       []byte
	fee           *uint256.Int
	refund        *uint256.Int
}

func parseWithdraw(params []hexutil.Bytes) (*withdrawParams, error) {
	if len(params) != 8 || len(params[6]) > 32 || len(params[7]) > 32 {
		return nil, errParams
	}
	treeID, err := decodeU32(params[0])
	if err != nil {
		return nil, err
	}
	return &withdrawParams{
		treeID:        treeID,
		proof:         params[1],
		root:          params[2],
		nullifierHash: params[3],
		recipient:     params[4],
		relayer:       params[5],
		fee:           new(uint256.Int).SetBytes(params[6]),
		refund:        new(uint256.Int).SetBytes(params[7]),
	}, nil
}

type transferParams struct {
	dest   []byte
	amount *uint256.Int
}

func parseTransfer(params []hexutil.Bytes) (*transferParams, error) {
	if len(params) != 2 || len(params[0]) == 0 || len(params[1]) > 32 {
		return nil, errParams
	}
	return &transferParams{dest: params[0], amount: new(uint256.Int).SetBytes(params[1])}, nil
}

func encodeU32(v uint32) hexutil.Bytes {
	return binary.BigEndian.AppendUint32(nil, v)
}

func decodeU32(bz []byte) (uint32, error) {
	if len(bz) != 4 {
		return 0, errParams
	}
	return binary.BigEndian.Uint32(bz), nil
}

func encodeU256(v *uint256.Int) hexutil.Bytes {
	if v == nil {
		v = new(uint256.Int)
	}
	bz := v.Bytes32()
	return bz[:]
}
