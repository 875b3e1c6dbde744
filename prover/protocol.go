package prover

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/kysee/zk-mixer/types"
)

// Kind discriminates the frames exchanged with the proving worker.
type Kind uint8

const (
	KindProof Kind = iota + 1
	KindDestroy
)

func (k Kind) String() string {
	switch k {
	case KindProof:
		return "proof"
	case KindDestroy:
		return "destroy"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// request is the frame posted to the worker. ID correlates the response.
type request struct {
	Kind    Kind
	ID      uint64
	Payload []byte
}

// response is the frame posted back by the worker. Err is set instead of
// Payload when the proof could not be produced.
type response struct {
	Kind    Kind
	ID      uint64
	Payload []byte
	Err     string
}

func encodeProofRequest(id uint64, req *types.ProofRequest) ([]byte, error) {
	wire := *req
	if wire.Fee == nil {
		wire.Fee = new(uint256.Int)
	}
	if wire.Refund == nil {
		wire.Refund = new(uint256.Int)
	}
	payload, err := rlp.EncodeToBytes(&wire)
	if err != nil {
		return nil, err
	}
	return rlp.EncodeToBytes(&request{Kind: KindProof, ID: id, Payload: payload})
}

func encodeDestroy() ([]byte, error) {
	return rlp.EncodeToBytes(&request{Kind: KindDestroy})
}

func decodeRequest(frame []byte) (*request, error) {
	req := new(request)
	if err := rlp.DecodeBytes(frame, req); err != nil {
		return nil, err
	}
	return req, nil
}

func encodeProofResponse(id uint64, res *types.ProofResult, perr error) ([]byte, error) {
	resp := &response{Kind: KindProof, ID: id}
	if perr != nil {
		resp.Err = perr.Error()
	} else {
		payload, err := rlp.EncodeToBytes(res)
		if err != nil {
			return nil, err
		}
		resp.Payload = payload
	}
	return rlp.EncodeToBytes(resp)
}

func decodeResponse(frame []byte) (*response, error) {
	resp := new(response)
	if err := rlp.DecodeBytes(frame, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
