package types

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

var (
	ErrLeafIndexOutOfRange = errors.New("leaf index out of range")
	ErrEmptyProvingKey     = errors.New("empty proving key")
)

// ProofRequest carries everything a prover needs to build a withdrawal proof.
type ProofRequest struct {
	Note       string
	Relayer    []byte
	Recipient  []byte
	Leaves     []Leaf
	LeafIndex  uint64
	Fee        *uint256.Int
	Refund     *uint256.Int
	ProvingKey []byte
}

func (r *ProofRequest) Validate() error {
	if r.LeafIndex >= uint64(len(r.Leaves)) {
		return fmt.Errorf("%w: index %d, %d leaves", ErrLeafIndexOutOfRange, r.LeafIndex, len(r.Leaves))
	}
	if len(r.ProvingKey) == 0 {
		return ErrEmptyProvingKey
	}
	return nil
}

// ProofResult is produced exactly once per accepted ProofRequest.
type ProofResult struct {
	Proof         []byte
	Root          []byte
	NullifierHash []byte
}
