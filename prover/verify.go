package prover

import (
	"bytes"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/frontend"
	"github.com/holiman/uint256"
)

// PublicInputs are the values a withdrawal proof is checked against.
type PublicInputs struct {
	Root          []byte
	NullifierHash []byte
	Recipient     []byte
	Relayer       []byte
	Fee           *uint256.Int
	Refund        *uint256.Int
}

func Verify(vk plonk.VerifyingKey, bzProof []byte, in *PublicInputs) error {
	proof := plonk.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewBuffer(bzProof)); err != nil {
		return err
	}

	fee, refund := in.Fee, in.Refund
	if fee == nil {
		fee = new(uint256.Int)
	}
	if refund == nil {
		refund = new(uint256.Int)
	}
	tmpAssignment := WithdrawCircuit{
		Root:          in.Root,
		NullifierHash: in.NullifierHash,
		Recipient:     in.Recipient,
		Relayer:       in.Relayer,
		Fee:           fee.ToBig(),
		Refund:        refund.ToBig(),
	}
	pubWtn, err := frontend.NewWitness(&tmpAssignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return err
	}
	return plonk.Verify(proof, vk, pubWtn)
}
