package prover

import (
	"bytes"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/scs"
	"github.com/consensys/gnark/std/accumulator/merkle"
	std_mimc "github.com/consensys/gnark/std/hash/mimc"
	"github.com/consensys/gnark/test/unsafekzg"
)

// DefaultTreeDepth is the depth of the mixer merkle trees.
const DefaultTreeDepth = 16

// WithdrawCircuit proves knowledge of the secret and nullifier behind a leaf
// of the tree with root Root, and binds the withdrawal parameters to the proof.
type WithdrawCircuit struct {
	Secret    frontend.Variable
	Nullifier frontend.Variable
	LeafIndex frontend.Variable
	M         merkle.MerkleProof

	Root          frontend.Variable `gnark:",public"`
	NullifierHash frontend.Variable `gnark:",public"`
	Recipient     frontend.Variable `gnark:",public"`
	Relayer       frontend.Variable `gnark:",public"`
	Fee           frontend.Variable `gnark:",public"`
	Refund        frontend.Variable `gnark:",public"`
}

func (cc *WithdrawCircuit) Define(api frontend.API) error {
	hasher, err := std_mimc.NewMiMC(api)
	if err != nil {
		return err
	}

	// the leaf is the commitment of (secret, nullifier)
	hasher.Write(cc.Secret, cc.Nullifier)
	api.AssertIsEqual(cc.M.Path[0], hasher.Sum())

	hasher.Reset()
	hasher.Write(cc.Nullifier)
	api.AssertIsEqual(cc.NullifierHash, hasher.Sum())

	hasher.Reset()
	api.AssertIsEqual(cc.M.RootHash, cc.Root)
	cc.M.VerifyProof(api, &hasher, cc.LeafIndex)

	// recipient, relayer, fee and refund are bound to the proof, not checked
	api.Mul(cc.Recipient, cc.Recipient)
	api.Mul(cc.Relayer, cc.Relayer)
	api.Mul(cc.Fee, cc.Fee)
	api.Mul(cc.Refund, cc.Refund)
	return nil
}

func CompileCircuit(depth int) (constraint.ConstraintSystem, error) {
	var cc WithdrawCircuit
	cc.M.Path = make([]frontend.Variable, depth+1)
	return frontend.Compile(ecc.BN254.ScalarField(), scs.NewBuilder, &cc)
}

// Keys holds the compiled circuit of a tree depth and its PLONK keys.
type Keys struct {
	Depth        int
	CCS          constraint.ConstraintSystem
	ProvingKey   plonk.ProvingKey
	VerifyingKey plonk.VerifyingKey
}

// Setup compiles the circuit and runs the PLONK setup.
//
// todo: Use safe SRS generation
func Setup(depth int) (*Keys, error) {
	ccs, err := CompileCircuit(depth)
	if err != nil {
		return nil, err
	}
	srs, srsLagrange, err := unsafekzg.NewSRS(ccs)
	if err != nil {
		return nil, err
	}
	pk, vk, err := plonk.Setup(ccs, srs, srsLagrange)
	if err != nil {
		return nil, err
	}
	return &Keys{
		Depth:        depth,
		CCS:          ccs,
		ProvingKey:   pk,
		VerifyingKey: vk,
	}, nil
}

func (k *Keys) ProvingKeyBytes() ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if _, err := k.ProvingKey.WriteTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (k *Keys) VerifyingKeyBytes() ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if _, err := k.VerifyingKey.WriteTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func ReadProvingKey(bz []byte) (plonk.ProvingKey, error) {
	pk := plonk.NewProvingKey(ecc.BN254)
	if _, err := pk.ReadFrom(bytes.NewReader(bz)); err != nil {
		return nil, err
	}
	return pk, nil
}

func ReadVerifyingKey(bz []byte) (plonk.VerifyingKey, error) {
	vk := plonk.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(bytes.NewReader(bz)); err != nil {
		return nil, err
	}
	return vk, nil
}
