package prover

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/constraint/solver"
	"github.com/consensys/gnark/frontend"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/kysee/zk-mixer/types"
	"github.com/kysee/zk-mixer/utils"
	"github.com/rs/zerolog"
)

var ErrCommitmentMismatch = errors.New("note commitment does not match the leaf at index")

// ProofInput is the native input handed to a proving backend. Numbers travel
// as decimal strings and the proving key as a hex string.
type ProofInput struct {
	Note       *types.Note
	Leaves     []types.Leaf
	Relayer    []byte
	Recipient  []byte
	LeafIndex  string
	Fee        string
	Refund     string
	ProvingKey string
}

// NewProofInput builds the backend input of req, field by field.
func NewProofInput(req *types.ProofRequest) (*ProofInput, error) {
	note, err := types.ParseNote(req.Note)
	if err != nil {
		return nil, err
	}
	return &ProofInput{
		Note:       note,
		Leaves:     req.Leaves,
		Relayer:    req.Relayer,
		Recipient:  req.Recipient,
		LeafIndex:  strconv.FormatUint(req.LeafIndex, 10),
		Fee:        decimal(req.Fee),
		Refund:     decimal(req.Refund),
		ProvingKey: hexutil.Encode(req.ProvingKey),
	}, nil
}

func decimal(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

// Backend generates a withdrawal proof. Implementations may block for as long
// as the computation takes.
type Backend interface {
	Prove(in *ProofInput) (*types.ProofResult, error)
}

// PlonkBackend proves WithdrawCircuit with gnark's PLONK over BN254.
type PlonkBackend struct {
	depth int
	ccs   constraint.ConstraintSystem
	log   zerolog.Logger
}

func NewPlonkBackend(ccs constraint.ConstraintSystem, depth int, log zerolog.Logger) *PlonkBackend {
	return &PlonkBackend{
		depth: depth,
		ccs:   ccs,
		log:   log,
	}
}

func (b *PlonkBackend) Prove(in *ProofInput) (*types.ProofResult, error) {
	idx, err := strconv.ParseUint(in.LeafIndex, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("leaf index: %w", err)
	}
	if idx >= uint64(len(in.Leaves)) {
		return nil, fmt.Errorf("%w: index %d, %d leaves", types.ErrLeafIndexOutOfRange, idx, len(in.Leaves))
	}
	fee, err := uint256.FromDecimal(in.Fee)
	if err != nil {
		return nil, fmt.Errorf("fee: %w", err)
	}
	refund, err := uint256.FromDecimal(in.Refund)
	if err != nil {
		return nil, fmt.Errorf("refund: %w", err)
	}
	bzPk, err := hexutil.Decode(in.ProvingKey)
	if err != nil {
		return nil, fmt.Errorf("proving key: %w", err)
	}
	pk, err := ReadProvingKey(bzPk)
	if err != nil {
		return nil, fmt.Errorf("proving key: %w", err)
	}

	secret, nullifier, err := in.Note.MixerSecrets()
	if err != nil {
		return nil, err
	}
	commitment := utils.MiMCHash(secret, nullifier)
	if !bytes.Equal(commitment, utils.ToField(in.Leaves[idx])) {
		return nil, ErrCommitmentMismatch
	}
	nullifierHash := utils.MiMCHash(nullifier)

	root, path, err := MerkleProof(in.Leaves, idx, b.depth)
	if err != nil {
		return nil, err
	}

	var assignment WithdrawCircuit
	assignment.Secret = secret
	assignment.Nullifier = nullifier
	assignment.LeafIndex = idx
	assignment.M.RootHash = root
	assignment.M.Path = make([]frontend.Variable, len(path))
	for i := range path {
		assignment.M.Path[i] = path[i]
	}
	assignment.Root = root
	assignment.NullifierHash = nullifierHash
	assignment.Recipient = in.Recipient
	assignment.Relayer = in.Relayer
	assignment.Fee = fee.ToBig()
	assignment.Refund = refund.ToBig()

	wtn, err := frontend.NewWitness(&assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, err
	}

	proof, err := plonk.Prove(
		b.ccs,
		pk,
		wtn,
		backend.WithSolverOptions(
			solver.WithLogger(b.log),
		),
	)
	if err != nil {
		return nil, err
	}

	bufProof := bytes.NewBuffer(nil)
	if _, err := proof.WriteTo(bufProof); err != nil {
		return nil, err
	}
	return &types.ProofResult{
		Proof:         bufProof.Bytes(),
		Root:          root,
		NullifierHash: nullifierHash,
	}, nil
}
