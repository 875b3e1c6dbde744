package prover

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
	"github.com/kysee/zk-mixer/types"
	"github.com/kysee/zk-mixer/utils"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const testDepth = 3

var testKeys *Keys

func init() {
	var err error
	if testKeys, err = Setup(testDepth); err != nil {
		panic(err)
	}
}

// depositedRequest returns a request whose note was deposited at idx among
// random leaves.
func depositedRequest(t *testing.T, nLeaves int, idx uint64) (*types.ProofRequest, *types.Note) {
	note, err := types.GenerateMixerNote("1080", 0, "WEBB", "1")
	require.NoError(t, err)
	commitment, err := note.Commitment()
	require.NoError(t, err)

	leaves := make([]types.Leaf, nLeaves)
	for i := range leaves {
		if uint64(i) == idx {
			leaves[i] = commitment
			continue
		}
		leaves[i], err = utils.RandField()
		require.NoError(t, err)
	}

	bzPk, err := testKeys.ProvingKeyBytes()
	require.NoError(t, err)
	return &types.ProofRequest{
		Note:       note.String(),
		Relayer:    []byte{0x01, 0x02},
		Recipient:  []byte{0x03, 0x04},
		Leaves:     leaves,
		LeafIndex:  idx,
		Fee:        uint256.NewInt(5),
		Refund:     uint256.NewInt(1),
		ProvingKey: bzPk,
	}, note
}

func publicInputsOf(req *types.ProofRequest, res *types.ProofResult) *PublicInputs {
	return &PublicInputs{
		Root:          res.Root,
		NullifierHash: res.NullifierHash,
		Recipient:     req.Recipient,
		Relayer:       req.Relayer,
		Fee:           req.Fee,
		Refund:        req.Refund,
	}
}

func TestNewProofInput(t *testing.T) {
	req, note := depositedRequest(t, 2, 1)
	req.Fee = uint256.NewInt(1_000_000_000_000)
	req.Refund = nil
	req.ProvingKey = []byte{0xde, 0xad}

	in, err := NewProofInput(req)
	require.NoError(t, err)
	require.Equal(t, note, in.Note)
	require.Equal(t, "1", in.LeafIndex)
	require.Equal(t, "1000000000000", in.Fee)
	require.Equal(t, "0", in.Refund)
	require.Equal(t, "0xdead", in.ProvingKey)
	require.Equal(t, req.Leaves, in.Leaves)
}

func TestPlonkBackendProve(t *testing.T) {
	req, note := depositedRequest(t, 5, 3)
	in, err := NewProofInput(req)
	require.NoError(t, err)

	b := NewPlonkBackend(testKeys.CCS, testDepth, zerolog.Nop())
	res, err := b.Prove(in)
	require.NoError(t, err)

	root, err := MerkleRoot(req.Leaves, testDepth)
	require.NoError(t, err)
	require.Equal(t, root, res.Root)
	nh, err := note.NullifierHash()
	require.NoError(t, err)
	require.Equal(t, nh, res.NullifierHash)

	require.NoError(t, Verify(testKeys.VerifyingKey, res.Proof, publicInputsOf(req, res)))

	// the proof is bound to the withdrawal parameters
	tampered := publicInputsOf(req, res)
	tampered.Fee = uint256.NewInt(6)
	require.Error(t, Verify(testKeys.VerifyingKey, res.Proof, tampered))

	tampered = publicInputsOf(req, res)
	tampered.Recipient = []byte{0x05}
	require.Error(t, Verify(testKeys.VerifyingKey, res.Proof, tampered))
}

func TestPlonkBackendCommitmentMismatch(t *testing.T) {
	req, _ := depositedRequest(t, 4, 2)
	req.LeafIndex = 1
	in, err := NewProofInput(req)
	require.NoError(t, err)

	_, err = NewPlonkBackend(testKeys.CCS, testDepth, zerolog.Nop()).Prove(in)
	require.ErrorIs(t, err, ErrCommitmentMismatch)
}

func TestPlonkBackendTreeFull(t *testing.T) {
	req, _ := depositedRequest(t, 1<<testDepth+1, 0)
	in, err := NewProofInput(req)
	require.NoError(t, err)

	_, err = NewPlonkBackend(testKeys.CCS, testDepth, zerolog.Nop()).Prove(in)
	require.ErrorIs(t, err, ErrTreeFull)
}

func TestCoordinatorWithPlonkBackend(t *testing.T) {
	c := NewCoordinator(NewPlonkBackend(testKeys.CCS, testDepth, zerolog.Nop()))
	defer c.Destroy()

	req, _ := depositedRequest(t, 8, 7)
	res, err := c.Prove(context.Background(), req)
	require.NoError(t, err)
	require.NoError(t, Verify(testKeys.VerifyingKey, res.Proof, publicInputsOf(req, res)))
}
