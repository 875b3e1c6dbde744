package node

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/kysee/zk-mixer/prover"
	"github.com/kysee/zk-mixer/types"
	"github.com/kysee/zk-mixer/utils"
	"github.com/stretchr/testify/require"
)

func randLeaf(t *testing.T) types.Leaf {
	l, err := utils.RandField()
	require.NoError(t, err)
	return l
}

func TestMixerTree(t *testing.T) {
	l := NewLedger(2)
	require.NoError(t, l.CreateTree(7, uint256.NewInt(10)))
	_, err := l.tree(8)
	require.ErrorIs(t, err, ErrUnknownTree)

	tr, err := l.tree(7)
	require.NoError(t, err)
	empty := tr.root()

	var leaves []types.Leaf
	for i := 0; i < 4; i++ {
		leaf := randLeaf(t)
		idx, err := tr.insert(leaf)
		require.NoError(t, err)
		require.Equal(t, uint64(i), idx)
		leaves = append(leaves, leaf)

		root, err := prover.MerkleRoot(leaves, 2)
		require.NoError(t, err)
		require.Equal(t, root, tr.root())
	}
	_, err = tr.insert(randLeaf(t))
	require.ErrorIs(t, err, ErrTreeFull)

	require.True(t, tr.knownRoot(empty))
	require.False(t, tr.knownRoot([]byte{0x1}))

	require.Equal(t, leaves[1:3], tr.leavesIn(1, 3))
	require.Equal(t, leaves[2:], tr.leavesIn(2, 100))
	require.Empty(t, tr.leavesIn(4, 10))
	require.Empty(t, tr.leavesIn(3, 3))
}

func TestMixerTreeRootHistory(t *testing.T) {
	l := NewLedger(6)
	require.NoError(t, l.CreateTree(0, uint256.NewInt(1)))
	tr, _ := l.tree(0)

	first := tr.root()
	for i := 0; i < RootHistorySize; i++ {
		_, err := tr.insert(randLeaf(t))
		require.NoError(t, err)
	}
	require.Len(t, tr.roots, RootHistorySize)
	require.False(t, tr.knownRoot(first))
	require.True(t, tr.knownRoot(tr.root()))
}

func TestNullifiers(t *testing.T) {
	l := NewLedger(2)
	require.NoError(t, l.CreateTree(0, uint256.NewInt(1)))
	tr, _ := l.tree(0)

	nh := []byte{0xaa}
	require.False(t, tr.spent(nh))
	tr.spend(nh)
	require.True(t, tr.spent(nh))
}
