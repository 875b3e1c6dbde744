package node

import (
	"bytes"
	"errors"

	"github.com/holiman/uint256"
	"github.com/kysee/zk-mixer/prover"
	"github.com/kysee/zk-mixer/types"
)

// RootHistorySize is how many recent roots a withdrawal may refer to.
const RootHistorySize = 30

var (
	ErrUnknownTree = errors.New("unknown tree")
	ErrTreeFull    = errors.New("tree is full")
)

// mixerTree is one fixed-depth merkle tree of deposit commitments.
type mixerTree struct {
	id          uint32
	depth       int
	depositSize *uint256.Int

	leaves     []types.Leaf
	roots      [][]byte
	nullifiers map[string]struct{}
}

func newMixerTree(id uint32, depth int, depositSize *uint256.Int) (*mixerTree, error) {
	root, err := prover.MerkleRoot(nil, depth)
	if err != nil {
		return nil, err
	}
	return &mixerTree{
		id:          id,
		depth:       depth,
		depositSize: depositSize.Clone(),
		roots:       [][]byte{root},
		nullifiers:  make(map[string]struct{}),
	}, nil
}

func (t *mixerTree) insert(leaf types.Leaf) (uint64, error) {
	if uint64(len(t.leaves)) >= uint64(1)<<t.depth {
		return 0, ErrTreeFull
	}
	leaves := append(t.leaves, leaf.Copy())
	root, err := prover.MerkleRoot(leaves, t.depth)
	if err != nil {
		return 0, err
	}
	t.leaves = leaves
	t.roots = append(t.roots, root)
	if len(t.roots) > RootHistorySize {
		t.roots = t.roots[len(t.roots)-RootHistorySize:]
	}
	return uint64(len(t.leaves) - 1), nil
}

func (t *mixerTree) root() []byte {
	return bytes.Clone(t.roots[len(t.roots)-1])
}

func (t *mixerTree) knownRoot(root []byte) bool {
	for _, r := range t.roots {
		if bytes.Equal(r, root) {
			return true
		}
	}
	return false
}

func (t *mixerTree) spent(nullifierHash []byte) bool {
	_, ok := t.nullifiers[string(nullifierHash)]
	return ok
}

func (t *mixerTree) spend(nullifierHash []byte) {
	t.nullifiers[string(nullifierHash)] = struct{}{}
}

// leavesIn returns copies of the leaves in [from, to).
func (t *mixerTree) leavesIn(from, to uint64) []types.Leaf {
	n := uint64(len(t.leaves))
	if from >= n || from >= to {
		return nil
	}
	if to > n {
		to = n
	}
	ret := make([]types.Leaf, 0, to-from)
	for _, l := range t.leaves[from:to] {
		ret = append(ret, l.Copy())
	}
	return ret
}

// Ledger holds the mixer trees of the chain.
type Ledger struct {
	depth int
	trees map[uint32]*mixerTree
}

func NewLedger(depth int) *Ledger {
	return &Ledger{
		depth: depth,
		trees: make(map[uint32]*mixerTree),
	}
}

func (l *Ledger) CreateTree(id uint32, depositSize *uint256.Int) error {
	t, err := newMixerTree(id, l.depth, depositSize)
	if err != nil {
		return err
	}
	l.trees[id] = t
	return nil
}

func (l *Ledger) tree(id uint32) (*mixerTree, error) {
	t, ok := l.trees[id]
	if !ok {
		return nil, ErrUnknownTree
	}
	return t, nil
}
