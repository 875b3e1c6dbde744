package prover

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/accumulator/merkletree"
	"github.com/kysee/zk-mixer/types"
	"github.com/kysee/zk-mixer/utils"
)

var ErrTreeFull = errors.New("tree is full")

// MaxTreeDepth bounds the padded tree built in memory to 2^24 leaves.
const MaxTreeDepth = 24

var ErrTreeDepth = errors.New("tree depth out of range")

// MerkleProof returns the root of the depth-deep tree holding leaves, padded
// with zero leaves, and the membership path of the leaf at idx. path[0] is the
// leaf itself.
func MerkleProof(leaves []types.Leaf, idx uint64, depth int) (root []byte, path [][]byte, err error) {
	if depth <= 0 || depth > MaxTreeDepth {
		return nil, nil, fmt.Errorf("%w: %d, max %d", ErrTreeDepth, depth, MaxTreeDepth)
	}
	capacity := uint64(1) << depth
	if uint64(len(leaves)) > capacity {
		return nil, nil, fmt.Errorf("%w: %d leaves, capacity %d", ErrTreeFull, len(leaves), capacity)
	}
	if idx >= capacity {
		return nil, nil, fmt.Errorf("%w: index %d, capacity %d", types.ErrLeafIndexOutOfRange, idx, capacity)
	}

	var buf bytes.Buffer
	buf.Grow(int(capacity) * types.LeafSize)
	for i, l := range leaves {
		if len(l) != types.LeafSize {
			return nil, nil, fmt.Errorf("leaf %d: expected %d bytes, got %d", i, types.LeafSize, len(l))
		}
		buf.Write(utils.ToField(l))
	}
	buf.Write(make([]byte, (capacity-uint64(len(leaves)))*types.LeafSize))

	root, path, _, err = merkletree.BuildReaderProof(
		&buf,
		utils.MiMCHasher(),
		types.LeafSize,
		idx,
	)
	if err != nil {
		return nil, nil, err
	}
	return root, path, nil
}

func MerkleRoot(leaves []types.Leaf, depth int) ([]byte, error) {
	root, _, err := MerkleProof(leaves, 0, depth)
	return root, err
}
