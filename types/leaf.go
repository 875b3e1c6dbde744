package types

import "github.com/ethereum/go-ethereum/common/hexutil"

// LeafSize is the length of a leaf commitment on the mixer trees.
const LeafSize = 32

// Leaf is an opaque commitment appended to an on-chain merkle tree. Its
// position in the tree is its index; leaves are never reordered.
type Leaf []byte

func (l Leaf) Hex() string {
	return hexutil.Encode(l)
}

func (l Leaf) Copy() Leaf {
	ret := make(Leaf, len(l))
	copy(ret, l)
	return ret
}
