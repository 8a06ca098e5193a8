// Package merkle commits to a fleet layout with a fixed-depth MiMC Merkle
// tree over BN254, matching the hash used inside the shot circuit.
package merkle

import (
	"errors"
	"fmt"
	"math/big"

	bnmimc "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

const (
	Depth     = 7
	LeafCount = 1 << Depth
)

var (
	ErrTooManyLeaves = errors.New("merkle: too many leaves")
	ErrIndex         = errors.New("merkle: leaf index out of range")
)

// feBytes encodes a field element as 32 big-endian bytes.
func feBytes(x *big.Int) []byte {
	out := make([]byte, 32)
	return x.FillBytes(out)
}

func HashLeaf(bit uint8) *big.Int {
	h := bnmimc.NewMiMC()
	h.Write(feBytes(new(big.Int).SetUint64(uint64(bit))))
	return new(big.Int).SetBytes(h.Sum(nil))
}

func HashNode(left, right *big.Int) *big.Int {
	h := bnmimc.NewMiMC()
	h.Write(feBytes(left))
	h.Write(feBytes(right))
	return new(big.Int).SetBytes(h.Sum(nil))
}

// Tree is stored level by level: Levels[0] are leaves, Levels[Depth] the root.
type Tree struct {
	Levels [][]*big.Int `json:"levels"`
}

// Build hashes one leaf per occupancy bit, padding with empty cells up to LeafCount.
func Build(bits []uint8) (*Tree, error) {
	if len(bits) > LeafCount {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyLeaves, len(bits), LeafCount)
	}
	empty := HashLeaf(0)
	leaves := make([]*big.Int, LeafCount)
	for i := range leaves {
		if i < len(bits) && bits[i] != 0 {
			leaves[i] = HashLeaf(1)
		} else {
			leaves[i] = empty
		}
	}
	levels := [][]*big.Int{leaves}
	for prev := leaves; len(prev) > 1; {
		up := make([]*big.Int, len(prev)/2)
		for i := range up {
			up[i] = HashNode(prev[2*i], prev[2*i+1])
		}
		levels = append(levels, up)
		prev = up
	}
	return &Tree{Levels: levels}, nil
}

func (t *Tree) Root() *big.Int { return new(big.Int).Set(t.Levels[Depth][0]) }

// Path returns the sibling hashes from leaf to root and the side of each
// step: dir[i] is 1 when the running node is a right child.
func (t *Tree) Path(idx int) ([]*big.Int, []uint8, error) {
	if idx < 0 || idx >= LeafCount {
		return nil, nil, fmt.Errorf("%w: %d", ErrIndex, idx)
	}
	path := make([]*big.Int, Depth)
	dir := make([]uint8, Depth)
	for level, cur := 0, idx; level < Depth; level, cur = level+1, cur/2 {
		path[level] = new(big.Int).Set(t.Levels[level][cur^1])
		dir[level] = uint8(cur & 1)
	}
	return path, dir, nil
}
