package merkle

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Commitment hides a layout behind Root = MiMC(Salt, tree root). The salt
// keeps equal layouts from producing equal roots.
type Commitment struct {
	Tree *Tree
	Salt *big.Int
	Root *big.Int
}

// Opening is everything needed to show that one leaf belongs to a root.
type Opening struct {
	Index int        `json:"index"`
	Bit   uint8      `json:"bit"`
	Path  []*big.Int `json:"path"`
	Dir   []uint8    `json:"dir"`
}

// NewSalt draws a uniformly random BN254 scalar.
func NewSalt() (*big.Int, error) {
	var e fr.Element
	if _, err := e.SetRandom(); err != nil {
		return nil, fmt.Errorf("merkle: salt: %w", err)
	}
	return e.BigInt(new(big.Int)), nil
}

func Commit(bits []uint8, salt *big.Int) (*Commitment, error) {
	t, err := Build(bits)
	if err != nil {
		return nil, err
	}
	s := new(big.Int).Mod(salt, fr.Modulus())
	return &Commitment{Tree: t, Salt: s, Root: HashNode(s, t.Root())}, nil
}

func (c *Commitment) Open(idx int, bit uint8) (Opening, error) {
	path, dir, err := c.Tree.Path(idx)
	if err != nil {
		return Opening{}, err
	}
	return Opening{Index: idx, Bit: bit, Path: path, Dir: dir}, nil
}

// VerifyOpening recomputes the salted root from a single leaf.
func VerifyOpening(root, salt *big.Int, op Opening) bool {
	if len(op.Path) != Depth || len(op.Dir) != Depth || op.Index < 0 || op.Index >= LeafCount {
		return false
	}
	cur := HashLeaf(op.Bit)
	for i := 0; i < Depth; i++ {
		if op.Dir[i] != uint8(op.Index>>i&1) {
			return false
		}
		if op.Dir[i] == 1 {
			cur = HashNode(op.Path[i], cur)
		} else {
			cur = HashNode(cur, op.Path[i])
		}
	}
	return HashNode(salt, cur).Cmp(root) == 0
}

// VerifyFleet reports whether the revealed layout and salt reproduce root.
func VerifyFleet(root, salt *big.Int, bits []uint8) bool {
	c, err := Commit(bits, salt)
	if err != nil {
		return false
	}
	return c.Root.Cmp(root) == 0
}

func Hex(x *big.Int) string { return fmt.Sprintf("0x%x", x) }

func ParseHex(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimPrefix(strings.TrimSpace(s), "0x"), 16)
	if !ok {
		return nil, fmt.Errorf("merkle: bad hex %q", s)
	}
	return v, nil
}
