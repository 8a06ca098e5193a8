// Package zk proves single shot outcomes against a committed fleet with
// groth16 over BN254.
package zk

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	gnarklog "github.com/consensys/gnark/logger"
	"github.com/rs/zerolog"

	"battleship-ai/internal/merkle"
)

const (
	vkFile = "shot.vk"
	pkFile = "shot.pk"
)

var ErrInvalidProof = errors.New("zk: invalid shot proof")

// ShotPublic is the public part of a shot proof.
type ShotPublic struct {
	Root  *big.Int `json:"root"`
	Index int      `json:"index"`
	Hit   uint8    `json:"hit"`
}

// Witness is the secret opening of one cell.
type Witness struct {
	Index int
	Bit   uint8
	Path  []*big.Int
	Salt  *big.Int
	Root  *big.Int
}

// SetLogger routes gnark's own logging through l.
func SetLogger(l zerolog.Logger) {
	if l.GetLevel() == zerolog.Disabled {
		gnarklog.Disable()
		return
	}
	gnarklog.Set(l.With().Str("component", "gnark").Logger())
}

func compile() (constraint.ConstraintSystem, error) {
	var circuit ShotCircuit
	return frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit)
}

// EnsureShotKeys creates the proving and verifying keys in dir unless both
// already exist and parse.
func EnsureShotKeys(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if _, _, err := readKeys(dir); err == nil {
		return nil
	}
	cs, err := compile()
	if err != nil {
		return err
	}
	pk, vk, err := groth16.Setup(cs)
	if err != nil {
		return err
	}
	if err := writeKey(filepath.Join(dir, vkFile), vk); err != nil {
		return err
	}
	return writeKey(filepath.Join(dir, pkFile), pk)
}

// Prover holds a compiled circuit and its keys.
type Prover struct {
	cs constraint.ConstraintSystem
	pk groth16.ProvingKey
	vk groth16.VerifyingKey
}

// NewProver loads keys from dir, creating them first when missing. An empty
// dir keeps freshly generated keys in memory only.
func NewProver(dir string) (*Prover, error) {
	cs, err := compile()
	if err != nil {
		return nil, err
	}
	if dir == "" {
		pk, vk, err := groth16.Setup(cs)
		if err != nil {
			return nil, err
		}
		return &Prover{cs: cs, pk: pk, vk: vk}, nil
	}
	if err := EnsureShotKeys(dir); err != nil {
		return nil, err
	}
	vk, pk, err := readKeys(dir)
	if err != nil {
		return nil, err
	}
	return &Prover{cs: cs, pk: pk, vk: vk}, nil
}

// Prove returns the serialized proof and its public inputs.
func (p *Prover) Prove(w Witness) ([]byte, ShotPublic, error) {
	if len(w.Path) != merkle.Depth {
		return nil, ShotPublic{}, fmt.Errorf("zk: path has %d levels, want %d", len(w.Path), merkle.Depth)
	}
	if w.Index < 0 || w.Index >= merkle.LeafCount {
		return nil, ShotPublic{}, fmt.Errorf("zk: index %d out of range", w.Index)
	}
	assign := ShotCircuit{Bit: w.Bit, Salt: w.Salt, Root: w.Root, Index: w.Index, Hit: w.Bit}
	for i := range assign.Path {
		assign.Path[i] = w.Path[i]
	}
	full, err := frontend.NewWitness(&assign, ecc.BN254.ScalarField())
	if err != nil {
		return nil, ShotPublic{}, err
	}
	proof, err := groth16.Prove(p.cs, p.pk, full)
	if err != nil {
		return nil, ShotPublic{}, err
	}
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, ShotPublic{}, err
	}
	return buf.Bytes(), ShotPublic{Root: new(big.Int).Set(w.Root), Index: w.Index, Hit: w.Bit}, nil
}

func (p *Prover) Verify(proof []byte, pub ShotPublic) error { return Verify(p.vk, proof, pub) }

// WriteVerifyingKey exports the key a third party needs to check proofs.
func (p *Prover) WriteVerifyingKey(w io.Writer) error {
	_, err := p.vk.WriteTo(w)
	return err
}

// Verify checks a proof against its public inputs.
func Verify(vk groth16.VerifyingKey, proof []byte, pub ShotPublic) error {
	if pub.Root == nil {
		return errors.New("zk: proof missing public root")
	}
	if pub.Hit > 1 {
		return fmt.Errorf("zk: hit must be 0 or 1, got %d", pub.Hit)
	}
	assign := ShotCircuit{Root: pub.Root, Index: pub.Index, Hit: pub.Hit}
	pubWit, err := frontend.NewWitness(&assign, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return err
	}
	pr := groth16.NewProof(ecc.BN254)
	if _, err := pr.ReadFrom(bytes.NewReader(proof)); err != nil {
		return fmt.Errorf("zk: decode proof: %w", err)
	}
	if err := groth16.Verify(pr, vk, pubWit); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	return nil
}

func ReadVerifyingKey(path string) (groth16.VerifyingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(f); err != nil {
		return nil, err
	}
	return vk, nil
}

func VerifyingKeyPath(dir string) string { return filepath.Join(dir, vkFile) }

func writeKey(path string, k io.WriterTo) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := k.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readPK(path string) (groth16.ProvingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pk := groth16.NewProvingKey(ecc.BN254)
	if _, err := pk.ReadFrom(f); err != nil {
		return nil, err
	}
	return pk, nil
}

func readKeys(dir string) (groth16.VerifyingKey, groth16.ProvingKey, error) {
	vk, err := ReadVerifyingKey(filepath.Join(dir, vkFile))
	if err != nil {
		return nil, nil, err
	}
	pk, err := readPK(filepath.Join(dir, pkFile))
	if err != nil {
		return nil, nil, err
	}
	return vk, pk, nil
}
