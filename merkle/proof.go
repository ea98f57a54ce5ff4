package merkle

import (
	"github.com/ethereum/go-ethereum/common"
)

// Proof is an inclusion proof for one allowlist entry: the root it was
// generated against, the ordered sibling-hash path from the leaf to the
// root, the leaf hash itself, and the metadata that produced the leaf.
type Proof struct {
	Root     common.Hash   `json:"root"`
	Siblings []common.Hash `json:"proof"`
	Leaf     common.Hash   `json:"leaf"`

	MaxQuantity uint32 `json:"maxQuantity,omitempty"`
	Price       string `json:"price,omitempty"`
}

// ValidateProof recomputes the path hash-by-hash and compares the
// result to root. It is a pure function of its three inputs - it never
// consults cached or mutable state - so cached and freshly computed
// proofs validate identically. It mirrors the on-chain verification a
// submitted transaction will repeat.
func ValidateProof(siblings []common.Hash, root, leaf common.Hash) bool {
	computed := leaf
	for _, sibling := range siblings {
		computed = hashPair(computed, sibling)
	}
	return computed == root
}

// Valid reports whether the proof's own path links its leaf to its root.
func (p *Proof) Valid() bool {
	return ValidateProof(p.Siblings, p.Root, p.Leaf)
}
