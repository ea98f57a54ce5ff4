package merkle

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	clientsdk "github.com/manifoldxyz/client-sdk-sub000"
)

// Tree is a binary Merkle tree over an allowlist. Leaves are sorted
// bytewise before pairing and each pair is hashed in sorted order, so
// two trees built from the same (unordered) entry set always produce
// the same root - required because the root is compared against an
// on-chain value computed once at allowlist-publish time.
type Tree struct {
	format LeafFormat
	root   common.Hash

	// layers[0] is the sorted leaf layer, last layer is [root].
	layers [][]common.Hash

	// byAddress maps a lowercased address to its entry and leaf index.
	byAddress map[string]treeEntry
}

type treeEntry struct {
	entry     Entry
	leafIndex int
}

// BuildTree constructs a tree from a finite entry set. Duplicate
// addresses are rejected rather than silently collapsed, since two
// entries for one address with different limits have no canonical
// winner.
func BuildTree(format LeafFormat, entries []Entry) (*Tree, error) {
	if len(entries) == 0 {
		return nil, clientsdk.NewClientError(clientsdk.ErrCodeInvalidInput,
			"allowlist must contain at least one entry", nil)
	}

	type leafRecord struct {
		hash  common.Hash
		entry Entry
	}
	records := make([]leafRecord, 0, len(entries))
	seen := make(map[string]bool, len(entries))

	for _, entry := range entries {
		hash, err := HashLeaf(format, entry)
		if err != nil {
			return nil, err
		}
		key := normalizeAddress(entry.Address)
		if seen[key] {
			return nil, clientsdk.NewClientError(clientsdk.ErrCodeInvalidInput,
				fmt.Sprintf("duplicate allowlist address %s", entry.Address), nil)
		}
		seen[key] = true
		records = append(records, leafRecord{hash: hash, entry: entry})
	}

	// Canonical leaf order: bytewise by leaf hash.
	sort.Slice(records, func(i, j int) bool {
		return bytes.Compare(records[i].hash.Bytes(), records[j].hash.Bytes()) < 0
	})

	leaves := make([]common.Hash, len(records))
	byAddress := make(map[string]treeEntry, len(records))
	for i, rec := range records {
		leaves[i] = rec.hash
		byAddress[normalizeAddress(rec.entry.Address)] = treeEntry{entry: rec.entry, leafIndex: i}
	}

	layers := [][]common.Hash{leaves}
	for current := leaves; len(current) > 1; {
		next := make([]common.Hash, 0, (len(current)+1)/2)
		for i := 0; i < len(current); i += 2 {
			if i+1 == len(current) {
				// Odd node is promoted unchanged.
				next = append(next, current[i])
				continue
			}
			next = append(next, hashPair(current[i], current[i+1]))
		}
		layers = append(layers, next)
		current = next
	}

	return &Tree{
		format:    format,
		root:      layers[len(layers)-1][0],
		layers:    layers,
		byAddress: byAddress,
	}, nil
}

// hashPair hashes two sibling nodes in bytewise-sorted order, matching
// commutative on-chain verifiers.
func hashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
		a, b = b, a
	}
	return crypto.Keccak256Hash(a.Bytes(), b.Bytes())
}

// Root returns the tree root.
func (t *Tree) Root() common.Hash {
	return t.root
}

// Format returns the leaf format the tree was built with.
func (t *Tree) Format() LeafFormat {
	return t.format
}

// Len returns the number of leaves.
func (t *Tree) Len() int {
	return len(t.layers[0])
}

// Lookup returns the entry for an address, if present.
func (t *Tree) Lookup(address string) (Entry, bool) {
	te, ok := t.byAddress[normalizeAddress(address)]
	return te.entry, ok
}

// Proof returns the sibling-hash path for an address's leaf. Addresses
// outside the set fail with proof_invalid.
func (t *Tree) Proof(address string) (*Proof, error) {
	te, ok := t.byAddress[normalizeAddress(address)]
	if !ok {
		return nil, clientsdk.NewClientError(clientsdk.ErrCodeProofInvalid,
			fmt.Sprintf("address %s is not in the allowlist", address), nil)
	}

	siblings := make([]common.Hash, 0, len(t.layers))
	index := te.leafIndex
	for _, layer := range t.layers[:len(t.layers)-1] {
		sibling := index ^ 1
		if sibling < len(layer) {
			siblings = append(siblings, layer[sibling])
		}
		index >>= 1
	}

	leaf := t.layers[0][te.leafIndex]
	proof := &Proof{
		Root:        t.root,
		Siblings:    siblings,
		Leaf:        leaf,
		MaxQuantity: te.entry.MaxQuantity,
		Price:       te.entry.Price,
	}
	return proof, nil
}
