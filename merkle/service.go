package merkle

import (
	"bytes"
	"encoding/hex"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// DefaultMaxCachedTrees bounds the service cache. Allowlists can carry
// thousands of entries and proof generation is O(n) per call, so built
// trees and generated proofs are kept hot; the bound keeps a long-lived
// service from growing without limit.
const DefaultMaxCachedTrees = 16

// ProofService generates and validates allowlist proofs, caching built
// trees and generated proofs keyed by a deterministic hash of the
// allowlist content - never by object identity - so a cache hit can
// never return a proof for different allowlist content. The cache is
// the one piece of shared mutable state in the SDK and is safe for
// concurrent use from independent purchase flows.
type ProofService struct {
	format LeafFormat

	mu       sync.Mutex
	trees    map[string]*cachedTree
	order    []string // insertion order, oldest first
	maxTrees int
}

type cachedTree struct {
	tree   *Tree
	proofs map[string]*Proof // keyed by lowercased address
}

// ServiceOption configures a ProofService.
type ServiceOption func(*ProofService)

// WithMaxCachedTrees overrides the cache bound.
func WithMaxCachedTrees(n int) ServiceOption {
	return func(s *ProofService) {
		if n > 0 {
			s.maxTrees = n
		}
	}
}

// NewProofService creates a service with the leaf format pinned for the
// deployment it serves.
func NewProofService(format LeafFormat, opts ...ServiceOption) *ProofService {
	s := &ProofService{
		format:   format,
		trees:    make(map[string]*cachedTree),
		maxTrees: DefaultMaxCachedTrees,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Format returns the pinned leaf format.
func (s *ProofService) Format() LeafFormat {
	return s.format
}

// ContentKey derives the cache key for an entry set: the keccak hash of
// the format tag and the sorted leaf hashes. Input order does not
// affect the key.
func ContentKey(format LeafFormat, entries []Entry) (string, error) {
	leaves := make([][]byte, 0, len(entries))
	for _, entry := range entries {
		hash, err := HashLeaf(format, entry)
		if err != nil {
			return "", err
		}
		leaves = append(leaves, hash.Bytes())
	}
	sort.Slice(leaves, func(i, j int) bool {
		return bytes.Compare(leaves[i], leaves[j]) < 0
	})

	hasher := append([]byte{byte(format)}, bytes.Join(leaves, nil)...)
	return hex.EncodeToString(crypto.Keccak256(hasher)), nil
}

// GenerateProof builds (or fetches) the tree for the entry set and
// returns the inclusion proof for the target address together with the
// metadata that produced its leaf.
func (s *ProofService) GenerateProof(entries []Entry, address string) (*Proof, error) {
	key, tree, err := s.treeFor(entries)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if cached, ok := s.trees[key]; ok {
		if proof, ok := cached.proofs[normalizeAddress(address)]; ok {
			s.mu.Unlock()
			return proof, nil
		}
	}
	s.mu.Unlock()

	proof, err := tree.Proof(address)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if cached, ok := s.trees[key]; ok {
		cached.proofs[normalizeAddress(address)] = proof
	}
	s.mu.Unlock()
	return proof, nil
}

// ValidateProof is the pure path validation; see the package function.
func (s *ProofService) ValidateProof(siblings []common.Hash, root, leaf common.Hash) bool {
	return ValidateProof(siblings, root, leaf)
}

// Root returns the deterministic root for an entry set.
func (s *ProofService) Root(entries []Entry) (common.Hash, error) {
	_, tree, err := s.treeFor(entries)
	if err != nil {
		return common.Hash{}, err
	}
	return tree.Root(), nil
}

// CheckEligibility reports whether an address is in the entry set and,
// if so, returns its entry (max quantity / price limits).
func (s *ProofService) CheckEligibility(entries []Entry, address string) (Entry, bool) {
	_, tree, err := s.treeFor(entries)
	if err != nil {
		return Entry{}, false
	}
	return tree.Lookup(address)
}

// treeFor returns the cached tree for the entry set, building and
// inserting it on a miss.
func (s *ProofService) treeFor(entries []Entry) (string, *Tree, error) {
	key, err := ContentKey(s.format, entries)
	if err != nil {
		return "", nil, err
	}

	s.mu.Lock()
	if cached, ok := s.trees[key]; ok {
		s.mu.Unlock()
		return key, cached.tree, nil
	}
	s.mu.Unlock()

	// Build outside the lock; construction over thousands of entries is
	// the expensive path and must not serialize unrelated flows.
	tree, err := BuildTree(s.format, entries)
	if err != nil {
		return "", nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.trees[key]; ok {
		// Another flow built the same content first; keep theirs.
		return key, cached.tree, nil
	}
	s.trees[key] = &cachedTree{tree: tree, proofs: make(map[string]*Proof)}
	s.order = append(s.order, key)
	for len(s.order) > s.maxTrees {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.trees, oldest)
	}
	return key, tree, nil
}

// CachedTrees returns the number of trees currently cached.
func (s *ProofService) CachedTrees() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trees)
}
