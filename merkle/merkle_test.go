package merkle

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clientsdk "github.com/manifoldxyz/client-sdk-sub000"
)

const (
	addrA = "0xAAA0000000000000000000000000000000000001"
	addrB = "0xBBB0000000000000000000000000000000000002"
	addrC = "0xCCC0000000000000000000000000000000000003"
	addrD = "0xDDD0000000000000000000000000000000000004"
	addrE = "0xEEE0000000000000000000000000000000000005"

	outsider = "0x1230000000000000000000000000000000000999"
)

func sampleEntries() []Entry {
	return []Entry{
		{Address: addrA, MaxQuantity: 2},
		{Address: addrB, MaxQuantity: 1},
		{Address: addrC, MaxQuantity: 5},
		{Address: addrD, MaxQuantity: 3},
		{Address: addrE, MaxQuantity: 4},
	}
}

func TestHashLeafPureAndDistinct(t *testing.T) {
	entry := Entry{Address: addrA, MaxQuantity: 2, Price: "1000"}

	first, err := HashLeaf(LeafAddressQuantityPrice, entry)
	require.NoError(t, err)
	second, err := HashLeaf(LeafAddressQuantityPrice, entry)
	require.NoError(t, err)
	assert.Equal(t, first, second, "same inputs must produce the same hash")

	variants := []Entry{
		{Address: addrB, MaxQuantity: 2, Price: "1000"},
		{Address: addrA, MaxQuantity: 3, Price: "1000"},
		{Address: addrA, MaxQuantity: 2, Price: "1001"},
	}
	seen := map[string]bool{first.Hex(): true}
	for _, variant := range variants {
		hash, err := HashLeaf(LeafAddressQuantityPrice, variant)
		require.NoError(t, err)
		assert.False(t, seen[hash.Hex()], "changing any field must change the hash")
		seen[hash.Hex()] = true
	}
}

func TestHashLeafFormats(t *testing.T) {
	entry := Entry{Address: addrA, MaxQuantity: 2, Price: "1000"}

	addrOnly, err := HashLeaf(LeafAddress, entry)
	require.NoError(t, err)
	withQty, err := HashLeaf(LeafAddressQuantity, entry)
	require.NoError(t, err)
	withPrice, err := HashLeaf(LeafAddressQuantityPrice, entry)
	require.NoError(t, err)

	assert.NotEqual(t, addrOnly, withQty)
	assert.NotEqual(t, withQty, withPrice)

	// Address-only encoding ignores the limits entirely.
	bare, err := HashLeaf(LeafAddress, Entry{Address: addrA})
	require.NoError(t, err)
	assert.Equal(t, addrOnly, bare)
}

func TestHashLeafRejectsBadInput(t *testing.T) {
	_, err := HashLeaf(LeafAddress, Entry{Address: "not-an-address"})
	require.Error(t, err)
	assert.True(t, clientsdk.IsCode(err, clientsdk.ErrCodeInvalidInput))

	_, err = HashLeaf(LeafAddressQuantityPrice, Entry{Address: addrA, Price: "1.5"})
	require.Error(t, err)
	assert.True(t, clientsdk.IsCode(err, clientsdk.ErrCodeInvalidInput))
}

func TestBuildTreeDeterministicAcrossInputOrder(t *testing.T) {
	entries := sampleEntries()

	reference, err := BuildTree(LeafAddressQuantity, entries)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		shuffled := append([]Entry(nil), entries...)
		rand.New(rand.NewSource(int64(i))).Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		tree, err := BuildTree(LeafAddressQuantity, shuffled)
		require.NoError(t, err)
		assert.Equal(t, reference.Root(), tree.Root(), "roots must not depend on input order")
	}
}

func TestBuildTreeRejectsDuplicatesAndEmpty(t *testing.T) {
	_, err := BuildTree(LeafAddress, nil)
	require.Error(t, err)

	_, err = BuildTree(LeafAddress, []Entry{
		{Address: addrA},
		{Address: "0xaaa0000000000000000000000000000000000001"}, // same address, different case
	})
	require.Error(t, err)
	assert.True(t, clientsdk.IsCode(err, clientsdk.ErrCodeInvalidInput))
}

func TestProofsForEveryEntry(t *testing.T) {
	for _, count := range []int{1, 2, 3, 4, 5} {
		entries := sampleEntries()[:count]
		tree, err := BuildTree(LeafAddressQuantity, entries)
		require.NoError(t, err)

		for _, entry := range entries {
			proof, err := tree.Proof(entry.Address)
			require.NoError(t, err, "entry %s in tree of %d", entry.Address, count)
			assert.True(t, proof.Valid())
			assert.True(t, ValidateProof(proof.Siblings, tree.Root(), proof.Leaf))
			assert.Equal(t, entry.MaxQuantity, proof.MaxQuantity)
		}

		_, err = tree.Proof(outsider)
		require.Error(t, err)
		assert.True(t, clientsdk.IsCode(err, clientsdk.ErrCodeProofInvalid))
	}
}

// The worked allowlist scenario: a proof generated for one member must
// not validate against another member's leaf.
func TestProofDoesNotValidateForOtherLeaf(t *testing.T) {
	entries := []Entry{
		{Address: addrA, MaxQuantity: 2},
		{Address: addrB, MaxQuantity: 1},
	}
	tree, err := BuildTree(LeafAddressQuantity, entries)
	require.NoError(t, err)

	proofA, err := tree.Proof(addrA)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), proofA.MaxQuantity)

	leafA, err := HashLeaf(LeafAddressQuantity, entries[0])
	require.NoError(t, err)
	leafB, err := HashLeaf(LeafAddressQuantity, entries[1])
	require.NoError(t, err)

	assert.True(t, ValidateProof(proofA.Siblings, tree.Root(), leafA))
	assert.False(t, ValidateProof(proofA.Siblings, tree.Root(), leafB))
}

func TestValidateProofRejectsWrongRoot(t *testing.T) {
	tree, err := BuildTree(LeafAddress, sampleEntries())
	require.NoError(t, err)
	other, err := BuildTree(LeafAddress, sampleEntries()[:3])
	require.NoError(t, err)

	proof, err := tree.Proof(addrA)
	require.NoError(t, err)
	assert.False(t, ValidateProof(proof.Siblings, other.Root(), proof.Leaf))
}

func TestLookup(t *testing.T) {
	tree, err := BuildTree(LeafAddressQuantity, sampleEntries())
	require.NoError(t, err)

	entry, ok := tree.Lookup("0xaaa0000000000000000000000000000000000001")
	require.True(t, ok, "lookup must be case-insensitive")
	assert.Equal(t, uint32(2), entry.MaxQuantity)

	_, ok = tree.Lookup(outsider)
	assert.False(t, ok)
}
