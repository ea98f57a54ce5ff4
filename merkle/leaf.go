// Package merkle implements the allowlist-proof engine: deterministic
// leaf hashing compatible with an on-chain abi.encodePacked verifier,
// canonical tree construction, inclusion proofs and a bounded
// content-keyed cache.
package merkle

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	clientsdk "github.com/manifoldxyz/client-sdk-sub000"
)

// LeafFormat selects the packed leaf encoding. The format is pinned per
// deployment and must exactly match the on-chain verifier's encoding,
// or every proof will be rejected on-chain despite validating locally.
type LeafFormat int

const (
	// LeafAddress encodes keccak256(address).
	LeafAddress LeafFormat = iota
	// LeafAddressQuantity encodes keccak256(address ++ uint256(maxQuantity)).
	LeafAddressQuantity
	// LeafAddressQuantityPrice encodes
	// keccak256(address ++ uint256(maxQuantity) ++ uint256(price)).
	LeafAddressQuantityPrice
)

func (f LeafFormat) String() string {
	switch f {
	case LeafAddress:
		return "address"
	case LeafAddressQuantity:
		return "address+quantity"
	case LeafAddressQuantityPrice:
		return "address+quantity+price"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}

// Entry is one allowlist member: an address plus optional per-entry
// limits. Price is a decimal wei string; empty means zero.
type Entry struct {
	Address     string `json:"address"`
	MaxQuantity uint32 `json:"maxQuantity,omitempty"`
	Price       string `json:"price,omitempty"`
}

// HashLeaf produces the fixed-width leaf hash for an entry under the
// given format. It is a pure function: same inputs always produce the
// same hash, and changing any encoded field changes the hash.
func HashLeaf(format LeafFormat, entry Entry) (common.Hash, error) {
	if !common.IsHexAddress(entry.Address) {
		return common.Hash{}, clientsdk.NewClientError(clientsdk.ErrCodeInvalidInput,
			fmt.Sprintf("invalid allowlist address %q", entry.Address), nil)
	}
	addr := common.HexToAddress(entry.Address)

	packed := make([]byte, 0, 84)
	packed = append(packed, addr.Bytes()...)

	switch format {
	case LeafAddress:
	case LeafAddressQuantity:
		packed = append(packed, uint256Bytes(new(big.Int).SetUint64(uint64(entry.MaxQuantity)))...)
	case LeafAddressQuantityPrice:
		price, err := parsePrice(entry.Price)
		if err != nil {
			return common.Hash{}, err
		}
		packed = append(packed, uint256Bytes(new(big.Int).SetUint64(uint64(entry.MaxQuantity)))...)
		packed = append(packed, uint256Bytes(price)...)
	default:
		return common.Hash{}, clientsdk.NewClientError(clientsdk.ErrCodeInvalidInput,
			fmt.Sprintf("unknown leaf format %d", int(format)), nil)
	}

	return crypto.Keccak256Hash(packed), nil
}

func uint256Bytes(v *big.Int) []byte {
	return common.LeftPadBytes(v.Bytes(), 32)
}

func parsePrice(price string) (*big.Int, error) {
	if price == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(price, 10)
	if !ok || v.Sign() < 0 {
		return nil, clientsdk.NewClientError(clientsdk.ErrCodeInvalidInput,
			fmt.Sprintf("invalid price %q", price), nil)
	}
	return v, nil
}

func normalizeAddress(address string) string {
	return strings.ToLower(address)
}
