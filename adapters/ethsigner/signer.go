// Package ethsigner adapts the signer/provider wallet surface - the
// library family whose native values are go-ethereum big integers - to
// the universal account contract. Two versions of the surface are
// supported: the legacy v1 shape (NetworkID, legacy gas pricing, no
// typed-data signing) and the current v2 shape (ChainID, EIP-1559 fee
// suggestions, typed-data capable).
package ethsigner

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	clientsdk "github.com/manifoldxyz/client-sdk-sub000"
)

// Provider is the read/submit side shared by both versions of the
// surface. *ethclient.Client satisfies it.
type Provider interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// ProviderV1 is the legacy provider surface. NetworkID is its
// distinguishing marker; v2 providers dropped it.
type ProviderV1 interface {
	Provider
	NetworkID(ctx context.Context) (*big.Int, error)
}

// ProviderV2 is the current provider surface with EIP-1559 fee
// suggestions.
type ProviderV2 interface {
	Provider
	ChainID(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
}

// Signer holds the account key and signs on its behalf.
type Signer interface {
	Address() common.Address
	SignTx(ctx context.Context, tx *ethtypes.Transaction, chainID *big.Int) (*ethtypes.Transaction, error)
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
}

// SignerV1 is a legacy signer bound to its provider, mirroring how the
// source library couples the two.
type SignerV1 interface {
	Signer
	Provider() ProviderV1
}

// SignerV2 is a current-generation signer bound to its provider.
type SignerV2 interface {
	Signer
	Provider() ProviderV2
}

// TypedDataSigner is the optional EIP-712 capability. Only v2 signers
// implement it.
type TypedDataSigner interface {
	SignTypedData(ctx context.Context, payload clientsdk.TypedDataPayload) ([]byte, error)
}

// NetworkSwitcher is implemented by providers that can change their
// active chain. A plain RPC-bound provider cannot, so the capability is
// probed rather than required.
type NetworkSwitcher interface {
	SwitchNetwork(ctx context.Context, chainID *big.Int) error
}

// RPCCaller exposes raw RPC access for provider-specific methods.
// *rpc.Client satisfies it.
type RPCCaller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}
