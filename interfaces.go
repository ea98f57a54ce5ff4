package clientsdk

import (
	"context"
	"math/big"
)

// TypedDataDomain represents the EIP-712 domain separator
type TypedDataDomain struct {
	Name              string   `json:"name"`
	Version           string   `json:"version"`
	ChainID           *big.Int `json:"chainId"`
	VerifyingContract string   `json:"verifyingContract"`
}

// TypedDataField represents a field in EIP-712 typed data
type TypedDataField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TypedDataPayload is a full EIP-712 signing request.
type TypedDataPayload struct {
	Domain      TypedDataDomain               `json:"domain"`
	Types       map[string][]TypedDataField   `json:"types"`
	PrimaryType string                        `json:"primaryType"`
	Message     map[string]interface{}        `json:"message"`
}

// ConfirmationOptions controls how long SendTransactionWithConfirmation
// waits for the requested confirmation depth.
type ConfirmationOptions struct {
	// Confirmations is the requested depth. Zero means one confirmation.
	Confirmations uint64
}

// AccountAdapter binds one concrete wallet/provider object to the
// universal transaction model. An adapter is owned by whichever
// orchestration call created it, holds no global state, and is safely
// discarded by dropping all references.
//
// Every method signature is identical across the supported libraries
// even though their native call shapes differ sharply; the adapter's
// entire job is absorbing that divergence at construction time so
// callers never branch on library identity.
type AccountAdapter interface {
	// AdapterType returns the stable tag identifying the wrapped library.
	AdapterType() AdapterType

	// GetAddress resolves the connected account. May require an async
	// round trip on first call; repeated calls return the same value
	// for the adapter's lifetime.
	GetAddress(ctx context.Context) (string, error)

	// SendTransaction submits without waiting for confirmation and
	// returns the transaction hash. Fails with transaction_rejected if
	// the user or library explicitly declines, transaction_failed for
	// node-level submission failure.
	SendTransaction(ctx context.Context, request TransactionRequest) (string, error)

	// SendTransactionWithConfirmation submits and blocks until the
	// requested confirmation depth is reached. Fails with
	// transaction_failed or timeout.
	SendTransactionWithConfirmation(ctx context.Context, request TransactionRequest, opts ConfirmationOptions) (*TransactionResponse, error)

	// GetBalance returns the native balance when tokenAddress is empty,
	// the ERC-20 balance otherwise. The amount is a decimal string in
	// base units.
	GetBalance(ctx context.Context, networkID int64, tokenAddress string) (string, error)

	// SwitchNetwork requests the underlying provider switch active
	// chain. Fails with network_switch_rejected or unsupported_network.
	SwitchNetwork(ctx context.Context, chainID int64) error

	// SignMessage signs an arbitrary message and returns the hex signature.
	SignMessage(ctx context.Context, message []byte) (string, error)

	// SignTypedData signs an EIP-712 payload. Adapters wrapping
	// libraries without typed-data support return unsupported_provider.
	SignTypedData(ctx context.Context, payload TypedDataPayload) (string, error)

	// SendCalls is the escape hatch for provider-specific RPC methods
	// (e.g. adding a custom chain) that cannot be generalized.
	SendCalls(ctx context.Context, method string, params []interface{}) (interface{}, error)
}

// ChainReader is the injected read-only chain-state capability. The
// core never opens its own network connections; callers supply an
// implementation (typically backed by an RPC client) where contract
// reads are needed.
type ChainReader interface {
	// CallContract executes a read-only contract call and returns the
	// raw return data.
	CallContract(ctx context.Context, to string, data []byte) ([]byte, error)

	// BalanceOf returns the native balance of an address in wei.
	BalanceOf(ctx context.Context, address string) (*big.Int, error)
}
