// Package walletclient adapts the typed wallet-client surface - the
// library family built around transport/chain/mode clients that carry
// all quantities as hex strings and report failures through EIP-1193
// numeric error codes - to the universal account contract.
package walletclient

import (
	"context"
	"encoding/json"
	"fmt"
)

// ChainInfo describes the chain a client is bound to.
type ChainInfo struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Client is the base surface every client in the family exposes: the
// transport/chain/mode triad plus raw request access. A client carrying
// only this surface is read-only.
type Client interface {
	Transport() string
	Chain() ChainInfo
	Mode() string

	// Request performs a raw JSON-RPC call against the client's
	// transport.
	Request(ctx context.Context, method string, params []interface{}) (json.RawMessage, error)
}

// WriteClient adds account enumeration and transaction submission. The
// presence of both together is what distinguishes a write-capable
// client from a read-only one.
type WriteClient interface {
	Client

	RequestAddresses(ctx context.Context) ([]string, error)
	SendTransaction(ctx context.Context, params TxParams) (string, error)
	SignMessage(ctx context.Context, account string, message []byte) (string, error)
}

// TypedDataClient is the optional EIP-712 capability.
type TypedDataClient interface {
	SignTypedData(ctx context.Context, account string, payloadJSON []byte) (string, error)
}

// SwitchClient is the optional chain-switching capability.
type SwitchClient interface {
	SwitchChain(ctx context.Context, chainID int64) error
}

// TxParams is the family's native transaction shape. Every quantity is
// a 0x-prefixed hex string.
type TxParams struct {
	From                 string `json:"from"`
	To                   string `json:"to"`
	Value                string `json:"value,omitempty"`
	Data                 string `json:"data,omitempty"`
	Gas                  string `json:"gas,omitempty"`
	GasPrice             string `json:"gasPrice,omitempty"`
	MaxFeePerGas         string `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas,omitempty"`
	Nonce                string `json:"nonce,omitempty"`
}

// EIP-1193 provider error codes surfaced by the family.
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupportedMethod = 4200
	CodeDisconnected      = 4900
	CodeChainDisconnected = 4901
	CodeUnrecognizedChain = 4902
)

// RPCError is the family's error shape.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// receiptJSON is the eth_getTransactionReceipt wire shape, hex-quantity
// strings throughout.
type receiptJSON struct {
	TransactionHash   string    `json:"transactionHash"`
	BlockNumber       string    `json:"blockNumber"`
	BlockHash         string    `json:"blockHash"`
	GasUsed           string    `json:"gasUsed"`
	EffectiveGasPrice string    `json:"effectiveGasPrice"`
	Status            string    `json:"status"`
	From              string    `json:"from"`
	To                string    `json:"to"`
	Logs              []logJSON `json:"logs"`
}

type logJSON struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
	Data    string   `json:"data"`
}
