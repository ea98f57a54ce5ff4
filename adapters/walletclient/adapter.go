package walletclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	clientsdk "github.com/manifoldxyz/client-sdk-sub000"
)

// DefaultPollInterval is how often confirmation waits poll for receipts.
const DefaultPollInterval = 2 * time.Second

// Adapter implements clientsdk.AccountAdapter over one write-capable
// client. The resolved address is cached after the first round trip;
// the underlying account changing mid-lifetime is not a case the SDK
// detects.
type Adapter struct {
	client       WriteClient
	pollInterval time.Duration

	mu      sync.Mutex
	address string
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithPollInterval overrides the receipt polling interval.
func WithPollInterval(interval time.Duration) Option {
	return func(a *Adapter) {
		if interval > 0 {
			a.pollInterval = interval
		}
	}
}

// NewAdapter wraps a write-capable client.
func NewAdapter(client WriteClient, opts ...Option) (*Adapter, error) {
	if client == nil {
		return nil, clientsdk.NewClientError(clientsdk.ErrCodeInitializationFailed,
			"wallet client is required", nil)
	}
	a := &Adapter{client: client, pollInterval: DefaultPollInterval}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// AdapterType returns the wrapped library tag.
func (a *Adapter) AdapterType() clientsdk.AdapterType {
	return clientsdk.AdapterTypeWalletClient
}

// GetAddress enumerates the client's accounts on first call and caches
// the primary address for the adapter's lifetime.
func (a *Adapter) GetAddress(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.address != "" {
		return a.address, nil
	}
	addresses, err := a.client.RequestAddresses(ctx)
	if err != nil {
		return "", mapRPCError(err, clientsdk.ErrCodeInitializationFailed, "account enumeration failed")
	}
	if len(addresses) == 0 {
		return "", clientsdk.NewClientError(clientsdk.ErrCodeInitializationFailed,
			"client exposes no accounts", nil)
	}
	a.address = addresses[0]
	return a.address, nil
}

// SendTransaction submits without waiting for confirmation.
func (a *Adapter) SendTransaction(ctx context.Context, request clientsdk.TransactionRequest) (string, error) {
	params, err := a.buildParams(ctx, request)
	if err != nil {
		return "", err
	}
	hash, err := a.client.SendTransaction(ctx, params)
	if err != nil {
		return "", mapRPCError(err, clientsdk.ErrCodeTransactionFailed, "transaction submission failed")
	}
	return hash, nil
}

// SendTransactionWithConfirmation submits and blocks until the
// requested confirmation depth is reached or ctx expires.
func (a *Adapter) SendTransactionWithConfirmation(ctx context.Context, request clientsdk.TransactionRequest, opts clientsdk.ConfirmationOptions) (*clientsdk.TransactionResponse, error) {
	hash, err := a.SendTransaction(ctx, request)
	if err != nil {
		return nil, err
	}
	return a.waitMined(ctx, hash, request, opts.Confirmations)
}

// GetBalance returns the native balance when tokenAddress is empty, the
// ERC-20 balance otherwise, as a decimal string in base units.
func (a *Adapter) GetBalance(ctx context.Context, networkID int64, tokenAddress string) (string, error) {
	if err := a.checkChain(networkID); err != nil {
		return "", err
	}
	address, err := a.GetAddress(ctx)
	if err != nil {
		return "", err
	}

	if tokenAddress == "" {
		raw, err := a.client.Request(ctx, "eth_getBalance", []interface{}{address, "latest"})
		if err != nil {
			return "", mapRPCError(err, clientsdk.ErrCodeTransactionFailed, "balance query failed")
		}
		return decodeQuantity(raw)
	}

	// balanceOf(address) selector + left-padded account.
	call := map[string]interface{}{
		"to":   tokenAddress,
		"data": "0x70a08231" + strings.Repeat("0", 24) + strings.TrimPrefix(strings.ToLower(address), "0x"),
	}
	raw, err := a.client.Request(ctx, "eth_call", []interface{}{call, "latest"})
	if err != nil {
		return "", mapRPCError(err, clientsdk.ErrCodeTransactionFailed, "token balance query failed")
	}
	return decodeQuantity(raw)
}

// SwitchNetwork asks the client to change its active chain.
func (a *Adapter) SwitchNetwork(ctx context.Context, chainID int64) error {
	var err error
	if switcher, ok := a.client.(SwitchClient); ok {
		err = switcher.SwitchChain(ctx, chainID)
	} else {
		_, err = a.client.Request(ctx, "wallet_switchEthereumChain",
			[]interface{}{map[string]string{"chainId": hexutil.EncodeBig(big.NewInt(chainID))}})
	}
	if err == nil {
		return nil
	}
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		switch rpcErr.Code {
		case CodeUserRejected:
			return clientsdk.WrapError(clientsdk.ErrCodeNetworkSwitchRejected, "network switch rejected", err)
		case CodeUnrecognizedChain:
			return clientsdk.WrapError(clientsdk.ErrCodeUnsupportedNetwork,
				fmt.Sprintf("chain %d is not configured in the wallet", chainID), err)
		}
	}
	return clientsdk.WrapError(clientsdk.ErrCodeUnsupportedNetwork,
		fmt.Sprintf("switch to chain %d failed", chainID), err)
}

// SignMessage signs an arbitrary message with the resolved account.
func (a *Adapter) SignMessage(ctx context.Context, message []byte) (string, error) {
	address, err := a.GetAddress(ctx)
	if err != nil {
		return "", err
	}
	signature, err := a.client.SignMessage(ctx, address, message)
	if err != nil {
		return "", mapRPCError(err, clientsdk.ErrCodeTransactionFailed, "message signing failed")
	}
	return signature, nil
}

// SignTypedData signs an EIP-712 payload when the client supports it.
func (a *Adapter) SignTypedData(ctx context.Context, payload clientsdk.TypedDataPayload) (string, error) {
	typed, ok := a.client.(TypedDataClient)
	if !ok {
		return "", clientsdk.NewClientError(clientsdk.ErrCodeUnsupportedProvider,
			"client does not support typed-data signing", nil)
	}
	address, err := a.GetAddress(ctx)
	if err != nil {
		return "", err
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", clientsdk.WrapError(clientsdk.ErrCodeInvalidInput, "typed-data payload is not serializable", err)
	}
	signature, err := typed.SignTypedData(ctx, address, encoded)
	if err != nil {
		return "", mapRPCError(err, clientsdk.ErrCodeTransactionFailed, "typed-data signing failed")
	}
	return signature, nil
}

// SendCalls forwards an arbitrary RPC method through the client.
func (a *Adapter) SendCalls(ctx context.Context, method string, params []interface{}) (interface{}, error) {
	raw, err := a.client.Request(ctx, method, params)
	if err != nil {
		return nil, mapRPCError(err, clientsdk.ErrCodeTransactionFailed,
			fmt.Sprintf("rpc call %s failed", method))
	}
	var result interface{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, clientsdk.WrapError(clientsdk.ErrCodeTransactionFailed,
				fmt.Sprintf("rpc call %s returned malformed json", method), err)
		}
	}
	return result, nil
}

func (a *Adapter) checkChain(chainID int64) error {
	bound := a.client.Chain().ID
	if bound != chainID {
		return clientsdk.NewClientError(clientsdk.ErrCodeUnsupportedNetwork,
			fmt.Sprintf("client is bound to chain %d, request targets %d", bound, chainID), nil)
	}
	return nil
}

// buildParams converts a universal request into the family's native
// hex-string shape.
func (a *Adapter) buildParams(ctx context.Context, request clientsdk.TransactionRequest) (TxParams, error) {
	if err := clientsdk.ValidateTransactionRequest(request); err != nil {
		return TxParams{}, err
	}
	if err := a.checkChain(request.ChainID); err != nil {
		return TxParams{}, err
	}
	from, err := a.GetAddress(ctx)
	if err != nil {
		return TxParams{}, err
	}

	params := TxParams{From: from, To: request.To, Data: request.Data}
	for _, field := range []struct {
		src string
		dst *string
	}{
		{request.Value, &params.Value},
		{request.GasLimit, &params.Gas},
		{request.GasPrice, &params.GasPrice},
		{request.MaxFeePerGas, &params.MaxFeePerGas},
		{request.MaxPriorityFeePerGas, &params.MaxPriorityFeePerGas},
	} {
		if field.src == "" {
			continue
		}
		amount, err := clientsdk.ParseAmount(field.src)
		if err != nil {
			return TxParams{}, err
		}
		*field.dst = hexutil.EncodeBig(amount)
	}
	if request.Nonce != nil {
		params.Nonce = hexutil.EncodeUint64(*request.Nonce)
	}
	return params, nil
}

// waitMined polls eth_getTransactionReceipt and eth_blockNumber until
// the requested depth is reached, surfacing ctx expiry as timeout.
func (a *Adapter) waitMined(ctx context.Context, hash string, request clientsdk.TransactionRequest, confirmations uint64) (*clientsdk.TransactionResponse, error) {
	if confirmations == 0 {
		confirmations = 1
	}
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := a.fetchReceipt(ctx, hash)
		if err != nil {
			return nil, err
		}
		if receipt != nil {
			minedAt, err := hexutil.DecodeUint64(receipt.BlockNumber)
			if err != nil {
				return nil, clientsdk.WrapError(clientsdk.ErrCodeTransactionFailed, "malformed receipt block number", err)
			}
			current, err := a.blockNumber(ctx)
			if err != nil {
				return nil, err
			}
			// A lagging head (load-balanced RPC, shallow reorg) can sit
			// behind the receipt's block; keep polling instead of letting
			// the depth subtraction wrap.
			if current >= minedAt {
				depth := current - minedAt + 1
				if depth >= confirmations {
					if receipt.Status == "0x0" {
						return nil, clientsdk.NewClientError(clientsdk.ErrCodeTransactionFailed,
							fmt.Sprintf("transaction %s reverted", hash), nil)
					}
					return a.buildResponse(ctx, request, receipt, minedAt, depth)
				}
			}
		}

		select {
		case <-ctx.Done():
			return nil, clientsdk.WrapError(clientsdk.ErrCodeTimeout,
				fmt.Sprintf("confirmation wait for %s exceeded", hash), ctx.Err())
		case <-ticker.C:
		}
	}
}

func (a *Adapter) fetchReceipt(ctx context.Context, hash string) (*receiptJSON, error) {
	raw, err := a.client.Request(ctx, "eth_getTransactionReceipt", []interface{}{hash})
	if err != nil {
		return nil, mapRPCError(err, clientsdk.ErrCodeTransactionFailed, "receipt query failed")
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var receipt receiptJSON
	if err := json.Unmarshal(raw, &receipt); err != nil {
		return nil, clientsdk.WrapError(clientsdk.ErrCodeTransactionFailed, "malformed receipt", err)
	}
	return &receipt, nil
}

func (a *Adapter) blockNumber(ctx context.Context) (uint64, error) {
	raw, err := a.client.Request(ctx, "eth_blockNumber", nil)
	if err != nil {
		return 0, mapRPCError(err, clientsdk.ErrCodeTransactionFailed, "block number query failed")
	}
	var quantity string
	if err := json.Unmarshal(raw, &quantity); err != nil {
		return 0, clientsdk.WrapError(clientsdk.ErrCodeTransactionFailed, "malformed block number", err)
	}
	return hexutil.DecodeUint64(quantity)
}

func (a *Adapter) buildResponse(ctx context.Context, request clientsdk.TransactionRequest, receipt *receiptJSON, blockNumber, confirmations uint64) (*clientsdk.TransactionResponse, error) {
	from := receipt.From
	if from == "" {
		resolved, err := a.GetAddress(ctx)
		if err != nil {
			return nil, err
		}
		from = resolved
	}

	gasUsed, err := hexutil.DecodeBig(receipt.GasUsed)
	if err != nil {
		return nil, clientsdk.WrapError(clientsdk.ErrCodeTransactionFailed, "malformed receipt gasUsed", err)
	}
	effective := ""
	if receipt.EffectiveGasPrice != "" {
		price, err := hexutil.DecodeBig(receipt.EffectiveGasPrice)
		if err != nil {
			return nil, clientsdk.WrapError(clientsdk.ErrCodeTransactionFailed, "malformed effectiveGasPrice", err)
		}
		effective = price.String()
	}

	logs := make([]clientsdk.LogEntry, 0, len(receipt.Logs))
	for _, log := range receipt.Logs {
		logs = append(logs, clientsdk.LogEntry{Address: log.Address, Topics: log.Topics, Data: log.Data})
	}

	return &clientsdk.TransactionResponse{
		Hash:              receipt.TransactionHash,
		ChainID:           request.ChainID,
		From:              from,
		To:                request.To,
		BlockNumber:       &blockNumber,
		BlockHash:         receipt.BlockHash,
		GasUsed:           gasUsed.String(),
		EffectiveGasPrice: effective,
		Confirmations:     confirmations,
		Logs:              logs,
	}, nil
}

// decodeQuantity turns a JSON-encoded hex quantity into a decimal
// string. eth_call returns 32-byte ABI words, so leading zeros are the
// norm and strict quantity decoding would reject them.
func decodeQuantity(raw json.RawMessage) (string, error) {
	var quantity string
	if err := json.Unmarshal(raw, &quantity); err != nil {
		return "", clientsdk.WrapError(clientsdk.ErrCodeTransactionFailed, "malformed quantity", err)
	}
	value, ok := new(big.Int).SetString(strings.TrimPrefix(quantity, "0x"), 16)
	if !ok {
		return "", clientsdk.NewClientError(clientsdk.ErrCodeTransactionFailed,
			fmt.Sprintf("malformed quantity %q", quantity), nil)
	}
	return value.String(), nil
}

// mapRPCError translates the family's EIP-1193 error codes into the
// taxonomy; explicit user rejection is distinguished so it is never
// retried.
func mapRPCError(err error, fallbackCode, message string) error {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		switch rpcErr.Code {
		case CodeUserRejected:
			return clientsdk.WrapError(clientsdk.ErrCodeTransactionRejected, message, err)
		case CodeUnrecognizedChain, CodeChainDisconnected:
			return clientsdk.WrapError(clientsdk.ErrCodeUnsupportedNetwork, message, err)
		case CodeUnauthorized:
			return clientsdk.WrapError(clientsdk.ErrCodeTransactionRejected, message, err)
		}
	}
	return clientsdk.WrapError(fallbackCode, message, err)
}
