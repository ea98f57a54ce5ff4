package ethsigner

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	clientsdk "github.com/manifoldxyz/client-sdk-sub000"
)

// ErrRejected is returned by signer implementations when the user (or
// the library on their behalf) explicitly declines a signing request.
// The adapter maps it to the transaction_rejected taxonomy kind, which
// is never retried automatically.
var ErrRejected = errors.New("ethsigner: signing request rejected")

// DefaultPollInterval is how often confirmation waits poll for receipts.
const DefaultPollInterval = 2 * time.Second

var balanceOfSelector = crypto.Keccak256([]byte("balanceOf(address)"))[:4]

// Adapter implements clientsdk.AccountAdapter over one signer/provider
// pair. It is bound to exactly one signer for its lifetime and holds no
// shared state.
type Adapter struct {
	adapterType  clientsdk.AdapterType
	signer       Signer
	provider     Provider
	chainID      func(ctx context.Context) (*big.Int, error)
	dynamicFees  bool
	gasTipCap    func(ctx context.Context) (*big.Int, error)
	pollInterval time.Duration
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

// NewAdapterV1 wraps a legacy signer. All transactions are legacy-gas;
// EIP-1559 fee fields in a request are ignored in favor of the
// provider's gas price suggestion, because the v1 surface cannot carry
// them.
func NewAdapterV1(signer SignerV1, opts ...Option) (*Adapter, error) {
	if signer == nil || signer.Provider() == nil {
		return nil, clientsdk.NewClientError(clientsdk.ErrCodeInitializationFailed,
			"v1 signer requires a bound provider", nil)
	}
	provider := signer.Provider()
	a := &Adapter{
		adapterType:  clientsdk.AdapterTypeSignerV1,
		signer:       signer,
		provider:     provider,
		chainID:      provider.NetworkID,
		dynamicFees:  false,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// NewAdapterV2 wraps a current-generation signer. Transactions default
// to EIP-1559 dynamic fees unless the request pins a legacy gas price.
func NewAdapterV2(signer SignerV2, opts ...Option) (*Adapter, error) {
	if signer == nil || signer.Provider() == nil {
		return nil, clientsdk.NewClientError(clientsdk.ErrCodeInitializationFailed,
			"v2 signer requires a bound provider", nil)
	}
	provider := signer.Provider()
	a := &Adapter{
		adapterType:  clientsdk.AdapterTypeSignerV2,
		signer:       signer,
		provider:     provider,
		chainID:      provider.ChainID,
		dynamicFees:  true,
		gasTipCap:    provider.SuggestGasTipCap,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// AdapterType returns the wrapped library tag.
func (a *Adapter) AdapterType() clientsdk.AdapterType {
	return a.adapterType
}

// GetAddress resolves the connected account. The signer carries its
// address, so repeated calls are trivially idempotent.
func (a *Adapter) GetAddress(_ context.Context) (string, error) {
	return a.signer.Address().Hex(), nil
}

// SendTransaction submits without waiting for confirmation.
func (a *Adapter) SendTransaction(ctx context.Context, request clientsdk.TransactionRequest) (string, error) {
	signed, err := a.buildAndSign(ctx, request)
	if err != nil {
		return "", err
	}
	if err := a.provider.SendTransaction(ctx, signed); err != nil {
		return "", clientsdk.WrapError(clientsdk.ErrCodeTransactionFailed,
			"transaction submission failed", err)
	}
	return signed.Hash().Hex(), nil
}

// SendTransactionWithConfirmation submits and blocks until the
// requested confirmation depth is reached or ctx expires.
func (a *Adapter) SendTransactionWithConfirmation(ctx context.Context, request clientsdk.TransactionRequest, opts clientsdk.ConfirmationOptions) (*clientsdk.TransactionResponse, error) {
	hash, err := a.SendTransaction(ctx, request)
	if err != nil {
		return nil, err
	}
	return a.waitMined(ctx, common.HexToHash(hash), request, opts.Confirmations)
}

// GetBalance returns the native balance when tokenAddress is empty, the
// ERC-20 balance otherwise, as a decimal string in base units.
func (a *Adapter) GetBalance(ctx context.Context, networkID int64, tokenAddress string) (string, error) {
	if err := a.checkChain(ctx, networkID); err != nil {
		return "", err
	}
	account := a.signer.Address()

	if tokenAddress == "" {
		balance, err := a.provider.BalanceAt(ctx, account, nil)
		if err != nil {
			return "", clientsdk.WrapError(clientsdk.ErrCodeTransactionFailed, "balance query failed", err)
		}
		return balance.String(), nil
	}

	if !common.IsHexAddress(tokenAddress) {
		return "", clientsdk.NewClientError(clientsdk.ErrCodeInvalidInput,
			fmt.Sprintf("invalid token address %q", tokenAddress), nil)
	}
	token := common.HexToAddress(tokenAddress)
	data := append(append([]byte{}, balanceOfSelector...), common.LeftPadBytes(account.Bytes(), 32)...)
	raw, err := a.provider.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return "", clientsdk.WrapError(clientsdk.ErrCodeTransactionFailed, "token balance query failed", err)
	}
	return new(big.Int).SetBytes(raw).String(), nil
}

// SwitchNetwork requests a chain switch. A provider bound to one RPC
// endpoint cannot switch, so the capability is probed on the concrete
// object.
func (a *Adapter) SwitchNetwork(ctx context.Context, chainID int64) error {
	switcher, ok := a.provider.(NetworkSwitcher)
	if !ok {
		return clientsdk.NewClientError(clientsdk.ErrCodeUnsupportedNetwork,
			"provider cannot switch networks", nil)
	}
	if err := switcher.SwitchNetwork(ctx, big.NewInt(chainID)); err != nil {
		if errors.Is(err, ErrRejected) {
			return clientsdk.WrapError(clientsdk.ErrCodeNetworkSwitchRejected, "network switch rejected", err)
		}
		return clientsdk.WrapError(clientsdk.ErrCodeUnsupportedNetwork,
			fmt.Sprintf("switch to chain %d failed", chainID), err)
	}
	return nil
}

// SignMessage signs an arbitrary message and returns the hex signature.
func (a *Adapter) SignMessage(ctx context.Context, message []byte) (string, error) {
	signature, err := a.signer.SignMessage(ctx, message)
	if err != nil {
		if errors.Is(err, ErrRejected) {
			return "", clientsdk.WrapError(clientsdk.ErrCodeTransactionRejected, "message signing rejected", err)
		}
		return "", clientsdk.WrapError(clientsdk.ErrCodeTransactionFailed, "message signing failed", err)
	}
	return hexutil.Encode(signature), nil
}

// SignTypedData signs an EIP-712 payload when the wrapped signer
// supports it; the v1 surface never does.
func (a *Adapter) SignTypedData(ctx context.Context, payload clientsdk.TypedDataPayload) (string, error) {
	typed, ok := a.signer.(TypedDataSigner)
	if !ok {
		return "", clientsdk.NewClientError(clientsdk.ErrCodeUnsupportedProvider,
			fmt.Sprintf("%s signer does not support typed-data signing", a.adapterType), nil)
	}
	signature, err := typed.SignTypedData(ctx, payload)
	if err != nil {
		if errors.Is(err, ErrRejected) {
			return "", clientsdk.WrapError(clientsdk.ErrCodeTransactionRejected, "typed-data signing rejected", err)
		}
		return "", clientsdk.WrapError(clientsdk.ErrCodeTransactionFailed, "typed-data signing failed", err)
	}
	return hexutil.Encode(signature), nil
}

// SendCalls forwards a provider-specific RPC method when the concrete
// provider exposes raw RPC access.
func (a *Adapter) SendCalls(ctx context.Context, method string, params []interface{}) (interface{}, error) {
	caller, ok := a.provider.(RPCCaller)
	if !ok {
		return nil, clientsdk.NewClientError(clientsdk.ErrCodeUnsupportedProvider,
			"provider does not expose raw RPC access", nil)
	}
	var result interface{}
	if err := caller.CallContext(ctx, &result, method, params...); err != nil {
		return nil, clientsdk.WrapError(clientsdk.ErrCodeTransactionFailed,
			fmt.Sprintf("rpc call %s failed", method), err)
	}
	return result, nil
}

// checkChain verifies the request targets the chain this provider is
// bound to.
func (a *Adapter) checkChain(ctx context.Context, chainID int64) error {
	actual, err := a.chainID(ctx)
	if err != nil {
		return clientsdk.WrapError(clientsdk.ErrCodeTransactionFailed, "chain id query failed", err)
	}
	if actual.Cmp(big.NewInt(chainID)) != 0 {
		return clientsdk.NewClientError(clientsdk.ErrCodeUnsupportedNetwork,
			fmt.Sprintf("provider is bound to chain %s, request targets %d", actual, chainID), nil)
	}
	return nil
}

// buildAndSign converts a universal request into a signed native
// transaction. No library-specific type crosses back out of here.
func (a *Adapter) buildAndSign(ctx context.Context, request clientsdk.TransactionRequest) (*ethtypes.Transaction, error) {
	if err := clientsdk.ValidateTransactionRequest(request); err != nil {
		return nil, err
	}
	if err := a.checkChain(ctx, request.ChainID); err != nil {
		return nil, err
	}

	to := common.HexToAddress(request.To)
	value, _ := clientsdk.ParseAmount(request.Value)
	data, _ := clientsdk.ParseCalldata(request.Data)

	nonce, err := a.resolveNonce(ctx, request)
	if err != nil {
		return nil, err
	}
	gasLimit, err := a.resolveGasLimit(ctx, request, to, value, data)
	if err != nil {
		return nil, err
	}

	chainID := big.NewInt(request.ChainID)
	var tx *ethtypes.Transaction
	if a.dynamicFees && request.GasPrice == "" {
		feeCap, tipCap, err := a.resolveDynamicFees(ctx, request)
		if err != nil {
			return nil, err
		}
		tx = ethtypes.NewTx(&ethtypes.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			GasTipCap: tipCap,
			GasFeeCap: feeCap,
			Gas:       gasLimit,
			To:        &to,
			Value:     value,
			Data:      data,
		})
	} else {
		gasPrice, err := a.resolveGasPrice(ctx, request)
		if err != nil {
			return nil, err
		}
		tx = ethtypes.NewTx(&ethtypes.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      gasLimit,
			To:       &to,
			Value:    value,
			Data:     data,
		})
	}

	signed, err := a.signer.SignTx(ctx, tx, chainID)
	if err != nil {
		if errors.Is(err, ErrRejected) {
			return nil, clientsdk.WrapError(clientsdk.ErrCodeTransactionRejected, "transaction rejected", err)
		}
		return nil, clientsdk.WrapError(clientsdk.ErrCodeTransactionFailed, "transaction signing failed", err)
	}
	return signed, nil
}

func (a *Adapter) resolveNonce(ctx context.Context, request clientsdk.TransactionRequest) (uint64, error) {
	if request.Nonce != nil {
		return *request.Nonce, nil
	}
	nonce, err := a.provider.PendingNonceAt(ctx, a.signer.Address())
	if err != nil {
		return 0, clientsdk.WrapError(clientsdk.ErrCodeTransactionFailed, "nonce query failed", err)
	}
	return nonce, nil
}

func (a *Adapter) resolveGasLimit(ctx context.Context, request clientsdk.TransactionRequest, to common.Address, value *big.Int, data []byte) (uint64, error) {
	if request.GasLimit != "" {
		limit, err := clientsdk.ParseAmount(request.GasLimit)
		if err != nil {
			return 0, err
		}
		return limit.Uint64(), nil
	}
	from := a.signer.Address()
	limit, err := a.provider.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return 0, clientsdk.WrapError(clientsdk.ErrCodeTransactionFailed, "gas estimation failed", err)
	}
	return limit, nil
}

func (a *Adapter) resolveGasPrice(ctx context.Context, request clientsdk.TransactionRequest) (*big.Int, error) {
	if request.GasPrice != "" {
		return clientsdk.ParseAmount(request.GasPrice)
	}
	price, err := a.provider.SuggestGasPrice(ctx)
	if err != nil {
		return nil, clientsdk.WrapError(clientsdk.ErrCodeTransactionFailed, "gas price query failed", err)
	}
	return price, nil
}

func (a *Adapter) resolveDynamicFees(ctx context.Context, request clientsdk.TransactionRequest) (feeCap, tipCap *big.Int, err error) {
	if request.MaxPriorityFeePerGas != "" {
		tipCap, err = clientsdk.ParseAmount(request.MaxPriorityFeePerGas)
	} else {
		tipCap, err = a.gasTipCap(ctx)
		if err != nil {
			err = clientsdk.WrapError(clientsdk.ErrCodeTransactionFailed, "gas tip query failed", err)
		}
	}
	if err != nil {
		return nil, nil, err
	}

	if request.MaxFeePerGas != "" {
		feeCap, err = clientsdk.ParseAmount(request.MaxFeePerGas)
		if err != nil {
			return nil, nil, err
		}
		return feeCap, tipCap, nil
	}
	base, err := a.provider.SuggestGasPrice(ctx)
	if err != nil {
		return nil, nil, clientsdk.WrapError(clientsdk.ErrCodeTransactionFailed, "gas price query failed", err)
	}
	// fee cap = 2*base + tip, the usual headroom heuristic.
	feeCap = new(big.Int).Add(new(big.Int).Mul(base, big.NewInt(2)), tipCap)
	return feeCap, tipCap, nil
}

// waitMined polls for the receipt and then for the requested
// confirmation depth, surfacing ctx expiry as timeout.
func (a *Adapter) waitMined(ctx context.Context, hash common.Hash, request clientsdk.TransactionRequest, confirmations uint64) (*clientsdk.TransactionResponse, error) {
	if confirmations == 0 {
		confirmations = 1
	}
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := a.provider.TransactionReceipt(ctx, hash)
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, clientsdk.WrapError(clientsdk.ErrCodeTransactionFailed, "receipt query failed", err)
		}
		if receipt != nil {
			current, err := a.provider.BlockNumber(ctx)
			if err != nil {
				return nil, clientsdk.WrapError(clientsdk.ErrCodeTransactionFailed, "block number query failed", err)
			}
			minedAt := receipt.BlockNumber.Uint64()
			// A lagging head (load-balanced RPC, shallow reorg) can sit
			// behind the receipt's block; keep polling instead of letting
			// the depth subtraction wrap.
			if current >= minedAt {
				depth := current - minedAt + 1
				if depth >= confirmations {
					if receipt.Status == ethtypes.ReceiptStatusFailed {
						return nil, clientsdk.NewClientError(clientsdk.ErrCodeTransactionFailed,
							fmt.Sprintf("transaction %s reverted", hash.Hex()), nil)
					}
					return a.buildResponse(request, receipt, depth), nil
				}
			}
		}

		select {
		case <-ctx.Done():
			return nil, clientsdk.WrapError(clientsdk.ErrCodeTimeout,
				fmt.Sprintf("confirmation wait for %s exceeded", hash.Hex()), ctx.Err())
		case <-ticker.C:
		}
	}
}

// buildResponse converts a mined receipt into the universal response
// shape, populating every post-mining field.
func (a *Adapter) buildResponse(request clientsdk.TransactionRequest, receipt *ethtypes.Receipt, confirmations uint64) *clientsdk.TransactionResponse {
	blockNumber := receipt.BlockNumber.Uint64()
	logs := make([]clientsdk.LogEntry, 0, len(receipt.Logs))
	for _, log := range receipt.Logs {
		topics := make([]string, 0, len(log.Topics))
		for _, topic := range log.Topics {
			topics = append(topics, topic.Hex())
		}
		logs = append(logs, clientsdk.LogEntry{
			Address: log.Address.Hex(),
			Topics:  topics,
			Data:    hexutil.Encode(log.Data),
		})
	}

	effective := ""
	if receipt.EffectiveGasPrice != nil {
		effective = receipt.EffectiveGasPrice.String()
	}
	return &clientsdk.TransactionResponse{
		Hash:              receipt.TxHash.Hex(),
		ChainID:           request.ChainID,
		From:              a.signer.Address().Hex(),
		To:                request.To,
		BlockNumber:       &blockNumber,
		BlockHash:         receipt.BlockHash.Hex(),
		GasUsed:           new(big.Int).SetUint64(receipt.GasUsed).String(),
		EffectiveGasPrice: effective,
		Confirmations:     confirmations,
		Logs:              logs,
	}
}
