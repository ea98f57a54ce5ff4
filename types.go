package clientsdk

import (
	"github.com/google/uuid"
)

// AdapterType identifies which wallet-library surface an adapter wraps.
// The set is closed: detection and dispatch only ever produce these values.
type AdapterType string

const (
	// AdapterTypeSignerV1 wraps the legacy signer/provider surface
	// (native big-integer values, legacy gas pricing, NetworkID).
	AdapterTypeSignerV1 AdapterType = "eth-signer-v1"
	// AdapterTypeSignerV2 wraps the current signer/provider surface
	// (EIP-1559 fee fields, ChainID, typed-data signing).
	AdapterTypeSignerV2 AdapterType = "eth-signer-v2"
	// AdapterTypeWalletClient wraps the typed wallet-client surface
	// (transport/chain/mode clients with hex-quantity strings).
	AdapterTypeWalletClient AdapterType = "wallet-client"
)

// TransactionRequest is the universal, library-agnostic shape of one
// unsigned transaction intent. Monetary and gas fields are carried as
// decimal strings (hex with 0x prefix also accepted for Value) so no
// precision is lost crossing between libraries with different
// big-integer representations.
type TransactionRequest struct {
	To      string `json:"to"`
	ChainID int64  `json:"chainId"`

	// Value in wei. Empty means zero.
	Value string `json:"value,omitempty"`
	// Data is the hex-encoded calldata, with or without 0x prefix.
	Data string `json:"data,omitempty"`

	GasLimit             string `json:"gasLimit,omitempty"`
	GasPrice             string `json:"gasPrice,omitempty"`
	MaxFeePerGas         string `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas,omitempty"`

	Nonce  *uint64 `json:"nonce,omitempty"`
	TxType *uint8  `json:"type,omitempty"`
}

// LogEntry is one decoded log from a mined transaction.
type LogEntry struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
	Data    string   `json:"data"`
}

// TransactionResponse is the result of a submitted transaction.
// A response is either pending (only Hash/ChainID/From/To populated) or
// mined (all post-mining fields populated). No partially-mined state is
// valid; every adapter enforces this at its boundary via Validate.
type TransactionResponse struct {
	Hash    string `json:"hash"`
	ChainID int64  `json:"chainId"`
	From    string `json:"from"`
	To      string `json:"to"`

	BlockNumber       *uint64    `json:"blockNumber,omitempty"`
	BlockHash         string     `json:"blockHash,omitempty"`
	GasUsed           string     `json:"gasUsed,omitempty"`
	EffectiveGasPrice string     `json:"effectiveGasPrice,omitempty"`
	Confirmations     uint64     `json:"confirmations,omitempty"`
	Logs              []LogEntry `json:"logs,omitempty"`
}

// Mined reports whether the response carries post-mining state.
func (r *TransactionResponse) Mined() bool {
	return r.BlockNumber != nil
}

// Validate checks the pending-xor-mined invariant.
func (r *TransactionResponse) Validate() error {
	if r.Hash == "" {
		return NewClientError(ErrCodeInvalidInput, "transaction response requires a hash", nil)
	}
	if r.BlockNumber == nil {
		if r.GasUsed != "" || r.BlockHash != "" || r.Confirmations != 0 || len(r.Logs) > 0 {
			return NewClientError(ErrCodeInvalidInput,
				"pending response must not carry post-mining fields", nil)
		}
		return nil
	}
	if r.GasUsed == "" || r.BlockHash == "" || r.Confirmations == 0 {
		return NewClientError(ErrCodeInvalidInput,
			"mined response must carry blockHash, gasUsed and confirmations", nil)
	}
	return nil
}

// StepType tags the kind of on-chain operation a step performs.
type StepType string

const (
	StepTypeApprove StepType = "approve"
	StepTypeMint    StepType = "mint"
)

// ERC20Amount is one token amount within a step's cost breakdown.
type ERC20Amount struct {
	TokenAddress string `json:"tokenAddress"`
	Amount       string `json:"amount"` // decimal string, token base units
}

// StepCost is the optional cost breakdown of one step.
type StepCost struct {
	// NativeAmount in wei, decimal string. Empty means zero.
	NativeAmount string        `json:"nativeAmount,omitempty"`
	ERC20Amounts []ERC20Amount `json:"erc20Amounts,omitempty"`
}

// TransactionStep is one unit of a purchase: created during purchase
// preparation, consumed exactly once by ExecuteSteps, never mutated.
type TransactionStep struct {
	ID      string             `json:"id"`
	Name    string             `json:"name"`
	Type    StepType           `json:"type"`
	Request TransactionRequest `json:"request"`
	Cost    *StepCost          `json:"cost,omitempty"`
}

// NewStep builds a step with a generated id.
func NewStep(name string, stepType StepType, request TransactionRequest) TransactionStep {
	return TransactionStep{
		ID:      uuid.NewString(),
		Name:    name,
		Type:    stepType,
		Request: request,
	}
}

// StepStatus is the progress state reported for one step.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusConfirmed StepStatus = "confirmed"
	StepStatusFailed    StepStatus = "failed"
)

// ExecutionStatus is the terminal state of a whole purchase flow.
type ExecutionStatus string

const (
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
)
