package clientsdk

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ParseAmount parses a monetary/gas field carried as a string. Decimal
// strings and 0x-prefixed hex strings are accepted; empty means zero.
func ParseAmount(value string) (*big.Int, error) {
	if value == "" {
		return new(big.Int), nil
	}
	base := 10
	digits := value
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		base = 16
		digits = value[2:]
	}
	amount, ok := new(big.Int).SetString(digits, base)
	if !ok || amount.Sign() < 0 {
		return nil, NewClientError(ErrCodeInvalidInput,
			fmt.Sprintf("invalid amount %q", value), nil)
	}
	return amount, nil
}

// ParseCalldata decodes a hex calldata string, with or without 0x prefix.
func ParseCalldata(data string) ([]byte, error) {
	if data == "" {
		return nil, nil
	}
	trimmed := strings.TrimPrefix(strings.TrimPrefix(data, "0x"), "0X")
	if len(trimmed)%2 != 0 {
		return nil, NewClientError(ErrCodeInvalidInput, "calldata has odd hex length", nil)
	}
	raw := common.FromHex(data)
	if raw == nil && trimmed != "" {
		return nil, NewClientError(ErrCodeInvalidInput, "calldata is not valid hex", nil)
	}
	return raw, nil
}

// ValidateTransactionRequest performs basic validation on a universal
// transaction request before it crosses an adapter boundary.
func ValidateTransactionRequest(r TransactionRequest) error {
	if !common.IsHexAddress(r.To) {
		return NewClientError(ErrCodeInvalidInput,
			fmt.Sprintf("invalid destination address %q", r.To), nil)
	}
	if r.ChainID <= 0 {
		return NewClientError(ErrCodeInvalidInput, "chain id is required", nil)
	}
	for field, value := range map[string]string{
		"value":                r.Value,
		"gasLimit":             r.GasLimit,
		"gasPrice":             r.GasPrice,
		"maxFeePerGas":         r.MaxFeePerGas,
		"maxPriorityFeePerGas": r.MaxPriorityFeePerGas,
	} {
		if _, err := ParseAmount(value); err != nil {
			return NewClientError(ErrCodeInvalidInput,
				fmt.Sprintf("invalid %s %q", field, value), nil)
		}
	}
	if r.GasPrice != "" && (r.MaxFeePerGas != "" || r.MaxPriorityFeePerGas != "") {
		return NewClientError(ErrCodeInvalidInput,
			"legacy gasPrice and EIP-1559 fee fields are mutually exclusive", nil)
	}
	if _, err := ParseCalldata(r.Data); err != nil {
		return err
	}
	return nil
}

// CostSummary aggregates the cost of an ordered step list.
type CostSummary struct {
	// NativeTotal in wei, decimal string.
	NativeTotal string `json:"nativeTotal"`
	// ERC20Totals maps lowercased token address to a decimal total.
	ERC20Totals map[string]string `json:"erc20Totals,omitempty"`
}

// TotalCost sums the per-step cost breakdowns. Steps without a cost
// contribute nothing.
func TotalCost(steps []TransactionStep) (CostSummary, error) {
	native := decimal.Zero
	tokens := make(map[string]decimal.Decimal)

	for _, step := range steps {
		if step.Cost == nil {
			continue
		}
		if step.Cost.NativeAmount != "" {
			amount, err := decimal.NewFromString(step.Cost.NativeAmount)
			if err != nil {
				return CostSummary{}, NewClientError(ErrCodeInvalidInput,
					fmt.Sprintf("step %s: invalid native amount %q", step.ID, step.Cost.NativeAmount), nil)
			}
			native = native.Add(amount)
		}
		for _, erc20 := range step.Cost.ERC20Amounts {
			amount, err := decimal.NewFromString(erc20.Amount)
			if err != nil {
				return CostSummary{}, NewClientError(ErrCodeInvalidInput,
					fmt.Sprintf("step %s: invalid token amount %q", step.ID, erc20.Amount), nil)
			}
			key := strings.ToLower(erc20.TokenAddress)
			tokens[key] = tokens[key].Add(amount)
		}
	}

	summary := CostSummary{NativeTotal: native.String()}
	if len(tokens) > 0 {
		summary.ERC20Totals = make(map[string]string, len(tokens))
		for addr, total := range tokens {
			summary.ERC20Totals[addr] = total.String()
		}
	}
	return summary, nil
}
