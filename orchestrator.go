package clientsdk

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProgressFunc receives step lifecycle notifications. It is invoked
// synchronously immediately before each step starts (pending) and after
// it finishes (confirmed or failed), including the failing step, and
// never for steps after a failure.
type ProgressFunc func(step TransactionStep, index int, status StepStatus)

// StepContext is passed to before/after step hooks.
type StepContext struct {
	Ctx       context.Context
	Step      TransactionStep
	Index     int
	Total     int
	Timestamp time.Time
}

// StepResultContext carries a completed step's receipt and timing.
type StepResultContext struct {
	StepContext
	Receipt  *TransactionResponse
	Duration time.Duration
}

// StepFailureContext carries a failed step's error and timing.
type StepFailureContext struct {
	StepContext
	Error    error
	Duration time.Duration
}

// BeforeStepHook runs before a step executes. Returning an error aborts
// the flow before the step is submitted.
type BeforeStepHook func(ctx StepContext) error

// AfterStepHook runs after a step confirms.
type AfterStepHook func(ctx StepResultContext)

// OnStepFailureHook runs after a step fails, before the orchestrator
// returns. It observes only; failed steps are never recovered or
// retried here.
type OnStepFailureHook func(ctx StepFailureContext)

// ExecuteOptions configures one ExecuteSteps call.
type ExecuteOptions struct {
	// Confirmations is the depth each step waits for. Zero means one.
	Confirmations uint64

	// OnProgress receives the incremental step status stream.
	OnProgress ProgressFunc

	// Logger defaults to a nop logger.
	Logger *zap.Logger

	BeforeStep    []BeforeStepHook
	AfterStep     []AfterStepHook
	OnStepFailure []OnStepFailureHook
}

// ExecuteResult is the terminal outcome of a purchase flow. On failure
// Receipts holds an entry for every step that completed, so a caller
// can resume from the failed step rather than restart the purchase.
type ExecuteResult struct {
	ID       string                 `json:"id"`
	Status   ExecutionStatus        `json:"status"`
	Receipts []*TransactionResponse `json:"receipts"`

	// FailedIndex is the index of the failing step, or -1 on success.
	FailedIndex int `json:"failedIndex"`
}

// ExecuteSteps runs an ordered step list one at a time through the
// supplied adapter: Pending -> Executing(i) -> Completed | Failed.
//
// Steps are strictly ordered and never issued concurrently against the
// same adapter; later steps (mint) may presuppose earlier steps
// (approve) succeeded, and concurrent submission would race on nonce
// assignment. On any step failure the remaining steps are not
// attempted, the typed error is re-raised with the partial result
// attached, and no retry is performed - retrying a financial
// transaction is a caller decision.
func ExecuteSteps(ctx context.Context, adapter AccountAdapter, steps []TransactionStep, opts ExecuteOptions) (*ExecuteResult, error) {
	if adapter == nil {
		return nil, NewClientError(ErrCodeInvalidInput, "adapter is required", nil)
	}
	if len(steps) == 0 {
		return nil, NewClientError(ErrCodeInvalidInput, "at least one step is required", nil)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	result := &ExecuteResult{
		ID:          uuid.NewString(),
		Receipts:    make([]*TransactionResponse, 0, len(steps)),
		FailedIndex: -1,
	}

	for i, step := range steps {
		stepCtx := StepContext{
			Ctx:       ctx,
			Step:      step,
			Index:     i,
			Total:     len(steps),
			Timestamp: time.Now(),
		}

		notify(opts.OnProgress, step, i, StepStatusPending)
		logger.Info("executing step",
			zap.String("execution", result.ID),
			zap.String("step", step.Name),
			zap.String("type", string(step.Type)),
			zap.Int("index", i))

		started := time.Now()
		receipt, err := runStep(ctx, adapter, stepCtx, opts)
		if err != nil {
			notify(opts.OnProgress, step, i, StepStatusFailed)
			for _, hook := range opts.OnStepFailure {
				hook(StepFailureContext{StepContext: stepCtx, Error: err, Duration: time.Since(started)})
			}
			logger.Warn("step failed",
				zap.String("execution", result.ID),
				zap.String("step", step.Name),
				zap.Int("index", i),
				zap.Error(err))

			result.Status = ExecutionFailed
			result.FailedIndex = i

			failure := WrapError(CodeOf(err),
				fmt.Sprintf("step %d of %d (%s) failed", i+1, len(steps), step.Name), err)
			failure.Details = map[string]interface{}{
				"executionId": result.ID,
				"failedIndex": i,
				"completed":   len(result.Receipts),
				"receipts":    result.Receipts,
			}
			return result, failure
		}

		result.Receipts = append(result.Receipts, receipt)
		notify(opts.OnProgress, step, i, StepStatusConfirmed)
		for _, hook := range opts.AfterStep {
			hook(StepResultContext{StepContext: stepCtx, Receipt: receipt, Duration: time.Since(started)})
		}
		logger.Info("step confirmed",
			zap.String("execution", result.ID),
			zap.String("step", step.Name),
			zap.Int("index", i),
			zap.String("hash", receipt.Hash))
	}

	result.Status = ExecutionCompleted
	return result, nil
}

// runStep validates, runs before hooks, submits and checks the boundary
// invariant for one step.
func runStep(ctx context.Context, adapter AccountAdapter, stepCtx StepContext, opts ExecuteOptions) (*TransactionResponse, error) {
	if err := ValidateTransactionRequest(stepCtx.Step.Request); err != nil {
		return nil, err
	}
	for _, hook := range opts.BeforeStep {
		if err := hook(stepCtx); err != nil {
			return nil, WrapError(CodeOf(err),
				fmt.Sprintf("step %q aborted by hook", stepCtx.Step.Name), err)
		}
	}

	receipt, err := adapter.SendTransactionWithConfirmation(ctx, stepCtx.Step.Request, ConfirmationOptions{
		Confirmations: opts.Confirmations,
	})
	if err != nil {
		return nil, err
	}
	if err := receipt.Validate(); err != nil {
		return nil, err
	}
	if !receipt.Mined() {
		return nil, NewClientError(ErrCodeTransactionFailed,
			"adapter returned a pending response from a confirmation wait", nil)
	}
	return receipt, nil
}

func notify(progress ProgressFunc, step TransactionStep, index int, status StepStatus) {
	if progress != nil {
		progress(step, index, status)
	}
}

// VerifyFunds checks that the adapter's native balance covers the summed
// native cost of the step list. It is a preflight convenience; the
// orchestrator itself never blocks execution on it.
func VerifyFunds(ctx context.Context, adapter AccountAdapter, networkID int64, steps []TransactionStep) error {
	summary, err := TotalCost(steps)
	if err != nil {
		return err
	}
	required, err := decimal.NewFromString(summary.NativeTotal)
	if err != nil {
		return NewClientError(ErrCodeInvalidInput, "invalid cost total", nil)
	}
	if required.Sign() <= 0 {
		return nil
	}

	balanceStr, err := adapter.GetBalance(ctx, networkID, "")
	if err != nil {
		return err
	}
	balance, ok := new(big.Int).SetString(balanceStr, 10)
	if !ok {
		return NewClientError(ErrCodeInvalidInput,
			fmt.Sprintf("adapter returned non-decimal balance %q", balanceStr), nil)
	}
	if decimal.NewFromBigInt(balance, 0).LessThan(required) {
		return NewClientError(ErrCodeTransactionFailed,
			fmt.Sprintf("insufficient funds: have %s wei, need %s wei", balanceStr, summary.NativeTotal),
			map[string]interface{}{"balance": balanceStr, "required": summary.NativeTotal})
	}
	return nil
}
