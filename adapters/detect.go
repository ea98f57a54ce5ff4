// Package adapters resolves arbitrary wallet objects into account
// adapters: explicit, statically-typed constructors for callers that
// know their library, and a confidence-scored structural detector for
// callers that do not.
package adapters

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	clientsdk "github.com/manifoldxyz/client-sdk-sub000"
	"github.com/manifoldxyz/client-sdk-sub000/adapters/ethsigner"
	"github.com/manifoldxyz/client-sdk-sub000/adapters/walletclient"
)

// DefaultThreshold is the minimum confidence a candidate must reach for
// detection to accept it. Below it the SDK refuses to guess: a wrong
// guess risks sending a malformed transaction.
const DefaultThreshold = 0.5

// priority is the fixed tie-break order between candidates whose scores
// are equal at or above the threshold. The two signer versions are
// structurally close, so the newer surface wins when markers balance.
var priority = []clientsdk.AdapterType{
	clientsdk.AdapterTypeSignerV2,
	clientsdk.AdapterTypeSignerV1,
	clientsdk.AdapterTypeWalletClient,
}

// DetectionResult reports the outcome of structural detection. Matched
// is empty when no candidate reached the threshold; Features always
// carries the full matched-feature list for diagnostics.
type DetectionResult struct {
	Matched    clientsdk.AdapterType `json:"matched,omitempty"`
	Confidence float64               `json:"confidence"`
	Features   []string              `json:"features"`
}

// probe is one structural fingerprint: a membership test plus the
// weight it contributes to each candidate. Negative weights encode
// mutually exclusive markers - a marker unique to one version of a
// surface lowers confidence in its sibling version.
type probe struct {
	feature string
	match   func(object interface{}) bool
	weights map[clientsdk.AdapterType]float64
}

var probes = []probe{
	{
		feature: "signer:address",
		match: func(o interface{}) bool {
			_, ok := o.(interface{ Address() common.Address })
			return ok
		},
		weights: map[clientsdk.AdapterType]float64{
			clientsdk.AdapterTypeSignerV1: 0.20,
			clientsdk.AdapterTypeSignerV2: 0.20,
		},
	},
	{
		feature: "signer:sign-tx",
		match: func(o interface{}) bool {
			_, ok := o.(interface {
				SignTx(ctx context.Context, tx *ethtypes.Transaction, chainID *big.Int) (*ethtypes.Transaction, error)
			})
			return ok
		},
		weights: map[clientsdk.AdapterType]float64{
			clientsdk.AdapterTypeSignerV1: 0.15,
			clientsdk.AdapterTypeSignerV2: 0.15,
		},
	},
	{
		feature: "signer:provider-v1",
		match: func(o interface{}) bool {
			_, ok := o.(ethsigner.SignerV1)
			return ok
		},
		weights: map[clientsdk.AdapterType]float64{
			clientsdk.AdapterTypeSignerV1: 0.35,
			clientsdk.AdapterTypeSignerV2: -0.15,
		},
	},
	{
		feature: "signer:provider-v2",
		match: func(o interface{}) bool {
			_, ok := o.(ethsigner.SignerV2)
			return ok
		},
		weights: map[clientsdk.AdapterType]float64{
			clientsdk.AdapterTypeSignerV2: 0.35,
			clientsdk.AdapterTypeSignerV1: -0.15,
		},
	},
	{
		feature: "signer:typed-data",
		match: func(o interface{}) bool {
			_, ok := o.(ethsigner.TypedDataSigner)
			return ok
		},
		weights: map[clientsdk.AdapterType]float64{
			clientsdk.AdapterTypeSignerV2: 0.10,
		},
	},
	{
		feature: "client:transport",
		match: func(o interface{}) bool {
			_, ok := o.(interface{ Transport() string })
			return ok
		},
		weights: map[clientsdk.AdapterType]float64{
			clientsdk.AdapterTypeWalletClient: 0.15,
		},
	},
	{
		feature: "client:chain",
		match: func(o interface{}) bool {
			_, ok := o.(interface{ Chain() walletclient.ChainInfo })
			return ok
		},
		weights: map[clientsdk.AdapterType]float64{
			clientsdk.AdapterTypeWalletClient: 0.15,
		},
	},
	{
		feature: "client:mode",
		match: func(o interface{}) bool {
			_, ok := o.(interface{ Mode() string })
			return ok
		},
		weights: map[clientsdk.AdapterType]float64{
			clientsdk.AdapterTypeWalletClient: 0.10,
		},
	},
	{
		feature: "client:request",
		match: func(o interface{}) bool {
			_, ok := o.(walletclient.Client)
			return ok
		},
		weights: map[clientsdk.AdapterType]float64{
			clientsdk.AdapterTypeWalletClient: 0.10,
		},
	},
	{
		// Address enumeration and submission together mark a
		// write-capable client rather than a read-only one.
		feature: "client:write-capable",
		match: func(o interface{}) bool {
			_, ok := o.(walletclient.WriteClient)
			return ok
		},
		weights: map[clientsdk.AdapterType]float64{
			clientsdk.AdapterTypeWalletClient: 0.30,
		},
	},
}

// DetectOption tunes detection.
type DetectOption func(*detectConfig)

type detectConfig struct {
	threshold float64
}

// WithThreshold overrides the acceptance threshold.
func WithThreshold(threshold float64) DetectOption {
	return func(c *detectConfig) {
		if threshold > 0 {
			c.threshold = threshold
		}
	}
}

// Detect scores an opaque object against the structural fingerprints of
// each supported library and returns the best candidate, if any reaches
// the acceptance threshold. Callers that know their library should use
// the explicit constructors instead.
func Detect(object interface{}, opts ...DetectOption) DetectionResult {
	cfg := detectConfig{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(&cfg)
	}

	scores := make(map[clientsdk.AdapterType]float64, len(priority))
	var features []string
	if object != nil {
		for _, p := range probes {
			if !p.match(object) {
				continue
			}
			features = append(features, p.feature)
			for candidate, weight := range p.weights {
				scores[candidate] += weight
			}
		}
	}

	// Highest score wins; exact ties resolve by the fixed priority
	// order, never by map iteration.
	best := clientsdk.AdapterType("")
	bestScore := 0.0
	for _, candidate := range priority {
		score := scores[candidate]
		if score > bestScore {
			best = candidate
			bestScore = score
		}
	}

	result := DetectionResult{Confidence: clamp(bestScore), Features: features}
	if best != "" && bestScore >= cfg.threshold {
		result.Matched = best
	}
	return result
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
