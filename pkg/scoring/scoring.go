// Package scoring implements Vigil's pure priority-scoring and disposition
// rules. Nothing here performs I/O: every function is a deterministic
// transform over its inputs, so the same enrichment always yields the same
// priority score (idempotence law, §8 of the specification).
package scoring

import "math"

// Severity labels accepted on an alert.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

// Asset criticality tiers.
const (
	TierOne   = "tier-1"
	TierTwo   = "tier-2"
	TierThree = "tier-3"
)

// Disposition is the triage verdict.
type Disposition string

const (
	DispositionInvestigate Disposition = "investigate"
	DispositionQueue       Disposition = "queue"
	DispositionSuppress    Disposition = "suppress"
)

// Weights holds the linear combination coefficients for the priority score.
// The defaults reproduce the formula pinned by the specification; they are
// calibrated, not derived, and a future change to them needs the round-trip
// tests in scoring_test.go updated in lockstep.
type Weights struct {
	Severity        float64
	AssetCriticality float64
	Corroboration   float64
	Novelty         float64
}

// DefaultWeights is the specification's pinned weight set:
// 0.30*severity + 0.30*asset_criticality + 0.25*corroboration + 0.15*(1-fp_rate).
var DefaultWeights = Weights{
	Severity:        0.30,
	AssetCriticality: 0.30,
	Corroboration:   0.25,
	Novelty:         0.15,
}

// Sigmoid parameters for corroboration: σ(k·(x−x0)).
const (
	corroborationK  = 0.07
	corroborationX0 = 40.0
)

// Thresholds configures the disposition rule boundaries.
type Thresholds struct {
	Investigate float64 // score >= Investigate -> investigate
	Suppress    float64 // score <  Suppress    -> suppress; else queue
}

// DefaultThresholds matches the specification's default disposition rule.
var DefaultThresholds = Thresholds{
	Investigate: 0.7,
	Suppress:    0.4,
}

// Input is every raw signal the triage handler gathers before scoring.
type Input struct {
	Severity          string  // critical|high|medium|low (unknown -> medium weight)
	AssetCriticality  string  // tier-1|tier-2|tier-3 (unknown -> tier-3 weight)
	RiskSignal        float64 // raw corroboration signal, clamped to >= 0
	HistoricalFPRate  float64 // clamped to [0,1]
}

// severityWeight maps a severity label to its scoring weight.
func severityWeight(s string) float64 {
	switch s {
	case SeverityCritical:
		return 1.0
	case SeverityHigh:
		return 0.8
	case SeverityMedium:
		return 0.5
	case SeverityLow:
		return 0.2
	default:
		return 0.5
	}
}

// criticalityWeight maps an asset tier to its scoring weight.
func criticalityWeight(tier string) float64 {
	switch tier {
	case TierOne:
		return 1.0
	case TierTwo:
		return 0.6
	case TierThree:
		return 0.3
	default:
		return 0.3
	}
}

// Sigmoid computes σ(k·(x−x0)) with x clamped to >= 0.
func Sigmoid(x float64) float64 {
	if x < 0 {
		x = 0
	}
	return 1.0 / (1.0 + math.Exp(-corroborationK*(x-corroborationX0)))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// round4 rounds to 4 decimal places, matching the specification's output
// precision requirement.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// PriorityScore computes the weighted priority score for a triage input.
// The result is rounded to 4 decimal places.
func PriorityScore(in Input, w Weights) float64 {
	sev := severityWeight(in.Severity)
	crit := criticalityWeight(in.AssetCriticality)
	corroboration := Sigmoid(in.RiskSignal)
	novelty := 1 - clamp01(in.HistoricalFPRate)

	score := w.Severity*sev + w.AssetCriticality*crit + w.Corroboration*corroboration + w.Novelty*novelty
	return round4(score)
}

// DispositionFor applies the (configurable) disposition rule to a priority
// score: score >= t.Investigate -> investigate; score < t.Suppress ->
// suppress; otherwise queue.
func DispositionFor(score float64, t Thresholds) Disposition {
	if score >= t.Investigate {
		return DispositionInvestigate
	}
	if score < t.Suppress {
		return DispositionSuppress
	}
	return DispositionQueue
}
