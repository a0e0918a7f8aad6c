package config

import "github.com/vigil-soc/vigil/pkg/scoring"

// ResolveWeights overlays any configured overrides onto the pinned scoring
// defaults. A zero-value override field keeps the default, consistent with
// every other optional YAML field in this package.
func (c ScoringConfig) ResolveWeights() scoring.Weights {
	w := scoring.DefaultWeights
	if c.Weights == nil {
		return w
	}
	if c.Weights.Severity != 0 {
		w.Severity = c.Weights.Severity
	}
	if c.Weights.AssetCriticality != 0 {
		w.AssetCriticality = c.Weights.AssetCriticality
	}
	if c.Weights.Corroboration != 0 {
		w.Corroboration = c.Weights.Corroboration
	}
	if c.Weights.Novelty != 0 {
		w.Novelty = c.Weights.Novelty
	}
	return w
}

// ResolveThresholds overlays any configured overrides onto the pinned
// disposition thresholds.
func (c ScoringConfig) ResolveThresholds() scoring.Thresholds {
	t := scoring.DefaultThresholds
	if c.Thresholds == nil {
		return t
	}
	if c.Thresholds.Investigate != 0 {
		t.Investigate = c.Thresholds.Investigate
	}
	if c.Thresholds.Suppress != 0 {
		t.Suppress = c.Thresholds.Suppress
	}
	return t
}
