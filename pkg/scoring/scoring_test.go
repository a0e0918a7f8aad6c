package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigmoidCalibration(t *testing.T) {
	assert.InDelta(t, 0.057, Sigmoid(0), 0.01)
	assert.InDelta(t, 0.5, Sigmoid(40), 0.01)
	assert.InDelta(t, 0.90, Sigmoid(72.5), 0.01)
}

func TestSigmoidClampsNegativeInput(t *testing.T) {
	assert.Equal(t, Sigmoid(0), Sigmoid(-15))
}

func TestPriorityScore_GeoAnomalyTierOne(t *testing.T) {
	in := Input{
		Severity:         SeverityHigh,
		AssetCriticality: TierOne,
		RiskSignal:       72.5,
		HistoricalFPRate: 0.02,
	}
	score := PriorityScore(in, DefaultWeights)
	require.InDelta(t, 0.9137, score, 0.01)
	assert.Equal(t, DispositionInvestigate, DispositionFor(score, DefaultThresholds))
}

func TestPriorityScore_Suppress(t *testing.T) {
	in := Input{
		Severity:         SeverityLow,
		AssetCriticality: TierThree,
		RiskSignal:       1.5,
		HistoricalFPRate: 0.85,
	}
	score := PriorityScore(in, DefaultWeights)
	require.InDelta(t, 0.19, score, 0.02)
	assert.Less(t, score, DefaultThresholds.Suppress)
	assert.Equal(t, DispositionSuppress, DispositionFor(score, DefaultThresholds))
}

func TestPriorityScore_IsIdempotent(t *testing.T) {
	in := Input{Severity: SeverityMedium, AssetCriticality: TierTwo, RiskSignal: 35, HistoricalFPRate: 0.1}
	first := PriorityScore(in, DefaultWeights)
	second := PriorityScore(in, DefaultWeights)
	assert.Equal(t, first, second)
}

func TestDispositionBoundaries(t *testing.T) {
	assert.Equal(t, DispositionInvestigate, DispositionFor(0.7, DefaultThresholds))
	assert.Equal(t, DispositionQueue, DispositionFor(0.4, DefaultThresholds))
	assert.Equal(t, DispositionSuppress, DispositionFor(0.39999, DefaultThresholds))
	assert.Equal(t, DispositionQueue, DispositionFor(0.69999, DefaultThresholds))
}

func TestUnknownLabelsFallBackToNeutralWeights(t *testing.T) {
	known := Input{Severity: SeverityMedium, AssetCriticality: TierThree, RiskSignal: 0, HistoricalFPRate: 0}
	unknown := Input{Severity: "bogus", AssetCriticality: "bogus", RiskSignal: 0, HistoricalFPRate: 0}
	assert.Equal(t, PriorityScore(known, DefaultWeights), PriorityScore(unknown, DefaultWeights))
}
