package incident

import "github.com/vigil-soc/vigil/pkg/store"

// DeriveTimings computes TTD/TTI/TTR/TTV/total duration from an incident's
// _state_timestamps ledger (§4.5, §7). Any missing waypoint leaves its
// metric at zero rather than erroring — partial ledgers are expected for
// incidents that escalate or get suppressed before reaching later states.
func DeriveTimings(inc store.Incident) store.Incident {
	ts := inc.StateTimestamps
	detected, hasDetected := ts[store.StatusDetected]
	investigating, hasInvestigating := ts[store.StatusInvestigating]
	executing, hasExecuting := ts[store.StatusExecuting]
	resolved, hasResolved := ts[store.StatusResolved]
	verifying, hasVerifying := ts[store.StatusVerifying]

	if hasDetected && hasInvestigating {
		inc.TTDSeconds = investigating.Sub(detected).Seconds()
	}
	if hasInvestigating && hasExecuting {
		inc.TTISeconds = executing.Sub(investigating).Seconds()
	}
	if hasExecuting && hasVerifying {
		inc.TTRSeconds = verifying.Sub(executing).Seconds()
	}
	if hasVerifying && hasResolved {
		inc.TTVSeconds = resolved.Sub(verifying).Seconds()
	}
	if hasDetected && hasResolved {
		inc.TotalDurationSeconds = resolved.Sub(detected).Seconds()
	}
	return inc
}
