package main

import (
	"context"
	"fmt"
	"time"

	"github.com/vigil-soc/vigil/pkg/store"
)

// scenario is one of the specification's seed scenarios (§8): a literal
// alert plus the tool-catalog fixtures its handlers read back while
// driving the incident to a terminal state.
type scenario struct {
	id    string
	name  string
	alert store.Alert
	// seed writes every tool-catalog fixture this scenario's handlers read
	// back. incidentID is the incident id the scenario runner predicts for
	// this alert (each scenario runs against a fresh store, so it is always
	// the first incident created in that process).
	seed func(ctx context.Context, s store.Store, incidentID string) error
}

func seedDoc(ctx context.Context, s store.Store, index, id string, doc map[string]any) error {
	_, err := s.Index(ctx, index, id, doc, false)
	return err
}

// seedHealthMetrics writes the three health_comparison fixtures the
// verifier's measure() reads back for service (§4.6's error_rate <=1.0,
// avg_latency <= derived target, throughput >=80 criteria). Writing the
// same (asset, metric) ids again overwrites the prior values, which
// scenario 3 uses to simulate a service recovering mid-reflection.
func seedHealthMetrics(ctx context.Context, s store.Store, asset string, passing bool) error {
	errorRate, avgLatency, throughput := 5.0, 800.0, 10.0
	if passing {
		errorRate, avgLatency, throughput = 0.3, 50.0, 120.0
	}
	metrics := map[string]float64{
		"error_rate":  errorRate,
		"avg_latency": avgLatency,
		"throughput":  throughput,
	}
	for metric, value := range metrics {
		id := asset + ":" + metric
		if err := seedDoc(ctx, s, "vigil-tool-health-metrics", id, map[string]any{
			"service": asset, "metric": metric, "value": value,
		}); err != nil {
			return err
		}
	}
	return nil
}

var scenarios = []scenario{
	{
		id:   "1",
		name: "geo anomaly, tier-1",
		alert: store.Alert{
			ID:       "alert-geo-anomaly-01",
			RuleID:   "waf-geo-impossible-travel",
			Severity: "high",
			Asset:    "srv-payment-01",
			Source:   "203.0.113.42",
		},
		seed: func(ctx context.Context, s store.Store, incidentID string) error {
			if err := seedDoc(ctx, s, "vigil-tool-alert-enrichment", "alert-geo-anomaly-01", map[string]any{
				"alert_id": "alert-geo-anomaly-01", "asset": "srv-payment-01",
				"risk_signal": 72.5, "correlated_counts": 4.0,
			}); err != nil {
				return err
			}
			if err := seedDoc(ctx, s, "vigil-tool-fp-rates", "waf-geo-impossible-travel", map[string]any{
				"rule_id": "waf-geo-impossible-travel", "fp_rate": 0.02,
			}); err != nil {
				return err
			}
			if err := seedDoc(ctx, s, "vigil-tool-asset-criticality", "srv-payment-01", map[string]any{
				"asset": "srv-payment-01", "criticality": "tier-1",
			}); err != nil {
				return err
			}
			if err := seedHealthMetrics(ctx, s, "srv-payment-01", true); err != nil {
				return err
			}
			return seedRunbook(ctx, s, "rb-credential-compromise", 1, "security")
		},
	},
	{
		id:   "2",
		name: "bad deployment",
		alert: store.Alert{
			ID:       "alert-bad-deploy-01",
			RuleID:   "sentinel-error-rate-spike",
			Severity: "high",
			Asset:    "checkout-gateway",
			Source:   "sentinel",
		},
		seed: func(ctx context.Context, s store.Store, incidentID string) error {
			if err := seedDoc(ctx, s, "vigil-tool-alert-enrichment", "alert-bad-deploy-01", map[string]any{
				"alert_id": "alert-bad-deploy-01", "asset": "checkout-gateway",
				"risk_signal": 55.0, "correlated_counts": 2.0,
			}); err != nil {
				return err
			}
			if err := seedDoc(ctx, s, "vigil-tool-fp-rates", "sentinel-error-rate-spike", map[string]any{
				"rule_id": "sentinel-error-rate-spike", "fp_rate": 0.1,
			}); err != nil {
				return err
			}
			if err := seedDoc(ctx, s, "vigil-tool-asset-criticality", "checkout-gateway", map[string]any{
				"asset": "checkout-gateway", "criticality": "tier-1",
			}); err != nil {
				return err
			}
			if err := seedDoc(ctx, s, "vigil-tool-change-correlation", incidentID, map[string]any{
				"incident_id": incidentID, "matched": true, "time_gap_seconds": 30.0, "commit": "a3f8c21",
			}); err != nil {
				return err
			}
			if err := seedHealthMetrics(ctx, s, "checkout-gateway", true); err != nil {
				return err
			}
			return seedRunbook(ctx, s, "rb-bad-deployment-rollback", 1, "operational")
		},
	},
	{
		id:   "3",
		name: "reflection loop",
		alert: store.Alert{
			ID:       "alert-reflection-01",
			RuleID:   "edr-lateral-movement",
			Severity: "critical",
			Asset:    "srv-auth-02",
			Source:   "edr",
		},
		seed: func(ctx context.Context, s store.Store, incidentID string) error {
			if err := seedDoc(ctx, s, "vigil-tool-alert-enrichment", "alert-reflection-01", map[string]any{
				"alert_id": "alert-reflection-01", "asset": "srv-auth-02",
				"risk_signal": 65.0, "correlated_counts": 3.0,
			}); err != nil {
				return err
			}
			if err := seedDoc(ctx, s, "vigil-tool-fp-rates", "edr-lateral-movement", map[string]any{
				"rule_id": "edr-lateral-movement", "fp_rate": 0.05,
			}); err != nil {
				return err
			}
			if err := seedDoc(ctx, s, "vigil-tool-asset-criticality", "srv-auth-02", map[string]any{
				"asset": "srv-auth-02", "criticality": "tier-1",
			}); err != nil {
				return err
			}
			// Seed failing health values so the first verification fails and
			// the incident reflects, then flip them to passing shortly after
			// the verifier's stabilization delay so the second verification
			// (after re-investigation/re-planning/re-execution) succeeds.
			if err := seedHealthMetrics(ctx, s, "srv-auth-02", false); err != nil {
				return err
			}
			go func() {
				time.Sleep(15 * time.Second)
				_ = seedHealthMetrics(ctx, s, "srv-auth-02", true)
			}()
			return seedRunbook(ctx, s, "rb-credential-compromise", 1, "security")
		},
	},
	{
		id:   "4",
		name: "suppress",
		alert: store.Alert{
			ID:       "alert-suppress-01",
			RuleID:   "ops-noisy-scanner",
			Severity: "low",
			Asset:    "srv-batch-17",
			Source:   "vuln-scanner",
		},
		seed: func(ctx context.Context, s store.Store, incidentID string) error {
			if err := seedDoc(ctx, s, "vigil-tool-alert-enrichment", "alert-suppress-01", map[string]any{
				"alert_id": "alert-suppress-01", "asset": "srv-batch-17",
				"risk_signal": 1.5, "correlated_counts": 0.0,
			}); err != nil {
				return err
			}
			if err := seedDoc(ctx, s, "vigil-tool-fp-rates", "ops-noisy-scanner", map[string]any{
				"rule_id": "ops-noisy-scanner", "fp_rate": 0.85,
			}); err != nil {
				return err
			}
			return seedDoc(ctx, s, "vigil-tool-asset-criticality", "srv-batch-17", map[string]any{
				"asset": "srv-batch-17", "criticality": "tier-3",
			})
		},
	},
	{
		id:   "5",
		name: "approval reject",
		alert: store.Alert{
			ID:       "alert-approval-reject-01",
			RuleID:   "edr-ransomware-indicators",
			Severity: "critical",
			Asset:    "srv-payment-01",
			Source:   "edr",
		},
		seed: func(ctx context.Context, s store.Store, incidentID string) error {
			if err := seedDoc(ctx, s, "vigil-tool-alert-enrichment", "alert-approval-reject-01", map[string]any{
				"alert_id": "alert-approval-reject-01", "asset": "srv-payment-01",
				"risk_signal": 80.0, "correlated_counts": 5.0,
			}); err != nil {
				return err
			}
			if err := seedDoc(ctx, s, "vigil-tool-fp-rates", "edr-ransomware-indicators", map[string]any{
				"rule_id": "edr-ransomware-indicators", "fp_rate": 0.01,
			}); err != nil {
				return err
			}
			if err := seedDoc(ctx, s, "vigil-tool-asset-criticality", "srv-payment-01", map[string]any{
				"asset": "srv-payment-01", "criticality": "tier-1",
			}); err != nil {
				return err
			}
			if err := seedHealthMetrics(ctx, s, "srv-payment-01", true); err != nil {
				return err
			}
			return seedRunbook(ctx, s, "rb-ransomware-containment", 1, "security")
		},
	},
	{
		id:   "6",
		name: "escalation after 3 reflections",
		alert: store.Alert{
			ID:       "alert-escalation-01",
			RuleID:   "edr-data-exfil",
			Severity: "critical",
			Asset:    "srv-db-03",
			Source:   "edr",
		},
		seed: func(ctx context.Context, s store.Store, incidentID string) error {
			if err := seedDoc(ctx, s, "vigil-tool-alert-enrichment", "alert-escalation-01", map[string]any{
				"alert_id": "alert-escalation-01", "asset": "srv-db-03",
				"risk_signal": 70.0, "correlated_counts": 4.0,
			}); err != nil {
				return err
			}
			if err := seedDoc(ctx, s, "vigil-tool-fp-rates", "edr-data-exfil", map[string]any{
				"rule_id": "edr-data-exfil", "fp_rate": 0.03,
			}); err != nil {
				return err
			}
			return seedDoc(ctx, s, "vigil-tool-asset-criticality", "srv-db-03", map[string]any{
				"asset": "srv-db-03", "criticality": "tier-1",
			})
			// health_comparison is deliberately left unseeded: the verifier's
			// measure() defaults to 0 on a miss, so throughput fails its >= 80
			// criterion on every pass (0 still satisfies the two upper-bound
			// criteria), health_score stays below the 0.8 pass bar, and the
			// incident reflects three times before escalating.
		},
	},
}

func seedRunbook(ctx context.Context, s store.Store, id string, rank int, incidentType string) error {
	_, err := s.Index(ctx, store.IndexRunbooks, id, store.Runbook{
		ID:   id,
		Name: id,
		Rank: rank,
		Steps: []store.PlanAction{
			{Order: 1, ActionType: store.ActionContainment, Description: "isolate affected host from the network", TargetSystem: "firewall", TargetAsset: "affected-host"},
			{Order: 2, ActionType: store.ActionRemediation, Description: "restart affected deployment", TargetSystem: "orchestrator", TargetAsset: "affected-service", ApprovalRequired: incidentType == "operational"},
			{Order: 3, ActionType: store.ActionCommunication, Description: "notify stakeholders of containment action", TargetSystem: "chat", TargetAsset: "security-team"},
			{Order: 4, ActionType: store.ActionDocumentation, Description: "record incident findings and timeline", TargetSystem: "ticketing", TargetAsset: "incident-record"},
		},
	}, false)
	return err
}

func findScenario(id string) (scenario, error) {
	for _, sc := range scenarios {
		if sc.id == id {
			return sc, nil
		}
	}
	return scenario{}, fmt.Errorf("unknown scenario id %q", id)
}
