package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/vigil-soc/vigil/pkg/a2a"
	"github.com/vigil-soc/vigil/pkg/agents"
	"github.com/vigil-soc/vigil/pkg/approval"
	"github.com/vigil-soc/vigil/pkg/audit"
	"github.com/vigil-soc/vigil/pkg/config"
	"github.com/vigil-soc/vigil/pkg/contracts"
	"github.com/vigil-soc/vigil/pkg/coordinator"
	"github.com/vigil-soc/vigil/pkg/incident"
	"github.com/vigil-soc/vigil/pkg/integration"
	"github.com/vigil-soc/vigil/pkg/store"
	"github.com/vigil-soc/vigil/pkg/store/sqlaudit"
	"github.com/vigil-soc/vigil/pkg/toolexec"
)

// system bundles every wired component main needs, so the CLI subcommand
// handlers and the ambient server share one construction path.
type system struct {
	cfg         *config.Config
	store       store.Store
	integrations *integration.Registry
	router      *a2a.Router
	machine     *incident.Machine
	coordinator *coordinator.Coordinator
	sqlClient   *sqlaudit.Client
}

// buildSystem wires every package per §4 of the specification: config ->
// integrations -> tool catalog -> agent handlers -> A2A router -> incident
// machine -> coordinator.
func buildSystem(ctx context.Context, cfg *config.Config) (*system, error) {
	docStore := store.NewMemStore()

	integrations, err := integration.NewRegistry(cfg)
	if err != nil {
		return nil, fmt.Errorf("building integration registry: %w", err)
	}

	catalog, err := toolexec.LoadCatalog(cfg.ToolCatalog.Path)
	if err != nil {
		return nil, fmt.Errorf("loading tool catalog: %w", err)
	}
	executor := toolexec.NewExecutor(catalog, docStore)

	var auditWriter interface {
		WriteAudit(ctx context.Context, rec store.ActionAuditRecord)
		Record(ctx context.Context, rec store.AgentTelemetry)
	}
	storeWriter := audit.NewStoreWriter(docStore)
	auditWriter = storeWriter

	var sqlClient *sqlaudit.Client
	if sqlCfg, ok, err := sqlaudit.LoadConfigFromEnv(); err != nil {
		return nil, fmt.Errorf("loading sql audit mirror config: %w", err)
	} else if ok {
		sqlClient, err = sqlaudit.NewClient(ctx, sqlCfg)
		if err != nil {
			return nil, fmt.Errorf("connecting sql audit mirror: %w", err)
		}
		auditWriter = audit.NewSQLMirror(sqlClient, storeWriter)
	}

	approvalChannel := "#security-approvals"
	gate := approval.NewGate(docStore, approval.NewChatNotifier(integrations, approvalChannel), cfg.Approval)

	triage := agents.NewTriageHandler(executor, cfg.Scoring.ResolveWeights(), cfg.Scoring.ResolveThresholds())
	investigator := agents.NewInvestigatorHandler(executor)
	threatHunter := agents.NewThreatHunterHandler(executor)
	commander := agents.NewPlanRemediationHandler(resolvePlanInput(docStore))
	executorHandler := agents.NewExecutorHandler(integrations, gate, auditWriter)
	verifier := agents.NewVerifierHandler(executor)

	router := a2a.NewRouter(cfg.AgentTimeoutRegistry.TimeoutFor, auditWriter)
	router.Register("triage", triage.Handle)
	router.Register("investigator", investigator.Handle)
	router.Register("threat_hunter", threatHunter.Handle)
	router.Register("commander", commander.Handle)
	router.Register("executor", executorHandler.Handle)
	router.Register("verifier", verifier.Handle)

	machine := incident.NewMachine(docStore)

	_, ticketingConfigured := cfg.IntegrationRegistry.GetAll()["ticketing"]
	notifier := coordinator.NewChatNotifier(integrations, "#security-incidents", ticketingConfigured)

	coord := coordinator.New(machine, router, docStore, notifier, coordinator.Year, sequenceCounter())

	return &system{
		cfg:          cfg,
		store:        docStore,
		integrations: integrations,
		router:       router,
		machine:      machine,
		coordinator:  coord,
		sqlClient:    sqlClient,
	}, nil
}

// sequenceCounter returns a monotonic per-process incident sequence
// generator, starting at 1.
func sequenceCounter() func() int {
	n := 0
	return func() int {
		n++
		return n
	}
}

// resolvePlanInput builds the commander's BuildPlanInput by reading the
// triggering incident's affected assets back out of the document store and
// pulling every stored runbook, ranked ascending.
func resolvePlanInput(s store.Store) func(req contracts.PlanRemediationRequest) agents.BuildPlanInput {
	return func(req contracts.PlanRemediationRequest) agents.BuildPlanInput {
		ctx := context.Background()
		in := agents.BuildPlanInput{
			IncidentType: req.IncidentType,
			Severity:     "high",
			RootCause:    req.RootCause,
		}

		if versioned, err := s.Get(ctx, store.IndexIncidents, req.IncidentID); err == nil {
			if inc, ok := versioned.Doc.(store.Incident); ok {
				in.Severity = inc.Severity
				in.AffectedServices = inc.AffectedAssets
			}
		}

		docs, err := s.Search(ctx, store.IndexRunbooks, store.SearchQuery{}, nil, 100)
		if err == nil {
			runbooks := make([]store.Runbook, 0, len(docs))
			for _, d := range docs {
				if rb, ok := d.Doc.(store.Runbook); ok {
					runbooks = append(runbooks, rb)
				}
			}
			sort.Slice(runbooks, func(i, j int) bool { return runbooks[i].Rank < runbooks[j].Rank })
			in.Runbooks = runbooks
		}

		metrics := make(map[string]float64)
		for _, svc := range in.AffectedServices {
			if versioned, err := s.Get(ctx, store.IndexMetrics, svc); err == nil {
				if m, ok := versioned.Doc.(map[string]any); ok {
					if v, ok := m["avg_latency_ms"].(float64); ok {
						metrics[svc] = v
					}
				}
			}
		}
		in.CurrentMetrics = metrics

		return in
	}
}
