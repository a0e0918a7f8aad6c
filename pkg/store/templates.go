package store

// LifecycleKind distinguishes a rolling data-stream from a plain index.
type LifecycleKind string

const (
	LifecycleDataStream LifecycleKind = "data-stream"
	LifecycleIndex      LifecycleKind = "index"
)

// IndexTemplate describes the shape and retention policy of one index or
// data-stream named in §6. These are not live template-provisioning calls
// (provisioning the real cluster is out of scope) — they are the
// authoritative description every component codes against. Nothing reads
// Templates at run time; MemStore creates an index on its first use.
type IndexTemplate struct {
	Name      string
	Kind      LifecycleKind
	Retention string // human-readable retention hint, e.g. "90d", "13mo"
}

// Templates enumerates every index/data-stream named in §6.
var Templates = []IndexTemplate{
	{Name: IndexAlerts, Kind: LifecycleDataStream, Retention: "30d"},
	{Name: IndexAlertClaims, Kind: LifecycleIndex, Retention: "7d"},
	{Name: IndexIncidents, Kind: LifecycleIndex, Retention: "13mo"},
	{Name: IndexInvestigations, Kind: LifecycleDataStream, Retention: "13mo"},
	{Name: IndexActions, Kind: LifecycleDataStream, Retention: "13mo"},
	{Name: IndexAgentTelemetry, Kind: LifecycleDataStream, Retention: "30d"},
	{Name: IndexApprovalResponses, Kind: LifecycleIndex, Retention: "90d"},
	{Name: IndexRunbooks, Kind: LifecycleIndex, Retention: "unbounded"},
	{Name: IndexAssets, Kind: LifecycleIndex, Retention: "unbounded"},
	{Name: IndexThreatIntel, Kind: LifecycleIndex, Retention: "90d"},
	{Name: IndexBaselines, Kind: LifecycleIndex, Retention: "unbounded"},
	{Name: IndexMetrics, Kind: LifecycleDataStream, Retention: "30d"},
	{Name: IndexGithubEvents, Kind: LifecycleDataStream, Retention: "90d"},
	{Name: IndexLogs, Kind: LifecycleDataStream, Retention: "30d"},
}
