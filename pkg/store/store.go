package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when no document exists for the given id.
var ErrNotFound = errors.New("document not found")

// ErrVersionConflict is returned by Update when the supplied if_seq_no /
// if_primary_term pair no longer matches the stored document (§4.5).
var ErrVersionConflict = errors.New("version conflict")

// ErrAlreadyExists is returned by Index when a conditional create targets
// an id that already exists (used by the alert watcher's claim document,
// §5 exactly-once handling).
var ErrAlreadyExists = errors.New("document already exists")

func formatIncidentID(year, seq int) string {
	return fmt.Sprintf("INC-%04d-%05d", year, seq)
}

// SearchQuery is a minimal keyword filter over a document's top-level
// fields; the real document store's query DSL is out of scope, so the
// in-memory implementation only needs to support the filters Vigil's
// components actually issue.
type SearchQuery struct {
	Filters map[string]any
	Text    string // free-text match against indexed text fields; MemStore ignores it
}

// SortOrder for Search.
type SortOrder struct {
	Field      string
	Descending bool
}

// VersionedDoc is returned alongside a document so callers can perform a
// compare-and-swap update without a second round trip.
type VersionedDoc struct {
	Doc         any
	SeqNo       int64
	PrimaryTerm int64
}

// Store is the uniform interface core components use to talk to the
// document store (§6). It is intentionally small: get/index/update/search/
// delete_by_query/bulk/count, mirroring an Elasticsearch-like backend.
type Store interface {
	Get(ctx context.Context, index, id string) (VersionedDoc, error)
	// Index creates or overwrites a document. If id is empty one is
	// generated. If create is true, Index fails with ErrAlreadyExists when
	// the id is already present (conditional create, used for claims).
	Index(ctx context.Context, index, id string, doc any, create bool) (VersionedDoc, error)
	// Update applies doc as a full replacement, enforcing optimistic
	// concurrency when ifSeqNo/ifPrimaryTerm are non-negative.
	Update(ctx context.Context, index, id string, doc any, ifSeqNo, ifPrimaryTerm int64) (VersionedDoc, error)
	Search(ctx context.Context, index string, q SearchQuery, sort *SortOrder, size int) ([]VersionedDoc, error)
	DeleteByQuery(ctx context.Context, index string, q SearchQuery) (int, error)
	Bulk(ctx context.Context, ops []BulkOp) error
	Count(ctx context.Context, index string, q SearchQuery) (int, error)
}

// BulkOpKind distinguishes bulk operation kinds.
type BulkOpKind string

const (
	BulkIndex  BulkOpKind = "index"
	BulkUpdate BulkOpKind = "update"
)

// BulkOp is one operation within a Store.Bulk call.
type BulkOp struct {
	Kind  BulkOpKind
	Index string
	ID    string
	Doc   any
}
