package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store used by package tests and by demo mode
// (cmd/vigil demo:all). It reproduces the document store's optimistic
// concurrency contract (seq_no/primary_term compare-and-swap) exactly, the
// way tarsy's test/database package gives every test a disposable but
// behaviorally faithful backing store.
type MemStore struct {
	mu      sync.Mutex
	indices map[string]map[string]*entry
}

type entry struct {
	doc         any
	seqNo       int64
	primaryTerm int64
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{indices: make(map[string]map[string]*entry)}
}

func (m *MemStore) bucket(index string) map[string]*entry {
	b, ok := m.indices[index]
	if !ok {
		b = make(map[string]*entry)
		m.indices[index] = b
	}
	return b
}

func (m *MemStore) Get(_ context.Context, index, id string) (VersionedDoc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.bucket(index)[id]
	if !ok {
		return VersionedDoc{}, ErrNotFound
	}
	return VersionedDoc{Doc: e.doc, SeqNo: e.seqNo, PrimaryTerm: e.primaryTerm}, nil
}

func (m *MemStore) Index(_ context.Context, index, id string, doc any, create bool) (VersionedDoc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == "" {
		id = uuid.NewString()
	}
	b := m.bucket(index)
	if existing, ok := b[id]; ok {
		if create {
			return VersionedDoc{}, ErrAlreadyExists
		}
		existing.doc = doc
		existing.seqNo++
		return VersionedDoc{Doc: doc, SeqNo: existing.seqNo, PrimaryTerm: existing.primaryTerm}, nil
	}
	e := &entry{doc: doc, seqNo: 0, primaryTerm: 1}
	b[id] = e
	return VersionedDoc{Doc: doc, SeqNo: e.seqNo, PrimaryTerm: e.primaryTerm}, nil
}

func (m *MemStore) Update(_ context.Context, index, id string, doc any, ifSeqNo, ifPrimaryTerm int64) (VersionedDoc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.bucket(index)
	e, ok := b[id]
	if !ok {
		return VersionedDoc{}, ErrNotFound
	}
	if ifSeqNo >= 0 && (e.seqNo != ifSeqNo || e.primaryTerm != ifPrimaryTerm) {
		return VersionedDoc{}, ErrVersionConflict
	}
	e.doc = doc
	e.seqNo++
	return VersionedDoc{Doc: doc, SeqNo: e.seqNo, PrimaryTerm: e.primaryTerm}, nil
}

// toMap renders a doc as a generic map for filter matching, the cheapest
// way to emulate a document store's field-level filtering without
// reimplementing a query engine.
func toMap(doc any) map[string]any {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil
	}
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

func matches(doc any, q SearchQuery) bool {
	if len(q.Filters) == 0 {
		return true
	}
	m := toMap(doc)
	for k, v := range q.Filters {
		got, ok := m[k]
		if !ok {
			return false
		}
		// Normalize numeric comparisons (JSON numbers decode as float64).
		gv, _ := json.Marshal(got)
		wv, _ := json.Marshal(v)
		if string(gv) != string(wv) {
			return false
		}
	}
	return true
}

func (m *MemStore) Search(_ context.Context, index string, q SearchQuery, sortBy *SortOrder, size int) ([]VersionedDoc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []VersionedDoc
	for _, e := range m.bucket(index) {
		if matches(e.doc, q) {
			out = append(out, VersionedDoc{Doc: e.doc, SeqNo: e.seqNo, PrimaryTerm: e.primaryTerm})
		}
	}
	if sortBy != nil {
		sort.Slice(out, func(i, j int) bool {
			mi, mj := toMap(out[i].Doc), toMap(out[j].Doc)
			less := lessAny(mi[sortBy.Field], mj[sortBy.Field])
			if sortBy.Descending {
				return !less
			}
			return less
		})
	}
	if size > 0 && len(out) > size {
		out = out[:size]
	}
	return out, nil
}

func lessAny(a, b any) bool {
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as < bs
	}
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		return af < bf
	}
	return false
}

func (m *MemStore) DeleteByQuery(_ context.Context, index string, q SearchQuery) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.bucket(index)
	var toDelete []string
	for id, e := range b {
		if matches(e.doc, q) {
			toDelete = append(toDelete, id)
		}
	}
	for _, id := range toDelete {
		delete(b, id)
	}
	return len(toDelete), nil
}

func (m *MemStore) Bulk(ctx context.Context, ops []BulkOp) error {
	for _, op := range ops {
		switch op.Kind {
		case BulkIndex:
			if _, err := m.Index(ctx, op.Index, op.ID, op.Doc, false); err != nil {
				return err
			}
		case BulkUpdate:
			if _, err := m.Update(ctx, op.Index, op.ID, op.Doc, -1, -1); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *MemStore) Count(_ context.Context, index string, q SearchQuery) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.bucket(index) {
		if matches(e.doc, q) {
			n++
		}
	}
	return n, nil
}
