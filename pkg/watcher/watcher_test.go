package watcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-soc/vigil/pkg/config"
	"github.com/vigil-soc/vigil/pkg/store"
)

func TestWatcher_ClaimsExactlyOnce(t *testing.T) {
	s := store.NewMemStore()
	ctx := context.Background()
	_, err := s.Index(ctx, store.IndexAlerts, "alert-1", store.Alert{ID: "alert-1", Processed: false}, false)
	require.NoError(t, err)

	var mu sync.Mutex
	var processed []string
	handler := func(ctx context.Context, a store.Alert) error {
		mu.Lock()
		defer mu.Unlock()
		processed = append(processed, a.ID)
		return nil
	}

	w1 := New(s, handler, &config.WatcherConfig{PollInterval: time.Second, BatchSize: 10}, "watcher-1")
	w2 := New(s, handler, &config.WatcherConfig{PollInterval: time.Second, BatchSize: 10}, "watcher-2")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _ = w1.pollAndProcess(ctx) }()
	go func() { defer wg.Done(); _ = w2.pollAndProcess(ctx) }()
	wg.Wait()

	assert.Len(t, processed, 1)
}

func TestWatcher_SkipsProcessedAlerts(t *testing.T) {
	s := store.NewMemStore()
	ctx := context.Background()
	_, err := s.Index(ctx, store.IndexAlerts, "alert-2", store.Alert{ID: "alert-2", Processed: true}, false)
	require.NoError(t, err)

	called := false
	handler := func(ctx context.Context, a store.Alert) error {
		called = true
		return nil
	}
	w := New(s, handler, &config.WatcherConfig{PollInterval: time.Second, BatchSize: 10}, "watcher-1")
	require.NoError(t, w.pollAndProcess(ctx))
	assert.False(t, called)
}
