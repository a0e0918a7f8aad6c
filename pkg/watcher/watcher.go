// Package watcher implements the alert-ingestion loop: a claims-based,
// exactly-once consumer grounded on tarsy's Worker.claimNextSession /
// pollAndProcess pattern, generalized from ent-backed sessions to the
// document-store claim-document protocol (§5 exactly-once alert handling).
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vigil-soc/vigil/pkg/config"
	"github.com/vigil-soc/vigil/pkg/store"
)

// Handler processes one claimed alert to completion (the coordinator's
// entry point).
type Handler func(ctx context.Context, alert store.Alert) error

// Watcher polls the alerts index, claims unprocessed alerts exactly once,
// and dispatches each to Handler.
type Watcher struct {
	store   store.Store
	handler Handler
	cfg     *config.WatcherConfig
	claimant string
}

// New builds a Watcher bound to s and handler. claimant identifies this
// watcher instance in claim documents (e.g. a hostname or pod id).
func New(s store.Store, handler Handler, cfg *config.WatcherConfig, claimant string) *Watcher {
	return &Watcher{store: s, handler: handler, cfg: cfg, claimant: claimant}
}

// Run polls until ctx is cancelled, processing up to cfg.BatchSize alerts
// per tick sequentially (each watcher instance drives one incident to
// completion at a time per §4.8; concurrency across alerts comes from
// running multiple Watcher instances, not from fan-out within one).
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.pollAndProcess(ctx); err != nil {
				slog.Error("watcher poll failed", "error", err)
			}
		}
	}
}

func (w *Watcher) pollAndProcess(ctx context.Context) error {
	unclaimed, err := w.store.Search(ctx, store.IndexAlerts, store.SearchQuery{
		Filters: map[string]any{"processed": false},
	}, nil, w.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, versioned := range unclaimed {
		alert, ok := versioned.Doc.(store.Alert)
		if !ok {
			continue
		}

		claimed, err := w.claim(ctx, alert.ID)
		if err != nil {
			slog.Warn("alert claim failed", "alert_id", alert.ID, "error", err)
			continue
		}
		if !claimed {
			continue // another watcher instance already claimed it
		}

		if err := w.handler(ctx, alert); err != nil {
			slog.Error("alert handling failed", "alert_id", alert.ID, "error", err)
		}
	}
	return nil
}

// claim attempts the conditional-create claim document for one alert id.
// A conflict (ErrAlreadyExists) means another watcher instance won the
// race; the caller treats that as "not claimed", not an error.
func (w *Watcher) claim(ctx context.Context, alertID string) (bool, error) {
	_, err := w.store.Index(ctx, store.IndexAlertClaims, alertID, store.AlertClaim{
		AlertID:   alertID,
		ClaimedAt: time.Now(),
		ClaimedBy: w.claimant,
	}, true)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, store.ErrAlreadyExists) {
		return false, nil
	}
	return false, err
}
