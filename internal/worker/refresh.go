package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mtlprog/fundtrack/internal/domain"
	"github.com/mtlprog/fundtrack/internal/refresh"
)

// PortfolioRefresher refreshes the portfolio and exposes its current state.
type PortfolioRefresher interface {
	Refresh(ctx context.Context, onProgress func(refresh.Progress)) (refresh.Result, error)
	Snapshot(ctx context.Context) (domain.Snapshot, error)
}

// AfterRefreshHook is called after each successful refresh.
type AfterRefreshHook interface {
	Export(ctx context.Context, snap domain.Snapshot) error
}

// DefaultInterval is used when a non-positive interval is configured.
const DefaultInterval = 24 * time.Hour

// RefreshWorker periodically refreshes every position's valuation.
type RefreshWorker struct {
	portfolio PortfolioRefresher
	interval  time.Duration
	hook      AfterRefreshHook // optional
}

// NewRefreshWorker creates a new RefreshWorker with an optional post-refresh hook.
func NewRefreshWorker(portfolio PortfolioRefresher, interval time.Duration, hook AfterRefreshHook) *RefreshWorker {
	if interval <= 0 {
		slog.Warn("RefreshWorker: non-positive interval, using default", "interval", interval, "default", DefaultInterval)
		interval = DefaultInterval
	}
	return &RefreshWorker{
		portfolio: portfolio,
		interval:  interval,
		hook:      hook,
	}
}

// Run starts the refresh loop. It blocks until the context is cancelled.
func (w *RefreshWorker) Run(ctx context.Context) {
	slog.Info("RefreshWorker: starting", "interval", w.interval)

	// Refresh immediately on startup
	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("RefreshWorker: shutting down")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// tick runs one refresh and, when it succeeds, the hook.
func (w *RefreshWorker) tick(ctx context.Context) {
	res, err := w.portfolio.Refresh(ctx, func(p refresh.Progress) {
		slog.Debug("RefreshWorker: progress", "isin", p.ISIN, "index", p.Index, "total", p.Total)
	})
	switch {
	case errors.Is(err, refresh.ErrEmptyPortfolio):
		slog.Info("RefreshWorker: portfolio is empty, nothing to refresh")
		return
	case errors.Is(err, refresh.ErrAlreadyRunning):
		slog.Warn("RefreshWorker: refresh already in progress, skipping tick")
		return
	case err != nil:
		slog.Error("RefreshWorker: refresh failed", "updated", res.Updated, "error", err)
		return
	}
	slog.Info("RefreshWorker: refresh completed", "updated", res.Updated)
	w.runHook(ctx)
}

// runHook calls the post-refresh hook if one is configured.
func (w *RefreshWorker) runHook(ctx context.Context) {
	if w.hook == nil {
		return
	}
	snap, err := w.portfolio.Snapshot(ctx)
	if err != nil {
		slog.Error("RefreshWorker: reading portfolio for export failed", "error", err)
		return
	}
	if err := w.hook.Export(ctx, snap); err != nil {
		slog.Error("RefreshWorker: export hook failed", "error", err)
	} else {
		slog.Info("RefreshWorker: export hook completed")
	}
}
