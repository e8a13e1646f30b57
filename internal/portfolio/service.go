// Package portfolio owns the in-memory portfolio snapshot and its persistence.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/mtlprog/fundtrack/internal/domain"
	"github.com/mtlprog/fundtrack/internal/events"
	"github.com/mtlprog/fundtrack/internal/fund"
	"github.com/mtlprog/fundtrack/internal/refresh"
	"github.com/mtlprog/fundtrack/internal/snapshot"
)

var (
	// ErrDuplicateISIN is returned when adding a position whose ISIN is already held.
	ErrDuplicateISIN = errors.New("position with this ISIN already exists")
	// ErrNotFound is returned when no position has the requested ISIN.
	ErrNotFound = errors.New("position not found")
	// ErrEmptyName is returned when renaming the portfolio to a blank name.
	ErrEmptyName = errors.New("portfolio name is empty")
)

// Refresher runs valuation lookups for positions.
type Refresher interface {
	Run(ctx context.Context, positions []domain.Position, onProgress func(refresh.Progress)) (refresh.Result, error)
	RefreshOne(ctx context.Context, p domain.Position) (domain.Position, error)
}

// Service serializes every change to the portfolio and persists it.
// Readers always receive copies.
type Service struct {
	repo      snapshot.Repository
	refresher Refresher
	sink      events.Sink

	mu     sync.Mutex
	snap   domain.Snapshot
	loaded bool
	now    func() time.Time
}

// NewService creates a portfolio Service. A nil sink discards events.
func NewService(repo snapshot.Repository, refresher Refresher, sink events.Sink) *Service {
	if repo == nil {
		panic("portfolio.NewService: repository is nil")
	}
	if refresher == nil {
		panic("portfolio.NewService: refresher is nil")
	}
	if sink == nil {
		sink = events.Discard
	}
	return &Service{
		repo:      repo,
		refresher: refresher,
		sink:      sink,
		now:       time.Now,
	}
}

// Load reads the stored snapshot into memory, replacing any loaded state.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Service) load(ctx context.Context) error {
	snap, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading portfolio: %w", err)
	}
	if snap.Funds == nil {
		snap.Funds = []domain.Position{}
	}
	s.snap = snap
	s.loaded = true
	slog.Info("Portfolio: loaded", "name", snap.PortfolioName, "positions", len(snap.Funds))
	return nil
}

func (s *Service) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	return s.load(ctx)
}

// Snapshot returns a copy of the current portfolio, loading it on first use.
func (s *Service) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return domain.Snapshot{}, err
	}
	return cloneSnapshot(s.snap), nil
}

// Position returns a copy of the position with the given ISIN.
func (s *Service) Position(ctx context.Context, isin string) (domain.Position, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return domain.Position{}, err
	}
	i := domain.FindPosition(snap.Funds, normalizeISIN(isin))
	if i < 0 {
		return domain.Position{}, fmt.Errorf("%s: %w", isin, ErrNotFound)
	}
	return snap.Funds[i], nil
}

// Rename changes the portfolio's display name.
func (s *Service) Rename(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	return s.update(ctx, func(snap *domain.Snapshot) error {
		snap.PortfolioName = name
		return nil
	}, fmt.Sprintf("Portfolio renamed to %q", name))
}

// Add appends a new position. The ISIN must not already be held.
func (s *Service) Add(ctx context.Context, p domain.Position) error {
	p.ISIN = normalizeISIN(p.ISIN)
	if err := p.Validate(); err != nil {
		return err
	}
	return s.update(ctx, func(snap *domain.Snapshot) error {
		if domain.FindPosition(snap.Funds, p.ISIN) >= 0 {
			return fmt.Errorf("%s: %w", p.ISIN, ErrDuplicateISIN)
		}
		snap.Funds = append(snap.Funds, p.Clone())
		return nil
	}, fmt.Sprintf("Added %s", p.ISIN))
}

// Edit replaces the stored position that has p's ISIN as a whole value.
func (s *Service) Edit(ctx context.Context, p domain.Position) error {
	p.ISIN = normalizeISIN(p.ISIN)
	if err := p.Validate(); err != nil {
		return err
	}
	return s.update(ctx, func(snap *domain.Snapshot) error {
		i := domain.FindPosition(snap.Funds, p.ISIN)
		if i < 0 {
			return fmt.Errorf("%s: %w", p.ISIN, ErrNotFound)
		}
		snap.Funds[i] = p.Clone()
		return nil
	}, fmt.Sprintf("Updated %s", p.ISIN))
}

// Delete removes the position with the given ISIN.
func (s *Service) Delete(ctx context.Context, isin string) error {
	isin = normalizeISIN(isin)
	return s.update(ctx, func(snap *domain.Snapshot) error {
		i := domain.FindPosition(snap.Funds, isin)
		if i < 0 {
			return fmt.Errorf("%s: %w", isin, ErrNotFound)
		}
		snap.Funds = append(snap.Funds[:i], snap.Funds[i+1:]...)
		return nil
	}, fmt.Sprintf("Removed %s", isin))
}

// ReplacePositions swaps the whole position list, as after a spreadsheet
// ingestion. Later rows with an ISIN already seen are dropped.
func (s *Service) ReplacePositions(ctx context.Context, positions []domain.Position) error {
	incoming, err := prepare(positions)
	if err != nil {
		return err
	}
	return s.update(ctx, func(snap *domain.Snapshot) error {
		snap.Funds = fund.Merge(nil, incoming)
		return nil
	}, fmt.Sprintf("Loaded %d positions", len(incoming)))
}

// MergePositions folds positions into the portfolio by ISIN, keeping stored
// history for incoming rows that carry none.
func (s *Service) MergePositions(ctx context.Context, positions []domain.Position) error {
	incoming, err := prepare(positions)
	if err != nil {
		return err
	}
	return s.update(ctx, func(snap *domain.Snapshot) error {
		snap.Funds = fund.Merge(snap.Funds, incoming)
		return nil
	}, fmt.Sprintf("Merged %d positions", len(incoming)))
}

// Import replaces the portfolio with a previously exported file. An
// incompatible file leaves the portfolio untouched.
func (s *Service) Import(ctx context.Context, r io.Reader) error {
	imported, err := snapshot.Import(r)
	if err != nil {
		events.Errorf(s.sink, "Import failed: %v", err)
		return err
	}
	return s.update(ctx, func(snap *domain.Snapshot) error {
		*snap = imported
		return nil
	}, fmt.Sprintf("Imported %q with %d positions", imported.PortfolioName, len(imported.Funds)))
}

// Export writes the current portfolio as an interchange file.
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	return snapshot.Export(w, snap)
}

// Refresh looks up fresh valuations for every position and persists the
// outcome once. Only the first res.Updated positions are applied, so a failed
// batch saves the valuations already fetched and leaves the rest of the
// portfolio, including edits made while the batch ran, as it is.
func (s *Service) Refresh(ctx context.Context, onProgress func(refresh.Progress)) (refresh.Result, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return refresh.Result{}, err
	}

	res, runErr := s.refresher.Run(ctx, snap.Funds, onProgress)
	applied := min(res.Updated, len(res.Positions))
	if applied <= 0 {
		return res, runErr
	}

	refreshed := lo.SliceToMap(res.Positions[:applied], func(p domain.Position) (string, domain.Position) {
		return p.ISIN, p
	})
	saveErr := s.update(ctx, func(current *domain.Snapshot) error {
		for i, p := range current.Funds {
			if r, ok := refreshed[p.ISIN]; ok {
				current.Funds[i] = withValuationOf(p, r)
			}
		}
		return nil
	}, "")
	if saveErr != nil {
		return res, errors.Join(runErr, saveErr)
	}
	return res, runErr
}

// RefreshPosition looks up a fresh valuation for one position and persists it.
func (s *Service) RefreshPosition(ctx context.Context, isin string) (domain.Position, error) {
	p, err := s.Position(ctx, isin)
	if err != nil {
		return domain.Position{}, err
	}

	updated, err := s.refresher.RefreshOne(ctx, p)
	if err != nil {
		return p, err
	}

	err = s.update(ctx, func(snap *domain.Snapshot) error {
		i := domain.FindPosition(snap.Funds, updated.ISIN)
		if i < 0 {
			return fmt.Errorf("%s: %w", updated.ISIN, ErrNotFound)
		}
		snap.Funds[i] = withValuationOf(snap.Funds[i], updated)
		return nil
	}, "")
	if err != nil {
		return p, err
	}
	return updated.Clone(), nil
}

// update applies mutate to a copy of the portfolio, saves the copy and only
// then makes it current. A non-empty message is recorded on success.
func (s *Service) update(ctx context.Context, mutate func(*domain.Snapshot) error, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	next := cloneSnapshot(s.snap)
	if err := mutate(&next); err != nil {
		return err
	}
	next.Version = domain.SchemaVersion
	next.LastModified = s.now().UTC().Format(time.RFC3339)

	if err := s.repo.Save(ctx, next); err != nil {
		slog.Error("Portfolio: save failed", "error", err)
		events.Errorf(s.sink, "Saving portfolio failed: %v", err)
		return fmt.Errorf("saving portfolio: %w", err)
	}
	s.snap = next
	if message != "" {
		events.Infof(s.sink, "%s", message)
	}
	return nil
}

// withValuationOf takes the valuation fields of refreshed onto p. Other fields
// edited while a refresh was running are kept.
func withValuationOf(p, refreshed domain.Position) domain.Position {
	p.CurrentNAV = refreshed.CurrentNAV
	p.LastUpdated = refreshed.LastUpdated
	p.History = append([]domain.NavPoint(nil), refreshed.History...)
	return p
}

func prepare(positions []domain.Position) ([]domain.Position, error) {
	out := make([]domain.Position, 0, len(positions))
	for _, p := range positions {
		p.ISIN = normalizeISIN(p.ISIN)
		if err := p.Validate(); err != nil {
			return nil, err
		}
		out = append(out, p.Clone())
	}
	return out, nil
}

func normalizeISIN(isin string) string {
	return strings.ToUpper(strings.TrimSpace(isin))
}

func cloneSnapshot(snap domain.Snapshot) domain.Snapshot {
	snap.Funds = domain.ClonePositions(snap.Funds)
	return snap
}
