// Package refresh updates position valuations one fund at a time, aborting a
// batch on the first failed lookup.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mtlprog/fundtrack/internal/domain"
	"github.com/mtlprog/fundtrack/internal/events"
)

var (
	// ErrAlreadyRunning is returned when a refresh is requested while another one is in progress.
	ErrAlreadyRunning = errors.New("refresh already in progress")
	// ErrEmptyPortfolio is returned when there is nothing to refresh.
	ErrEmptyPortfolio = errors.New("portfolio has no positions")
	// ErrNoData means the lookup answered without a current valuation.
	ErrNoData = errors.New("no valuation data returned")
)

// Lookup fetches the current valuation and recent history of one fund.
type Lookup interface {
	GetFundData(ctx context.Context, p domain.Position) (*domain.FundData, error)
}

// State is a phase of the refresh state machine.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Policy decides what a failed batch hands back to the caller.
type Policy int

const (
	// RetainPartial keeps the positions updated before the failure.
	RetainPartial Policy = iota
	// Rollback discards every update of the failed batch.
	Rollback
)

func (p Policy) String() string {
	if p == Rollback {
		return "rollback"
	}
	return "retain"
}

// ParsePolicy parses "retain" or "rollback".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "retain", "":
		return RetainPartial, nil
	case "rollback":
		return Rollback, nil
	default:
		return RetainPartial, fmt.Errorf("unknown refresh failure policy %q", s)
	}
}

// Progress identifies the position being refreshed. Index is 1-based.
type Progress struct {
	Index int    `json:"index"`
	Total int    `json:"total"`
	ISIN  string `json:"isin"`
}

// Status is a point-in-time view of the orchestrator.
type Status struct {
	State    State    `json:"state"`
	Progress Progress `json:"progress"`
}

// Outcome describes the most recent finished refresh.
type Outcome struct {
	State    State     `json:"state"`
	Updated  int       `json:"updated"`
	Total    int       `json:"total"`
	Err      error     `json:"-"`
	Finished time.Time `json:"finished"`
}

// Result is the position list handed back after a batch, in input order.
type Result struct {
	Positions []domain.Position
	Updated   int
	State     State
}

// LookupError reports the position whose lookup aborted the batch.
type LookupError struct {
	ISIN  string
	Index int
	Err   error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("refreshing %s (position %d): %v", e.ISIN, e.Index, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// Orchestrator runs refreshes sequentially. At most one refresh is active at a time.
type Orchestrator struct {
	lookup Lookup
	sink   events.Sink
	policy Policy

	mu     sync.Mutex
	status Status
	last   Outcome
	now    func() time.Time
}

// NewOrchestrator creates an Orchestrator. A nil sink discards events.
func NewOrchestrator(lookup Lookup, sink events.Sink, policy Policy) *Orchestrator {
	if lookup == nil {
		panic("refresh.NewOrchestrator: lookup is nil")
	}
	if sink == nil {
		sink = events.Discard
	}
	return &Orchestrator{
		lookup: lookup,
		sink:   sink,
		policy: policy,
		status: Status{State: StateIdle},
		last:   Outcome{State: StateIdle},
		now:    time.Now,
	}
}

// Status returns the current state and progress.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Last returns the outcome of the most recent finished refresh.
func (o *Orchestrator) Last() Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

// Run refreshes every position in order. Each successful lookup replaces the
// position's NAV, update date and history together and reports progress. The
// first failure, including context cancellation, stops the batch: the returned
// list then follows the failure policy and the error is a *LookupError.
// Updated counts the leading positions of the list that carry new valuations,
// which is zero under Rollback. The returned list always has the same length and order as positions.
func (o *Orchestrator) Run(ctx context.Context, positions []domain.Position, onProgress func(Progress)) (Result, error) {
	if len(positions) == 0 {
		return Result{State: StateIdle}, ErrEmptyPortfolio
	}
	total := len(positions)
	if err := o.begin(total); err != nil {
		return Result{State: StateIdle}, err
	}

	slog.Info("Refresh: starting", "positions", total, "policy", o.policy)
	events.Infof(o.sink, "Refreshing %d funds", total)

	working := domain.ClonePositions(positions)
	for i, p := range working {
		progress := Progress{Index: i + 1, Total: total, ISIN: p.ISIN}
		o.setProgress(progress)

		updated, err := o.fetch(ctx, p)
		if err != nil {
			lookupErr := &LookupError{ISIN: p.ISIN, Index: i + 1, Err: err}
			out, kept := working, i
			if o.policy == Rollback {
				out, kept = domain.ClonePositions(positions), 0
			}
			o.finish(StateFailed, kept, total, lookupErr)
			slog.Error("Refresh: batch aborted", "isin", p.ISIN, "index", i+1, "error", err)
			events.Errorf(o.sink, "Refresh aborted at %s (%d/%d): %v", p.ISIN, i+1, total, err)
			return Result{Positions: out, Updated: kept, State: StateFailed}, lookupErr
		}

		working[i] = updated
		events.Infof(o.sink, "Updated %s: NAV %s at %s", p.ISIN, updated.CurrentNAV, updated.LastUpdated)
		if onProgress != nil {
			onProgress(progress)
		}
	}

	o.finish(StateSucceeded, total, total, nil)
	slog.Info("Refresh: completed", "positions", total)
	events.Successf(o.sink, "Refreshed %d funds", total)
	return Result{Positions: working, Updated: total, State: StateSucceeded}, nil
}

// RefreshOne refreshes a single position with the same replacement rules as Run.
// On failure the position is returned unchanged.
func (o *Orchestrator) RefreshOne(ctx context.Context, p domain.Position) (domain.Position, error) {
	if err := o.begin(1); err != nil {
		return p, err
	}
	o.setProgress(Progress{Index: 1, Total: 1, ISIN: p.ISIN})

	updated, err := o.fetch(ctx, p)
	if err != nil {
		lookupErr := &LookupError{ISIN: p.ISIN, Index: 1, Err: err}
		o.finish(StateFailed, 0, 1, lookupErr)
		events.Errorf(o.sink, "Refresh of %s failed: %v", p.ISIN, err)
		return p, lookupErr
	}

	o.finish(StateSucceeded, 1, 1, nil)
	events.Successf(o.sink, "Updated %s: NAV %s at %s", p.ISIN, updated.CurrentNAV, updated.LastUpdated)
	return updated, nil
}

func (o *Orchestrator) fetch(ctx context.Context, p domain.Position) (domain.Position, error) {
	if err := ctx.Err(); err != nil {
		return p, err
	}
	data, err := o.lookup.GetFundData(ctx, p)
	if err != nil {
		return p, err
	}
	if data == nil || data.Current == nil {
		return p, ErrNoData
	}
	return p.WithValuation(*data), nil
}

func (o *Orchestrator) begin(total int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status.State == StateRunning {
		return ErrAlreadyRunning
	}
	o.status = Status{State: StateRunning, Progress: Progress{Total: total}}
	return nil
}

func (o *Orchestrator) setProgress(p Progress) {
	o.mu.Lock()
	o.status.Progress = p
	o.mu.Unlock()
}

// finish records the terminal state and returns the machine to idle.
func (o *Orchestrator) finish(state State, updated, total int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.last = Outcome{State: state, Updated: updated, Total: total, Err: err, Finished: o.now()}
	o.status = Status{State: StateIdle}
}
