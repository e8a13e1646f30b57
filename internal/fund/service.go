package fund

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/fundtrack/internal/domain"
	"github.com/mtlprog/fundtrack/internal/history"
	"github.com/mtlprog/fundtrack/internal/projection"
)

// TimelinePoints is the number of samples in the dashboard value curve.
const TimelinePoints = 12

// SnapshotSource provides the current portfolio.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (domain.Snapshot, error)
}

// Dashboard is everything the summary views and reports render.
type Dashboard struct {
	PortfolioName string                  `json:"portfolioName"`
	LastModified  string                  `json:"lastModified"`
	GeneratedAt   time.Time               `json:"generatedAt"`
	Summary       Summary                 `json:"summary"`
	Rows          []Row                   `json:"rows"`
	Timeline      []history.TimelinePoint `json:"timeline"`
	Projection    []projection.Point      `json:"projection"`
}

// Service builds dashboards from the current portfolio.
type Service struct {
	source SnapshotSource
	rate   decimal.Decimal
	years  int
	now    func() time.Time
}

// NewService creates a dashboard Service. source is required.
func NewService(source SnapshotSource, rate decimal.Decimal, years int) *Service {
	if source == nil {
		panic("fund.NewService: source is nil")
	}
	return &Service{
		source: source,
		rate:   rate,
		years:  years,
		now:    time.Now,
	}
}

// GetDashboard aggregates the current portfolio and projects its total forward.
func (s *Service) GetDashboard(ctx context.Context) (Dashboard, error) {
	snap, err := s.source.Snapshot(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("loading portfolio: %w", err)
	}
	return Build(snap, s.rate, s.years, s.now()), nil
}

// Build computes a dashboard for snap as of now.
func Build(snap domain.Snapshot, rate decimal.Decimal, years int, now time.Time) Dashboard {
	summary := Aggregate(snap.Funds)
	return Dashboard{
		PortfolioName: snap.PortfolioName,
		LastModified:  snap.LastModified,
		GeneratedAt:   now.UTC(),
		Summary:       summary,
		Rows:          Rows(snap.Funds),
		Timeline:      history.Timeline(snap.Funds, now, TimelinePoints),
		Projection:    projection.Project(summary.TotalCurrentValue, rate, years),
	}
}
