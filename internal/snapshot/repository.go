package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtlprog/fundtrack/internal/domain"
)

// ErrNotFound indicates that the requested revision was not found.
var ErrNotFound = errors.New("snapshot not found")

// Repository persists the portfolio snapshot.
type Repository interface {
	Load(ctx context.Context) (domain.Snapshot, error)
	Save(ctx context.Context, snap domain.Snapshot) error
}

// Revision is one stored save of a portfolio.
type Revision struct {
	ID            int       `json:"id"`
	SavedAt       time.Time `json:"savedAt"`
	PortfolioName string    `json:"portfolioName"`
	PositionCount int       `json:"positionCount"`
}

// PgRepository stores every save as a new row so earlier states stay available.
type PgRepository struct {
	pool *pgxpool.Pool
	slug string
}

// NewPgRepository creates a PostgreSQL repository for the portfolio identified by slug.
func NewPgRepository(pool *pgxpool.Pool, slug string) *PgRepository {
	return &PgRepository{pool: pool, slug: slug}
}

func (r *PgRepository) Save(ctx context.Context, snap domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO portfolio_snapshots (slug, saved_at, data)
		 VALUES ($1, NOW(), $2::jsonb)`,
		r.slug, data)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// Load returns the latest save, or the empty snapshot when nothing was saved yet.
func (r *PgRepository) Load(ctx context.Context) (domain.Snapshot, error) {
	var data []byte
	err := r.pool.QueryRow(ctx,
		`SELECT data FROM portfolio_snapshots
		 WHERE slug = $1
		 ORDER BY saved_at DESC, id DESC
		 LIMIT 1`, r.slug).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.EmptySnapshot(), nil
		}
		return domain.Snapshot{}, fmt.Errorf("getting latest snapshot: %w", err)
	}
	return decodeStored(data)
}

// Get returns the revision with the given ID.
func (r *PgRepository) Get(ctx context.Context, id int) (domain.Snapshot, error) {
	var data []byte
	err := r.pool.QueryRow(ctx,
		`SELECT data FROM portfolio_snapshots WHERE slug = $1 AND id = $2`, r.slug, id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Snapshot{}, ErrNotFound
		}
		return domain.Snapshot{}, fmt.Errorf("getting snapshot %d: %w", id, err)
	}
	return decodeStored(data)
}

// List returns the most recent revisions, newest first.
func (r *PgRepository) List(ctx context.Context, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = 30
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, saved_at, data->>'portfolioName', COALESCE(jsonb_array_length(data->'funds'), 0)
		 FROM portfolio_snapshots
		 WHERE slug = $1
		 ORDER BY saved_at DESC, id DESC
		 LIMIT $2`, r.slug, limit)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var revisions []Revision
	for rows.Next() {
		var rev Revision
		var name *string
		if err := rows.Scan(&rev.ID, &rev.SavedAt, &name, &rev.PositionCount); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		if name != nil {
			rev.PortfolioName = *name
		}
		revisions = append(revisions, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return revisions, nil
}

func decodeStored(data []byte) (domain.Snapshot, error) {
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decoding stored snapshot: %w", err)
	}
	return normalize(snap), nil
}
