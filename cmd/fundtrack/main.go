package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/mtlprog/fundtrack/internal/config"
	"github.com/mtlprog/fundtrack/internal/database"
	"github.com/mtlprog/fundtrack/internal/domain"
	"github.com/mtlprog/fundtrack/internal/events"
	"github.com/mtlprog/fundtrack/internal/external"
	"github.com/mtlprog/fundtrack/internal/fund"
	"github.com/mtlprog/fundtrack/internal/portfolio"
	"github.com/mtlprog/fundtrack/internal/refresh"
	"github.com/mtlprog/fundtrack/internal/report"
	"github.com/mtlprog/fundtrack/internal/snapshot"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var errMissingAPIKey = errors.New("GEMINI_API_KEY is not set")

// env is the wired application shared by all commands.
type env struct {
	cfg          config.Config
	events       *events.Log
	pool         *pgxpool.Pool
	revisions    *snapshot.PgRepository // nil with file storage
	gemini       *external.GeminiClient // nil without an API key
	cache        *external.CachedLookup
	orchestrator *refresh.Orchestrator
	portfolio    *portfolio.Service
	dashboards   *fund.Service
	printer      *report.Printer
}

// missingKeyLookup fails every lookup when no API key is configured.
type missingKeyLookup struct{}

func (missingKeyLookup) GetFundData(context.Context, domain.Position) (*domain.FundData, error) {
	return nil, errMissingAPIKey
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e := &env{}
	app := newApp(e)
	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(e *env) *cli.App {
	return &cli.App{
		Name:  "fundtrack",
		Usage: "track and value a portfolio of investment funds",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "plain", Usage: "print raw Markdown instead of styled output"},
			&cli.StringFlag{Name: "style", Value: report.DefaultStyle, Usage: "terminal style (dark, light, notty, ...)"},
			&cli.BoolFlag{Name: "verbose", Usage: "log debug messages"},
		},
		Before: func(c *cli.Context) error {
			return e.open(c)
		},
		After: func(*cli.Context) error {
			e.close()
			return nil
		},
		Commands: commands(e),
	}
}

// open loads configuration and wires storage, lookup and services.
func (e *env) open(c *cli.Context) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}
	level := slog.LevelInfo
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	e.cfg = config.Load()
	e.events = events.NewLog(e.cfg.EventRetention)
	e.printer = report.NewPrinter(c.App.Writer, c.String("style"), c.Bool("plain"))

	repo, err := e.openRepository(c.Context)
	if err != nil {
		return err
	}

	var lookup external.FundDataLookup = missingKeyLookup{}
	if e.cfg.GeminiAPIKey != "" {
		e.gemini, err = external.NewGeminiClient(c.Context, e.cfg.GeminiAPIKey, external.GeminiConfig{
			Model:          e.cfg.GeminiModel,
			Timeout:        e.cfg.LookupTimeout,
			MaxRetries:     e.cfg.LookupRetryMax,
			RetryBaseDelay: e.cfg.LookupRetryBaseDelay,
		})
		if err != nil {
			return err
		}
		lookup = e.gemini
	}
	e.cache = external.NewCachedLookup(lookup, e.cfg.LookupCacheTTL)

	e.orchestrator = refresh.NewOrchestrator(e.cache, e.events, e.cfg.RefreshPolicy)
	e.portfolio = portfolio.NewService(repo, e.orchestrator, e.events)
	e.dashboards = fund.NewService(e.portfolio, e.cfg.ProjectionRate, e.cfg.ProjectionYears)
	return nil
}

// openRepository uses PostgreSQL when DATABASE_URL is set and the JSON file otherwise.
func (e *env) openRepository(ctx context.Context) (snapshot.Repository, error) {
	if e.cfg.DatabaseURL == "" {
		slog.Debug("Storage: using file", "path", e.cfg.DataFile)
		return snapshot.NewFileRepository(e.cfg.DataFile), nil
	}

	pool, err := database.Connect(ctx, e.cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	e.pool = pool

	migrationsSub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to create migrations sub-fs: %w", err)
	}
	if err := database.RunMigrations(ctx, pool, migrationsSub); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Debug("Storage: using database", "slug", e.cfg.PortfolioSlug)
	e.revisions = snapshot.NewPgRepository(pool, e.cfg.PortfolioSlug)
	return e.revisions, nil
}

func (e *env) close() {
	if e.pool != nil {
		e.pool.Close()
	}
}
