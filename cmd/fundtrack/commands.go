package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mtlprog/fundtrack/internal/domain"
	"github.com/mtlprog/fundtrack/internal/events"
	"github.com/mtlprog/fundtrack/internal/export"
	"github.com/mtlprog/fundtrack/internal/fund"
	"github.com/mtlprog/fundtrack/internal/ingest"
	"github.com/mtlprog/fundtrack/internal/refresh"
	"github.com/mtlprog/fundtrack/internal/report"
	"github.com/mtlprog/fundtrack/internal/snapshot"
	"github.com/mtlprog/fundtrack/internal/worker"
)

func commands(e *env) []*cli.Command {
	return []*cli.Command{
		{
			Name:   "summary",
			Usage:  "show portfolio totals and breakdowns",
			Action: e.summary,
		},
		{
			Name:   "positions",
			Usage:  "list every position with its valuation",
			Action: e.positions,
		},
		{
			Name:      "history",
			Usage:     "show the valuation history of one position",
			ArgsUsage: "ISIN",
			Action:    e.history,
		},
		{
			Name:  "project",
			Usage: "show the illustrative long-horizon projection",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "rate", Usage: "annual rate as a fraction, e.g. 0.07"},
				&cli.IntFlag{Name: "years", Usage: "number of years"},
			},
			Action: e.project,
		},
		{
			Name:   "add",
			Usage:  "add a position",
			Flags:  positionFlags(true),
			Action: e.add,
		},
		{
			Name:      "edit",
			Usage:     "change fields of a position",
			ArgsUsage: "ISIN",
			Flags:     positionFlags(false),
			Action:    e.edit,
		},
		{
			Name:      "remove",
			Usage:     "remove a position",
			ArgsUsage: "ISIN",
			Action:    e.remove,
		},
		{
			Name:      "rename",
			Usage:     "rename the portfolio",
			ArgsUsage: "NAME",
			Action:    e.rename,
		},
		{
			Name:  "refresh",
			Usage: "fetch current valuations",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "isin", Usage: "refresh only this position, bypassing the cache"},
			},
			Action: e.refresh,
		},
		{
			Name:   "watch",
			Usage:  "refresh on an interval and publish after each success",
			Action: e.watch,
		},
		{
			Name:      "import",
			Usage:     "replace the portfolio with an exported file",
			ArgsUsage: "FILE",
			Action:    e.importFile,
		},
		{
			Name:  "export",
			Usage: "write the portfolio to an interchange file",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file, - for stdout"},
			},
			Action: e.exportFile,
		},
		{
			Name:  "ingest",
			Usage: "load positions from a spreadsheet",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "csv", Usage: "CSV file"},
				&cli.StringFlag{Name: "xlsx", Usage: "Excel workbook"},
				&cli.BoolFlag{Name: "sheet", Usage: "Google Sheet from SHEET_ID"},
				&cli.StringFlag{Name: "public-sheet", Usage: "ID of a publicly shared Google Sheet"},
				&cli.BoolFlag{Name: "merge", Usage: "merge into the portfolio instead of replacing it"},
			},
			Action: e.ingest,
		},
		{
			Name:  "publish",
			Usage: "publish the dashboard to spreadsheets",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "xlsx", Usage: "write an Excel workbook"},
				&cli.BoolFlag{Name: "sheet", Usage: "write to the Google Sheet from PUBLISH_SHEET_ID"},
			},
			Action: e.publish,
		},
		{
			Name:   "revisions",
			Usage:  "list stored revisions (database storage only)",
			Flags:  []cli.Flag{&cli.IntFlag{Name: "limit", Value: 30}},
			Action: e.listRevisions,
		},
		{
			Name:      "restore",
			Usage:     "restore a stored revision (database storage only)",
			ArgsUsage: "ID",
			Action:    e.restore,
		},
		{
			Name:   "ping",
			Usage:  "check the valuation lookup credentials",
			Action: e.ping,
		},
	}
}

func positionFlags(adding bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "isin", Required: adding, Hidden: !adding},
		&cli.StringFlag{Name: "name"},
		&cli.StringFlag{Name: "manager"},
		&cli.StringFlag{Name: "category"},
		&cli.StringFlag{Name: "currency", Value: "EUR"},
		&cli.StringFlag{Name: "buy-date", Usage: "YYYY-MM-DD"},
		&cli.StringFlag{Name: "invested", Usage: "amount, e.g. 1.234,56 or 1,234.56"},
		&cli.StringFlag{Name: "shares"},
		&cli.StringFlag{Name: "fees"},
		&cli.StringFlag{Name: "nav", Usage: "current NAV, when known"},
	}
}

// applyPositionFlags overwrites the fields of p whose flags were given.
func applyPositionFlags(c *cli.Context, p domain.Position) domain.Position {
	text := map[string]*string{
		"name":     &p.Name,
		"manager":  &p.Manager,
		"category": &p.Category,
		"currency": &p.Currency,
		"buy-date": &p.BuyDate,
	}
	for flag, field := range text {
		if c.IsSet(flag) {
			*field = strings.TrimSpace(c.String(flag))
		}
	}
	if p.Currency == "" {
		p.Currency = c.String("currency")
	}
	p.Currency = strings.ToUpper(p.Currency)

	if c.IsSet("invested") {
		p.InvestedAmount = domain.ParseLocaleNumber(c.String("invested"))
	}
	if c.IsSet("shares") {
		p.Shares = domain.ParseLocaleNumber(c.String("shares"))
	}
	if c.IsSet("fees") {
		p.Fees = domain.ParseLocaleNumber(c.String("fees"))
	}
	if c.IsSet("nav") {
		p.CurrentNAV = domain.ParseLocaleNumber(c.String("nav"))
	}
	return p
}

func (e *env) summary(c *cli.Context) error {
	d, err := e.dashboards.GetDashboard(c.Context)
	if err != nil {
		return err
	}
	return e.printer.Print(report.Summary(d))
}

func (e *env) positions(c *cli.Context) error {
	d, err := e.dashboards.GetDashboard(c.Context)
	if err != nil {
		return err
	}
	return e.printer.Print(report.Positions(d))
}

func (e *env) history(c *cli.Context) error {
	isin, err := requireArg(c, "ISIN")
	if err != nil {
		return err
	}
	p, err := e.portfolio.Position(c.Context, isin)
	if err != nil {
		return err
	}
	return e.printer.Print(report.History(p))
}

func (e *env) project(c *cli.Context) error {
	rate := e.cfg.ProjectionRate
	if c.IsSet("rate") {
		rate = domain.ParseLocaleNumber(c.String("rate"))
	}
	years := e.cfg.ProjectionYears
	if c.IsSet("years") {
		years = c.Int("years")
	}

	snap, err := e.portfolio.Snapshot(c.Context)
	if err != nil {
		return err
	}
	return e.printer.Print(report.Projection(fund.Build(snap, rate, years, time.Now()), rate))
}

func (e *env) add(c *cli.Context) error {
	p := applyPositionFlags(c, domain.Position{ISIN: c.String("isin")})
	if err := e.portfolio.Add(c.Context, p); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Added %s\n", strings.ToUpper(strings.TrimSpace(p.ISIN)))
	return nil
}

func (e *env) edit(c *cli.Context) error {
	isin, err := requireArg(c, "ISIN")
	if err != nil {
		return err
	}
	p, err := e.portfolio.Position(c.Context, isin)
	if err != nil {
		return err
	}
	if err := e.portfolio.Edit(c.Context, applyPositionFlags(c, p)); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Updated %s\n", p.ISIN)
	return nil
}

func (e *env) remove(c *cli.Context) error {
	isin, err := requireArg(c, "ISIN")
	if err != nil {
		return err
	}
	if err := e.portfolio.Delete(c.Context, isin); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Removed %s\n", isin)
	return nil
}

func (e *env) rename(c *cli.Context) error {
	name := strings.Join(c.Args().Slice(), " ")
	return e.portfolio.Rename(c.Context, name)
}

func (e *env) refresh(c *cli.Context) error {
	unsubscribe := e.events.Subscribe(func(entry events.Entry) {
		fmt.Fprintf(c.App.ErrWriter, "[%s] %s\n", entry.Level, entry.Message)
	})
	defer unsubscribe()

	if isin := c.String("isin"); isin != "" {
		e.cache.Invalidate(isin)
		p, err := e.portfolio.RefreshPosition(c.Context, isin)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%s: NAV %s on %s\n", p.ISIN, p.CurrentNAV, p.LastUpdated)
		return nil
	}

	res, err := e.portfolio.Refresh(c.Context, func(p refresh.Progress) {
		fmt.Fprintf(c.App.ErrWriter, "(%d/%d) %s\n", p.Index, p.Total, p.ISIN)
	})
	if err != nil {
		var lookupErr *refresh.LookupError
		if errors.As(err, &lookupErr) {
			return cli.Exit(fmt.Sprintf("refresh stopped at %s after %d of %d funds (%s policy): %v",
				lookupErr.ISIN, res.Updated, len(res.Positions), e.cfg.RefreshPolicy, lookupErr.Err), 1)
		}
		return err
	}
	return e.printer.Print(report.Events(e.events.History()))
}

func (e *env) watch(c *cli.Context) error {
	hook, err := e.publisher(c.Context, "", true)
	if err != nil {
		return err
	}
	var afterRefresh worker.AfterRefreshHook
	if hook != nil {
		afterRefresh = hook
	}
	worker.NewRefreshWorker(e.portfolio, e.cfg.RefreshInterval, afterRefresh).Run(c.Context)
	return nil
}

func (e *env) importFile(c *cli.Context) error {
	path, err := requireArg(c, "FILE")
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := e.portfolio.Import(c.Context, f); err != nil {
		if errors.Is(err, snapshot.ErrIncompatibleFile) {
			return cli.Exit(fmt.Sprintf("%s is not a portfolio export: %v", path, err), 1)
		}
		return err
	}
	fmt.Fprintf(c.App.Writer, "Imported %s\n", path)
	return nil
}

func (e *env) exportFile(c *cli.Context) error {
	out := c.String("out")
	if out == "-" {
		return e.portfolio.Export(c.Context, c.App.Writer)
	}
	if out == "" {
		snap, err := e.portfolio.Snapshot(c.Context)
		if err != nil {
			return err
		}
		out = snapshot.ExportFilename(snap.PortfolioName, time.Now())
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := e.portfolio.Export(c.Context, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Exported to %s\n", out)
	return nil
}

func (e *env) ingest(c *cli.Context) error {
	positions, err := e.readSpreadsheet(c)
	if err != nil {
		return err
	}

	if c.Bool("merge") {
		err = e.portfolio.MergePositions(c.Context, positions)
	} else {
		err = e.portfolio.ReplacePositions(c.Context, positions)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Loaded %d positions\n", len(positions))
	return nil
}

func (e *env) readSpreadsheet(c *cli.Context) ([]domain.Position, error) {
	switch {
	case c.IsSet("csv"):
		f, err := os.Open(c.String("csv"))
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ingest.ParseCSV(f)
	case c.IsSet("xlsx"):
		f, err := os.Open(c.String("xlsx"))
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ingest.ReadXLSX(f)
	case c.Bool("sheet"):
		if e.cfg.SheetID == "" || e.cfg.GoogleCredentialsJSON == "" {
			return nil, cli.Exit("SHEET_ID and GOOGLE_CREDENTIALS_JSON are required for --sheet", 2)
		}
		reader, err := ingest.NewSheetsReader(c.Context, e.cfg.SheetID, e.cfg.SheetRange, e.cfg.GoogleCredentialsJSON)
		if err != nil {
			return nil, err
		}
		return reader.ReadPositions(c.Context)
	case c.IsSet("public-sheet"):
		return ingest.NewPublicSheetClient(ingest.DefaultPublicSheetsURL).FetchPublicCSV(c.Context, c.String("public-sheet"))
	default:
		return nil, cli.Exit("one of --csv, --xlsx, --sheet or --public-sheet is required", 2)
	}
}

func (e *env) publish(c *cli.Context) error {
	if !c.IsSet("xlsx") && !c.Bool("sheet") {
		return cli.Exit("one of --xlsx or --sheet is required", 2)
	}
	svc, err := e.publisher(c.Context, c.String("xlsx"), c.Bool("sheet"))
	if err != nil {
		return err
	}
	snap, err := e.portfolio.Snapshot(c.Context)
	if err != nil {
		return err
	}
	return svc.Export(c.Context, snap)
}

// publisher builds an export service. With sheet set and no PUBLISH_SHEET_ID
// configured, watch runs without publishing and publish fails.
func (e *env) publisher(ctx context.Context, xlsxPath string, sheet bool) (*export.Service, error) {
	var writers []export.Writer
	if xlsxPath != "" {
		writers = append(writers, &fileWriter{path: xlsxPath})
	}
	if sheet && e.cfg.PublishSheetID != "" && e.cfg.GoogleCredentialsJSON != "" {
		w, err := export.NewSheetsWriter(ctx, e.cfg.PublishSheetID, e.cfg.GoogleCredentialsJSON)
		if err != nil {
			return nil, err
		}
		writers = append(writers, w)
	}
	if len(writers) == 0 {
		if xlsxPath == "" && sheet && e.cfg.PublishSheetID == "" {
			return nil, nil
		}
		return nil, cli.Exit("PUBLISH_SHEET_ID and GOOGLE_CREDENTIALS_JSON are required for --sheet", 2)
	}
	return export.NewService(e.cfg.ProjectionRate, e.cfg.ProjectionYears, writers...), nil
}

// fileWriter writes the workbook to a file created on each export.
type fileWriter struct {
	path string
}

func (w *fileWriter) Write(ctx context.Context, r export.Report) error {
	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", w.path, err)
	}
	if err := export.NewXLSXWriter(f).Write(ctx, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (e *env) listRevisions(c *cli.Context) error {
	if e.revisions == nil {
		return cli.Exit("revisions require DATABASE_URL", 2)
	}
	revs, err := e.revisions.List(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}
	for _, r := range revs {
		fmt.Fprintf(c.App.Writer, "%d\t%s\t%s\t%d positions\n",
			r.ID, r.SavedAt.Format(time.RFC3339), r.PortfolioName, r.PositionCount)
	}
	return nil
}

func (e *env) restore(c *cli.Context) error {
	if e.revisions == nil {
		return cli.Exit("restore requires DATABASE_URL", 2)
	}
	arg, err := requireArg(c, "ID")
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(arg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid revision id %q", arg), 2)
	}
	snap, err := e.revisions.Get(c.Context, id)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := snapshot.Export(&buf, snap); err != nil {
		return err
	}
	if err := e.portfolio.Import(c.Context, &buf); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Restored revision %d\n", id)
	return nil
}

func (e *env) ping(c *cli.Context) error {
	if e.gemini == nil {
		return cli.Exit(errMissingAPIKey.Error(), 2)
	}
	if err := e.gemini.Ping(c.Context); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "Valuation lookup is reachable")
	return nil
}

func requireArg(c *cli.Context, name string) (string, error) {
	arg := strings.TrimSpace(c.Args().First())
	if arg == "" {
		return "", cli.Exit(fmt.Sprintf("missing %s argument", name), 2)
	}
	return arg, nil
}
