// Package snapshot stores, exports and imports portfolio snapshots.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/mtlprog/fundtrack/internal/domain"
)

// ErrIncompatibleFile is returned by Import for input that is not a portfolio export.
var ErrIncompatibleFile = errors.New("incompatible file: not a portfolio export")

var whitespaceRun = regexp.MustCompile(`\s+`)

// Export writes snap as JSON indented with two spaces.
func Export(w io.Writer, snap domain.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(normalize(snap)); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return nil
}

// ExportFilename derives the export file name from the portfolio name and date,
// e.g. "Main Portfolio" on 2026-01-15 => "Main_Portfolio_2026-01-15.json".
func ExportFilename(portfolioName string, at time.Time) string {
	return whitespaceRun.ReplaceAllString(portfolioName, "_") + "_" + at.Format(time.DateOnly) + ".json"
}

// Import decodes an exported snapshot. Input whose "funds" member is missing
// or not an array, or whose positions are invalid or repeat an ISIN, is
// rejected with ErrIncompatibleFile.
func Import(r io.Reader) (domain.Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("reading import: %w", err)
	}

	var shape struct {
		Funds json.RawMessage `json:"funds"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return domain.Snapshot{}, fmt.Errorf("%w: %v", ErrIncompatibleFile, err)
	}
	if !bytes.HasPrefix(bytes.TrimSpace(shape.Funds), []byte("[")) {
		return domain.Snapshot{}, fmt.Errorf("%w: funds must be an array", ErrIncompatibleFile)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("%w: %v", ErrIncompatibleFile, err)
	}

	seen := make(map[string]bool, len(snap.Funds))
	for _, p := range snap.Funds {
		if err := p.Validate(); err != nil {
			return domain.Snapshot{}, fmt.Errorf("%w: %v", ErrIncompatibleFile, err)
		}
		if seen[p.ISIN] {
			return domain.Snapshot{}, fmt.Errorf("%w: duplicate ISIN %s", ErrIncompatibleFile, p.ISIN)
		}
		seen[p.ISIN] = true
	}
	return normalize(snap), nil
}

// normalize fills the defaults of snapshots written by older versions.
func normalize(snap domain.Snapshot) domain.Snapshot {
	if snap.Version == 0 {
		snap.Version = domain.SchemaVersion
	}
	if strings.TrimSpace(snap.PortfolioName) == "" {
		snap.PortfolioName = domain.DefaultPortfolioName
	}
	if snap.Funds == nil {
		snap.Funds = []domain.Position{}
	}
	return snap
}
