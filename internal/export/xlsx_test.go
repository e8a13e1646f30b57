package export

import (
	"bytes"
	"context"
	"slices"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestXLSXWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewXLSXWriter(&buf)

	if err := w.Write(context.Background(), BuildReport(sampleDashboard())); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	for _, name := range []string{PositionsSheet, SummarySheet, TrackingSheet} {
		if !slices.Contains(sheets, name) {
			t.Errorf("workbook is missing sheet %s (has %v)", name, sheets)
		}
	}

	rows, err := f.GetRows(PositionsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[0][0] != "ISIN" || rows[2][0] != "B" {
		t.Errorf("positions sheet = %v", rows)
	}

	tracking, err := f.GetRows(TrackingSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(tracking) != 2 || tracking[1][0] != "2026-01-15" {
		t.Errorf("tracking sheet = %v", tracking)
	}

	name, err := f.GetCellValue(SummarySheet, "B1")
	if err != nil {
		t.Fatal(err)
	}
	if name != "Main Portfolio" {
		t.Errorf("summary B1 = %q", name)
	}
}
