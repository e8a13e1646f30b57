package ingest

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		t.Fatal(err)
	}
	row := []any{"IE00B4L5Y983", "World", "BlackRock", "Equity", "2023-02-01", 1000, "EUR", 10.5, 0, 98.45, "2026-01-14"}
	if err := f.SetSheetRow(sheet, "A2", &row); err != nil {
		t.Fatal(err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	f.Close()

	got, err := ReadXLSX(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadXLSX: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("positions = %d, want 1", len(got))
	}
	if got[0].ISIN != "IE00B4L5Y983" || !got[0].Shares.Equal(dec("10.5")) || !got[0].CurrentNAV.Equal(dec("98.45")) {
		t.Errorf("position = %+v", got[0])
	}
}

func TestReadXLSXRejectsGarbage(t *testing.T) {
	if _, err := ReadXLSX(bytes.NewReader([]byte("not a workbook"))); err == nil {
		t.Error("expected error")
	}
}
