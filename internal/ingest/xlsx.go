package ingest

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/mtlprog/fundtrack/internal/domain"
)

// ReadXLSX reads positions from the first worksheet of an .xlsx workbook.
func ReadXLSX(r io.Reader) ([]domain.Position, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no worksheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading worksheet %s: %w", sheets[0], err)
	}
	return FromRows(rows), nil
}
