// Package errorlot loads the error lot manifest: a wide CSV with one row per
// date and one column per lot slot, holding the process identifiers of the
// lots flagged as defective that day.
package errorlot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jwulff/lotscope-go/internal/domain"
)

// ParseError reports a non-empty lot cell that is not an integer process identifier.
type ParseError struct {
	Line   int // 1-based line in the source file
	Column int // 0-based column, equal to the record's LotIndex
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d column %d: %v", e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError checks if err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// Load reads and normalizes the error lot file at path.
func Load(path string) ([]domain.ErrorLotRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open error lot file: %w", err)
	}
	defer f.Close()

	records, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return records, nil
}

type rawRow struct {
	line  int
	cells []string
}

// Parse reads a headerless wide table and reshapes it into long form.
//
// A first row whose first cell is not a date is treated as a header and
// dropped. Records come out slot by slot: every date of lot slot 1, then
// every date of slot 2, and so on. Blank slots and rows with an unparseable
// date are dropped before process identifiers are normalized.
func Parse(r io.Reader) ([]domain.ErrorLotRecord, error) {
	rows, width, err := readRows(r)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	if _, err := domain.ParseDate(rows[0].cells[0]); err != nil {
		rows = rows[1:]
	}

	var records []domain.ErrorLotRecord
	for col := 1; col < width; col++ {
		for _, row := range rows {
			if col >= len(row.cells) {
				continue
			}
			cell := strings.TrimSpace(row.cells[col])
			if cell == "" {
				continue
			}
			date, err := domain.ParseDate(row.cells[0])
			if err != nil {
				continue
			}
			process, err := domain.NormalizeProcess(cell)
			if err != nil {
				return nil, &ParseError{Line: row.line, Column: col, Value: cell, Err: err}
			}
			records = append(records, domain.ErrorLotRecord{
				Date:     date,
				LotIndex: col,
				Process:  process,
			})
		}
	}
	return records, nil
}

// readRows returns the non-blank rows and the widest row's cell count.
func readRows(r io.Reader) ([]rawRow, int, error) {
	reader := domain.NewCSVReader(r)

	var rows []rawRow
	width := 0
	for {
		cells, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read csv: %w", err)
		}
		if domain.IsBlankRow(cells) {
			continue
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, rawRow{line: line, cells: cells})
		if len(cells) > width {
			width = len(cells)
		}
	}
	return rows, width, nil
}
