package render

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/jwulff/lotscope-go/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Workbook sheet names.
const (
	SheetError = "Error"
	SheetAll   = "All"
)

// TagColumn is the header of the tag column in the All sheet. A ".N" suffix
// is added when the sensor table already has a column by that name.
const TagColumn = "tag"

// WriteWorkbook writes a tagged table as an xlsx workbook with an Error sheet
// holding only the error rows and an All sheet holding every row plus its tag.
func WriteWorkbook(w io.Writer, tt *domain.TaggedTable) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetError); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetAll); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	errRows := tt.Filter(domain.TagError)
	if err := writeSheet(f, SheetError, errRows.Columns, errRows.Rows, nil); err != nil {
		return err
	}
	header := append(append([]string(nil), tt.Table.Columns...), tagColumnName(tt.Table))
	if err := writeSheet(f, SheetAll, header, tt.Table.Rows, tt.Tags); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func tagColumnName(t *domain.Table) string {
	name := TagColumn
	for n := 1; t.HasColumn(name); n++ {
		name = fmt.Sprintf("%s.%d", TagColumn, n)
	}
	return name
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]string, tags []domain.Tag) error {
	if err := setRow(f, sheet, 1, toCells(header)); err != nil {
		return err
	}
	for i, row := range rows {
		cells := make([]interface{}, 0, len(row)+1)
		for _, v := range row {
			cells = append(cells, cellValue(v))
		}
		if tags != nil {
			cells = append(cells, string(tags[i]))
		}
		if err := setRow(f, sheet, i+2, cells); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

// cellValue stores numeric strings as numbers so spreadsheets can chart them.
func cellValue(s string) interface{} {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return s
	}
	return v
}
