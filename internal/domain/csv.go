package domain

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// NewCSVReader returns a csv.Reader that tolerates ragged rows and skips a
// leading UTF-8 byte order mark, as written by spreadsheet exports.
func NewCSVReader(r io.Reader) *csv.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	return reader
}

// IsBlankRow reports whether every cell of row is empty after trimming spaces.
func IsBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
