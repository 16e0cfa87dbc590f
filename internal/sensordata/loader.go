// Package sensordata discovers the per-day sensor exports in a directory and
// indexes them by the calendar date encoded in each file name.
package sensordata

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jwulff/lotscope-go/internal/domain"
)

// File naming convention: kemp-abh-sensor-<YYYY.MM.DD>.csv
const (
	FilePrefix  = "kemp-abh-sensor-"
	FilePattern = FilePrefix + "*.csv"
	// FileDateLayout also accepts non-padded month and day.
	FileDateLayout = "2006.1.2"
)

// DefaultRequiredColumns are the columns every sensor export must carry.
var DefaultRequiredColumns = []string{domain.ColumnTemp, domain.ColumnCurrent, domain.ColumnProcess}

// Index maps a calendar date to that day's sensor table.
type Index map[domain.Date]*domain.Table

// Dates returns the indexed dates in ascending order.
func (ix Index) Dates() []domain.Date {
	dates := make([]domain.Date, 0, len(ix))
	for d := range ix {
		dates = append(dates, d)
	}
	domain.SortDates(dates)
	return dates
}

// Discard records a sensor file that was left out of the index.
type Discard struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// Discard kinds
const (
	KindBadDate       = "bad_date"
	KindMissingColumn = "missing_column"
	KindEmpty         = "empty"
	KindMalformed     = "malformed"
)

// Kind classifies the discard for metrics. Discards restored from storage
// carry no error and are reported as malformed.
func (d Discard) Kind() string {
	var missing *MissingColumnError
	switch {
	case errors.Is(d.Err, domain.ErrInvalidDate):
		return KindBadDate
	case errors.As(d.Err, &missing):
		return KindMissingColumn
	case errors.Is(d.Err, ErrEmptyFile):
		return KindEmpty
	default:
		return KindMalformed
	}
}

// Result is the outcome of a directory scan.
type Result struct {
	Index    Index
	Discards []Discard
}

// MissingColumnError is returned when a sensor file lacks a required column.
type MissingColumnError struct {
	Path   string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s: missing required column %q", e.Path, e.Column)
}

// DateCollisionError is returned when two files resolve to the same date.
type DateCollisionError struct {
	Date   domain.Date
	First  string
	Second string
}

func (e *DateCollisionError) Error() string {
	return fmt.Sprintf("files %s and %s both resolve to %s", e.First, e.Second, e.Date)
}

// ErrEmptyFile is returned for a sensor file without a header row.
var ErrEmptyFile = errors.New("no columns to parse")

// Option configures Load.
type Option func(*loader)

// WithRequiredColumns overrides DefaultRequiredColumns.
func WithRequiredColumns(columns ...string) Option {
	return func(l *loader) {
		l.required = append([]string(nil), columns...)
	}
}

// WithLogger sets the logger used to report discarded files.
func WithLogger(logger *slog.Logger) Option {
	return func(l *loader) {
		l.logger = logger
	}
}

type loader struct {
	required []string
	logger   *slog.Logger
}

// Load scans dir for sensor exports. Files with an unparseable date token,
// malformed CSV, or missing required columns are skipped and reported in
// Result.Discards. A missing directory yields an empty index. Two files
// resolving to the same date fail the whole scan.
func Load(dir string, opts ...Option) (*Result, error) {
	l := &loader{
		required: DefaultRequiredColumns,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With(slog.String("component", "sensordata"))

	paths, err := filepath.Glob(filepath.Join(dir, FilePattern))
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	sort.Strings(paths)

	result := &Result{Index: make(Index)}
	sources := make(map[domain.Date]string)
	for _, path := range paths {
		date, table, err := l.loadFile(path)
		if err != nil {
			result.Discards = append(result.Discards, Discard{Path: path, Reason: err.Error(), Err: err})
			l.logger.Warn("skipping sensor file",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			continue
		}
		if prev, ok := sources[date]; ok {
			return nil, &DateCollisionError{Date: date, First: prev, Second: path}
		}
		sources[date] = path
		result.Index[date] = table
	}

	l.logger.Info("sensor scan complete",
		slog.String("dir", dir),
		slog.Int("files", len(paths)),
		slog.Int("loaded", len(result.Index)),
		slog.Int("discarded", len(result.Discards)),
	)
	return result, nil
}

func (l *loader) loadFile(path string) (domain.Date, *domain.Table, error) {
	date, err := DateFromFilename(path)
	if err != nil {
		return domain.Date{}, nil, err
	}
	table, err := ReadTable(path)
	if err != nil {
		return domain.Date{}, nil, err
	}
	for _, col := range l.required {
		if !table.HasColumn(col) {
			return domain.Date{}, nil, &MissingColumnError{Path: path, Column: col}
		}
	}
	table.SetColumn(domain.ColumnSource, path)
	return date, table, nil
}

// DateFromFilename parses the trailing dash-delimited token of the file's
// stem as a year.month.day date.
func DateFromFilename(path string) (domain.Date, error) {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	token := stem[strings.LastIndex(stem, "-")+1:]
	t, err := time.Parse(FileDateLayout, token)
	if err != nil {
		return domain.Date{}, fmt.Errorf("%s: %w: %q", base, domain.ErrInvalidDate, token)
	}
	return domain.DateOf(t), nil
}

// ReadTable reads a CSV file whose first row holds column names. Short rows
// are padded with blanks; rows wider than the header are an error. Repeated
// column names get a ".N" suffix.
func ReadTable(path string) (*domain.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	table, err := parseTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return table, nil
}

func parseTable(r io.Reader) (*domain.Table, error) {
	reader := domain.NewCSVReader(r)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, err
	}

	table := domain.NewTable(dedupeColumns(header)...)
	for {
		cells, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := table.AppendRow(cells); err != nil {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	return table, nil
}

func dedupeColumns(header []string) []string {
	seen := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			out[i] = fmt.Sprintf("%s.%d", name, n+1)
			continue
		}
		seen[name] = 0
		out[i] = name
	}
	return out
}
