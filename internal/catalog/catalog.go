// Package catalog is the read side of lotscope: it joins the loaded sensor
// tables with the error lot manifest and answers per-date queries.
package catalog

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jwulff/lotscope-go/internal/domain"
	"github.com/jwulff/lotscope-go/internal/errorlot"
	"github.com/jwulff/lotscope-go/internal/sensordata"
)

// Catalog answers date selection queries over loaded data. It is immutable
// once built and safe for concurrent use.
type Catalog struct {
	index    sensordata.Index
	dates    []domain.Date
	lots     []domain.ErrorLotRecord
	errors   map[domain.Date]domain.ProcessSet
	discards []sensordata.Discard
}

// New builds a catalog from error lot records and a sensor scan result.
func New(lots []domain.ErrorLotRecord, scan *sensordata.Result) *Catalog {
	c := &Catalog{
		index:  make(sensordata.Index),
		lots:   append([]domain.ErrorLotRecord(nil), lots...),
		errors: domain.ErrorProcessesByDate(lots),
	}
	if scan != nil {
		for d, t := range scan.Index {
			c.index[d] = t
		}
		c.discards = append([]sensordata.Discard(nil), scan.Discards...)
	}
	c.dates = c.index.Dates()
	return c
}

// Open loads the error lot file and scans sensorDir, then builds a catalog.
// A broken error lot file fails the call; broken sensor files are reported
// through Discards.
func Open(errorLotFile, sensorDir string, logger *slog.Logger, opts ...sensordata.Option) (*Catalog, error) {
	lots, err := errorlot.Load(errorLotFile)
	if err != nil {
		return nil, err
	}
	logger.Info("error lots loaded",
		slog.String("path", errorLotFile),
		slog.Int("records", len(lots)),
	)

	opts = append([]sensordata.Option{sensordata.WithLogger(logger)}, opts...)
	scan, err := sensordata.Load(sensorDir, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load sensor data: %w", err)
	}
	return New(lots, scan), nil
}

// ListAvailableDates returns the dates with sensor data, ascending.
func (c *Catalog) ListAvailableDates() []domain.Date {
	return append([]domain.Date(nil), c.dates...)
}

// SensorTable returns the sensor table for date. The boolean is false when
// no file was loaded for that date, which is distinct from an empty table.
func (c *Catalog) SensorTable(date domain.Date) (*domain.Table, bool) {
	t, ok := c.index[date]
	return t, ok
}

// ErrorProcesses returns the set of process identifiers flagged on date.
// The set is a copy and may be modified by the caller.
func (c *Catalog) ErrorProcesses(date domain.Date) domain.ProcessSet {
	return c.errors[date].Clone()
}

// ErrorLots returns every loaded error lot record.
func (c *Catalog) ErrorLots() []domain.ErrorLotRecord {
	return append([]domain.ErrorLotRecord(nil), c.lots...)
}

// Discards returns the sensor files skipped while loading.
func (c *Catalog) Discards() []sensordata.Discard {
	return append([]sensordata.Discard(nil), c.discards...)
}

// Tagged returns date's sensor table annotated with Error/Normal tags.
func (c *Catalog) Tagged(date domain.Date) (*domain.TaggedTable, bool, error) {
	table, ok := c.SensorTable(date)
	if !ok {
		return nil, false, nil
	}
	errs := c.ErrorProcesses(date)
	tags, err := TagRows(table, errs)
	if err != nil {
		return nil, true, err
	}
	return &domain.TaggedTable{
		Date:           date,
		Table:          table,
		Tags:           tags,
		ErrorProcesses: errs,
	}, true, nil
}

// TagRows tags each row Error when its Process value is in errs and Normal
// otherwise. Process cells are canonicalized first so "2.0" matches "2";
// cells that are not integers are compared verbatim after trimming.
func TagRows(table *domain.Table, errs domain.ProcessSet) ([]domain.Tag, error) {
	procs, err := table.Column(domain.ColumnProcess)
	if err != nil {
		return nil, err
	}
	tags := make([]domain.Tag, len(procs))
	for i, p := range procs {
		id, err := domain.NormalizeProcess(p)
		if err != nil {
			id = strings.TrimSpace(p)
		}
		if errs.Has(id) {
			tags[i] = domain.TagError
		} else {
			tags[i] = domain.TagNormal
		}
	}
	return tags, nil
}
