// Package storage provides storage abstractions for imported lotscope data.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jwulff/lotscope-go/internal/domain"
	"github.com/jwulff/lotscope-go/internal/sensordata"
)

// Store is the interface for persistent storage.
type Store interface {
	// Snapshot
	ReplaceSnapshot(ctx context.Context, snap *Snapshot) error

	// Error lots
	GetErrorLots(ctx context.Context) ([]domain.ErrorLotRecord, error)

	// Sensor tables
	GetSensorTable(ctx context.Context, date domain.Date) (*domain.Table, error)
	ListSensorDates(ctx context.Context) ([]domain.Date, error)

	// Discarded files
	GetDiscards(ctx context.Context) ([]sensordata.Discard, error)

	// Import history
	GetImport(ctx context.Context, id string) (*Import, error)

	// Configuration
	GetConfig(ctx context.Context, key string) (string, error)

	// Lifecycle
	Close() error
}

// LastImportKey is the config key holding the ID of the last completed import.
const LastImportKey = "last_import_id"

// Snapshot is everything one import writes. ReplaceSnapshot stores it as a
// whole or not at all.
type Snapshot struct {
	Import   *Import
	Lots     []domain.ErrorLotRecord
	Tables   sensordata.Index
	Discards []sensordata.Discard
}

// Import describes one load of CSV data into the store.
type Import struct {
	ID           string
	ErrorLotFile string
	SensorDir    string
	LotCount     int
	TableCount   int
	DiscardCount int
	StartedAt    time.Time
	FinishedAt   time.Time
}

// NewImport creates a new import record with a fresh ID.
func NewImport(errorLotFile, sensorDir string) *Import {
	return &Import{
		ID:           uuid.New().String(),
		ErrorLotFile: errorLotFile,
		SensorDir:    sensorDir,
		StartedAt:    time.Now(),
	}
}

// ErrNotFound is returned when a record is not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e ErrNotFound) Error() string {
	return e.Resource + " not found: " + e.ID
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}
