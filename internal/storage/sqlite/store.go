// Package sqlite provides a SQLite implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jwulff/lotscope-go/internal/domain"
	"github.com/jwulff/lotscope-go/internal/sensordata"
	"github.com/jwulff/lotscope-go/internal/storage"

	_ "modernc.org/sqlite"
)

// Store is a SQLite implementation of storage.Store.
type Store struct {
	db *sql.DB
}

// NewMemoryStore creates an in-memory SQLite store.
func NewMemoryStore() (*Store, error) {
	return newStore(":memory:")
}

// NewFileStore creates a file-based SQLite store.
func NewFileStore(path string) (*Store, error) {
	return newStore(path)
}

func newStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return store, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Snapshot methods

// ReplaceSnapshot swaps the stored lots, sensor tables and discards for the
// snapshot's, records its import and marks it as the last import. Nothing is
// kept if any write fails.
func (s *Store) ReplaceSnapshot(ctx context.Context, snap *storage.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"error_lots", "sensor_tables", "discards"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	importID := snap.Import.ID
	if err := insertErrorLots(ctx, tx, importID, snap.Lots); err != nil {
		return fmt.Errorf("failed to save error lots: %w", err)
	}
	for _, d := range snap.Tables.Dates() {
		if err := insertSensorTable(ctx, tx, importID, d, snap.Tables[d]); err != nil {
			return fmt.Errorf("failed to save sensor table %s: %w", d, err)
		}
	}
	if err := insertDiscards(ctx, tx, importID, snap.Discards); err != nil {
		return fmt.Errorf("failed to save discards: %w", err)
	}
	if err := insertImport(ctx, tx, snap.Import); err != nil {
		return fmt.Errorf("failed to save import: %w", err)
	}
	if err := setConfig(ctx, tx, storage.LastImportKey, importID); err != nil {
		return fmt.Errorf("failed to mark last import: %w", err)
	}

	return tx.Commit()
}

func insertErrorLots(ctx context.Context, tx *sql.Tx, importID string, records []domain.ErrorLotRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO error_lots (import_id, date, lot_index, process)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, importID, rec.Date.String(), rec.LotIndex, rec.Process); err != nil {
			return err
		}
	}
	return nil
}

func insertSensorTable(ctx context.Context, tx *sql.Tx, importID string, date domain.Date, table *domain.Table) error {
	columnsJSON, err := json.Marshal(table.Columns)
	if err != nil {
		return fmt.Errorf("failed to marshal columns: %w", err)
	}
	rows := table.Rows
	if rows == nil {
		rows = [][]string{}
	}
	rowsJSON, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to marshal rows: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sensor_tables (date, import_id, column_names, row_data, row_count, saved_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, date.String(), importID, string(columnsJSON), string(rowsJSON), table.Len(), time.Now())
	return err
}

func insertDiscards(ctx context.Context, tx *sql.Tx, importID string, discards []sensordata.Discard) error {
	for _, d := range discards {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO discards (path, import_id, reason) VALUES (?, ?, ?)
		`, d.Path, importID, d.Reason); err != nil {
			return err
		}
	}
	return nil
}

func insertImport(ctx context.Context, tx *sql.Tx, imp *storage.Import) error {
	_, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO imports
			(id, error_lot_file, sensor_dir, lot_count, table_count, discard_count, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, imp.ID, imp.ErrorLotFile, imp.SensorDir, imp.LotCount, imp.TableCount, imp.DiscardCount, imp.StartedAt, imp.FinishedAt)
	return err
}

func setConfig(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO config (key, value, updated_at)
		VALUES (?, ?, ?)
	`, key, value, time.Now())
	return err
}

// Read methods

func (s *Store) GetErrorLots(ctx context.Context) ([]domain.ErrorLotRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, lot_index, process FROM error_lots ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.ErrorLotRecord
	for rows.Next() {
		var rec domain.ErrorLotRecord
		var date string
		if err := rows.Scan(&date, &rec.LotIndex, &rec.Process); err != nil {
			return nil, err
		}
		if rec.Date, err = domain.ParseISODate(date); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) GetSensorTable(ctx context.Context, date domain.Date) (*domain.Table, error) {
	var columnsJSON, rowsJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT column_names, row_data FROM sensor_tables WHERE date = ?
	`, date.String()).Scan(&columnsJSON, &rowsJSON)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound{Resource: "sensor_table", ID: date.String()}
	}
	if err != nil {
		return nil, err
	}

	var table domain.Table
	if err := json.Unmarshal([]byte(columnsJSON), &table.Columns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal columns: %w", err)
	}
	if err := json.Unmarshal([]byte(rowsJSON), &table.Rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rows: %w", err)
	}
	return &table, nil
}

func (s *Store) ListSensorDates(ctx context.Context) ([]domain.Date, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT date FROM sensor_tables ORDER BY date")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []domain.Date
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		d, err := domain.ParseISODate(raw)
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (s *Store) GetDiscards(ctx context.Context) ([]sensordata.Discard, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT path, reason FROM discards ORDER BY path")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var discards []sensordata.Discard
	for rows.Next() {
		var d sensordata.Discard
		if err := rows.Scan(&d.Path, &d.Reason); err != nil {
			return nil, err
		}
		discards = append(discards, d)
	}
	return discards, rows.Err()
}

func (s *Store) GetImport(ctx context.Context, id string) (*storage.Import, error) {
	var imp storage.Import
	err := s.db.QueryRowContext(ctx, `
		SELECT id, error_lot_file, sensor_dir, lot_count, table_count, discard_count, started_at, finished_at
		FROM imports WHERE id = ?
	`, id).Scan(&imp.ID, &imp.ErrorLotFile, &imp.SensorDir, &imp.LotCount, &imp.TableCount, &imp.DiscardCount, &imp.StartedAt, &imp.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound{Resource: "import", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &imp, nil
}

func (s *Store) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", storage.ErrNotFound{Resource: "config", ID: key}
	}
	return value, err
}

// Verify interface compliance
var _ storage.Store = (*Store)(nil)
