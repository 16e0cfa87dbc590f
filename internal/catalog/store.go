package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/jwulff/lotscope-go/internal/sensordata"
	"github.com/jwulff/lotscope-go/internal/storage"
)

// SaveTo replaces the store's contents with the catalog's data and records
// imp with the resulting counts. On failure the previous snapshot is left
// untouched.
func (c *Catalog) SaveTo(ctx context.Context, store storage.Store, imp *storage.Import) error {
	imp.LotCount = len(c.lots)
	imp.TableCount = len(c.dates)
	imp.DiscardCount = len(c.discards)
	imp.FinishedAt = time.Now()

	snap := &storage.Snapshot{
		Import:   imp,
		Lots:     c.lots,
		Tables:   c.index,
		Discards: c.discards,
	}
	if err := store.ReplaceSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("failed to save import %s: %w", imp.ID, err)
	}
	return nil
}

// FromStore rebuilds a catalog from the last completed import and returns
// that import's record. It returns a storage.ErrNotFound when nothing has
// been imported.
func FromStore(ctx context.Context, store storage.Store) (*Catalog, *storage.Import, error) {
	id, err := store.GetConfig(ctx, storage.LastImportKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve last import: %w", err)
	}
	imp, err := store.GetImport(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read import %s: %w", id, err)
	}

	lots, err := store.GetErrorLots(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read error lots: %w", err)
	}
	dates, err := store.ListSensorDates(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list sensor dates: %w", err)
	}

	scan := &sensordata.Result{Index: make(sensordata.Index, len(dates))}
	for _, d := range dates {
		table, err := store.GetSensorTable(ctx, d)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read sensor table %s: %w", d, err)
		}
		scan.Index[d] = table
	}
	if scan.Discards, err = store.GetDiscards(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to read discards: %w", err)
	}
	return New(lots, scan), imp, nil
}
