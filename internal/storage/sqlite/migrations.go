package sqlite

// schema contains the database schema DDL.
const schema = `
-- Import history
CREATE TABLE IF NOT EXISTS imports (
    id TEXT PRIMARY KEY,
    error_lot_file TEXT NOT NULL,
    sensor_dir TEXT NOT NULL,
    lot_count INTEGER DEFAULT 0,
    table_count INTEGER DEFAULT 0,
    discard_count INTEGER DEFAULT 0,
    started_at DATETIME NOT NULL,
    finished_at DATETIME
);

-- Error lots in long form, in load order
CREATE TABLE IF NOT EXISTS error_lots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    import_id TEXT NOT NULL,
    date TEXT NOT NULL,
    lot_index INTEGER NOT NULL,
    process TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_error_lots_date ON error_lots(date);

-- One sensor table per calendar date
CREATE TABLE IF NOT EXISTS sensor_tables (
    date TEXT PRIMARY KEY,
    import_id TEXT NOT NULL,
    column_names TEXT NOT NULL,
    row_data TEXT NOT NULL,
    row_count INTEGER NOT NULL,
    saved_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Sensor files skipped during import
CREATE TABLE IF NOT EXISTS discards (
    path TEXT PRIMARY KEY,
    import_id TEXT NOT NULL,
    reason TEXT NOT NULL
);

-- Configuration
CREATE TABLE IF NOT EXISTS config (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`
