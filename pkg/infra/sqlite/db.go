package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS spoilage_rules (
	id                  TEXT PRIMARY KEY,
	crop                TEXT NOT NULL,
	condition_desc      TEXT NOT NULL,
	temp_min            REAL NOT NULL,
	temp_max            REAL NOT NULL,
	humidity_min        REAL NOT NULL,
	humidity_max        REAL NOT NULL,
	spoilage_time_hours INTEGER NOT NULL,
	severity            TEXT NOT NULL,
	source_name         TEXT NOT NULL,
	source_type         TEXT NOT NULL,
	source_reference    TEXT NOT NULL,
	credibility         REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_spoilage_rules_crop ON spoilage_rules (crop);

CREATE TABLE IF NOT EXISTS satellite_cache (
	latitude      REAL NOT NULL,
	longitude     REAL NOT NULL,
	date          TEXT NOT NULL,
	ndvi          REAL NOT NULL,
	soil_moisture REAL NOT NULL,
	rainfall_mm   REAL NOT NULL,
	data_sources  TEXT,
	created_at    TEXT NOT NULL,
	expires_at    TEXT NOT NULL,
	PRIMARY KEY (latitude, longitude, date)
);
CREATE INDEX IF NOT EXISTS idx_satellite_cache_expires_at ON satellite_cache (expires_at);
`

// Open 打开本地库并建表；path 可为 ":memory:"
// 单连接：内存库每个连接是独立的库，文件库避免写锁竞争
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to init sqlite schema: %w", err)
	}
	return db, nil
}
