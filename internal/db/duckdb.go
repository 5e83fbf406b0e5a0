// Package db manages the DuckDB analytical store. The map layer keeps its
// hot farm set in memory; DuckDB backs the ad-hoc spatial queries exposed
// under /api/v1/query and the bulk bounds scans over large corpora.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/farmshopfinder/farmmap/internal/service"
)

// Config holds database configuration.
type Config struct {
	DataDir string
	DBName  string
}

// Open creates the DuckDB file under the data directory and loads the
// spatial and parquet extensions. The caller owns the returned handle and
// closes it on shutdown; there is no package-level connection.
func Open(cfg Config) (*sql.DB, error) {
	duckdbDir := filepath.Join(cfg.DataDir, "duckdb")
	if err := os.MkdirAll(duckdbDir, 0755); err != nil {
		return nil, fmt.Errorf("creating duckdb directory: %w", err)
	}

	dbPath := filepath.Join(duckdbDir, cfg.DBName+".duckdb")
	conn, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, err
	}

	for _, ext := range []string{"spatial", "parquet"} {
		if _, err := conn.Exec(fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext)); err != nil {
			// Extensions might already be installed, continue
		}
	}

	return conn, nil
}

// SyncFarms replaces the farms table with the given records so SQL queries
// see the same corpus the map serves.
func SyncFarms(conn *sql.DB, farms []service.FarmShop) error {
	if _, err := conn.Exec(`CREATE OR REPLACE TABLE farms (
		id VARCHAR PRIMARY KEY,
		name VARCHAR,
		lat DOUBLE,
		lng DOUBLE,
		county VARCHAR,
		postcode VARCHAR
	)`); err != nil {
		return fmt.Errorf("creating farms table: %w", err)
	}

	stmt, err := conn.Prepare(`INSERT INTO farms (id, name, lat, lng, county, postcode) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range farms {
		if _, err := stmt.Exec(f.ID, f.Name, f.Lat, f.Lng, f.County, f.Postcode); err != nil {
			return fmt.Errorf("inserting farm %s: %w", f.ID, err)
		}
	}
	return nil
}

// CountInBounds returns how many stored farms fall inside the box.
func CountInBounds(conn *sql.DB, b service.Bounds) (int, error) {
	row := conn.QueryRow(
		`SELECT count(*) FROM farms WHERE lng BETWEEN ? AND ? AND lat BETWEEN ? AND ?`,
		b.West, b.East, b.South, b.North,
	)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
