package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"ettu-nearby/models"
)

const stationColumns = 6

// PostgresWriter persists the station catalog to PostgreSQL.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS stations (
			id          SERIAL PRIMARY KEY,
			url         TEXT             UNIQUE NOT NULL,
			letter      TEXT             NOT NULL,
			letter_url  TEXT             NOT NULL,
			names       TEXT[]           NOT NULL,
			lat         DOUBLE PRECISION NOT NULL,
			lon         DOUBLE PRECISION NOT NULL,
			created_at  TIMESTAMPTZ      NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_stations_letter ON stations(letter);
	`)
	return err
}

// Clear deletes all stored stations.
func (pw *PostgresWriter) Clear() error {
	_, err := pw.db.Exec("DELETE FROM stations")
	if err != nil {
		return fmt.Errorf("postgres: clear: %w", err)
	}
	return nil
}

// Write replaces the stored catalog with stations inside one transaction.
func (pw *PostgresWriter) Write(stations []models.Station) error {
	if len(stations) == 0 {
		return nil
	}

	tx, err := pw.db.Begin()
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM stations"); err != nil {
		return fmt.Errorf("postgres: clear: %w", err)
	}

	const batchSize = 200
	for i := 0; i < len(stations); i += batchSize {
		end := i + batchSize
		if end > len(stations) {
			end = len(stations)
		}
		query, args := buildInsertBatch(stations[i:end])
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("postgres: insert batch at %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func buildInsertBatch(batch []models.Station) (string, []interface{}) {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*stationColumns)

	for idx, s := range batch {
		base := idx * stationColumns
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6))
		valueArgs = append(valueArgs,
			s.URL, s.Letter, s.LetterURL, pq.Array(s.Names), s.Lat, s.Lon)
	}

	query := fmt.Sprintf(`
		INSERT INTO stations (url, letter, letter_url, names, lat, lon)
		VALUES %s
		ON CONFLICT (url) DO NOTHING
	`, strings.Join(valueStrings, ","))
	return query, valueArgs
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// FetchAll retrieves the stored catalog in insertion order.
func (pw *PostgresWriter) FetchAll() ([]models.Station, error) {
	rows, err := pw.db.Query(`
		SELECT url, letter, letter_url, names, lat, lon
		FROM stations
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var stations []models.Station
	for rows.Next() {
		var s models.Station
		if err := rows.Scan(
			&s.URL, &s.Letter, &s.LetterURL, pq.Array(&s.Names), &s.Lat, &s.Lon,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		stations = append(stations, s)
	}
	return stations, rows.Err()
}
