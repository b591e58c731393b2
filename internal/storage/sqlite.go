package storage

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"

	"portfolioPlot/internal/portfolio"
)

type DB interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
	Begin() (*sql.Tx, error)
	Close() error
}

// Store caches downloaded close series keyed by symbol, range and interval.
type Store struct {
	db  DB
	now func() time.Time
}

func OpenSQLite(dsn string) (DB, error) {
	return sql.Open("sqlite3", dsn)
}

func InitSchema(db DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS series(
		symbol TEXT, rng TEXT, interval TEXT, fetched_at INTEGER,
		PRIMARY KEY(symbol, rng, interval)
	);
	CREATE TABLE IF NOT EXISTS closes(
		symbol TEXT, rng TEXT, interval TEXT, day TEXT, close REAL,
		PRIMARY KEY(symbol, rng, interval, day)
	)`)
	return err
}

func NewStore(db DB) *Store { return &Store{db: db, now: time.Now} }

// SaveSeries replaces the cached series for the key. Missing closes are
// stored as NULL.
func (s *Store) SaveSeries(symbol, rng, interval string, days []time.Time, closes []float64) error {
	if len(days) != len(closes) {
		return fmt.Errorf("series %s: %d days but %d closes", symbol, len(days), len(closes))
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM closes WHERE symbol=? AND rng=? AND interval=?`, symbol, rng, interval); err != nil {
		return err
	}
	for i, d := range days {
		var v any
		if !portfolio.Missing(closes[i]) {
			v = closes[i]
		}
		if _, err := tx.Exec(`INSERT INTO closes(symbol,rng,interval,day,close) VALUES(?,?,?,?,?)`,
			symbol, rng, interval, d.Format(portfolio.DayFormat), v); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO series(symbol,rng,interval,fetched_at) VALUES(?,?,?,?)`,
		symbol, rng, interval, s.now().Unix()); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadSeries returns the cached series for the key. ok is false when nothing
// is cached or the entry is older than maxAge; maxAge <= 0 never expires.
func (s *Store) LoadSeries(symbol, rng, interval string, maxAge time.Duration) ([]time.Time, []float64, bool, error) {
	var fetchedAt int64
	err := s.db.QueryRow(`SELECT fetched_at FROM series WHERE symbol=? AND rng=? AND interval=?`,
		symbol, rng, interval).Scan(&fetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil, false, nil
	}
	if err != nil {
		return nil, nil, false, err
	}
	if maxAge > 0 && s.now().Sub(time.Unix(fetchedAt, 0)) > maxAge {
		return nil, nil, false, nil
	}

	rows, err := s.db.Query(`SELECT day, close FROM closes WHERE symbol=? AND rng=? AND interval=? ORDER BY day ASC`,
		symbol, rng, interval)
	if err != nil {
		return nil, nil, false, err
	}
	defer rows.Close()
	var days []time.Time
	var closes []float64
	for rows.Next() {
		var day string
		var v sql.NullFloat64
		if err := rows.Scan(&day, &v); err != nil {
			return nil, nil, false, err
		}
		d, err := portfolio.ParseDay(day)
		if err != nil {
			return nil, nil, false, err
		}
		days = append(days, d)
		if v.Valid {
			closes = append(closes, v.Float64)
		} else {
			closes = append(closes, math.NaN())
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, false, err
	}
	if len(days) == 0 {
		return nil, nil, false, nil
	}
	return days, closes, true, nil
}
