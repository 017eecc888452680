package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"stratsim/internal/series"
)

// PriceStore keeps daily bars in a local sqlite file, one row per
// ticker and date.
type PriceStore struct {
	path string

	mu sync.Mutex
	db *sql.DB
}

func NewPriceStore(path string) (*PriceStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("price store path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &PriceStore{path: path}, nil
}

func (s *PriceStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *PriceStore) open() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", s.path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.db = db
	return db, nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS bars (
		ticker TEXT NOT NULL,
		date   TEXT NOT NULL,
		open   REAL NOT NULL,
		high   REAL NOT NULL,
		low    REAL NOT NULL,
		close  REAL NOT NULL,
		volume REAL NOT NULL,
		PRIMARY KEY (ticker, date)
	);`)
	return err
}

// SaveBars upserts bars for a ticker. Re-fetched days overwrite the
// stored row.
func (s *PriceStore) SaveBars(ctx context.Context, ticker string, bars []series.Bar) (int, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return 0, fmt.Errorf("ticker cannot be empty")
	}
	if len(bars) == 0 {
		return 0, nil
	}
	db, err := s.open()
	if err != nil {
		return 0, err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bars (ticker, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticker, date) DO UPDATE SET
		    open=excluded.open,
		    high=excluded.high,
		    low=excluded.low,
		    close=excluded.close,
		    volume=excluded.volume`)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer stmt.Close()
	count := 0
	for _, b := range bars {
		if b.Date == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, ticker, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		count++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

// LoadSeries reads every stored bar for a ticker, optionally limited to
// a date window. Empty bounds mean unbounded.
func (s *PriceStore) LoadSeries(ctx context.Context, ticker, start, end string) (*series.Series, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("ticker cannot be empty")
	}
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	query := `SELECT date, open, high, low, close, volume FROM bars WHERE ticker = ?`
	args := []any{ticker}
	if start != "" {
		query += ` AND date >= ?`
		args = append(args, start)
	}
	if end != "" {
		query += ` AND date <= ?`
		args = append(args, end)
	}
	query += ` ORDER BY date ASC`
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var bars []series.Bar
	for rows.Next() {
		var b series.Bar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return series.New(ticker, bars)
}

// Coverage reports the stored date span and row count for a ticker.
func (s *PriceStore) Coverage(ctx context.Context, ticker string) (first, last string, count int64, err error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	db, err := s.open()
	if err != nil {
		return "", "", 0, err
	}
	row := db.QueryRowContext(ctx, `
		SELECT COALESCE(MIN(date), ''), COALESCE(MAX(date), ''), COUNT(1)
		FROM bars WHERE ticker = ?`, ticker)
	if err := row.Scan(&first, &last, &count); err != nil {
		return "", "", 0, err
	}
	return first, last, count, nil
}

// Tickers lists every ticker with stored bars.
func (s *PriceStore) Tickers(ctx context.Context) ([]string, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT ticker FROM bars ORDER BY ticker`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
