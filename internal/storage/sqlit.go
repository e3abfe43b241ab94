package storage

import (
	"database/sql"
	"time"

	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

const dayLayout = "2006-01-02"

type DB interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	Begin() (*sql.Tx, error)
	Close() error
}

type Store struct{ db DB }

func OpenSQLite(dsn string) (DB, error) {
	return sql.Open("sqlite3", dsn)
}

func InitSchema(db DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS prices(
			symbol TEXT NOT NULL, day TEXT NOT NULL, close REAL NOT NULL,
			PRIMARY KEY(symbol, day)
		)`,
		`CREATE TABLE IF NOT EXISTS price_fetches(
			symbol TEXT NOT NULL, start_day TEXT NOT NULL, end_day TEXT NOT NULL, fetched_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_price_fetches_symbol ON price_fetches(symbol, fetched_at)`,
		`CREATE TABLE IF NOT EXISTS usage(
			command TEXT NOT NULL, chat_id INTEGER, ts INTEGER NOT NULL
		)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func NewStore(db DB) *Store { return &Store{db: db} }

// PricePoint is one cached daily close.
type PricePoint struct {
	Day   time.Time
	Close float64
}

// SavePrices upserts daily closes for a symbol.
func (s *Store) SavePrices(symbol string, points []PricePoint) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.Prepare(`INSERT INTO prices(symbol,day,close) VALUES(?,?,?)
		ON CONFLICT(symbol,day) DO UPDATE SET close=excluded.close`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, p := range points {
		if _, err := stmt.Exec(symbol, p.Day.UTC().Format(dayLayout), p.Close); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadPrices returns cached closes for symbol within [start, end], oldest first.
func (s *Store) LoadPrices(symbol string, start, end time.Time) ([]PricePoint, error) {
	rows, err := s.db.Query(`SELECT day, close FROM prices WHERE symbol=? AND day>=? AND day<=? ORDER BY day ASC`,
		symbol, start.UTC().Format(dayLayout), end.UTC().Format(dayLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PricePoint
	for rows.Next() {
		var (
			day   string
			close float64
		)
		if err := rows.Scan(&day, &close); err != nil {
			return nil, err
		}
		d, err := time.Parse(dayLayout, day)
		if err != nil {
			return nil, err
		}
		out = append(out, PricePoint{Day: d, Close: close})
	}
	return out, rows.Err()
}

// RecordFetch notes that symbol was fetched from upstream for [start, end].
func (s *Store) RecordFetch(symbol string, start, end, fetchedAt time.Time) error {
	_, err := s.db.Exec(`INSERT INTO price_fetches(symbol,start_day,end_day,fetched_at) VALUES(?,?,?,?)`,
		symbol, start.UTC().Format(dayLayout), end.UTC().Format(dayLayout), fetchedAt.Unix())
	return err
}

// CoveredSince reports whether a fetch made at or after since covered [start, end].
func (s *Store) CoveredSince(symbol string, start, end, since time.Time) (bool, error) {
	rows, err := s.db.Query(`SELECT 1 FROM price_fetches
		WHERE symbol=? AND start_day<=? AND end_day>=? AND fetched_at>=? LIMIT 1`,
		symbol, start.UTC().Format(dayLayout), end.UTC().Format(dayLayout), since.Unix())
	if err != nil {
		return false, err
	}
	defer rows.Close()
	found := rows.Next()
	return found, rows.Err()
}

// RecordUsage logs one handled bot command.
func (s *Store) RecordUsage(command string, chatID int64, ts time.Time) error {
	_, err := s.db.Exec(`INSERT INTO usage(command,chat_id,ts) VALUES(?,?,?)`, command, chatID, ts.Unix())
	return err
}

// UsageStats aggregates command usage
type UsageStats struct {
	Command  string
	Count    int
	Chats    int
	LastUsed time.Time
}

// UsageStats returns per-command usage since the given time.
func (s *Store) UsageStats(since time.Time) (map[string]*UsageStats, error) {
	rows, err := s.db.Query(`SELECT command, COUNT(*), COUNT(DISTINCT chat_id), MAX(ts)
		FROM usage WHERE ts>=? GROUP BY command`, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]*UsageStats)
	for rows.Next() {
		var (
			st   UsageStats
			last int64
		)
		if err := rows.Scan(&st.Command, &st.Count, &st.Chats, &last); err != nil {
			return nil, err
		}
		st.LastUsed = time.Unix(last, 0)
		out[st.Command] = &st
	}
	return out, rows.Err()
}
