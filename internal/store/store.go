// Package store persists finished search results in SQLite so runs
// can be compared after the process exits.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite"

	"github.com/copyleftdev/annealloc/internal/assign"
	"github.com/copyleftdev/annealloc/internal/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS results (
	id          TEXT PRIMARY KEY,
	created_at  TEXT NOT NULL,
	score       REAL NOT NULL,
	trials      INTEGER NOT NULL,
	assignment  TEXT NOT NULL,
	history     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS results_score ON results (score DESC);
`

// Record is one persisted search result.
type Record struct {
	ID         string
	CreatedAt  time.Time
	Score      float64
	Trials     int
	Assignment map[int]string
	History    []assign.ProgressPoint
}

// Store wraps the SQLite handle.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the results database at dsn.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening results database").WithComponent("store")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrating results database").WithComponent("store")
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts a result record. The assignment and history are stored
// as JSON documents.
func (s *Store) Save(ctx context.Context, rec Record) error {
	assignmentJSON, err := json.Marshal(rec.Assignment)
	if err != nil {
		return errors.Wrap(err, "encoding assignment").WithComponent("store")
	}
	historyJSON, err := json.Marshal(rec.History)
	if err != nil {
		return errors.Wrap(err, "encoding history").WithComponent("store")
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO results (id, created_at, score, trials, assignment, history)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, createdAt.Format(time.RFC3339Nano), rec.Score, rec.Trials,
		string(assignmentJSON), string(historyJSON))
	if err != nil {
		return errors.Wrap(err, "inserting result").WithOperation("save").WithComponent("store")
	}
	return nil
}

// Get loads one record by id. A missing id returns sql.ErrNoRows.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, score, trials, assignment, history
		 FROM results WHERE id = ?`, id)
	return scanRecord(row)
}

// Best returns up to limit records ordered by score, best first.
func (s *Store) Best(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, score, trials, assignment, history
		 FROM results ORDER BY score DESC, created_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying results").WithOperation("best").WithComponent("store")
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (Record, error) {
	var rec Record
	var createdAt, assignmentJSON, historyJSON string
	if err := row.Scan(&rec.ID, &createdAt, &rec.Score, &rec.Trials, &assignmentJSON, &historyJSON); err != nil {
		return Record{}, err
	}

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Record{}, errors.Wrap(err, "parsing created_at").WithComponent("store")
	}
	rec.CreatedAt = ts

	if err := json.Unmarshal([]byte(assignmentJSON), &rec.Assignment); err != nil {
		return Record{}, errors.Wrap(err, "decoding assignment").WithComponent("store")
	}
	if err := json.Unmarshal([]byte(historyJSON), &rec.History); err != nil {
		return Record{}, errors.Wrap(err, "decoding history").WithComponent("store")
	}
	return rec, nil
}
