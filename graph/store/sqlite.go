package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite implementation of Store[S].
//
// It stores checkpoint lineages in a single-file database. Designed for:
//   - Development and single-process deployments with zero setup
//   - Durable thread state that survives process restarts
//   - Prototyping before migrating to MySQL or Redis
//
// The store uses WAL mode so readers do not block the single writer, and a
// guarded insert to enforce strictly increasing sequence numbers per thread.
//
// Type parameter S is the state type to persist (must be JSON-serializable).
type SQLiteStore[S any] struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// NewSQLiteStore creates a new SQLite-backed store.
//
// The path parameter specifies the database file location; use ":memory:" for
// an in-memory database (data lost on close). The store creates the schema on
// first use and enables WAL mode with a 5s busy timeout.
//
// Example:
//
//	st, err := store.NewSQLiteStore[MyState]("./checkpoints.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
func NewSQLiteStore[S any](path string) (*SQLiteStore[S], error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}

	st := &SQLiteStore[S]{db: db, path: path}
	if err := st.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return st, nil
}

func (s *SQLiteStore[S]) createTables(ctx context.Context) error {
	table := `
		CREATE TABLE IF NOT EXISTS thread_checkpoints (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			thread_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			state TEXT NOT NULL,
			next_node TEXT NOT NULL,
			interrupt TEXT,
			created_at TIMESTAMP NOT NULL,
			UNIQUE(thread_id, seq)
		)
	`
	if _, err := s.db.ExecContext(ctx, table); err != nil {
		return fmt.Errorf("failed to create thread_checkpoints table: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		"CREATE INDEX IF NOT EXISTS idx_checkpoints_thread ON thread_checkpoints(thread_id, seq)"); err != nil {
		return fmt.Errorf("failed to create idx_checkpoints_thread: %w", err)
	}

	return nil
}

// Latest returns the highest-sequence checkpoint for the thread.
func (s *SQLiteStore[S]) Latest(ctx context.Context, threadID string) (Checkpoint[S], error) {
	var zero Checkpoint[S]

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return zero, fmt.Errorf("store is closed")
	}
	s.mu.RUnlock()

	query := `
		SELECT thread_id, seq, state, next_node, interrupt, created_at
		FROM thread_checkpoints
		WHERE thread_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`

	row := s.db.QueryRowContext(ctx, query, threadID)
	cp, err := scanCheckpoint[S](row.Scan)
	if err == sql.ErrNoRows {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("failed to load latest checkpoint: %w", err)
	}
	return cp, nil
}

// Append durably writes a checkpoint. The insert is guarded so it only lands
// when seq is strictly greater than everything already stored for the thread;
// a zero-row insert means a concurrent writer won and the caller gets
// ErrSequenceConflict.
func (s *SQLiteStore[S]) Append(ctx context.Context, cp Checkpoint[S]) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("store is closed")
	}
	s.mu.RUnlock()

	stateJSON, interruptJSON, err := marshalCheckpoint(cp)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO thread_checkpoints (thread_id, seq, state, next_node, interrupt, created_at)
		SELECT ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM thread_checkpoints WHERE thread_id = ? AND seq >= ?
		)
	`

	res, err := s.db.ExecContext(ctx, query,
		cp.ThreadID, cp.Seq, stateJSON, cp.NextNode, interruptJSON,
		cp.CreatedAt.UTC().Format(time.RFC3339Nano),
		cp.ThreadID, cp.Seq,
	)
	if err != nil {
		return fmt.Errorf("failed to append checkpoint: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrSequenceConflict
	}

	return nil
}

// History returns the thread's checkpoints oldest first.
func (s *SQLiteStore[S]) History(ctx context.Context, threadID string) ([]Checkpoint[S], error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, fmt.Errorf("store is closed")
	}
	s.mu.RUnlock()

	query := `
		SELECT thread_id, seq, state, next_node, interrupt, created_at
		FROM thread_checkpoints
		WHERE thread_id = ?
		ORDER BY seq ASC
	`

	rows, err := s.db.QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	history := make([]Checkpoint[S], 0)
	for rows.Next() {
		cp, err := scanCheckpoint[S](rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint row: %w", err)
		}
		history = append(history, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating checkpoint rows: %w", err)
	}

	return history, nil
}

// Close closes the database connection. Double-close is a no-op.
func (s *SQLiteStore[S]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *SQLiteStore[S]) Ping(ctx context.Context) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("store is closed")
	}
	s.mu.RUnlock()

	return s.db.PingContext(ctx)
}

// Path returns the database file path.
func (s *SQLiteStore[S]) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// marshalCheckpoint serializes the JSON columns of a checkpoint row.
// The interrupt column is NULL for completed steps.
func marshalCheckpoint[S any](cp Checkpoint[S]) (stateJSON string, interruptJSON sql.NullString, err error) {
	data, err := json.Marshal(cp.State)
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("failed to marshal state: %w", err)
	}
	stateJSON = string(data)

	if cp.Interrupt != nil {
		data, err := json.Marshal(cp.Interrupt)
		if err != nil {
			return "", sql.NullString{}, fmt.Errorf("failed to marshal interrupt: %w", err)
		}
		interruptJSON = sql.NullString{String: string(data), Valid: true}
	}

	return stateJSON, interruptJSON, nil
}

// scanCheckpoint reads one checkpoint row via the given scan function.
func scanCheckpoint[S any](scan func(dest ...any) error) (Checkpoint[S], error) {
	var (
		cp            Checkpoint[S]
		stateJSON     string
		interruptJSON sql.NullString
		createdAt     string
	)

	if err := scan(&cp.ThreadID, &cp.Seq, &stateJSON, &cp.NextNode, &interruptJSON, &createdAt); err != nil {
		return cp, err
	}

	if err := json.Unmarshal([]byte(stateJSON), &cp.State); err != nil {
		return cp, fmt.Errorf("failed to unmarshal state: %w", err)
	}

	if interruptJSON.Valid {
		var pi PendingInterrupt
		if err := json.Unmarshal([]byte(interruptJSON.String), &pi); err != nil {
			return cp, fmt.Errorf("failed to unmarshal interrupt: %w", err)
		}
		cp.Interrupt = &pi
	}

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return cp, fmt.Errorf("failed to parse created_at: %w", err)
	}
	cp.CreatedAt = ts

	return cp, nil
}
