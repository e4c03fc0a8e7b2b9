package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
)

// mysqlTimeFormat matches DATETIME(6) column precision.
const mysqlTimeFormat = "2006-01-02 15:04:05.999999"

// MySQLStore is a MySQL/MariaDB implementation of Store[S].
//
// Designed for:
//   - Production deployments requiring durable thread state
//   - Multiple processes sharing one checkpoint lineage per thread
//   - Audit trails (history is append-only by construction)
//
// Sequence fencing uses the UNIQUE KEY on (thread_id, seq) plus a guarded
// insert; a duplicate-key error or a zero-row insert both surface as
// ErrSequenceConflict.
//
// Type parameter S is the state type to persist (must be JSON-serializable).
type MySQLStore[S any] struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewMySQLStore creates a new MySQL-backed store.
//
// The DSN format is the go-sql-driver form:
//
//	user:password@tcp(localhost:3306)/threadflow
//
// Never hardcode credentials; read the DSN from the environment or config.
// The store creates its table on first use and configures connection pooling.
func NewMySQLStore[S any](dsn string) (*MySQLStore[S], error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	st := &MySQLStore[S]{db: db}
	if err := st.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return st, nil
}

func (m *MySQLStore[S]) createTables(ctx context.Context) error {
	table := `
		CREATE TABLE IF NOT EXISTS thread_checkpoints (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			thread_id VARCHAR(255) NOT NULL,
			seq INT NOT NULL,
			state JSON NOT NULL,
			next_node VARCHAR(255) NOT NULL,
			interrupt JSON NULL,
			created_at DATETIME(6) NOT NULL,
			INDEX idx_thread (thread_id, seq),
			UNIQUE KEY unique_thread_seq (thread_id, seq)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := m.db.ExecContext(ctx, table); err != nil {
		return fmt.Errorf("failed to create thread_checkpoints table: %w", err)
	}
	return nil
}

// Latest returns the highest-sequence checkpoint for the thread.
func (m *MySQLStore[S]) Latest(ctx context.Context, threadID string) (Checkpoint[S], error) {
	var zero Checkpoint[S]

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return zero, fmt.Errorf("store is closed")
	}
	m.mu.RUnlock()

	query := `
		SELECT thread_id, seq, state, next_node, interrupt, created_at
		FROM thread_checkpoints
		WHERE thread_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`

	cp, err := m.scanRow(m.db.QueryRowContext(ctx, query, threadID).Scan)
	if err == sql.ErrNoRows {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("failed to load latest checkpoint: %w", err)
	}
	return cp, nil
}

// Append durably writes a checkpoint, enforcing strictly increasing sequence
// numbers per thread.
func (m *MySQLStore[S]) Append(ctx context.Context, cp Checkpoint[S]) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return fmt.Errorf("store is closed")
	}
	m.mu.RUnlock()

	stateJSON, interruptJSON, err := marshalCheckpoint(cp)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO thread_checkpoints (thread_id, seq, state, next_node, interrupt, created_at)
		SELECT ?, ?, ?, ?, ?, ?
		FROM DUAL
		WHERE NOT EXISTS (
			SELECT 1 FROM thread_checkpoints WHERE thread_id = ? AND seq >= ?
		)
	`

	res, err := m.db.ExecContext(ctx, query,
		cp.ThreadID, cp.Seq, stateJSON, cp.NextNode, interruptJSON,
		cp.CreatedAt.UTC().Format(mysqlTimeFormat),
		cp.ThreadID, cp.Seq,
	)
	if err != nil {
		// Two guarded inserts can both pass the NOT EXISTS check under
		// concurrent load; the unique key settles the race.
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return ErrSequenceConflict
		}
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
func (m *MySQLStore[S]) History(ctx context.Context, threadID string) ([]Checkpoint[S], error) {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return nil, fmt.Errorf("store is closed")
	}
	m.mu.RUnlock()

	query := `
		SELECT thread_id, seq, state, next_node, interrupt, created_at
		FROM thread_checkpoints
		WHERE thread_id = ?
		ORDER BY seq ASC
	`

	rows, err := m.db.QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	history := make([]Checkpoint[S], 0)
	for rows.Next() {
		cp, err := m.scanRow(rows.Scan)
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
func (m *MySQLStore[S]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	return m.db.Close()
}

// Ping verifies the database connection is alive.
func (m *MySQLStore[S]) Ping(ctx context.Context) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return fmt.Errorf("store is closed")
	}
	m.mu.RUnlock()

	return m.db.PingContext(ctx)
}

func (m *MySQLStore[S]) scanRow(scan func(dest ...any) error) (Checkpoint[S], error) {
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

	ts, err := time.Parse(mysqlTimeFormat, createdAt)
	if err != nil {
		return cp, fmt.Errorf("failed to parse created_at: %w", err)
	}
	cp.CreatedAt = ts

	return cp, nil
}
