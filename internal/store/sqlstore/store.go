package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver registered as "pgx"
	"github.com/lib/pq"                // Postgres driver registered as "postgres"
	"github.com/mattn/go-sqlite3"      // SQLite driver registered as "sqlite3"
	"github.com/pliu/anonchat/internal/store"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn implements store.Tx on top of a querier. SQLStore embeds one bound to
// the pool; Atomic hands out one bound to a transaction.
type conn struct {
	q          querier
	driverName string
}

type SQLStore struct {
	conn
	db *sql.DB

	// writeMu serialises Atomic units within the process.
	writeMu sync.Mutex
}

var _ store.Store = (*SQLStore)(nil)

func New(driverName, dataSourceName string) (*SQLStore, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driverName, err)
	}
	if driverName == "sqlite3" {
		// One connection keeps ":memory:" databases shared and makes
		// SQLite's single writer explicit.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(5 * time.Minute)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: ping %s: %w", driverName, err)
	}

	s := &SQLStore{conn: conn{q: db, driverName: driverName}, db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: create tables: %w", err)
	}
	return s, nil
}

func (s *SQLStore) createTables() error {
	// Simplified for brevity, ideally use migrations
	statements := []string{
		`CREATE TABLE IF NOT EXISTS participants (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			external_id TEXT UNIQUE NOT NULL,
			username TEXT NOT NULL DEFAULT '',
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at DATETIME NOT NULL,
			last_seen DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS waiting_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			participant_id INTEGER UNIQUE NOT NULL REFERENCES participants(id),
			enqueued_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_waiting_entries_enqueued ON waiting_entries (enqueued_at, id)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			party_a INTEGER NOT NULL REFERENCES participants(id),
			party_b INTEGER NOT NULL REFERENCES participants(id),
			status TEXT NOT NULL DEFAULT 'active',
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			message_count INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_party_a ON conversations (party_a, status)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_party_b ON conversations (party_b, status)`,
		`CREATE TABLE IF NOT EXISTS conversation_messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id INTEGER NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			sender_id INTEGER NOT NULL REFERENCES participants(id),
			text TEXT NOT NULL,
			kind TEXT NOT NULL DEFAULT 'text',
			sent_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversation_messages_conversation ON conversation_messages (conversation_id, sent_at)`,
		`CREATE INDEX IF NOT EXISTS idx_conversation_messages_sent ON conversation_messages (sent_at)`,
	}

	for _, query := range statements {
		if s.isPostgres() {
			// Adjust for Postgres syntax
			query = strings.ReplaceAll(query, "INTEGER PRIMARY KEY AUTOINCREMENT", "BIGSERIAL PRIMARY KEY")
			query = strings.ReplaceAll(query, "INTEGER", "BIGINT")
			query = strings.ReplaceAll(query, "DATETIME", "TIMESTAMPTZ")
		}
		if _, err := s.db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

// Atomic runs fn inside a database transaction. The writer mutex keeps two
// units from this process from interleaving their check-then-act sequences;
// the transaction makes fn all-or-nothing.
func (s *SQLStore) Atomic(ctx context.Context, fn func(tx store.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&conn{q: tx, driverName: s.driverName}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (c *conn) isPostgres() bool {
	return c.driverName == "postgres" || c.driverName == "pgx"
}

// Helper to handle placeholders
func (c *conn) rebind(query string) string {
	if c.isPostgres() {
		// Replace ? with $1, $2, etc.
		n := strings.Count(query, "?")
		for i := 1; i <= n; i++ {
			query = strings.Replace(query, "?", fmt.Sprintf("$%d", i), 1)
		}
	}
	return query
}

// notFound maps sql.ErrNoRows onto store.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
