// Package sqlite implements every store port on a single SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB shared by the stores of this package.
type DB struct {
	*sql.DB
}

// Open creates or opens a SQLite database file and migrates it.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return setup(sqlDB)
}

// OpenMemory creates an in-memory database. Tests and the REPL use it.
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	// Every connection would see its own empty database.
	sqlDB.SetMaxOpenConns(1)
	return setup(sqlDB)
}

func setup(sqlDB *sql.DB) (*DB, error) {
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	d := &DB{DB: sqlDB}
	if _, err := d.Exec(schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return d, nil
}

type txKey struct{}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns the transaction of the enclosing unit of work, or the database.
func (d *DB) conn(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return d.DB
}

// Do implements ports.UnitOfWork. Nested calls join the outer transaction.
func (d *DB) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Catalog returns the launch info and intent store.
func (d *DB) Catalog() *Catalog { return &Catalog{db: d} }

// Chats returns the chat record store.
func (d *DB) Chats() *ChatStore { return &ChatStore{db: d} }

// Transactions returns the audit transaction store.
func (d *DB) Transactions() *TransactionStore { return &TransactionStore{db: d} }

// Sessions returns the session snapshot store.
func (d *DB) Sessions() *SessionStore { return &SessionStore{db: d} }

const schema = `
CREATE TABLE IF NOT EXISTS launch_info (
    bot_id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL DEFAULT '',
    category_code TEXT NOT NULL DEFAULT '',
    target_bot_id TEXT NOT NULL DEFAULT '',
    allowed_origins TEXT NOT NULL DEFAULT '[]',
    model_ref TEXT NOT NULL DEFAULT '',
    tokenizer_ref TEXT NOT NULL DEFAULT '',
    locale TEXT NOT NULL DEFAULT '',
    settings TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS intents (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    owner_id TEXT NOT NULL,
    name TEXT NOT NULL,
    source_id TEXT NOT NULL DEFAULT '',
    category_code TEXT NOT NULL DEFAULT '',
    responses TEXT NOT NULL DEFAULT '[]',
    UNIQUE(owner_id, name)
);

CREATE INDEX IF NOT EXISTS idx_intents_category ON intents(category_code, owner_id);

CREATE TABLE IF NOT EXISTS chats (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    chat_session_id TEXT NOT NULL,
    session_id TEXT NOT NULL DEFAULT '',
    account_id TEXT NOT NULL DEFAULT '',
    owner_id TEXT NOT NULL DEFAULT '',
    bot_id TEXT NOT NULL DEFAULT '',
    message TEXT NOT NULL DEFAULT '',
    response TEXT NOT NULL DEFAULT '',
    previous_chat_id TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chats_session ON chats(chat_session_id, created_at);

CREATE TABLE IF NOT EXISTS transactions (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    owner_id TEXT NOT NULL DEFAULT '',
    target_bot_id TEXT NOT NULL DEFAULT '',
    intent TEXT NOT NULL,
    success INTEGER NOT NULL DEFAULT 0,
    utterance TEXT NOT NULL DEFAULT '',
    resolved INTEGER NOT NULL DEFAULT 0,
    ignored INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_owner ON transactions(owner_id);

CREATE TABLE IF NOT EXISTS sessions (
    session_id TEXT PRIMARY KEY,
    data TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`
