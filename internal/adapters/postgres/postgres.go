// Package postgres implements the store ports on PostgreSQL through GORM.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bbkanego/seerbot/pkg/domain"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is a migrated connection pool shared by the stores of this package.
type DB struct {
	orm *gorm.DB
}

// Open connects to dsn, sizes the pool and migrates the schema.
func Open(dsn string, log *slog.Logger) (*DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&launchInfoRow{}, &intentRow{}, &chatRow{}, &transactionRow{}, &sessionRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	if log != nil {
		log.Info("connected to PostgreSQL")
	}
	return &DB{orm: db}, nil
}

// Close releases the pool.
func (d *DB) Close() error {
	sqlDB, err := d.orm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type txKey struct{}

func (d *DB) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return d.orm.WithContext(ctx)
}

// Do implements ports.UnitOfWork. Nested calls join the outer transaction.
func (d *DB) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return d.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// Catalog returns the launch info and intent store.
func (d *DB) Catalog() *Catalog { return &Catalog{db: d} }

// Chats returns the chat record store.
func (d *DB) Chats() *ChatStore { return &ChatStore{db: d} }

// Transactions returns the audit transaction store.
func (d *DB) Transactions() *TransactionStore { return &TransactionStore{db: d} }

// Sessions returns the session snapshot store.
func (d *DB) Sessions() *SessionStore { return &SessionStore{db: d} }

type launchInfoRow struct {
	BotID          string `gorm:"primaryKey"`
	OwnerID        string `gorm:"index"`
	CategoryCode   string
	TargetBotID    string
	AllowedOrigins []string `gorm:"serializer:json"`
	ModelRef       string
	TokenizerRef   string
	Locale         string
	Settings       map[string]any `gorm:"serializer:json"`
}

func (launchInfoRow) TableName() string { return "launch_info" }

type intentRow struct {
	Seq          uint   `gorm:"primaryKey;autoIncrement"`
	OwnerID      string `gorm:"uniqueIndex:idx_intents_owner_name"`
	Name         string `gorm:"uniqueIndex:idx_intents_owner_name"`
	SourceID     string
	CategoryCode string                     `gorm:"index"`
	Responses    []domain.LocalizedResponse `gorm:"serializer:json"`
}

func (intentRow) TableName() string { return "intents" }

type chatRow struct {
	Seq            uint   `gorm:"primaryKey;autoIncrement"`
	ID             string `gorm:"uniqueIndex"`
	ChatSessionID  string `gorm:"index"`
	SessionID      string
	AccountID      string
	OwnerID        string
	BotID          string
	Message        string
	Response       string
	PreviousChatID string
	CreatedAt      time.Time
}

func (chatRow) TableName() string { return "chats" }

type transactionRow struct {
	Seq         uint   `gorm:"primaryKey;autoIncrement"`
	ID          string `gorm:"uniqueIndex"`
	OwnerID     string `gorm:"index"`
	TargetBotID string
	Intent      string
	Success     bool
	Utterance   string
	Resolved    bool
	Ignored     bool
	Timestamp   time.Time
}

func (transactionRow) TableName() string { return "transactions" }

type sessionRow struct {
	SessionID string                 `gorm:"primaryKey"`
	Data      domain.SessionSnapshot `gorm:"serializer:json"`
	UpdatedAt time.Time
}

func (sessionRow) TableName() string { return "sessions" }
