package ports

import (
	"context"

	"github.com/bbkanego/seerbot/pkg/domain"
)

// LaunchInfoStore resolves deployment metadata by bot identifier.
type LaunchInfoStore interface {
	// FindByBotID returns domain.ErrNotFound if the bot is unknown.
	FindByBotID(ctx context.Context, botID string) (domain.LaunchInfo, error)
}

// IntentStore resolves intent definitions.
type IntentStore interface {
	// FindCustomIntents lists the intents defined by an owner for a category.
	FindCustomIntents(ctx context.Context, categoryCode, ownerID string) ([]domain.IntentDef, error)

	// FindByName returns domain.ErrNotFound if the owner has no intent with that name.
	FindByName(ctx context.Context, name, ownerID string) (domain.IntentDef, error)
}

// CatalogWriter seeds launch info and intents. Fixture loaders use it.
type CatalogWriter interface {
	SaveLaunchInfo(ctx context.Context, info domain.LaunchInfo) error
	SaveIntent(ctx context.Context, intent domain.IntentDef) error
}

// CatalogStore is the full read/write catalog implemented by every storage adapter.
type CatalogStore interface {
	LaunchInfoStore
	IntentStore
	CatalogWriter
}

// ChatStore persists chat records.
type ChatStore interface {
	// Save persists the record and returns its identifier.
	// If record.ID is empty the store assigns one.
	Save(ctx context.Context, record domain.ChatRecord) (string, error)

	// FindBySessionID lists the records of a chat session, oldest first.
	FindBySessionID(ctx context.Context, chatSessionID string) ([]domain.ChatRecord, error)

	// FindAll lists every record, oldest first.
	FindAll(ctx context.Context) ([]domain.ChatRecord, error)
}

// TransactionStore persists audit records.
type TransactionStore interface {
	Save(ctx context.Context, tx domain.Transaction) error
}

// TransactionLister reads audit records back. Adapters implement it alongside TransactionStore.
type TransactionLister interface {
	FindByOwner(ctx context.Context, ownerID string) ([]domain.Transaction, error)
}

// SessionStore persists chat session snapshots.
type SessionStore interface {
	// Save persists the snapshot for a given session ID.
	Save(ctx context.Context, sessionID string, snap domain.SessionSnapshot) error

	// Load retrieves the snapshot for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (domain.SessionSnapshot, error)

	// Delete removes the snapshot for a given session ID.
	Delete(ctx context.Context, sessionID string) error
}

// UnitOfWork runs fn so that every store write it performs commits or rolls back together.
// Stores bound to the same backend pick the active transaction up from ctx.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// UnitOfWorkFunc adapts a function to UnitOfWork.
type UnitOfWorkFunc func(ctx context.Context, fn func(ctx context.Context) error) error

func (f UnitOfWorkFunc) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return f(ctx, fn)
}

// NoTransaction runs fn directly. It is the unit of work of stores without transactions.
var NoTransaction UnitOfWork = UnitOfWorkFunc(func(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
})
