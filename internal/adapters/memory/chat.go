package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/bbkanego/seerbot/pkg/domain"
	"github.com/google/uuid"
)

// ChatStore implements ports.ChatStore.
type ChatStore struct {
	mu      sync.RWMutex
	records []domain.ChatRecord
}

// NewChatStore creates an empty chat store.
func NewChatStore() *ChatStore {
	return &ChatStore{}
}

// Save appends the record, assigning an id when it has none.
func (s *ChatStore) Save(ctx context.Context, record domain.ChatRecord) (string, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return record.ID, nil
}

// FindBySessionID lists the records of a chat session, oldest first.
func (s *ChatStore) FindBySessionID(ctx context.Context, chatSessionID string) ([]domain.ChatRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ChatRecord
	for _, r := range s.records {
		if r.ChatSessionID == chatSessionID {
			out = append(out, r)
		}
	}
	return byTime(out), nil
}

// FindAll lists every record, oldest first.
func (s *ChatStore) FindAll(ctx context.Context) ([]domain.ChatRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return byTime(slices.Clone(s.records)), nil
}

func byTime(records []domain.ChatRecord) []domain.ChatRecord {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records
}

// TransactionStore implements ports.TransactionStore and ports.TransactionLister.
type TransactionStore struct {
	mu  sync.RWMutex
	txs []domain.Transaction
}

// NewTransactionStore creates an empty transaction store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{}
}

// Save appends tx, assigning an id when it has none.
func (s *TransactionStore) Save(ctx context.Context, tx domain.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append(s.txs, tx)
	return nil
}

// FindByOwner lists the owner's transactions in the order they were saved.
func (s *TransactionStore) FindByOwner(ctx context.Context, ownerID string) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Transaction
	for _, tx := range s.txs {
		if tx.OwnerID == ownerID {
			out = append(out, tx)
		}
	}
	return out, nil
}

// All lists every transaction in the order they were saved.
func (s *TransactionStore) All() []domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.txs)
}
