package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bbkanego/seerbot/pkg/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Catalog implements ports.CatalogStore.
type Catalog struct {
	db *DB
}

// SaveLaunchInfo upserts the launch info of info.BotID.
func (c *Catalog) SaveLaunchInfo(ctx context.Context, info domain.LaunchInfo) error {
	row := launchInfoRow{
		BotID:          info.BotID,
		OwnerID:        info.OwnerID,
		CategoryCode:   info.CategoryCode,
		TargetBotID:    info.TargetBotID,
		AllowedOrigins: info.AllowedOrigins,
		ModelRef:       info.ModelRef,
		TokenizerRef:   info.TokenizerRef,
		Locale:         info.Locale,
		Settings:       info.Settings,
	}
	err := c.db.conn(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("saving launch info: %w", err)
	}
	return nil
}

// FindByBotID returns the launch info of botID.
func (c *Catalog) FindByBotID(ctx context.Context, botID string) (domain.LaunchInfo, error) {
	var row launchInfoRow
	if err := c.db.conn(ctx).Where("bot_id = ?", botID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.LaunchInfo{}, fmt.Errorf("launch info %s: %w", botID, domain.ErrNotFound)
		}
		return domain.LaunchInfo{}, err
	}
	return domain.LaunchInfo{
		BotID:          row.BotID,
		OwnerID:        row.OwnerID,
		CategoryCode:   row.CategoryCode,
		TargetBotID:    row.TargetBotID,
		AllowedOrigins: row.AllowedOrigins,
		ModelRef:       row.ModelRef,
		TokenizerRef:   row.TokenizerRef,
		Locale:         row.Locale,
		Settings:       row.Settings,
	}, nil
}

// SaveIntent upserts an intent keyed by owner and name.
func (c *Catalog) SaveIntent(ctx context.Context, in domain.IntentDef) error {
	row := intentRow{
		OwnerID:      in.OwnerID,
		Name:         in.Name,
		SourceID:     in.SourceID,
		CategoryCode: in.CategoryCode,
		Responses:    in.Responses,
	}
	err := c.db.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"source_id", "category_code", "responses"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("saving intent: %w", err)
	}
	return nil
}

func (r intentRow) toDomain() domain.IntentDef {
	return domain.IntentDef{
		Name:         r.Name,
		SourceID:     r.SourceID,
		OwnerID:      r.OwnerID,
		CategoryCode: r.CategoryCode,
		Responses:    r.Responses,
	}
}

// FindCustomIntents lists the owner's intents of a category in insertion order.
func (c *Catalog) FindCustomIntents(ctx context.Context, categoryCode, ownerID string) ([]domain.IntentDef, error) {
	var rows []intentRow
	err := c.db.conn(ctx).
		Where("category_code = ? AND owner_id = ?", categoryCode, ownerID).
		Order("seq").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.IntentDef, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// FindByName returns the owner's intent called name.
func (c *Catalog) FindByName(ctx context.Context, name, ownerID string) (domain.IntentDef, error) {
	var row intentRow
	if err := c.db.conn(ctx).Where("name = ? AND owner_id = ?", name, ownerID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.IntentDef{}, fmt.Errorf("intent %s: %w", name, domain.ErrNotFound)
		}
		return domain.IntentDef{}, err
	}
	return row.toDomain(), nil
}

// ChatStore implements ports.ChatStore.
type ChatStore struct {
	db *DB
}

// Save inserts the record, assigning an id when it has none.
func (s *ChatStore) Save(ctx context.Context, r domain.ChatRecord) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	row := chatRow{
		ID:             r.ID,
		ChatSessionID:  r.ChatSessionID,
		SessionID:      r.SessionID,
		AccountID:      r.AccountID,
		OwnerID:        r.OwnerID,
		BotID:          r.BotID,
		Message:        r.Message,
		Response:       r.Response,
		PreviousChatID: r.PreviousChatID,
		CreatedAt:      r.CreatedAt,
	}
	if err := s.db.conn(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("saving chat: %w", err)
	}
	return r.ID, nil
}

// FindBySessionID lists the records of a chat session, oldest first.
func (s *ChatStore) FindBySessionID(ctx context.Context, chatSessionID string) ([]domain.ChatRecord, error) {
	return s.find(s.db.conn(ctx).Where("chat_session_id = ?", chatSessionID))
}

// FindAll lists every record, oldest first.
func (s *ChatStore) FindAll(ctx context.Context) ([]domain.ChatRecord, error) {
	return s.find(s.db.conn(ctx))
}

func (s *ChatStore) find(q *gorm.DB) ([]domain.ChatRecord, error) {
	var rows []chatRow
	if err := q.Order("created_at, seq").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.ChatRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.ChatRecord{
			ID:             r.ID,
			ChatSessionID:  r.ChatSessionID,
			SessionID:      r.SessionID,
			AccountID:      r.AccountID,
			OwnerID:        r.OwnerID,
			BotID:          r.BotID,
			Message:        r.Message,
			Response:       r.Response,
			PreviousChatID: r.PreviousChatID,
			CreatedAt:      r.CreatedAt,
		})
	}
	return out, nil
}

// TransactionStore implements ports.TransactionStore and ports.TransactionLister.
type TransactionStore struct {
	db *DB
}

// Save inserts tx, assigning an id when it has none.
func (s *TransactionStore) Save(ctx context.Context, tx domain.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	row := transactionRow{
		ID:          tx.ID,
		OwnerID:     tx.OwnerID,
		TargetBotID: tx.TargetBotID,
		Intent:      tx.Intent,
		Success:     tx.Success,
		Utterance:   tx.Utterance,
		Resolved:    tx.Resolved,
		Ignored:     tx.Ignore,
		Timestamp:   tx.Timestamp,
	}
	if err := s.db.conn(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("saving transaction: %w", err)
	}
	return nil
}

// FindByOwner lists the owner's transactions in the order they were saved.
func (s *TransactionStore) FindByOwner(ctx context.Context, ownerID string) ([]domain.Transaction, error) {
	var rows []transactionRow
	if err := s.db.conn(ctx).Where("owner_id = ?", ownerID).Order("seq").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Transaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Transaction{
			ID:          r.ID,
			OwnerID:     r.OwnerID,
			TargetBotID: r.TargetBotID,
			Intent:      r.Intent,
			Success:     r.Success,
			Utterance:   r.Utterance,
			Resolved:    r.Resolved,
			Ignore:      r.Ignored,
			Timestamp:   r.Timestamp,
		})
	}
	return out, nil
}

// SessionStore implements ports.SessionStore.
type SessionStore struct {
	db *DB
}

// Save upserts the snapshot.
func (s *SessionStore) Save(ctx context.Context, sessionID string, snap domain.SessionSnapshot) error {
	row := sessionRow{SessionID: sessionID, Data: snap}
	err := s.db.conn(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Load reads the snapshot of sessionID.
func (s *SessionStore) Load(ctx context.Context, sessionID string) (domain.SessionSnapshot, error) {
	var row sessionRow
	if err := s.db.conn(ctx).Where("session_id = ?", sessionID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.SessionSnapshot{}, domain.ErrSessionNotFound
		}
		return domain.SessionSnapshot{}, err
	}
	return row.Data, nil
}

// Delete removes the snapshot.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.db.conn(ctx).Where("session_id = ?", sessionID).Delete(&sessionRow{}).Error
}

// List returns the stored session ids, most recently updated first.
func (s *SessionStore) List(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.conn(ctx).Model(&sessionRow{}).Order("updated_at DESC").Pluck("session_id", &ids).Error
	return ids, err
}
