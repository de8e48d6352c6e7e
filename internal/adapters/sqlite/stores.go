package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bbkanego/seerbot/pkg/domain"
	"github.com/google/uuid"
)

// Catalog implements ports.CatalogStore.
type Catalog struct {
	db *DB
}

// SaveLaunchInfo inserts or replaces the launch info of info.BotID.
func (c *Catalog) SaveLaunchInfo(ctx context.Context, info domain.LaunchInfo) error {
	origins, err := json.Marshal(nonNil(info.AllowedOrigins))
	if err != nil {
		return err
	}
	settings, err := json.Marshal(info.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	_, err = c.db.conn(ctx).ExecContext(ctx, `
		INSERT INTO launch_info (bot_id, owner_id, category_code, target_bot_id, allowed_origins, model_ref, tokenizer_ref, locale, settings)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(bot_id) DO UPDATE SET
			owner_id = excluded.owner_id, category_code = excluded.category_code,
			target_bot_id = excluded.target_bot_id, allowed_origins = excluded.allowed_origins,
			model_ref = excluded.model_ref, tokenizer_ref = excluded.tokenizer_ref,
			locale = excluded.locale, settings = excluded.settings`,
		info.BotID, info.OwnerID, info.CategoryCode, info.TargetBotID, string(origins),
		info.ModelRef, info.TokenizerRef, info.Locale, string(settings))
	if err != nil {
		return fmt.Errorf("saving launch info: %w", err)
	}
	return nil
}

// FindByBotID returns the launch info of botID.
func (c *Catalog) FindByBotID(ctx context.Context, botID string) (domain.LaunchInfo, error) {
	var info domain.LaunchInfo
	var origins, settings string
	err := c.db.conn(ctx).QueryRowContext(ctx, `
		SELECT bot_id, owner_id, category_code, target_bot_id, allowed_origins, model_ref, tokenizer_ref, locale, settings
		FROM launch_info WHERE bot_id = ?`, botID).
		Scan(&info.BotID, &info.OwnerID, &info.CategoryCode, &info.TargetBotID, &origins,
			&info.ModelRef, &info.TokenizerRef, &info.Locale, &settings)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.LaunchInfo{}, fmt.Errorf("launch info %s: %w", botID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.LaunchInfo{}, fmt.Errorf("querying launch info: %w", err)
	}
	if err := json.Unmarshal([]byte(origins), &info.AllowedOrigins); err != nil {
		return domain.LaunchInfo{}, fmt.Errorf("decoding allowed origins: %w", err)
	}
	if err := json.Unmarshal([]byte(settings), &info.Settings); err != nil {
		return domain.LaunchInfo{}, fmt.Errorf("decoding settings: %w", err)
	}
	return info, nil
}

// SaveIntent inserts or replaces an intent, keyed by owner and name.
func (c *Catalog) SaveIntent(ctx context.Context, in domain.IntentDef) error {
	responses, err := json.Marshal(nonNil(in.Responses))
	if err != nil {
		return err
	}
	_, err = c.db.conn(ctx).ExecContext(ctx, `
		INSERT INTO intents (owner_id, name, source_id, category_code, responses)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(owner_id, name) DO UPDATE SET
			source_id = excluded.source_id, category_code = excluded.category_code, responses = excluded.responses`,
		in.OwnerID, in.Name, in.SourceID, in.CategoryCode, string(responses))
	if err != nil {
		return fmt.Errorf("saving intent: %w", err)
	}
	return nil
}

const intentColumns = `name, source_id, owner_id, category_code, responses`

func scanIntent(row interface{ Scan(...any) error }) (domain.IntentDef, error) {
	var in domain.IntentDef
	var responses string
	if err := row.Scan(&in.Name, &in.SourceID, &in.OwnerID, &in.CategoryCode, &responses); err != nil {
		return domain.IntentDef{}, err
	}
	if err := json.Unmarshal([]byte(responses), &in.Responses); err != nil {
		return domain.IntentDef{}, fmt.Errorf("decoding responses of %s: %w", in.Name, err)
	}
	return in, nil
}

// FindCustomIntents lists the owner's intents of a category in insertion order.
func (c *Catalog) FindCustomIntents(ctx context.Context, categoryCode, ownerID string) ([]domain.IntentDef, error) {
	rows, err := c.db.conn(ctx).QueryContext(ctx,
		`SELECT `+intentColumns+` FROM intents WHERE category_code = ? AND owner_id = ? ORDER BY seq`,
		categoryCode, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying intents: %w", err)
	}
	defer rows.Close()

	var out []domain.IntentDef
	for rows.Next() {
		in, err := scanIntent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// FindByName returns the owner's intent called name.
func (c *Catalog) FindByName(ctx context.Context, name, ownerID string) (domain.IntentDef, error) {
	row := c.db.conn(ctx).QueryRowContext(ctx,
		`SELECT `+intentColumns+` FROM intents WHERE name = ? AND owner_id = ?`, name, ownerID)
	in, err := scanIntent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.IntentDef{}, fmt.Errorf("intent %s: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return domain.IntentDef{}, fmt.Errorf("querying intent: %w", err)
	}
	return in, nil
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
	_, err := s.db.conn(ctx).ExecContext(ctx, `
		INSERT INTO chats (id, chat_session_id, session_id, account_id, owner_id, bot_id, message, response, previous_chat_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ChatSessionID, r.SessionID, r.AccountID, r.OwnerID, r.BotID,
		r.Message, r.Response, r.PreviousChatID, r.CreatedAt.UnixNano())
	if err != nil {
		return "", fmt.Errorf("saving chat: %w", err)
	}
	return r.ID, nil
}

const chatColumns = `id, chat_session_id, session_id, account_id, owner_id, bot_id, message, response, previous_chat_id, created_at`

// FindBySessionID lists the records of a chat session, oldest first.
func (s *ChatStore) FindBySessionID(ctx context.Context, chatSessionID string) ([]domain.ChatRecord, error) {
	return s.query(ctx, `SELECT `+chatColumns+` FROM chats WHERE chat_session_id = ? ORDER BY created_at, seq`, chatSessionID)
}

// FindAll lists every record, oldest first.
func (s *ChatStore) FindAll(ctx context.Context) ([]domain.ChatRecord, error) {
	return s.query(ctx, `SELECT `+chatColumns+` FROM chats ORDER BY created_at, seq`)
}

func (s *ChatStore) query(ctx context.Context, q string, args ...any) ([]domain.ChatRecord, error) {
	rows, err := s.db.conn(ctx).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chats: %w", err)
	}
	defer rows.Close()

	var out []domain.ChatRecord
	for rows.Next() {
		var r domain.ChatRecord
		var created int64
		if err := rows.Scan(&r.ID, &r.ChatSessionID, &r.SessionID, &r.AccountID, &r.OwnerID, &r.BotID,
			&r.Message, &r.Response, &r.PreviousChatID, &created); err != nil {
			return nil, err
		}
		r.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
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
	_, err := s.db.conn(ctx).ExecContext(ctx, `
		INSERT INTO transactions (id, owner_id, target_bot_id, intent, success, utterance, resolved, ignored, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.OwnerID, tx.TargetBotID, tx.Intent, tx.Success, tx.Utterance, tx.Resolved, tx.Ignore, tx.Timestamp.UnixNano())
	if err != nil {
		return fmt.Errorf("saving transaction: %w", err)
	}
	return nil
}

// FindByOwner lists the owner's transactions in the order they were saved.
func (s *TransactionStore) FindByOwner(ctx context.Context, ownerID string) ([]domain.Transaction, error) {
	rows, err := s.db.conn(ctx).QueryContext(ctx, `
		SELECT id, owner_id, target_bot_id, intent, success, utterance, resolved, ignored, created_at
		FROM transactions WHERE owner_id = ? ORDER BY seq`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var ts int64
		if err := rows.Scan(&tx.ID, &tx.OwnerID, &tx.TargetBotID, &tx.Intent, &tx.Success,
			&tx.Utterance, &tx.Resolved, &tx.Ignore, &ts); err != nil {
			return nil, err
		}
		tx.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, tx)
	}
	return out, rows.Err()
}

// SessionStore implements ports.SessionStore with one JSON document per row.
type SessionStore struct {
	db *DB
}

// Save inserts or replaces the snapshot.
func (s *SessionStore) Save(ctx context.Context, sessionID string, snap domain.SessionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	_, err = s.db.conn(ctx).ExecContext(ctx, `
		INSERT INTO sessions (session_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		sessionID, string(data), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Load reads the snapshot of sessionID.
func (s *SessionStore) Load(ctx context.Context, sessionID string) (domain.SessionSnapshot, error) {
	var data string
	err := s.db.conn(ctx).QueryRowContext(ctx, `SELECT data FROM sessions WHERE session_id = ?`, sessionID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("querying session: %w", err)
	}
	var snap domain.SessionSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return snap, nil
}

// Delete removes the snapshot.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.conn(ctx).ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// List returns the stored session ids, most recently updated first.
func (s *SessionStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.conn(ctx).QueryContext(ctx, `SELECT session_id FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
