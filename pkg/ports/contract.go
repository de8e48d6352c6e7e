package ports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bbkanego/seerbot/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		snap := domain.SessionSnapshot{
			SessionID:     sessionID,
			ChatSessionID: "chat-" + sessionID,
			Attributes:    map[string]any{"foo": "bar", "count": 42},
			Conversation: &domain.ConversationSnapshot{
				Intent:   "Reservation",
				Template: "reservation",
				State:    "ValidGuestCount",
				Vars:     map[string]any{"guests": 4},
				History:  []string{"StartReservation", "ValidGuestCount"},
			},
		}

		err := store.Save(ctx, sessionID, snap)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, snap.ChatSessionID, loaded.ChatSessionID)
		assert.Equal(t, "bar", loaded.Attributes["foo"])
		// JSON persistence turns ints into float64, existence is what matters here.
		assert.NotNil(t, loaded.Attributes["count"])
		require.NotNil(t, loaded.Conversation)
		assert.Equal(t, "ValidGuestCount", loaded.Conversation.State)
		assert.Equal(t, []string{"StartReservation", "ValidGuestCount"}, loaded.Conversation.History)
	})

	t.Run("Load is isolated from later mutation", func(t *testing.T) {
		snap := domain.SessionSnapshot{SessionID: sessionID, Attributes: map[string]any{"k": "v1"}}
		require.NoError(t, store.Save(ctx, sessionID, snap))
		snap.Attributes["k"] = "v2"

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "v1", loaded.Attributes["k"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, domain.SessionSnapshot{SessionID: sessionID}))

		err := store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, sessionID), "Delete of a missing session is not an error")
	})
}

// RunChatStoreContract verifies a ChatStore implementation.
func RunChatStoreContract(t *testing.T, store ChatStore) {
	ctx := context.Background()
	chatSession := "contract-chat-" + time.Now().Format("20060102150405.000000")
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Save assigns ids", func(t *testing.T) {
		id, err := store.Save(ctx, domain.ChatRecord{
			ChatSessionID: chatSession,
			AccountID:     domain.AnonymousAccountID,
			Message:       "hi",
			CreatedAt:     base,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, id)
	})

	t.Run("FindBySessionID orders oldest first", func(t *testing.T) {
		_, err := store.Save(ctx, domain.ChatRecord{
			ID:            "explicit-" + chatSession,
			ChatSessionID: chatSession,
			AccountID:     domain.BotAccountID,
			Message:       "hi",
			Response:      "Hello there",
			CreatedAt:     base.Add(time.Second),
		})
		require.NoError(t, err)

		_, err = store.Save(ctx, domain.ChatRecord{ChatSessionID: "other-" + chatSession, Message: "x", CreatedAt: base})
		require.NoError(t, err)

		records, err := store.FindBySessionID(ctx, chatSession)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, domain.AnonymousAccountID, records[0].AccountID)
		assert.Equal(t, "explicit-"+chatSession, records[1].ID)
		assert.Equal(t, "Hello there", records[1].Response)
		assert.True(t, records[1].CreatedAt.Equal(base.Add(time.Second)))
	})

	t.Run("FindBySessionID unknown session", func(t *testing.T) {
		records, err := store.FindBySessionID(ctx, "missing-"+chatSession)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("FindAll", func(t *testing.T) {
		records, err := store.FindAll(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(records), 3)
	})
}

// TransactionContractStore is what RunTransactionStoreContract exercises.
type TransactionContractStore interface {
	TransactionStore
	TransactionLister
}

// RunTransactionStoreContract verifies a TransactionStore implementation.
func RunTransactionStoreContract(t *testing.T, store TransactionContractStore) {
	ctx := context.Background()
	owner := "contract-owner-" + time.Now().Format("20060102150405.000000")

	require.NoError(t, store.Save(ctx, domain.Transaction{
		OwnerID: owner, TargetBotID: "bot-1", Intent: "Reservation", Success: true,
		Utterance: "book a table", Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, store.Save(ctx, domain.Transaction{
		OwnerID: owner, TargetBotID: "bot-1", Intent: domain.IntentNoMatch,
		Utterance: "asdkjasd", Timestamp: time.Date(2024, 3, 1, 12, 0, 1, 0, time.UTC),
	}))

	txs, err := store.FindByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.True(t, txs[0].Success)
	assert.Equal(t, "Reservation", txs[0].Intent)
	assert.False(t, txs[1].Success)
	assert.Equal(t, domain.IntentNoMatch, txs[1].Intent)
	assert.NotEmpty(t, txs[0].ID)

	none, err := store.FindByOwner(ctx, "nobody-"+owner)
	require.NoError(t, err)
	assert.Empty(t, none)
}

// RunCatalogStoreContract verifies the launch info and intent catalog of an adapter.
func RunCatalogStoreContract(t *testing.T, store CatalogStore) {
	ctx := context.Background()
	suffix := time.Now().Format("20060102150405.000000")
	botID := "bot-" + suffix
	owner := "owner-" + suffix

	info := domain.LaunchInfo{
		BotID:          botID,
		OwnerID:        owner,
		CategoryCode:   "RESTAURANT",
		TargetBotID:    "target-" + suffix,
		AllowedOrigins: []string{"https://shop.example.com"},
		ModelRef:       "models/restaurant.yaml",
		TokenizerRef:   "simple",
		Locale:         "en",
		Settings:       map[string]any{"nlpIntentMatcher": map[string]any{"minMatchScore": 0.8}},
	}
	require.NoError(t, store.SaveLaunchInfo(ctx, info))

	t.Run("FindByBotID", func(t *testing.T) {
		got, err := store.FindByBotID(ctx, botID)
		require.NoError(t, err)
		assert.Equal(t, info.OwnerID, got.OwnerID)
		assert.Equal(t, info.AllowedOrigins, got.AllowedOrigins)
		assert.Equal(t, "simple", got.TokenizerRef)
		assert.NotNil(t, got.Settings["nlpIntentMatcher"])

		_, err = store.FindByBotID(ctx, "missing-"+botID)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	require.NoError(t, store.SaveIntent(ctx, domain.IntentDef{
		Name: "Hours", SourceID: "1", OwnerID: owner, CategoryCode: "RESTAURANT",
		Responses: []domain.LocalizedResponse{{Locale: "en", Text: "We open at 9."}},
	}))
	require.NoError(t, store.SaveIntent(ctx, domain.IntentDef{
		Name: "Menu", SourceID: "2", OwnerID: owner, CategoryCode: "RESTAURANT",
		Responses: []domain.LocalizedResponse{{Locale: "en", Text: "Pasta."}, {Locale: "fr", Text: "Pâtes."}},
	}))
	require.NoError(t, store.SaveIntent(ctx, domain.IntentDef{
		Name: "Weather", SourceID: "3", OwnerID: owner, CategoryCode: "TRAVEL",
	}))

	t.Run("FindCustomIntents", func(t *testing.T) {
		intents, err := store.FindCustomIntents(ctx, "RESTAURANT", owner)
		require.NoError(t, err)
		require.Len(t, intents, 2)
		names := []string{intents[0].Name, intents[1].Name}
		assert.ElementsMatch(t, []string{"Hours", "Menu"}, names)

		other, err := store.FindCustomIntents(ctx, "RESTAURANT", "someone-else")
		require.NoError(t, err)
		assert.Empty(t, other)
	})

	t.Run("FindByName", func(t *testing.T) {
		menu, err := store.FindByName(ctx, "Menu", owner)
		require.NoError(t, err)
		assert.Len(t, menu.Responses, 2)

		_, err = store.FindByName(ctx, "Menu", "someone-else")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

// RunUnitOfWorkContract verifies that writes made inside a failed unit of work are discarded.
func RunUnitOfWorkContract(t *testing.T, uow UnitOfWork, chats ChatStore) {
	ctx := context.Background()
	chatSession := "uow-" + time.Now().Format("20060102150405.000000")
	boom := errors.New("boom")

	err := uow.Do(ctx, func(ctx context.Context) error {
		if _, err := chats.Save(ctx, domain.ChatRecord{ChatSessionID: chatSession, Message: "lost", CreatedAt: time.Now()}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	records, err := chats.FindBySessionID(ctx, chatSession)
	require.NoError(t, err)
	assert.Empty(t, records, "writes of a failed unit of work must roll back")

	err = uow.Do(ctx, func(ctx context.Context) error {
		_, err := chats.Save(ctx, domain.ChatRecord{ChatSessionID: chatSession, Message: "kept", CreatedAt: time.Now()})
		return err
	})
	require.NoError(t, err)

	records, err = chats.FindBySessionID(ctx, chatSession)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "kept", records[0].Message)
}
