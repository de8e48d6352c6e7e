package middleware_test

import (
	"context"
	"testing"

	"github.com/bbkanego/seerbot/internal/adapters/memory"
	"github.com/bbkanego/seerbot/pkg/domain"
	"github.com/bbkanego/seerbot/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMasking(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewSessionStore()
	mw, err := middleware.NewPIIMasking([]string{"(?i)email", "^phone$"})
	require.NoError(t, err)
	store := mw(underlying)

	snap := domain.SessionSnapshot{
		SessionID: "s1",
		Attributes: map[string]any{
			"userEmail": "a@example.com",
			"profile":   map[string]any{"phone": "555", "name": "Ada"},
		},
		Conversation: &domain.ConversationSnapshot{
			Template: "reservation",
			State:    "ValidGuestCount",
			Vars:     map[string]any{"email": "b@example.com", "guests": 4},
		},
	}
	require.NoError(t, store.Save(ctx, "s1", snap))

	loaded, err := underlying.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, loaded.Attributes["userEmail"])
	profile := loaded.Attributes["profile"].(map[string]any)
	assert.Equal(t, middleware.Mask, profile["phone"])
	assert.Equal(t, "Ada", profile["name"])
	assert.Equal(t, middleware.Mask, loaded.Conversation.Vars["email"])

	assert.Equal(t, "a@example.com", snap.Attributes["userEmail"], "the caller's snapshot is untouched")
	assert.Equal(t, "b@example.com", snap.Conversation.Vars["email"])
}

func TestPIIMasking_BadPattern(t *testing.T) {
	_, err := middleware.NewPIIMasking([]string{"("})
	assert.Error(t, err)
}

func TestChain_EncryptsAfterMasking(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewSessionStore()
	pii, err := middleware.NewPIIMasking([]string{"email"})
	require.NoError(t, err)
	enc, err := middleware.NewEncryption(middleware.EncryptionConfig{ActiveKey: make([]byte, 32)})
	require.NoError(t, err)

	store := middleware.Chain(underlying, pii, enc)
	require.NoError(t, store.Save(ctx, "s1", domain.SessionSnapshot{SessionID: "s1", Attributes: map[string]any{"email": "x"}}))

	raw, err := underlying.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Contains(t, raw.Attributes, middleware.EnvelopeKey)

	// Reading through the chain decrypts, and the value was masked before sealing.
	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, loaded.Attributes["email"])
}
