package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/bbkanego/seerbot/pkg/domain"
	"github.com/bbkanego/seerbot/pkg/ports"
)

// EnvelopeKey is the attribute under which the ciphertext is stored.
const EnvelopeKey = "__encrypted__"

// ErrNotEncrypted is returned when loading a snapshot that carries no envelope.
var ErrNotEncrypted = errors.New("session is missing encrypted data envelope")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey encrypts new snapshots. It must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys are tried in order when the active key cannot decrypt,
	// so keys can be rotated without dropping sessions.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.SessionStore
	config EncryptionConfig
}

// NewEncryption returns a middleware that seals the whole snapshot with AES-GCM.
// Only the session ids and the update time stay readable in the underlying store.
func NewEncryption(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, fmt.Errorf("active key must be 32 bytes (AES-256), got %d", len(config.ActiveKey))
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &encryptionMiddleware{next: next, config: config}
	}, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, sessionID string, snap domain.SessionSnapshot) error {
	plain, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	sealed, err := encrypt(plain, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt session: %w", err)
	}

	envelope := domain.SessionSnapshot{
		SessionID:     snap.SessionID,
		ChatSessionID: snap.ChatSessionID,
		UpdatedAt:     snap.UpdatedAt,
		Attributes:    map[string]any{EnvelopeKey: base64.StdEncoding.EncodeToString(sealed)},
	}
	return m.next.Save(ctx, sessionID, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, sessionID string) (domain.SessionSnapshot, error) {
	envelope, err := m.next.Load(ctx, sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}

	encoded, ok := envelope.Attributes[EnvelopeKey].(string)
	if !ok {
		return domain.SessionSnapshot{}, fmt.Errorf("session %s: %w", sessionID, ErrNotEncrypted)
	}
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	plain, err := decryptWithRotation(sealed, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("failed to decrypt session: %w", err)
	}

	var snap domain.SessionSnapshot
	if err := json.Unmarshal(plain, &snap); err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("failed to unmarshal decrypted session: %w", err)
	}
	return snap, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func encrypt(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext, active []byte, fallbacks [][]byte) ([]byte, error) {
	for _, key := range append([][]byte{active}, fallbacks...) {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, body := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
