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

	"github.com/kharven/refract/pkg/domain"
	"github.com/kharven/refract/pkg/ports"
)

// EncryptionConfig carries the AES-256 key material for sealing sessions.
type EncryptionConfig struct {
	// ActiveKey seals every new write. Must be 32 bytes.
	ActiveKey []byte

	// FallbackKeys are previous keys, tried in order on reads that the
	// active key cannot open. Rotation: promote a fresh key to active,
	// demote the old one here, drop it once every session has been
	// rewritten.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.StateStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that seals exam states with
// AES-GCM before they reach the underlying store. Persisted envelopes keep
// only the session ID, status, and timestamps in the clear; the prescription,
// safety ledger, and everything else ride in the ciphertext.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, errors.New("active key must be 32 bytes (AES-256)")
	}
	for i, key := range config.FallbackKeys {
		if len(key) != 32 {
			return nil, fmt.Errorf("fallback key %d must be 32 bytes (AES-256)", i)
		}
	}
	return func(next ports.StateStore) ports.StateStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, sessionID string, state *domain.ExamState) error {
	plainText, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state for sealing: %w", err)
	}

	ciphertext, err := seal(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("seal state: %w", err)
	}

	// The envelope keeps status and timestamps visible for monitoring and
	// session listings; clinical content is hidden.
	envelope := &domain.ExamState{
		SessionID: state.SessionID,
		Status:    state.Status,
		Sealed:    base64.StdEncoding.EncodeToString(ciphertext),
		CreatedAt: state.CreatedAt,
		UpdatedAt: state.UpdatedAt,
	}
	return m.next.Save(ctx, sessionID, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, sessionID string) (*domain.ExamState, error) {
	envelope, err := m.next.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// Fail secure: with encryption configured, a plain state in the store
	// is either tampering or a misconfiguration.
	if envelope.Sealed == "" {
		return nil, errors.New("stored state carries no sealed envelope")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(envelope.Sealed)
	if err != nil {
		return nil, fmt.Errorf("decode sealed envelope: %w", err)
	}

	plainText, err := openWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("open sealed state: %w", err)
	}

	var realState domain.ExamState
	if err := json.Unmarshal(plainText, &realState); err != nil {
		return nil, fmt.Errorf("decode unsealed state: %w", err)
	}
	if realState.Verdicts == nil {
		realState.Verdicts = make(map[domain.VerdictKind]int)
	}
	return &realState, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// seal encrypts with AES-GCM and prepends the random nonce to the output.
func seal(plaintext []byte, key []byte) ([]byte, error) {
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

// openWithRotation tries the active key, then each fallback in order.
func openWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := open(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := open(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("no configured key opens this envelope")
}

func open(ciphertext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext shorter than nonce")
	}
	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, sealed, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
