// Package vault persists the Hearth session cookie across CLI runs,
// encrypted at rest. The file format is salt || nonce || ciphertext
// with an argon2id-derived key and XChaCha20-Poly1305 sealing; a wrong
// passphrase fails closed.
package vault

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const saltSize = 16

// argon2id parameters (RFC 9106 low-memory profile).
const (
	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// Vault seals and unseals the session cookie file.
type Vault struct {
	path       string
	passphrase []byte
	logger     *zap.Logger
}

// New creates a Vault writing to path, keyed by passphrase.
func New(path, passphrase string, logger *zap.Logger) *Vault {
	return &Vault{
		path:       path,
		passphrase: []byte(passphrase),
		logger:     logger,
	}
}

// storedCookie is the serializable subset of http.Cookie the session
// credential needs.
type storedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HTTPOnly bool      `json:"http_only,omitempty"`
}

// SaveCookies seals the given cookies into the vault file. A fresh salt
// and nonce are drawn on every save.
func (v *Vault) SaveCookies(cookies []*http.Cookie) error {
	stored := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		stored = append(stored, storedCookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
		})
	}
	payload, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode cookies: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("draw salt: %w", err)
	}
	aead, err := chacha20poly1305.NewX(v.deriveKey(salt))
	if err != nil {
		return fmt.Errorf("init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("draw nonce: %w", err)
	}

	blob := append(salt, nonce...)
	blob = aead.Seal(blob, nonce, payload, nil)

	if err := os.MkdirAll(filepath.Dir(v.path), 0o700); err != nil {
		return fmt.Errorf("create vault dir: %w", err)
	}
	if err := os.WriteFile(v.path, blob, 0o600); err != nil {
		return fmt.Errorf("write vault %q: %w", v.path, err)
	}

	v.logger.Debug("session cookie vaulted", zap.Int("cookies", len(cookies)))
	return nil
}

// LoadCookies unseals the vault file. A missing file yields (nil, nil):
// there is simply no persisted session. A wrong passphrase or a
// tampered file yields an error.
func (v *Vault) LoadCookies() ([]*http.Cookie, error) {
	blob, err := os.ReadFile(v.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read vault %q: %w", v.path, err)
	}
	if len(blob) < saltSize+chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("vault %q: file truncated", v.path)
	}

	salt := blob[:saltSize]
	nonce := blob[saltSize : saltSize+chacha20poly1305.NonceSizeX]
	sealed := blob[saltSize+chacha20poly1305.NonceSizeX:]

	aead, err := chacha20poly1305.NewX(v.deriveKey(salt))
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	payload, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("unseal vault %q: %w", v.path, err)
	}

	var stored []storedCookie
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, fmt.Errorf("decode cookies: %w", err)
	}

	cookies := make([]*http.Cookie, 0, len(stored))
	for _, s := range stored {
		cookies = append(cookies, &http.Cookie{
			Name:     s.Name,
			Value:    s.Value,
			Path:     s.Path,
			Domain:   s.Domain,
			Expires:  s.Expires,
			Secure:   s.Secure,
			HttpOnly: s.HTTPOnly,
		})
	}
	return cookies, nil
}

// Clear removes the vault file. Called on logout so a dead session
// never outlives the user's intent.
func (v *Vault) Clear() error {
	if err := os.Remove(v.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear vault %q: %w", v.path, err)
	}
	return nil
}

func (v *Vault) deriveKey(salt []byte) []byte {
	return argon2.IDKey(v.passphrase, salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
}
