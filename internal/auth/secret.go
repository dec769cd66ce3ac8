package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tartampluch/hebday/internal/config"
	"github.com/zalando/go-keyring"
)

// SigningKey returns the session signing key kept in the OS keyring,
// generating and storing a new one on first use.
func SigningKey() ([]byte, error) {
	stored, err := keyring.Get(config.KeyringService, config.KeyringSessionKey)
	switch {
	case err == nil:
		// An unreadable key is replaced, which signs every session out.
		if key, err := hex.DecodeString(stored); err == nil && len(key) >= config.SessionKeyBytes {
			return key, nil
		}
	case !errors.Is(err, keyring.ErrNotFound):
		return nil, fmt.Errorf("%s: %w", config.ErrSecretAccess, err)
	}

	key := make([]byte, config.SessionKeyBytes)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrSecretAccess, err)
	}
	if err := keyring.Set(config.KeyringService, config.KeyringSessionKey, hex.EncodeToString(key)); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrSecretAccess, err)
	}
	slog.Info(config.MsgSecretCreated, config.LogKeyComponent, config.CompAuth)
	return key, nil
}
