package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "airdine"

// Keys under which the bearer tokens are stored.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

// Store reads and writes credentials in a keyring.
type Store struct {
	ring keyring.Keyring
}

// New wraps an already opened keyring.
func New(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Open returns a Store backed by the system keyring.
func Open() (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/airdine/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("airdine-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return New(ring), nil
}

// Get retrieves a credential value by key. A missing key yields "".
func (s *Store) Get(key string) (string, error) {
	item, err := s.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key.
func (s *Store) Set(key string, value string) error {
	err := s.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: "AirDine " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	err := s.ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}

// Tokens returns the stored access and refresh tokens.
func (s *Store) Tokens() (string, string, error) {
	access, err := s.Get(AccessTokenKey)
	if err != nil {
		return "", "", err
	}
	refresh, err := s.Get(RefreshTokenKey)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// SaveAccess stores a new access token.
func (s *Store) SaveAccess(access string) error {
	return s.Set(AccessTokenKey, access)
}

// SaveTokens stores both tokens. An empty value removes that token.
func (s *Store) SaveTokens(access, refresh string) error {
	for key, value := range map[string]string{
		AccessTokenKey:  access,
		RefreshTokenKey: refresh,
	} {
		var err error
		if value == "" {
			err = s.Delete(key)
		} else {
			err = s.Set(key, value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
