package wallet

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/99designs/keyring"
)

const (
	keychainService = "greeter"

	// PasswordEnv supplies the file keyring password non-interactively.
	PasswordEnv = "GREETER_KEYRING_PASSWORD"
	// BackendEnv pins the keyring backend (e.g. "file", "keychain", "secret-service").
	BackendEnv = "GREETER_KEYRING_BACKEND"
)

// ErrKeyNotFound is returned when a key reference has no stored key.
var ErrKeyNotFound = errors.New("key not found")

// KeystoreBackend stores private keys by wallet name.
type KeystoreBackend interface {
	Store(name, hexKey string) (ref string, err error)
	Retrieve(ref string) (string, error)
	Delete(ref string) error
}

// Keystore wraps OS keychain access.
type Keystore struct {
	ring keyring.Keyring
}

// DefaultKeystore returns a keystore backed by the OS keychain. fileDir is
// used by the encrypted-file fallback on hosts without a keychain.
func DefaultKeystore(fileDir string) (*Keystore, error) {
	cfg := keyring.Config{
		ServiceName:              keychainService,
		KeychainTrustApplication: true,
		FileDir:                  fileDir,
		FilePasswordFunc:         filePassword(),
	}

	// A pinned backend wins. On Linux without a desktop session, fall back
	// to file-based storage.
	switch {
	case os.Getenv(BackendEnv) != "":
		cfg.AllowedBackends = []keyring.BackendType{keyring.BackendType(os.Getenv(BackendEnv))}
	case runtime.GOOS == "linux":
		cfg.AllowedBackends = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.FileBackend,
		}
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		ring, err = keyring.Open(keyring.Config{
			ServiceName:      keychainService,
			AllowedBackends:  []keyring.BackendType{keyring.FileBackend},
			FileDir:          fileDir,
			FilePasswordFunc: cfg.FilePasswordFunc,
		})
		if err != nil {
			return nil, fmt.Errorf("opening keyring: %w", err)
		}
	}
	return &Keystore{ring: ring}, nil
}

func filePassword() keyring.PromptFunc {
	if pw := os.Getenv(PasswordEnv); pw != "" {
		return keyring.FixedStringPrompt(pw)
	}
	return keyring.TerminalPrompt
}

// NewKeystore wraps an already opened keyring.
func NewKeystore(ring keyring.Keyring) *Keystore {
	return &Keystore{ring: ring}
}

func ref(name string) string {
	return keychainService + "." + name
}

// Store saves a private key for a wallet name and returns its reference.
func (k *Keystore) Store(name, hexKey string) (string, error) {
	r := ref(name)
	if err := k.ring.Set(keyring.Item{Key: r, Data: []byte(hexKey), Label: "greeter wallet " + name}); err != nil {
		return "", fmt.Errorf("keychain store: %w", err)
	}
	return r, nil
}

// Retrieve fetches a private key by its reference.
func (k *Keystore) Retrieve(r string) (string, error) {
	item, err := k.ring.Get(r)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, r)
	}
	if err != nil {
		return "", fmt.Errorf("keychain retrieve: %w", err)
	}
	return string(item.Data), nil
}

// Delete removes a stored key. A missing key is not an error.
func (k *Keystore) Delete(r string) error {
	err := k.ring.Remove(r)
	if err == nil || errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return fmt.Errorf("keychain delete: %w", err)
}

// InMemoryKeystore keeps keys in process memory (for tests).
type InMemoryKeystore struct {
	mu   sync.Mutex
	data map[string]string
}

// NewInMemoryKeystore creates an in-memory keystore.
func NewInMemoryKeystore() *InMemoryKeystore {
	return &InMemoryKeystore{data: make(map[string]string)}
}

func (k *InMemoryKeystore) Store(name, hexKey string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	r := ref(name)
	k.data[r] = hexKey
	return r, nil
}

func (k *InMemoryKeystore) Retrieve(r string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := k.data[r]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, r)
	}
	return v, nil
}

func (k *InMemoryKeystore) Delete(r string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.data, r)
	return nil
}
