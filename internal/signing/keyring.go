// Package signing holds the per-instance signing keys strategies use to
// authorize executions.
package signing

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"filippo.io/edwards25519"
)

const (
	// DefaultKey is the key name every instance signs executions with.
	DefaultKey = "default"

	// AlgorithmEd25519 is the only supported algorithm.
	AlgorithmEd25519 = "ed25519"
)

// Signer signs payloads with named keys.
type Signer interface {
	PublicKey(keyName string) ([]byte, error)
	Sign(keyName string, payload []byte) ([]byte, error)
}

// Keyring is an Ed25519 Signer backed by an optional JSON key file.
type Keyring struct {
	mu   sync.RWMutex
	path string // empty for in-memory keyrings
	keys map[string]ed25519.PrivateKey
}

// Compile-time interface check.
var _ Signer = (*Keyring)(nil)

type rawKey struct {
	Name string `json:"name"`
	Key  string `json:"key"` // hex of the 32-byte seed
}

// NewKeyring builds an in-memory keyring from existing keys.
func NewKeyring(keys map[string]ed25519.PrivateKey) *Keyring {
	k := &Keyring{keys: make(map[string]ed25519.PrivateKey, len(keys))}
	for name, key := range keys {
		k.keys[name] = key
	}
	return k
}

// NewEphemeral returns an in-memory keyring holding a fresh default key.
func NewEphemeral() (*Keyring, error) {
	_, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating Ed25519 key: %w", err)
	}
	return NewKeyring(map[string]ed25519.PrivateKey{DefaultKey: private}), nil
}

// KeyPath returns the key file of an instance inside dir.
func KeyPath(dir, instanceID string) string {
	return filepath.Join(dir, instanceID+".json")
}

// LoadOrCreate loads the key file of instanceID from dir, creating it with a
// fresh default key on first use. Returns whether the file was created.
func LoadOrCreate(dir, instanceID string) (*Keyring, bool, error) {
	if instanceID == "" {
		return nil, false, fmt.Errorf("%w: empty instance id", ErrInvalidKey)
	}
	path := KeyPath(dir, instanceID)

	data, err := os.ReadFile(path)
	if err == nil {
		k, err := parseKeyFile(data)
		if err != nil {
			return nil, false, fmt.Errorf("reading key file %s: %w", path, err)
		}
		k.path = path
		return k, false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, false, fmt.Errorf("reading key file %s: %w", path, err)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, false, fmt.Errorf("creating key directory: %w", err)
	}
	k, err := NewEphemeral()
	if err != nil {
		return nil, false, err
	}
	k.path = path
	if err := k.save(); err != nil {
		return nil, false, err
	}
	return k, true, nil
}

func parseKeyFile(data []byte) (*Keyring, error) {
	var raw []rawKey
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding keys: %w", err)
	}

	k := &Keyring{keys: make(map[string]ed25519.PrivateKey, len(raw))}
	for _, r := range raw {
		seed, err := hex.DecodeString(r.Key)
		if err != nil || len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("%w: key %q must be %d hex bytes", ErrInvalidKey, r.Name, ed25519.SeedSize)
		}
		k.keys[r.Name] = ed25519.NewKeyFromSeed(seed)
	}
	return k, nil
}

func (k *Keyring) save() error {
	if k.path == "" {
		return nil
	}

	names := make([]string, 0, len(k.keys))
	for name := range k.keys {
		names = append(names, name)
	}
	sort.Strings(names)

	raw := make([]rawKey, 0, len(names))
	for _, name := range names {
		raw = append(raw, rawKey{Name: name, Key: hex.EncodeToString(k.keys[name].Seed())})
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding keys: %w", err)
	}
	if err := os.WriteFile(k.path, data, 0o600); err != nil {
		return fmt.Errorf("writing key file: %w", err)
	}
	return nil
}

// AddKey ensures a key named keyName exists and returns its public key.
func (k *Keyring) AddKey(keyName, algorithm string) ([]byte, error) {
	if algorithm != AlgorithmEd25519 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, algorithm)
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if key, ok := k.keys[keyName]; ok {
		return publicOf(key), nil
	}
	_, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating Ed25519 key: %w", err)
	}
	k.keys[keyName] = private
	if err := k.save(); err != nil {
		delete(k.keys, keyName)
		return nil, err
	}
	return publicOf(private), nil
}

// PublicKey returns the 32-byte public key of keyName.
func (k *Keyring) PublicKey(keyName string) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	key, ok := k.keys[keyName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, keyName)
	}
	return publicOf(key), nil
}

// Sign signs payload with keyName.
func (k *Keyring) Sign(keyName string, payload []byte) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	key, ok := k.keys[keyName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, keyName)
	}
	return ed25519.Sign(key, payload), nil
}

func publicOf(key ed25519.PrivateKey) []byte {
	return append([]byte(nil), key.Public().(ed25519.PublicKey)...)
}

// ValidatePublicKey checks that pub is a canonical encoding of a point on
// the Ed25519 curve.
func ValidatePublicKey(pub []byte) error {
	if len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: public key has %d bytes, want %d", ErrInvalidKey, len(pub), ed25519.PublicKeySize)
	}
	if _, err := new(edwards25519.Point).SetBytes(pub); err != nil {
		return fmt.Errorf("%w: public key is not a curve point", ErrInvalidKey)
	}
	return nil
}

// Verify reports whether sig is a valid signature of payload by pub.
func Verify(pub, payload, sig []byte) bool {
	if ValidatePublicKey(pub) != nil {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), payload, sig)
}
