// Package vault encrypts password vault secrets. Keys are derived from the
// master password with Argon2id and cached per session by Service; the store
// only ever sees ciphertext.
//
// Ciphertext is base64(nonce || XChaCha20-Poly1305(plaintext)). The salt
// column records the KDF parameters next to the salt
// ("argon2id$t=3$m=65536$<base64 salt>") so a change of vault.kdf_* settings
// never locks out an existing vault.
package vault

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jpl-au/pim/internal/store"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

var (
	// ErrLocked is returned when a session has no cached key.
	ErrLocked = errors.New("vault is locked")
	// ErrWrongPassword is returned when the master password fails the check.
	ErrWrongPassword = errors.New("wrong master password")
	// ErrAlreadySetup is returned by Setup when a vault already exists.
	ErrAlreadySetup = errors.New("vault is already set up")
	// ErrCiphertext is returned for malformed or tampered ciphertext.
	ErrCiphertext = errors.New("invalid ciphertext")
)

const (
	saltSize   = 16
	keySize    = chacha20poly1305.KeySize
	checkPlain = "pim-vault-check"
)

// Params are the Argon2id cost parameters.
type Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultParams returns the parameters used when none are configured.
func DefaultParams() Params {
	return Params{Time: 3, Memory: 64 * 1024, Threads: 4}
}

// Store is the part of the store the vault service needs.
type Store interface {
	VaultSettings(ctx context.Context) (*store.VaultSettings, error)
	SaveVaultSettings(ctx context.Context, salt, check string) error
	RewriteSecrets(ctx context.Context, salt, check string, rewrite func(string) (string, error)) (int, error)
}

// Service owns the session-keyed key store.
type Service struct {
	st     Store
	params Params

	mu   sync.RWMutex
	keys map[string][]byte
}

// New returns a Service with no unlocked sessions.
func New(st Store, p Params) *Service {
	if p.Threads == 0 {
		p.Threads = DefaultParams().Threads
	}
	return &Service{st: st, params: p, keys: make(map[string][]byte)}
}

// IsSetup reports whether a master password has been configured.
func (s *Service) IsSetup(ctx context.Context) (bool, error) {
	_, err := s.st.VaultSettings(ctx)
	if errors.Is(err, store.ErrVaultNotConfigured) {
		return false, nil
	}
	return err == nil, err
}

// Setup configures the master password and unlocks session with it.
func (s *Service) Setup(ctx context.Context, session, master string) error {
	ok, err := s.IsSetup(ctx)
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadySetup
	}
	salt, key, check, err := s.fresh(master)
	if err != nil {
		return err
	}
	if err := s.st.SaveVaultSettings(ctx, salt, check); err != nil {
		return err
	}
	s.cache(session, key)
	return nil
}

// Unlock verifies master against the stored check value and caches the key
// for session.
func (s *Service) Unlock(ctx context.Context, session, master string) error {
	key, err := s.verify(ctx, master)
	if err != nil {
		return err
	}
	s.cache(session, key)
	return nil
}

// Lock forgets the key for session.
func (s *Service) Lock(session string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k, ok := s.keys[session]; ok {
		clear(k)
		delete(s.keys, session)
	}
}

// LockAll forgets every cached key.
func (s *Service) LockAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, k := range s.keys {
		clear(k)
		delete(s.keys, id)
	}
}

// Unlocked reports whether session holds a key.
func (s *Service) Unlocked(session string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.keys[session]
	return ok
}

// Encrypt seals plaintext with the key of session.
func (s *Service) Encrypt(session, plaintext string) (string, error) {
	key, err := s.key(session)
	if err != nil {
		return "", err
	}
	return seal(key, plaintext)
}

// Decrypt opens ciphertext with the key of session.
func (s *Service) Decrypt(session, ciphertext string) (string, error) {
	key, err := s.key(session)
	if err != nil {
		return "", err
	}
	return open(key, ciphertext)
}

// ChangeMaster re-encrypts every entry under a key derived from next, after
// verifying current. Other sessions are locked; session stays unlocked with
// the new key. Returns the number of re-encrypted entries.
func (s *Service) ChangeMaster(ctx context.Context, session, current, next string) (int, error) {
	oldKey, err := s.verify(ctx, current)
	if err != nil {
		return 0, err
	}
	defer clear(oldKey)

	salt, newKey, check, err := s.fresh(next)
	if err != nil {
		return 0, err
	}
	n, err := s.st.RewriteSecrets(ctx, salt, check, func(ct string) (string, error) {
		plain, err := open(oldKey, ct)
		if err != nil {
			return "", err
		}
		return seal(newKey, plain)
	})
	if err != nil {
		clear(newKey)
		return 0, err
	}
	s.LockAll()
	s.cache(session, newKey)
	return n, nil
}

func (s *Service) key(session string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.keys[session]
	if !ok {
		return nil, ErrLocked
	}
	return k, nil
}

func (s *Service) cache(session string, key []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.keys[session]; ok {
		clear(old)
	}
	s.keys[session] = key
}

// fresh derives a key for master under a new salt and seals the check value.
func (s *Service) fresh(master string) (salt string, key []byte, check string, err error) {
	raw := make([]byte, saltSize)
	if _, err := rand.Read(raw); err != nil {
		return "", nil, "", fmt.Errorf("generating salt: %w", err)
	}
	key = derive(master, raw, s.params)
	check, err = seal(key, checkPlain)
	if err != nil {
		return "", nil, "", err
	}
	return encodeSalt(raw, s.params), key, check, nil
}

func (s *Service) verify(ctx context.Context, master string) ([]byte, error) {
	set, err := s.st.VaultSettings(ctx)
	if err != nil {
		return nil, err
	}
	raw, p, err := decodeSalt(set.Salt)
	if err != nil {
		return nil, err
	}
	key := derive(master, raw, p)
	plain, err := open(key, set.Check)
	if err != nil || subtle.ConstantTimeCompare([]byte(plain), []byte(checkPlain)) != 1 {
		clear(key)
		return nil, ErrWrongPassword
	}
	return key, nil
}

func derive(master string, salt []byte, p Params) []byte {
	return argon2.IDKey([]byte(master), salt, p.Time, p.Memory, p.Threads, keySize)
}

func seal(key []byte, plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	out := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

func open(key []byte, ciphertext string) (string, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", err
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil || len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", ErrCiphertext
	}
	nonce, body := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, body, nil)
	if err != nil {
		return "", ErrCiphertext
	}
	return string(plain), nil
}

func encodeSalt(raw []byte, p Params) string {
	return fmt.Sprintf("argon2id$t=%d$m=%d$p=%d$%s", p.Time, p.Memory, p.Threads,
		base64.StdEncoding.EncodeToString(raw))
}

// decodeSalt accepts the parameterised form and a bare base64 salt, which
// implies the default parameters.
func decodeSalt(s string) ([]byte, Params, error) {
	p := DefaultParams()
	parts := strings.Split(s, "$")
	enc := s
	if len(parts) == 5 && parts[0] == "argon2id" {
		if _, err := fmt.Sscanf(parts[1]+" "+parts[2]+" "+parts[3], "t=%d m=%d p=%d", &p.Time, &p.Memory, &p.Threads); err != nil {
			return nil, p, fmt.Errorf("%w: salt parameters: %v", ErrCiphertext, err)
		}
		enc = parts[4]
	}
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return nil, p, fmt.Errorf("%w: salt: %v", ErrCiphertext, err)
	}
	return raw, p, nil
}
