package soft

import (
	"context"
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Manager is an in-process KMS for development and tests. Keys live in
// memory and die with the process.
type Manager struct {
	mu   sync.RWMutex
	keys map[string]ed25519.PrivateKey
}

func NewManager() *Manager {
	return &Manager{keys: map[string]ed25519.PrivateKey{}}
}

func (m *Manager) Init(ctx context.Context) error {
	return ctx.Err()
}

func (m *Manager) GenerateKeyPair(ctx context.Context) (string, []byte, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", nil, err
	}
	publicKey, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", nil, err
	}
	ref := uuid.NewString()
	m.mu.Lock()
	m.keys[ref] = priv
	m.mu.Unlock()
	return ref, publicKey, nil
}

func (m *Manager) RetrievePrivateKey(ctx context.Context, ref string) (crypto.Signer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	key, ok := m.keys[ref]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.New("unknown key reference")
	}
	return key, nil
}

func (m *Manager) DestroyKey(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.keys, ref)
	m.mu.Unlock()
	return nil
}
