package vault

import (
	"context"
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"

	"veraauth/internal/infra/vaultclient"

	"github.com/google/uuid"
)

const pathPrefix = "secret/data/veraauth/orgs/"

// Manager is a Vault-backed KMS. Each org key pair lives at one KV path
// addressed by the opaque reference returned from GenerateKeyPair.
type Manager struct {
	client *vaultclient.Client
}

type storedKey struct {
	Alg             string `json:"alg"`
	SeedBase64      string `json:"seed_base64"`
	PublicKeyBase64 string `json:"public_key_base64"`
}

func NewManager(client *vaultclient.Client) *Manager {
	return &Manager{client: client}
}

func NewManagerFromAddr(addr, token string) (*Manager, error) {
	if addr == "" || token == "" {
		return nil, errors.New("VAULT_ADDR and VAULT_TOKEN are required")
	}
	return NewManager(vaultclient.New(addr, token)), nil
}

func (m *Manager) Init(ctx context.Context) error {
	if m == nil || m.client == nil {
		return errors.New("vault manager not configured")
	}
	return ctx.Err()
}

func (m *Manager) GenerateKeyPair(ctx context.Context) (string, []byte, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", nil, err
	}
	publicKey, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", nil, err
	}
	ref := uuid.NewString()
	key := storedKey{
		Alg:             "ed25519",
		SeedBase64:      base64.StdEncoding.EncodeToString(priv.Seed()),
		PublicKeyBase64: base64.StdEncoding.EncodeToString(publicKey),
	}
	if err := m.client.WriteKV(ctx, pathPrefix+ref, key); err != nil {
		return "", nil, fmt.Errorf("store org key: %w", err)
	}
	return ref, publicKey, nil
}

func (m *Manager) RetrievePrivateKey(ctx context.Context, ref string) (crypto.Signer, error) {
	if ref == "" {
		return nil, errors.New("key reference is required")
	}
	var key storedKey
	if err := m.client.ReadKV(ctx, pathPrefix+ref, &key); err != nil {
		return nil, err
	}
	if key.Alg != "" && key.Alg != "ed25519" {
		return nil, errors.New("unsupported key algorithm")
	}
	seed, err := base64.StdEncoding.DecodeString(key.SeedBase64)
	if err != nil {
		return nil, err
	}
	if len(seed) != ed25519.SeedSize {
		return nil, errors.New("invalid ed25519 seed length")
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

func (m *Manager) DestroyKey(ctx context.Context, ref string) error {
	if ref == "" {
		return errors.New("key reference is required")
	}
	return m.client.DeleteKV(ctx, pathPrefix+ref)
}
