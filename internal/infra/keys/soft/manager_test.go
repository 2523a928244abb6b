package soft

import (
	"context"
	"crypto"
	"crypto/ed25519"
	"crypto/x509"
	"testing"
)

func TestManager_Lifecycle(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	if err := m.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	ref, publicKey, err := m.GenerateKeyPair(ctx)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if ref == "" {
		t.Fatal("expected a non-empty key reference")
	}
	pub, err := x509.ParsePKIXPublicKey(publicKey)
	if err != nil {
		t.Fatalf("public key is not DER: %v", err)
	}
	edPub, ok := pub.(ed25519.PublicKey)
	if !ok {
		t.Fatalf("unexpected public key type %T", pub)
	}

	signer, err := m.RetrievePrivateKey(ctx, ref)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	message := []byte("sign me")
	sig, err := signer.Sign(nil, message, crypto.Hash(0))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !ed25519.Verify(edPub, message, sig) {
		t.Fatal("signature does not verify against the returned public key")
	}

	if err := m.DestroyKey(ctx, ref); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if _, err := m.RetrievePrivateKey(ctx, ref); err == nil {
		t.Fatal("expected an error after destroy")
	}
}

func TestManager_UnknownRef(t *testing.T) {
	m := NewManager()
	if _, err := m.RetrievePrivateKey(context.Background(), "no-such-ref"); err == nil {
		t.Fatal("expected an error for an unknown reference")
	}
}

func TestManager_DistinctKeys(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	ref1, pub1, err := m.GenerateKeyPair(ctx)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	ref2, pub2, err := m.GenerateKeyPair(ctx)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if ref1 == ref2 {
		t.Fatal("references must be unique")
	}
	if string(pub1) == string(pub2) {
		t.Fatal("key material must differ across generations")
	}
}
