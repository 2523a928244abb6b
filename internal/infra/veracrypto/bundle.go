package veracrypto

import (
	"bytes"
	"crypto"
	"crypto/ed25519"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type bundleValidity struct {
	NotBefore string `json:"notBefore"`
	NotAfter  string `json:"notAfter"`
}

type bundleMember struct {
	User string `json:"user"`
}

type bundleEnvelope struct {
	Plaintext      []byte         `json:"plaintext"`
	ServiceOID     string         `json:"serviceOid"`
	OrgCertificate []byte         `json:"orgCertificate"`
	DNSSECChain    []byte         `json:"dnssecChain"`
	Validity       bundleValidity `json:"validity"`
	Member         *bundleMember  `json:"member,omitempty"`
}

type signedBundle struct {
	Envelope  json.RawMessage `json:"envelope"`
	Signature []byte          `json:"signature"`
}

// VerifiedBundle is what comes out of a successful Verify call. MemberUser
// is attribution only: the bundle is always signed with the org key, so
// WasSignedByMember stays false on this issuance path.
type VerifiedBundle struct {
	Plaintext         []byte
	ServiceOID        string
	MemberUser        string
	WasSignedByMember bool
	Validity          struct {
		NotBefore time.Time
		NotAfter  time.Time
	}
}

func signEnvelope(envelope bundleEnvelope, key crypto.Signer) ([]byte, error) {
	raw, err := json.Marshal(envelope)
	if err != nil {
		return nil, err
	}
	canonical, err := canonicalizeJSON(raw)
	if err != nil {
		return nil, err
	}
	signature, err := signWithKey(key, canonical)
	if err != nil {
		return nil, err
	}
	return json.Marshal(signedBundle{Envelope: raw, Signature: signature})
}

// VerifyBundle checks a serialized signature bundle: the signature against
// the embedded org certificate's key, the service OID, the validity window
// at the given instant, and (when anchors are supplied) that the org
// certificate is one of the trusted ones.
func VerifyBundle(serialized []byte, serviceOID string, at time.Time, trustAnchors [][]byte) (*VerifiedBundle, error) {
	var bundle signedBundle
	if err := json.Unmarshal(serialized, &bundle); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	var envelope bundleEnvelope
	if err := json.Unmarshal(bundle.Envelope, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	cert, err := x509.ParseCertificate(envelope.OrgCertificate)
	if err != nil {
		return nil, fmt.Errorf("parse org certificate: %w", err)
	}
	pub, ok := cert.PublicKey.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("unsupported org certificate key type")
	}
	canonical, err := canonicalizeJSON(bundle.Envelope)
	if err != nil {
		return nil, err
	}
	if !ed25519.Verify(pub, canonical, bundle.Signature) {
		return nil, errors.New("bundle signature verification failed")
	}

	if serviceOID != "" && envelope.ServiceOID != serviceOID {
		return nil, errors.New("service OID mismatch")
	}

	notBefore, err := time.Parse(time.RFC3339, envelope.Validity.NotBefore)
	if err != nil {
		return nil, fmt.Errorf("parse validity: %w", err)
	}
	notAfter, err := time.Parse(time.RFC3339, envelope.Validity.NotAfter)
	if err != nil {
		return nil, fmt.Errorf("parse validity: %w", err)
	}
	if at.Before(notBefore) || at.After(notAfter) {
		return nil, errors.New("validity period does not overlap the verification time")
	}

	if len(trustAnchors) > 0 && !anchored(envelope.OrgCertificate, trustAnchors) {
		return nil, errors.New("org certificate is not a trust anchor")
	}

	verified := &VerifiedBundle{
		Plaintext:  envelope.Plaintext,
		ServiceOID: envelope.ServiceOID,
	}
	if envelope.Member != nil {
		verified.MemberUser = envelope.Member.User
	}
	verified.Validity.NotBefore = notBefore
	verified.Validity.NotAfter = notAfter
	return verified, nil
}

func anchored(cert []byte, anchors [][]byte) bool {
	for _, anchor := range anchors {
		if bytes.Equal(cert, anchor) {
			return true
		}
	}
	return false
}
