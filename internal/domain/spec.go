package domain

import "time"

// OIDCAuth names the identity trusted to request issuance under a spec: a
// token from IssuerURL whose SubjectClaim equals SubjectValue.
type OIDCAuth struct {
	IssuerURL    string
	SubjectClaim string
	SubjectValue string
}

const (
	DefaultSpecTTLSeconds = 3600
	MaxSpecTTLSeconds     = 3600
)

// SignatureSpec is a stored grant: which OIDC identity may obtain a signature
// over Plaintext, under which service OID, and for how long the resulting
// bundle stays valid. TTLSeconds counts from issuance time, not creation time.
type SignatureSpec struct {
	ID         string
	OrgName    string
	MemberID   string
	Auth       OIDCAuth
	ServiceOID string
	TTLSeconds int
	Plaintext  []byte
	CreatedAt  time.Time
}

func (s SignatureSpec) TTL() time.Duration {
	ttl := s.TTLSeconds
	if ttl <= 0 {
		ttl = DefaultSpecTTLSeconds
	}
	if ttl > MaxSpecTTLSeconds {
		ttl = MaxSpecTTLSeconds
	}
	return time.Duration(ttl) * time.Second
}
