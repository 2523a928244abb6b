package domain

import (
	"crypto"
	"encoding/json"
	"time"
)

// BotCommonName is the certificate common name used when a credential is
// attributed to the org itself rather than a named member.
const BotCommonName = "@"

type AttributionKind string

const (
	AttributionMember AttributionKind = "member"
	AttributionBot    AttributionKind = "bot"
)

// Attribution says who an issued credential speaks for: a named member or
// the org's anonymous bot identity. The two variants are explicit so the
// branch stays exhaustive instead of hanging off an optional name.
type Attribution struct {
	Kind AttributionKind
	Name string
}

func NamedMember(name string) Attribution {
	return Attribution{Kind: AttributionMember, Name: name}
}

func AnonymousBot() Attribution {
	return Attribution{Kind: AttributionBot}
}

func AttributionFor(member Member) Attribution {
	if member.Name == "" {
		return AnonymousBot()
	}
	return NamedMember(member.Name)
}

func (a Attribution) CommonName() string {
	if a.Kind == AttributionMember {
		return a.Name
	}
	return BotCommonName
}

// ValidityPeriod is the closed interval during which a credential verifies.
type ValidityPeriod struct {
	NotBefore time.Time
	NotAfter  time.Time
}

func (v ValidityPeriod) Contains(t time.Time) bool {
	return !t.Before(v.NotBefore) && !t.After(v.NotAfter)
}

func (v ValidityPeriod) IsEmpty() bool {
	return !v.NotAfter.After(v.NotBefore)
}

// OrgChain is the per-request proof of an org's identity: its freshly
// self-issued certificate, the live private key behind it, and the DNSSEC
// chain for its domain. It is built per issuance and never cached because
// the certificate's validity window is stamped at build time.
type OrgChain struct {
	OrgName     string
	Certificate []byte
	PrivateKey  crypto.Signer
	DNSSECChain []byte
}

// SignatureBundle is a signed, time-bounded credential binding a plaintext
// to an org (and optionally a member) under a service OID.
type SignatureBundle struct {
	Serialized []byte
	Validity   ValidityPeriod
}

// MemberIDBundle is the member-identity counterpart: the member certificate
// chained to the org certificate plus the org's DNSSEC chain.
type MemberIDBundle struct {
	MemberCertificate []byte `json:"memberCertificate"`
	OrgCertificate    []byte `json:"orgCertificate"`
	DNSSECChain       []byte `json:"dnssecChain"`
}

func (b MemberIDBundle) Serialize() ([]byte, error) {
	return json.Marshal(b)
}
