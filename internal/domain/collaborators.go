package domain

import (
	"context"
	"crypto"
)

// KeyManagementService holds org key pairs. References returned by
// GenerateKeyPair are opaque; callers store them and pass them back verbatim.
type KeyManagementService interface {
	Init(ctx context.Context) error
	GenerateKeyPair(ctx context.Context) (ref string, publicKey []byte, err error)
	RetrievePrivateKey(ctx context.Context, ref string) (crypto.Signer, error)
	DestroyKey(ctx context.Context, ref string) error
}

// BundleSignRequest carries everything the crypto collaborator needs to
// produce a signature bundle.
type BundleSignRequest struct {
	Plaintext   []byte
	ServiceOID  string
	Chain       OrgChain
	Attribution Attribution
	Validity    ValidityPeriod
}

// VeraCrypto is the VeraID cryptographic collaborator: DNSSEC proof
// retrieval, certificate issuance, and bundle signing.
type VeraCrypto interface {
	RetrieveDNSSECChain(ctx context.Context, orgName string) ([]byte, error)
	SelfIssueOrgCertificate(orgName string, key crypto.Signer, validity ValidityPeriod) ([]byte, error)
	IssueMemberCertificate(commonName string, memberPublicKey []byte, chain OrgChain, validity ValidityPeriod) ([]byte, error)
	SignBundle(req BundleSignRequest) (*SignatureBundle, error)
}

// IssuanceInput is what the policy gate sees before a credential is signed.
type IssuanceInput struct {
	OrgName    string `json:"orgName"`
	IssuerURL  string `json:"issuerUrl"`
	Audience   string `json:"audience"`
	ServiceOID string `json:"serviceOid"`
	Subject    string `json:"subject"`
}
