package veracrypto

import (
	"context"
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"veraauth/internal/domain"
)

const (
	defaultResolverURL    = "https://cloudflare-dns.com/dns-query"
	defaultResolveTimeout = 5 * time.Second
)

// Service implements the VeraID crypto collaborator: DNSSEC chain retrieval
// over DNS-over-HTTPS, X.509 certificate issuance, and bundle signing.
type Service struct {
	ResolverURL string
	HTTPClient  *http.Client
}

// RetrieveDNSSECChain fetches the signed DNS records proving control of the
// org's domain. The response is carried opaquely inside issued bundles.
func (s *Service) RetrieveDNSSECChain(ctx context.Context, orgName string) ([]byte, error) {
	if orgName == "" {
		return nil, errors.New("org name is required")
	}
	query := url.Values{}
	query.Set("name", "_veraid."+orgName)
	query.Set("type", "TXT")
	query.Set("do", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.resolverURL()+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/dns-json")

	resp, err := s.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("dnssec resolver: unexpected status %d", resp.StatusCode)
	}
	chain, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if len(chain) == 0 {
		return nil, errors.New("dnssec resolver: empty response")
	}
	return chain, nil
}

func (s *Service) SelfIssueOrgCertificate(orgName string, key crypto.Signer, validity domain.ValidityPeriod) ([]byte, error) {
	if key == nil {
		return nil, errors.New("org private key is required")
	}
	serial, err := randomSerial()
	if err != nil {
		return nil, err
	}
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: orgName},
		NotBefore:             validity.NotBefore,
		NotAfter:              validity.NotAfter,
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}
	return x509.CreateCertificate(rand.Reader, template, template, key.Public(), key)
}

func (s *Service) IssueMemberCertificate(commonName string, memberPublicKey []byte, chain domain.OrgChain, validity domain.ValidityPeriod) ([]byte, error) {
	if commonName == "" {
		return nil, errors.New("common name is required")
	}
	orgCert, err := x509.ParseCertificate(chain.Certificate)
	if err != nil {
		return nil, fmt.Errorf("parse org certificate: %w", err)
	}
	memberPub, err := x509.ParsePKIXPublicKey(memberPublicKey)
	if err != nil {
		return nil, fmt.Errorf("parse member public key: %w", err)
	}
	serial, err := randomSerial()
	if err != nil {
		return nil, err
	}
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    validity.NotBefore,
		NotAfter:     validity.NotAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	return x509.CreateCertificate(rand.Reader, template, orgCert, memberPub, chain.PrivateKey)
}

func (s *Service) SignBundle(req domain.BundleSignRequest) (*domain.SignatureBundle, error) {
	if req.Chain.PrivateKey == nil {
		return nil, errors.New("org private key is required")
	}
	if req.Validity.IsEmpty() {
		return nil, errors.New("validity period is empty")
	}
	envelope := bundleEnvelope{
		Plaintext:      req.Plaintext,
		ServiceOID:     req.ServiceOID,
		OrgCertificate: req.Chain.Certificate,
		DNSSECChain:    req.Chain.DNSSECChain,
		Validity: bundleValidity{
			NotBefore: req.Validity.NotBefore.UTC().Format(time.RFC3339),
			NotAfter:  req.Validity.NotAfter.UTC().Format(time.RFC3339),
		},
	}
	if req.Attribution.Kind == domain.AttributionMember {
		envelope.Member = &bundleMember{User: req.Attribution.Name}
	}
	serialized, err := signEnvelope(envelope, req.Chain.PrivateKey)
	if err != nil {
		return nil, err
	}
	return &domain.SignatureBundle{Serialized: serialized, Validity: req.Validity}, nil
}

func (s *Service) resolverURL() string {
	if s.ResolverURL != "" {
		return s.ResolverURL
	}
	return defaultResolverURL
}

func (s *Service) httpClient() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	return &http.Client{Timeout: defaultResolveTimeout}
}

func randomSerial() (*big.Int, error) {
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	return rand.Int(rand.Reader, limit)
}

func signWithKey(key crypto.Signer, payload []byte) ([]byte, error) {
	if _, ok := key.(ed25519.PrivateKey); !ok {
		return nil, errors.New("unsupported signing key type")
	}
	return key.Sign(rand.Reader, payload, crypto.Hash(0))
}
