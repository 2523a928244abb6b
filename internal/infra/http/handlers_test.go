package http

import (
	"bytes"
	"context"
	"crypto"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"veraauth/internal/config"
	"veraauth/internal/domain"
	"veraauth/internal/usecase"

	"github.com/gin-gonic/gin"
)

const testAdminKey = "test-admin-key"

func init() {
	gin.SetMode(gin.TestMode)
}

func testServer(t *testing.T, specErr error) *Server {
	t.Helper()
	spec := domain.SignatureSpec{
		ID:      "spec-1",
		OrgName: "acme.example",
		Auth: domain.OIDCAuth{
			IssuerURL:    "https://issuer.test",
			SubjectClaim: "sub",
			SubjectValue: "ci@corp.example",
		},
		ServiceOID: "1.2.3",
		TTLSeconds: 300,
		Plaintext:  []byte("payload"),
	}
	specs := &stubSpecRepo{spec: spec, err: specErr}
	members := &stubMemberRepo{member: domain.Member{ID: "member-1", OrgName: "acme.example", Name: "alice"}}
	orgs := &stubOrgRepo{}
	now := func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	verifier := &stubVerifier{claims: domain.TokenClaims{
		"sub": "ci@corp.example",
		"exp": float64(time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC).Unix()),
	}}
	chain := &stubChain{chain: &domain.OrgChain{
		OrgName:     "acme.example",
		Certificate: []byte("org-cert"),
		DNSSECChain: []byte("dnssec"),
	}}
	cryptoSvc := &stubCrypto{}
	kms := &stubKMS{ref: "key-ref", publicKey: []byte("pub-der")}

	deps := ServerDeps{
		Issuer: &usecase.SignatureIssuer{
			Specs:    specs,
			Members:  members,
			Verifier: verifier,
			Chain:    chain,
			Crypto:   cryptoSvc,
			Now:      now,
		},
		MemberIssuer: &usecase.MemberBundleIssuer{
			Members: members,
			Chain:   chain,
			Crypto:  cryptoSvc,
			Now:     now,
		},
		OrgService:  &usecase.OrgService{Orgs: orgs, KMS: kms, Now: now},
		Orgs:        orgs,
		Members:     members,
		Specs:       specs,
		AdminAPIKey: testAdminKey,
		Audience:    "veraauth",
	}
	return NewServerWithDeps(config.Config{}, deps)
}

func doRequest(s *Server, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return resp.Code
}

func TestHealthz(t *testing.T) {
	rec := doRequest(testServer(t, nil), http.MethodGet, "/healthz", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestIssueSignatureBundle(t *testing.T) {
	rec := doRequest(testServer(t, nil), http.MethodPost, "/v1/signature-specs/spec-1/bundle", nil,
		map[string]string{"Authorization": "Bearer some-token"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec.Body.Len() == 0 {
		t.Fatal("expected the serialized bundle in the body")
	}
}

func TestIssueSignatureBundle_MissingBearer(t *testing.T) {
	rec := doRequest(testServer(t, nil), http.MethodPost, "/v1/signature-specs/spec-1/bundle", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "UNAUTHORIZED" {
		t.Fatalf("code = %q", code)
	}
}

func TestIssueSignatureBundle_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		specErr    error
		wantStatus int
		wantCode   string
	}{
		{"spec missing", domain.ErrNotFound, http.StatusNotFound, "SIGNATURE_SPEC_NOT_FOUND"},
		{"invalid jwt", domain.ErrInvalidJWT, http.StatusUnauthorized, "INVALID_JWT"},
		{"expired jwt", domain.ErrExpiredJWT, http.StatusUnauthorized, "EXPIRED_JWT"},
		{"jwks outage", domain.ErrJWKSRetrieval, http.StatusServiceUnavailable, "JWKS_RETRIEVAL_ERROR"},
		{"dnssec outage", domain.ErrDNSSECRetrieval, http.StatusServiceUnavailable, "DNSSEC_CHAIN_RETRIEVAL_FAILED"},
		{"policy denial", domain.ErrPolicyDenied, http.StatusForbidden, "POLICY_DENIED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(testServer(t, tc.specErr), http.MethodPost, "/v1/signature-specs/spec-1/bundle", nil,
				map[string]string{"Authorization": "Bearer some-token"})
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if code := decodeErrorCode(t, rec); code != tc.wantCode {
				t.Fatalf("code = %q, want %q", code, tc.wantCode)
			}
		})
	}
}

func TestAdminEndpointsRequireKey(t *testing.T) {
	server := testServer(t, nil)
	body := []byte(`{"name":"acme.example"}`)

	rec := doRequest(server, http.MethodPost, "/v1/orgs", body, map[string]string{"Content-Type": "application/json"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing key: status = %d", rec.Code)
	}

	rec = doRequest(server, http.MethodPost, "/v1/orgs", body, map[string]string{
		"Content-Type":    "application/json",
		"X-Admin-Api-Key": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key: status = %d", rec.Code)
	}
}

func TestCreateOrg(t *testing.T) {
	server := testServer(t, nil)
	rec := doRequest(server, http.MethodPost, "/v1/orgs", []byte(`{"name":"acme.example"}`), map[string]string{
		"Content-Type":    "application/json",
		"X-Admin-Api-Key": testAdminKey,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Name      string `json:"name"`
		PublicKey string `json:"publicKey"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Name != "acme.example" || resp.PublicKey == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	// A second create of the same org conflicts.
	rec = doRequest(server, http.MethodPost, "/v1/orgs", []byte(`{"name":"acme.example"}`), map[string]string{
		"Content-Type":    "application/json",
		"X-Admin-Api-Key": testAdminKey,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "ORG_ALREADY_EXISTS" {
		t.Fatalf("duplicate code = %q", code)
	}
}

func TestCreateSpec_Validation(t *testing.T) {
	server := testServer(t, nil)
	headers := map[string]string{
		"Content-Type":    "application/json",
		"X-Admin-Api-Key": testAdminKey,
	}

	cases := []struct {
		name string
		body string
	}{
		{"missing fields", `{"orgName":"acme.example"}`},
		{"plaintext not base64", `{"orgName":"a","issuerUrl":"https://i","subjectClaim":"sub","subjectValue":"v","serviceOid":"1.2.3","plaintext":"*not base64*"}`},
		{"ttl too large", `{"orgName":"a","issuerUrl":"https://i","subjectClaim":"sub","subjectValue":"v","serviceOid":"1.2.3","ttlSeconds":7200,"plaintext":"aGk="}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(server, http.MethodPost, "/v1/signature-specs", []byte(tc.body), headers)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestIssueMemberBundle_BadPublicKey(t *testing.T) {
	server := testServer(t, nil)
	rec := doRequest(server, http.MethodPost, "/v1/orgs/acme.example/members/member-1/bundle",
		[]byte(`{"publicKey":"*not base64*"}`), map[string]string{
			"Content-Type":    "application/json",
			"X-Admin-Api-Key": testAdminKey,
		})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	rec := doRequest(testServer(t, nil), http.MethodGet, "/nope", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "NOT_FOUND" {
		t.Fatalf("code = %q", code)
	}
}

// Stubs. Non-NotFound errors returned by the spec repo flow through the
// issuance pipeline untouched, which is what the mapping table relies on.

type stubSpecRepo struct {
	spec domain.SignatureSpec
	err  error
}

func (r *stubSpecRepo) GetByID(ctx context.Context, specID string) (*domain.SignatureSpec, error) {
	if r.err != nil {
		return nil, r.err
	}
	if specID != r.spec.ID {
		return nil, domain.ErrNotFound
	}
	spec := r.spec
	return &spec, nil
}

func (r *stubSpecRepo) Create(ctx context.Context, spec domain.SignatureSpec) error { return nil }
func (r *stubSpecRepo) Delete(ctx context.Context, specID string) error             { return nil }

type stubMemberRepo struct {
	member domain.Member
}

func (r *stubMemberRepo) GetByID(ctx context.Context, orgName, memberID string) (*domain.Member, error) {
	if orgName != r.member.OrgName || memberID != r.member.ID {
		return nil, domain.ErrNotFound
	}
	member := r.member
	return &member, nil
}

func (r *stubMemberRepo) Create(ctx context.Context, member domain.Member) error { return nil }
func (r *stubMemberRepo) Delete(ctx context.Context, orgName, memberID string) error {
	return nil
}

type stubOrgRepo struct {
	orgs []domain.Org
}

func (r *stubOrgRepo) GetByName(ctx context.Context, name string) (*domain.Org, error) {
	for _, org := range r.orgs {
		if org.Name == name {
			found := org
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *stubOrgRepo) Create(ctx context.Context, org domain.Org) error {
	r.orgs = append(r.orgs, org)
	return nil
}

func (r *stubOrgRepo) Delete(ctx context.Context, name string) error { return nil }

type stubVerifier struct {
	claims domain.TokenClaims
	err    error
}

func (v *stubVerifier) VerifyToken(ctx context.Context, token, issuerURL, audience string) (domain.TokenClaims, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.claims, nil
}

type stubChain struct {
	chain *domain.OrgChain
	err   error
}

func (c *stubChain) Build(ctx context.Context, orgName string) (*domain.OrgChain, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.chain, nil
}

type stubCrypto struct{}

func (c *stubCrypto) RetrieveDNSSECChain(ctx context.Context, orgName string) ([]byte, error) {
	return []byte("dnssec"), nil
}

func (c *stubCrypto) SelfIssueOrgCertificate(orgName string, key crypto.Signer, validity domain.ValidityPeriod) ([]byte, error) {
	return []byte("org-cert"), nil
}

func (c *stubCrypto) IssueMemberCertificate(commonName string, memberPublicKey []byte, chain domain.OrgChain, validity domain.ValidityPeriod) ([]byte, error) {
	return []byte("member-cert"), nil
}

func (c *stubCrypto) SignBundle(req domain.BundleSignRequest) (*domain.SignatureBundle, error) {
	return &domain.SignatureBundle{Serialized: []byte(`{"envelope":{},"signature":"sig"}`), Validity: req.Validity}, nil
}

type stubKMS struct {
	ref       string
	publicKey []byte
}

func (m *stubKMS) Init(ctx context.Context) error { return nil }

func (m *stubKMS) GenerateKeyPair(ctx context.Context) (string, []byte, error) {
	return m.ref, m.publicKey, nil
}

func (m *stubKMS) RetrievePrivateKey(ctx context.Context, ref string) (crypto.Signer, error) {
	return nil, nil
}

func (m *stubKMS) DestroyKey(ctx context.Context, ref string) error { return nil }
