package usecase

import (
	"context"
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"veraauth/internal/domain"
)

type fakeOrgRepo struct {
	orgs      map[string]domain.Org
	getErr    error
	createErr error
	created   []domain.Org
	deleted   []string
}

func newFakeOrgRepo(orgs ...domain.Org) *fakeOrgRepo {
	repo := &fakeOrgRepo{orgs: map[string]domain.Org{}}
	for _, org := range orgs {
		repo.orgs[org.Name] = org
	}
	return repo
}

func (r *fakeOrgRepo) GetByName(ctx context.Context, name string) (*domain.Org, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	org, ok := r.orgs[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &org, nil
}

func (r *fakeOrgRepo) Create(ctx context.Context, org domain.Org) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.created = append(r.created, org)
	r.orgs[org.Name] = org
	return nil
}

func (r *fakeOrgRepo) Delete(ctx context.Context, name string) error {
	r.deleted = append(r.deleted, name)
	delete(r.orgs, name)
	return nil
}

type fakeMemberRepo struct {
	members map[string]domain.Member
	err     error
}

func newFakeMemberRepo(members ...domain.Member) *fakeMemberRepo {
	repo := &fakeMemberRepo{members: map[string]domain.Member{}}
	for _, member := range members {
		repo.members[member.OrgName+"/"+member.ID] = member
	}
	return repo
}

func (r *fakeMemberRepo) GetByID(ctx context.Context, orgName, memberID string) (*domain.Member, error) {
	if r.err != nil {
		return nil, r.err
	}
	member, ok := r.members[orgName+"/"+memberID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &member, nil
}

func (r *fakeMemberRepo) Create(ctx context.Context, member domain.Member) error {
	r.members[member.OrgName+"/"+member.ID] = member
	return nil
}

func (r *fakeMemberRepo) Delete(ctx context.Context, orgName, memberID string) error {
	delete(r.members, orgName+"/"+memberID)
	return nil
}

type fakeSpecRepo struct {
	specs map[string]domain.SignatureSpec
	err   error
}

func newFakeSpecRepo(specs ...domain.SignatureSpec) *fakeSpecRepo {
	repo := &fakeSpecRepo{specs: map[string]domain.SignatureSpec{}}
	for _, spec := range specs {
		repo.specs[spec.ID] = spec
	}
	return repo
}

func (r *fakeSpecRepo) GetByID(ctx context.Context, specID string) (*domain.SignatureSpec, error) {
	if r.err != nil {
		return nil, r.err
	}
	spec, ok := r.specs[specID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &spec, nil
}

func (r *fakeSpecRepo) Create(ctx context.Context, spec domain.SignatureSpec) error {
	r.specs[spec.ID] = spec
	return nil
}

func (r *fakeSpecRepo) Delete(ctx context.Context, specID string) error {
	delete(r.specs, specID)
	return nil
}

type fakeVerifier struct {
	claims domain.TokenClaims
	err    error

	calls       int
	gotToken    string
	gotIssuer   string
	gotAudience string
}

func (v *fakeVerifier) VerifyToken(ctx context.Context, token, issuerURL, audience string) (domain.TokenClaims, error) {
	v.calls++
	v.gotToken = token
	v.gotIssuer = issuerURL
	v.gotAudience = audience
	if v.err != nil {
		return nil, v.err
	}
	return v.claims, nil
}

type fakeChainBuilder struct {
	chain *domain.OrgChain
	err   error
	calls int
}

func (b *fakeChainBuilder) Build(ctx context.Context, orgName string) (*domain.OrgChain, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	return b.chain, nil
}

// spyCrypto records every collaborator call so tests can assert on ordering
// and arguments without real cryptography.
type spyCrypto struct {
	dnssecChain []byte
	dnssecErr   error
	dnssecCalls int

	orgCert []byte

	memberCert      []byte
	memberCertErr   error
	gotCommonName   string
	gotMemberPubKey []byte
	gotCertValidity domain.ValidityPeriod
	memberCertCalls int

	bundle  *domain.SignatureBundle
	signErr error
	gotSign *domain.BundleSignRequest
}

func (c *spyCrypto) RetrieveDNSSECChain(ctx context.Context, orgName string) ([]byte, error) {
	c.dnssecCalls++
	if c.dnssecErr != nil {
		return nil, c.dnssecErr
	}
	return c.dnssecChain, nil
}

func (c *spyCrypto) SelfIssueOrgCertificate(orgName string, key crypto.Signer, validity domain.ValidityPeriod) ([]byte, error) {
	return c.orgCert, nil
}

func (c *spyCrypto) IssueMemberCertificate(commonName string, memberPublicKey []byte, chain domain.OrgChain, validity domain.ValidityPeriod) ([]byte, error) {
	c.memberCertCalls++
	c.gotCommonName = commonName
	c.gotMemberPubKey = memberPublicKey
	c.gotCertValidity = validity
	if c.memberCertErr != nil {
		return nil, c.memberCertErr
	}
	return c.memberCert, nil
}

func (c *spyCrypto) SignBundle(req domain.BundleSignRequest) (*domain.SignatureBundle, error) {
	c.gotSign = &req
	if c.signErr != nil {
		return nil, c.signErr
	}
	if c.bundle != nil {
		return c.bundle, nil
	}
	return &domain.SignatureBundle{Serialized: []byte(`{"signed":true}`), Validity: req.Validity}, nil
}

type spyKMS struct {
	initCalls     int
	initErr       error
	generateCalls int
	generateErr   error
	ref           string
	publicKey     []byte
	key           crypto.Signer
	retrieveErr   error
	destroyed     []string
	destroyErr    error
}

func (m *spyKMS) Init(ctx context.Context) error {
	m.initCalls++
	return m.initErr
}

func (m *spyKMS) GenerateKeyPair(ctx context.Context) (string, []byte, error) {
	m.generateCalls++
	if m.generateErr != nil {
		return "", nil, m.generateErr
	}
	return m.ref, m.publicKey, nil
}

func (m *spyKMS) RetrievePrivateKey(ctx context.Context, ref string) (crypto.Signer, error) {
	if m.retrieveErr != nil {
		return nil, m.retrieveErr
	}
	return m.key, nil
}

func (m *spyKMS) DestroyKey(ctx context.Context, ref string) error {
	m.destroyed = append(m.destroyed, ref)
	return m.destroyErr
}

type fakePolicy struct {
	err   error
	calls int
	got   domain.IssuanceInput
}

func (p *fakePolicy) Authorize(ctx context.Context, input domain.IssuanceInput) error {
	p.calls++
	p.got = input
	return p.err
}

type spyLocker struct {
	keys []string
}

func (l *spyLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.keys = append(l.keys, key)
	return fn(ctx)
}

func testSigner(t *testing.T) ed25519.PrivateKey {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return priv
}
