package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"veraauth/internal/domain"
)

const defaultOrgCertTTL = 90 * 24 * time.Hour

// OrgChainBuilder assembles an org's identity proof: DNSSEC chain first,
// key material second. DNSSEC retrieval is a pure network call, so a chain
// that is going to fail does so before any KMS operation is attempted.
type OrgChainBuilder struct {
	Orgs    OrgRepository
	KMS     domain.KeyManagementService
	Crypto  domain.VeraCrypto
	CertTTL time.Duration

	Now func() time.Time
}

func (b *OrgChainBuilder) Build(ctx context.Context, orgName string) (*domain.OrgChain, error) {
	org, err := b.Orgs.GetByName(ctx, orgName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Printf("org chain: org %q not found", orgName)
			return nil, domain.ErrOrgNotFound
		}
		return nil, err
	}

	dnssecChain, err := b.Crypto.RetrieveDNSSECChain(ctx, org.Name)
	if err != nil {
		log.Printf("org chain: dnssec retrieval for %q failed: %v", org.Name, err)
		return nil, fmt.Errorf("%w: %v", domain.ErrDNSSECRetrieval, err)
	}

	if err := b.KMS.Init(ctx); err != nil {
		return nil, err
	}
	privateKey, err := b.KMS.RetrievePrivateKey(ctx, org.PrivateKeyRef)
	if err != nil {
		return nil, err
	}

	now := b.now()
	validity := domain.ValidityPeriod{NotBefore: now, NotAfter: now.Add(b.certTTL())}
	certificate, err := b.Crypto.SelfIssueOrgCertificate(org.Name, privateKey, validity)
	if err != nil {
		return nil, err
	}

	return &domain.OrgChain{
		OrgName:     org.Name,
		Certificate: certificate,
		PrivateKey:  privateKey,
		DNSSECChain: dnssecChain,
	}, nil
}

func (b *OrgChainBuilder) certTTL() time.Duration {
	if b.CertTTL > 0 {
		return b.CertTTL
	}
	return defaultOrgCertTTL
}

func (b *OrgChainBuilder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now().UTC()
}
