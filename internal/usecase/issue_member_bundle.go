package usecase

import (
	"context"
	"errors"
	"time"

	"veraauth/internal/domain"
)

const defaultMemberBundleTTL = 90 * 24 * time.Hour

type IssueMemberBundleRequest struct {
	OrgName         string
	MemberID        string
	MemberPublicKey []byte
}

// MemberBundleIssuer issues member identity bundles. It shares the org chain
// and attribution branching with signature issuance but uses a fixed validity
// instead of the JWT/TTL intersection.
type MemberBundleIssuer struct {
	Members   MemberRepository
	Chain     ChainBuilder
	Crypto    domain.VeraCrypto
	BundleTTL time.Duration

	Now func() time.Time
}

func (i *MemberBundleIssuer) Execute(ctx context.Context, req IssueMemberBundleRequest) (*domain.MemberIDBundle, error) {
	member, err := i.Members.GetByID(ctx, req.OrgName, req.MemberID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}

	chain, err := i.Chain.Build(ctx, req.OrgName)
	if err != nil {
		return nil, err
	}

	now := i.now()
	validity := domain.ValidityPeriod{NotBefore: now, NotAfter: now.Add(i.bundleTTL())}
	attribution := domain.AttributionFor(*member)

	memberCert, err := i.Crypto.IssueMemberCertificate(attribution.CommonName(), req.MemberPublicKey, *chain, validity)
	if err != nil {
		return nil, err
	}

	return &domain.MemberIDBundle{
		MemberCertificate: memberCert,
		OrgCertificate:    chain.Certificate,
		DNSSECChain:       chain.DNSSECChain,
	}, nil
}

func (i *MemberBundleIssuer) bundleTTL() time.Duration {
	if i.BundleTTL > 0 {
		return i.BundleTTL
	}
	return defaultMemberBundleTTL
}

func (i *MemberBundleIssuer) now() time.Time {
	if i.Now != nil {
		return i.Now()
	}
	return time.Now().UTC()
}
