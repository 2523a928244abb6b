package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"veraauth/internal/domain"
)

type IssueSignatureRequest struct {
	JWT      string
	Audience string
	SpecID   string
}

// SignatureIssuer runs the issuance pipeline: load spec, verify the bearer
// token, build the org chain, compute the validity window, sign. Every
// failure is terminal for the call; callers decide retry semantics from the
// sentinel they get back.
type SignatureIssuer struct {
	Specs    SpecRepository
	Members  MemberRepository
	Verifier TokenVerifier
	Chain    ChainBuilder
	Crypto   domain.VeraCrypto
	Policy   IssuancePolicy

	Now func() time.Time
}

func (i *SignatureIssuer) Execute(ctx context.Context, req IssueSignatureRequest) (*domain.SignatureBundle, error) {
	spec, err := i.Specs.GetByID(ctx, req.SpecID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrSpecNotFound
		}
		return nil, err
	}

	claims, err := i.Verifier.VerifyToken(ctx, req.JWT, spec.Auth.IssuerURL, req.Audience)
	if err != nil {
		return nil, err
	}
	if claims.String(spec.Auth.SubjectClaim) != spec.Auth.SubjectValue {
		return nil, fmt.Errorf("%w: subject claim mismatch", domain.ErrInvalidJWT)
	}

	if i.Policy != nil {
		input := domain.IssuanceInput{
			OrgName:    spec.OrgName,
			IssuerURL:  spec.Auth.IssuerURL,
			Audience:   req.Audience,
			ServiceOID: spec.ServiceOID,
			Subject:    spec.Auth.SubjectValue,
		}
		if err := i.Policy.Authorize(ctx, input); err != nil {
			return nil, err
		}
	}

	chain, err := i.Chain.Build(ctx, spec.OrgName)
	if err != nil {
		if errors.Is(err, domain.ErrOrgNotFound) {
			// An orphaned spec is indistinguishable from a missing one
			// as far as the caller is concerned.
			return nil, domain.ErrSpecNotFound
		}
		return nil, err
	}

	now := i.now()
	validity := domain.ValidityPeriod{NotBefore: now, NotAfter: now.Add(spec.TTL())}
	if jwtExpiry, ok := claims.Expiry(); ok && jwtExpiry.Before(validity.NotAfter) {
		validity.NotAfter = jwtExpiry
	}
	if validity.IsEmpty() {
		return nil, domain.ErrExpiredJWT
	}

	attribution, err := i.attributionFor(ctx, spec)
	if err != nil {
		return nil, err
	}

	return i.Crypto.SignBundle(domain.BundleSignRequest{
		Plaintext:   spec.Plaintext,
		ServiceOID:  spec.ServiceOID,
		Chain:       *chain,
		Attribution: attribution,
		Validity:    validity,
	})
}

func (i *SignatureIssuer) attributionFor(ctx context.Context, spec *domain.SignatureSpec) (domain.Attribution, error) {
	if spec.MemberID == "" {
		return domain.AnonymousBot(), nil
	}
	member, err := i.Members.GetByID(ctx, spec.OrgName, spec.MemberID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Attribution{}, domain.ErrMemberNotFound
		}
		return domain.Attribution{}, err
	}
	return domain.AttributionFor(*member), nil
}

func (i *SignatureIssuer) now() time.Time {
	if i.Now != nil {
		return i.Now()
	}
	return time.Now().UTC()
}
