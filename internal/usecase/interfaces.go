package usecase

import (
	"context"

	"veraauth/internal/domain"
)

type OrgRepository interface {
	GetByName(ctx context.Context, name string) (*domain.Org, error)
	Create(ctx context.Context, org domain.Org) error
	Delete(ctx context.Context, name string) error
}

type MemberRepository interface {
	GetByID(ctx context.Context, orgName, memberID string) (*domain.Member, error)
	Create(ctx context.Context, member domain.Member) error
	Delete(ctx context.Context, orgName, memberID string) error
}

type SpecRepository interface {
	GetByID(ctx context.Context, specID string) (*domain.SignatureSpec, error)
	Create(ctx context.Context, spec domain.SignatureSpec) error
	Delete(ctx context.Context, specID string) error
}

// JWKSStore caches JWKS documents by issuer URL. Find returns
// domain.ErrNotFound for both a missing and an expired entry.
type JWKSStore interface {
	Find(ctx context.Context, issuerURL string) (*domain.CachedJWKS, error)
	Upsert(ctx context.Context, cached domain.CachedJWKS) error
}

// TokenVerifier verifies a bearer token against the issuer's published keys.
// Failures are domain.ErrJWKSRetrieval (dependency) or domain.ErrInvalidJWT
// (any signature or claim problem, undifferentiated).
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token, issuerURL, audience string) (domain.TokenClaims, error)
}

type ChainBuilder interface {
	Build(ctx context.Context, orgName string) (*domain.OrgChain, error)
}

// IssuancePolicy gates issuance requests. A nil gate means allow.
type IssuancePolicy interface {
	Authorize(ctx context.Context, input domain.IssuanceInput) error
}

// Locker serializes a critical section across replicas by key.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}
