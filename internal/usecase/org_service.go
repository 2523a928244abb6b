package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"veraauth/internal/domain"
)

// OrgService owns the org lifecycle. Creation generates the org key pair in
// the KMS under a cross-replica lock keyed on the org name, so two replicas
// racing on the same name cannot leave an orphaned key behind.
type OrgService struct {
	Orgs OrgRepository
	KMS  domain.KeyManagementService
	Lock Locker

	Now func() time.Time
}

func (s *OrgService) Create(ctx context.Context, name string) (*domain.Org, error) {
	if name == "" {
		return nil, errors.New("org name is required")
	}
	var org *domain.Org
	err := s.withLock(ctx, "org:"+name, func(ctx context.Context) error {
		existing, err := s.Orgs.GetByName(ctx, name)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if existing != nil {
			return domain.ErrOrgAlreadyExists
		}

		if err := s.KMS.Init(ctx); err != nil {
			return err
		}
		ref, publicKey, err := s.KMS.GenerateKeyPair(ctx)
		if err != nil {
			return fmt.Errorf("generate org key pair: %w", err)
		}

		created := domain.Org{
			Name:          name,
			PrivateKeyRef: ref,
			PublicKey:     publicKey,
			CreatedAt:     s.now(),
		}
		if err := s.Orgs.Create(ctx, created); err != nil {
			// The key is unreachable without the row; clean it up.
			if destroyErr := s.KMS.DestroyKey(ctx, ref); destroyErr != nil {
				log.Printf("org create: destroy orphaned key %q: %v", ref, destroyErr)
			}
			return err
		}
		org = &created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return org, nil
}

func (s *OrgService) Delete(ctx context.Context, name string) error {
	org, err := s.Orgs.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrOrgNotFound
		}
		return err
	}
	if err := s.Orgs.Delete(ctx, name); err != nil {
		return err
	}
	if err := s.KMS.Init(ctx); err != nil {
		return err
	}
	if err := s.KMS.DestroyKey(ctx, org.PrivateKeyRef); err != nil {
		log.Printf("org delete: destroy key %q: %v", org.PrivateKeyRef, err)
	}
	return nil
}

func (s *OrgService) withLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if s.Lock == nil {
		return fn(ctx)
	}
	return s.Lock.WithLock(ctx, key, fn)
}

func (s *OrgService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
