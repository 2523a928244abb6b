package db

import (
	"context"
	"errors"
	"time"

	"veraauth/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JWKSStore persists cached JWKS documents. Reads filter on expiry so a
// stale row behaves exactly like a missing one; rows are only ever replaced
// by a newer fetch, never deleted explicitly.
type JWKSStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewJWKSStore(db *gorm.DB) *JWKSStore {
	return NewJWKSStoreWithClock(db, time.Now)
}

func NewJWKSStoreWithClock(db *gorm.DB, now func() time.Time) *JWKSStore {
	if now == nil {
		now = time.Now
	}
	return &JWKSStore{db: db, now: now}
}

func (s *JWKSStore) Find(ctx context.Context, issuerURL string) (*domain.CachedJWKS, error) {
	if s.db == nil {
		return nil, errDBUnavailable
	}
	var model CachedJWKSModel
	err := s.db.WithContext(ctx).
		Where("issuer_url = ? AND expiry > ?", issuerURL, s.now().UTC()).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &domain.CachedJWKS{
		IssuerURL: model.IssuerURL,
		Document:  copyBytes(model.Document),
		Expiry:    model.Expiry,
	}, nil
}

func (s *JWKSStore) Upsert(ctx context.Context, cached domain.CachedJWKS) error {
	if s.db == nil {
		return errDBUnavailable
	}
	model := CachedJWKSModel{
		IssuerURL: cached.IssuerURL,
		Document:  copyBytes(cached.Document),
		Expiry:    cached.Expiry,
		UpdatedAt: s.now().UTC(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "issuer_url"}},
			DoUpdates: clause.AssignmentColumns([]string{"document", "expiry", "updated_at"}),
		}).
		Create(&model).Error
}
