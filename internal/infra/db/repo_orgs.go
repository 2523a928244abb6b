package db

import (
	"context"
	"errors"
	"time"

	"veraauth/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrgRepository struct {
	db *gorm.DB
}

func NewOrgRepository(db *gorm.DB) *OrgRepository {
	return &OrgRepository{db: db}
}

func (r *OrgRepository) GetByName(ctx context.Context, name string) (*domain.Org, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model OrgModel
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return orgFromModel(model), nil
}

func (r *OrgRepository) Create(ctx context.Context, org domain.Org) error {
	if r.db == nil {
		return errDBUnavailable
	}
	createdAt := org.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	model := OrgModel{
		ID:            uuid.NewString(),
		Name:          org.Name,
		PrivateKeyRef: org.PrivateKeyRef,
		PublicKey:     copyBytes(org.PublicKey),
		CreatedAt:     createdAt,
	}
	err := r.db.WithContext(ctx).Create(&model).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrOrgAlreadyExists
	}
	return err
}

func (r *OrgRepository) Delete(ctx context.Context, name string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Where("name = ?", name).Delete(&OrgModel{}).Error
}

func orgFromModel(model OrgModel) *domain.Org {
	return &domain.Org{
		Name:          model.Name,
		PrivateKeyRef: model.PrivateKeyRef,
		PublicKey:     copyBytes(model.PublicKey),
		CreatedAt:     model.CreatedAt,
	}
}
