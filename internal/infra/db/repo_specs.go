package db

import (
	"context"
	"errors"
	"time"

	"veraauth/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SpecRepository struct {
	db *gorm.DB
}

func NewSpecRepository(db *gorm.DB) *SpecRepository {
	return &SpecRepository{db: db}
}

func (r *SpecRepository) GetByID(ctx context.Context, specID string) (*domain.SignatureSpec, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model SignatureSpecModel
	err := r.db.WithContext(ctx).Where("id = ?", specID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return specFromModel(model), nil
}

func (r *SpecRepository) Create(ctx context.Context, spec domain.SignatureSpec) error {
	if r.db == nil {
		return errDBUnavailable
	}
	specID := spec.ID
	if specID == "" {
		specID = uuid.NewString()
	}
	ttl := spec.TTLSeconds
	if ttl <= 0 {
		ttl = domain.DefaultSpecTTLSeconds
	}
	createdAt := spec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	model := SignatureSpecModel{
		ID:           specID,
		OrgName:      spec.OrgName,
		MemberID:     spec.MemberID,
		IssuerURL:    spec.Auth.IssuerURL,
		SubjectClaim: spec.Auth.SubjectClaim,
		SubjectValue: spec.Auth.SubjectValue,
		ServiceOID:   spec.ServiceOID,
		TTLSeconds:   ttl,
		Plaintext:    copyBytes(spec.Plaintext),
		CreatedAt:    createdAt,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *SpecRepository) Delete(ctx context.Context, specID string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Where("id = ?", specID).Delete(&SignatureSpecModel{}).Error
}

func specFromModel(model SignatureSpecModel) *domain.SignatureSpec {
	return &domain.SignatureSpec{
		ID:       model.ID,
		OrgName:  model.OrgName,
		MemberID: model.MemberID,
		Auth: domain.OIDCAuth{
			IssuerURL:    model.IssuerURL,
			SubjectClaim: model.SubjectClaim,
			SubjectValue: model.SubjectValue,
		},
		ServiceOID: model.ServiceOID,
		TTLSeconds: model.TTLSeconds,
		Plaintext:  copyBytes(model.Plaintext),
		CreatedAt:  model.CreatedAt,
	}
}
