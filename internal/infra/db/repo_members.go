package db

import (
	"context"
	"errors"
	"time"

	"veraauth/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MemberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

func (r *MemberRepository) GetByID(ctx context.Context, orgName, memberID string) (*domain.Member, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model MemberModel
	err := r.db.WithContext(ctx).
		Where("org_name = ? AND id = ?", orgName, memberID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return memberFromModel(model), nil
}

func (r *MemberRepository) Create(ctx context.Context, member domain.Member) error {
	if r.db == nil {
		return errDBUnavailable
	}
	memberID := member.ID
	if memberID == "" {
		memberID = uuid.NewString()
	}
	role := member.Role
	if role == "" {
		role = domain.MemberRoleRegular
	}
	createdAt := member.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	model := MemberModel{
		ID:        memberID,
		OrgName:   member.OrgName,
		Name:      member.Name,
		Email:     member.Email,
		Role:      string(role),
		CreatedAt: createdAt,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *MemberRepository) Delete(ctx context.Context, orgName, memberID string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).
		Where("org_name = ? AND id = ?", orgName, memberID).
		Delete(&MemberModel{}).Error
}

func memberFromModel(model MemberModel) *domain.Member {
	return &domain.Member{
		ID:        model.ID,
		OrgName:   model.OrgName,
		Name:      model.Name,
		Email:     model.Email,
		Role:      domain.MemberRole(model.Role),
		CreatedAt: model.CreatedAt,
	}
}
