package db

import "time"

type OrgModel struct {
	ID            string    `gorm:"type:uuid;primaryKey"`
	Name          string    `gorm:"uniqueIndex;not null"`
	PrivateKeyRef string    `gorm:"not null"`
	PublicKey     []byte    `gorm:"type:bytea;not null"`
	CreatedAt     time.Time `gorm:"not null"`
}

func (OrgModel) TableName() string { return "orgs" }

type MemberModel struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	OrgName   string    `gorm:"index;not null"`
	Name      string    `gorm:""`
	Email     string    `gorm:""`
	Role      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (MemberModel) TableName() string { return "members" }

type SignatureSpecModel struct {
	ID           string    `gorm:"type:uuid;primaryKey"`
	OrgName      string    `gorm:"index;not null"`
	MemberID     string    `gorm:"index"`
	IssuerURL    string    `gorm:"not null"`
	SubjectClaim string    `gorm:"not null"`
	SubjectValue string    `gorm:"not null"`
	ServiceOID   string    `gorm:"not null"`
	TTLSeconds   int       `gorm:"not null"`
	Plaintext    []byte    `gorm:"type:bytea;not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (SignatureSpecModel) TableName() string { return "signature_specs" }

type CachedJWKSModel struct {
	IssuerURL string    `gorm:"primaryKey"`
	Document  []byte    `gorm:"type:jsonb;not null"`
	Expiry    time.Time `gorm:"index;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (CachedJWKSModel) TableName() string { return "cached_jwks" }
