package domain

import "time"

// Org is an organization whose control of a DNS name is proven via DNSSEC.
// PrivateKeyRef is an opaque token meaningful only to the key management
// service; this package never interprets its contents.
type Org struct {
	Name          string
	PrivateKeyRef string
	PublicKey     []byte
	CreatedAt     time.Time
}

type MemberRole string

const (
	MemberRoleOrgAdmin MemberRole = "org_admin"
	MemberRoleRegular  MemberRole = "regular"
)

// Member belongs to an org. A member without a name is attributed to the
// org's anonymous bot identity when credentials are issued for it.
type Member struct {
	ID        string
	OrgName   string
	Name      string
	Email     string
	Role      MemberRole
	CreatedAt time.Time
}
