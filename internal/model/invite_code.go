package model

import (
	"time"

	"github.com/google/uuid"
)

type InviteCodeStatus string

const (
	InviteStatusActive  InviteCodeStatus = "active"
	InviteStatusUsed    InviteCodeStatus = "used"
	InviteStatusExpired InviteCodeStatus = "expired"
	InviteStatusRevoked InviteCodeStatus = "revoked"
)

// InviteCode binds a short opaque token to a property. Rows are never
// deleted; they stay behind as an audit trail once used or revoked.
type InviteCode struct {
	ID         uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Code       string           `gorm:"type:varchar(16);uniqueIndex;not null" json:"code"`
	PropertyID string           `gorm:"type:varchar(64);index;not null" json:"property_id"`
	LandlordID string           `gorm:"type:varchar(64);index;not null" json:"landlord_id"`
	UnitID     string           `gorm:"type:varchar(64)" json:"unit_id,omitempty"`
	Email      string           `gorm:"type:varchar(255)" json:"email,omitempty"`
	Status     InviteCodeStatus `gorm:"type:varchar(16);not null;default:'active'" json:"status"`
	// Used is the legacy boolean representation kept for rows written
	// before Status existed. Readers must go through EffectiveStatus.
	Used      bool       `gorm:"not null;default:false" json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `gorm:"index" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	UsedBy    string     `gorm:"type:varchar(64)" json:"used_by,omitempty"`
}

func (InviteCode) TableName() string { return "invite_codes" }

// EffectiveStatus collapses the legacy boolean and lazy expiry into the
// single status enum. Expiry is evaluated here rather than by a sweeper.
func (c *InviteCode) EffectiveStatus(now time.Time) InviteCodeStatus {
	if c.Status == InviteStatusUsed || c.Used {
		return InviteStatusUsed
	}
	if c.Status == InviteStatusRevoked {
		return InviteStatusRevoked
	}
	if c.Status == InviteStatusExpired || now.After(c.ExpiresAt) {
		return InviteStatusExpired
	}
	return InviteStatusActive
}

// PropertyAssociation links a tenant to a property after a successful
// redemption. The invite subsystem creates it exactly once and never
// mutates it afterwards; profile management owns the record from there.
type PropertyAssociation struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID   string    `gorm:"type:varchar(64);index;not null" json:"tenant_id"`
	PropertyID string    `gorm:"type:varchar(64);index;not null" json:"property_id"`
	UnitID     string    `gorm:"type:varchar(64)" json:"unit_id,omitempty"`
	InviteCode string    `gorm:"type:varchar(16);uniqueIndex;not null" json:"invite_code"`
	Status     string    `gorm:"type:varchar(16);not null;default:'active'" json:"status"`
	StartDate  time.Time `json:"start_date"`
	CreatedAt  time.Time `json:"created_at"`
}

func (PropertyAssociation) TableName() string { return "property_associations" }
