package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UTM values attached to every generated referral link
const (
	Campaign = "Referral Program"
	Medium   = "Invite Friends"
)

// ReferralCode represents a unique 8-character code a user shares to
// invite others. The code value is immutable once generated; note and
// default flag may change afterwards.
type ReferralCode struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Code          string         `gorm:"uniqueIndex;size:8;not null" json:"code"`
	ApplicationID string         `gorm:"size:50;index" json:"application_id"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User          *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ReferralLink  string         `gorm:"uniqueIndex;size:255" json:"referral_link"`
	IsDefault     bool           `gorm:"default:false" json:"is_default"`
	Note          *string        `gorm:"size:255" json:"note,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (ReferralCode) TableName() string {
	return "referral_codes"
}

func (rc *ReferralCode) BeforeCreate(tx *gorm.DB) error {
	if rc.ID == uuid.Nil {
		rc.ID = uuid.New()
	}
	return nil
}
