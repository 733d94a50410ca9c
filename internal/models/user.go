package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a participant in the referral program. Users are created
// by the external registration flow; this service only attaches referrers
// and reads the invitation tree.
type User struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string         `gorm:"size:100" json:"name"`
	Country       string         `gorm:"size:100" json:"country"`
	ApplicationID string         `gorm:"size:50;index" json:"application_id"`
	ReferrerID    *uuid.UUID     `gorm:"type:uuid;index" json:"referrer_id,omitempty"`
	Referrer      *User          `gorm:"foreignKey:ReferrerID" json:"referrer,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns a UUID when none was provided
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
