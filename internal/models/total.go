package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Total holds a per-user reward accrual row written by the external
// remuneration service. A user may own several rows; the leaderboard
// sums them.
type Total struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Amount    int64           `gorm:"default:0" json:"amount"` // number of invited users
	Reward    decimal.Decimal `gorm:"type:decimal(18,8);default:0" json:"reward"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (Total) TableName() string {
	return "totals"
}
