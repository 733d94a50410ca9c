package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction records a single reward movement for a user. The leaderboard
// informer derives its monthly growth figure from time-windowed sums over
// these rows.
type Transaction struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,8);not null" json:"amount"`
	CreatedAt time.Time       `gorm:"index" json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}
