package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LeaderboardEntry is a derived row of the global ranking. It is computed
// fresh from users, referral codes and totals and is never persisted.
type LeaderboardEntry struct {
	UserID              uuid.UUID       `json:"user_id"`
	Name                string          `json:"name"`
	Country             string          `json:"country"`
	TotalReferrals      int64           `json:"total_referrals"`
	TotalCodesGenerated int64           `json:"total_codes_generated"`
	AmountEarned        decimal.Decimal `json:"amount_earned"`
	TopReferralBonus    decimal.Decimal `json:"top_referral_bonus"`
	Rank                int             `json:"rank"`
	IsCurrent           bool            `json:"is_current"`
}

// Informer is the compact per-user summary shown alongside the leaderboard.
type Informer struct {
	Rank            int             `json:"rank"`
	Reward          decimal.Decimal `json:"reward"`
	GrowthThisMonth decimal.Decimal `json:"growth_this_month"`
}

// GraphPoint is one bucket of the time-windowed transaction graph.
type GraphPoint struct {
	Date   time.Time       `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}
