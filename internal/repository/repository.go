package repository

import (
	"context"
	"time"

	"referral-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetUsersByIDs retrieves users keyed by ID
func (r *Repository) GetUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}

type referrerCount struct {
	ReferrerID uuid.UUID
	Total      int64
}

// ReferralCountsByReferrer returns, for every user who has invited at
// least one other user, the number of users carrying their referrer_id.
// A single group-by replaces the per-candidate count queries of the old
// summary listing.
func (r *Repository) ReferralCountsByReferrer(ctx context.Context) (map[uuid.UUID]int64, error) {
	var rows []referrerCount
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Select("referrer_id, COUNT(*) AS total").
		Where("referrer_id IS NOT NULL").
		Group("referrer_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		counts[row.ReferrerID] = row.Total
	}
	return counts, nil
}

type userCount struct {
	UserID uuid.UUID
	Total  int64
}

// CodeCountsByUser returns the number of referral codes owned by each user
func (r *Repository) CodeCountsByUser(ctx context.Context) (map[uuid.UUID]int64, error) {
	var rows []userCount
	err := r.db.WithContext(ctx).Model(&models.ReferralCode{}).
		Select("user_id, COUNT(*) AS total").
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		counts[row.UserID] = row.Total
	}
	return counts, nil
}

type userSum struct {
	UserID uuid.UUID
	Total  decimal.Decimal
}

// RewardSumsByUser returns the summed reward over totals rows per user
func (r *Repository) RewardSumsByUser(ctx context.Context) (map[uuid.UUID]decimal.Decimal, error) {
	var rows []userSum
	err := r.db.WithContext(ctx).Model(&models.Total{}).
		Select("user_id, COALESCE(SUM(reward), 0) AS total").
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	sums := make(map[uuid.UUID]decimal.Decimal, len(rows))
	for _, row := range rows {
		sums[row.UserID] = row.Total
	}
	return sums, nil
}

// MaxReward returns the largest single reward value across all totals rows
func (r *Repository) MaxReward(ctx context.Context) (decimal.Decimal, error) {
	var max decimal.Decimal
	row := r.db.WithContext(ctx).Model(&models.Total{}).
		Select("COALESCE(MAX(reward), 0)").Row()
	if err := row.Scan(&max); err != nil {
		return decimal.Zero, err
	}
	return max, nil
}

// MaxRewardsByUser returns the largest single reward value per user
func (r *Repository) MaxRewardsByUser(ctx context.Context) (map[uuid.UUID]decimal.Decimal, error) {
	var rows []userSum
	err := r.db.WithContext(ctx).Model(&models.Total{}).
		Select("user_id, COALESCE(MAX(reward), 0) AS total").
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	maxes := make(map[uuid.UUID]decimal.Decimal, len(rows))
	for _, row := range rows {
		maxes[row.UserID] = row.Total
	}
	return maxes, nil
}

// SumRewards returns the summed reward over all totals rows, optionally
// scoped to a single user
func (r *Repository) SumRewards(ctx context.Context, userID *uuid.UUID) (decimal.Decimal, error) {
	q := r.db.WithContext(ctx).Model(&models.Total{}).
		Select("COALESCE(SUM(reward), 0)")
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}

	var sum decimal.Decimal
	if err := q.Row().Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

// SumTransactionsSince returns the summed transaction amount for a user
// from the given instant onward
func (r *Repository) SumTransactionsSince(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal
	row := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND created_at >= ?", userID, since).Row()
	if err := row.Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

// ListTransactionsSince returns a user's transactions from the given
// instant onward, oldest first
func (r *Repository) ListTransactionsSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Order("created_at ASC").
		Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}
