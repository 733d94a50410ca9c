package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"referral-service/internal/models"
	"referral-service/internal/repository"
)

// Graph window filters accepted by GraphData
const (
	GraphFilterWeek  = "week"
	GraphFilterMonth = "month"
	GraphFilterYear  = "year"
)

// LeaderboardService ranks inviters by total reward earned.
type LeaderboardService struct {
	repo            *repository.Repository
	defaultPageSize int

	// ownTopBonus switches topReferralBonus from the historical global
	// max(reward) to the candidate's own largest single reward
	ownTopBonus bool
}

func NewLeaderboardService(repo *repository.Repository, defaultPageSize int, ownTopBonus bool) *LeaderboardService {
	if defaultPageSize <= 0 {
		defaultPageSize = 20
	}
	return &LeaderboardService{
		repo:            repo,
		defaultPageSize: defaultPageSize,
		ownTopBonus:     ownTopBonus,
	}
}

// ComputeGlobalRanking returns one page of the global ranking. Page
// numbers are 1-based; an out-of-range page yields an empty page.
func (s *LeaderboardService) ComputeGlobalRanking(ctx context.Context, page, pageSize int) ([]models.LeaderboardEntry, error) {
	entries, err := s.rankAll(ctx)
	if err != nil {
		return nil, err
	}
	return paginate(entries, page, s.normalizePageSize(pageSize)), nil
}

// rankAll builds the full ranked sequence in a single aggregation pass:
// one group-by per source table plus one sort, instead of a query per
// candidate.
func (s *LeaderboardService) rankAll(ctx context.Context) ([]models.LeaderboardEntry, error) {
	referralCounts, err := s.repo.ReferralCountsByReferrer(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate referrals: %w", err)
	}
	if len(referralCounts) == 0 {
		return []models.LeaderboardEntry{}, nil
	}

	codeCounts, err := s.repo.CodeCountsByUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate codes: %w", err)
	}

	rewardSums, err := s.repo.RewardSumsByUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate rewards: %w", err)
	}

	var globalTop decimal.Decimal
	var ownTops map[uuid.UUID]decimal.Decimal
	if s.ownTopBonus {
		ownTops, err = s.repo.MaxRewardsByUser(ctx)
	} else {
		globalTop, err = s.repo.MaxReward(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to compute top bonus: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(referralCounts))
	for id := range referralCounts {
		ids = append(ids, id)
	}
	users, err := s.repo.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load referrers: %w", err)
	}

	entries := make([]models.LeaderboardEntry, 0, len(referralCounts))
	for id, referrals := range referralCounts {
		user := users[id]
		topBonus := globalTop
		if s.ownTopBonus {
			topBonus = ownTops[id]
		}
		entries = append(entries, models.LeaderboardEntry{
			UserID:              id,
			Name:                user.Name,
			Country:             user.Country,
			TotalReferrals:      referrals,
			TotalCodesGenerated: codeCounts[id],
			AmountEarned:        rewardSums[id],
			TopReferralBonus:    topBonus,
		})
	}

	// descending by amount earned; ties broken by user ID so the order
	// is deterministic across runs
	sort.Slice(entries, func(i, j int) bool {
		cmp := entries[i].AmountEarned.Cmp(entries[j].AmountEarned)
		if cmp != 0 {
			return cmp > 0
		}
		return strings.Compare(entries[i].UserID.String(), entries[j].UserID.String()) < 0
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}

	return entries, nil
}

// InformerFor returns the compact summary block for a user: their rank,
// earned reward and growth this month. Users without a ranked entry get
// a zero-valued informer.
func (s *LeaderboardService) InformerFor(ctx context.Context, userID uuid.UUID) (*models.Informer, error) {
	entry, err := s.PersonalSummary(ctx, userID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return &models.Informer{
			Reward:          decimal.Zero,
			GrowthThisMonth: decimal.Zero,
		}, nil
	}

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	growth, err := s.repo.SumTransactionsSince(ctx, userID, monthStart)
	if err != nil {
		return nil, fmt.Errorf("failed to compute monthly growth: %w", err)
	}

	return &models.Informer{
		Rank:            entry.Rank,
		Reward:          entry.AmountEarned,
		GrowthThisMonth: growth,
	}, nil
}

// PersonalSummary returns the single ranking entry owned by the user,
// or nil when the user never appears as a referrer.
func (s *LeaderboardService) PersonalSummary(ctx context.Context, userID uuid.UUID) (*models.LeaderboardEntry, error) {
	entries, err := s.rankAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].UserID == userID {
			return &entries[i], nil
		}
	}
	return nil, nil
}

// GraphData buckets a user's transactions over the requested window:
// daily buckets for week and month, monthly buckets for year.
func (s *LeaderboardService) GraphData(ctx context.Context, userID uuid.UUID, filter string) ([]models.GraphPoint, error) {
	now := time.Now()
	var since time.Time
	monthly := false

	switch filter {
	case GraphFilterWeek:
		since = now.AddDate(0, 0, -7)
	case GraphFilterMonth:
		since = now.AddDate(0, -1, 0)
	case GraphFilterYear:
		since = now.AddDate(-1, 0, 0)
		monthly = true
	default:
		since = now.AddDate(0, 0, -7)
	}

	txs, err := s.repo.ListTransactionsSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	buckets := map[time.Time]decimal.Decimal{}
	for _, tx := range txs {
		key := truncateToDay(tx.CreatedAt)
		if monthly {
			key = time.Date(tx.CreatedAt.Year(), tx.CreatedAt.Month(), 1, 0, 0, 0, 0, tx.CreatedAt.Location())
		}
		buckets[key] = buckets[key].Add(tx.Amount)
	}

	points := make([]models.GraphPoint, 0, len(buckets))
	for date, amount := range buckets {
		points = append(points, models.GraphPoint{Date: date, Amount: amount})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})

	return points, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func (s *LeaderboardService) normalizePageSize(pageSize int) int {
	if pageSize <= 0 {
		return s.defaultPageSize
	}
	return pageSize
}

func paginate(entries []models.LeaderboardEntry, page, pageSize int) []models.LeaderboardEntry {
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(entries) {
		return []models.LeaderboardEntry{}
	}
	end := start + pageSize
	if end > len(entries) {
		end = len(entries)
	}
	return entries[start:end]
}
