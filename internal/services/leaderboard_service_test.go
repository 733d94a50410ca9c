package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"referral-service/internal/models"
	"referral-service/internal/repository"
)

func setupLeaderboard(t *testing.T) (*gorm.DB, *LeaderboardService) {
	db := setupTestDB(t)
	return db, NewLeaderboardService(repository.NewRepository(db), 20, false)
}

func createReferrer(t *testing.T, db *gorm.DB, invitees int) *models.User {
	t.Helper()
	referrer := createTestUser(t, db)
	for i := 0; i < invitees; i++ {
		invitee := models.User{ApplicationID: testAppID, ReferrerID: &referrer.ID}
		if err := db.Create(&invitee).Error; err != nil {
			t.Fatalf("failed to create invitee: %v", err)
		}
	}
	return referrer
}

func addReward(t *testing.T, db *gorm.DB, userID uuid.UUID, reward int64) {
	t.Helper()
	total := models.Total{UserID: userID, Amount: 1, Reward: decimal.NewFromInt(reward)}
	if err := db.Create(&total).Error; err != nil {
		t.Fatalf("failed to create total: %v", err)
	}
}

func TestGlobalRankingScenario(t *testing.T) {
	db, service := setupLeaderboard(t)
	ctx := context.Background()

	// A invited B, C, D and accrued two reward rows of 100 and 200
	a := createReferrer(t, db, 3)
	addReward(t, db, a.ID, 100)
	addReward(t, db, a.ID, 200)

	entries, err := service.ComputeGlobalRanking(ctx, 1, 20)
	if err != nil {
		t.Fatalf("ComputeGlobalRanking failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 ranked inviter, got %d", len(entries))
	}

	entry := entries[0]
	if entry.UserID != a.ID {
		t.Errorf("expected entry for %s, got %s", a.ID, entry.UserID)
	}
	if entry.TotalReferrals != 3 {
		t.Errorf("expected 3 referrals, got %d", entry.TotalReferrals)
	}
	if !entry.AmountEarned.Equal(decimal.NewFromInt(300)) {
		t.Errorf("expected amount earned 300, got %s", entry.AmountEarned)
	}
	if !entry.TopReferralBonus.Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected top referral bonus 200, got %s", entry.TopReferralBonus)
	}
	if entry.Rank != 1 {
		t.Errorf("expected rank 1, got %d", entry.Rank)
	}
}

func TestRankingOrderIsDense(t *testing.T) {
	db, service := setupLeaderboard(t)
	ctx := context.Background()

	rewards := []int64{50, 300, 120, 300, 10}
	for _, reward := range rewards {
		referrer := createReferrer(t, db, 1)
		addReward(t, db, referrer.ID, reward)
	}

	entries, err := service.ComputeGlobalRanking(ctx, 1, 20)
	if err != nil {
		t.Fatalf("ComputeGlobalRanking failed: %v", err)
	}
	if len(entries) != len(rewards) {
		t.Fatalf("expected %d entries, got %d", len(rewards), len(entries))
	}

	for i := 0; i < len(entries)-1; i++ {
		if entries[i].AmountEarned.Cmp(entries[i+1].AmountEarned) < 0 {
			t.Errorf("entries out of order at %d: %s < %s",
				i, entries[i].AmountEarned, entries[i+1].AmountEarned)
		}
		if entries[i].Rank+1 != entries[i+1].Rank {
			t.Errorf("rank gap at %d: %d then %d", i, entries[i].Rank, entries[i+1].Rank)
		}
	}
	if entries[0].Rank != 1 {
		t.Errorf("expected first rank 1, got %d", entries[0].Rank)
	}

	// The global max is repeated on every entry
	top := decimal.NewFromInt(300)
	for _, entry := range entries {
		if !entry.TopReferralBonus.Equal(top) {
			t.Errorf("expected global top bonus %s on entry %s, got %s",
				top, entry.UserID, entry.TopReferralBonus)
		}
	}
}

func TestRankingIsIdempotent(t *testing.T) {
	db, service := setupLeaderboard(t)
	ctx := context.Background()

	for _, reward := range []int64{75, 75, 200} {
		referrer := createReferrer(t, db, 2)
		addReward(t, db, referrer.ID, reward)
	}

	first, err := service.ComputeGlobalRanking(ctx, 1, 20)
	if err != nil {
		t.Fatalf("ComputeGlobalRanking failed: %v", err)
	}
	second, err := service.ComputeGlobalRanking(ctx, 1, 20)
	if err != nil {
		t.Fatalf("ComputeGlobalRanking failed: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("expected identical lengths, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].UserID != second[i].UserID || first[i].Rank != second[i].Rank {
			t.Errorf("entry %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestRankingPagination(t *testing.T) {
	db, service := setupLeaderboard(t)
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		referrer := createReferrer(t, db, 1)
		addReward(t, db, referrer.ID, i*10)
	}

	page1, err := service.ComputeGlobalRanking(ctx, 1, 2)
	if err != nil {
		t.Fatalf("ComputeGlobalRanking failed: %v", err)
	}
	if len(page1) != 2 || page1[0].Rank != 1 {
		t.Errorf("expected first page of 2 starting at rank 1, got %+v", page1)
	}

	page3, err := service.ComputeGlobalRanking(ctx, 3, 2)
	if err != nil {
		t.Fatalf("ComputeGlobalRanking failed: %v", err)
	}
	if len(page3) != 1 || page3[0].Rank != 5 {
		t.Errorf("expected last page with rank 5, got %+v", page3)
	}

	// Out-of-range pages are empty, never an error
	beyond, err := service.ComputeGlobalRanking(ctx, 99, 2)
	if err != nil {
		t.Fatalf("ComputeGlobalRanking failed: %v", err)
	}
	if len(beyond) != 0 {
		t.Errorf("expected empty page, got %d entries", len(beyond))
	}
}

func TestPersonalSummary(t *testing.T) {
	db, service := setupLeaderboard(t)
	ctx := context.Background()

	referrer := createReferrer(t, db, 2)
	addReward(t, db, referrer.ID, 40)
	bystander := createTestUser(t, db)

	entry, err := service.PersonalSummary(ctx, referrer.ID)
	if err != nil {
		t.Fatalf("PersonalSummary failed: %v", err)
	}
	if entry == nil {
		t.Fatal("expected an entry for the referrer")
	}
	if entry.TotalReferrals != 2 {
		t.Errorf("expected 2 referrals, got %d", entry.TotalReferrals)
	}

	// Empty exactly when the user never appears as a referrer
	none, err := service.PersonalSummary(ctx, bystander.ID)
	if err != nil {
		t.Fatalf("PersonalSummary failed: %v", err)
	}
	if none != nil {
		t.Errorf("expected empty summary for non-referrer, got %+v", none)
	}
}

func TestInformer(t *testing.T) {
	db, service := setupLeaderboard(t)
	ctx := context.Background()

	referrer := createReferrer(t, db, 1)
	addReward(t, db, referrer.ID, 90)

	tx := models.Transaction{
		UserID:    referrer.ID,
		Amount:    decimal.NewFromInt(25),
		CreatedAt: time.Now(),
	}
	if err := db.Create(&tx).Error; err != nil {
		t.Fatalf("failed to create transaction: %v", err)
	}

	informer, err := service.InformerFor(ctx, referrer.ID)
	if err != nil {
		t.Fatalf("InformerFor failed: %v", err)
	}
	if informer.Rank != 1 {
		t.Errorf("expected rank 1, got %d", informer.Rank)
	}
	if !informer.Reward.Equal(decimal.NewFromInt(90)) {
		t.Errorf("expected reward 90, got %s", informer.Reward)
	}
	if !informer.GrowthThisMonth.Equal(decimal.NewFromInt(25)) {
		t.Errorf("expected growth 25, got %s", informer.GrowthThisMonth)
	}

	// Unranked users get a zero-valued informer, not an error
	bystander := createTestUser(t, db)
	zero, err := service.InformerFor(ctx, bystander.ID)
	if err != nil {
		t.Fatalf("InformerFor failed: %v", err)
	}
	if zero.Rank != 0 || !zero.Reward.IsZero() || !zero.GrowthThisMonth.IsZero() {
		t.Errorf("expected zero informer, got %+v", zero)
	}
}

func TestOwnTopBonusOption(t *testing.T) {
	db := setupTestDB(t)
	service := NewLeaderboardService(repository.NewRepository(db), 20, true)
	ctx := context.Background()

	a := createReferrer(t, db, 1)
	addReward(t, db, a.ID, 100)
	b := createReferrer(t, db, 1)
	addReward(t, db, b.ID, 500)

	entries, err := service.ComputeGlobalRanking(ctx, 1, 20)
	if err != nil {
		t.Fatalf("ComputeGlobalRanking failed: %v", err)
	}

	for _, entry := range entries {
		switch entry.UserID {
		case a.ID:
			if !entry.TopReferralBonus.Equal(decimal.NewFromInt(100)) {
				t.Errorf("expected a's own top bonus 100, got %s", entry.TopReferralBonus)
			}
		case b.ID:
			if !entry.TopReferralBonus.Equal(decimal.NewFromInt(500)) {
				t.Errorf("expected b's own top bonus 500, got %s", entry.TopReferralBonus)
			}
		}
	}
}
