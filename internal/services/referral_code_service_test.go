package services

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"referral-service/internal/models"
)

const testAppID = "net.sumra.chat"

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.ReferralCode{},
		&models.Total{},
		&models.Transaction{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	// cache=shared keeps one database per process, so every test starts
	// by clearing the tables it touches
	db.Exec("DELETE FROM referral_codes")
	db.Exec("DELETE FROM totals")
	db.Exec("DELETE FROM transactions")
	db.Exec("DELETE FROM users")

	return db
}

func createTestUser(t *testing.T, db *gorm.DB) *models.User {
	user := models.User{ApplicationID: testAppID}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return &user
}

func TestGenerateReferralCode(t *testing.T) {
	db := setupTestDB(t)
	service := NewReferralCodeService(db, "https://sumra.net")
	user := createTestUser(t, db)
	ctx := context.Background()

	code, err := service.Generate(ctx, user.ID, GenerateCodeInput{ApplicationID: testAppID})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(code.Code) != 8 {
		t.Errorf("expected code length 8, got %d (%q)", len(code.Code), code.Code)
	}
	if code.UserID != user.ID {
		t.Errorf("expected owner %s, got %s", user.ID, code.UserID)
	}
	if code.ReferralLink == "" {
		t.Error("expected referral link to be derived")
	}

	// Round-trip: the generated code resolves back to its owner
	ownerID, err := service.Resolve(ctx, code.Code, testAppID)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if ownerID == nil || *ownerID != user.ID {
		t.Errorf("expected resolve to return %s, got %v", user.ID, ownerID)
	}

	// A different application never matches
	otherApp, err := service.Resolve(ctx, code.Code, "com.other.app")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if otherApp != nil {
		t.Errorf("expected no match for other application, got %v", otherApp)
	}

	// An unknown code is a normal outcome, not an error
	unknown, err := service.Resolve(ctx, "zzzzzzzz", testAppID)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if unknown != nil {
		t.Errorf("expected no match for unknown code, got %v", unknown)
	}
}

func TestGenerateRetriesOnCollision(t *testing.T) {
	db := setupTestDB(t)
	service := NewReferralCodeService(db, "https://sumra.net")
	user := createTestUser(t, db)
	other := createTestUser(t, db)
	ctx := context.Background()

	// Occupy a code value the forced RNG will draw first
	taken := models.ReferralCode{
		Code:          "AAAAAAAA",
		ApplicationID: testAppID,
		UserID:        other.ID,
		ReferralLink:  "https://sumra.net/invite/AAAAAAAA",
	}
	if err := db.Create(&taken).Error; err != nil {
		t.Fatalf("failed to seed taken code: %v", err)
	}

	// RNG collides twice before producing a fresh draw
	draws := []string{"AAAAAAAA", "AAAAAAAA", "BBBBBBBB"}
	service.randCode = func(n int) (string, error) {
		code := draws[0]
		if len(draws) > 1 {
			draws = draws[1:]
		}
		return code, nil
	}

	code, err := service.Generate(ctx, user.ID, GenerateCodeInput{ApplicationID: testAppID})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if code.Code != "BBBBBBBB" {
		t.Errorf("expected retry to settle on BBBBBBBB, got %q", code.Code)
	}

	var count int64
	db.Model(&models.ReferralCode{}).Where("code = ?", "AAAAAAAA").Count(&count)
	if count != 1 {
		t.Errorf("expected exactly one row with the contested code, got %d", count)
	}
}

func TestDuplicateInsertSignalsRetry(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db)

	first := models.ReferralCode{
		Code: "CCCCCCCC", ApplicationID: testAppID, UserID: user.ID,
		ReferralLink: "https://sumra.net/invite/CCCCCCCC",
	}
	if err := db.Create(&first).Error; err != nil {
		t.Fatalf("failed to create code: %v", err)
	}

	// A concurrent insert of the same code must surface as
	// gorm.ErrDuplicatedKey, the signal Generate retries on
	second := models.ReferralCode{
		Code: "CCCCCCCC", ApplicationID: testAppID, UserID: user.ID,
		ReferralLink: "https://sumra.net/invite/CCCCCCCC2",
	}
	err := db.Create(&second).Error
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("expected gorm.ErrDuplicatedKey, got %v", err)
	}
}

func TestGenerateValidatesApplicationID(t *testing.T) {
	db := setupTestDB(t)
	service := NewReferralCodeService(db, "https://sumra.net")
	user := createTestUser(t, db)
	ctx := context.Background()

	cases := []string{
		"",            // missing
		"short.app",   // below min length
		"Net.Sumra.X1", // uppercase not allowed
	}

	for _, appID := range cases {
		_, err := service.Generate(ctx, user.ID, GenerateCodeInput{ApplicationID: appID})
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			t.Errorf("application_id %q: expected validation errors, got %v", appID, err)
		}
	}
}

func TestDefaultCodeHandling(t *testing.T) {
	db := setupTestDB(t)
	service := NewReferralCodeService(db, "https://sumra.net")
	user := createTestUser(t, db)
	ctx := context.Background()

	first, err := service.Generate(ctx, user.ID, GenerateCodeInput{ApplicationID: testAppID, IsDefault: true})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !first.IsDefault {
		t.Error("expected first requested default to be honored")
	}

	// A second requested default is refused while another default exists
	second, err := service.Generate(ctx, user.ID, GenerateCodeInput{ApplicationID: testAppID, IsDefault: true})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if second.IsDefault {
		t.Error("expected second default request to be ignored")
	}

	// SetDefault moves the flag and clears the previous holder
	if err := service.SetDefault(ctx, user.ID, second.ID); err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}

	var defaults []models.ReferralCode
	if err := db.Where("user_id = ? AND is_default = ?", user.ID, true).Find(&defaults).Error; err != nil {
		t.Fatalf("failed to load defaults: %v", err)
	}
	if len(defaults) != 1 || defaults[0].ID != second.ID {
		t.Errorf("expected exactly the second code to be default, got %+v", defaults)
	}
}

func TestUpdateAndDeleteCode(t *testing.T) {
	db := setupTestDB(t)
	service := NewReferralCodeService(db, "https://sumra.net")
	user := createTestUser(t, db)
	stranger := createTestUser(t, db)
	ctx := context.Background()

	code, err := service.Generate(ctx, user.ID, GenerateCodeInput{ApplicationID: testAppID})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	note := "shared in the family chat"
	updated, err := service.Update(ctx, user.ID, code.ID, UpdateCodeInput{Note: &note})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Note == nil || *updated.Note != note {
		t.Errorf("expected note %q, got %v", note, updated.Note)
	}
	if updated.Code != code.Code {
		t.Errorf("code value must be immutable, got %q -> %q", code.Code, updated.Code)
	}

	// Another user cannot touch the code
	if _, err := service.GetByID(ctx, stranger.ID, code.ID); !errors.Is(err, ErrCodeNotOwned) {
		t.Errorf("expected ErrCodeNotOwned, got %v", err)
	}

	if err := service.Delete(ctx, user.ID, code.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	// Soft-deleted codes no longer resolve
	owner, err := service.Resolve(ctx, code.Code, testAppID)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if owner != nil {
		t.Errorf("expected deleted code not to resolve, got %v", owner)
	}
}
