package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"referral-service/internal/models"
)

const codeLength = 8

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var applicationIDPattern = regexp.MustCompile(`^[a-z0-9.]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("application_id", func(fl validator.FieldLevel) bool {
		return applicationIDPattern.MatchString(fl.Field().String())
	})
	return v
}

// GenerateCodeInput carries the caller-supplied attributes of a new code
type GenerateCodeInput struct {
	ApplicationID string  `validate:"required,min=10,application_id"`
	Note          *string `validate:"omitempty,max=255"`
	IsDefault     bool
}

type ReferralCodeService struct {
	db      *gorm.DB
	baseURL string
	mu      sync.Mutex

	// overridable in tests to force collisions
	randCode func(n int) (string, error)
}

func NewReferralCodeService(db *gorm.DB, baseURL string) *ReferralCodeService {
	return &ReferralCodeService{
		db:       db,
		baseURL:  baseURL,
		randCode: randomCode,
	}
}

// randomCode draws n characters uniformly from the alphanumeric alphabet
func randomCode(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b), nil
}

// Generate produces a unique 8-character referral code for the user and
// persists it. Codes are drawn by rejection sampling: each draw is
// re-checked against the store, and a duplicate key at insert time is
// treated as a signal to redraw, never as a fatal error.
func (s *ReferralCodeService) Generate(ctx context.Context, userID uuid.UUID, in GenerateCodeInput) (*models.ReferralCode, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	isDefault := in.IsDefault
	if isDefault {
		// at most one default code per user
		var existing int64
		err := s.db.WithContext(ctx).Model(&models.ReferralCode{}).
			Where("user_id = ? AND is_default = ?", userID, true).
			Count(&existing).Error
		if err != nil {
			return nil, fmt.Errorf("failed to check default code: %w", err)
		}
		if existing > 0 {
			isDefault = false
		}
	}

	for {
		code, err := s.randCode(codeLength)
		if err != nil {
			return nil, fmt.Errorf("failed to draw referral code: %w", err)
		}

		var count int64
		err = s.db.WithContext(ctx).Unscoped().Model(&models.ReferralCode{}).
			Where("code = ?", code).Count(&count).Error
		if err != nil {
			return nil, fmt.Errorf("failed to check referral code: %w", err)
		}
		if count > 0 {
			continue
		}

		referralCode := models.ReferralCode{
			Code:          code,
			ApplicationID: in.ApplicationID,
			UserID:        userID,
			ReferralLink:  s.buildReferralLink(code, in.ApplicationID),
			IsDefault:     isDefault,
			Note:          in.Note,
		}

		err = s.db.WithContext(ctx).Create(&referralCode).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// lost the insert race to a concurrent generator, redraw
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create referral code: %w", err)
		}

		log.Printf("Generated referral code %s for user %s", code, userID)
		return &referralCode, nil
	}
}

// buildReferralLink derives the shareable deep link for a code
func (s *ReferralCodeService) buildReferralLink(code, applicationID string) string {
	return fmt.Sprintf("%s/invite/%s?utm_source=%s&utm_campaign=%s&utm_medium=%s",
		s.baseURL, code, applicationID, slug.Make(models.Campaign), slug.Make(models.Medium))
}

// Resolve looks up the owner of a code within an application. Absence is
// a normal outcome: a nil user ID with a nil error means no match.
func (s *ReferralCodeService) Resolve(ctx context.Context, code, applicationID string) (*uuid.UUID, error) {
	if code == "" {
		return nil, nil
	}

	var referralCode models.ReferralCode
	err := s.db.WithContext(ctx).
		Where("code = ? AND application_id = ?", code, applicationID).
		First(&referralCode).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve referral code: %w", err)
	}

	return &referralCode.UserID, nil
}

// ListByUser returns all codes owned by a user, default first
func (s *ReferralCodeService) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ReferralCode, error) {
	var codes []models.ReferralCode
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, created_at ASC").
		Find(&codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// GetByID returns a single code owned by the user
func (s *ReferralCodeService) GetByID(ctx context.Context, userID, codeID uuid.UUID) (*models.ReferralCode, error) {
	var code models.ReferralCode
	err := s.db.WithContext(ctx).Where("id = ?", codeID).First(&code).Error
	if err != nil {
		return nil, err
	}
	if code.UserID != userID {
		return nil, ErrCodeNotOwned
	}
	return &code, nil
}

// UpdateCodeInput carries the mutable attributes of a referral code.
// The code value itself is immutable once generated.
type UpdateCodeInput struct {
	Note      *string `validate:"omitempty,max=255"`
	IsDefault *bool
}

// Update changes the note or default flag of an existing code
func (s *ReferralCodeService) Update(ctx context.Context, userID, codeID uuid.UUID, in UpdateCodeInput) (*models.ReferralCode, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	code, err := s.GetByID(ctx, userID, codeID)
	if err != nil {
		return nil, err
	}

	if in.IsDefault != nil && *in.IsDefault {
		if err := s.SetDefault(ctx, userID, codeID); err != nil {
			return nil, err
		}
		code.IsDefault = true
	}

	if in.Note != nil {
		if err := s.db.WithContext(ctx).Model(code).Update("note", *in.Note).Error; err != nil {
			return nil, fmt.Errorf("failed to update referral code: %w", err)
		}
		code.Note = in.Note
	}

	return code, nil
}

// SetDefault marks the given code as the user's default and clears the
// flag on every other code they own
func (s *ReferralCodeService) SetDefault(ctx context.Context, userID, codeID uuid.UUID) error {
	code, err := s.GetByID(ctx, userID, codeID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.ReferralCode{}).
			Where("user_id = ? AND id != ?", userID, code.ID).
			Update("is_default", false).Error
		if err != nil {
			return err
		}
		return tx.Model(&models.ReferralCode{}).
			Where("id = ?", code.ID).
			Update("is_default", true).Error
	})
}

// Delete soft-deletes a code owned by the user
func (s *ReferralCodeService) Delete(ctx context.Context, userID, codeID uuid.UUID) error {
	code, err := s.GetByID(ctx, userID, codeID)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(code).Error
}
