package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"referral-service/internal/events"
	"referral-service/internal/models"
)

// ReferralService manages membership of the referral program: joining,
// inviter attachment and the invitation tree.
type ReferralService struct {
	db          *gorm.DB
	codeService *ReferralCodeService
	publisher   events.Publisher
}

func NewReferralService(db *gorm.DB, codeService *ReferralCodeService, publisher events.Publisher) *ReferralService {
	return &ReferralService{
		db:          db,
		codeService: codeService,
		publisher:   publisher,
	}
}

// JoinInput carries the payload of a join request
type JoinInput struct {
	ApplicationID string `json:"application_id" validate:"required,min=10,application_id"`
	ReferralCode  string `json:"referral_code" validate:"omitempty,len=8"`
}

// Join registers the authenticated user in the referral program. The
// supplied referral code, when it resolves, determines the inviter;
// an unknown code means the user joins as a root. The joiner gets a
// default code of their own, and an invitedReferral event is dispatched
// best-effort.
func (s *ReferralService) Join(ctx context.Context, userID uuid.UUID, in JoinInput) (*models.ReferralCode, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	inviterID, err := s.codeService.Resolve(ctx, in.ReferralCode, in.ApplicationID)
	if err != nil {
		return nil, err
	}

	user, err := s.GetOrCreateUser(ctx, userID, in.ApplicationID)
	if err != nil {
		return nil, err
	}

	if err := s.AttachInviter(ctx, user, inviterID); err != nil {
		return nil, err
	}

	code, err := s.codeService.Generate(ctx, user.ID, GenerateCodeInput{
		ApplicationID: in.ApplicationID,
		IsDefault:     true,
	})
	if err != nil {
		return nil, err
	}

	events.Dispatch(s.publisher, events.TopicInvitedReferral, code)

	return code, nil
}

// GetOrCreateUser fetches the user record, registering it on first contact
func (s *ReferralService) GetOrCreateUser(ctx context.Context, userID uuid.UUID, applicationID string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{ID: userID, ApplicationID: applicationID}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to register user: %w", err)
		}
		return &user, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// AttachInviter links the user to their inviter exactly once. A nil
// inviter leaves the user as a root of the invitation forest. Self
// referrals and attachments that would close a cycle are rejected.
func (s *ReferralService) AttachInviter(ctx context.Context, user *models.User, inviterID *uuid.UUID) error {
	if inviterID == nil {
		return nil
	}

	if *inviterID == user.ID {
		return ErrSelfReferral
	}

	if user.ReferrerID != nil {
		return ErrAlreadyAttached
	}

	cyclic, err := s.wouldCreateCycle(ctx, user.ID, *inviterID)
	if err != nil {
		return err
	}
	if cyclic {
		return ErrReferralCycle
	}

	err = s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("referrer_id", *inviterID).Error
	if err != nil {
		return fmt.Errorf("failed to attach inviter: %w", err)
	}

	user.ReferrerID = inviterID
	log.Printf("User %s attached to inviter %s", user.ID, *inviterID)
	return nil
}

// wouldCreateCycle walks the inviter's ancestor chain and reports
// whether the joining user already appears in it. The walk is bounded
// by a visited set, so a corrupt chain cannot loop forever.
func (s *ReferralService) wouldCreateCycle(ctx context.Context, userID, inviterID uuid.UUID) (bool, error) {
	visited := map[uuid.UUID]bool{}
	current := inviterID

	for {
		if current == userID {
			return true, nil
		}
		if visited[current] {
			return true, nil
		}
		visited[current] = true

		var ancestor models.User
		err := s.db.WithContext(ctx).Select("id", "referrer_id").
			Where("id = ?", current).First(&ancestor).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to walk invitation tree: %w", err)
		}
		if ancestor.ReferrerID == nil {
			return false, nil
		}
		current = *ancestor.ReferrerID
	}
}

// ListReferrals returns a page of users invited by the given user
func (s *ReferralService) ListReferrals(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.User, int64, error) {
	if page < 1 {
		page = 1
	}

	var total int64
	q := s.db.WithContext(ctx).Model(&models.User{}).Where("referrer_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count referrals: %w", err)
	}

	var users []models.User
	err := q.Order("created_at ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list referrals: %w", err)
	}

	return users, total, nil
}
