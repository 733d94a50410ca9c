package services

import "errors"

var (
	// ErrSelfReferral is returned when a user tries to attach themselves
	// as their own inviter
	ErrSelfReferral = errors.New("cannot use your own referral code")

	// ErrAlreadyAttached is returned when a user already has a referrer
	ErrAlreadyAttached = errors.New("user already has a referrer")

	// ErrReferralCycle is returned when an attach would make the
	// invitation tree cyclic
	ErrReferralCycle = errors.New("referral would create a cycle")

	// ErrCodeNotOwned is returned when a user operates on a referral
	// code belonging to someone else
	ErrCodeNotOwned = errors.New("referral code does not belong to user")
)
