package domain

import "errors"

var (
	ErrValidation           = errors.New("validation failed")
	ErrNotFound             = errors.New("not found")
	ErrStoreUnavailable     = errors.New("store unavailable")
	ErrRateLimited          = errors.New("rate limit exceeded")
	ErrApprovalNotPending   = errors.New("approval not found or already processed")
	ErrApprovalExpired      = errors.New("approval request expired")
	ErrApprovalHashMismatch = errors.New("approval hash mismatch")
)
