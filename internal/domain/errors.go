package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrMissingField     = errors.New("missing required field")
	ErrInvalidPrice     = errors.New("price must be a number greater than 0")
	ErrInvalidListing   = errors.New("invalid listing")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrFileTooLarge     = errors.New("file too large")
	ErrUploadFailed     = errors.New("upload failed")
	ErrWriteFailed      = errors.New("write failed")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrMissingAddress   = errors.New("recipient address required")
	ErrRateLimited      = errors.New("rate limited")
	ErrContextDone      = errors.New("context cancelled")
)
