package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound   = errors.New("resource not found")
	ErrConflict   = errors.New("resource already exists")
	ErrBadRequest = errors.New("bad request")

	// Token errors
	ErrMalformedToken = errors.New("malformed token")

	// Credential and account state errors
	ErrBadCredentials  = errors.New("bad credentials")
	ErrAccountDisabled = errors.New("account is disabled")
	ErrAccountLocked   = errors.New("account is locked")

	// Registration and profile validation errors
	ErrDuplicateUsername = errors.New("username already exists")
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrEmailNotFound     = errors.New("no user found for email")
	ErrInvalidRole       = errors.New("invalid role")
	ErrInvalidImage      = errors.New("invalid profile image")

	// Collaborator errors
	ErrDelivery = errors.New("email delivery failed")
	ErrStorage  = errors.New("storage i/o failed")
	ErrUpstream = errors.New("upstream service unavailable")
)
