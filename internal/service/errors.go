package service

import "errors"

// Centralized service layer errors.
// All sentinel errors returned by service methods are defined here so
// handlers can map them predictably.

// ===== Authentication Errors =====
var (
	ErrInvalidCredentials = errors.New("Invalid login credentials")
	ErrAccountNotFound    = errors.New("account not found")
)

// ===== Token Errors =====
var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrRefreshTokenRevoked = errors.New("refresh token revoked")
)

// ===== Diary Errors =====
var (
	ErrDiaryNotFound    = errors.New("diary not found")
	ErrEmptyDiaryUpdate = errors.New("no fields to update")
)

// ===== Emotion Summary Errors =====
var (
	// ErrTallyUnavailable means the month's entries could not be read.
	// Callers must not treat it as a zero tally.
	ErrTallyUnavailable = errors.New("emotion summary unavailable")
)
