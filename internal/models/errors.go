package models

import "errors"

// Ошибки предметной области. Слои оборачивают их через %w,
// транспорт сопоставляет их с HTTP-статусами.
var (
	ErrUnauthenticated         = errors.New("unauthenticated")
	ErrInvalidRequest          = errors.New("invalid request")
	ErrExternalService         = errors.New("external billing service error")
	ErrClientSecretUnavailable = errors.New("client secret unavailable for subscription")
	ErrInvalidSignature        = errors.New("invalid webhook signature")
	ErrUserNotFound            = errors.New("user not found")
	ErrProfileNotFound         = errors.New("profile not found")
)
