package service

import "errors"

var (
	ErrNotFound             = errors.New("error not found")
	ErrAlreadyExists        = errors.New("error already exists")
	ErrInvalidCredentials   = errors.New("error invalid credentials")
	ErrInvalidKind          = errors.New("error invalid kind")
	ErrInvalidQuantity      = errors.New("error quantity must be positive")
	ErrInvalidConsideration = errors.New("error total consideration must be positive")
	ErrMissingFxRate        = errors.New("error fx rate required for foreign wallet")
	ErrCatalogUnavailable   = errors.New("error price catalog unavailable")
)
