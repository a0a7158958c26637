package services

import (
	"errors"

	"github.com/tsheet/timesheet/internal/faults"
)

var (
	ErrForbidden          = faults.ErrForbidden
	ErrNotFound           = faults.ErrNotFound
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrInvalidRefresh     = errors.New("invalid refresh token")
)
