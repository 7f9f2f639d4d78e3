package store

import (
	"github.com/xtxerr/marketstats/internal/errors"
)

var (
	ErrNotFound         = errors.ErrNotFound
	ErrAlreadyExists    = errors.ErrAlreadyExists
	ErrInvalidReference = errors.ErrInvalidReference
	ErrInUse            = errors.ErrInUse

	// Entity-specific aliases
	ErrCountryNotFound     = errors.ErrCountryNotFound
	ErrMarketNotFound      = errors.ErrMarketNotFound
	ErrParticipantNotFound = errors.ErrParticipantNotFound
	ErrMembershipNotFound  = errors.ErrMembershipNotFound
)
