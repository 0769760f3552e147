package domain

import "errors"

// Input errors are rejected at the boundary before any upstream call.
var (
	ErrInvalidSeedID    = errors.New("seedId must be a positive integer")
	ErrInvalidMediaType = errors.New("media type must be movie or tv")
	ErrEmptyQuery       = errors.New("query is required")
	ErrInvalidMode      = errors.New("mode must be auto, title or themes")
	ErrUnknownTrait     = errors.New("unknown trait")
)

// IsInputError reports whether err is one of the malformed-input errors.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidSeedID) ||
		errors.Is(err, ErrInvalidMediaType) ||
		errors.Is(err, ErrEmptyQuery) ||
		errors.Is(err, ErrInvalidMode) ||
		errors.Is(err, ErrUnknownTrait)
}
