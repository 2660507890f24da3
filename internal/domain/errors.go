package domain

import "errors"

// Errors returned by the directory, pairing and relay services.
// Callers match them with errors.Is.
var (
	ErrNotFound             = errors.New("profile not found")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired connection code")
	ErrAlreadyPaired        = errors.New("already paired")
	ErrNotPaired            = errors.New("not paired")
	ErrSelfPairing          = errors.New("cannot pair with yourself")
	ErrTranslationFailed    = errors.New("translation failed")
	ErrStoreUnavailable     = errors.New("store unavailable")
	ErrUnsupportedLanguage  = errors.New("unsupported language")
)
