package core

import "errors"

var (
	ErrAccountNotFound         = errors.New("account_not_found")
	ErrRecordNotFound          = errors.New("deleted_record_not_found")
	ErrTokenNotFound           = errors.New("token_not_found")
	ErrTokenExpired            = errors.New("token_expired")
	ErrTokenUsed               = errors.New("token_already_used")
	ErrEmailTaken              = errors.New("email_already_active")
	ErrForbidden               = errors.New("forbidden")
	ErrDefaultAdminUndeletable = errors.New("default_admin_undeletable")
	ErrAlreadyPurged           = errors.New("record_already_purged")
)

// IsTokenInvalid reports whether err is one of the token failure modes that
// the self-service restore surface collapses into a single answer, so callers
// cannot probe which tokens ever existed.
func IsTokenInvalid(err error) bool {
	return errors.Is(err, ErrTokenNotFound) || errors.Is(err, ErrTokenExpired) || errors.Is(err, ErrTokenUsed)
}
