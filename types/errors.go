package types

import "github.com/cockroachdb/errors"

// Error taxonomy per spec §7. Each sentinel is matched with errors.Is; callers
// that need the original fine-grained detail should wrap it with errors.Wrap
// at the point it's raised rather than inventing a new sentinel.
var (
	// Validation
	ErrInvalidQuery   = errors.New("invalid query")
	ErrInvalidParam   = errors.New("invalid param")
	ErrInvalidContent = errors.New("invalid content")
	ErrInvalidMerge   = errors.New("invalid merge")
	ErrInvalidPatch   = errors.New("invalid patch")
	ErrCoercion       = errors.New("coercion failed")
	ErrArithmetic     = errors.New("arithmetic overflow or underflow")

	// Not found (umbrella + distinct per-entity per §4.2's invariant)
	ErrNotFound        = errors.New("not found")
	ErrNsNotFound      = errors.Wrap(ErrNotFound, "namespace not found")
	ErrDbNotFound      = errors.Wrap(ErrNotFound, "database not found")
	ErrTbNotFound      = errors.Wrap(ErrNotFound, "table not found")
	ErrFcNotFound      = errors.Wrap(ErrNotFound, "field not found")
	ErrIxNotFound      = errors.Wrap(ErrNotFound, "index not found")
	ErrEvNotFound      = errors.Wrap(ErrNotFound, "event not found")
	ErrAccessNotFound  = errors.Wrap(ErrNotFound, "access method not found")
	ErrUserNotFound    = errors.Wrap(ErrNotFound, "user not found")
	ErrUserRootNF      = errors.Wrap(ErrNotFound, "root user not found")
	ErrAnalyzerNF      = errors.Wrap(ErrNotFound, "analyzer not found")
	ErrParamNotFound   = errors.Wrap(ErrNotFound, "param not found")
	ErrRecordNotFound  = errors.Wrap(ErrNotFound, "record not found")
	ErrSubscriptionNF  = errors.Wrap(ErrNotFound, "subscription not found")

	// Already exists (mirror set for DDL collisions)
	ErrAlreadyExists     = errors.New("already exists")
	ErrNsAlreadyExists   = errors.Wrap(ErrAlreadyExists, "namespace already exists")
	ErrDbAlreadyExists   = errors.Wrap(ErrAlreadyExists, "database already exists")
	ErrTbAlreadyExists   = errors.Wrap(ErrAlreadyExists, "table already exists")
	ErrFcAlreadyExists   = errors.Wrap(ErrAlreadyExists, "field already exists")
	ErrIxAlreadyExists   = errors.Wrap(ErrAlreadyExists, "index already exists")
	ErrEvAlreadyExists   = errors.Wrap(ErrAlreadyExists, "event already exists")
	ErrUserAlreadyExists = errors.Wrap(ErrAlreadyExists, "user already exists")
	ErrAccessAlreadyExists   = errors.Wrap(ErrAlreadyExists, "access method already exists")
	ErrAnalyzerAlreadyExists = errors.Wrap(ErrAlreadyExists, "analyzer already exists")
	ErrParamAlreadyExists    = errors.Wrap(ErrAlreadyExists, "param already exists")

	// Permissions
	ErrTablePermissions    = errors.New("table permission denied")
	ErrFieldPermissions    = errors.New("field permission denied")
	ErrParamPermissions    = errors.New("param permission denied")
	ErrFunctionPermissions = errors.New("function permission denied")
	ErrNsNotAllowed        = errors.New("namespace not allowed for this actor")
	ErrDbNotAllowed        = errors.New("database not allowed for this actor")

	// Auth
	ErrInvalidAuth             = errors.New("invalid auth")
	ErrUnexpectedAuth          = errors.New("unexpected auth error, safe to retry")
	ErrExpiredToken            = errors.New("token expired")
	ErrExpiredSession          = errors.New("session expired")
	ErrTokenMakingFailed       = errors.New("failed to make token")
	ErrMissingUserOrPass       = errors.New("missing user or pass")
	ErrNoSigninTarget          = errors.New("no signin target resolved from variables")
	ErrMissingTokenHeader      = errors.New("missing token header")
	ErrMissingTokenClaim       = errors.New("missing token claim")
	ErrAccessMethodMismatch    = errors.New("access method mismatch")
	ErrAccessRecordNoSignin    = errors.New("access method has no SIGNIN clause")
	ErrAccessRecordNoSignup    = errors.New("access method has no SIGNUP clause")
	ErrAccessSigninQueryFailed = errors.New("access record signin query failed")
	ErrAccessSignupQueryFailed = errors.New("access record signup query failed")
	ErrTotpRequired            = errors.New("totp passcode required")
	ErrTotpInvalid             = errors.New("totp passcode invalid")
	ErrTotpEnrollFailed        = errors.New("failed to enroll totp secret")

	// Transaction
	ErrTxRetryable        = errors.New("transaction conflict, retryable")
	ErrTxConditionNotMet  = errors.New("transaction condition not met")
	ErrTxKeyAlreadyExists = errors.New("transaction key already exists")
	ErrTxKeyTooLarge      = errors.New("transaction key too large")
	ErrTxValueTooLarge    = errors.New("transaction value too large")
	ErrTxTooLarge         = errors.New("transaction too large")
	ErrTxFinished         = errors.New("transaction already finished")
	ErrTxReadonly         = errors.New("transaction is read-only")

	// Resource
	ErrQueryCancelled           = errors.New("query cancelled")
	ErrComputationDepthExceeded = errors.New("computation depth exceeded")
	ErrRangeTooBig              = errors.New("range too big")

	// Internal — reserved for invariant violations, always logged at the call site.
	ErrInternal = errors.New("internal error")
)

// ThrownError forwards a user-defined AUTHENTICATE/SIGNIN error message verbatim, per §4.7/§7.
type ThrownError struct {
	Message string
}

func (e *ThrownError) Error() string { return e.Message }

// Thrown wraps a message as a ThrownError.
func Thrown(msg string) error { return &ThrownError{Message: msg} }

// IsThrown reports whether err is (or wraps) a ThrownError.
func IsThrown(err error) bool {
	var t *ThrownError
	return errors.As(err, &t)
}

// QueryTimedout surfaces at the next suspension point once a statement's TIMEOUT elapses.
type QueryTimedout struct {
	Duration string
}

func (e *QueryTimedout) Error() string { return "query timed out after " + e.Duration }
