package service

import "errors"

var (
	ErrPropertyRequired    = errors.New("property id is required")
	ErrNotPropertyOwner    = errors.New("property does not belong to this landlord")
	ErrGenerationExhausted = errors.New("could not generate a unique invite code")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidRole         = errors.New("unsupported user role")
	ErrUserDisabled        = errors.New("user is disabled")
	ErrRefreshTokenInvalid = errors.New("refresh token invalid or revoked")
	ErrAuthRefreshFailed   = errors.New("session refresh failed, please log out and back in")
)

// User-facing rejection messages. Every validation or redemption rejection
// carries one of these rather than a raw error, so forms can display the
// string directly.
const (
	MsgInvalidFormat     = "Invalid code format"
	MsgNotFound          = "Invite code not found"
	MsgAlreadyUsed       = "This invite code has already been used"
	MsgRevoked           = "This invite code has been revoked"
	MsgExpired           = "This invite code has expired"
	MsgEmailRestricted   = "This invite code is restricted to a different email address"
	MsgAlreadyAssociated = "You are already associated with this property"
	MsgRedeemed          = "Invite code redeemed"
	MsgValid             = "Invite code is valid"

	// MsgDegradedWrite warns that the write landed on the in-process tier
	// only. It must reach the user, not be swallowed.
	MsgDegradedWrite = "Invite code saved locally only; it will not survive a service restart"
)
