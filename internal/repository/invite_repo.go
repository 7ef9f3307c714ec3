package repository

import (
	"context"
	"errors"
	"time"

	"propagentic/inviteservice/internal/model"
)

// Tier identifies which persistence backend served an operation. Callers
// surface TierLocal writes to the user since they do not survive a restart.
type Tier string

const (
	TierRemote   Tier = "remote"
	TierDatabase Tier = "database"
	TierLocal    Tier = "local"
)

// Sentinel errors shared by all tiers. Everything except ErrTierUnavailable
// is a definitive answer: the tier was reached and made a decision, so the
// orchestrator must not consult further tiers.
var (
	// ErrTierUnavailable means the tier could not be reached at all
	// (transport failure, closed pool, disabled backend). The orchestrator
	// falls through to the next tier.
	ErrTierUnavailable = errors.New("persistence tier unavailable")

	ErrCodeNotFound        = errors.New("invite code not found")
	ErrCodeAlreadyUsed     = errors.New("invite code already used")
	ErrCodeRevoked         = errors.New("invite code revoked")
	ErrCodeExpired         = errors.New("invite code expired")
	ErrEmailRestricted     = errors.New("invite code restricted to another email")
	ErrAlreadyAssociated   = errors.New("tenant already associated with this property unit")
	ErrGenerationExhausted = errors.New("could not generate a unique invite code")
)

// CodeSpec is the input to code creation. The code value itself is chosen by
// the tier: the remote function mints server-side, the database and local
// tiers draw from the restricted alphabet and collision-check locally.
type CodeSpec struct {
	PropertyID string
	LandlordID string
	UnitID     string
	Email      string
	// ExpirationDays is what the remote function consumes; ExpiresAt is the
	// resolved timestamp the database and local tiers persist directly.
	ExpirationDays int
	ExpiresAt      time.Time
}

// Redemption is the outcome of a successful redeem: the consumed code plus
// the association that now binds the tenant to the property.
type Redemption struct {
	Code        *model.InviteCode
	Association *model.PropertyAssociation
}

// InviteRepository is the logical operation set every tier implements, so
// the orchestrator and service stay agnostic to which backend answered.
type InviteRepository interface {
	// Create mints and persists a new invite code for the given spec.
	Create(ctx context.Context, spec CodeSpec) (*model.InviteCode, error)

	// GetByCode looks up a code (already uppercased by the caller).
	GetByCode(ctx context.Context, code string) (*model.InviteCode, error)

	// Redeem atomically marks the code used by tenantID and creates the
	// property association. tenantEmail enforces the optional restriction.
	Redeem(ctx context.Context, code, tenantID, tenantEmail string) (*Redemption, error)

	// Revoke transitions an active code to revoked.
	Revoke(ctx context.Context, code, landlordID string) error

	// ListByLandlord returns all codes issued by a landlord, newest first.
	ListByLandlord(ctx context.Context, landlordID string) ([]model.InviteCode, error)
}
