package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"propagentic/inviteservice/internal/model"
)

// downTier simulates an unreachable backend: every operation reports
// ErrTierUnavailable so the orchestrator falls through.
type downTier struct {
	calls int
}

func (d *downTier) Create(context.Context, CodeSpec) (*model.InviteCode, error) {
	d.calls++
	return nil, errors.Join(ErrTierUnavailable, errors.New("connection refused"))
}

func (d *downTier) GetByCode(context.Context, string) (*model.InviteCode, error) {
	d.calls++
	return nil, errors.Join(ErrTierUnavailable, errors.New("connection refused"))
}

func (d *downTier) Redeem(context.Context, string, string, string) (*Redemption, error) {
	d.calls++
	return nil, errors.Join(ErrTierUnavailable, errors.New("connection refused"))
}

func (d *downTier) Revoke(context.Context, string, string) error {
	d.calls++
	return errors.Join(ErrTierUnavailable, errors.New("connection refused"))
}

func (d *downTier) ListByLandlord(context.Context, string) ([]model.InviteCode, error) {
	d.calls++
	return nil, errors.Join(ErrTierUnavailable, errors.New("connection refused"))
}

// answeringTier always answers NotFound: reachable, definitive, negative.
type answeringTier struct {
	lookups int
}

func (a *answeringTier) Create(context.Context, CodeSpec) (*model.InviteCode, error) {
	return nil, ErrGenerationExhausted
}

func (a *answeringTier) GetByCode(context.Context, string) (*model.InviteCode, error) {
	a.lookups++
	return nil, ErrCodeNotFound
}

func (a *answeringTier) Redeem(context.Context, string, string, string) (*Redemption, error) {
	return nil, ErrCodeNotFound
}

func (a *answeringTier) Revoke(context.Context, string, string) error { return ErrCodeNotFound }

func (a *answeringTier) ListByLandlord(context.Context, string) ([]model.InviteCode, error) {
	return nil, nil
}

func newTestTiered(t *testing.T, opts ...TieredOption) (*TieredInviteRepository, *downTier, *downTier) {
	t.Helper()
	remote := &downTier{}
	database := &downTier{}
	tiered := NewTieredInviteRepository(zap.NewNop(), opts...)
	tiered.AddTier(TierRemote, remote)
	tiered.AddTier(TierDatabase, database)
	tiered.AddTier(TierLocal, NewMemoryInviteRepository(testPolicy()))
	return tiered, remote, database
}

func TestTieredCreateFallsThroughToLocal(t *testing.T) {
	tiered, remote, database := newTestTiered(t)

	code, tier, err := tiered.Create(context.Background(), testSpec())
	require.NoError(t, err)
	assert.Equal(t, TierLocal, tier)
	assert.NotEmpty(t, code.Code)
	assert.Equal(t, 1, remote.calls)
	assert.Equal(t, 1, database.calls)
}

func TestTieredLocalWriteVisibleInSameProcessOnly(t *testing.T) {
	tiered, _, _ := newTestTiered(t)
	ctx := context.Background()

	code, tier, err := tiered.Create(ctx, testSpec())
	require.NoError(t, err)
	require.Equal(t, TierLocal, tier)

	// Same process: the lookup reaches the same local map.
	found, tier, err := tiered.GetByCode(ctx, code.Code)
	require.NoError(t, err)
	assert.Equal(t, TierLocal, tier)
	assert.Equal(t, code.Code, found.Code)

	// A fresh orchestrator stands in for a restarted process: the local
	// tier is empty and the code is gone. This is the documented
	// non-durability of the fallback, not a bug.
	fresh, _, _ := newTestTiered(t)
	_, _, err = fresh.GetByCode(ctx, code.Code)
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestTieredLookupShortCircuitsOnFirstAnswer(t *testing.T) {
	answering := &answeringTier{}
	local := NewMemoryInviteRepository(testPolicy())

	// Seed the local tier so a fall-through would find the code.
	seeded, err := local.Create(context.Background(), testSpec())
	require.NoError(t, err)

	tiered := NewTieredInviteRepository(zap.NewNop())
	tiered.AddTier(TierRemote, answering)
	tiered.AddTier(TierLocal, local)

	// The remote tier answered "not found"; that is definitive even though
	// the local tier disagrees.
	_, tier, err := tiered.GetByCode(context.Background(), seeded.Code)
	assert.ErrorIs(t, err, ErrCodeNotFound)
	assert.Equal(t, TierRemote, tier)
	assert.Equal(t, 1, answering.lookups)
}

// duplicateAssocTier answers every redemption with the duplicate-association
// rejection, as the database tier does when its unique index fires.
type duplicateAssocTier struct{ answeringTier }

func (d *duplicateAssocTier) Redeem(context.Context, string, string, string) (*Redemption, error) {
	return nil, ErrAlreadyAssociated
}

func TestTieredRedeemDuplicateAssociationDoesNotFallThrough(t *testing.T) {
	local := NewMemoryInviteRepository(testPolicy())
	seeded, err := local.Create(context.Background(), testSpec())
	require.NoError(t, err)

	tiered := NewTieredInviteRepository(zap.NewNop())
	tiered.AddTier(TierDatabase, &duplicateAssocTier{})
	tiered.AddTier(TierLocal, local)

	// The database tier rejected decisively; the local tier, which would
	// happily redeem the seeded code, must never be consulted.
	_, tier, err := tiered.Redeem(context.Background(), seeded.Code, "tenant-1", "")
	assert.ErrorIs(t, err, ErrAlreadyAssociated)
	assert.Equal(t, TierDatabase, tier)

	found, err := local.GetByCode(context.Background(), seeded.Code)
	require.NoError(t, err)
	assert.Equal(t, model.InviteStatusActive, found.Status)
}

func TestTieredRedeemWithNoEffectiveTiers(t *testing.T) {
	// Legacy fallback skips the database tier; with nothing else wired the
	// redeem attempts no tier and must report unavailability, not nil/nil.
	database := &downTier{}
	tiered := NewTieredInviteRepository(zap.NewNop(), WithLegacyRedeemFallback())
	tiered.AddTier(TierDatabase, database)

	redemption, _, err := tiered.Redeem(context.Background(), "AB23XQ9P", "tenant-1", "")
	assert.Nil(t, redemption)
	assert.ErrorIs(t, err, ErrTierUnavailable)
	assert.Equal(t, 0, database.calls)
}

func TestTieredAllTiersDownSurfacesLastError(t *testing.T) {
	tiered := NewTieredInviteRepository(zap.NewNop())
	tiered.AddTier(TierRemote, &downTier{})
	tiered.AddTier(TierDatabase, &downTier{})

	_, tier, err := tiered.GetByCode(context.Background(), "AB23XQ9P")
	assert.ErrorIs(t, err, ErrTierUnavailable)
	assert.Equal(t, TierDatabase, tier)
}

func TestTieredLegacyRedeemFallbackSkipsDatabase(t *testing.T) {
	tiered, remote, database := newTestTiered(t, WithLegacyRedeemFallback())
	ctx := context.Background()

	code, _, err := tiered.Create(ctx, testSpec())
	require.NoError(t, err)

	_, tier, err := tiered.Redeem(ctx, code.Code, "tenant-1", "")
	require.NoError(t, err)
	assert.Equal(t, TierLocal, tier)
	// Remote was consulted for both create and redeem; the database tier
	// saw the create attempt but never the redeem.
	assert.Equal(t, 2, remote.calls)
	assert.Equal(t, 1, database.calls)
}
