package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propagentic/inviteservice/internal/model"
	"propagentic/inviteservice/pkg/crypto"
)

func testPolicy() CodePolicy {
	return CodePolicy{Length: 8, MaxAttempts: 10}
}

func testSpec() CodeSpec {
	return CodeSpec{
		PropertyID:     "prop-1",
		LandlordID:     "landlord-1",
		ExpirationDays: 7,
		ExpiresAt:      time.Now().AddDate(0, 0, 7),
	}
}

func TestMemoryCreateAndGet(t *testing.T) {
	repo := NewMemoryInviteRepository(testPolicy())
	ctx := context.Background()

	code, err := repo.Create(ctx, testSpec())
	require.NoError(t, err)
	assert.Len(t, code.Code, 8)
	assert.Equal(t, model.InviteStatusActive, code.Status)

	found, err := repo.GetByCode(ctx, code.Code)
	require.NoError(t, err)
	assert.Equal(t, "prop-1", found.PropertyID)
}

func TestMemoryGetUnknownCode(t *testing.T) {
	repo := NewMemoryInviteRepository(testPolicy())

	_, err := repo.GetByCode(context.Background(), "NOSUCHCD")
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestMemoryRedeemIsIdempotentInEffect(t *testing.T) {
	repo := NewMemoryInviteRepository(testPolicy())
	ctx := context.Background()

	code, err := repo.Create(ctx, testSpec())
	require.NoError(t, err)

	redemption, err := repo.Redeem(ctx, code.Code, "tenant-1", "")
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", redemption.Code.UsedBy)
	assert.Equal(t, "prop-1", redemption.Association.PropertyID)
	assert.Equal(t, "active", redemption.Association.Status)

	// A second redemption must fail and must not produce another association.
	_, err = repo.Redeem(ctx, code.Code, "tenant-2", "")
	assert.ErrorIs(t, err, ErrCodeAlreadyUsed)
}

func TestMemoryRedeemEmailRestriction(t *testing.T) {
	repo := NewMemoryInviteRepository(testPolicy())
	ctx := context.Background()

	spec := testSpec()
	spec.Email = "invited@example.com"
	code, err := repo.Create(ctx, spec)
	require.NoError(t, err)

	_, err = repo.Redeem(ctx, code.Code, "tenant-1", "other@example.com")
	assert.ErrorIs(t, err, ErrEmailRestricted)

	// Matching email succeeds, case-insensitively.
	_, err = repo.Redeem(ctx, code.Code, "tenant-1", "Invited@Example.com")
	assert.NoError(t, err)
}

func TestMemoryRedeemRejectsDuplicateAssociation(t *testing.T) {
	repo := NewMemoryInviteRepository(testPolicy())
	ctx := context.Background()

	first, err := repo.Create(ctx, testSpec())
	require.NoError(t, err)
	second, err := repo.Create(ctx, testSpec())
	require.NoError(t, err)

	_, err = repo.Redeem(ctx, first.Code, "tenant-1", "")
	require.NoError(t, err)

	// Same tenant, same property and unit: a definitive rejection, not an
	// outage, and the second code is not consumed by the attempt.
	_, err = repo.Redeem(ctx, second.Code, "tenant-1", "")
	assert.ErrorIs(t, err, ErrAlreadyAssociated)
	assert.NotErrorIs(t, err, ErrTierUnavailable)

	found, err := repo.GetByCode(ctx, second.Code)
	require.NoError(t, err)
	assert.Equal(t, model.InviteStatusActive, found.Status)

	// A code for a different unit of the same property still redeems.
	unitSpec := testSpec()
	unitSpec.UnitID = "unit-4b"
	third, err := repo.Create(ctx, unitSpec)
	require.NoError(t, err)
	_, err = repo.Redeem(ctx, third.Code, "tenant-1", "")
	assert.NoError(t, err)
}

func TestMemoryRedeemExpiredCode(t *testing.T) {
	repo := NewMemoryInviteRepository(testPolicy())
	ctx := context.Background()

	spec := testSpec()
	spec.ExpiresAt = time.Now().Add(-time.Hour)
	code, err := repo.Create(ctx, spec)
	require.NoError(t, err)

	_, err = repo.Redeem(ctx, code.Code, "tenant-1", "")
	assert.ErrorIs(t, err, ErrCodeExpired)
}

func TestMemoryRevoke(t *testing.T) {
	repo := NewMemoryInviteRepository(testPolicy())
	ctx := context.Background()

	code, err := repo.Create(ctx, testSpec())
	require.NoError(t, err)

	require.NoError(t, repo.Revoke(ctx, code.Code, "landlord-1"))

	_, err = repo.Redeem(ctx, code.Code, "tenant-1", "")
	assert.ErrorIs(t, err, ErrCodeRevoked)

	// Revoking someone else's code looks like NotFound.
	other, err := repo.Create(ctx, testSpec())
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Revoke(ctx, other.Code, "landlord-2"), ErrCodeNotFound)
}

func TestMemoryCreateExhaustsRetries(t *testing.T) {
	repo := NewMemoryInviteRepository(CodePolicy{Length: 1, MaxAttempts: 5}).(*memoryInviteRepository)

	// Occupy the entire single-character code space so every draw collides.
	for _, ch := range crypto.CodeAlphabet {
		repo.codes[string(ch)] = &model.InviteCode{Code: string(ch)}
	}

	_, err := repo.Create(context.Background(), testSpec())
	assert.ErrorIs(t, err, ErrGenerationExhausted)
}

func TestMemoryListByLandlord(t *testing.T) {
	repo := NewMemoryInviteRepository(testPolicy())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, testSpec())
		require.NoError(t, err)
	}
	spec := testSpec()
	spec.LandlordID = "landlord-2"
	_, err := repo.Create(ctx, spec)
	require.NoError(t, err)

	codes, err := repo.ListByLandlord(ctx, "landlord-1")
	require.NoError(t, err)
	assert.Len(t, codes, 3)
}
