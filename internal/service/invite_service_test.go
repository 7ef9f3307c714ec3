package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"propagentic/inviteservice/internal/config"
	"propagentic/inviteservice/internal/model"
	"propagentic/inviteservice/internal/repository"
)

// stubInviteRepo lets a test script exact tier answers.
type stubInviteRepo struct {
	code      *model.InviteCode
	createErr error
	getErr    error
}

func (s *stubInviteRepo) Create(context.Context, repository.CodeSpec) (*model.InviteCode, error) {
	return s.code, s.createErr
}

func (s *stubInviteRepo) GetByCode(context.Context, string) (*model.InviteCode, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.code, nil
}

func (s *stubInviteRepo) Redeem(context.Context, string, string, string) (*repository.Redemption, error) {
	return nil, repository.ErrCodeNotFound
}

func (s *stubInviteRepo) Revoke(context.Context, string, string) error { return nil }

func (s *stubInviteRepo) ListByLandlord(context.Context, string) ([]model.InviteCode, error) {
	return nil, nil
}

type fakePropertyRepo struct {
	properties map[string]*model.Property
}

func (f *fakePropertyRepo) Create(_ context.Context, p *model.Property) error {
	f.properties[p.ID] = p
	return nil
}

func (f *fakePropertyRepo) GetByID(_ context.Context, id string) (*model.Property, error) {
	p, ok := f.properties[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (f *fakePropertyRepo) ListByLandlord(_ context.Context, landlordID string) ([]model.Property, error) {
	var out []model.Property
	for _, p := range f.properties {
		if p.LandlordID == landlordID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func testInviteConfig() config.InviteConfig {
	return config.InviteConfig{
		CodeLength:          8,
		ExpirationDays:      7,
		MaxGenerateAttempts: 10,
	}
}

// newLocalOnlyService builds a service whose only tier is the in-process
// map, the configuration every durable tier has failed over to.
func newLocalOnlyService(t *testing.T, cfg config.InviteConfig) (InviteService, *fakePropertyRepo) {
	t.Helper()
	tiers := repository.NewTieredInviteRepository(zap.NewNop())
	tiers.AddTier(repository.TierLocal, repository.NewMemoryInviteRepository(repository.CodePolicy{
		Length:      cfg.CodeLength,
		MaxAttempts: cfg.MaxGenerateAttempts,
	}))
	props := &fakePropertyRepo{properties: map[string]*model.Property{
		"prop-1": {ID: "prop-1", Name: "Maple Court", LandlordID: "landlord-1"},
	}}
	return NewInviteService(tiers, props, cfg, zap.NewNop()), props
}

func newStubService(stub *stubInviteRepo, cfg config.InviteConfig) InviteService {
	tiers := repository.NewTieredInviteRepository(zap.NewNop())
	tiers.AddTier(repository.TierRemote, stub)
	return NewInviteService(tiers, nil, cfg, zap.NewNop())
}

func TestGenerateRequiresProperty(t *testing.T) {
	svc, _ := newLocalOnlyService(t, testInviteConfig())

	_, err := svc.Generate(context.Background(), "landlord-1", "  ", GenerateOptions{})
	assert.ErrorIs(t, err, ErrPropertyRequired)
}

func TestGenerateRejectsForeignProperty(t *testing.T) {
	svc, _ := newLocalOnlyService(t, testInviteConfig())

	_, err := svc.Generate(context.Background(), "landlord-2", "prop-1", GenerateOptions{})
	assert.ErrorIs(t, err, ErrNotPropertyOwner)
}

func TestGenerateLocalTierTagsAndWarns(t *testing.T) {
	svc, _ := newLocalOnlyService(t, testInviteConfig())

	result, err := svc.Generate(context.Background(), "landlord-1", "prop-1", GenerateOptions{})
	require.NoError(t, err)
	assert.Len(t, result.Code, 8)
	assert.Equal(t, "local", result.Mode)
	assert.Equal(t, MsgDegradedWrite, result.Warning)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 7), result.ExpiresAt, time.Minute)
}

func TestGenerateValidateRoundTrip(t *testing.T) {
	svc, _ := newLocalOnlyService(t, testInviteConfig())
	ctx := context.Background()

	generated, err := svc.Generate(ctx, "landlord-1", "prop-1", GenerateOptions{})
	require.NoError(t, err)

	result, err := svc.Validate(ctx, generated.Code)
	require.NoError(t, err)
	assert.True(t, result.IsValid)
	assert.Equal(t, "prop-1", result.PropertyID)
	assert.Equal(t, "Maple Court", result.PropertyName)
}

func TestValidateNormalizesCase(t *testing.T) {
	svc, _ := newLocalOnlyService(t, testInviteConfig())
	ctx := context.Background()

	generated, err := svc.Generate(ctx, "landlord-1", "prop-1", GenerateOptions{})
	require.NoError(t, err)

	result, err := svc.Validate(ctx, "  "+strings.ToLower(generated.Code)+"  ")
	require.NoError(t, err)
	assert.True(t, result.IsValid)
}

func TestValidateShortCodeFailsFast(t *testing.T) {
	// Every tier is down, so reaching persistence would surface an error;
	// a clean rejection proves short codes fail before any I/O.
	svc := newStubService(&stubInviteRepo{getErr: repository.ErrTierUnavailable}, testInviteConfig())

	result, err := svc.Validate(context.Background(), "AB1")
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Equal(t, MsgInvalidFormat, result.Message)
}

func TestValidateUnknownCode(t *testing.T) {
	svc, _ := newLocalOnlyService(t, testInviteConfig())

	result, err := svc.Validate(context.Background(), "NOSUCHCD")
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Equal(t, MsgNotFound, result.Message)
}

func TestValidateExpiredRegardlessOfStatusField(t *testing.T) {
	stub := &stubInviteRepo{code: &model.InviteCode{
		Code:       "AB23XQ9P",
		PropertyID: "prop-1",
		Status:     model.InviteStatusActive, // stale status field
		ExpiresAt:  time.Now().Add(-time.Hour),
	}}
	svc := newStubService(stub, testInviteConfig())

	result, err := svc.Validate(context.Background(), "AB23XQ9P")
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Equal(t, MsgExpired, result.Message)
}

func TestValidateLegacyUsedBoolean(t *testing.T) {
	stub := &stubInviteRepo{code: &model.InviteCode{
		Code:      "AB23XQ9P",
		Status:    model.InviteStatusActive,
		Used:      true, // legacy representation
		ExpiresAt: time.Now().Add(time.Hour),
	}}
	svc := newStubService(stub, testInviteConfig())

	result, err := svc.Validate(context.Background(), "AB23XQ9P")
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Equal(t, MsgAlreadyUsed, result.Message)
}

func TestRedeemLifecycle(t *testing.T) {
	svc, _ := newLocalOnlyService(t, testInviteConfig())
	ctx := context.Background()

	generated, err := svc.Generate(ctx, "landlord-1", "prop-1", GenerateOptions{})
	require.NoError(t, err)

	redeemed, err := svc.Redeem(ctx, generated.Code, "t-1", "")
	require.NoError(t, err)
	assert.True(t, redeemed.Success)
	assert.Equal(t, "prop-1", redeemed.PropertyID)
	assert.Equal(t, MsgDegradedWrite, redeemed.Warning)

	// The code is consumed: validation now reports it as used.
	result, err := svc.Validate(ctx, generated.Code)
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Contains(t, result.Message, "already been used")

	// Redeeming again must fail, never create a second association.
	again, err := svc.Redeem(ctx, generated.Code, "t-2", "")
	require.NoError(t, err)
	assert.False(t, again.Success)
	assert.Equal(t, MsgAlreadyUsed, again.Message)
}

func TestRedeemEmailRestriction(t *testing.T) {
	svc, _ := newLocalOnlyService(t, testInviteConfig())
	ctx := context.Background()

	generated, err := svc.Generate(ctx, "landlord-1", "prop-1", GenerateOptions{
		Email: "invited@example.com",
	})
	require.NoError(t, err)

	rejected, err := svc.Redeem(ctx, generated.Code, "t-1", "stranger@example.com")
	require.NoError(t, err)
	assert.False(t, rejected.Success)
	assert.Equal(t, MsgEmailRestricted, rejected.Message)

	accepted, err := svc.Redeem(ctx, generated.Code, "t-1", "invited@example.com")
	require.NoError(t, err)
	assert.True(t, accepted.Success)
}

func TestRedeemSecondCodeForSamePropertyRejected(t *testing.T) {
	svc, _ := newLocalOnlyService(t, testInviteConfig())
	ctx := context.Background()

	first, err := svc.Generate(ctx, "landlord-1", "prop-1", GenerateOptions{})
	require.NoError(t, err)
	second, err := svc.Generate(ctx, "landlord-1", "prop-1", GenerateOptions{})
	require.NoError(t, err)

	redeemed, err := svc.Redeem(ctx, first.Code, "t-1", "")
	require.NoError(t, err)
	require.True(t, redeemed.Success)

	// The tenant already holds this property: a clean rejection with its
	// own message, never an infrastructure error.
	result, err := svc.Redeem(ctx, second.Code, "t-1", "")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, MsgAlreadyAssociated, result.Message)

	// The rejected code stays valid for another tenant.
	other, err := svc.Redeem(ctx, second.Code, "t-2", "")
	require.NoError(t, err)
	assert.True(t, other.Success)
}

func TestRevokedCodeCannotBeRedeemed(t *testing.T) {
	svc, _ := newLocalOnlyService(t, testInviteConfig())
	ctx := context.Background()

	generated, err := svc.Generate(ctx, "landlord-1", "prop-1", GenerateOptions{})
	require.NoError(t, err)

	revoked, err := svc.Revoke(ctx, "landlord-1", generated.Code)
	require.NoError(t, err)
	assert.True(t, revoked.Success)

	result, err := svc.Redeem(ctx, generated.Code, "t-1", "")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, MsgRevoked, result.Message)
}

func TestTestCodeGatedByConfig(t *testing.T) {
	cfg := testInviteConfig()
	cfg.TestCode = "TESTCODE"
	cfg.TestPropertyID = "test-property-1"
	cfg.TestPropertyName = "Test Property"

	// Disabled (the production default): the literal code is just another
	// unknown code.
	svc, _ := newLocalOnlyService(t, cfg)
	result, err := svc.Validate(context.Background(), "TESTCODE")
	require.NoError(t, err)
	assert.False(t, result.IsValid)

	// Enabled: it validates against the synthetic property without
	// touching any tier, and redemption does not consume anything.
	cfg.TestCodeEnabled = true
	svc, _ = newLocalOnlyService(t, cfg)

	result, err = svc.Validate(context.Background(), "testcode")
	require.NoError(t, err)
	assert.True(t, result.IsValid)
	assert.Equal(t, "test-property-1", result.PropertyID)
	assert.Equal(t, "Test Property", result.PropertyName)

	redeemed, err := svc.Redeem(context.Background(), "TESTCODE", "t-1", "")
	require.NoError(t, err)
	assert.True(t, redeemed.Success)

	again, err := svc.Redeem(context.Background(), "TESTCODE", "t-2", "")
	require.NoError(t, err)
	assert.True(t, again.Success)
}

func TestGenerateExhaustionSurfaces(t *testing.T) {
	svc := newStubService(&stubInviteRepo{createErr: repository.ErrGenerationExhausted}, testInviteConfig())

	_, err := svc.Generate(context.Background(), "landlord-1", "prop-1", GenerateOptions{})
	assert.ErrorIs(t, err, ErrGenerationExhausted)
}
