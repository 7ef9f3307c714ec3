package repository

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"propagentic/inviteservice/internal/model"
)

type tierEntry struct {
	tag  Tier
	repo InviteRepository
}

// TieredInviteRepository runs each logical operation against the configured
// tiers in priority order. Attempts are strictly sequential: a tier fully
// resolves before the next is consulted. The first tier that answers,
// including a definitive rejection like NotFound, short-circuits the rest;
// only ErrTierUnavailable falls through. When every tier is unreachable the
// last tier's error is surfaced; an operation that attempts no tier at all
// reports ErrTierUnavailable rather than a nil result.
//
// Tiers do not replicate to each other. A code written to the local tier
// while the durable tiers were down will not be found by a later lookup
// that reaches them, and is gone after a restart. Callers are told which
// tier served a write so they can warn about degraded durability.
type TieredInviteRepository struct {
	tiers                []tierEntry
	legacyRedeemFallback bool
	logger               *zap.Logger
}

type TieredOption func(*TieredInviteRepository)

// WithLegacyRedeemFallback reproduces the historical behavior where
// redemption skipped the database tier and fell straight from the remote
// function to the local map. Kept behind an option until product decides
// whether the asymmetry with validation was intentional.
func WithLegacyRedeemFallback() TieredOption {
	return func(t *TieredInviteRepository) { t.legacyRedeemFallback = true }
}

func NewTieredInviteRepository(logger *zap.Logger, opts ...TieredOption) *TieredInviteRepository {
	t := &TieredInviteRepository{logger: logger}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// AddTier appends a backend; priority follows insertion order.
func (t *TieredInviteRepository) AddTier(tag Tier, repo InviteRepository) {
	t.tiers = append(t.tiers, tierEntry{tag: tag, repo: repo})
}

func (t *TieredInviteRepository) Create(ctx context.Context, spec CodeSpec) (*model.InviteCode, Tier, error) {
	var lastErr error = ErrTierUnavailable
	lastTier := TierLocal
	for _, entry := range t.tiers {
		code, err := entry.repo.Create(ctx, spec)
		if !tierUnavailable(err) {
			return code, entry.tag, err
		}
		t.logTierFailure("create", entry.tag, err)
		lastErr, lastTier = err, entry.tag
	}
	return nil, lastTier, lastErr
}

func (t *TieredInviteRepository) GetByCode(ctx context.Context, code string) (*model.InviteCode, Tier, error) {
	var lastErr error = ErrTierUnavailable
	lastTier := TierLocal
	for _, entry := range t.tiers {
		found, err := entry.repo.GetByCode(ctx, code)
		if !tierUnavailable(err) {
			return found, entry.tag, err
		}
		t.logTierFailure("lookup", entry.tag, err)
		lastErr, lastTier = err, entry.tag
	}
	return nil, lastTier, lastErr
}

func (t *TieredInviteRepository) Redeem(ctx context.Context, code, tenantID, tenantEmail string) (*Redemption, Tier, error) {
	var lastErr error = ErrTierUnavailable
	lastTier := TierLocal
	for _, entry := range t.tiers {
		if t.legacyRedeemFallback && entry.tag == TierDatabase {
			continue
		}
		redemption, err := entry.repo.Redeem(ctx, code, tenantID, tenantEmail)
		if !tierUnavailable(err) {
			return redemption, entry.tag, err
		}
		t.logTierFailure("redeem", entry.tag, err)
		lastErr, lastTier = err, entry.tag
	}
	return nil, lastTier, lastErr
}

func (t *TieredInviteRepository) Revoke(ctx context.Context, code, landlordID string) (Tier, error) {
	var lastErr error = ErrTierUnavailable
	lastTier := TierLocal
	for _, entry := range t.tiers {
		err := entry.repo.Revoke(ctx, code, landlordID)
		if !tierUnavailable(err) {
			return entry.tag, err
		}
		t.logTierFailure("revoke", entry.tag, err)
		lastErr, lastTier = err, entry.tag
	}
	return lastTier, lastErr
}

func (t *TieredInviteRepository) ListByLandlord(ctx context.Context, landlordID string) ([]model.InviteCode, Tier, error) {
	var lastErr error = ErrTierUnavailable
	lastTier := TierLocal
	for _, entry := range t.tiers {
		codes, err := entry.repo.ListByLandlord(ctx, landlordID)
		if !tierUnavailable(err) {
			return codes, entry.tag, err
		}
		t.logTierFailure("list", entry.tag, err)
		lastErr, lastTier = err, entry.tag
	}
	return nil, lastTier, lastErr
}

func (t *TieredInviteRepository) logTierFailure(op string, tag Tier, err error) {
	if t.logger != nil {
		t.logger.Warn("persistence tier unavailable, falling through",
			zap.String("operation", op),
			zap.String("tier", string(tag)),
			zap.Error(err),
		)
	}
}

func tierUnavailable(err error) bool {
	return err != nil && errors.Is(err, ErrTierUnavailable)
}
