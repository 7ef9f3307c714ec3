package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"propagentic/inviteservice/internal/model"
	"propagentic/inviteservice/pkg/crypto"
)

// CodePolicy controls how the database and local tiers mint codes.
type CodePolicy struct {
	Length      int
	MaxAttempts int
}

type pgInviteRepository struct {
	db     *gorm.DB
	policy CodePolicy
}

func NewPGInviteRepository(db *gorm.DB, policy CodePolicy) InviteRepository {
	return &pgInviteRepository{db: db, policy: policy}
}

func (r *pgInviteRepository) Create(ctx context.Context, spec CodeSpec) (*model.InviteCode, error) {
	for attempt := 0; attempt < r.policy.MaxAttempts; attempt++ {
		code, err := crypto.GenerateInviteCode(r.policy.Length)
		if err != nil {
			return nil, err
		}

		inviteCode := &model.InviteCode{
			Code:       code,
			PropertyID: spec.PropertyID,
			LandlordID: spec.LandlordID,
			UnitID:     spec.UnitID,
			Email:      strings.ToLower(spec.Email),
			Status:     model.InviteStatusActive,
			ExpiresAt:  spec.ExpiresAt,
		}

		err = r.db.WithContext(ctx).Create(inviteCode).Error
		if err == nil {
			return inviteCode, nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			continue // collision, redraw
		}
		return nil, wrapPGError(err)
	}
	return nil, ErrGenerationExhausted
}

func (r *pgInviteRepository) GetByCode(ctx context.Context, code string) (*model.InviteCode, error) {
	var inviteCode model.InviteCode
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&inviteCode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, wrapPGError(err)
	}
	return &inviteCode, nil
}

// Redeem marks the code used and creates the property association in one
// transaction, locking the code row so concurrent redemptions serialize.
// A code is never consumed without its association, and a second attempt
// always sees the used status rather than a second association.
func (r *pgInviteRepository) Redeem(ctx context.Context, code, tenantID, tenantEmail string) (*Redemption, error) {
	var result Redemption

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inviteCode model.InviteCode
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ?", code).
			First(&inviteCode).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCodeNotFound
			}
			return wrapPGError(err)
		}

		now := time.Now()
		if err := checkRedeemable(&inviteCode, tenantEmail, now); err != nil {
			return err
		}

		inviteCode.Status = model.InviteStatusUsed
		inviteCode.Used = true
		inviteCode.UsedAt = &now
		inviteCode.UsedBy = tenantID
		if err := tx.Save(&inviteCode).Error; err != nil {
			return wrapPGError(err)
		}

		assoc := &model.PropertyAssociation{
			TenantID:   tenantID,
			PropertyID: inviteCode.PropertyID,
			UnitID:     inviteCode.UnitID,
			InviteCode: inviteCode.Code,
			Status:     "active",
			StartDate:  now,
		}
		if err := tx.Create(assoc).Error; err != nil {
			// The partial unique index on active associations fires when the
			// tenant already holds this property unit. That is a decision by
			// a healthy tier, not an outage; the transaction rolls back and
			// the code stays active.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyAssociated
			}
			return wrapPGError(err)
		}

		result.Code = &inviteCode
		result.Association = assoc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *pgInviteRepository) Revoke(ctx context.Context, code, landlordID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inviteCode model.InviteCode
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ? AND landlord_id = ?", code, landlordID).
			First(&inviteCode).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCodeNotFound
			}
			return wrapPGError(err)
		}

		switch inviteCode.EffectiveStatus(time.Now()) {
		case model.InviteStatusUsed:
			return ErrCodeAlreadyUsed
		case model.InviteStatusRevoked:
			return ErrCodeRevoked
		}

		inviteCode.Status = model.InviteStatusRevoked
		return wrapPGError(tx.Save(&inviteCode).Error)
	})
}

func (r *pgInviteRepository) ListByLandlord(ctx context.Context, landlordID string) ([]model.InviteCode, error) {
	var codes []model.InviteCode
	if err := r.db.WithContext(ctx).
		Where("landlord_id = ?", landlordID).
		Order("created_at DESC").
		Find(&codes).Error; err != nil {
		return nil, wrapPGError(err)
	}
	return codes, nil
}

// checkRedeemable enforces the redemption preconditions against a found
// record. Evaluation order is used, then revoked, then expiry, then the
// email restriction.
func checkRedeemable(c *model.InviteCode, tenantEmail string, now time.Time) error {
	switch c.EffectiveStatus(now) {
	case model.InviteStatusUsed:
		return ErrCodeAlreadyUsed
	case model.InviteStatusRevoked:
		return ErrCodeRevoked
	case model.InviteStatusExpired:
		return ErrCodeExpired
	}
	if c.Email != "" && !strings.EqualFold(c.Email, tenantEmail) {
		return ErrEmailRestricted
	}
	return nil
}

// wrapPGError converts infrastructure failures into ErrTierUnavailable so
// the orchestrator falls through; nil and definitive errors pass unchanged.
func wrapPGError(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(ErrTierUnavailable, err)
}
