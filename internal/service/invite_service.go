package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"propagentic/inviteservice/internal/config"
	"propagentic/inviteservice/internal/model"
	"propagentic/inviteservice/internal/repository"
)

const minCodeLength = 6

type GenerateOptions struct {
	UnitID         string
	Email          string
	ExpirationDays int
}

type GenerateResult struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
	// Mode reports which persistence tier satisfied the write so callers
	// can warn when durability is degraded.
	Mode    string `json:"mode"`
	Warning string `json:"warning,omitempty"`
}

type ValidationResult struct {
	IsValid         bool   `json:"is_valid"`
	Message         string `json:"message"`
	PropertyID      string `json:"property_id,omitempty"`
	PropertyName    string `json:"property_name,omitempty"`
	UnitID          string `json:"unit_id,omitempty"`
	RestrictedEmail string `json:"restricted_email,omitempty"`
}

type RevokeResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type RedeemResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	PropertyID string `json:"property_id,omitempty"`
	UnitID     string `json:"unit_id,omitempty"`
	Warning    string `json:"warning,omitempty"`
}

type InviteService interface {
	Generate(ctx context.Context, landlordID, propertyID string, opts GenerateOptions) (*GenerateResult, error)
	Validate(ctx context.Context, code string) (*ValidationResult, error)
	Redeem(ctx context.Context, code, tenantID, tenantEmail string) (*RedeemResult, error)
	Revoke(ctx context.Context, landlordID, code string) (*RevokeResult, error)
	ListByLandlord(ctx context.Context, landlordID string) ([]model.InviteCode, error)
}

type inviteService struct {
	tiers        *repository.TieredInviteRepository
	propertyRepo repository.PropertyRepository
	cfg          config.InviteConfig
	logger       *zap.Logger
}

func NewInviteService(
	tiers *repository.TieredInviteRepository,
	propertyRepo repository.PropertyRepository,
	cfg config.InviteConfig,
	logger *zap.Logger,
) InviteService {
	return &inviteService{
		tiers:        tiers,
		propertyRepo: propertyRepo,
		cfg:          cfg,
		logger:       logger,
	}
}

func (s *inviteService) Generate(ctx context.Context, landlordID, propertyID string, opts GenerateOptions) (*GenerateResult, error) {
	if strings.TrimSpace(propertyID) == "" {
		return nil, ErrPropertyRequired
	}

	// Ownership check is best effort: if the property store is unreachable
	// the generation still proceeds (the tiers handle availability), but a
	// positive mismatch is always rejected.
	if s.propertyRepo != nil {
		if property, err := s.propertyRepo.GetByID(ctx, propertyID); err == nil && property.LandlordID != landlordID {
			return nil, ErrNotPropertyOwner
		}
	}

	days := opts.ExpirationDays
	if days <= 0 {
		days = s.cfg.ExpirationDays
	}
	now := time.Now()

	spec := repository.CodeSpec{
		PropertyID:     propertyID,
		LandlordID:     landlordID,
		UnitID:         opts.UnitID,
		Email:          opts.Email,
		ExpirationDays: days,
		ExpiresAt:      now.AddDate(0, 0, days),
	}

	code, tier, err := s.tiers.Create(ctx, spec)
	if err != nil {
		if errors.Is(err, repository.ErrGenerationExhausted) {
			return nil, ErrGenerationExhausted
		}
		return nil, fmt.Errorf("create invite code: %w", err)
	}

	result := &GenerateResult{
		Code:      code.Code,
		ExpiresAt: code.ExpiresAt,
		Mode:      string(tier),
	}
	if tier == repository.TierLocal {
		result.Warning = MsgDegradedWrite
		s.logger.Warn("invite code written to non-durable local tier",
			zap.String("property_id", propertyID))
	}
	return result, nil
}

func (s *inviteService) Validate(ctx context.Context, code string) (*ValidationResult, error) {
	normalized, ok := normalizeCode(code)
	if !ok {
		return &ValidationResult{IsValid: false, Message: MsgInvalidFormat}, nil
	}

	if result := s.testCodeResult(normalized); result != nil {
		return result, nil
	}

	found, _, err := s.tiers.GetByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			return &ValidationResult{IsValid: false, Message: MsgNotFound}, nil
		}
		return nil, fmt.Errorf("lookup invite code: %w", err)
	}

	switch found.EffectiveStatus(time.Now()) {
	case model.InviteStatusUsed:
		return &ValidationResult{IsValid: false, Message: MsgAlreadyUsed}, nil
	case model.InviteStatusRevoked:
		return &ValidationResult{IsValid: false, Message: MsgRevoked}, nil
	case model.InviteStatusExpired:
		return &ValidationResult{IsValid: false, Message: MsgExpired}, nil
	}

	return &ValidationResult{
		IsValid:         true,
		Message:         MsgValid,
		PropertyID:      found.PropertyID,
		PropertyName:    s.propertyName(ctx, found.PropertyID),
		UnitID:          found.UnitID,
		RestrictedEmail: found.Email,
	}, nil
}

func (s *inviteService) Redeem(ctx context.Context, code, tenantID, tenantEmail string) (*RedeemResult, error) {
	normalized, ok := normalizeCode(code)
	if !ok {
		return &RedeemResult{Success: false, Message: MsgInvalidFormat}, nil
	}

	// The configured test code is reusable and touches no persistence.
	if s.cfg.TestCodeEnabled && normalized == strings.ToUpper(s.cfg.TestCode) {
		return &RedeemResult{
			Success:    true,
			Message:    MsgRedeemed,
			PropertyID: s.cfg.TestPropertyID,
		}, nil
	}

	redemption, tier, err := s.tiers.Redeem(ctx, normalized, tenantID, tenantEmail)
	if err != nil {
		if message, rejected := rejectionMessage(err); rejected {
			return &RedeemResult{Success: false, Message: message}, nil
		}
		return nil, fmt.Errorf("redeem invite code: %w", err)
	}

	result := &RedeemResult{
		Success:    true,
		Message:    MsgRedeemed,
		PropertyID: redemption.Code.PropertyID,
		UnitID:     redemption.Code.UnitID,
	}
	if tier == repository.TierLocal {
		result.Warning = MsgDegradedWrite
		s.logger.Warn("invite code redeemed on non-durable local tier",
			zap.String("code", normalized),
			zap.String("tenant_id", tenantID))
	}
	return result, nil
}

func (s *inviteService) Revoke(ctx context.Context, landlordID, code string) (*RevokeResult, error) {
	normalized, ok := normalizeCode(code)
	if !ok {
		return &RevokeResult{Success: false, Message: MsgInvalidFormat}, nil
	}

	_, err := s.tiers.Revoke(ctx, normalized, landlordID)
	if err != nil {
		if message, rejected := rejectionMessage(err); rejected {
			return &RevokeResult{Success: false, Message: message}, nil
		}
		return nil, fmt.Errorf("revoke invite code: %w", err)
	}
	return &RevokeResult{Success: true, Message: "Invite code revoked"}, nil
}

func (s *inviteService) ListByLandlord(ctx context.Context, landlordID string) ([]model.InviteCode, error) {
	codes, _, err := s.tiers.ListByLandlord(ctx, landlordID)
	if err != nil {
		return nil, fmt.Errorf("list invite codes: %w", err)
	}
	return codes, nil
}

// normalizeCode trims and uppercases the submitted code. Anything shorter
// than six characters is rejected before any persistence tier is consulted.
func normalizeCode(code string) (string, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if len(normalized) < minCodeLength {
		return "", false
	}
	return normalized, true
}

// testCodeResult short-circuits validation for the configured development
// code. Disabled by default; enabling it in production would let anyone
// validate against the synthetic property.
func (s *inviteService) testCodeResult(normalized string) *ValidationResult {
	if !s.cfg.TestCodeEnabled || s.cfg.TestCode == "" {
		return nil
	}
	if normalized != strings.ToUpper(s.cfg.TestCode) {
		return nil
	}
	return &ValidationResult{
		IsValid:      true,
		Message:      MsgValid,
		PropertyID:   s.cfg.TestPropertyID,
		PropertyName: s.cfg.TestPropertyName,
	}
}

func (s *inviteService) propertyName(ctx context.Context, propertyID string) string {
	if s.propertyRepo == nil {
		return ""
	}
	property, err := s.propertyRepo.GetByID(ctx, propertyID)
	if err != nil {
		return ""
	}
	return property.Name
}

// rejectionMessage maps definitive repository rejections onto user-facing
// messages. Infrastructure failures are not rejections and return false.
func rejectionMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, repository.ErrCodeNotFound):
		return MsgNotFound, true
	case errors.Is(err, repository.ErrCodeAlreadyUsed):
		return MsgAlreadyUsed, true
	case errors.Is(err, repository.ErrCodeRevoked):
		return MsgRevoked, true
	case errors.Is(err, repository.ErrCodeExpired):
		return MsgExpired, true
	case errors.Is(err, repository.ErrEmailRestricted):
		return MsgEmailRestricted, true
	case errors.Is(err, repository.ErrAlreadyAssociated):
		return MsgAlreadyAssociated, true
	}
	return "", false
}
