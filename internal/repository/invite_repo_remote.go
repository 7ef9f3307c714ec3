package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"propagentic/inviteservice/internal/model"
)

// remoteInviteRepository is the first tier: a managed function endpoint
// speaking JSON. Every response carries a success flag and a message; a
// transport failure or 5xx maps to ErrTierUnavailable so the orchestrator
// falls through, while an answered request is definitive.
type remoteInviteRepository struct {
	baseURL string
	client  *http.Client
}

func NewRemoteInviteRepository(baseURL string, timeout time.Duration) InviteRepository {
	return &remoteInviteRepository{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type remoteCode struct {
	Code       string     `json:"code"`
	PropertyID string     `json:"propertyId"`
	LandlordID string     `json:"landlordId"`
	UnitID     string     `json:"unitId,omitempty"`
	Email      string     `json:"email,omitempty"`
	Status     string     `json:"status"`
	Used       bool       `json:"used"`
	CreatedAt  time.Time  `json:"createdAt"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	UsedAt     *time.Time `json:"usedAt,omitempty"`
	UsedBy     string     `json:"usedBy,omitempty"`
}

type remoteResponse struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	Reason     string      `json:"reason,omitempty"`
	InviteCode *remoteCode `json:"inviteCode,omitempty"`
	PropertyID string      `json:"propertyId,omitempty"`
	UnitID     string      `json:"unitId,omitempty"`
}

func (r *remoteInviteRepository) Create(ctx context.Context, spec CodeSpec) (*model.InviteCode, error) {
	resp, err := r.call(ctx, "generateInviteCode", map[string]any{
		"propertyId":     spec.PropertyID,
		"landlordId":     spec.LandlordID,
		"unitId":         spec.UnitID,
		"email":          spec.Email,
		"expirationDays": spec.ExpirationDays,
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success || resp.InviteCode == nil {
		return nil, reasonToError(resp.Reason, resp.Message)
	}
	return resp.InviteCode.toModel(), nil
}

func (r *remoteInviteRepository) GetByCode(ctx context.Context, code string) (*model.InviteCode, error) {
	resp, err := r.call(ctx, "validateInviteCode", map[string]any{"code": code})
	if err != nil {
		return nil, err
	}
	// The endpoint returns the record even for used/expired codes so the
	// caller can evaluate status uniformly across tiers. Only a missing
	// record is NotFound.
	if resp.InviteCode == nil {
		return nil, ErrCodeNotFound
	}
	return resp.InviteCode.toModel(), nil
}

func (r *remoteInviteRepository) Redeem(ctx context.Context, code, tenantID, tenantEmail string) (*Redemption, error) {
	resp, err := r.call(ctx, "redeemInviteCode", map[string]any{
		"code":        code,
		"tenantId":    tenantID,
		"tenantEmail": tenantEmail,
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, reasonToError(resp.Reason, resp.Message)
	}

	now := time.Now()
	redeemed := &model.InviteCode{
		Code:       code,
		PropertyID: resp.PropertyID,
		UnitID:     resp.UnitID,
		Status:     model.InviteStatusUsed,
		Used:       true,
		UsedAt:     &now,
		UsedBy:     tenantID,
	}
	if resp.InviteCode != nil {
		redeemed = resp.InviteCode.toModel()
	}
	// The remote function creates the association server-side as part of
	// the same redemption call.
	assoc := &model.PropertyAssociation{
		TenantID:   tenantID,
		PropertyID: redeemed.PropertyID,
		UnitID:     redeemed.UnitID,
		InviteCode: code,
		Status:     "active",
		StartDate:  now,
	}
	return &Redemption{Code: redeemed, Association: assoc}, nil
}

func (r *remoteInviteRepository) Revoke(ctx context.Context, code, landlordID string) error {
	resp, err := r.call(ctx, "revokeInviteCode", map[string]any{
		"code":       code,
		"landlordId": landlordID,
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return reasonToError(resp.Reason, resp.Message)
	}
	return nil
}

// ListByLandlord is not part of the remote function surface; report the
// tier unavailable so the orchestrator consults the database instead.
func (r *remoteInviteRepository) ListByLandlord(context.Context, string) ([]model.InviteCode, error) {
	return nil, ErrTierUnavailable
}

func (r *remoteInviteRepository) call(ctx context.Context, fn string, payload map[string]any) (*remoteResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/"+fn, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := r.client.Do(req)
	if err != nil {
		return nil, errors.Join(ErrTierUnavailable, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= http.StatusInternalServerError {
		return nil, errors.Join(ErrTierUnavailable,
			fmt.Errorf("remote function %s: status %d", fn, httpResp.StatusCode))
	}

	var resp remoteResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, errors.Join(ErrTierUnavailable,
			fmt.Errorf("remote function %s: decode response: %w", fn, err))
	}
	return &resp, nil
}

func (c *remoteCode) toModel() *model.InviteCode {
	return &model.InviteCode{
		Code:       c.Code,
		PropertyID: c.PropertyID,
		LandlordID: c.LandlordID,
		UnitID:     c.UnitID,
		Email:      c.Email,
		Status:     model.InviteCodeStatus(c.Status),
		Used:       c.Used,
		CreatedAt:  c.CreatedAt,
		ExpiresAt:  c.ExpiresAt,
		UsedAt:     c.UsedAt,
		UsedBy:     c.UsedBy,
	}
}

// reasonToError maps the endpoint's machine-readable reason onto the shared
// sentinel errors, falling back to the human message when no reason is set.
func reasonToError(reason, message string) error {
	switch reason {
	case "not_found":
		return ErrCodeNotFound
	case "already_used":
		return ErrCodeAlreadyUsed
	case "revoked":
		return ErrCodeRevoked
	case "expired":
		return ErrCodeExpired
	case "email_restricted":
		return ErrEmailRestricted
	}
	if message == "" {
		message = "remote function rejected the request"
	}
	return errors.New(message)
}
