package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"propagentic/inviteservice/internal/service"
	"propagentic/inviteservice/pkg/response"
)

type InviteHandler struct {
	inviteService service.InviteService
}

func NewInviteHandler(inviteService service.InviteService) *InviteHandler {
	return &InviteHandler{inviteService: inviteService}
}

type GenerateInviteRequest struct {
	PropertyID     string `json:"property_id" binding:"required"`
	UnitID         string `json:"unit_id"`
	Email          string `json:"email"`
	ExpirationDays int    `json:"expiration_days"`
}

// Generate creates a new invite code for one of the landlord's properties.
func (h *InviteHandler) Generate(c *gin.Context) {
	landlordID, err := userIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}

	var req GenerateInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.inviteService.Generate(c.Request.Context(), landlordID, req.PropertyID, service.GenerateOptions{
		UnitID:         req.UnitID,
		Email:          req.Email,
		ExpirationDays: req.ExpirationDays,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPropertyRequired):
			response.BadRequest(c, err.Error())
		case errors.Is(err, service.ErrNotPropertyOwner):
			response.Forbidden(c, err.Error())
		case errors.Is(err, service.ErrGenerationExhausted):
			response.InternalError(c, err.Error())
		default:
			response.InternalError(c, "failed to generate invite code")
		}
		return
	}

	response.Success(c, result)
}

type ValidateInviteRequest struct {
	Code string `json:"code" binding:"required"`
}

// Validate checks a submitted code without consuming it. The endpoint is
// public: prospective tenants hold a code before they hold an account.
func (h *InviteHandler) Validate(c *gin.Context) {
	var req ValidateInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.inviteService.Validate(c.Request.Context(), req.Code)
	if err != nil {
		response.InternalError(c, "failed to validate invite code")
		return
	}

	response.Success(c, result)
}

type RedeemInviteRequest struct {
	Code string `json:"code" binding:"required"`
}

// Redeem consumes a code and binds the calling tenant to its property.
func (h *InviteHandler) Redeem(c *gin.Context) {
	claims, err := claimsFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}

	var req RedeemInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.inviteService.Redeem(c.Request.Context(), req.Code, claims.Subject, claims.Email)
	if err != nil {
		response.InternalError(c, "failed to redeem invite code")
		return
	}

	response.Success(c, result)
}

// Revoke transitions one of the landlord's active codes to revoked.
func (h *InviteHandler) Revoke(c *gin.Context) {
	landlordID, err := userIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}

	result, err := h.inviteService.Revoke(c.Request.Context(), landlordID, c.Param("code"))
	if err != nil {
		response.InternalError(c, "failed to revoke invite code")
		return
	}

	response.Success(c, result)
}

// List returns all codes issued by the calling landlord.
func (h *InviteHandler) List(c *gin.Context) {
	landlordID, err := userIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}

	codes, err := h.inviteService.ListByLandlord(c.Request.Context(), landlordID)
	if err != nil {
		response.InternalError(c, "failed to list invite codes")
		return
	}

	response.Success(c, codes)
}
