package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"propagentic/inviteservice/internal/model"
	"propagentic/inviteservice/internal/repository"
	"propagentic/inviteservice/pkg/response"
)

type PropertyHandler struct {
	propertyRepo repository.PropertyRepository
}

func NewPropertyHandler(propertyRepo repository.PropertyRepository) *PropertyHandler {
	return &PropertyHandler{propertyRepo: propertyRepo}
}

type CreatePropertyRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
}

func (h *PropertyHandler) Create(c *gin.Context) {
	landlordID, err := userIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}

	var req CreatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	property := &model.Property{
		ID:         uuid.New().String(),
		Name:       req.Name,
		Address:    req.Address,
		LandlordID: landlordID,
	}
	if err := h.propertyRepo.Create(c.Request.Context(), property); err != nil {
		response.InternalError(c, "failed to create property")
		return
	}

	response.Success(c, property)
}

func (h *PropertyHandler) List(c *gin.Context) {
	landlordID, err := userIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}

	properties, err := h.propertyRepo.ListByLandlord(c.Request.Context(), landlordID)
	if err != nil {
		response.InternalError(c, "failed to list properties")
		return
	}

	response.Success(c, properties)
}
