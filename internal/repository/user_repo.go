package repository

import (
	"context"

	"github.com/google/uuid"

	"propagentic/inviteservice/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

type PropertyRepository interface {
	Create(ctx context.Context, property *model.Property) error
	GetByID(ctx context.Context, id string) (*model.Property, error)
	ListByLandlord(ctx context.Context, landlordID string) ([]model.Property, error)
}
