package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"propagentic/inviteservice/internal/model"
	"propagentic/inviteservice/pkg/crypto"
)

// memoryInviteRepository is the last-resort tier. Its lifetime is the
// process lifetime: nothing written here survives a restart, and nothing
// here is visible to the remote or database tiers. Construct one per
// process and inject it; it is deliberately not a package singleton.
type memoryInviteRepository struct {
	mu     sync.RWMutex
	codes  map[string]*model.InviteCode
	assocs map[string]*model.PropertyAssociation
	policy CodePolicy
}

func NewMemoryInviteRepository(policy CodePolicy) InviteRepository {
	return &memoryInviteRepository{
		codes:  make(map[string]*model.InviteCode),
		assocs: make(map[string]*model.PropertyAssociation),
		policy: policy,
	}
}

func (r *memoryInviteRepository) Create(_ context.Context, spec CodeSpec) (*model.InviteCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for attempt := 0; attempt < r.policy.MaxAttempts; attempt++ {
		code, err := crypto.GenerateInviteCode(r.policy.Length)
		if err != nil {
			return nil, err
		}
		if _, exists := r.codes[code]; exists {
			continue
		}

		now := time.Now()
		inviteCode := &model.InviteCode{
			ID:         uuid.New(),
			Code:       code,
			PropertyID: spec.PropertyID,
			LandlordID: spec.LandlordID,
			UnitID:     spec.UnitID,
			Email:      strings.ToLower(spec.Email),
			Status:     model.InviteStatusActive,
			CreatedAt:  now,
			ExpiresAt:  spec.ExpiresAt,
		}
		r.codes[code] = inviteCode

		copied := *inviteCode
		return &copied, nil
	}
	return nil, ErrGenerationExhausted
}

func (r *memoryInviteRepository) GetByCode(_ context.Context, code string) (*model.InviteCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inviteCode, ok := r.codes[code]
	if !ok {
		return nil, ErrCodeNotFound
	}
	copied := *inviteCode
	return &copied, nil
}

func (r *memoryInviteRepository) Redeem(_ context.Context, code, tenantID, tenantEmail string) (*Redemption, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inviteCode, ok := r.codes[code]
	if !ok {
		return nil, ErrCodeNotFound
	}

	now := time.Now()
	if err := checkRedeemable(inviteCode, tenantEmail, now); err != nil {
		return nil, err
	}

	// Same uniqueness rule the database tier enforces with its partial
	// index: the code is left active when the tenant already holds the unit.
	for _, a := range r.assocs {
		if a.TenantID == tenantID && a.PropertyID == inviteCode.PropertyID &&
			a.UnitID == inviteCode.UnitID && a.Status == "active" {
			return nil, ErrAlreadyAssociated
		}
	}

	inviteCode.Status = model.InviteStatusUsed
	inviteCode.Used = true
	inviteCode.UsedAt = &now
	inviteCode.UsedBy = tenantID

	assoc := &model.PropertyAssociation{
		ID:         uuid.New(),
		TenantID:   tenantID,
		PropertyID: inviteCode.PropertyID,
		UnitID:     inviteCode.UnitID,
		InviteCode: inviteCode.Code,
		Status:     "active",
		StartDate:  now,
		CreatedAt:  now,
	}
	r.assocs[code] = assoc

	copiedCode := *inviteCode
	copiedAssoc := *assoc
	return &Redemption{Code: &copiedCode, Association: &copiedAssoc}, nil
}

func (r *memoryInviteRepository) Revoke(_ context.Context, code, landlordID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inviteCode, ok := r.codes[code]
	if !ok || inviteCode.LandlordID != landlordID {
		return ErrCodeNotFound
	}

	switch inviteCode.EffectiveStatus(time.Now()) {
	case model.InviteStatusUsed:
		return ErrCodeAlreadyUsed
	case model.InviteStatusRevoked:
		return ErrCodeRevoked
	}

	inviteCode.Status = model.InviteStatusRevoked
	return nil
}

func (r *memoryInviteRepository) ListByLandlord(_ context.Context, landlordID string) ([]model.InviteCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var codes []model.InviteCode
	for _, c := range r.codes {
		if c.LandlordID == landlordID {
			codes = append(codes, *c)
		}
	}
	sort.Slice(codes, func(i, j int) bool {
		return codes[i].CreatedAt.After(codes[j].CreatedAt)
	})
	return codes, nil
}
