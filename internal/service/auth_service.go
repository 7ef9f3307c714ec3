package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"propagentic/inviteservice/internal/config"
	"propagentic/inviteservice/internal/model"
	"propagentic/inviteservice/internal/repository"
	"propagentic/inviteservice/pkg/crypto"
	jwtpkg "propagentic/inviteservice/pkg/jwt"
)

// TokenSet represents a set of tokens returned after authentication.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type AuthService interface {
	Register(ctx context.Context, email, password string, role model.UserRole) (*model.User, error)
	Login(ctx context.Context, email, password string) (*TokenSet, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenSet, error)
	Logout(ctx context.Context, refreshToken string) error
}

type authService struct {
	userRepo   repository.UserRepository
	stateStore repository.StateStore
	jwtManager *jwtpkg.Manager
	cfg        config.AuthConfig

	// sleep is time.Sleep in production; tests inject a recorder so the
	// backoff sequence can be asserted without waiting real seconds.
	sleep func(time.Duration)
}

func NewAuthService(
	userRepo repository.UserRepository,
	stateStore repository.StateStore,
	jwtManager *jwtpkg.Manager,
	cfg config.AuthConfig,
) AuthService {
	return &authService{
		userRepo:   userRepo,
		stateStore: stateStore,
		jwtManager: jwtManager,
		cfg:        cfg,
		sleep:      time.Sleep,
	}
}

func (s *authService) Register(ctx context.Context, email, password string, role model.UserRole) (*model.User, error) {
	switch role {
	case model.RoleLandlord, model.RoleTenant, model.RoleContractor:
	default:
		return nil, ErrInvalidRole
	}

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check existing email: %w", err)
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       model.UserStatusActive,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*TokenSet, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !crypto.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if user.Status != model.UserStatusActive {
		return nil, ErrUserDisabled
	}

	return s.issueTokens(ctx, user.ID, user.Role, user.Email)
}

// Refresh rotates a refresh token. State store reads and writes are retried
// with exponential backoff, capped at cfg.MaxRefreshAttempts; an invalid or
// revoked token is rejected immediately and never retried.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenSet, error) {
	claims, err := s.jwtManager.Validate(refreshToken)
	if err != nil || claims.TokenType != jwtpkg.TokenTypeRefresh {
		return nil, ErrRefreshTokenInvalid
	}

	var known bool
	err = s.withRetry(func() error {
		var storeErr error
		known, storeErr = s.stateStore.Exists(ctx, repository.RefreshTokenKey(claims.ID))
		return storeErr
	})
	if err != nil {
		return nil, ErrAuthRefreshFailed
	}
	if !known {
		return nil, ErrRefreshTokenInvalid
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrRefreshTokenInvalid
	}

	if err := s.withRetry(func() error {
		return s.stateStore.Delete(ctx, repository.RefreshTokenKey(claims.ID))
	}); err != nil {
		return nil, ErrAuthRefreshFailed
	}

	return s.issueTokens(ctx, userID, model.UserRole(claims.Role), claims.Email)
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.jwtManager.Validate(refreshToken)
	if err != nil || claims.TokenType != jwtpkg.TokenTypeRefresh {
		return ErrRefreshTokenInvalid
	}
	return s.stateStore.Delete(ctx, repository.RefreshTokenKey(claims.ID))
}

func (s *authService) issueTokens(ctx context.Context, userID uuid.UUID, role model.UserRole, email string) (*TokenSet, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(userID, string(role), email)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshToken, refreshClaims, err := s.jwtManager.GenerateRefreshToken(userID, string(role), email)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	ttl := time.Until(refreshClaims.ExpiresAt.Time)
	if err := s.withRetry(func() error {
		return s.stateStore.Set(ctx, repository.RefreshTokenKey(refreshClaims.ID), []byte(userID.String()), ttl)
	}); err != nil {
		return nil, ErrAuthRefreshFailed
	}

	return &TokenSet{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtManager.AccessTokenTTL().Seconds()),
	}, nil
}

// withRetry runs op up to MaxRefreshAttempts times, sleeping
// min(base*2^(n-1), max) between attempts.
func (s *authService) withRetry(op func() error) error {
	var err error
	for attempt := 1; attempt <= s.cfg.MaxRefreshAttempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt < s.cfg.MaxRefreshAttempts {
			s.sleep(backoffDelay(attempt, s.cfg.RefreshBaseDelay, s.cfg.RefreshMaxDelay))
		}
	}
	return err
}

func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	delay := base << (attempt - 1)
	if delay > max {
		return max
	}
	return delay
}
