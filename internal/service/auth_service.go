package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ochre-shop/internal/auth"
	"ochre-shop/internal/model"
	"ochre-shop/internal/repository"

	"github.com/rs/zerolog"
)

// authService implements AuthService.
type authService struct {
	userRepo repository.UserRepository
	carts    CartService
	tokens   *auth.TokenIssuer
	logger   zerolog.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(userRepo repository.UserRepository, carts CartService, tokens *auth.TokenIssuer, logger zerolog.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		carts:    carts,
		tokens:   tokens,
		logger:   logger.With().Str("service", "auth").Logger(),
	}
}

func (s *authService) Register(ctx context.Context, req *model.RegisterRequest, sid string) (*model.AuthResponse, error) {
	if req == nil {
		return nil, model.NewInputError("registration request is required")
	}
	req.Email = normaliseEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        req.Email,
		Name:         req.Name,
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: hash,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("user registered")

	return s.signIn(ctx, user, sid)
}

func (s *authService) Login(ctx context.Context, req *model.LoginRequest, sid string) (*model.AuthResponse, error) {
	if req == nil {
		return nil, model.ErrInvalidCredentials
	}
	req.Email = normaliseEmail(req.Email)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to log in: %w", err)
	}

	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		s.logger.Debug().Int64("user_id", user.ID).Msg("wrong password")
		return nil, err
	}

	return s.signIn(ctx, user, sid)
}

// signIn issues a token and merges the visitor's session cart. This is the
// single call site of the merge for a login event.
func (s *authService) signIn(ctx context.Context, user *model.User, sid string) (*model.AuthResponse, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	merged, err := s.carts.MergeSessionCart(ctx, sid, user.ID)
	if err != nil {
		// The session cart was restored; the login itself still succeeds.
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to merge session cart")
		merged = 0
	}

	return &model.AuthResponse{Token: token, User: user, MergedLines: merged}, nil
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
