package service

import (
	"context"
	"errors"
	"time"

	userserrors "eventa/internal/users/errors"
	"eventa/internal/users/repository"
	"eventa/internal/users/validator"
	"eventa/pkg/auth"
	"eventa/pkg/config"
	apperrors "eventa/pkg/errors"
	"eventa/pkg/model"
	"eventa/pkg/sanitizer"
)

const msgInvalidCredentials = "Invalid credentials"

type UserService interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error)
	Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error)
	Me(ctx context.Context, actor auth.Identity) (*model.User, error)
}

type TokenIssuer interface {
	Issue(userID, role string) (string, time.Time, error)
}

type userService struct {
	repo      repository.UserRepository
	issuer    TokenIssuer
	validator *validator.UserValidator
	cfg       *config.Config
}

func NewUserService(
	repo repository.UserRepository,
	issuer TokenIssuer,
	validator *validator.UserValidator,
	cfg *config.Config,
) UserService {
	return &userService{
		repo:      repo,
		issuer:    issuer,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *userService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	req.FirstName = sanitizer.NormalizeName(req.FirstName)
	req.LastName = sanitizer.NormalizeName(req.LastName)
	req.Email = sanitizer.NormalizeEmail(req.Email)

	if err := s.validator.ValidateRegister(req); err != nil {
		s.cfg.Log.Warn("Registration validation failed", "email", req.Email, "error", err)
		return nil, apperrors.Validation("Registration validation failed", details(err))
	}

	role := req.Role
	if role == "" {
		role = model.RoleCustomer
	}
	if role == model.RoleAdmin && !s.cfg.AllowAdminSignup {
		return nil, apperrors.Forbidden("Admin accounts cannot be self-registered")
	}

	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, apperrors.Conflict("Email already registered")
	} else if !errors.Is(err, userserrors.ErrNotFound) {
		return nil, apperrors.Internal("Failed to check existing users", err)
	}

	hash, err := auth.HashPassword(req.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperrors.Internal("Failed to secure password", err)
	}

	user := &model.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, userserrors.ErrDuplicateEmail) {
			return nil, apperrors.Conflict("Email already registered")
		}
		s.cfg.Log.Error("Failed to create user", "email", req.Email, "error", err)
		return nil, apperrors.Internal("Failed to create user", err)
	}

	s.cfg.Log.Info("User registered", "id", user.ID, "role", user.Role)
	return user, nil
}

// Login reports the same error for an unknown email and a wrong password.
func (s *userService) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	req.Email = sanitizer.NormalizeEmail(req.Email)

	if err := s.validator.ValidateLogin(req); err != nil {
		return nil, apperrors.Validation("Login validation failed", details(err))
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.Unauthorized(msgInvalidCredentials)
		}
		return nil, apperrors.Internal("Failed to retrieve user", err)
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		s.cfg.Log.Warn("Login failed", "user_id", user.ID)
		return nil, apperrors.Unauthorized(msgInvalidCredentials)
	}

	token, expiresAt, err := s.issuer.Issue(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.Internal("Failed to issue token", err)
	}

	return &model.TokenResponse{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *userService) Me(ctx context.Context, actor auth.Identity) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) || errors.Is(err, userserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("User", actor.UserID)
		}
		return nil, apperrors.Internal("Failed to retrieve user", err)
	}
	return user, nil
}

func details(err error) map[string]any {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return map[string]any{"errors": verrs}
	}
	return map[string]any{"errors": []validator.ValidationError{{Field: "body", Message: err.Error()}}}
}
