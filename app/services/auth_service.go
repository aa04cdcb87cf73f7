package services

import (
	"context"

	"github.com/storefront-go/storefront/app/models"
	"github.com/storefront-go/storefront/app/repositories"
	"github.com/storefront-go/storefront/pkg/apperr"
	"github.com/storefront-go/storefront/pkg/auth"
	"github.com/storefront-go/storefront/pkg/logger"
	"github.com/storefront-go/storefront/pkg/validate"
)

// LoginInput is the body of POST /login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	Token  string `json:"token"`
	UserID uint   `json:"userId"`
	Role   string `json:"role"`
}

// RegisterInput is the body of POST /register. Public registration never
// grants admin.
type RegisterInput struct {
	Username     string `json:"username" validate:"required,max=100"`
	Email        string `json:"email" validate:"required,email,max=255"`
	Password     string `json:"password" validate:"required,min=6"`
	Phone        string `json:"phone" validate:"max=50"`
	AddressLine1 string `json:"addressLine1" validate:"max=255"`
	AddressLine2 string `json:"addressLine2" validate:"max=255"`
	City         string `json:"city" validate:"max=100"`
	State        string `json:"state" validate:"max=100"`
	PostalCode   string `json:"postalCode" validate:"max=20"`
	Country      string `json:"country" validate:"max=100"`
}

var errBadCredentials = apperr.Unauthorized("Invalid email or password")

type AuthService struct {
	users  *repositories.UserRepository
	tokens *auth.Issuer
}

func NewAuthService(users *repositories.UserRepository, tokens *auth.Issuer) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// Login checks the credentials and issues an access token. Unknown email and
// wrong password answer the same way.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	if errs := validate.Struct(in); validate.HasErrors(errs) {
		return nil, apperr.Invalid("Validation failed", errs)
	}

	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, errBadCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(user.Password, in.Password) {
		logger.WithCtx(ctx).Info("auth: rejected login", "user_id", user.ID)
		return nil, errBadCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Email, user.Role())
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &LoginResult{Token: token, UserID: user.ID, Role: user.Role()}, nil
}

// Register creates a regular account.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if errs := validate.Struct(in); validate.HasErrors(errs) {
		return nil, apperr.Invalid("Validation failed", errs)
	}
	return createUser(ctx, s.users, in, false)
}

func createUser(ctx context.Context, users *repositories.UserRepository, in RegisterInput, admin bool) (*models.User, error) {
	taken, err := users.Taken(ctx, in.Email, in.Username, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("User already exists")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		Password:     hash,
		IsAdmin:      admin,
		Phone:        in.Phone,
		AddressLine1: in.AddressLine1,
		AddressLine2: in.AddressLine2,
		City:         in.City,
		State:        in.State,
		PostalCode:   in.PostalCode,
		Country:      in.Country,
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
