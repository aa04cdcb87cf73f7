package services

import (
	"context"

	"github.com/storefront-go/storefront/app/models"
	"github.com/storefront-go/storefront/app/repositories"
	"github.com/storefront-go/storefront/config"
	"github.com/storefront-go/storefront/pkg/apperr"
	"github.com/storefront-go/storefront/pkg/auth"
	"github.com/storefront-go/storefront/pkg/logger"
	"github.com/storefront-go/storefront/pkg/validate"
)

// CreateUserInput is the admin variant of RegisterInput.
type CreateUserInput struct {
	Username     string `json:"username" validate:"required,max=100"`
	Email        string `json:"email" validate:"required,email,max=255"`
	Password     string `json:"password" validate:"required,min=6"`
	IsAdmin      bool   `json:"isAdmin"`
	Phone        string `json:"phone" validate:"max=50"`
	AddressLine1 string `json:"addressLine1" validate:"max=255"`
	AddressLine2 string `json:"addressLine2" validate:"max=255"`
	City         string `json:"city" validate:"max=100"`
	State        string `json:"state" validate:"max=100"`
	PostalCode   string `json:"postalCode" validate:"max=20"`
	Country      string `json:"country" validate:"max=100"`
}

func (in CreateUserInput) account() RegisterInput {
	return RegisterInput{
		Username: in.Username, Email: in.Email, Password: in.Password,
		Phone: in.Phone, AddressLine1: in.AddressLine1, AddressLine2: in.AddressLine2,
		City: in.City, State: in.State, PostalCode: in.PostalCode, Country: in.Country,
	}
}

// UpdateUserInput is a partial update; nil fields are left alone.
type UpdateUserInput struct {
	Username     *string `json:"username" validate:"omitempty,min=1,max=100"`
	Email        *string `json:"email" validate:"omitempty,email,max=255"`
	Password     *string `json:"password" validate:"omitempty,min=6"`
	IsAdmin      *bool   `json:"isAdmin"`
	Phone        *string `json:"phone" validate:"omitempty,max=50"`
	AddressLine1 *string `json:"addressLine1" validate:"omitempty,max=255"`
	AddressLine2 *string `json:"addressLine2" validate:"omitempty,max=255"`
	City         *string `json:"city" validate:"omitempty,max=100"`
	State        *string `json:"state" validate:"omitempty,max=100"`
	PostalCode   *string `json:"postalCode" validate:"omitempty,max=20"`
	Country      *string `json:"country" validate:"omitempty,max=100"`
}

type UserService struct {
	users *repositories.UserRepository
}

func NewUserService(users *repositories.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.users.All(ctx)
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	return s.users.FindByID(ctx, id)
}

// Create adds a user; only reachable by admins, so isAdmin is honoured.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	if errs := validate.Struct(in); validate.HasErrors(errs) {
		return nil, apperr.Invalid("Validation failed", errs)
	}
	return createUser(ctx, s.users, in.account(), in.IsAdmin)
}

// Update applies in to user id on behalf of actor. Only admins may change
// the admin flag; a new password is re-hashed.
func (s *UserService) Update(ctx context.Context, actor auth.Principal, id uint, in UpdateUserInput) (*models.User, error) {
	if errs := validate.Struct(in); validate.HasErrors(errs) {
		return nil, apperr.Invalid("Validation failed", errs)
	}
	if in.IsAdmin != nil && !actor.IsAdmin {
		return nil, apperr.Forbidden("Only administrators can change roles")
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	email, username := user.Email, user.Username
	if in.Email != nil {
		email = *in.Email
	}
	if in.Username != nil {
		username = *in.Username
	}
	if email != user.Email || username != user.Username {
		taken, err := s.users.Taken(ctx, email, username, user.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperr.Conflict("User already exists")
		}
	}
	user.Email, user.Username = email, username

	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		user.Password = hash
	}
	if in.IsAdmin != nil {
		user.IsAdmin = *in.IsAdmin
	}
	assign(&user.Phone, in.Phone)
	assign(&user.AddressLine1, in.AddressLine1)
	assign(&user.AddressLine2, in.AddressLine2)
	assign(&user.City, in.City)
	assign(&user.State, in.State)
	assign(&user.PostalCode, in.PostalCode)
	assign(&user.Country, in.Country)

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id uint) error {
	return s.users.Delete(ctx, id)
}

// EnsureAdmin creates the configured administrator when no admin exists.
// It reports whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, cfg config.AdminConfig) (bool, error) {
	exists, err := s.users.AdminExists(ctx)
	if err != nil || exists {
		return false, err
	}
	if cfg.Email == "" || cfg.Password == "" {
		logger.WithCtx(ctx).Warn("users: no administrator and ADMIN_EMAIL/ADMIN_PASSWORD unset")
		return false, nil
	}

	username := cfg.Username
	if username == "" {
		username = "admin"
	}
	in := RegisterInput{Username: username, Email: cfg.Email, Password: cfg.Password}
	if _, err := createUser(ctx, s.users, in, true); err != nil {
		return false, err
	}
	logger.WithCtx(ctx).Info("users: bootstrapped administrator", "email", cfg.Email)
	return true, nil
}

func assign[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
