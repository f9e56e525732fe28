package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	domain "user-crud-service/internal/domain/user"
	pkgerrors "user-crud-service/pkg/errors"
	"user-crud-service/pkg/logger"
)

// Repository defines the interface for user data access operations.
// Implementations return domain.ErrUserNotFound when the id has no row.
type Repository interface {
	Create(ctx context.Context, u *domain.User) (*domain.User, error) // Insert and return the stored row
	GetByID(ctx context.Context, id int64) (*domain.User, error)      // Retrieve user by ID
	Update(ctx context.Context, u *domain.User) (*domain.User, error) // Overwrite name and email
	Delete(ctx context.Context, id int64) (*domain.User, error)       // Remove and return the removed row
	List(ctx context.Context) ([]domain.User, error)                  // All users in insertion order
}

// Service implements the business logic for user management operations.
type Service struct {
	repo     Repository
	log      *zap.Logger
	validate *validator.Validate
}

// New creates a new Service with the provided repository and logger.
func New(r Repository, log *zap.Logger) *Service {
	return &Service{repo: r, log: log, validate: validator.New()}
}

// formatValidationError converts validator.ValidationErrors into a ValidationError
// with a human-readable message.
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
		case "email":
			messages = append(messages, fmt.Sprintf("%s must be a valid email", e.Field()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", e.Field()))
		}
	}
	return pkgerrors.NewValidationError("", strings.Join(messages, ", "))
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) (*ListUsersResponse, error) {
	log := logger.WithContext(ctx, s.log)
	log.Debug("listing users")

	domainUsers, err := s.repo.List(ctx)
	if err != nil {
		log.Error("failed to list users", zap.Error(err))
		return nil, err
	}

	users := make([]User, len(domainUsers))
	for i := range domainUsers {
		users[i] = toDTO(&domainUsers[i])
	}

	return &ListUsersResponse{Users: users}, nil
}

// GetUser retrieves a user by ID.
func (s *Service) GetUser(ctx context.Context, in GetUserRequest) (*User, error) {
	log := logger.WithContext(ctx, s.log)

	// Storage never assigns non-positive ids
	if in.ID <= 0 {
		log.Debug("get user with non-positive id", zap.Int64("id", in.ID))
		return nil, domain.ErrUserNotFound
	}

	u, err := s.repo.GetByID(ctx, in.ID)
	if err != nil {
		if !pkgerrors.IsNotFound(err) {
			log.Error("failed to get user", zap.Int64("id", in.ID), zap.Error(err))
		}
		return nil, err
	}

	out := toDTO(u)
	return &out, nil
}

// CreateUser validates the request and inserts a new user.
// A duplicate email is reported by the repository, not checked here.
func (s *Service) CreateUser(ctx context.Context, in CreateUserRequest) (*User, error) {
	log := logger.WithContext(ctx, s.log)
	log.Info("creating user", zap.String("name", in.Name), zap.String("email", in.Email))

	if err := s.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	u, err := s.repo.Create(ctx, &domain.User{
		Name:  in.Name,
		Email: in.Email,
	})
	if err != nil {
		log.Error("failed to create user", zap.Error(err))
		return nil, err
	}

	out := toDTO(u)
	return &out, nil
}

// UpdateUser overwrites name and email of an existing user.
func (s *Service) UpdateUser(ctx context.Context, in UpdateUserRequest) (*User, error) {
	log := logger.WithContext(ctx, s.log)
	log.Info("updating user", zap.Int64("id", in.ID), zap.String("name", in.Name), zap.String("email", in.Email))

	if err := s.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	if in.ID <= 0 {
		return nil, domain.ErrUserNotFound
	}

	u, err := s.repo.Update(ctx, &domain.User{
		ID:    in.ID,
		Name:  in.Name,
		Email: in.Email,
	})
	if err != nil {
		if !pkgerrors.IsNotFound(err) {
			log.Error("failed to update user", zap.Int64("id", in.ID), zap.Error(err))
		}
		return nil, err
	}

	out := toDTO(u)
	return &out, nil
}

// DeleteUser removes a user and returns the data it held.
func (s *Service) DeleteUser(ctx context.Context, in DeleteUserRequest) (*User, error) {
	log := logger.WithContext(ctx, s.log)
	log.Info("deleting user", zap.Int64("id", in.ID))

	if in.ID <= 0 {
		return nil, domain.ErrUserNotFound
	}

	u, err := s.repo.Delete(ctx, in.ID)
	if err != nil {
		if !pkgerrors.IsNotFound(err) {
			log.Error("failed to delete user", zap.Int64("id", in.ID), zap.Error(err))
		}
		return nil, err
	}

	out := toDTO(u)
	return &out, nil
}

func toDTO(u *domain.User) User {
	return User{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
	}
}
