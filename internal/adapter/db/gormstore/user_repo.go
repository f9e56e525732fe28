package gormstore

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"user-crud-service/internal/domain/user"
	pkgerrors "user-crud-service/pkg/errors"
)

// UserRepo implements the user Repository on top of a Store.
type UserRepo struct {
	store *Store
	log   *zap.Logger
}

// NewUserRepo creates a new instance of UserRepo.
func NewUserRepo(store *Store, log *zap.Logger) *UserRepo {
	return &UserRepo{store: store, log: log}
}

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID    int64  `gorm:"primaryKey;autoIncrement"`             // Unique identifier with auto-increment
	Name  string `gorm:"not null"`                             // User's full name (required)
	Email string `gorm:"not null;uniqueIndex:idx_users_email"` // User's unique email address
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

func fromDomain(u *user.User) UserSchema {
	return UserSchema{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
	}
}

func (m UserSchema) toDomain() *user.User {
	return &user.User{
		ID:    m.ID,
		Name:  m.Name,
		Email: m.Email,
	}
}

// Create inserts a new user and returns it with the assigned ID.
func (r *UserRepo) Create(ctx context.Context, u *user.User) (*user.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}

	model := fromDomain(u)
	model.ID = 0

	err := r.store.Session(ctx, func(tx *gorm.DB) error {
		return tx.Create(&model).Error
	})
	if err != nil {
		return nil, r.writeError("create", err, zap.String("email", u.Email))
	}

	r.log.Info("user created in db", zap.Int64("id", model.ID))
	return model.toDomain(), nil
}

// Update overwrites name and email of an existing user.
func (r *UserRepo) Update(ctx context.Context, u *user.User) (*user.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}

	var model UserSchema
	err := r.store.Session(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&model, u.ID).Error; err != nil {
			return err
		}
		model.Name = u.Name
		model.Email = u.Email
		return tx.Save(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Warn("user not found for update", zap.Int64("id", u.ID))
			return nil, user.ErrUserNotFound
		}
		return nil, r.writeError("update", err, zap.Int64("id", u.ID))
	}

	r.log.Info("user updated in db", zap.Int64("id", model.ID))
	return model.toDomain(), nil
}

// Delete removes a user by ID and returns the removed row.
func (r *UserRepo) Delete(ctx context.Context, id int64) (*user.User, error) {
	var model UserSchema
	err := r.store.Session(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&model, id).Error; err != nil {
			return err
		}
		return tx.Delete(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Warn("user not found for delete", zap.Int64("id", id))
			return nil, user.ErrUserNotFound
		}
		r.log.Error("failed to delete user in db", zap.Error(err), zap.Int64("id", id))
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}

	r.log.Info("user deleted in db", zap.Int64("id", id))
	return model.toDomain(), nil
}

// GetByID retrieves a user from the database by their unique ID.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	var model UserSchema
	err := r.store.Session(ctx, func(tx *gorm.DB) error {
		return tx.First(&model, id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found", zap.Int64("id", id))
			return nil, user.ErrUserNotFound
		}
		r.log.Error("failed to get user from db", zap.Error(err), zap.Int64("id", id))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return model.toDomain(), nil
}

// List returns every user ordered by ID.
func (r *UserRepo) List(ctx context.Context) ([]user.User, error) {
	var models []UserSchema
	err := r.store.Session(ctx, func(tx *gorm.DB) error {
		return tx.Order("id ASC").Find(&models).Error
	})
	if err != nil {
		r.log.Error("failed to list users from db", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]user.User, len(models))
	for i, model := range models {
		users[i] = *model.toDomain()
	}

	return users, nil
}

// writeError classifies a failed insert or update. A unique violation on email
// is wrapped as an internal error so it still surfaces as a server error.
func (r *UserRepo) writeError(op string, err error, fields ...zap.Field) error {
	fields = append(fields, zap.Error(err))
	if isDuplicateKeyError(err) {
		r.log.Warn("email uniqueness violated on "+op, fields...)
		return pkgerrors.NewInternalError("email already exists", err)
	}
	r.log.Error("failed to "+op+" user in db", fields...)
	return fmt.Errorf("failed to %s user: %w", op, err)
}
