package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/cashflow/payment-lifecycle/internal/constant/model/db"
	"github.com/cashflow/payment-lifecycle/internal/core"
	"github.com/cashflow/payment-lifecycle/internal/port/output"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormUserRepository implements the UserRepository output port
type GormUserRepository struct {
	gormDB *gorm.DB
}

// NewGormUserRepository creates a new GORM user repository
func NewGormUserRepository(gormDB *gorm.DB) output.UserRepository {
	return &GormUserRepository{gormDB: gormDB}
}

func userToCore(u *db.User) *core.User {
	return &core.User{
		ID:           u.ID,
		PhoneNumber:  u.PhoneNumber,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *core.User) error {
	dbUser := &db.User{
		ID:           user.ID,
		PhoneNumber:  user.PhoneNumber,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
	}
	if err := r.gormDB.WithContext(ctx).Create(dbUser).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("user %s: %w", user.PhoneNumber, core.ErrUserExists)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = dbUser.ID
	user.CreatedAt = dbUser.CreatedAt
	user.UpdatedAt = dbUser.UpdatedAt
	return nil
}

// GetByID retrieves a user by id
func (r *GormUserRepository) GetByID(ctx context.Context, id string) (*core.User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", id, core.ErrUserNotFound)
	}
	return r.first(ctx, "id = ?", userID)
}

// GetByPhone retrieves a user by phone number
func (r *GormUserRepository) GetByPhone(ctx context.Context, phone string) (*core.User, error) {
	return r.first(ctx, "phone_number = ?", phone)
}

// FindConflict returns any user already holding the phone number or email
func (r *GormUserRepository) FindConflict(ctx context.Context, phone, email string) (*core.User, error) {
	return r.first(ctx, "phone_number = ? OR email = ?", phone, email)
}

func (r *GormUserRepository) first(ctx context.Context, query string, args ...interface{}) (*core.User, error) {
	var dbUser db.User
	if err := r.gormDB.WithContext(ctx).Where(query, args...).First(&dbUser).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return userToCore(&dbUser), nil
}
