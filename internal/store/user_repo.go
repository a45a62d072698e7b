package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/campusbites/orderline/pkg/database"
	"gorm.io/gorm"
)

// ErrUserNotFound is returned when a user record is not found.
var ErrUserNotFound = errors.New("user not found")

// ErrUserAlreadyExists is returned on a duplicate student_id or email.
var ErrUserAlreadyExists = errors.New("user already exists")

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByStudentID(ctx context.Context, studentID string) (*User, error)
	GetByID(ctx context.Context, id uint64) (*User, error)
	UpdatePasswordHash(ctx context.Context, id uint64, passwordHash string) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create saves a new user to the database, mapping a uniqueness violation
// to ErrUserAlreadyExists (spec.md §7, registration Conflict).
func (r *userRepository) Create(ctx context.Context, user *User) error {
	db := database.GetDBFromContext(ctx, r.db)
	if err := db.Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByStudentID retrieves a user by their student_id.
func (r *userRepository) GetByStudentID(ctx context.Context, studentID string) (*User, error) {
	var user User
	db := database.GetDBFromContext(ctx, r.db)
	if err := db.Where("student_id = ?", studentID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by student_id '%s': %w", studentID, err)
	}
	return &user, nil
}

// GetByID retrieves a user by their ID.
func (r *userRepository) GetByID(ctx context.Context, id uint64) (*User, error) {
	var user User
	db := database.GetDBFromContext(ctx, r.db)
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID '%d': %w", id, err)
	}
	return &user, nil
}

// UpdatePasswordHash overwrites a user's stored password hash.
func (r *userRepository) UpdatePasswordHash(ctx context.Context, id uint64, passwordHash string) error {
	db := database.GetDBFromContext(ctx, r.db)
	result := db.Model(&User{}).Where("id = ?", id).Update("password_hash", passwordHash)
	if result.Error != nil {
		return fmt.Errorf("failed to update password hash for user '%d': %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
