package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"excel-import-service/internal/core/domain"
)

// UserRepository manages API accounts for basic auth.
type UserRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewUserRepository creates a new repository instance
func NewUserRepository(db *gorm.DB, logger *slog.Logger) *UserRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Authenticate checks the username/password pair against the users table.
func (r *UserRepository) Authenticate(ctx context.Context, username, password string) (bool, error) {
	var user domain.User

	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		First(&user).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("database query failed: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return false, nil
	}

	return true, nil
}

// SeedAdmin creates the admin account if it does not exist yet.
func (r *UserRepository) SeedAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		r.logger.Warn("admin credentials not configured, skipping seed")
		return nil
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("username = ?", username).
		Count(&count).
		Error
	if err != nil {
		return fmt.Errorf("database query failed: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(&domain.User{
		Username:     username,
		PasswordHash: string(hash),
	}).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	r.logger.Info("admin user seeded",
		slog.String("username", username))

	return nil
}
