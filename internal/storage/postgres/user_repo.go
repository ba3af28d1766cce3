package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/jkaninda/notelens/internal/auth"
)

// UserRepository implements auth.UserStore on GORM.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a UserRepository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, email, passwordHash, spreadsheetID string) (*auth.User, error) {
	model := UserModel{
		Email:         email,
		PasswordHash:  passwordHash,
		SpreadsheetID: spreadsheetID,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, auth.ErrEmailTaken
		}
		return nil, fmt.Errorf("creating user %q: %w", email, err)
	}
	return toUserDomain(&model), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	var model UserModel
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user %q: %w", email, err)
	}
	return toUserDomain(&model), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*auth.User, error) {
	var model UserModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user %d: %w", id, err)
	}
	return toUserDomain(&model), nil
}

func toUserDomain(m *UserModel) *auth.User {
	return &auth.User{
		ID:            m.ID,
		Email:         m.Email,
		PasswordHash:  m.PasswordHash,
		SpreadsheetID: m.SpreadsheetID,
		CreatedAt:     m.CreatedAt,
	}
}

// compile-time interface check
var _ auth.UserStore = (*UserRepository)(nil)
