package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/jkaninda/notelens/internal/credential"
)

// CredentialRepository implements credential.Store on GORM.
// Exclusive activation and assignment replacement run inside transactions so
// readers never observe the intermediate state.
type CredentialRepository struct {
	db *gorm.DB
}

// NewCredentialRepository creates a CredentialRepository.
func NewCredentialRepository(db *gorm.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) Create(ctx context.Context, name string, payload json.RawMessage, active bool) (*credential.Credential, error) {
	model := CredentialModel{
		Name:    name,
		Payload: string(payload),
		Active:  active,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, credential.ErrNameTaken
		}
		return nil, fmt.Errorf("creating credential %q: %w", name, err)
	}
	return toCredentialDomain(&model), nil
}

func (r *CredentialRepository) GetByID(ctx context.Context, id int64) (*credential.Credential, error) {
	var model CredentialModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, credential.ErrNotFound
		}
		return nil, fmt.Errorf("getting credential %d: %w", id, err)
	}
	return toCredentialDomain(&model), nil
}

func (r *CredentialRepository) GetByName(ctx context.Context, name string) (*credential.Credential, error) {
	var model CredentialModel
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, credential.ErrNotFound
		}
		return nil, fmt.Errorf("getting credential %q: %w", name, err)
	}
	return toCredentialDomain(&model), nil
}

func (r *CredentialRepository) List(ctx context.Context) ([]credential.Credential, error) {
	var models []CredentialModel
	if err := r.db.WithContext(ctx).
		Order("active DESC, created_at DESC, id DESC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("listing credentials: %w", err)
	}
	out := make([]credential.Credential, len(models))
	for i := range models {
		out[i] = *toCredentialDomain(&models[i])
	}
	return out, nil
}

// FirstActive picks the active credential with the lowest id. The explicit
// ordering keeps tier-2 resolution deterministic when several rows are active.
func (r *CredentialRepository) FirstActive(ctx context.Context) (*credential.Credential, error) {
	var model CredentialModel
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("id ASC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, credential.ErrNotFound
		}
		return nil, fmt.Errorf("getting active credential: %w", err)
	}
	return toCredentialDomain(&model), nil
}

func (r *CredentialRepository) AssignedActive(ctx context.Context, userID int64) (*credential.Credential, error) {
	var model CredentialModel
	if err := r.db.WithContext(ctx).
		Joins("JOIN user_credentials uc ON uc.credential_id = credentials.id").
		Where("uc.user_id = ? AND credentials.active = ?", userID, true).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, credential.ErrNotFound
		}
		return nil, fmt.Errorf("getting assigned credential for user %d: %w", userID, err)
	}
	return toCredentialDomain(&model), nil
}

// SetActive updates the active flag. Activating deactivates every other
// credential inside the same transaction, so at most one credential is
// active at any committed point.
func (r *CredentialRepository) SetActive(ctx context.Context, id int64, active bool) (*credential.Credential, error) {
	var model CredentialModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&model, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return credential.ErrNotFound
			}
			return err
		}
		if active {
			if err := tx.Model(&CredentialModel{}).
				Where("id <> ? AND active = ?", id, true).
				Update("active", false).Error; err != nil {
				return err
			}
		}
		return tx.Model(&model).Update("active", active).Error
	})
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return nil, credential.ErrNotFound
		}
		return nil, fmt.Errorf("toggling credential %d: %w", id, err)
	}
	return toCredentialDomain(&model), nil
}

// Delete removes assignments referencing the credential before the
// credential itself, as one unit.
func (r *CredentialRepository) Delete(ctx context.Context, id int64) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model CredentialModel
		if err := tx.First(&model, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if err := tx.Where("credential_id = ?", id).Delete(&UserCredentialModel{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&CredentialModel{}, id).Error; err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("deleting credential %d: %w", id, err)
	}
	return deleted, nil
}

// Assign replaces any prior assignment for the user in one transaction.
func (r *CredentialRepository) Assign(ctx context.Context, userID, credentialID int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model CredentialModel
		if err := tx.First(&model, credentialID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return credential.ErrNotFound
			}
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&UserCredentialModel{}).Error; err != nil {
			return err
		}
		return tx.Create(&UserCredentialModel{UserID: userID, CredentialID: credentialID}).Error
	})
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return credential.ErrNotFound
		}
		return fmt.Errorf("assigning credential %d to user %d: %w", credentialID, userID, err)
	}
	return nil
}

func (r *CredentialRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&CredentialModel{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting credentials: %w", err)
	}
	return n, nil
}

func toCredentialDomain(m *CredentialModel) *credential.Credential {
	return &credential.Credential{
		ID:        m.ID,
		Name:      m.Name,
		Payload:   json.RawMessage(m.Payload),
		Active:    m.Active,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// compile-time interface check
var _ credential.Store = (*CredentialRepository)(nil)
