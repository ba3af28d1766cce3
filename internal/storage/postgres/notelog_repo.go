package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/jkaninda/notelens/internal/pipeline"
)

// NoteLogRepository implements pipeline.LogStore on GORM.
type NoteLogRepository struct {
	db *gorm.DB
}

// NewNoteLogRepository creates a NoteLogRepository.
func NewNoteLogRepository(db *gorm.DB) *NoteLogRepository {
	return &NoteLogRepository{db: db}
}

func (r *NoteLogRepository) Append(ctx context.Context, userID int64, note string) error {
	model := NoteLogModel{UserID: userID, Note: note}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("appending note log for user %d: %w", userID, err)
	}
	return nil
}

func (r *NoteLogRepository) ListRecent(ctx context.Context, userID int64, limit int) ([]pipeline.NoteLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var models []NoteLogModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("listing note logs for user %d: %w", userID, err)
	}
	out := make([]pipeline.NoteLog, len(models))
	for i, m := range models {
		out[i] = pipeline.NoteLog{ID: m.ID, UserID: m.UserID, Note: m.Note, CreatedAt: m.CreatedAt}
	}
	return out, nil
}

// compile-time interface check
var _ pipeline.LogStore = (*NoteLogRepository)(nil)
