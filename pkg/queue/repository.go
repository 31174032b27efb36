package queue

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/kbwebsolutions/datasender/pkg/db/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(ctx context.Context, record *models.QueueRecord) error {
	if record == nil {
		return errors.New("queue record required")
	}
	return r.db.WithContext(ctx).Create(record).Error
}

// FetchUndispatched returns records awaiting delivery, oldest first, skipping
// records that have exhausted their attempts.
func (r *Repository) FetchUndispatched(ctx context.Context, limit, maxAttempts int) ([]models.QueueRecord, error) {
	var rows []models.QueueRecord
	err := r.db.WithContext(ctx).
		Where("dispatched_at IS NULL").
		Where("attempt_count < ?", maxAttempts).
		Order("timecreated ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkDispatched(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&models.QueueRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"dispatched_at": time.Now(),
		}).Error
}

func (r *Repository) MarkFailed(ctx context.Context, id int64, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return r.db.WithContext(ctx).Model(&models.QueueRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_error":    msg,
			"attempt_count": gorm.Expr("attempt_count + 1"),
		}).Error
}

// CountByEvent reports how many records exist for an event name. Diagnostic
// surface used by tests and support tooling.
func (r *Repository) CountByEvent(ctx context.Context, event string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.QueueRecord{}).
		Where("event = ?", event).
		Count(&count).Error
	return count, err
}
