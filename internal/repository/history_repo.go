package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/serhatipek/choreline/internal/domain"
	"gorm.io/gorm"
)

// Archive persists finalized delivery results for audit. The in-memory
// tracker remains authoritative for live statistics; the archive only ever
// receives completed results, never pending queue state.
type Archive interface {
	SaveResult(ctx context.Context, notification domain.Notification, result domain.DeliveryResult) error
	ListRecent(ctx context.Context, userID string, limit int) ([]DeliveryRecordModel, error)
}

type GormArchive struct {
	db *gorm.DB
}

var _ Archive = (*GormArchive)(nil)

func NewGormArchive(db *gorm.DB) (*GormArchive, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db is required")
	}
	return &GormArchive{db: db}, nil
}

func (a *GormArchive) SaveResult(
	ctx context.Context,
	notification domain.Notification,
	result domain.DeliveryResult,
) error {
	record := DeliveryRecordModel{
		ID:             uuid.NewString(),
		NotificationID: notification.ID,
		UserID:         notification.Recipient.UserID,
		Kind:           notification.Kind,
		Success:        result.Success,
		Channel:        result.Channel,
		Error:          optionalString(result.Error),
		DeliveredAt:    result.DeliveredAt.UTC(),
	}

	attempts := make([]DeliveryAttemptModel, 0, len(result.Attempts))
	for i, attempt := range result.Attempts {
		attempts = append(attempts, DeliveryAttemptModel{
			ID:                uuid.NewString(),
			RecordID:          record.ID,
			AttemptNumber:     i + 1,
			Channel:           attempt.Channel,
			Success:           attempt.Success,
			Error:             optionalString(attempt.Error),
			ProviderMessageID: optionalString(attempt.ProviderMessageID),
			AttemptedAt:       attempt.At.UTC(),
		})
	}

	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to save delivery record: %w", err)
		}
		if len(attempts) == 0 {
			return nil
		}
		if err := tx.Create(&attempts).Error; err != nil {
			return fmt.Errorf("failed to save delivery attempts: %w", err)
		}
		return nil
	})
}

func (a *GormArchive) ListRecent(ctx context.Context, userID string, limit int) ([]DeliveryRecordModel, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	if limit <= 0 {
		limit = 50
	}

	var records []DeliveryRecordModel
	err := a.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("delivered_at DESC").
		Limit(limit).
		Find(&records).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery records: %w", err)
	}
	return records, nil
}

// PruneBefore drops archived records older than the cutoff, attempts first.
func (a *GormArchive) PruneBefore(ctx context.Context, cutoff time.Time) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subquery := tx.Model(&DeliveryRecordModel{}).
			Select("id").
			Where("delivered_at < ?", cutoff.UTC())
		if err := tx.Where("record_id IN (?)", subquery).Delete(&DeliveryAttemptModel{}).Error; err != nil {
			return fmt.Errorf("failed to prune delivery attempts: %w", err)
		}
		if err := tx.Where("delivered_at < ?", cutoff.UTC()).Delete(&DeliveryRecordModel{}).Error; err != nil {
			return fmt.Errorf("failed to prune delivery records: %w", err)
		}
		return nil
	})
}

func optionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
