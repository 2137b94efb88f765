package repository

import (
	"time"

	"github.com/serhatipek/choreline/internal/domain"
)

// DeliveryRecordModel is the persistence model for the delivery_records table,
// one row per finalized delivery result.
type DeliveryRecordModel struct {
	ID             string         `gorm:"type:uuid;primaryKey"`
	NotificationID string         `gorm:"type:varchar(64);not null"`
	UserID         string         `gorm:"type:varchar(64);not null"`
	Kind           domain.Kind    `gorm:"type:varchar(16);not null"`
	Success        bool           `gorm:"not null"`
	Channel        domain.Channel `gorm:"type:varchar(16)"`
	Error          *string        `gorm:"type:text"`
	DeliveredAt    time.Time      `gorm:"type:timestamptz;not null"`
	CreatedAt      time.Time
}

func (DeliveryRecordModel) TableName() string {
	return "delivery_records"
}

// DeliveryAttemptModel is the persistence model for delivery_attempts, one row
// per channel tried for a record.
type DeliveryAttemptModel struct {
	ID                string         `gorm:"type:uuid;primaryKey"`
	RecordID          string         `gorm:"type:uuid;not null"`
	AttemptNumber     int            `gorm:"not null"`
	Channel           domain.Channel `gorm:"type:varchar(16);not null"`
	Success           bool           `gorm:"not null"`
	Error             *string        `gorm:"type:text"`
	ProviderMessageID *string        `gorm:"type:varchar(255)"`
	AttemptedAt       time.Time      `gorm:"type:timestamptz;not null"`
}

func (DeliveryAttemptModel) TableName() string {
	return "delivery_attempts"
}
