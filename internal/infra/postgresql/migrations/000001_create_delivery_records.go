package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/serhatipek/choreline/internal/repository"
	"gorm.io/gorm"
)

func createDeliveryRecordsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_delivery_records",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.DeliveryRecordModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_delivery_records_user_delivered ON delivery_records (user_id, delivered_at)`,
				`CREATE INDEX IF NOT EXISTS idx_delivery_records_delivered_at ON delivery_records (delivered_at)`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.DeliveryRecordModel{})
		},
	}
}
