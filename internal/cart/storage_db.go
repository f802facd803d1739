package cart

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/velmora/unicart/pkg/db/models"
)

// DBStorage persists guest carts in the relational guest_cart_records table.
type DBStorage struct {
	db *gorm.DB
}

// NewDBStorage wraps a GORM connection as a cart storage backend.
func NewDBStorage(conn *gorm.DB) (*DBStorage, error) {
	if conn == nil {
		return nil, errors.New("db connection is required")
	}
	return &DBStorage{db: conn}, nil
}

func (s *DBStorage) Read(ctx context.Context, deviceID string) ([]byte, error) {
	var record models.GuestCartRecord
	err := s.db.WithContext(ctx).First(&record, "device_id = ?", deviceID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if record.ExpiresAt != nil && record.ExpiresAt.Before(time.Now()) {
		return nil, ErrNotFound
	}
	return record.Payload, nil
}

func (s *DBStorage) Write(ctx context.Context, deviceID string, payload []byte, ttl time.Duration) error {
	record := models.GuestCartRecord{
		DeviceID: deviceID,
		Payload:  payload,
	}
	if ttl > 0 {
		expires := time.Now().Add(ttl)
		record.ExpiresAt = &expires
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "expires_at", "updated_at"}),
	}).Create(&record).Error
}

func (s *DBStorage) Delete(ctx context.Context, deviceID string) error {
	return s.db.WithContext(ctx).Delete(&models.GuestCartRecord{}, "device_id = ?", deviceID).Error
}
