package models

import "time"

// GuestCartRecord persists one serialized guest cart per anonymous device.
// Payload is the canonical line-item list encoded as JSON; the cart layer owns
// the shape, this table is only durable bytes.
type GuestCartRecord struct {
	DeviceID  string     `gorm:"column:device_id;primaryKey"`
	Payload   []byte     `gorm:"column:payload;not null"`
	ExpiresAt *time.Time `gorm:"column:expires_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the table name stable across drivers.
func (GuestCartRecord) TableName() string {
	return "guest_cart_records"
}
