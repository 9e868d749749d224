package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer holds the buyer contact details attached to imported orders.
type Customer struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name            string    `gorm:"column:name;not null"`
	Phone           string    `gorm:"column:phone;not null;index"`
	Wilaya          string    `gorm:"column:wilaya"`
	StoreIdentifier string    `gorm:"column:store_identifier;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
