package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductAssignment maps a product name to an agent allowed to handle it.
// A product may map to several agents and an agent to several products.
type ProductAssignment struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AgentID     uuid.UUID `gorm:"column:agent_id;type:uuid;not null;index"`
	ProductName string    `gorm:"column:product_name;not null;index"`
	Active      bool      `gorm:"column:active;not null;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
