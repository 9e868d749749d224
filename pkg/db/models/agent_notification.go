package models

import (
	"time"

	"github.com/google/uuid"
)

// AgentNotification is the aggregated "you received N orders" record produced
// by the debounced notifier.
type AgentNotification struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AgentID    uuid.UUID `gorm:"column:agent_id;type:uuid;not null;index"`
	OrderCount int       `gorm:"column:order_count;not null"`
	Message    string    `gorm:"column:message;not null"`
	Read       bool      `gorm:"column:read;not null;default:false"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
