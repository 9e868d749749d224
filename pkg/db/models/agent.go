package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/karimzem/fulfillment-backend/pkg/enums"
)

// Agent is a back-office staff member orders are assigned to.
// CurrentOrders is a denormalized convenience counter; the authoritative
// daily load is derived from today's assignments.
type Agent struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string          `gorm:"column:name;not null"`
	Email         string          `gorm:"column:email;uniqueIndex;not null"`
	Role          enums.AgentRole `gorm:"column:role;type:text;not null;default:'AGENT_SUIVI'"`
	Active        bool            `gorm:"column:active;not null;default:true"`
	MaxOrders     int             `gorm:"column:max_orders;not null;default:30"`
	CurrentOrders int             `gorm:"column:current_orders;not null;default:0"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// Assignable reports whether the agent can receive new orders.
func (a Agent) Assignable() bool {
	return a.Active && a.Role.Assignable()
}
