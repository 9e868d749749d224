package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityLog records audit entries for assignment mutations.
type ActivityLog struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ActorID   *uuid.UUID `gorm:"column:actor_id;type:uuid"`
	Action    string     `gorm:"column:action;not null"`
	OrderID   *uuid.UUID `gorm:"column:order_id;type:uuid;index"`
	AgentID   *uuid.UUID `gorm:"column:agent_id;type:uuid;index"`
	Detail    string     `gorm:"column:detail"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}
