package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karimzem/fulfillment-backend/pkg/enums"
)

// Order is the unit of work imported from the external feed and routed to agents.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EcoManagerID    *int64            `gorm:"column:ecomanager_id;uniqueIndex"`
	Reference       string            `gorm:"column:reference;not null"`
	Status          enums.OrderStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	ShippingStatus  string            `gorm:"column:shipping_status;not null;default:''"`
	AssignedAgentID *uuid.UUID        `gorm:"column:assigned_agent_id;type:uuid"`
	AssignedAt      *time.Time        `gorm:"column:assigned_at"`
	StoreIdentifier string            `gorm:"column:store_identifier;not null;index"`
	CustomerID      *uuid.UUID        `gorm:"column:customer_id;type:uuid"`
	TotalAmount     decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null;default:0"`
	Items           []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// ProductTitles returns the distinct line-item titles, preserving first-seen order.
func (o Order) ProductTitles() []string {
	seen := make(map[string]struct{}, len(o.Items))
	titles := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		if item.Title == "" {
			continue
		}
		if _, ok := seen[item.Title]; ok {
			continue
		}
		seen[item.Title] = struct{}{}
		titles = append(titles, item.Title)
	}
	return titles
}
