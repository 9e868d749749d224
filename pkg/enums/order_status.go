package enums

// OrderStatus tracks an order through the follow-up lifecycle.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusAssigned   OrderStatus = "ASSIGNED"
	OrderStatusInProgress OrderStatus = "IN_PROGRESS"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusReturned   OrderStatus = "RETURNED"
)

// IsTerminal reports whether no further follow-up work applies.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusReturned, OrderStatusCancelled:
		return true
	}
	return false
}

// Valid reports whether the value is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusAssigned, OrderStatusInProgress,
		OrderStatusConfirmed, OrderStatusCancelled, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusReturned:
		return true
	}
	return false
}
