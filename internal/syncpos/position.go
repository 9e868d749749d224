package syncpos

import (
	"time"

	"github.com/karimzem/fulfillment-backend/pkg/enums"
)

// Position is a store's resume point in the external order feed.
type Position struct {
	Store     string               `json:"store"`
	Page      int                  `json:"page"`
	FirstID   int64                `json:"first_id"`
	LastID    int64                `json:"last_id"`
	Timestamp time.Time            `json:"timestamp"`
	Source    enums.PositionSource `json:"source"`
}

// IsReset reports whether the position points back at the beginning of the
// feed, which after a cache flush means re-importing everything.
func (p Position) IsReset() bool {
	return p.Page <= 1 && p.LastID == 0
}
