package syncpos

import (
	"context"

	"github.com/karimzem/fulfillment-backend/pkg/enums"
)

// Status pairs a store with the durability classification of its position.
type Status struct {
	Store    string               `json:"store"`
	Health   enums.PositionHealth `json:"health"`
	Position *Position            `json:"position,omitempty"`
}

// Classify maps a resolved position to its durability health.
func Classify(position *Position) enums.PositionHealth {
	switch {
	case position == nil:
		return enums.PositionHealthMissing
	case position.IsReset():
		return enums.PositionHealthReset
	case position.Source == enums.PositionSourceRecomputed:
		return enums.PositionHealthCalculated
	default:
		return enums.PositionHealthHealthy
	}
}

// Statuses resolves and classifies the position of every given store. A store
// whose position cannot be resolved at all is reported as missing rather than
// failing the whole audit.
func (s *Store) Statuses(ctx context.Context, stores []string) []Status {
	out := make([]Status, 0, len(stores))
	for _, store := range stores {
		position, err := s.GetPosition(ctx, store)
		if err != nil {
			s.logg.Warn(s.logg.WithStore(ctx, store), "position unresolvable in audit")
			out = append(out, Status{Store: store, Health: enums.PositionHealthMissing})
			continue
		}
		out = append(out, Status{Store: store, Health: Classify(position), Position: position})
	}
	return out
}
