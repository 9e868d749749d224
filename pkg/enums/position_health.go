package enums

// PositionHealth classifies the durability state of a store's sync position.
type PositionHealth string

const (
	PositionHealthHealthy    PositionHealth = "healthy"
	PositionHealthMissing    PositionHealth = "missing"
	PositionHealthReset      PositionHealth = "reset"
	PositionHealthCalculated PositionHealth = "calculated"
)
