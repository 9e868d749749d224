package enums

// PositionSource records which tier produced a sync position.
type PositionSource string

const (
	PositionSourceCache      PositionSource = "cache"
	PositionSourceFileBackup PositionSource = "file-backup"
	PositionSourceRecomputed PositionSource = "recomputed"
)
