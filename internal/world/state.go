package world

// ChunkState tracks where a chunk is in its lifecycle.
type ChunkState uint8

const (
	NotLoaded ChunkState = iota
	Generating
	Ready
)

func (s ChunkState) String() string {
	switch s {
	case NotLoaded:
		return "not-loaded"
	case Generating:
		return "generating"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}
