package index

// Stats describes one EntityIndex.
type Stats struct {
	EntityType string
	Documents  int
	Terms      int
	AvgLength  float64
	State      State
	Reason     string
}

// Summary aggregates the stats of every registered type. Terms counts
// distinct terms across types.
type Summary struct {
	Types     []Stats
	Documents int
	Terms     int
}
