package analysis

// Config holds analysis thresholds.
type Config struct {
	// MinConfidence filters extracted labels below this confidence.
	MinConfidence float64
	// MaxLabels caps how many labels one analysis pass may emit.
	MaxLabels int
	// Eps is the DBSCAN neighborhood radius.
	Eps float64
	// MinPoints is the DBSCAN core point threshold. At 1 every point
	// joins some cluster and nothing is discarded as noise.
	MinPoints int
}

// DefaultConfig returns the standard analysis thresholds.
func DefaultConfig() Config {
	return Config{
		MinConfidence: 0.6,
		MaxLabels:     10,
		Eps:           0.5,
		MinPoints:     1,
	}
}
