package mode

// Mode is the multi-vector composition strategy.
type Mode string

// Composition mode constants.
const (
	// Average queries with 2*mean(positives) - mean(negatives).
	Average Mode = "average"
	// BestScore ranks each candidate by its best positive similarity unless
	// a negative example is closer.
	BestScore Mode = "best_score"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Average || m == BestScore
}
