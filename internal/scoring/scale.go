package scoring

import "sync"

// Scale converts a raw correct-answer count into a reported score.
type Scale interface {
	BandScoreFor(correct int) float64
	// FullLength is the question count the scale is calibrated for.
	FullLength() int
}

var (
	regMu    sync.RWMutex
	registry = map[string]Scale{}
)

// Register binds a scale to a key like "ielts.listening".
func Register(key string, s Scale) {
	if key == "" || s == nil {
		return
	}
	regMu.Lock()
	defer regMu.Unlock()
	registry[key] = s
}

// Lookup returns a registered scale, or false if none.
func Lookup(key string) (Scale, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	s, ok := registry[key]
	return s, ok
}

// Rescale maps correct out of total onto a test of full questions,
// rounding half up and clamping to [0, full]. A non-positive total or a
// total already equal to full returns correct unchanged.
func Rescale(correct, total, full int) int {
	if total <= 0 || total == full {
		return correct
	}
	if correct <= 0 {
		return 0
	}
	// integer round-half-up of correct*full/total
	v := (2*correct*full + total) / (2 * total)
	if v > full {
		return full
	}
	return v
}
