package history

import (
	"sort"
	"sync"
	"time"

	"MoonLamp/internal/model"
)

// DefaultRetention is how long samples are kept when none is given.
const DefaultRetention = 20 * time.Minute

// History is a time-ordered window of recent prices, safe for concurrent use.
type History struct {
	mu        sync.RWMutex
	points    []model.PricePoint
	retention time.Duration
}

// New creates a History that keeps samples for retention.
func New(retention time.Duration) *History {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &History{retention: retention}
}

// Add appends a sample and drops those older than the retention,
// measured from the new sample's timestamp.
func (h *History) Add(p model.PricePoint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.points = append(h.points, p)
	if n := len(h.points); n > 1 && p.Timestamp.Before(h.points[n-2].Timestamp) {
		sort.SliceStable(h.points, func(i, j int) bool {
			return h.points[i].Timestamp.Before(h.points[j].Timestamp)
		})
	}
	h.prune(p.Timestamp)
}

// Load replaces the window with the given samples, e.g. read back from storage.
func (h *History) Load(points []model.PricePoint, now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.points = append(h.points[:0], points...)
	sort.SliceStable(h.points, func(i, j int) bool {
		return h.points[i].Timestamp.Before(h.points[j].Timestamp)
	})
	h.prune(now)
}

func (h *History) prune(ref time.Time) {
	cutoff := ref.Add(-h.retention)
	i := 0
	for i < len(h.points) && !h.points[i].Timestamp.After(cutoff) {
		i++
	}
	if i > 0 {
		h.points = append(h.points[:0], h.points[i:]...)
	}
}

// PriceAt returns the price of the sample closest to now-ago. It returns
// false until at least two samples exist. On a tie the older sample wins.
func (h *History) PriceAt(ago time.Duration, now time.Time) (float64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.points) < 2 {
		return 0, false
	}
	target := now.Add(-ago)
	best := h.points[0]
	bestDist := absDuration(best.Timestamp.Sub(target))
	for _, p := range h.points[1:] {
		if d := absDuration(p.Timestamp.Sub(target)); d < bestDist {
			best, bestDist = p, d
		}
	}
	return best.Price, true
}

// Points returns a copy of the window, oldest first.
func (h *History) Points() []model.PricePoint {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]model.PricePoint, len(h.points))
	copy(out, h.points)
	return out
}

// Len returns the number of samples held.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.points)
}

// Retention returns the configured window length.
func (h *History) Retention() time.Duration { return h.retention }

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
