package status

import (
	"sync"

	"github.com/kpelzel/artnode/internal/metrics"
)

const DefaultWindow = 1000

// Stats derives the reception rate from the sequence of accepted universes. Gaps between
// consecutive universes count as lost frames; a universe at or below the previous one is
// taken as a wrap to the start of the device window.
type Stats struct {
	start  int
	count  int
	window int

	mu          sync.Mutex
	dmxCount    int64
	lastOffset  int
	windowCount int
	windowLost  int
	rate        float64
}

type Snapshot struct {
	DMXCount      int64   `json:"DMXCount"`
	ReceptionRate float64 `json:"ReceptionRate"`
}

// New tracks universes of the device window [start, start+count), computing a new rate
// every window observations.
func New(start, count, window int) *Stats {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Stats{
		start:      start,
		count:      count,
		window:     window,
		lastOffset: -1,
	}
}

func (s *Stats) Observe(universe uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dmxCount++

	offset := int(universe) - s.start
	if s.lastOffset != -1 {
		if s.lastOffset < offset {
			s.windowLost += offset - s.lastOffset - 1
		} else {
			s.windowLost += s.count - 1 + offset - s.lastOffset
		}
	}
	s.lastOffset = offset

	s.windowCount++
	if s.windowCount >= s.window {
		s.rate = float64(s.windowCount) / float64(s.windowCount+s.windowLost)
		s.windowCount = 0
		s.windowLost = 0
		metrics.ReceptionRate.Set(s.rate)
	}
}

func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		DMXCount:      s.dmxCount,
		ReceptionRate: s.rate,
	}
}
