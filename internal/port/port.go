package port

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/kpelzel/artnode/internal/artnet"
	"github.com/kpelzel/artnode/internal/metrics"
)

// Renderer pushes a presented output buffer to the physical output. Implementations own
// all chipset specific timing; buf is only valid for the duration of the call.
type Renderer interface {
	Render(buf []byte) error
}

type Config struct {
	Start uint16
	Count uint16
	// OutputLen is the number of buffer bytes handed to the renderer on a present.
	OutputLen int
	Renderer  Renderer
}

// Port accumulates the universes [start, end) of one physical output. TryAdd, IsFull and
// Commit are called from a single producer goroutine; the output buffer is shared with the
// fleet's service loop and guarded by mu.
type Port struct {
	index int
	label string

	start  int
	end    int
	cursor int

	pending []*artnet.Frame

	mu        sync.Mutex
	buf       []byte
	outputLen int
	renderer  Renderer

	commits  atomic.Uint64
	skips    atomic.Uint64
	restarts atomic.Uint64
}

// New allocates the pending list and output buffer up front so the receive path never
// allocates.
func New(index int, c Config) *Port {
	capacity := int(c.Count) * artnet.MaxPayload
	outputLen := c.OutputLen
	if outputLen <= 0 || outputLen > capacity {
		outputLen = capacity
	}
	r := c.Renderer
	if r == nil {
		r = discard{}
	}

	return &Port{
		index:     index,
		label:     strconv.Itoa(index),
		start:     int(c.Start),
		end:       int(c.Start) + int(c.Count),
		cursor:    int(c.Start),
		pending:   make([]*artnet.Frame, 0, c.Count),
		buf:       make([]byte, capacity),
		outputLen: outputLen,
		renderer:  r,
	}
}

func (p *Port) Index() int {
	return p.index
}

// Range returns the universes [start, end) the port accumulates.
func (p *Port) Range() (start, end int) {
	return p.start, p.end
}

func (p *Port) Cursor() int {
	return p.cursor
}

func (p *Port) Pending() int {
	return len(p.pending)
}

func (p *Port) IsFull() bool {
	return p.cursor == p.end
}

// TryAdd offers a frame to the port. The expected universe advances the cursor; the start
// universe arriving mid-cycle means the previous cycle lost a frame and will never
// complete, so the port starts over with this frame. Anything else is ignored.
func (p *Port) TryAdd(f *artnet.Frame) {
	if p.IsFull() {
		return
	}

	u := int(f.Universe())
	switch {
	case u == p.cursor:
		p.pending = append(p.pending, f)
		p.cursor++
	case u == p.start:
		clear(p.pending)
		p.pending = append(p.pending[:0], f)
		p.cursor = p.start + 1
		p.restarts.Add(1)
		metrics.PortRestartsTotal.WithLabelValues(p.label).Inc()
	}
}

// Commit copies the pending payloads into the output buffer. It never waits for the
// buffer lock: if a present holds it the commit is skipped, the port stays full and the
// caller has to commit again.
func (p *Port) Commit() bool {
	if !p.mu.TryLock() {
		p.skips.Add(1)
		metrics.PortCommitSkipsTotal.WithLabelValues(p.label).Inc()
		return false
	}

	off := 0
	for _, f := range p.pending {
		off += copy(p.buf[off:], f.Payload())
	}
	p.mu.Unlock()

	p.cursor = p.start
	clear(p.pending)
	p.pending = p.pending[:0]
	p.commits.Add(1)
	metrics.PortCommitsTotal.WithLabelValues(p.label).Inc()
	return true
}

// render must be called with mu held.
func (p *Port) render() error {
	return p.renderer.Render(p.buf[:p.outputLen])
}

// Output returns a copy of the output buffer.
func (p *Port) Output() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]byte, len(p.buf))
	copy(out, p.buf)
	return out
}

type Stats struct {
	Port     int    `json:"Port"`
	Start    int    `json:"StartUniverse"`
	Count    int    `json:"NoUniverses"`
	Commits  uint64 `json:"Commits"`
	Skips    uint64 `json:"CommitSkips"`
	Restarts uint64 `json:"Restarts"`
}

func (p *Port) Stats() Stats {
	return Stats{
		Port:     p.index,
		Start:    p.start,
		Count:    p.end - p.start,
		Commits:  p.commits.Load(),
		Skips:    p.skips.Load(),
		Restarts: p.restarts.Load(),
	}
}

type discard struct{}

func (discard) Render([]byte) error { return nil }
