package port

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/kpelzel/artnode/internal/artnet"
	"github.com/kpelzel/artnode/internal/metrics"
	log "github.com/sirupsen/logrus"
)

const DefaultInterval = time.Millisecond

// Fleet fans frames out to every port and presents all output buffers at once when a
// sync is requested.
type Fleet struct {
	ports    []*Port
	interval time.Duration

	// freeRun presents after any commit instead of waiting for a sync request
	freeRun bool

	syncRequested atomic.Bool
	dirty         atomic.Bool
	presents      atomic.Uint64
}

type FleetOption func(*Fleet)

func WithInterval(d time.Duration) FleetOption {
	return func(f *Fleet) {
		if d > 0 {
			f.interval = d
		}
	}
}

// WithFreeRun presents on the first service tick after a commit, for senders that never
// emit ArtSync.
func WithFreeRun(enabled bool) FleetOption {
	return func(f *Fleet) {
		f.freeRun = enabled
	}
}

// NewFleet takes the ports in port number order; that order is also the lock order used
// by every present.
func NewFleet(ports []*Port, opts ...FleetOption) *Fleet {
	f := &Fleet{
		ports:    ports,
		interval: DefaultInterval,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

func (f *Fleet) Ports() []*Port {
	return f.ports
}

// Window returns the union [start, start+count) of all port ranges.
func (f *Fleet) Window() (start, count int) {
	if len(f.ports) == 0 {
		return 0, 0
	}
	lo, hi := f.ports[0].Range()
	for _, p := range f.ports[1:] {
		s, e := p.Range()
		lo = min(lo, s)
		hi = max(hi, e)
	}
	return lo, hi - lo
}

// HandleFrame offers the frame to every port and commits each port it completes.
func (f *Fleet) HandleFrame(fr *artnet.Frame) {
	for _, p := range f.ports {
		p.TryAdd(fr)
		if p.IsFull() && p.Commit() {
			f.dirty.Store(true)
		}
	}
}

// RequestSync marks the committed buffers for presentation on the next tick.
func (f *Fleet) RequestSync() {
	f.syncRequested.Store(true)
}

// Tick runs one iteration of the service loop and reports whether it presented.
func (f *Fleet) Tick() bool {
	if f.syncRequested.CompareAndSwap(true, false) {
		f.dirty.Store(false)
		f.present()
		return true
	}
	if f.freeRun && f.dirty.CompareAndSwap(true, false) {
		f.present()
		return true
	}
	return false
}

func (f *Fleet) Presents() uint64 {
	return f.presents.Load()
}

// present holds every output buffer lock, acquired in port order, while the renderers run
// so that no port is shown half written and all ports latch together.
func (f *Fleet) present() {
	start := time.Now()
	for _, p := range f.ports {
		p.mu.Lock()
	}

	for _, p := range f.ports {
		if err := p.render(); err != nil {
			metrics.RenderErrorsTotal.WithLabelValues(p.label).Inc()
			log.Debugf("failed to render port[%v]: %v", p.index, err)
		}
	}

	for i := len(f.ports) - 1; i >= 0; i-- {
		f.ports[i].mu.Unlock()
	}

	f.presents.Add(1)
	metrics.PresentsTotal.Inc()
	metrics.PresentDuration.Observe(time.Since(start).Seconds())
}

// Serve runs the service loop until ctx is done.
func (f *Fleet) Serve(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	log.Infof("port service loop running every %v for %v ports (free run: %v)", f.interval, len(f.ports), f.freeRun)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			f.Tick()
		}
	}
}

func (f *Fleet) String() string {
	return "port-fleet"
}
