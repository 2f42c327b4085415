package port

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kpelzel/artnode/internal/artnet"
)

type recordRenderer struct {
	mu    sync.Mutex
	calls [][]byte
	err   error
	check func()
}

func (r *recordRenderer) Render(buf []byte) error {
	if r.check != nil {
		r.check()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]byte(nil), buf...))
	return r.err
}

func (r *recordRenderer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *recordRenderer) last() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return nil
	}
	return r.calls[len(r.calls)-1]
}

// fourBySix is four ports of six universes each covering 0-23.
func fourBySix(opts ...FleetOption) (*Fleet, []*recordRenderer) {
	var ports []*Port
	var renderers []*recordRenderer
	for i := 0; i < 4; i++ {
		r := &recordRenderer{}
		renderers = append(renderers, r)
		ports = append(ports, New(i, Config{Start: uint16(i * 6), Count: 6, Renderer: r}))
	}
	return NewFleet(ports, opts...), renderers
}

func TestFleetEndToEnd(t *testing.T) {
	f, renderers := fourBySix()

	for u := uint16(0); u < 24; u++ {
		f.HandleFrame(universeFrame(u))
	}
	for _, p := range f.Ports() {
		if s := p.Stats(); s.Commits != 1 {
			t.Errorf("port[%d]: expected 1 commit, got %d", p.Index(), s.Commits)
		}
	}

	if f.Tick() {
		t.Fatal("presented without a sync request")
	}

	f.RequestSync()
	if !f.Tick() {
		t.Fatal("expected a present after sync")
	}
	if f.Tick() {
		t.Error("one sync request must present once")
	}

	for i, r := range renderers {
		if r.count() != 1 {
			t.Fatalf("port[%d]: expected 1 render, got %d", i, r.count())
		}
		start := uint16(i * 6)
		expectOutput(t, r.last(), start, start+1, start+2, start+3, start+4, start+5)
	}
	if f.Presents() != 1 {
		t.Errorf("expected 1 present, got %d", f.Presents())
	}
}

func TestFleetWindow(t *testing.T) {
	f, _ := fourBySix()
	if start, count := f.Window(); start != 0 || count != 24 {
		t.Errorf("expected window 0+24, got %d+%d", start, count)
	}

	sparse := NewFleet([]*Port{
		New(0, Config{Start: 20, Count: 2}),
		New(1, Config{Start: 4, Count: 3}),
	})
	if start, count := sparse.Window(); start != 4 || count != 18 {
		t.Errorf("expected window 4+18, got %d+%d", start, count)
	}

	if start, count := NewFleet(nil).Window(); start != 0 || count != 0 {
		t.Errorf("expected empty window, got %d+%d", start, count)
	}
}

func TestSyncWithoutCommits(t *testing.T) {
	f, renderers := fourBySix()

	f.RequestSync()
	if !f.Tick() {
		t.Fatal("expected a present after sync")
	}

	zero := make([]byte, 6*artnet.MaxPayload)
	for i, r := range renderers {
		if r.count() != 1 {
			t.Errorf("port[%d]: expected 1 render, got %d", i, r.count())
		}
		if !bytes.Equal(r.last(), zero) {
			t.Errorf("port[%d]: expected a zero buffer", i)
		}
	}
}

func TestRepeatedSyncCollapses(t *testing.T) {
	f, renderers := fourBySix()

	f.RequestSync()
	f.RequestSync()
	f.RequestSync()
	f.Tick()
	f.Tick()

	if renderers[0].count() != 1 {
		t.Errorf("expected one present for pending syncs, got %d", renderers[0].count())
	}
}

func TestFreeRun(t *testing.T) {
	t.Run("presents after a commit", func(t *testing.T) {
		f, renderers := fourBySix(WithFreeRun(true))

		if f.Tick() {
			t.Fatal("presented before any commit")
		}
		for u := uint16(0); u < 6; u++ {
			f.HandleFrame(universeFrame(u))
		}
		if !f.Tick() {
			t.Fatal("expected a present after a commit")
		}
		if f.Tick() {
			t.Error("expected one present per commit")
		}
		expectOutput(t, renderers[0].last(), 0, 1, 2, 3, 4, 5)
	})

	t.Run("sync mode waits for the request", func(t *testing.T) {
		f, renderers := fourBySix(WithFreeRun(false))

		for u := uint16(0); u < 6; u++ {
			f.HandleFrame(universeFrame(u))
		}
		if f.Tick() {
			t.Error("presented without a sync request")
		}
		if renderers[0].count() != 0 {
			t.Errorf("expected no renders, got %d", renderers[0].count())
		}
	})
}

func TestPresentHoldsEveryLock(t *testing.T) {
	f, renderers := fourBySix()

	var held []bool
	renderers[0].check = func() {
		for _, p := range f.Ports() {
			ok := p.mu.TryLock()
			if ok {
				p.mu.Unlock()
			}
			held = append(held, !ok)
		}
	}

	f.RequestSync()
	f.Tick()

	if len(held) != 4 {
		t.Fatalf("expected 4 lock checks, got %d", len(held))
	}
	for i, h := range held {
		if !h {
			t.Errorf("port[%d] buffer unlocked during present", i)
		}
	}
	for _, p := range f.Ports() {
		if !p.mu.TryLock() {
			t.Fatalf("port[%d] still locked after present", p.Index())
		}
		p.mu.Unlock()
	}
}

func TestCommitRetriedOnNextFrame(t *testing.T) {
	f, renderers := fourBySix()
	p := f.Ports()[0]

	for u := uint16(0); u < 5; u++ {
		f.HandleFrame(universeFrame(u))
	}

	p.mu.Lock()
	f.HandleFrame(universeFrame(5))
	p.mu.Unlock()

	if !p.IsFull() || p.Stats().Skips != 1 {
		t.Fatalf("expected a skipped commit, got full=%v stats=%+v", p.IsFull(), p.Stats())
	}

	f.HandleFrame(universeFrame(20))
	if p.IsFull() || p.Stats().Commits != 1 {
		t.Fatalf("expected the next frame to commit, got full=%v stats=%+v", p.IsFull(), p.Stats())
	}

	f.RequestSync()
	f.Tick()
	expectOutput(t, renderers[0].last(), 0, 1, 2, 3, 4, 5)
}

func TestRenderErrorDoesNotStopPresent(t *testing.T) {
	f, renderers := fourBySix()
	renderers[1].err = errors.New("strip disconnected")

	f.RequestSync()
	f.Tick()

	for i, r := range renderers {
		if r.count() != 1 {
			t.Errorf("port[%d]: expected 1 render, got %d", i, r.count())
		}
	}
}

func TestServe(t *testing.T) {
	f, renderers := fourBySix(WithInterval(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- f.Serve(ctx)
	}()

	f.RequestSync()
	deadline := time.Now().Add(2 * time.Second)
	for renderers[0].count() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if renderers[0].count() == 0 {
		t.Error("service loop did not present")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("expected nil on shutdown, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("service loop did not stop")
	}
}
