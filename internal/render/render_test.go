package render

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/kpelzel/artnode/internal/config"
	"tinygo.org/x/bluetooth"
)

// the platform writer must match the signature the renderer calls through
var _ func(*bluetooth.DeviceCharacteristic, []byte) error = write

type writeRecorder struct {
	mu      sync.Mutex
	events  []string
	started chan struct{}
	delay   time.Duration
}

func (w *writeRecorder) write(_ *bluetooth.DeviceCharacteristic, b []byte) error {
	name := "color"
	switch {
	case bytes.Equal(b, cmdOn):
		name = "on"
	case bytes.Equal(b, cmdOff):
		name = "off"
	}

	w.record(name + "-start")
	if name == "color" {
		if w.started != nil {
			close(w.started)
			w.started = nil
		}
		time.Sleep(w.delay)
	}
	w.record(name + "-end")
	return nil
}

func (w *writeRecorder) record(e string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append(w.events, e)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		wantErr bool
	}{
		{"default", "", false},
		{"log", DriverLog, false},
		{"null", DriverNull, false},
		{"unknown", "ws2812-spi", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(0, config.Output{Driver: tt.driver})
			if tt.wantErr {
				if err == nil {
					t.Error("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := r.Render(make([]byte, 30)); err != nil {
				t.Errorf("render failed: %v", err)
			}
		})
	}
}

func TestNewBLEWithoutLights(t *testing.T) {
	if _, err := New(1, config.Output{Driver: DriverBLE}); err == nil {
		t.Error("expected an error for a ble output without lights")
	}
}

func TestLogTracksChanges(t *testing.T) {
	l := &Log{port: 2}
	buf := []byte{1, 2, 3, 4}

	l.Render(buf)
	first := l.prev
	if first == 0 {
		t.Fatal("expected the checksum to be recorded")
	}

	l.Render(buf)
	if l.prev != first {
		t.Error("checksum changed for identical output")
	}

	buf[0] = 9
	l.Render(buf)
	if l.prev == first {
		t.Error("checksum not updated for new output")
	}
}

func testBLE(lights map[string]config.Light) *BLE {
	chars := make(map[string]*bluetooth.DeviceCharacteristic)
	for name := range lights {
		chars[name] = nil
	}
	return &BLE{
		port:      0,
		lights:    lights,
		chars:     chars,
		prev:      make(map[string][3]byte),
		colorChan: make(chan color, 10),
		done:      make(chan struct{}),
		write:     func(*bluetooth.DeviceCharacteristic, []byte) error { return nil },
	}
}

func TestBLERender(t *testing.T) {
	t.Run("queues changed colors only", func(t *testing.T) {
		b := testBLE(map[string]config.Light{
			"desk": {RedByte: 3, GreenByte: 4, BlueByte: 5},
		})
		buf := []byte{0, 0, 0, 10, 20, 30}

		if err := b.Render(buf); err != nil {
			t.Fatalf("render failed: %v", err)
		}
		if err := b.Render(buf); err != nil {
			t.Fatalf("render failed: %v", err)
		}
		if len(b.colorChan) != 1 {
			t.Fatalf("expected 1 queued color, got %d", len(b.colorChan))
		}
		c := <-b.colorChan
		if c.light != "desk" || c.Red != 10 || c.Green != 20 || c.Blue != 30 {
			t.Errorf("unexpected color %+v", c)
		}

		buf[5] = 31
		b.Render(buf)
		if len(b.colorChan) != 1 {
			t.Errorf("expected the changed color to be queued, got %d", len(b.colorChan))
		}
	})

	t.Run("offsets outside the buffer", func(t *testing.T) {
		b := testBLE(map[string]config.Light{
			"far": {RedByte: 100, GreenByte: 101, BlueByte: 102},
		})
		if err := b.Render(make([]byte, 30)); err == nil {
			t.Error("expected an error for offsets outside the output")
		}
	})

	t.Run("full queue drops colors", func(t *testing.T) {
		b := testBLE(map[string]config.Light{
			"desk": {RedByte: 0, GreenByte: 1, BlueByte: 2},
		})
		b.colorChan = make(chan color)

		if err := b.Render([]byte{1, 2, 3}); err != nil {
			t.Errorf("a busy radio must not fail the present: %v", err)
		}
	})
}

func TestBLECloseWaitsForColorWrite(t *testing.T) {
	b := testBLE(map[string]config.Light{
		"desk": {RedByte: 0, GreenByte: 1, BlueByte: 2},
	})
	started := make(chan struct{})
	rec := &writeRecorder{started: started, delay: 50 * time.Millisecond}
	b.write = rec.write

	b.worker.Add(1)
	go b.listenForColor()

	if err := b.Render([]byte{10, 20, 30}); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("color write did not start")
	}

	b.Close()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	want := []string{"color-start", "color-end", "off-start", "off-end"}
	if len(rec.events) != len(want) {
		t.Fatalf("expected events %v, got %v", want, rec.events)
	}
	for i := range want {
		if rec.events[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, rec.events)
		}
	}
}
