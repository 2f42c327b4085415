package artnet

import (
	"encoding/binary"
	"net"
	"testing"
)

type recorder struct {
	dmx, sync, discovery int
}

func (r *recorder) router(t *testing.T) *Router {
	t.Helper()
	rt, err := NewRouter(
		func([]byte, net.Addr) { r.dmx++ },
		func([]byte, net.Addr) { r.sync++ },
		func([]byte, net.Addr) { r.discovery++ },
	)
	if err != nil {
		t.Fatalf("failed to create router: %v", err)
	}
	return rt
}

func withOpcode(op uint16, size int) []byte {
	b := make([]byte, size)
	copy(b, ID[:])
	binary.LittleEndian.PutUint16(b[opcodeOffset:], op)
	return b
}

func TestRouterDispatch(t *testing.T) {
	sender := &net.UDPAddr{IP: net.IPv4(192, 168, 1, 10), Port: 6454}

	t.Run("routes each class to one handler", func(t *testing.T) {
		r := &recorder{}
		rt := r.router(t)

		rt.Dispatch(BuildDmx(0, 0, 514, make([]byte, 512)), sender)
		rt.Dispatch(BuildSync(), sender)
		rt.Dispatch(withOpcode(OpDiscovery, 20), sender)

		if r.dmx != 1 || r.sync != 1 || r.discovery != 1 {
			t.Errorf("expected one call per handler, got dmx=%d sync=%d discovery=%d", r.dmx, r.sync, r.discovery)
		}
	})

	t.Run("drops datagrams shorter than ten bytes", func(t *testing.T) {
		r := &recorder{}
		rt := r.router(t)

		for n := 0; n < MinPacketSize; n++ {
			rt.Dispatch(withOpcode(OpDmx, 10)[:n], sender)
		}
		if r.dmx+r.sync+r.discovery != 0 {
			t.Errorf("short datagrams reached a handler: %+v", r)
		}
	})

	t.Run("ten byte datagram is classified", func(t *testing.T) {
		r := &recorder{}
		rt := r.router(t)

		rt.Dispatch(withOpcode(OpSync, MinPacketSize), sender)
		if r.sync != 1 {
			t.Errorf("expected sync handler to run, got %d calls", r.sync)
		}
	})

	t.Run("ignores unknown opcodes", func(t *testing.T) {
		r := &recorder{}
		rt := r.router(t)

		rt.Dispatch(withOpcode(0x2100, 64), sender)
		rt.Dispatch(withOpcode(0x0050, 64), sender)
		if r.dmx+r.sync+r.discovery != 0 {
			t.Errorf("unknown opcode reached a handler: %+v", r)
		}
	})
}

func TestNewRouterRequiresHandlers(t *testing.T) {
	h := func([]byte, net.Addr) {}

	tests := []struct {
		name                string
		dmx, sync, discover Handler
	}{
		{"missing dmx", nil, h, h},
		{"missing sync", h, nil, h},
		{"missing discovery", h, h, nil},
		{"missing all", nil, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRouter(tt.dmx, tt.sync, tt.discover); err == nil {
				t.Error("expected an error for a missing handler")
			}
		})
	}
}
