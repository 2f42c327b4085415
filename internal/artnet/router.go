package artnet

import (
	"encoding/binary"
	"errors"
	"net"
	"time"

	"github.com/kpelzel/artnode/internal/metrics"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Router classifies Art-Net datagrams by opcode and hands each one to exactly one handler.
type Router struct {
	dmx       Handler
	sync      Handler
	discovery Handler

	dropLog *rate.Limiter
}

// NewRouter requires every traffic class to have a handler. A nil handler is a wiring
// mistake and is reported instead of silently discarding that class of traffic.
func NewRouter(dmx, sync, discovery Handler) (*Router, error) {
	var errs []error
	if dmx == nil {
		errs = append(errs, errors.New("no dmx handler registered"))
	}
	if sync == nil {
		errs = append(errs, errors.New("no sync handler registered"))
	}
	if discovery == nil {
		errs = append(errs, errors.New("no discovery handler registered"))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return &Router{
		dmx:       dmx,
		sync:      sync,
		discovery: discovery,
		dropLog:   rate.NewLimiter(rate.Every(time.Second), 10),
	}, nil
}

// Dispatch runs synchronously on the receiving goroutine; the next datagram is not read
// until the handler returns.
func (r *Router) Dispatch(data []byte, sender net.Addr) {
	if len(data) < MinPacketSize {
		metrics.DatagramsTotal.WithLabelValues("short").Inc()
		if r.dropLog.Allow() {
			log.Tracef("dropping %v byte datagram from %v: too short", len(data), sender)
		}
		return
	}

	op := binary.LittleEndian.Uint16(data[opcodeOffset : opcodeOffset+2])
	switch op {
	case OpDmx:
		metrics.DatagramsTotal.WithLabelValues("dmx").Inc()
		r.dmx(data, sender)
	case OpSync:
		metrics.DatagramsTotal.WithLabelValues("sync").Inc()
		r.sync(data, sender)
	case OpDiscovery:
		metrics.DatagramsTotal.WithLabelValues("discovery").Inc()
		r.discovery(data, sender)
	default:
		metrics.DatagramsTotal.WithLabelValues("unknown").Inc()
		if r.dropLog.Allow() {
			log.Tracef("dropping datagram from %v: unknown opcode 0x%04x", sender, op)
		}
	}
}
