package render

import (
	"fmt"
	"hash/crc32"

	"github.com/kpelzel/artnode/internal/config"
	"github.com/kpelzel/artnode/internal/port"
	log "github.com/sirupsen/logrus"
)

const (
	DriverNull = "null"
	DriverLog  = "log"
	DriverBLE  = "ble"
)

// Closer is implemented by renderers holding hardware connections.
type Closer interface {
	Close()
}

// New builds the renderer configured for one port.
func New(index int, o config.Output) (port.Renderer, error) {
	switch o.Driver {
	case "", DriverLog:
		return &Log{port: index}, nil
	case DriverNull:
		return Null{}, nil
	case DriverBLE:
		return NewBLE(index, o.Lights)
	default:
		return nil, fmt.Errorf("unknown output driver %q for port[%v]", o.Driver, index)
	}
}

// Null discards every presented buffer.
type Null struct{}

func (Null) Render([]byte) error { return nil }

// Log traces a summary of each presented buffer, for running without output hardware.
type Log struct {
	port int
	prev uint32
}

func (l *Log) Render(buf []byte) error {
	sum := crc32.ChecksumIEEE(buf)
	if sum == l.prev {
		return nil
	}
	l.prev = sum

	fields := log.Fields{
		"port":  l.port,
		"bytes": len(buf),
		"crc":   fmt.Sprintf("%08x", sum),
	}
	if len(buf) >= 3 {
		fields["first"] = fmt.Sprintf("%02x%02x%02x", buf[0], buf[1], buf[2])
	}
	log.WithFields(fields).Debug("presented output")
	return nil
}
