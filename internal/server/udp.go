package server

import (
	"context"
	"errors"
	"net"
	"time"

	log "github.com/sirupsen/logrus"
)

const readTimeout = 100 * time.Millisecond

// Listener reads datagrams into one reused buffer and dispatches each synchronously: the
// next datagram is only read after dispatch returns.
type Listener struct {
	name     string
	conn     net.PacketConn
	bufSize  int
	dispatch func(data []byte, sender net.Addr)
}

func NewListener(name string, conn net.PacketConn, bufSize int, dispatch func([]byte, net.Addr)) *Listener {
	return &Listener{
		name:     name,
		conn:     conn,
		bufSize:  bufSize,
		dispatch: dispatch,
	}
}

func (l *Listener) Serve(ctx context.Context) error {
	buf := make([]byte, l.bufSize)

	log.Infof("listening on %v for %v packets", l.conn.LocalAddr(), l.name)
	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := l.conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return err
		}
		n, addr, err := l.conn.ReadFrom(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Errorf("error reading %v packet: %v", l.name, err)
			continue
		}

		l.dispatch(buf[:n], addr)
	}
}

func (l *Listener) String() string {
	return l.name + "-listener"
}
