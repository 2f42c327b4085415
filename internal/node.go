package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/kpelzel/artnode/internal/admin"
	"github.com/kpelzel/artnode/internal/artnet"
	"github.com/kpelzel/artnode/internal/config"
	"github.com/kpelzel/artnode/internal/port"
	"github.com/kpelzel/artnode/internal/render"
	"github.com/kpelzel/artnode/internal/server"
	"github.com/kpelzel/artnode/internal/settings"
	"github.com/kpelzel/artnode/internal/status"
	"github.com/kpelzel/artnode/internal/version"
	log "github.com/sirupsen/logrus"
	"github.com/thejerf/suture/v4"
	"golang.org/x/time/rate"
)

const (
	artnetBufferLen = 1024
	adminBufferLen  = 1024
)

// node holds the engine of one session: the ports built from the current settings, the
// statistics over the accepted universes and the protocol handlers feeding them.
type node struct {
	store   *settings.Store
	fleet   *port.Fleet
	stats   *status.Stats
	replier artnet.Replier

	windowStart int
	windowEnd   int

	dropLog *rate.Limiter
}

func newNode(store *settings.Store, fleet *port.Fleet, statsWindow int, replier artnet.Replier) *node {
	start, count := fleet.Window()
	return &node{
		store:       store,
		fleet:       fleet,
		stats:       status.New(start, count, statsWindow),
		replier:     replier,
		windowStart: start,
		windowEnd:   start + count,
		dropLog:     rate.NewLimiter(rate.Every(time.Second), 10),
	}
}

func (n *node) Report() status.Report {
	return status.NewReport(n.stats, n.fleet)
}

// buildFleet creates one port per configured output with the renderer bound to it.
func buildFleet(cfg *config.Config, cur settings.Settings) (*port.Fleet, []render.Closer, error) {
	var closers []render.Closer
	ports := make([]*port.Port, 0, len(cur.Ports))

	for i, ps := range cur.Ports {
		r, err := render.New(i, cfg.OutputFor(i))
		if err != nil {
			closeAll(closers)
			return nil, nil, fmt.Errorf("failed to create renderer for port[%v]: %w", i, err)
		}
		if c, ok := r.(render.Closer); ok {
			closers = append(closers, c)
		}

		ports = append(ports, port.New(i, port.Config{
			Start:     ps.StartUniverse,
			Count:     ps.NoUniverses,
			OutputLen: cur.OutputLen(ps),
			Renderer:  r,
		}))
		log.Infof("port[%v]: universes %v-%v, %v %v leds, driver %v",
			i, ps.StartUniverse, int(ps.StartUniverse)+int(ps.NoUniverses)-1, ps.LedCount, cur.LedType, cfg.OutputFor(i).Driver)
	}

	fleet := port.NewFleet(ports,
		port.WithInterval(cfg.Engine.ServiceInterval),
		port.WithFreeRun(!cur.ArtNetSync),
	)
	return fleet, closers, nil
}

func closeAll(closers []render.Closer) {
	for _, c := range closers {
		c.Close()
	}
}

// StartNode runs the node until it is interrupted. Saving or resetting the settings
// rebuilds the session so the new port layout takes effect.
func StartNode(debug bool, configPath string) error {
	if debug {
		log.SetLevel(log.DebugLevel)
	}

	version.Log()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log.Debugf("config: %+v", cfg)

	store, err := settings.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		reload, err := runSession(ctx, cfg, store)
		if err != nil {
			return err
		}
		if !reload {
			log.Info("shutting down")
			return nil
		}
		log.Info("settings changed, restarting session")
	}
}

func runSession(ctx context.Context, cfg *config.Config, store *settings.Store) (bool, error) {
	cur := store.Current()

	fleet, closers, err := buildFleet(cfg, cur)
	if err != nil {
		return false, err
	}
	defer closeAll(closers)

	artnetAddr := net.JoinHostPort(cfg.Input.IP, strconv.Itoa(cfg.Input.ArtNetPort))
	artnetConn, err := net.ListenPacket("udp", artnetAddr)
	if err != nil {
		return false, fmt.Errorf("failed to listen on %v: %w", artnetAddr, err)
	}
	defer artnetConn.Close()

	adminAddr := net.JoinHostPort(cfg.Input.IP, strconv.Itoa(cfg.Input.AdminPort))
	adminConn, err := net.ListenPacket("udp", adminAddr)
	if err != nil {
		return false, fmt.Errorf("failed to listen on %v: %w", adminAddr, err)
	}
	defer adminConn.Close()

	n := newNode(store, fleet, cfg.Engine.StatsWindow, artnetConn)
	router, err := artnet.NewRouter(n.handleDMX, n.handleSync, n.handleDiscovery)
	if err != nil {
		log.Fatalf("failed to wire art-net router: %v", err)
	}
	adminHandler := admin.New(store, n, adminConn)

	log.Infof("device window: universes %v-%v, artnet sync: %v", n.windowStart, n.windowEnd-1, cur.ArtNetSync)

	sup := suture.New("artnode", suture.Spec{
		EventHook: func(e suture.Event) {
			log.Warnf("supervisor: %v", e)
		},
	})
	sup.Add(server.NewListener("art-net", artnetConn, artnetBufferLen, router.Dispatch))
	sup.Add(server.NewListener("admin", adminConn, adminBufferLen, adminHandler.Dispatch))
	sup.Add(fleet)
	sup.Add(&statusReporter{node: n, interval: cfg.Engine.StatusInterval})
	if cfg.Metrics.Addr != "" {
		sup.Add(server.NewHTTP(cfg.Metrics.Addr, func() any { return n.Report() }))
	}

	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	reload := make(chan bool, 1)
	go func() {
		select {
		case <-store.Changed():
			reload <- true
			cancel()
		case <-sessCtx.Done():
			reload <- false
		}
	}()

	err = sup.Serve(sessCtx)
	stopped := sessCtx.Err() != nil
	cancel()
	if err != nil && !stopped && !errors.Is(err, context.Canceled) {
		return false, fmt.Errorf("session failed: %w", err)
	}
	return <-reload, nil
}

// statusReporter logs the settings once and the reception status periodically.
type statusReporter struct {
	node     *node
	interval time.Duration
}

func (s *statusReporter) Serve(ctx context.Context) error {
	log.Infof("settings: %+v", s.node.store.Current())
	if s.interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r := s.node.Report()
			log.WithFields(log.Fields{
				"dmx_count":      r.DMXCount,
				"reception_rate": fmt.Sprintf("%.4f", r.ReceptionRate),
				"presents":       r.Presents,
			}).Info("status")
			for _, p := range r.Ports {
				log.Debugf("port[%v]: commits %v, skips %v, restarts %v", p.Port, p.Commits, p.Skips, p.Restarts)
			}
		}
	}
}

func (s *statusReporter) String() string {
	return "status-reporter"
}
