package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion
	DatagramsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artnode_datagrams_total",
			Help: "Art-Net datagrams received, by class (dmx, sync, discovery, unknown, short)",
		},
		[]string{"class"},
	)

	FramesAcceptedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "artnode_frames_accepted_total",
			Help: "DMX frames inside the device universe window",
		},
	)

	FramesFilteredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "artnode_frames_filtered_total",
			Help: "DMX frames dropped because they fall outside the device universe window",
		},
	)

	// Ports
	PortCommitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artnode_port_commits_total",
			Help: "Completed universe cycles copied into a port output buffer",
		},
		[]string{"port"},
	)

	PortCommitSkipsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artnode_port_commit_skips_total",
			Help: "Commits skipped because the output buffer was being presented",
		},
		[]string{"port"},
	)

	PortRestartsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artnode_port_restarts_total",
			Help: "Cycles abandoned because the start universe arrived again mid-cycle",
		},
		[]string{"port"},
	)

	// Presenting
	PresentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "artnode_presents_total",
			Help: "Atomic presents across all ports",
		},
	)

	PresentDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "artnode_present_duration_seconds",
			Help:    "Time spent holding every output buffer lock during a present",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025},
		},
	)

	RenderErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artnode_render_errors_total",
			Help: "Renderer failures during a present",
		},
		[]string{"port"},
	)

	// Reception
	ReceptionRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "artnode_reception_rate",
			Help: "Fraction of expected universes received over the last window",
		},
	)

	// Configuration
	ConfigRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artnode_config_requests_total",
			Help: "Config protocol requests, by command and result",
		},
		[]string{"command", "result"},
	)

	AdminRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artnode_admin_requests_total",
			Help: "Administrative JSON requests, by action and error code",
		},
		[]string{"action", "code"},
	)
)
