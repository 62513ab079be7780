// Package metrics holds the Prometheus collectors for search sessions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SearchLeaves counts fully simulated candidate sequences.
	SearchLeaves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bruteforce_leaves_total",
		Help: "Total number of candidate sequences simulated to full depth",
	})

	// SearchSessions counts finished sessions by outcome.
	SearchSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bruteforce_sessions_total",
		Help: "Total number of finished search sessions by outcome",
	}, []string{"outcome"})

	// SearchActive is 1 while a session is running.
	SearchActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bruteforce_session_active",
		Help: "Whether a search session is currently running",
	})

	// SearchVolume is the size of the current (or last) search space.
	SearchVolume = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bruteforce_session_volume",
		Help: "Number of sequences in the current search space",
	})

	// SearchProgress is the explored fraction of the current search space.
	SearchProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bruteforce_session_progress_ratio",
		Help: "Explored fraction of the current search space",
	})

	// SearchDuration observes wall time of finished sessions.
	SearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bruteforce_session_duration_seconds",
		Help:    "Wall time of finished search sessions",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	})

	// KeyFrameRestores counts rewinds to a stored key frame.
	KeyFrameRestores = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bruteforce_keyframe_restores_total",
		Help: "Total number of key frame restores",
	})

	// ReplayCommands counts commands fed from the replay queue.
	ReplayCommands = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bruteforce_replay_commands_total",
		Help: "Total number of commands replayed from the command queue",
	})

	// WorldTics counts simulation steps taken by the host.
	WorldTics = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bruteforce_world_tics_total",
		Help: "Total number of simulation tics by input source",
	}, []string{"source"})
)
