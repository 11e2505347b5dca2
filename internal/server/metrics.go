package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics with bounded cardinality: no per-client labels.
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gridfort_tick_duration_seconds",
		Help:    "Time spent in one world tick",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05},
	})

	connectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gridfort_connected_clients",
		Help: "Currently connected clients",
	})

	packetsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridfort_packets_received_total",
		Help: "UDP datagrams received",
	})

	snapshotBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridfort_snapshot_bytes_total",
		Help: "Snapshot payload bytes sent",
	}, []string{"kind"}) // kind is "full" or "delta"

	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridfort_connection_rejected_total",
		Help: "Connections rejected before join",
	}, []string{"reason"}) // bounded: "full", "connecting_cap", "per_ip", "banned"

	clientsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridfort_clients_dropped_total",
		Help: "Clients dropped after connecting",
	}, []string{"reason"}) // bounded: "timeout", "kicked", "protocol", "quit"
)
