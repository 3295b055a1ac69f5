// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package main

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors for one Engine's run. Each Engine
// registers against its own private Registry (never
// prometheus.DefaultRegisterer), so multiple Engines can coexist in one
// process without collector-name collisions.
type Metrics struct {
	Registry *prometheus.Registry

	RBAllocated     *prometheus.CounterVec
	FlowLossBytes   *prometheus.CounterVec
	FlowThroughput  *prometheus.CounterVec
	QosViolations   *prometheus.CounterVec
	AdmissionDenied prometheus.Counter
	Preemptions     prometheus.Counter
}

// NewMetrics constructs and registers a fresh Metrics against a new private
// registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		RBAllocated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qppsim",
			Name:      "rb_allocated_total",
			Help:      "Total resource blocks allocated, by allocation kind.",
		}, []string{"kind"}),
		FlowLossBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qppsim",
			Name:      "flow_loss_bytes_total",
			Help:      "Total bytes dropped on enqueue, by QCI.",
		}, []string{"qci"}),
		FlowThroughput: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qppsim",
			Name:      "flow_throughput_bytes_total",
			Help:      "Total bytes delivered, by QCI.",
		}, []string{"qci"}),
		QosViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qppsim",
			Name:      "qos_violations_total",
			Help:      "Total QoS target breaches observed, by QCI.",
		}, []string{"qci"}),
		AdmissionDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "qppsim",
			Name:      "admission_denied_total",
			Help:      "Total flow activation/modification requests denied.",
		}),
		Preemptions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "qppsim",
			Name:      "preemptions_total",
			Help:      "Total flows torn down by pre-emption.",
		}),
	}
	reg.MustRegister(m.RBAllocated, m.FlowLossBytes, m.FlowThroughput, m.QosViolations, m.AdmissionDenied, m.Preemptions)
	return m
}
