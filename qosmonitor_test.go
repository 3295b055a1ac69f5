// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package main

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQosMonitorDummyNoOp(t *testing.T) {
	e, _ := newTestEngine(t)
	e.AddTerminal(1, "ue1", 20, 1000)
	stats := QosMonitorDummy{}.GetQoS(e)
	assert.Nil(t, stats)
}

func TestQosMonitorDefaultBreachIncrementsMetric(t *testing.T) {
	e, bufs := newTestEngine(t, WithTraceQoS(true))
	term := e.AddTerminal(1, "ue1", 20, 1000)
	flow, ok := e.registry.Get(term.DefaultFlow)
	require.True(t, ok)
	flow.QCI = 3 // MaxErrorRate 1e-3

	sec := e.now.NearestSecond()
	flow.loss[sec] = 100
	flow.throughput[sec] = 100 // 50% loss, well past the 0.1% target

	stats := QosMonitorDefault{}.GetQoS(e)
	st, ok := stats[flow.Key]
	require.True(t, ok)
	assert.InDelta(t, 0.5, st.LossPct, 1e-9)

	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.QosViolations.WithLabelValues("3")))
	assert.Contains(t, bufs.qos.String(), "QCI 3")
}

func TestQosMonitorDefaultNoBreachWithinTarget(t *testing.T) {
	e, _ := newTestEngine(t)
	term := e.AddTerminal(1, "ue1", 20, 1000)
	flow, _ := e.registry.Get(term.DefaultFlow)
	flow.QCI = 9 // MaxErrorRate 1e-6, MaxDelayMs 300

	sec := e.now.NearestSecond()
	flow.throughput[sec] = 1000

	QosMonitorDefault{}.GetQoS(e)
	assert.Equal(t, float64(0), testutil.ToFloat64(e.metrics.QosViolations.WithLabelValues("9")))
}

func TestQosMonitorPreemptionOnBreach(t *testing.T) {
	e, _ := newTestEngine(t, WithPreemptQoS(true), WithPreemptionPolicy(PreemptionSamplePreemptAll{}))
	term := e.AddTerminal(1, "ue1", 20, 1_000_000)

	victim, accepted, err := e.activateFlow(FlowKey{Terminal: term.IMSI, ID: term.allocateBID()},
		3, 1000, 1000, true, false, 20, 1000, term.MCS, term.allocatePort)
	require.NoError(t, err)
	require.True(t, accepted)
	term.dedicatedCount++

	struggler, accepted, err := e.activateFlow(FlowKey{Terminal: term.IMSI, ID: term.allocateBID()},
		3, 1000, 1000, false, false, 5, 1000, term.MCS, term.allocatePort)
	require.NoError(t, err)
	require.True(t, accepted)
	term.dedicatedCount++

	sec := e.now.NearestSecond()
	struggler.loss[sec] = 100
	struggler.throughput[sec] = 0 // 100% loss, breaches the struggler's own target

	QosMonitorDefault{}.GetQoS(e)

	_, stillThere := e.registry.Get(victim.Key)
	assert.False(t, stillThere, "lower-priority victim torn down to relieve the struggling flow")
}
