// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testBuffers struct {
	topology, traffic, lifecycle, admission, qos *bytes.Buffer
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *testBuffers) {
	t.Helper()
	bufs := &testBuffers{
		topology:  &bytes.Buffer{},
		traffic:   &bytes.Buffer{},
		lifecycle: &bytes.Buffer{},
		admission: &bytes.Buffer{},
		qos:       &bytes.Buffer{},
	}
	tracer := NewTracer(bufs.topology, bufs.traffic, bufs.lifecycle, bufs.admission, bufs.qos)
	cfg := NewConfig(opts...)
	return NewEngine(cfg, tracer), bufs
}

// S1: pure CBR traffic on the default flow produces TX/RX trace lines and
// the default flow survives to the end of the run.
func TestScenarioS1PureCBR(t *testing.T) {
	e, bufs := newTestEngine(t, WithStopTime(500*Millisecond))
	term := e.AddTerminal(1, "ue1", 20, 1_000_000)
	e.NewApplicationFromProfile(term, "app", CBRProfile("app", 200, 0.05), 0, e.cfg.StopTime, true)

	require.NoError(t, e.Run())

	assert.Contains(t, bufs.traffic.String(), " TX ")
	assert.Contains(t, bufs.traffic.String(), " RX ")

	flow, ok := e.registry.Get(term.DefaultFlow)
	require.True(t, ok)
	assert.True(t, flow.IsDefault())
}

// S2: a GBR activation request exceeding the RB budget, without pre-emption
// capability, is denied and the application falls back to the default flow.
func TestScenarioS2AdmissionDenial(t *testing.T) {
	e, bufs := newTestEngine(t, WithNumRBs(1), WithStopTime(50*Millisecond),
		WithPriorityPolicy(NewFixedPriorityPolicy(3, 64_000_000, 64_000_000, 10, false, false)))
	term := e.AddTerminal(1, "ue1", 0, 1_000_000)
	app := e.NewApplicationFromProfile(term, "app", CBRProfile("app", 200, 1), 0, e.cfg.StopTime, false)

	require.NoError(t, e.Run())

	fk, bound := app.Flow()
	require.True(t, bound)
	assert.Equal(t, FlowID(1), fk.ID, "denied dedicated request falls back to default flow")
	assert.Contains(t, bufs.admission.String(), "RESULT")
	assert.Contains(t, bufs.admission.String(), "DENIED")
}

// S3: when the candidate's pci flag permits it, denial falls through to
// pre-emption, tearing down a lower-priority GBR victim to admit the
// candidate.
func TestScenarioS3PreemptionOnActivation(t *testing.T) {
	e, bufs := newTestEngine(t, WithNumRBs(2), WithStopTime(200*Millisecond),
		WithPreemptionPolicy(PreemptionSamplePreemptAll{}))
	term := e.AddTerminal(1, "ue1", 0, 1_000_000)

	victimFlow, accepted, err := e.activateFlow(FlowKey{Terminal: term.IMSI, ID: term.allocateBID()},
		3, 40_000, 40_000, true, false, 20, 1_000_000, term.MCS, term.allocatePort)
	require.NoError(t, err)
	require.True(t, accepted, "low-priority victim flow must itself be admittable")
	term.dedicatedCount++

	app := e.NewApplicationFromProfile(term, "app", CBRProfile("app", 200, 1), 0, e.cfg.StopTime, false)
	require.NoError(t, e.ActivateFlowAt(10*Millisecond, app.Key, 3, 40_000, 40_000, true, false, 5))

	require.NoError(t, e.Run())

	_, stillThere := e.registry.Get(victimFlow.Key)
	assert.False(t, stillThere, "victim flow torn down by pre-emption")
	assert.Contains(t, bufs.admission.String(), "ARP_PRE-EMPTED")
}

// S4: a flow whose transmissions always fail still delivers every packet
// within the HARQ bound, since the 4th attempt forces success.
func TestScenarioS4HARQMaxAttempts(t *testing.T) {
	e, bufs := newTestEngine(t, WithNumRBs(1), WithRTXThreshold(2.0), WithStopTime(200*Millisecond))
	term := e.AddTerminal(1, "ue1", 28, 100_000)
	e.NewApplicationFromProfile(term, "app", CBRProfile("app", 300, 10), 0, e.cfg.StopTime, true)

	require.NoError(t, e.Run())

	assert.Contains(t, bufs.traffic.String(), " RX ", "packet delivered despite always-failing draws")
}

// S6: a terminal may not exceed MaxDedicatedFlows dedicated flows.
func TestScenarioS6DedicatedFlowLimit(t *testing.T) {
	e, _ := newTestEngine(t, WithNumRBs(1000), WithStopTime(10*Millisecond))
	term := e.AddTerminal(1, "ue1", 20, 10_000_000)

	for i := 0; i < MaxDedicatedFlows; i++ {
		_, accepted, err := e.activateFlow(FlowKey{Terminal: term.IMSI, ID: term.allocateBID()},
			7, 0, 1_000_000, false, false, 10, 1000, term.MCS, term.allocatePort)
		require.NoError(t, err)
		require.True(t, accepted)
		term.dedicatedCount++
	}
	assert.Equal(t, MaxDedicatedFlows, term.DedicatedCount())

	a := &FlowActivation{AppKey: AppKey{Terminal: term.IMSI, Name: "overflow"}, QCI: 7, MBR: 1_000_000, ARP: 10}
	assert.PanicsWithError(t, ErrTooManyFlows.Error(), func() {
		e.doActivateFlow(a)
	})
}

// S7: a scheduled QoS modification updates the flow's class in place and
// is visible both on the flow itself and in the lifecycle trace.
func TestScenarioS7ModifyFlow(t *testing.T) {
	e, bufs := newTestEngine(t, WithNumRBs(50), WithStopTime(100*Millisecond))
	term := e.AddTerminal(1, "ue1", 20, 1_000_000)
	key := FlowKey{Terminal: term.IMSI, ID: term.allocateBID()}
	_, accepted, err := e.activateFlow(key, 3, 40_000, 40_000, true, false, 20, 1_000_000, term.MCS, term.allocatePort)
	require.NoError(t, err)
	require.True(t, accepted)
	term.dedicatedCount++

	require.NoError(t, e.ModifyFlowAt(10*Millisecond, key, 1, 20_000, 20_000))
	require.NoError(t, e.Run())

	flow, ok := e.registry.Get(key)
	require.True(t, ok)
	assert.Equal(t, 1, flow.QCI)
	assert.Equal(t, BitsPerSecond(20_000), flow.GBR)
	assert.Contains(t, bufs.lifecycle.String(), "MODIFICATION")
}

func TestModifyFlowRejectsUnknownFlow(t *testing.T) {
	e, _ := newTestEngine(t)
	ok, err := e.ModifyFlow(FlowKey{Terminal: 1, ID: 99}, 1, 1000, 1000)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrFlowNotFound)
}

func TestModifyFlowDeniedLeavesFlowUnchanged(t *testing.T) {
	e, _ := newTestEngine(t, WithNumRBs(1), WithAdmissionPolicy(&AdmissionSample{}))
	term := e.AddTerminal(1, "ue1", 20, 1_000_000)
	key := FlowKey{Terminal: term.IMSI, ID: term.allocateBID()}
	_, accepted, err := e.activateFlow(key, 3, 800, 800, false, false, 20, 1_000_000, term.MCS, term.allocatePort)
	require.NoError(t, err)
	require.True(t, accepted)
	term.dedicatedCount++

	ok, err := e.ModifyFlow(key, 3, 1_000_000, 1_000_000)
	require.NoError(t, err)
	assert.False(t, ok, "modification exceeding the GBR budget is denied")

	flow, _ := e.registry.Get(key)
	assert.Equal(t, BitsPerSecond(800), flow.GBR, "denied modification leaves the flow's GBR untouched")
}

func TestDefaultFlowPersistsAndCannotBeTornDown(t *testing.T) {
	e, _ := newTestEngine(t)
	term := e.AddTerminal(1, "ue1", 20, 1000)
	err := e.TeardownFlow(term, term.DefaultFlow.ID)
	assert.ErrorIs(t, err, ErrDefaultFlowTeardown)

	_, ok := e.registry.Get(term.DefaultFlow)
	assert.True(t, ok)
}

func TestEngineDeterministic(t *testing.T) {
	build := func() string {
		e, bufs := newTestEngine(t, WithSeed(42), WithStopTime(300*Millisecond))
		term := e.AddTerminal(1, "ue1", 15, 1_000_000)
		e.NewApplicationFromProfile(term, "app", AppProfile{
			Name:              "app",
			PacketSize:        Dist{Name: "uniform", Args: []float64{100, 500}},
			PacketInterval:    Dist{Name: "uniform", Args: []float64{0.01, 0.05}},
			PacketsPerSession: Dist{Name: "constant", Args: []float64{1 << 30}},
			SessionInterval:   Dist{Name: "constant", Args: []float64{1}},
		}, 0, e.cfg.StopTime, true)
		require.NoError(t, e.Run())
		return bufs.traffic.String()
	}
	assert.Equal(t, build(), build())
}

func TestScheduleInPastFails(t *testing.T) {
	e, _ := newTestEngine(t)
	e.now = 100
	err := e.Schedule(Event{Time: 50, Kind: EventTick})
	assert.ErrorIs(t, err, ErrScheduledInPast)
}
