// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalDefaultFlowIDIsOne(t *testing.T) {
	term := NewTerminal(1, "ue1", 20, 1000)
	assert.Equal(t, FlowID(1), term.DefaultFlow.ID)
	assert.Equal(t, FlowID(2), term.allocateBID())
}

func TestTerminalPortExhaustion(t *testing.T) {
	term := NewTerminal(1, "ue1", 20, 1000)
	for i := 0; i < maxPortsPerTerminal; i++ {
		_, err := term.allocatePort()
		require.NoError(t, err)
	}
	_, err := term.allocatePort()
	assert.ErrorIs(t, err, ErrPortExhausted)
}

func TestAddApplicationDefaultBearer(t *testing.T) {
	e, bufs := newTestEngine(t)
	term := e.AddTerminal(1, "ue1", 20, 1000)
	app := NewApplication(AppKey{Terminal: term.IMSI, Name: "app"}, CBRProfile("app", 100, 1), 0, e.cfg.StopTime)

	require.NoError(t, e.AddApplication(term, app, true))

	fk, bound := app.Flow()
	require.True(t, bound)
	assert.Equal(t, term.DefaultFlow, fk)
	assert.Contains(t, bufs.topology.String(), "QCI 9")
}

func TestAddApplicationDedicatedFlowAcceptedAndRebindOnTeardown(t *testing.T) {
	e, _ := newTestEngine(t, WithPriorityPolicy(NewFixedPriorityPolicy(3, 0, 1_000_000, 10, false, false)))
	term := e.AddTerminal(1, "ue1", 20, 1000)
	app := NewApplication(AppKey{Terminal: term.IMSI, Name: "app"}, CBRProfile("app", 100, 1), 0, e.cfg.StopTime)

	require.NoError(t, e.AddApplication(term, app, false))
	fk, bound := app.Flow()
	require.True(t, bound)
	assert.NotEqual(t, term.DefaultFlow, fk)
	assert.Equal(t, 1, term.DedicatedCount())

	require.NoError(t, e.TeardownFlow(term, fk.ID))
	rebound, _ := app.Flow()
	assert.Equal(t, term.DefaultFlow, rebound, "app rebinds to the default flow once its dedicated flow is torn down")
	assert.Equal(t, 0, term.DedicatedCount())
}

func TestTeardownFlowRejectsDefaultFlow(t *testing.T) {
	e, _ := newTestEngine(t)
	term := e.AddTerminal(1, "ue1", 20, 1000)
	assert.ErrorIs(t, e.TeardownFlow(term, 1), ErrDefaultFlowTeardown)
}
