// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreemptionDummyNeverPreempts(t *testing.T) {
	e, _ := newTestEngine(t)
	ok, victims := PreemptionDummy{}.AttemptPreemption(e, FlowKey{Terminal: 1, ID: 2}, 5, 1000, 0)
	assert.False(t, ok)
	assert.Nil(t, victims)

	ok, victims = PreemptionDummy{}.QosPreemption(e, 1, 2, 5)
	assert.False(t, ok)
	assert.Nil(t, victims)
}

func TestEligiblePreemptionVictimsFiltersByPVIClassAndARP(t *testing.T) {
	e, _ := newTestEngine(t)
	term := e.AddTerminal(1, "ue1", 20, 1000)

	vulnerable := NewFlow(FlowKey{Terminal: term.IMSI, ID: 2}, 3, 1000, 1000, true, false, 20, 1000, 20, 1)
	nonVulnerable := NewFlow(FlowKey{Terminal: term.IMSI, ID: 3}, 3, 1000, 1000, false, false, 20, 1000, 20, 2)
	nonGBR := NewFlow(FlowKey{Terminal: term.IMSI, ID: 4}, 9, 0, 1000, true, false, 20, 1000, 20, 3)
	higherPriority := NewFlow(FlowKey{Terminal: term.IMSI, ID: 5}, 3, 1000, 1000, true, false, 2, 1000, 20, 4)
	e.registry.Add(vulnerable)
	e.registry.Add(nonVulnerable)
	e.registry.Add(nonGBR)
	e.registry.Add(higherPriority)

	victims := eligiblePreemptionVictims(e, 10)
	require.Len(t, victims, 1)
	assert.Equal(t, vulnerable.Key, victims[0])
}

func TestPreemptionSamplePreemptAllSucceedsWhenSufficient(t *testing.T) {
	e, bufs := newTestEngine(t, WithNumRBs(2))
	term := e.AddTerminal(1, "ue1", 0, 1000)
	victim := NewFlow(FlowKey{Terminal: term.IMSI, ID: 2}, 3, 40_000, 40_000, true, false, 20, 1000, 0, 1)
	e.registry.Add(victim)

	ok, victims := PreemptionSamplePreemptAll{}.AttemptPreemption(e, FlowKey{Terminal: term.IMSI, ID: 3}, 5, 1667, 1667)
	require.True(t, ok)
	require.Len(t, victims, 1)
	assert.Equal(t, victim.Key, victims[0])
	assert.Contains(t, bufs.admission.String(), "ARP_PRE-EMPTED")
}

func TestPreemptionSamplePreemptAllFailsWhenInsufficient(t *testing.T) {
	e, _ := newTestEngine(t, WithNumRBs(1))
	term := e.AddTerminal(1, "ue1", 0, 1000)
	victim := NewFlow(FlowKey{Terminal: term.IMSI, ID: 2}, 3, 1000, 1000, true, false, 20, 1000, 0, 1)
	e.registry.Add(victim)

	ok, victims := PreemptionSamplePreemptAll{}.AttemptPreemption(e, FlowKey{Terminal: term.IMSI, ID: 3}, 5, 1_000_000, 1_000_000)
	assert.False(t, ok)
	assert.Nil(t, victims)
}
