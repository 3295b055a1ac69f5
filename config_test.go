// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewConfigDefaults(t *testing.T) {
	c := NewConfig()
	assert.Equal(t, int64(1), c.Seed)
	assert.Equal(t, 50, c.NumRBs)
	assert.Equal(t, 30*Second, c.StopTime)
	assert.Equal(t, 9, c.DefaultQCI)
	assert.IsType(t, &AdmissionSample{}, c.AdmissionPolicy)
	assert.IsType(t, PreemptionDummy{}, c.PreemptionPolicy)
}

func TestConfigOptionsOverrideDefaults(t *testing.T) {
	c := NewConfig(
		WithSeed(99),
		WithNumRBs(10),
		WithStopTime(5*Second),
		WithRTXThreshold(0.5),
		WithDefaultBearer(8, 5, 32_000),
		WithTraceQoS(true),
		WithPreemptQoS(true),
		WithAdmissionPolicy(AdmissionTraceOnly{}),
		WithPreemptionPolicy(PreemptionSamplePreemptAll{}),
		WithQosMonitor(QosMonitorDefault{}),
	)
	assert.Equal(t, int64(99), c.Seed)
	assert.Equal(t, 10, c.NumRBs)
	assert.Equal(t, 5*Second, c.StopTime)
	assert.Equal(t, 0.5, c.RTXThreshold)
	assert.Equal(t, 8, c.DefaultQCI)
	assert.Equal(t, 5, c.DefaultARP)
	assert.Equal(t, BitsPerSecond(32_000), c.DefaultMBR)
	assert.True(t, c.TraceQoS)
	assert.True(t, c.PreemptQoS)
	assert.IsType(t, AdmissionTraceOnly{}, c.AdmissionPolicy)
	assert.IsType(t, PreemptionSamplePreemptAll{}, c.PreemptionPolicy)
	assert.IsType(t, QosMonitorDefault{}, c.QosMonitor)
}

func TestNewFixedPriorityPolicyRejectsGBRAboveMBR(t *testing.T) {
	assert.Panics(t, func() {
		NewFixedPriorityPolicy(3, 2_000_000, 1_000_000, 10, false, false)
	})
}
