// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package main

// bindLeadTime is how far before an application's start_time its
// terminal-to-flow binding is scheduled, following the reference scenario
// construction convention so admission control has settled before the
// application's first packet is due.
const bindLeadTime = 100 * Millisecond

// NewApplicationFromProfile constructs an Application from profile, bound
// to terminal t under appName, and schedules its BindApp, StartApp and
// StopApp events. Binding happens bindLeadTime before start (clamped to
// Now()), exactly the reference scenario-construction convention this is
// grounded on.
func (e *Engine) NewApplicationFromProfile(t *Terminal, appName string, profile AppProfile, start, stop Clock, defaultBearer bool) *Application {
	key := AppKey{Terminal: t.IMSI, Name: appName}
	app := NewApplication(key, profile, start, stop)
	e.applications[key] = app

	bindAt := start - bindLeadTime
	if bindAt < e.now {
		bindAt = e.now
	}
	e.scheduleAt(bindAt, Event{Kind: EventBindApp, AppKey: key, DefaultBearer: defaultBearer})
	e.scheduleAt(start, Event{Kind: EventStartApp, AppKey: key})
	e.scheduleAt(stop, Event{Kind: EventStopApp, AppKey: key})
	return app
}

// CBRProfile returns an AppProfile producing a constant-bit-rate traffic
// pattern: fixed packet size, fixed inter-packet interval, a fixed packet
// count per session, and no inter-session gap (the session never ends).
func CBRProfile(name string, packetSize Bytes, intervalSeconds float64) AppProfile {
	return AppProfile{
		Name:              name,
		PacketSize:        Dist{Name: "constant", Args: []float64{float64(packetSize)}},
		PacketInterval:    Dist{Name: "constant", Args: []float64{intervalSeconds}},
		PacketsPerSession: Dist{Name: "constant", Args: []float64{1 << 30}},
		SessionInterval:   Dist{Name: "constant", Args: []float64{intervalSeconds}},
	}
}
