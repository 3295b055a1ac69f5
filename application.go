// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package main

// AppKey globally identifies an Application: the owning terminal plus its
// name, unique within that terminal.
type AppKey struct {
	Terminal TerminalID
	Name     string
}

// Dist is a named-distribution descriptor passed to the RNG oracle, e.g.
// {"constant", []float64{750}} or {"uniform", []float64{100, 1000}}.
type Dist struct {
	Name string
	Args []float64
}

// AppProfile bundles the four distributions an Application draws from, the
// same shape as a reusable traffic-model template.
type AppProfile struct {
	Name             string
	PacketSize       Dist
	PacketInterval   Dist
	PacketsPerSession Dist
	SessionInterval  Dist
}

// Application is a self-scheduling packet generator bound to one flow at a
// time. It holds only a non-owning FlowKey reference to its bound flow; the
// flow itself is owned by the flow registry.
type Application struct {
	Key     AppKey
	Profile AppProfile

	StartTime Clock
	StopTime  Clock

	flow   FlowKey
	bound  bool
	active bool

	sessionRemaining int
}

// NewApplication returns a new, unstarted Application. Binding to a flow
// happens separately via BindFlow (normally from Engine.AddApplication).
func NewApplication(key AppKey, profile AppProfile, start, stop Clock) *Application {
	return &Application{Key: key, Profile: profile, StartTime: start, StopTime: stop}
}

// BindFlow sets the application's bound flow.
func (a *Application) BindFlow(key FlowKey) {
	a.flow = key
	a.bound = true
}

// Flow returns the application's currently bound flow and whether it has
// ever been bound.
func (a *Application) Flow() (FlowKey, bool) {
	return a.flow, a.bound
}

// Active reports whether the application is between its start and stop
// events.
func (a *Application) Active() bool {
	return a.active
}
