// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package main

// MaxDedicatedFlows is the maximum number of dedicated (non-default) flows
// a single terminal may hold at once.
const MaxDedicatedFlows = 10

// maxPortsPerTerminal bounds the dedicated-flow port range
// [imsi*100, imsi*100+100).
const maxPortsPerTerminal = 100

// Terminal (user equipment) owns a default flow plus up to
// MaxDedicatedFlows dedicated flows, and allocates flow ids and TFT port
// numbers to them.
type Terminal struct {
	IMSI          TerminalID
	Name          string
	MCS           int
	QueueCapacity Bytes

	DefaultFlow FlowKey

	apps map[string]*Application

	nextBID        FlowID
	portCounter    int
	dedicatedCount int
}

// NewTerminal returns a new Terminal. The caller is responsible for
// registering its default flow (id 1) with the flow registry; NewTerminal
// only reserves the id.
func NewTerminal(imsi TerminalID, name string, mcs int, queueCapacity Bytes) *Terminal {
	t := &Terminal{
		IMSI:          imsi,
		Name:          name,
		MCS:           mcs,
		QueueCapacity: queueCapacity,
		apps:          make(map[string]*Application),
		nextBID:       1,
	}
	t.DefaultFlow = FlowKey{Terminal: imsi, ID: t.allocateBID()}
	return t
}

// allocateBID returns the next monotonic flow id for this terminal. The
// first call (made by NewTerminal) always returns 1, the default flow's id.
func (t *Terminal) allocateBID() FlowID {
	id := t.nextBID
	t.nextBID++
	return id
}

// allocatePort returns the next TFT port number for a dedicated flow, or
// ErrPortExhausted once the terminal's 100-port range is used up.
func (t *Terminal) allocatePort() (int, error) {
	if t.portCounter >= maxPortsPerTerminal {
		return 0, ErrPortExhausted
	}
	p := int(t.IMSI)*maxPortsPerTerminal + t.portCounter
	t.portCounter++
	return p, nil
}

// DedicatedCount returns the number of dedicated flows currently attached.
func (t *Terminal) DedicatedCount() int {
	return t.dedicatedCount
}

// Apps returns the terminal's applications keyed by name. Callers must not
// mutate the returned map.
func (t *Terminal) Apps() map[string]*Application {
	return t.apps
}

// AddApplication binds app to this terminal, consulting the priority
// policy for the requested flow's QoS parameters. If defaultBearer is
// true, or if a dedicated-flow admission request is denied, app is bound
// to the terminal's default flow; otherwise a new dedicated flow is
// admitted and app is bound to it.
func (e *Engine) AddApplication(t *Terminal, app *Application, defaultBearer bool) error {
	t.apps[app.Key.Name] = app

	var final *Flow

	if defaultBearer {
		app.BindFlow(t.DefaultFlow)
		final, _ = e.registry.Get(t.DefaultFlow)
	} else {
		qci, gbr, mbr, arp, pvi, pci := e.priorityPolicy.GetPriority(t, app)

		if t.dedicatedCount >= MaxDedicatedFlows {
			return ErrTooManyFlows
		}

		key := FlowKey{Terminal: t.IMSI, ID: t.allocateBID()}
		flow, accepted, err := e.activateFlow(key, qci, gbr, mbr, pvi, pci, arp, t.QueueCapacity, t.MCS, t.allocatePort)
		if err != nil {
			return err
		}
		if !accepted {
			app.BindFlow(t.DefaultFlow)
			final, _ = e.registry.Get(t.DefaultFlow)
		} else {
			t.dedicatedCount++
			app.BindFlow(flow.Key)
			final = flow
		}
	}

	if final != nil {
		e.trace.TraceTopology(app.Key.Name, app.StartTime, app.StopTime, final.QCI, final.GBR, final.MBR, final.Port)
	}
	return nil
}

// TeardownFlow tears down the terminal's dedicated flow flowID, rebinding
// every application currently bound to it back to the default flow.
// Precondition: flowID > 1; the default flow is refused with
// ErrDefaultFlowTeardown.
func (e *Engine) TeardownFlow(t *Terminal, flowID FlowID) error {
	if flowID <= 1 {
		return ErrDefaultFlowTeardown
	}
	key := FlowKey{Terminal: t.IMSI, ID: flowID}
	for _, app := range t.apps {
		if fk, ok := app.Flow(); ok && fk == key {
			app.BindFlow(t.DefaultFlow)
		}
	}
	e.registry.Remove(key)
	t.dedicatedCount--
	return nil
}
