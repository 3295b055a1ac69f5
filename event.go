// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package main

import "container/heap"

// EventKind identifies the concrete shape of an Event's payload. This
// replaces a callable+args tuple with a closed set of variants dispatched
// by a single switch in Engine.dispatch, eliminating late binding.
type EventKind int

const (
	EventTick EventKind = iota
	EventBindApp
	EventStartApp
	EventStopApp
	EventGeneratePacket
	EventDeliverPacket
	EventActivateFlow
	EventDeactivateFlow
	EventModifyFlow
	EventEndSimulation
)

func (k EventKind) String() string {
	switch k {
	case EventTick:
		return "TICK"
	case EventBindApp:
		return "BIND_APP"
	case EventStartApp:
		return "START_APP"
	case EventStopApp:
		return "STOP_APP"
	case EventGeneratePacket:
		return "GENERATE_PACKET"
	case EventDeliverPacket:
		return "DELIVER_PACKET"
	case EventActivateFlow:
		return "ACTIVATE_FLOW"
	case EventDeactivateFlow:
		return "DEACTIVATE_FLOW"
	case EventModifyFlow:
		return "MODIFY_FLOW"
	case EventEndSimulation:
		return "END_SIMULATION"
	default:
		return "UNKNOWN"
	}
}

// FlowActivation carries the parameters needed to admit a new dedicated
// flow, used by EventActivateFlow.
type FlowActivation struct {
	AppKey AppKey
	QCI    int
	GBR    BitsPerSecond
	MBR    BitsPerSecond
	PCI    bool
	PVI    bool
	ARP    int
}

// FlowModification carries the parameters needed to change an already
// admitted flow's QoS class, used by EventModifyFlow.
type FlowModification struct {
	Key    FlowKey
	NewQCI int
	NewGBR BitsPerSecond
	NewMBR BitsPerSecond
}

// Event is a single time-stamped entry in the Engine's event queue. Only the
// fields relevant to Kind are populated; all references to flows,
// terminals and applications are opaque keys (TerminalID, FlowKey, AppKey),
// never raw pointers, so that the arenas owning those entities (Engine's
// terminal map and flow registry) remain the sole owners.
type Event struct {
	Time Clock
	Seq  uint64
	Kind EventKind

	AppKey        AppKey
	FlowKey       FlowKey
	Packet        *Packet
	Activation    *FlowActivation
	Modification  *FlowModification
	DefaultBearer bool
}

// eventQueue is a stable, time-then-insertion-order min-heap of *Event,
// keyed on (Time, Seq) so insertion order breaks ties at equal times.
type eventQueue []*Event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].Time != q[j].Time {
		return q[i].Time < q[j].Time
	}
	return q[i].Seq < q[j].Seq
}

func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) {
	*q = append(*q, x.(*Event))
}

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}

var _ heap.Interface = (*eventQueue)(nil)
