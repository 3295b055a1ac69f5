// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package main

// RTXDelay is the fixed spacing between a HARQ retry attempt and the next.
const RTXDelay Clock = 8 * Millisecond

// TXDelay is the delay between a packet's last byte leaving the scheduler
// and its owning application being notified of delivery.
const TXDelay Clock = 4 * Millisecond

// MaxHARQAttempts is the number of HARQ attempts before success is forced
// without a random draw.
const MaxHARQAttempts = 4

// rtxEntry is one pending HARQ retry: rbs RBs worth of tbs bytes, at the
// given attempt number (1..MaxHARQAttempts).
type rtxEntry struct {
	RBs     int
	TBS     Bytes
	Attempt int
}

// Scheduler allocates the downlink resource-block pool every 1ms interval
// and drives the HARQ retransmission pipeline using round-robin allocation.
type Scheduler struct {
	cursor      FlowKey
	cursorValid bool

	rtxPending map[Clock]map[FlowKey][]rtxEntry

	lastQoSCheck Clock
}

// NewScheduler returns a new Scheduler with an empty HARQ pipeline.
func NewScheduler() *Scheduler {
	return &Scheduler{rtxPending: make(map[Clock]map[FlowKey][]rtxEntry)}
}

// scheduleRetry enqueues a HARQ retry for key at now+RTXDelay.
func (s *Scheduler) scheduleRetry(now Clock, key FlowKey, rbs int, tbsBytes Bytes, attempt int) {
	at := now + RTXDelay
	byFlow, ok := s.rtxPending[at]
	if !ok {
		byFlow = make(map[FlowKey][]rtxEntry)
		s.rtxPending[at] = byFlow
	}
	byFlow[key] = append(byFlow[key], rtxEntry{RBs: rbs, TBS: tbsBytes, Attempt: attempt})
}

// Tick runs one 1ms scheduling interval: it self-reschedules, optionally
// runs the QoS monitor, processes due HARQ retries, then allocates any
// remaining RB budget via round-robin.
func (e *Engine) Tick() {
	e.scheduleAt(e.now+Millisecond, Event{Kind: EventTick})

	if e.now >= e.scheduler.lastQoSCheck+e.cfg.QoSMonitorInterval {
		e.qosMonitor.GetQoS(e)
		e.scheduler.lastQoSCheck = e.now
	}

	budget := e.cfg.NumRBs - e.processRetransmissions()
	if budget < 0 {
		budget = 0
	}
	e.roundRobinAllocate(budget)
}

// processRetransmissions drains any HARQ retries due at exactly now,
// returning the number of RBs they consumed.
func (e *Engine) processRetransmissions() int {
	entries, ok := e.scheduler.rtxPending[e.now]
	if !ok {
		return 0
	}
	delete(e.scheduler.rtxPending, e.now)

	consumed := 0
	for key, list := range entries {
		flow, exists := e.registry.Get(key)
		for _, ent := range list {
			if !exists {
				// Retry targets a flow that no longer exists: dropped.
				continue
			}
			consumed += ent.RBs
			e.metrics.RBAllocated.WithLabelValues("retry").Add(float64(ent.RBs))
			success := ent.Attempt >= MaxHARQAttempts || e.TxSuccess()
			if success {
				delivered := flow.Retransmit(e.now, ent.TBS)
				e.metrics.FlowThroughput.WithLabelValues(qciLabel(flow.QCI)).Add(float64(ent.TBS))
				e.scheduleDeliveries(flow, delivered)
			} else {
				e.scheduler.scheduleRetry(e.now, key, ent.RBs, ent.TBS, ent.Attempt+1)
			}
		}
	}
	return consumed
}

// roundRobinAllocate distributes budget RBs across flows with pending
// bytes, resuming from the scheduler's cursor, and resolves each flow's
// allocation through the AMC oracle.
func (e *Engine) roundRobinAllocate(budget int) {
	if e.registry.Len() == 0 || budget <= 0 {
		return
	}

	start, ok := e.registry.First()
	if e.scheduler.cursorValid {
		if next, ok2 := e.registry.Next(e.scheduler.cursor); ok2 {
			start = next
		}
	} else if !ok {
		return
	}

	allocated := make(map[FlowKey]int)
	key := start
	progress := false

	for budget > 0 {
		flow, exists := e.registry.Get(key)
		if exists {
			count := allocated[key]
			bytesOutSoFar := tbs(flow.MCS, count)
			if flow.PendingSize()-bytesOutSoFar > 0 {
				allocated[key] = count + 1
				budget--
				progress = true
				e.scheduler.cursor = key
				e.scheduler.cursorValid = true
			}
		}

		next, ok := e.registry.Next(key)
		if !ok {
			break
		}
		key = next
		if key == start {
			if !progress {
				break
			}
			progress = false
		}
	}

	e.processAllocations(allocated)
}

// processAllocations resolves each flow's total RB allocation for this
// interval through the AMC oracle, committing a successful transmission or
// enqueueing the bytes for a HARQ retry.
func (e *Engine) processAllocations(allocated map[FlowKey]int) {
	for key, rbs := range allocated {
		if rbs == 0 {
			continue
		}
		flow, ok := e.registry.Get(key)
		if !ok {
			continue
		}
		bytesOut := tbs(flow.MCS, rbs)
		e.metrics.RBAllocated.WithLabelValues("alloc").Add(float64(rbs))
		if e.TxSuccess() {
			used, delivered := flow.Transmit(e.now, bytesOut, false)
			e.metrics.FlowThroughput.WithLabelValues(qciLabel(flow.QCI)).Add(float64(used))
			e.scheduleDeliveries(flow, delivered)
		} else {
			flow.Transmit(e.now, bytesOut, true)
			e.scheduler.scheduleRetry(e.now, key, rbs, bytesOut, 1)
		}
	}
}

// scheduleDeliveries schedules a DeliverPacket event TXDelay after now for
// every packet that completed transmission this interval.
func (e *Engine) scheduleDeliveries(flow *Flow, delivered []*Packet) {
	for _, p := range delivered {
		e.scheduleAt(e.now+TXDelay, Event{Kind: EventDeliverPacket, Packet: p, FlowKey: flow.Key})
	}
}
