// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package main

import "math"

// startApp activates app and draws its first session length, then emits
// the first packet immediately.
func (e *Engine) startApp(key AppKey) error {
	app, ok := e.applications[key]
	if !ok {
		return nil
	}
	app.active = true
	n, err := e.Random(app.Profile.PacketsPerSession.Name, app.Profile.PacketsPerSession.Args)
	if err != nil {
		return err
	}
	app.sessionRemaining = int(math.Round(n))
	return e.generatePacket(key)
}

// stopApp deactivates app and, if it is bound to a dedicated flow, tears
// that flow down.
func (e *Engine) stopApp(key AppKey) error {
	app, ok := e.applications[key]
	if !ok {
		return nil
	}
	app.active = false
	if fk, bound := app.Flow(); bound && fk.ID > 1 {
		e.trace.TraceAdmissionDeactivation(e.now, fk.Terminal, fk.ID)
		return e.teardownFlowByKey(fk)
	}
	return nil
}

// generatePacket draws a packet size, stamps and enqueues a new packet on
// app's bound flow, and schedules the application's next emission.
func (e *Engine) generatePacket(key AppKey) error {
	app, ok := e.applications[key]
	if !ok || !app.active {
		return nil
	}
	fk, bound := app.Flow()
	if !bound {
		return ErrNoFlowBound
	}
	flow, ok := e.registry.Get(fk)
	if !ok {
		return ErrNoFlowBound
	}

	sizeF, err := e.Random(app.Profile.PacketSize.Name, app.Profile.PacketSize.Args)
	if err != nil {
		return err
	}
	size := Bytes(math.Round(sizeF))
	pkt := NewPacket(e.NextPacketID(), size, e.now, key)
	e.trace.TraceTraffic(key.Name, e.now, "TX", size, size+NetworkOverhead, pkt.ID)
	pkt.AddOverhead(NetworkOverhead)

	if !flow.Enqueue(e.now, pkt) {
		e.metrics.FlowLossBytes.WithLabelValues(qciLabel(flow.QCI)).Add(float64(pkt.Size))
	}

	app.sessionRemaining--
	var next Clock
	if app.sessionRemaining <= 0 {
		n, err := e.Random(app.Profile.PacketsPerSession.Name, app.Profile.PacketsPerSession.Args)
		if err != nil {
			return err
		}
		app.sessionRemaining = int(math.Round(n))
		next, err = e.RandomTime(app.Profile.SessionInterval.Name, app.Profile.SessionInterval.Args)
		if err != nil {
			return err
		}
	} else {
		var err error
		next, err = e.RandomTime(app.Profile.PacketInterval.Name, app.Profile.PacketInterval.Args)
		if err != nil {
			return err
		}
	}
	e.scheduleAt(e.now+next, Event{Kind: EventGeneratePacket, AppKey: key})
	return nil
}

// deliverPacket notifies p's owning application of delivery: it deflates
// the packet's wire size back to its application payload size and emits
// the RX traffic trace.
func (e *Engine) deliverPacket(p *Packet) error {
	wire := p.Size
	payload := wire - NetworkOverhead
	e.trace.TraceTraffic(p.App.Name, e.now, "RX", payload, wire, p.ID)
	p.RemoveOverhead(NetworkOverhead)
	return nil
}
