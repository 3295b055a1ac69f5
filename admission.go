// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package main

// AdmissionPolicy decides whether to activate or modify a flow, invoking
// pre-emption on denial when the candidate permits it. Modelled as a small
// tagged-variant capability per this module's design notes.
type AdmissionPolicy interface {
	CheckFlowActivation(e *Engine, key FlowKey, qci int, gbr, mbr BitsPerSecond, pvi, pci bool, arp int) bool
	CheckFlowModification(e *Engine, flow *Flow, newQCI int, newGBR, newMBR BitsPerSecond) bool
}

// gbrReservationBudget is the GBR reservation budget in RB-slots per
// second: num_rbs RBs per 1ms TTI, times 1000 TTIs per second.
func gbrReservationBudget(numRBs int) int {
	return numRBs * 1000
}

// usedGBRRBs sums the RB-slots per second reserved by every currently
// registered GBR flow (qci < 5).
func usedGBRRBs(e *Engine) int {
	used := 0
	e.registry.Each(func(f *Flow) {
		if f.IsGBR() {
			if ok, rbs := rbsForRate(f.MCS, f.GBR); ok {
				used += rbs
			}
		}
	})
	return used
}

// neededGBRRBs returns the RB-slots per second a candidate flow with the
// given gbr/mcs/qci would need: zero for non-GBR classes, or a sentinel
// (always exceeding any budget) if the rate cannot be represented at mcs.
func neededGBRRBs(numRBs, mcs, qci int, gbr BitsPerSecond) int {
	if qci >= 5 {
		return 0
	}
	if ok, rbs := rbsForRate(mcs, gbr); ok {
		return rbs
	}
	return numRBs*1000 + 1
}

// AdmissionSample is the sample admission-control policy: it bounds total
// GBR reservation to the RB budget, falling back to pre-emption when the
// candidate's PCI flag allows it.
type AdmissionSample struct {
	// usedGBRRBs is the GBR reservation figure computed by the most recent
	// check call, exposed for callers that want the true occupancy
	// independent of the stale figures the ACCEPT trace line reports on
	// the pre-emption-accept path (see the activation-check note below).
	usedGBRRBs int
}

// CheckFlowActivation implements AdmissionPolicy.
func (p *AdmissionSample) CheckFlowActivation(e *Engine, key FlowKey, qci int, gbr, mbr BitsPerSecond, pvi, pci bool, arp int) bool {
	mcs := e.terminals[key.Terminal].MCS
	used := usedGBRRBs(e)
	needed := neededGBRRBs(e.cfg.NumRBs, mcs, qci, gbr)
	p.usedGBRRBs = used

	e.trace.TraceAdmissionCheck(e.now, "ACTIVATION", key.Terminal, key.ID, arp, used, needed)

	success := qci > 5 || used+needed <= gbrReservationBudget(e.cfg.NumRBs)
	if success {
		e.trace.TraceAdmissionResult(e.now, "ACTIVATION", key.Terminal, key.ID, arp, used, needed, true)
		return true
	}

	e.trace.TraceAdmissionResult(e.now, "ACTIVATION", key.Terminal, key.ID, arp, used, needed, false)

	if pci {
		if ok, victims := e.preemptionPolicy.AttemptPreemption(e, key, arp, needed, used); ok {
			for _, v := range victims {
				e.preemptFlow(v)
			}
			p.usedGBRRBs = usedGBRRBs(e)
			// The ACCEPT line below reports the pre-teardown used/needed
			// figures, not the post-teardown occupancy; see
			// AdmissionSample.usedGBRRBs for the true value.
			e.trace.TraceAdmissionResult(e.now, "ACTIVATION", key.Terminal, key.ID, arp, used, needed, true)
			return true
		}
	}
	return false
}

// CheckFlowModification implements AdmissionPolicy.
func (p *AdmissionSample) CheckFlowModification(e *Engine, flow *Flow, newQCI int, newGBR, newMBR BitsPerSecond) bool {
	mcs := flow.MCS
	used := usedGBRRBs(e)
	neededOld := neededGBRRBs(e.cfg.NumRBs, mcs, flow.QCI, flow.GBR)
	neededNew := neededGBRRBs(e.cfg.NumRBs, mcs, newQCI, newGBR)
	delta := neededNew - neededOld
	p.usedGBRRBs = used

	e.trace.TraceAdmissionCheck(e.now, "MODIFICATION", flow.Key.Terminal, flow.Key.ID, flow.ARP, used, neededNew)

	success := newQCI > 5 || newGBR <= flow.GBR || used+delta <= gbrReservationBudget(e.cfg.NumRBs)
	if success {
		e.trace.TraceAdmissionResult(e.now, "MODIFICATION", flow.Key.Terminal, flow.Key.ID, flow.ARP, used, neededNew, true)
		return true
	}

	e.trace.TraceAdmissionResult(e.now, "MODIFICATION", flow.Key.Terminal, flow.Key.ID, flow.ARP, used, neededNew, false)

	if flow.PCI {
		if ok, victims := e.preemptionPolicy.AttemptPreemption(e, flow.Key, flow.ARP, delta, used); ok {
			for _, v := range victims {
				e.preemptFlow(v)
			}
			p.usedGBRRBs = usedGBRRBs(e)
			e.trace.TraceAdmissionResult(e.now, "MODIFICATION", flow.Key.Terminal, flow.Key.ID, flow.ARP, used, neededNew, true)
			return true
		}
	}
	return false
}

// AdmissionTraceOnly accepts every request unconditionally while still
// recording the check, useful for scenarios that want full trace output
// without any admission gating.
type AdmissionTraceOnly struct{}

// CheckFlowActivation implements AdmissionPolicy.
func (AdmissionTraceOnly) CheckFlowActivation(e *Engine, key FlowKey, qci int, gbr, mbr BitsPerSecond, pvi, pci bool, arp int) bool {
	e.trace.TraceAdmissionCheck(e.now, "ACTIVATION", key.Terminal, key.ID, arp, 0, 0)
	e.trace.TraceAdmissionResult(e.now, "ACTIVATION", key.Terminal, key.ID, arp, 0, 0, true)
	return true
}

// CheckFlowModification implements AdmissionPolicy. Returns true
// explicitly rather than relying on an implicit falsy default.
func (AdmissionTraceOnly) CheckFlowModification(e *Engine, flow *Flow, newQCI int, newGBR, newMBR BitsPerSecond) bool {
	e.trace.TraceAdmissionCheck(e.now, "MODIFICATION", flow.Key.Terminal, flow.Key.ID, flow.ARP, 0, 0)
	e.trace.TraceAdmissionResult(e.now, "MODIFICATION", flow.Key.Terminal, flow.Key.ID, flow.ARP, 0, 0, true)
	return true
}
