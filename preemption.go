// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package main

// PreemptionPolicy selects lower-priority flows to tear down so that a
// higher-priority candidate can be admitted or a struggling flow's QoS
// target can be restored.
type PreemptionPolicy interface {
	// AttemptPreemption is invoked by admission control on denial of a
	// candidate with pci == true. It returns the victims to tear down (and
	// whether doing so is sufficient to admit the candidate).
	AttemptPreemption(e *Engine, candidate FlowKey, newARP, rbsNeeded, rbsUsed int) (success bool, victims []FlowKey)
	// QosPreemption is invoked by the QoS monitor to free one victim on
	// behalf of a flow that has fallen out of its service target. Returns
	// every eligible candidate; the caller takes at most the first.
	QosPreemption(e *Engine, imsi TerminalID, bid FlowID, arp int) (success bool, victims []FlowKey)
}

// eligiblePreemptionVictims returns every registered flow eligible for
// pre-emption against a candidate with the given arp: pvi == true,
// qci < 5 (GBR), and a strictly numerically larger (lower-priority) arp.
func eligiblePreemptionVictims(e *Engine, arp int) []FlowKey {
	var victims []FlowKey
	e.registry.Each(func(f *Flow) {
		if f.PVI && f.IsGBR() && f.ARP > arp {
			victims = append(victims, f.Key)
		}
	})
	return victims
}

func victimRBs(e *Engine, victims []FlowKey) int {
	total := 0
	for _, key := range victims {
		if f, ok := e.registry.Get(key); ok {
			if ok, rbs := rbsForRate(f.MCS, f.GBR); ok {
				total += rbs
			}
		}
	}
	return total
}

// PreemptionDummy never pre-empts anything; admission denial and QoS
// breaches are simply left as-is.
type PreemptionDummy struct{}

// AttemptPreemption implements PreemptionPolicy.
func (PreemptionDummy) AttemptPreemption(e *Engine, candidate FlowKey, newARP, rbsNeeded, rbsUsed int) (bool, []FlowKey) {
	return false, nil
}

// QosPreemption implements PreemptionPolicy.
func (PreemptionDummy) QosPreemption(e *Engine, imsi TerminalID, bid FlowID, arp int) (bool, []FlowKey) {
	return false, nil
}

// PreemptionSamplePreemptAll tears down every eligible lower-priority flow
// at once when doing so is sufficient to free the requested resources.
type PreemptionSamplePreemptAll struct{}

// AttemptPreemption implements PreemptionPolicy. Success uses the general
// num_rbs*1000 budget formula consistently with admission control, rather
// than a hardcoded scenario-default constant.
func (PreemptionSamplePreemptAll) AttemptPreemption(e *Engine, candidate FlowKey, newARP, rbsNeeded, rbsUsed int) (bool, []FlowKey) {
	victims := eligiblePreemptionVictims(e, newARP)
	freed := victimRBs(e, victims)
	if rbsUsed-freed+rbsNeeded <= gbrReservationBudget(e.cfg.NumRBs) {
		for _, v := range victims {
			if f, ok := e.registry.Get(v); ok {
				e.trace.TracePreempted(e.now, v.Terminal, v.ID, f.ARP)
			}
		}
		return true, victims
	}
	return false, nil
}

// QosPreemption implements PreemptionPolicy: succeeds whenever any eligible
// candidate exists; the caller (the QoS monitor) takes only the first.
func (PreemptionSamplePreemptAll) QosPreemption(e *Engine, imsi TerminalID, bid FlowID, arp int) (bool, []FlowKey) {
	victims := eligiblePreemptionVictims(e, arp)
	if len(victims) == 0 {
		return false, nil
	}
	return true, victims
}
