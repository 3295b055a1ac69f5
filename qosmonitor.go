// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package main

import "strconv"

// qciInfo is one row of the constant QoS class table.
type qciInfo struct {
	IsGBR        bool
	Priority     int
	MaxDelayMs   float64
	MaxErrorRate float64
}

// qciTable maps qci (1..9) to its QoS class parameters.
var qciTable = map[int]qciInfo{
	1: {IsGBR: true, Priority: 2, MaxDelayMs: 100, MaxErrorRate: 1e-2},
	2: {IsGBR: true, Priority: 4, MaxDelayMs: 150, MaxErrorRate: 1e-3},
	3: {IsGBR: true, Priority: 3, MaxDelayMs: 50, MaxErrorRate: 1e-3},
	4: {IsGBR: true, Priority: 5, MaxDelayMs: 300, MaxErrorRate: 1e-6},
	5: {IsGBR: false, Priority: 1, MaxDelayMs: 100, MaxErrorRate: 1e-6},
	6: {IsGBR: false, Priority: 6, MaxDelayMs: 300, MaxErrorRate: 1e-6},
	7: {IsGBR: false, Priority: 7, MaxDelayMs: 100, MaxErrorRate: 1e-3},
	8: {IsGBR: false, Priority: 8, MaxDelayMs: 300, MaxErrorRate: 1e-6},
	9: {IsGBR: false, Priority: 9, MaxDelayMs: 300, MaxErrorRate: 1e-6},
}

// QosStats is the per-flow result of one QoS monitor invocation.
type QosStats struct {
	ThroughputSum Bytes
	LossSum       Bytes
	LossPct       float64
	MaxDelay      Clock
}

// QosMonitor aggregates per-flow metrics against per-class service targets
// and may trigger pre-emption of a flow that has fallen out of target.
type QosMonitor interface {
	GetQoS(e *Engine) map[FlowKey]QosStats
}

// QosMonitorDummy performs no aggregation and never pre-empts.
type QosMonitorDummy struct{}

// GetQoS implements QosMonitor.
func (QosMonitorDummy) GetQoS(e *Engine) map[FlowKey]QosStats { return nil }

// QosMonitorDefault is the reference QoS monitor: per flow, it computes the
// last second's throughput/loss/delay, optionally traces a windowed
// min/avg/max/last summary of throughput, loss and delay (the loss
// percentage is traced as its last-second value only; its min/avg/max
// fields are always zero), and may trigger one pre-emption per invocation
// when a flow breaches its class's error-rate or delay target.
type QosMonitorDefault struct{}

// GetQoS implements QosMonitor.
func (QosMonitorDefault) GetQoS(e *Engine) map[FlowKey]QosStats {
	results := make(map[FlowKey]QosStats)
	lastSec := e.now.NearestSecond()
	preempted := false

	var flows []*Flow
	e.registry.Each(func(f *Flow) { flows = append(flows, f) })

	for _, f := range flows {
		m := f.Metrics(e.now, e.cfg.BearerStatsWindow)

		throughputSum := m.Throughput[lastSec]
		lossSum := m.Loss[lastSec]
		maxDelay := m.Delay[lastSec]

		lossPct := 0.0
		if lossSum+throughputSum > 0 {
			lossPct = float64(lossSum) / float64(lossSum+throughputSum)
		}

		info := qciTable[f.QCI]
		breach := lossPct > info.MaxErrorRate || (maxDelay > 0 && float64(maxDelay) > info.MaxDelayMs)
		if breach {
			e.metrics.QosViolations.WithLabelValues(qciLabel(f.QCI)).Inc()
		}

		if e.cfg.TraceQoS {
			rec := QoSRecord{
				Throughput:   summarizeBytes(m.Throughput, lastSec),
				Loss:         summarizeBytes(m.Loss, lastSec),
				LossPct:      TraceableQoS{Last: lossPct},
				Delay:        summarizeClock(m.Delay, lastSec),
				MaxDelayMs:   info.MaxDelayMs,
				MaxErrorRate: info.MaxErrorRate,
			}
			e.trace.TraceQoS(e.now, f.Key.Terminal, f.Key.ID, f.QCI, rec)
		}

		results[f.Key] = QosStats{
			ThroughputSum: throughputSum,
			LossSum:       lossSum,
			LossPct:       lossPct,
			MaxDelay:      maxDelay,
		}

		if e.cfg.PreemptQoS && !preempted {
			if breach {
				if ok, victims := e.preemptionPolicy.QosPreemption(e, f.Key.Terminal, f.Key.ID, f.ARP); ok && len(victims) > 0 {
					v := victims[0]
					e.trace.TraceAdmissionDeactivation(e.now, v.Terminal, v.ID)
					e.preemptFlow(v)
					preempted = true
				}
			}
		}
	}
	return results
}

func qciLabel(qci int) string { return strconv.Itoa(qci) }

func summarizeBytes(series map[Clock]Bytes, last Clock) TraceableQoS {
	if len(series) == 0 {
		return TraceableQoS{}
	}
	var sum, min, max float64
	first := true
	for _, v := range series {
		f := float64(v)
		if first {
			min, max = f, f
			first = false
		}
		if f < min {
			min = f
		}
		if f > max {
			max = f
		}
		sum += f
	}
	return TraceableQoS{
		Minimum: min,
		Average: sum / float64(len(series)),
		Maximum: max,
		Last:    float64(series[last]),
	}
}

func summarizeClock(series map[Clock]Clock, last Clock) TraceableQoS {
	if len(series) == 0 {
		return TraceableQoS{}
	}
	var sum, min, max float64
	first := true
	for _, v := range series {
		f := float64(v)
		if first {
			min, max = f, f
			first = false
		}
		if f < min {
			min = f
		}
		if f > max {
			max = f
		}
		sum += f
	}
	return TraceableQoS{
		Minimum: min,
		Average: sum / float64(len(series)),
		Maximum: max,
		Last:    float64(series[last]),
	}
}
