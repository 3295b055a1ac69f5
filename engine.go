// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package main

import (
	"container/heap"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine is the discrete-event simulation engine: it owns the event queue,
// the RNG oracle, the flow registry and terminal/application arenas, the
// installed policies, and the trace sinks for one simulation run. Multiple
// Engines may coexist without cross-talk, per this module's design notes:
// there is no process-global engine state.
type Engine struct {
	cfg Config
	now Clock
	seq uint64

	queue eventQueue

	runID uuid.UUID
	log   *zap.SugaredLogger

	dist         DistributionOracle
	nextPacketID PacketID

	terminals    map[TerminalID]*Terminal
	registry     *FlowRegistry
	applications map[AppKey]*Application

	priorityPolicy   PriorityPolicy
	admissionPolicy  AdmissionPolicy
	preemptionPolicy PreemptionPolicy
	qosMonitor       QosMonitor
	scheduler        *Scheduler

	trace   Tracer
	metrics *Metrics
}

// NewEngine returns a new Engine configured per cfg, writing traces to
// tracer and registering Prometheus metrics against its own private
// registry (never the global default registry, so that multiple Engines
// in the same process don't collide).
func NewEngine(cfg Config, tracer Tracer) *Engine {
	e := &Engine{
		cfg:              cfg,
		runID:            uuid.New(),
		dist:             NewDistributionOracle(cfg.Seed),
		terminals:        make(map[TerminalID]*Terminal),
		registry:         NewFlowRegistry(),
		applications:     make(map[AppKey]*Application),
		priorityPolicy:   cfg.PriorityPolicy,
		admissionPolicy:  cfg.AdmissionPolicy,
		preemptionPolicy: cfg.PreemptionPolicy,
		qosMonitor:       cfg.QosMonitor,
		scheduler:        NewScheduler(),
		trace:            tracer,
		metrics:          NewMetrics(),
	}
	e.log = baseLogger.Sugar().With("run_id", e.runID.String())
	return e
}

// RunID returns this Engine's unique run identifier, attached as the run_id
// field of the Engine's logger. The Prometheus metrics carry no run label;
// each Engine's collectors live in its own private registry.
func (e *Engine) RunID() uuid.UUID { return e.runID }

// Now returns the engine's current simulated time.
func (e *Engine) Now() Clock { return e.now }

func (e *Engine) nextSeq() uint64 {
	s := e.seq
	e.seq++
	return s
}

// Schedule inserts ev into the event queue. ev.Time must be >= Now(); other
// callers only ever compute ev.Time as now+something, so this should never
// fail in practice.
func (e *Engine) Schedule(ev Event) error {
	if ev.Time < e.now {
		return fmt.Errorf("%w: time=%s now=%s kind=%s", ErrScheduledInPast, ev.Time, e.now, ev.Kind)
	}
	ev.Seq = e.nextSeq()
	heap.Push(&e.queue, &ev)
	return nil
}

// scheduleAt is a convenience wrapper for internal self-scheduling code
// that computes its own future time; a failure here indicates a genuine
// programming error upstream (see ErrScheduledInPast), so it is fatal.
func (e *Engine) scheduleAt(t Clock, ev Event) {
	ev.Time = t
	if err := e.Schedule(ev); err != nil {
		panic(err)
	}
}

// NextPacketID returns a fresh, monotonically increasing packet id.
func (e *Engine) NextPacketID() PacketID {
	id := e.nextPacketID
	e.nextPacketID++
	return id
}

// Random draws one value from the named distribution. "constant" returns
// args[0]; unknown distributions fail with ErrUnknownDistribution.
func (e *Engine) Random(distName string, args []float64) (float64, error) {
	return e.dist.Sample(distName, args)
}

// RandomTime draws like Random, interpreting the result as a number of
// seconds and converting it to a Clock value in milliseconds.
func (e *Engine) RandomTime(distName string, args []float64) (Clock, error) {
	v, err := e.dist.Sample(distName, args)
	if err != nil {
		return 0, err
	}
	return ClockFromSeconds(v), nil
}

// TxSuccess draws a uniform(0,1) sample and reports whether it is >= the
// configured retransmission threshold.
func (e *Engine) TxSuccess() bool {
	v, _ := e.dist.Sample("uniform", []float64{0, 1})
	return v >= e.cfg.RTXThreshold
}

// Run drains the event queue in non-decreasing time order until the
// distinguished end-of-simulation event fires, then flushes all trace
// sinks. Run is not safe to call twice on the same Engine.
func (e *Engine) Run() error {
	e.scheduleAt(0, Event{Kind: EventTick})
	e.scheduleAt(e.cfg.StopTime, Event{Kind: EventEndSimulation})

	for e.queue.Len() > 0 {
		ev := heap.Pop(&e.queue).(*Event)
		e.now = ev.Time
		if ev.Kind == EventEndSimulation {
			e.queue = e.queue[:0]
			break
		}
		if err := e.dispatch(ev); err != nil {
			return err
		}
	}
	return e.trace.Flush()
}

func (e *Engine) dispatch(ev *Event) error {
	switch ev.Kind {
	case EventTick:
		e.Tick()
	case EventBindApp:
		term := e.terminals[ev.AppKey.Terminal]
		app := e.applications[ev.AppKey]
		return e.AddApplication(term, app, ev.DefaultBearer)
	case EventStartApp:
		return e.startApp(ev.AppKey)
	case EventStopApp:
		return e.stopApp(ev.AppKey)
	case EventGeneratePacket:
		return e.generatePacket(ev.AppKey)
	case EventDeliverPacket:
		return e.deliverPacket(ev.Packet)
	case EventActivateFlow:
		e.doActivateFlow(ev.Activation)
	case EventDeactivateFlow:
		_ = e.teardownFlowByKey(ev.FlowKey)
	case EventModifyFlow:
		_ = e.doModifyFlow(ev.Modification)
	}
	return nil
}

// AddTerminal creates a new Terminal with its default flow already
// admitted and registered, and returns it. The default flow is exempt from
// admission control: it always exists from terminal creation to
// simulation end.
func (e *Engine) AddTerminal(imsi TerminalID, name string, mcs int, queueCapacity Bytes) *Terminal {
	t := NewTerminal(imsi, name, mcs, queueCapacity)
	e.terminals[imsi] = t
	flow := NewFlow(t.DefaultFlow, e.cfg.DefaultQCI, 0, e.cfg.DefaultMBR, false, false, e.cfg.DefaultARP, queueCapacity, mcs, 0)
	e.registry.Add(flow)
	e.trace.TraceActivation(e.now, imsi, flow.Key.ID, flow.QCI, flow.Port)
	return t
}

// activateFlow runs admission control for a candidate dedicated flow and,
// only on acceptance, allocates a TFT port via allocatePort and constructs
// and registers the flow. Port allocation is a committing side effect (it
// advances the terminal's port counter), so it must not run ahead of the
// admission decision: a denied candidate must leave the port space
// untouched.
func (e *Engine) activateFlow(key FlowKey, qci int, gbr, mbr BitsPerSecond, pvi, pci bool, arp int, capacity Bytes, mcs int, allocatePort func() (int, error)) (*Flow, bool, error) {
	if !e.admissionPolicy.CheckFlowActivation(e, key, qci, gbr, mbr, pvi, pci, arp) {
		e.metrics.AdmissionDenied.Inc()
		return nil, false, nil
	}
	port, err := allocatePort()
	if err != nil {
		return nil, false, err
	}
	flow := NewFlow(key, qci, gbr, mbr, pvi, pci, arp, capacity, mcs, port)
	e.registry.Add(flow)
	e.trace.TraceActivation(e.now, key.Terminal, key.ID, qci, port)
	return flow, true, nil
}

// doActivateFlow admits a new dedicated flow for an existing application
// outside the initial Engine.AddApplication path (e.g. a scenario
// dynamically attaching a new bearer to an app already bound to the
// default flow), rebinding the application onto it on success.
func (e *Engine) doActivateFlow(a *FlowActivation) {
	term := e.terminals[a.AppKey.Terminal]
	if term.dedicatedCount >= MaxDedicatedFlows {
		panic(ErrTooManyFlows)
	}
	key := FlowKey{Terminal: term.IMSI, ID: term.allocateBID()}
	flow, accepted, err := e.activateFlow(key, a.QCI, a.GBR, a.MBR, a.PVI, a.PCI, a.ARP, term.QueueCapacity, term.MCS, term.allocatePort)
	if err != nil {
		panic(err)
	}
	if !accepted {
		return
	}
	term.dedicatedCount++
	if app, ok := e.applications[a.AppKey]; ok {
		_ = e.changeFlow(app, flow.Key)
	}
}

// ModifyFlow changes an already-admitted flow's QoS class in place, subject
// to the same admission control a fresh activation would face. On
// acceptance it updates the flow's QCI/GBR/MBR and emits the MODIFICATION
// lifecycle trace; on denial the flow is left untouched. The returned bool
// reports the admission decision, not an error: denial is a normal result.
func (e *Engine) ModifyFlow(key FlowKey, newQCI int, newGBR, newMBR BitsPerSecond) (bool, error) {
	flow, ok := e.registry.Get(key)
	if !ok {
		return false, ErrFlowNotFound
	}
	if !e.admissionPolicy.CheckFlowModification(e, flow, newQCI, newGBR, newMBR) {
		e.metrics.AdmissionDenied.Inc()
		return false, nil
	}
	oldQCI := flow.QCI
	flow.QCI = newQCI
	flow.GBR = newGBR
	flow.MBR = newMBR
	e.trace.TraceModification(e.now, key.Terminal, key.ID, oldQCI, newQCI, flow.Port)
	return true, nil
}

// doModifyFlow is the EventModifyFlow dispatch handler.
func (e *Engine) doModifyFlow(m *FlowModification) error {
	_, err := e.ModifyFlow(m.Key, m.NewQCI, m.NewGBR, m.NewMBR)
	return err
}

// changeFlow rebinds app onto newFlow, tearing down its previous flow
// first if that flow was a dedicated (non-default) flow. The default flow
// is never torn down by a rebind.
func (e *Engine) changeFlow(app *Application, newFlow FlowKey) error {
	if newFlow.Terminal != app.Key.Terminal {
		return ErrMismatchedTerminalOnRebind
	}
	if old, bound := app.Flow(); bound && old.ID > 1 {
		_ = e.teardownFlowByKey(old)
	}
	app.BindFlow(newFlow)
	return nil
}

// teardownFlowByKey removes the flow at key from the registry via its
// owning terminal, rebinding any bound applications to the default flow,
// and emits the flow-lifecycle DEACTIVATION trace.
func (e *Engine) teardownFlowByKey(key FlowKey) error {
	flow, ok := e.registry.Get(key)
	if !ok {
		return nil
	}
	term := e.terminals[key.Terminal]
	if err := e.TeardownFlow(term, key.ID); err != nil {
		return err
	}
	e.trace.TraceDeactivation(e.now, key.Terminal, key.ID, flow.Port)
	return nil
}

// preemptFlow tears down a pre-emption victim. Callers are responsible for
// emitting the ARP_PRE-EMPTED / admission DEACTIVATION trace lines before
// calling this, since those describe the pre-emption decision rather than
// the flow's own lifecycle.
func (e *Engine) preemptFlow(key FlowKey) {
	_ = e.teardownFlowByKey(key)
	e.metrics.Preemptions.Inc()
}

// ActivateFlowAt schedules a future dedicated-flow activation for app.
func (e *Engine) ActivateFlowAt(t Clock, app AppKey, qci int, gbr, mbr BitsPerSecond, pci, pvi bool, arp int) error {
	if t < e.now {
		return ErrScheduledInPast
	}
	e.scheduleAt(t, Event{Kind: EventActivateFlow, Activation: &FlowActivation{
		AppKey: app, QCI: qci, GBR: gbr, MBR: mbr, PCI: pci, PVI: pvi, ARP: arp,
	}})
	return nil
}

// DeactivateFlowAt schedules a future teardown of the given flow.
func (e *Engine) DeactivateFlowAt(t Clock, key FlowKey) error {
	if t < e.now {
		return ErrScheduledInPast
	}
	e.scheduleAt(t, Event{Kind: EventDeactivateFlow, FlowKey: key})
	return nil
}

// ModifyFlowAt schedules a future QoS-class change on the given flow.
func (e *Engine) ModifyFlowAt(t Clock, key FlowKey, newQCI int, newGBR, newMBR BitsPerSecond) error {
	if t < e.now {
		return ErrScheduledInPast
	}
	e.scheduleAt(t, Event{Kind: EventModifyFlow, Modification: &FlowModification{
		Key: key, NewQCI: newQCI, NewGBR: newGBR, NewMBR: newMBR,
	}})
	return nil
}
