// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package main

import (
	"flag"
	"log"
	"os"
	"runtime"
	"runtime/pprof"
	"time"
)

var (
	seed     = flag.Int64("seed", 1, "RNG oracle seed")
	duration = flag.Duration("duration", 30*time.Second, "simulated run duration")
	numRBs   = flag.Int("num-rbs", 50, "resource blocks available per 1ms interval")
)

// buildExampleScenario wires up a small reference topology: two terminals,
// each with a default-bearer best-effort application, plus one terminal
// additionally requesting a dedicated GBR voice bearer, matching the shape
// of this module's S1/S2 scenario tests.
func buildExampleScenario(e *Engine) {
	ue1 := e.AddTerminal(1, "ue1", 20, 1_000_000)
	ue2 := e.AddTerminal(2, "ue2", 20, 1_000_000)

	e.NewApplicationFromProfile(ue1, "ue1-best-effort", CBRProfile("ue1-best-effort", 1000, 0.02), 0, e.cfg.StopTime, true)
	e.NewApplicationFromProfile(ue2, "ue2-best-effort", CBRProfile("ue2-best-effort", 1000, 0.02), 0, e.cfg.StopTime, true)

	voice := CBRProfile("ue1-voice", 200, 0.02)
	e.NewApplicationFromProfile(ue1, "ue1-voice", voice, 1*Second, e.cfg.StopTime, false)
	_ = e.ActivateFlowAt(900*Millisecond, AppKey{Terminal: ue1.IMSI, Name: "ue1-voice"},
		1, 64_000, 128_000, true, true, 5)

	// Partway through the run, the voice bearer renegotiates down to a
	// lower GBR, e.g. following a codec mode change.
	_ = e.ModifyFlowAt(2*Second, FlowKey{Terminal: ue1.IMSI, ID: 3}, 1, 32_000, 64_000)
}

func main() {
	log.SetFlags(0)
	flag.Parse()
	if ProfileCPU {
		f, err := os.Create("qppsim-cpu.prof")
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	topology, err := os.Create("qppsim-topology.trace")
	if err != nil {
		log.Fatal(err)
	}
	defer topology.Close()
	traffic, err := os.Create("qppsim-traffic.trace")
	if err != nil {
		log.Fatal(err)
	}
	defer traffic.Close()
	lifecycle, err := os.Create("qppsim-lifecycle.trace")
	if err != nil {
		log.Fatal(err)
	}
	defer lifecycle.Close()
	admission, err := os.Create("qppsim-admission.trace")
	if err != nil {
		log.Fatal(err)
	}
	defer admission.Close()
	qos, err := os.Create("qppsim-qos.trace")
	if err != nil {
		log.Fatal(err)
	}
	defer qos.Close()

	tracer := NewTracer(topology, traffic, lifecycle, admission, qos)
	cfg := NewConfig(
		WithSeed(*seed),
		WithNumRBs(*numRBs),
		WithStopTime(ClockFromSeconds(duration.Seconds())),
		WithPreemptionPolicy(PreemptionSamplePreemptAll{}),
		WithQosMonitor(QosMonitorDefault{}),
		WithTraceQoS(true),
	)

	e := NewEngine(cfg, tracer)
	buildExampleScenario(e)
	if err := e.Run(); err != nil {
		log.Fatal(err)
	}

	if ProfileMemory {
		f, err := os.Create("qppsim-mem.prof")
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal(err)
		}
	}
}
