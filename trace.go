// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package main

import (
	"bufio"
	"fmt"
	"io"
)

// Tracer is the set of five append-only record streams this simulator
// produces. Line formats follow the whitespace-separated layout specified
// for each sink; Tracer is an external collaborator (text-based trace file
// writing is out of this module's core scope) specified only at this
// interface.
type Tracer interface {
	TraceTopology(appName string, start, stop Clock, qci int, gbr, mbr BitsPerSecond, port int)
	TraceTraffic(appName string, now Clock, dir string, payload, wire Bytes, pid PacketID)

	TraceActivation(now Clock, imsi TerminalID, bid FlowID, qci int, port int)
	TraceDeactivation(now Clock, imsi TerminalID, bid FlowID, port int)
	TraceModification(now Clock, imsi TerminalID, bid FlowID, oldQCI, newQCI int, port int)

	TraceAdmissionCheck(now Clock, recordKind string, imsi TerminalID, bid FlowID, arp, usedRBs, neededRBs int)
	TraceAdmissionResult(now Clock, recordKind string, imsi TerminalID, bid FlowID, arp, usedRBs, neededRBs int, accepted bool)
	TracePreempted(now Clock, imsi TerminalID, bid FlowID, arp int)
	TraceAdmissionDeactivation(now Clock, imsi TerminalID, bid FlowID)

	TraceQoS(now Clock, imsi TerminalID, bid FlowID, qci int, q QoSRecord)

	Flush() error
}

// TraceableQoS is a min/avg/max/last summary of one time series over a QoS
// monitor window.
type TraceableQoS struct {
	Minimum, Average, Maximum, Last float64
}

// QoSRecord is one flow's worth of data for a single QoS monitor tick.
type QoSRecord struct {
	Throughput TraceableQoS
	Loss       TraceableQoS
	LossPct    TraceableQoS
	Delay      TraceableQoS

	MaxDelayMs    float64
	MaxErrorRate  float64
}

// fileTracer is the default Tracer, writing one buffered, flushed-on-demand
// text stream per sink: plain whitespace-separated records.
type fileTracer struct {
	topology   *bufio.Writer
	traffic    *bufio.Writer
	lifecycle  *bufio.Writer
	admission  *bufio.Writer
	qos        *bufio.Writer
}

// NewTracer returns a Tracer writing to the five given streams. Callers
// typically back these with *os.File, but any io.Writer works (tests use
// *bytes.Buffer so traces can be asserted on in-process).
func NewTracer(topology, traffic, lifecycle, admission, qos io.Writer) Tracer {
	return &fileTracer{
		topology:  bufio.NewWriter(topology),
		traffic:   bufio.NewWriter(traffic),
		lifecycle: bufio.NewWriter(lifecycle),
		admission: bufio.NewWriter(admission),
		qos:       bufio.NewWriter(qos),
	}
}

func (t *fileTracer) TraceTopology(appName string, start, stop Clock, qci int, gbr, mbr BitsPerSecond, port int) {
	fmt.Fprintf(t.topology, "%s START_TIME %s STOP_TIME %s QCI %d GBR %s MBR %s PORT %d\n",
		appName, start, stop, qci, gbr, mbr, port)
}

func (t *fileTracer) TraceTraffic(appName string, now Clock, dir string, payload, wire Bytes, pid PacketID) {
	fmt.Fprintf(t.traffic, "%s %s %s %s %s %d\n", appName, now, dir, payload, wire, pid)
}

func (t *fileTracer) TraceActivation(now Clock, imsi TerminalID, bid FlowID, qci int, port int) {
	fmt.Fprintf(t.lifecycle, "%s ACTIVATION IMSI %d BID %d QCI %d TFT_PORT %d\n", now, imsi, bid, qci, port)
}

func (t *fileTracer) TraceDeactivation(now Clock, imsi TerminalID, bid FlowID, port int) {
	fmt.Fprintf(t.lifecycle, "%s DEACTIVATION IMSI %d BID %d TFT_PORT %d\n", now, imsi, bid, port)
}

func (t *fileTracer) TraceModification(now Clock, imsi TerminalID, bid FlowID, oldQCI, newQCI int, port int) {
	fmt.Fprintf(t.lifecycle, "%s MODIFICATION IMSI %d BID %d OLD_QCI %d NEW_QCI %d TFT_PORT %d\n",
		now, imsi, bid, oldQCI, newQCI, port)
}

func (t *fileTracer) TraceAdmissionCheck(now Clock, recordKind string, imsi TerminalID, bid FlowID, arp, usedRBs, neededRBs int) {
	fmt.Fprintf(t.admission, "%s ARP_%s_CHECK IMSI %d BID %d ARP %d USED_RBS %d NEEDED_RBS %d\n",
		now, recordKind, imsi, bid, arp, usedRBs, neededRBs)
}

func (t *fileTracer) TraceAdmissionResult(now Clock, recordKind string, imsi TerminalID, bid FlowID, arp, usedRBs, neededRBs int, accepted bool) {
	result := "DENIED"
	if accepted {
		result = "ACCEPT"
	}
	fmt.Fprintf(t.admission, "%s ARP_%s_RESULT IMSI %d BID %d ARP %d USED_RBS %d NEEDED_RBS %d RESULT %s\n",
		now, recordKind, imsi, bid, arp, usedRBs, neededRBs, result)
}

func (t *fileTracer) TracePreempted(now Clock, imsi TerminalID, bid FlowID, arp int) {
	fmt.Fprintf(t.admission, "%s ARP_PRE-EMPTED IMSI %d BID %d ARP %d\n", now, imsi, bid, arp)
}

func (t *fileTracer) TraceAdmissionDeactivation(now Clock, imsi TerminalID, bid FlowID) {
	fmt.Fprintf(t.admission, "%s DEACTIVATION IMSI %d BID %d\n", now, imsi, bid)
}

func (t *fileTracer) TraceQoS(now Clock, imsi TerminalID, bid FlowID, qci int, q QoSRecord) {
	fmt.Fprintf(t.qos,
		"%s IMSI %d BID %d QCI %d "+
			"THROUGHPUT_MIN %.2f THROUGHPUT_AVG %.2f THROUGHPUT_MAX %.2f THROUGHPUT_LAST %.2f "+
			"LOSS_MIN %.2f LOSS_AVG %.2f LOSS_MAX %.2f LOSS_LAST %.2f "+
			"LOSSPCT_MIN %.6f LOSSPCT_AVG %.6f LOSSPCT_MAX %.6f LOSSPCT_LAST %.6f LOSSPCT_TARGET %.6f "+
			"DELAY_MIN %.2f DELAY_AVG %.2f DELAY_MAX %.2f DELAY_LAST %.2f DELAY_TARGET %.2f\n",
		now, imsi, bid, qci,
		q.Throughput.Minimum, q.Throughput.Average, q.Throughput.Maximum, q.Throughput.Last,
		q.Loss.Minimum, q.Loss.Average, q.Loss.Maximum, q.Loss.Last,
		q.LossPct.Minimum, q.LossPct.Average, q.LossPct.Maximum, q.LossPct.Last, q.MaxErrorRate,
		q.Delay.Minimum, q.Delay.Average, q.Delay.Maximum, q.Delay.Last, q.MaxDelayMs,
	)
}

func (t *fileTracer) Flush() error {
	for _, w := range []*bufio.Writer{t.topology, t.traffic, t.lifecycle, t.admission, t.qos} {
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}
