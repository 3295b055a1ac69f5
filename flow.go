// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package main

// TerminalID is a terminal's IMSI, immutable and used as its identity.
type TerminalID int

// FlowID is a flow's id, unique within its owning terminal. 1 is always the
// terminal's default flow.
type FlowID int

// FlowKey identifies a flow globally: the pair (terminal, flow id) forms
// the flow registry's ordering key.
type FlowKey struct {
	Terminal TerminalID
	ID       FlowID
}

// Less reports whether k sorts before o under the registry's total order:
// terminal ascending by imsi, then flow id ascending.
func (k FlowKey) Less(o FlowKey) bool {
	if k.Terminal != o.Terminal {
		return k.Terminal < o.Terminal
	}
	return k.ID < o.ID
}

// Flow (also called a "bearer" in the cellular literature this module
// models) is a per-QoS-class byte queue belonging to a terminal.
type Flow struct {
	Key FlowKey

	QCI      int
	GBR      BitsPerSecond
	MBR      BitsPerSecond
	PVI      bool
	PCI      bool
	ARP      int
	Capacity Bytes
	MCS      int
	Port     int // 0 for the default flow, which has no application TFT port

	queue []*Packet

	loss       map[Clock]Bytes
	throughput map[Clock]Bytes
}

// NewFlow returns a new Flow. mcs is inherited from the owning terminal at
// construction time.
func NewFlow(key FlowKey, qci int, gbr, mbr BitsPerSecond, pvi, pci bool, arp int, capacity Bytes, mcs, port int) *Flow {
	return &Flow{
		Key:        key,
		QCI:        qci,
		GBR:        gbr,
		MBR:        mbr,
		PVI:        pvi,
		PCI:        pci,
		ARP:        arp,
		Capacity:   capacity,
		MCS:        mcs,
		Port:       port,
		loss:       make(map[Clock]Bytes),
		throughput: make(map[Clock]Bytes),
	}
}

// IsDefault reports whether this is the terminal's always-on default flow.
func (f *Flow) IsDefault() bool {
	return f.Key.ID == 1
}

// IsGBR reports whether this flow's QCI denotes a guaranteed-bit-rate class
// (qci < 5).
func (f *Flow) IsGBR() bool {
	return f.QCI < 5
}

// QueueUsed returns the total size, in bytes, of packets currently queued
// on this flow (including bytes already sent or awaiting retry, until the
// packet is fully delivered and removed).
func (f *Flow) QueueUsed() Bytes {
	var used Bytes
	for _, p := range f.queue {
		used += p.Size
	}
	return used
}

// PendingSize returns the sum of Pending() over all queued packets.
func (f *Flow) PendingSize() Bytes {
	var pending Bytes
	for _, p := range f.queue {
		pending += p.Pending()
	}
	return pending
}

// Packets returns the flow's queue in FIFO order. Callers must not retain
// or mutate the returned slice.
func (f *Flow) Packets() []*Packet {
	return f.queue
}

// Enqueue appends packet to the flow's queue if capacity allows, recording
// loss and dropping it otherwise. Loss is counted on the packet's full
// (post-overhead) size, at the current second's bucket.
func (f *Flow) Enqueue(now Clock, p *Packet) bool {
	if f.QueueUsed()+p.Size > f.Capacity {
		f.loss[now.NearestSecond()] += p.Size
		return false
	}
	f.queue = append(f.queue, p)
	return true
}

// Transmit walks the queue in order, consuming up to amount bytes of
// pending data. When retry is false this is a fresh transmission: bytes
// move into each packet's TxSent, the full amount actually consumed is
// credited to the current second's throughput bucket, and packets that
// reach full delivery are removed from the queue and returned. When retry
// is true, bytes move into TxRetry instead (awaiting a HARQ decision); no
// throughput is credited and no packet is removed.
func (f *Flow) Transmit(now Clock, amount Bytes, retry bool) (used Bytes, delivered []*Packet) {
	remaining := amount
	for _, p := range f.queue {
		if remaining == 0 {
			break
		}
		if p.Pending() == 0 {
			continue
		}
		chunk := remaining
		if chunk > p.Pending() {
			chunk = p.Pending()
		}
		got := p.TransmitBytes(chunk, retry)
		remaining -= got
		used += got
		if !retry && p.Delivered() {
			delivered = append(delivered, p)
		}
	}
	if !retry {
		f.throughput[now.NearestSecond()] += used
	}
	if len(delivered) > 0 {
		f.removePackets(delivered)
	}
	return used, delivered
}

// Retransmit walks the queue, moving up to amount bytes from each packet's
// TxRetry pool into TxSent. The full requested amount (not merely what was
// actually drained) is credited to the current second's throughput bucket,
// matching this simulator's retransmission accounting. Packets that reach
// full delivery are removed from the queue and returned.
func (f *Flow) Retransmit(now Clock, amount Bytes) (delivered []*Packet) {
	remaining := amount
	for _, p := range f.queue {
		if remaining == 0 {
			break
		}
		if p.TxRetry() == 0 {
			continue
		}
		chunk := remaining
		if chunk > p.TxRetry() {
			chunk = p.TxRetry()
		}
		got := p.RetransmitBytes(chunk)
		remaining -= got
		if p.Delivered() {
			delivered = append(delivered, p)
		}
	}
	f.throughput[now.NearestSecond()] += amount
	if len(delivered) > 0 {
		f.removePackets(delivered)
	}
	return delivered
}

func (f *Flow) removePackets(delivered []*Packet) {
	set := make(map[PacketID]bool, len(delivered))
	for _, p := range delivered {
		set[p.ID] = true
	}
	kept := f.queue[:0]
	for _, p := range f.queue {
		if !set[p.ID] {
			kept = append(kept, p)
		}
	}
	f.queue = kept
}

// FlowMetrics holds the three time-keyed series returned by Flow.Metrics.
type FlowMetrics struct {
	Throughput map[Clock]Bytes
	Loss       map[Clock]Bytes
	// Delay is keyed by packet creation second and holds the maximum
	// observed age (now - creation time) of packets created in that
	// second, used by the QoS monitor's per-window delay figure.
	Delay map[Clock]Clock
}

// Metrics returns throughput, loss and per-packet delay series windowed to
// the last `window` of simulated time, with any missing second within the
// window filled with a zero-value placeholder. Entries in buckets older than
// the one containing now-window are trimmed from the flow's retained series
// as a side effect.
func (f *Flow) Metrics(now Clock, window Clock) FlowMetrics {
	cutoff := (now - window).NearestSecond()
	if cutoff < 0 {
		cutoff = 0
	}
	trim := func(m map[Clock]Bytes) {
		for t := range m {
			if t < cutoff {
				delete(m, t)
			}
		}
	}
	trim(f.loss)
	trim(f.throughput)

	delay := make(map[Clock]Clock)
	for _, p := range f.queue {
		sec := p.CreatedAt.NearestSecond()
		if sec < cutoff {
			continue
		}
		age := now - p.CreatedAt
		if age > delay[sec] {
			delay[sec] = age
		}
	}

	throughput := make(map[Clock]Bytes)
	loss := make(map[Clock]Bytes)
	for t := cutoff; t <= now.NearestSecond(); t += Second {
		throughput[t] = f.throughput[t]
		loss[t] = f.loss[t]
		if _, ok := delay[t]; !ok {
			delay[t] = 0
		}
	}
	return FlowMetrics{Throughput: throughput, Loss: loss, Delay: delay}
}
