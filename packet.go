// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package main

// PacketID is a monotonically increasing packet identifier, assigned by
// Engine.NextPacketID.
type PacketID uint64

// NetworkOverhead is the per-packet byte inflation applied between an
// application's logical payload and the bytes actually queued on a flow:
// 8 bytes UDP + 20 bytes IPv4 + 2 bytes PDCP.
const NetworkOverhead Bytes = 30

// Packet is a byte-accounted unit of application data queued on a flow.
// Packet identity is the id alone: Size is mutated in place by
// AddOverhead/RemoveOverhead over the packet's life, so comparing packets
// by value (size, creation time, ...) would be unstable. Callers that need
// to compare packets for equality should compare IDs (or pointers).
type Packet struct {
	ID        PacketID
	Size      Bytes
	CreatedAt Clock
	App       AppKey

	txSent  Bytes
	txRetry Bytes
}

// NewPacket returns a new Packet of the given size, stamped with now.
func NewPacket(id PacketID, size Bytes, now Clock, app AppKey) *Packet {
	if size == 0 {
		panic("qppsim: packet size must be > 0")
	}
	return &Packet{ID: id, Size: size, CreatedAt: now, App: app}
}

// Pending returns the bytes of this packet not yet sent and not currently
// awaiting retry.
func (p *Packet) Pending() Bytes {
	return p.Size - p.txSent - p.txRetry
}

// TxSent returns the bytes of this packet successfully transmitted.
func (p *Packet) TxSent() Bytes {
	return p.txSent
}

// TxRetry returns the bytes of this packet currently awaiting retry.
func (p *Packet) TxRetry() Bytes {
	return p.txRetry
}

// Delivered reports whether every byte of this packet has been
// successfully transmitted.
func (p *Packet) Delivered() bool {
	return p.txSent == p.Size
}

// AddOverhead inflates the packet's size by n bytes, applied once at
// generation time before the packet is enqueued on its flow.
func (p *Packet) AddOverhead(n Bytes) {
	p.Size += n
}

// RemoveOverhead deflates the packet's size by n bytes, applied once at
// delivery time, after the RX traffic trace line has been written.
func (p *Packet) RemoveOverhead(n Bytes) {
	if n > p.Size {
		n = p.Size
	}
	p.Size -= n
}

// TransmitBytes consumes up to amount bytes of Pending, moving them either
// into TxSent (retry == false, a fresh transmission) or into TxRetry
// (retry == true, awaiting a HARQ retry decision). Returns the bytes
// actually consumed, clamped to Pending.
func (p *Packet) TransmitBytes(amount Bytes, retry bool) Bytes {
	used := amount
	if used > p.Pending() {
		used = p.Pending()
	}
	if retry {
		p.txRetry += used
	} else {
		p.txSent += used
	}
	return used
}

// RetransmitBytes moves up to amount bytes from TxRetry into TxSent,
// following a successful HARQ retry. Returns the bytes actually moved,
// clamped to TxRetry.
func (p *Packet) RetransmitBytes(amount Bytes) Bytes {
	used := amount
	if used > p.txRetry {
		used = p.txRetry
	}
	p.txRetry -= used
	p.txSent += used
	return used
}
