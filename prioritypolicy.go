// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package main

// PriorityPolicy decides the QoS parameters (qci, gbr, mbr, arp, pvi, pci)
// a terminal should request when binding an application to a dedicated
// flow. Modelled as a small tagged-variant capability per this module's
// design notes, not an open plugin hierarchy.
type PriorityPolicy interface {
	GetPriority(t *Terminal, app *Application) (qci int, gbr, mbr BitsPerSecond, arp int, pvi, pci bool)
}

// FixedPriorityPolicy always returns the same fixed tuple regardless of the
// terminal or application requesting it, the simplest policy a scenario can
// configure.
type FixedPriorityPolicy struct {
	QCI      int
	GBR, MBR BitsPerSecond
	ARP      int
	PVI, PCI bool
}

// NewFixedPriorityPolicy returns a FixedPriorityPolicy, validating that
// gbr <= mbr as the reference policy does.
func NewFixedPriorityPolicy(qci int, gbr, mbr BitsPerSecond, arp int, pvi, pci bool) *FixedPriorityPolicy {
	if gbr > mbr {
		panic("qppsim: gbr must not exceed mbr")
	}
	return &FixedPriorityPolicy{QCI: qci, GBR: gbr, MBR: mbr, ARP: arp, PVI: pvi, PCI: pci}
}

// GetPriority implements PriorityPolicy.
func (p *FixedPriorityPolicy) GetPriority(t *Terminal, app *Application) (int, BitsPerSecond, BitsPerSecond, int, bool, bool) {
	return p.QCI, p.GBR, p.MBR, p.ARP, p.PVI, p.PCI
}
