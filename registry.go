// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package main

import "github.com/google/btree"

// FlowRegistry is the global ordered map terminal -> (flow_id -> flow). It
// backs the round-robin scheduler's need to walk flows in a stable total
// order and resume from an arbitrary cursor position in O(log n).
type FlowRegistry struct {
	order *btree.BTreeG[FlowKey]
	flows map[FlowKey]*Flow
}

// NewFlowRegistry returns an empty FlowRegistry.
func NewFlowRegistry() *FlowRegistry {
	return &FlowRegistry{
		order: btree.NewG(32, func(a, b FlowKey) bool { return a.Less(b) }),
		flows: make(map[FlowKey]*Flow),
	}
}

// Add registers flow under its key. Panics if the key is already present,
// which would indicate a flow-id allocation bug upstream.
func (r *FlowRegistry) Add(flow *Flow) {
	if _, exists := r.flows[flow.Key]; exists {
		panic("qppsim: duplicate flow key in registry")
	}
	r.flows[flow.Key] = flow
	r.order.ReplaceOrInsert(flow.Key)
}

// Get returns the flow for key, if present.
func (r *FlowRegistry) Get(key FlowKey) (*Flow, bool) {
	f, ok := r.flows[key]
	return f, ok
}

// Remove deletes the flow at key from the registry. No-op if absent.
func (r *FlowRegistry) Remove(key FlowKey) {
	delete(r.flows, key)
	r.order.Delete(key)
}

// Len returns the number of registered flows.
func (r *FlowRegistry) Len() int {
	return r.order.Len()
}

// First returns the lowest-ordered flow key, if any.
func (r *FlowRegistry) First() (FlowKey, bool) {
	return r.order.Min()
}

// Next returns the smallest registered key strictly greater than after, or
// wraps to First if none exists (the registry behaves as a ring for the
// round-robin scheduler's cursor).
func (r *FlowRegistry) Next(after FlowKey) (FlowKey, bool) {
	if r.order.Len() == 0 {
		return FlowKey{}, false
	}
	var found FlowKey
	ok := false
	r.order.AscendGreaterOrEqual(after, func(k FlowKey) bool {
		if k == after {
			return true // keep scanning for the first key strictly greater
		}
		found, ok = k, true
		return false
	})
	if ok {
		return found, true
	}
	return r.order.Min()
}

// Each calls fn for every registered flow in ascending key order.
func (r *FlowRegistry) Each(fn func(*Flow)) {
	r.order.Ascend(func(k FlowKey) bool {
		fn(r.flows[k])
		return true
	})
}
