// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package main

import "errors"

// Error kinds for the fatal, non-recoverable conditions described by this
// module's error handling design. Admission denial and pre-emption failure
// are normal results, not errors, and never appear here.
var (
	ErrScheduledInPast         = errors.New("event scheduled in the past")
	ErrNoFlowBound             = errors.New("application has no bound flow")
	ErrUnknownDistribution     = errors.New("unknown distribution")
	ErrTooManyFlows            = errors.New("terminal already has the maximum number of dedicated flows")
	ErrDefaultFlowTeardown     = errors.New("cannot tear down a default flow")
	ErrMismatchedTerminalOnRebind = errors.New("rebind target flow belongs to a different terminal")
	ErrPortExhausted           = errors.New("terminal has exhausted its port range")
	ErrFlowNotFound            = errors.New("flow not found")
)
