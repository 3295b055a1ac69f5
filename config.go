// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package main

////////////////
//
// Simulation Settings
//

// Config bundles every parameter an Engine needs at construction time: RB
// pool size, run length, HARQ behavior, QoS monitor cadence, default-flow
// parameters, trace/pre-emption toggles, and the four pluggable policies.
// Construct with NewConfig and the With* options below, mirroring the
// functional-options style used throughout this module's ambient stack.
type Config struct {
	Seed int64

	// NumRBs is the number of resource blocks available per 1ms TTI.
	NumRBs int

	// StopTime is the simulated time at which the run ends.
	StopTime Clock

	// RTXThreshold is the uniform(0,1) threshold a TxSuccess draw must meet
	// or exceed for a transmission or HARQ retry to succeed.
	RTXThreshold float64

	// BearerStatsWindow is the window over which per-flow throughput/loss/
	// delay series are retained and windowed-summarized for tracing.
	BearerStatsWindow Clock

	// QoSMonitorInterval is the cadence at which the QoS monitor runs.
	QoSMonitorInterval Clock

	// DefaultQCI, DefaultARP and DefaultMBR parameterize every terminal's
	// always-on default flow, which bypasses admission control entirely.
	DefaultQCI int
	DefaultARP int
	DefaultMBR BitsPerSecond

	// TraceQoS enables QoS monitor trace output.
	TraceQoS bool
	// PreemptQoS enables QoS-triggered pre-emption.
	PreemptQoS bool

	PriorityPolicy   PriorityPolicy
	AdmissionPolicy  AdmissionPolicy
	PreemptionPolicy PreemptionPolicy
	QosMonitor       QosMonitor
}

// Option configures a Config constructed by NewConfig.
type Option func(*Config)

// NewConfig returns a Config with sensible scenario defaults, modified by
// any supplied options.
func NewConfig(opts ...Option) Config {
	c := Config{
		Seed:               1,
		NumRBs:             50,
		StopTime:           30 * Second,
		RTXThreshold:       0.1,
		BearerStatsWindow:  10 * Second,
		QoSMonitorInterval: Second,
		DefaultQCI:         9,
		DefaultARP:         15,
		DefaultMBR:         64_000,
		PriorityPolicy:     NewFixedPriorityPolicy(5, 0, 1_000_000, 10, false, false),
		AdmissionPolicy:    &AdmissionSample{},
		PreemptionPolicy:   PreemptionDummy{},
		QosMonitor:         QosMonitorDummy{},
	}
	for _, o := range opts {
		o(&c)
	}
	return c
}

// WithSeed sets the RNG oracle's seed.
func WithSeed(seed int64) Option {
	return func(c *Config) { c.Seed = seed }
}

// WithNumRBs sets the resource block pool size.
func WithNumRBs(n int) Option {
	return func(c *Config) { c.NumRBs = n }
}

// WithStopTime sets the simulated run length.
func WithStopTime(t Clock) Option {
	return func(c *Config) { c.StopTime = t }
}

// WithRTXThreshold sets the uniform(0,1) success threshold.
func WithRTXThreshold(th float64) Option {
	return func(c *Config) { c.RTXThreshold = th }
}

// WithBearerStatsWindow sets the per-flow metrics retention window.
func WithBearerStatsWindow(w Clock) Option {
	return func(c *Config) { c.BearerStatsWindow = w }
}

// WithQoSMonitorInterval sets the QoS monitor's run cadence.
func WithQoSMonitorInterval(i Clock) Option {
	return func(c *Config) { c.QoSMonitorInterval = i }
}

// WithDefaultBearer sets the parameters of every terminal's default flow.
func WithDefaultBearer(qci, arp int, mbr BitsPerSecond) Option {
	return func(c *Config) { c.DefaultQCI, c.DefaultARP, c.DefaultMBR = qci, arp, mbr }
}

// WithTraceQoS enables or disables QoS monitor tracing.
func WithTraceQoS(enabled bool) Option {
	return func(c *Config) { c.TraceQoS = enabled }
}

// WithPreemptQoS enables or disables QoS-triggered pre-emption.
func WithPreemptQoS(enabled bool) Option {
	return func(c *Config) { c.PreemptQoS = enabled }
}

// WithPriorityPolicy installs a custom PriorityPolicy.
func WithPriorityPolicy(p PriorityPolicy) Option {
	return func(c *Config) { c.PriorityPolicy = p }
}

// WithAdmissionPolicy installs a custom AdmissionPolicy.
func WithAdmissionPolicy(p AdmissionPolicy) Option {
	return func(c *Config) { c.AdmissionPolicy = p }
}

// WithPreemptionPolicy installs a custom PreemptionPolicy.
func WithPreemptionPolicy(p PreemptionPolicy) Option {
	return func(c *Config) { c.PreemptionPolicy = p }
}

// WithQosMonitor installs a custom QosMonitor.
func WithQosMonitor(m QosMonitor) Option {
	return func(c *Config) { c.QosMonitor = m }
}

////////////////
//
// main: profiling
//

const (
	ProfileCPU    = false
	ProfileMemory = false
)
