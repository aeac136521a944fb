package reactorcore

import "time"

// Config holds the tunables for a Reactor, built via the same
// functional-options pattern used throughout this package.
type Config struct {
	// PollInterval is the baseline timeout passed to eventPoller.Poll on
	// every tick and, for a busy poller, the fixed one. A non-busy reactor
	// with no message pollers (or with PowerSaving) extends it toward a
	// later timer deadline, up to MaxPollTimeout.
	PollInterval time.Duration

	// BusyPoller selects a tight poll loop (EventPoller.Poll always
	// called with PollInterval, typically a very small or zero value)
	// over a blocking one that extends its timeout toward the next
	// timer deadline. Busy polling trades CPU for latency.
	BusyPoller bool

	// PowerSaving extends the poll timeout toward the next timer
	// deadline even when message pollers are registered, trading
	// message-dispatch latency for fewer wakeups.
	PowerSaving bool

	// MaxPollTimeout caps how far PollInterval may be extended toward a
	// distant timer deadline.
	MaxPollTimeout time.Duration

	// ThreadMsgPollerUsesPool selects NewPooledQueueMsgPoller over
	// NewQueueMsgPoller for message pollers the reactor constructs
	// itself.
	ThreadMsgPollerUsesPool bool

	logger Logger
	clock  *Clock
}

// Option configures a Reactor at construction time.
type Option func(*Config)

// WithPollInterval sets Config.PollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) { c.PollInterval = d }
}

// WithBusyPoller sets Config.BusyPoller.
func WithBusyPoller(enabled bool) Option {
	return func(c *Config) { c.BusyPoller = enabled }
}

// WithPowerSaving sets Config.PowerSaving.
func WithPowerSaving(enabled bool) Option {
	return func(c *Config) { c.PowerSaving = enabled }
}

// WithMaxPollTimeout sets Config.MaxPollTimeout.
func WithMaxPollTimeout(d time.Duration) Option {
	return func(c *Config) { c.MaxPollTimeout = d }
}

// WithThreadMsgPollerPool selects the pooled message-entry allocation
// strategy for reactor-owned message pollers.
func WithThreadMsgPollerPool(enabled bool) Option {
	return func(c *Config) { c.ThreadMsgPollerUsesPool = enabled }
}

// WithLogger overrides the logger a Reactor reports through. Defaults to
// ProcessDefaultLogger.
func WithLogger(l Logger) Option {
	return func(c *Config) { c.logger = l }
}

// WithClock overrides the clock a Reactor samples each tick. Defaults to
// NewClock(ClockRealTime).
func WithClock(clk *Clock) Option {
	return func(c *Config) { c.clock = clk }
}

func resolveConfig(opts []Option) *Config {
	cfg := &Config{
		PollInterval:   time.Millisecond,
		MaxPollTimeout: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = ProcessDefaultLogger()
	}
	if cfg.clock == nil {
		cfg.clock = NewClock(ClockRealTime)
	}
	return cfg
}
