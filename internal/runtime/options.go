package runtime

import "go.uber.org/zap"

// Option configures a Pool at construction time, following the same
// functional-options shape the rest of this module uses for its
// constructors.
type Option interface {
	apply(*Pool)
}

type optionFunc func(*Pool)

func (f optionFunc) apply(p *Pool) { f(p) }

// WithAffinity pins each worker goroutine to its own CPU core via
// sched_setaffinity where supported. Off by default, since it requires the
// process to own the machine (or a cpuset) to be worth anything.
func WithAffinity(enabled bool) Option {
	return optionFunc(func(p *Pool) { p.affinity = enabled })
}

// WithBlockingPoolSize sets the number of OS-thread-pinned helpers the
// utility worker starts for synchronous I/O. Defaults to 4.
func WithBlockingPoolSize(n int) Option {
	return optionFunc(func(p *Pool) { p.blockingPoolSize = n })
}

// WithAlarmFallback enables a periodic tick broadcast to every worker, an
// optional SIGALRM-style timer fallback. Each worker's own TimerWheel
// already handles ordinary deadlines; this only matters for consumers
// relying on a coarse liveness tick independent of any single worker's own
// timers.
func WithAlarmFallback(interval int) Option {
	return optionFunc(func(p *Pool) { p.alarmIntervalMS = interval })
}

// WithLogger sets the zap logger the pool and its workers log through.
// Defaults to zap.NewNop() so a Pool is usable without configuring
// logging.
func WithLogger(log *zap.Logger) Option {
	return optionFunc(func(p *Pool) { p.log = log })
}
