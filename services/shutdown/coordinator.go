// Package shutdown runs the one-time shutdown sequence: warn logged-in users,
// wait out the grace period, write an audit entry, release the hardware and
// power the system off.
package shutdown

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"pipower-go/errcode"
	"pipower-go/types"
	"pipower-go/x/timex"
)

// SystemController performs the host-side effects of a shutdown.
type SystemController interface {
	Broadcast(msg string) error
	AuditLog(tag, msg string) error
	ShutdownNow() error
}

// Releaser returns every hardware line to a safe state. It must wait for
// any line transaction in flight.
type Releaser interface {
	ReleaseAll() error
}

// Policy holds the delays applied before the system is powered off.
type Policy struct {
	SafeMode        bool
	SafeModeDelay   time.Duration
	UserDelay       time.Duration
	LowBatteryDelay time.Duration
	AuditTag        string
}

// DefaultPolicy is 5 s for a user request, 30 s on low battery and an extra
// two minutes up front in safe mode.
func DefaultPolicy(safeMode bool, auditTag string) Policy {
	return Policy{
		SafeMode:        safeMode,
		SafeModeDelay:   2 * time.Minute,
		UserDelay:       5 * time.Second,
		LowBatteryDelay: 30 * time.Second,
		AuditTag:        auditTag,
	}
}

func (p Policy) delay(cause types.ShutdownCause) time.Duration {
	if cause == types.UserRequested {
		return p.UserDelay
	}
	return p.LowBatteryDelay
}

var auditMessages = map[types.ShutdownCause]string{
	types.UserRequested: "** User initiated shut down **",
	types.LowBattery:    "** Low Battery - shutting down now **",
}

// Coordinator runs the sequence at most once per process.
type Coordinator struct {
	policy Policy
	sys    SystemController
	hw     Releaser
	clock  timex.Clock
	log    *slog.Logger

	started   atomic.Bool
	completed atomic.Bool
	done      chan struct{}
}

func New(policy Policy, sys SystemController, hw Releaser, clock timex.Clock, log *slog.Logger) *Coordinator {
	return &Coordinator{
		policy: policy,
		sys:    sys,
		hw:     hw,
		clock:  clock,
		log:    log,
		done:   make(chan struct{}),
	}
}

// Done is closed once the sequence has finished (or was abandoned because
// ctx was cancelled during a grace period).
func (c *Coordinator) Done() <-chan struct{} { return c.done }

// Completed reports whether the sequence got as far as asking the system to
// power off. An abandoned sequence never completes.
func (c *Coordinator) Completed() bool { return c.completed.Load() }

// Shutdown runs the sequence for cause and reports whether this call ran
// it. Only the first caller wins; every other call returns false at once.
//
// Controller failures are logged and the sequence carries on. Cancelling ctx
// during a grace period abandons the sequence before anything irreversible
// has happened.
func (c *Coordinator) Shutdown(ctx context.Context, cause types.ShutdownCause) bool {
	if !c.started.CompareAndSwap(false, true) {
		c.log.Info("shutdown already in progress", "cause", cause.String())
		return false
	}
	defer close(c.done)

	log := c.log.With("cause", cause.String())
	log.Info("shutdown started", "safe_mode", c.policy.SafeMode)

	if c.policy.SafeMode {
		c.broadcast(log, fmt.Sprintf("System shutting down(%s) in 2 minutes - SAFE MODE", cause))
		if !c.clock.Sleep(ctx, c.policy.SafeModeDelay) {
			log.Warn("shutdown abandoned", "step", "safe_mode_delay", "err", ctx.Err())
			return true
		}
	}

	d := c.policy.delay(cause)
	c.broadcast(log, fmt.Sprintf("System shutting down(%s) in %d seconds", cause, int(d/time.Second)))
	if !c.clock.Sleep(ctx, d) {
		log.Warn("shutdown abandoned", "step", "grace_delay", "err", ctx.Err())
		return true
	}

	if err := c.sys.AuditLog(c.policy.AuditTag, auditMessages[cause]); err != nil {
		c.fail(log, "audit", err)
	}
	if err := c.hw.ReleaseAll(); err != nil {
		c.fail(log, "release", err)
	}
	log.Info("powering off")
	if err := c.sys.ShutdownNow(); err != nil {
		c.fail(log, "shutdown_now", err)
	}
	c.completed.Store(true)
	return true
}

func (c *Coordinator) broadcast(log *slog.Logger, msg string) {
	log.Info(msg)
	if err := c.sys.Broadcast(msg); err != nil {
		c.fail(log, "broadcast", err)
	}
}

func (c *Coordinator) fail(log *slog.Logger, step string, err error) {
	log.Error("shutdown step failed", "step", step, "err", errcode.Wrap(errcode.ShutdownSequence, step, err))
}
