// Package haptic controls a vibration motor driven by a PWM line, gated by
// an analog front-end register and powered from a switchable rail.
//
// A Device is Idle or Active. Activate with a positive duration powers the
// motor path (if it is not already running) and arms a countdown. When the
// countdown expires, or Activate(0) is called, a stop job is queued on a
// dedicated worker goroutine which tears the path down. The countdown
// callback itself never touches hardware.
//
// Locking: mu guards the state fields and is never held across a hardware
// call. hwMu serializes hardware sequences (bring-up, tear-down, duty
// updates, suspend, detach) and may be held while blocking. Lock order is
// hwMu, then mu. The worker is flushed only while hwMu is not held, since
// stop jobs take hwMu.
package haptic

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Platform holds the static board parameters. It is immutable after Attach.
type Platform struct {
	// MaxTimeout caps every activation.
	MaxTimeout time.Duration
	// BaselineDuty is the duty cycle driven at MaxIntensity.
	BaselineDuty uint32
	// Period is the PWM period, in the same unit as BaselineDuty.
	Period uint32
}

func (p Platform) Validate() error {
	if p.MaxTimeout <= 0 {
		return fmt.Errorf("%w: max timeout must be > 0", ErrConfigMissing)
	}
	if p.Period == 0 {
		return fmt.Errorf("%w: period must be > 0", ErrConfigMissing)
	}
	if p.BaselineDuty > p.Period {
		return fmt.Errorf("%w: duty %d exceeds period %d", ErrConfigMissing, p.BaselineDuty, p.Period)
	}
	return nil
}

type Options struct {
	// Logf receives runtime failures and state transitions. Defaults to
	// log.Printf.
	Logf func(format string, args ...any)
}

// Status is a point-in-time view for display.
type Status struct {
	Running      bool   `json:"running"`
	Intensity    int    `json:"intensity"`
	Duty         uint32 `json:"duty"`
	Period       uint32 `json:"period"`
	RemainingMs  int64  `json:"remaining_ms"`
	MaxTimeoutMs int64  `json:"max_timeout_ms"`
}

// Device is one attached motor. All methods are safe for concurrent use.
type Device struct {
	plat Platform
	logf func(format string, args ...any)

	seq    powerSequencer
	timer  *timeoutScheduler
	worker *stopWorker

	hwMu sync.Mutex

	mu        sync.Mutex
	running   bool
	intensity int
	duty      uint32
	closed    bool

	closeOnce sync.Once
	closeErr  error
}

func newDevice(p Platform, pwm PWM, reg Regulator, regs Registers, opts Options) *Device {
	logf := opts.Logf
	if logf == nil {
		logf = log.Printf
	}
	d := &Device{
		plat: p,
		logf: logf,
		seq:  powerSequencer{pwm: pwm, reg: reg, regs: regs, logf: logf},
		duty: p.Period / 2,
	}
	d.worker = newStopWorker(d.stop)
	d.timer = newTimeoutScheduler(func() { d.worker.submit() })
	return d
}

// Activate turns the motor on for dur, capped at the platform MaxTimeout.
// A second call while active re-arms the countdown without repeating the
// power-up sequence. Activate(0) queues a stop; on an idle device the stop
// does nothing.
//
// Concurrent calls are not strictly ordered. A stop queued by Activate(0),
// or by a countdown expiring, while another caller is bringing the motor up
// runs once that caller is done and leaves the device idle and disarmed.
//
// Hardware failures are logged, not returned: a motor that fails to buzz is
// not an error for the caller.
func (d *Device) Activate(dur time.Duration) error {
	if dur < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidDuration, dur)
	}
	if d.isClosed() {
		return ErrClosed
	}

	// Disarm first so expiry cannot queue a stop behind the flush, then
	// drain any stop already queued so it cannot undo this activation.
	d.timer.cancel()
	d.worker.flush()

	if dur == 0 {
		d.worker.submit()
		return nil
	}

	d.hwMu.Lock()
	defer d.hwMu.Unlock()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	running, duty := d.running, d.duty
	d.mu.Unlock()

	if !running {
		d.seq.bringUp(duty, d.plat.Period)
		d.mu.Lock()
		d.running = true
		d.mu.Unlock()
		d.logf("haptic: on duty=%d period=%d", duty, d.plat.Period)
	}

	d.timer.arm(min(dur, d.plat.MaxTimeout))
	return nil
}

// stop is the worker's job: disarm, then tear down if running. A device
// that is not running never keeps a countdown.
func (d *Device) stop() {
	d.hwMu.Lock()
	defer d.hwMu.Unlock()
	d.timer.cancel()

	d.mu.Lock()
	running := d.running
	d.mu.Unlock()
	if !running {
		return
	}
	d.seq.tearDown()
	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
	d.logf("haptic: off")
}

// RemainingTime is the time left on the current activation, truncated to
// milliseconds, or 0 when no countdown is armed. It never blocks on
// hardware.
func (d *Device) RemainingTime() time.Duration {
	return d.timer.remaining().Truncate(time.Millisecond)
}

// SetIntensity recomputes the duty cycle and programs it right away,
// whether or not the motor is running. An in-flight countdown is left
// alone. Out-of-range values are rejected without changing anything.
func (d *Device) SetIntensity(intensity int) error {
	duty, err := ComputeDuty(intensity, d.plat.BaselineDuty, d.plat.Period)
	if err != nil {
		return err
	}

	d.hwMu.Lock()
	defer d.hwMu.Unlock()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.intensity = intensity
	d.duty = duty
	d.mu.Unlock()

	d.seq.applyDuty(duty, d.plat.Period)
	return nil
}

func (d *Device) Intensity() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.intensity
}

// DutyPeriod returns the programmed duty and the platform period.
func (d *Device) DutyPeriod() (duty, period uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.duty, d.plat.Period
}

// Running reports whether the motor path is powered.
func (d *Device) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *Device) Platform() Platform { return d.plat }

func (d *Device) Status() Status {
	remaining := d.RemainingTime()
	d.mu.Lock()
	defer d.mu.Unlock()
	return Status{
		Running:      d.running,
		Intensity:    d.intensity,
		Duty:         d.duty,
		Period:       d.plat.Period,
		RemainingMs:  remaining.Milliseconds(),
		MaxTimeoutMs: d.plat.MaxTimeout.Milliseconds(),
	}
}

func (d *Device) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
