package haptic

import (
	"fmt"

	"go.uber.org/multierr"
)

// Acquirer opens the hardware handles a Device needs. Attach calls the
// methods in the order they are declared and releases whatever it got, in
// reverse order, if a later step fails.
type Acquirer interface {
	OpenRegisters() (Registers, error)
	OpenPWM() (PWM, error)
	OpenRegulator() (Regulator, error)
}

// Attach validates p, acquires the hardware, programs the PWM to the
// intensity-0 midpoint and initializes the front-end registers.
//
// On error nothing stays acquired. The error wraps ErrConfigMissing or
// ErrResourceUnavailable.
func Attach(p Platform, acq Acquirer, opts Options) (*Device, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	regs, err := acq.OpenRegisters()
	if err != nil {
		return nil, fmt.Errorf("%w: registers: %w", ErrResourceUnavailable, err)
	}
	pwm, err := acq.OpenPWM()
	if err != nil {
		return nil, multierr.Append(
			fmt.Errorf("%w: pwm: %w", ErrResourceUnavailable, err),
			regs.Close(),
		)
	}
	if err := pwm.Config(p.Period/2, p.Period); err != nil {
		return nil, multierr.Combine(
			fmt.Errorf("%w: pwm config: %w", ErrResourceUnavailable, err),
			pwm.Close(),
			regs.Close(),
		)
	}
	reg, err := acq.OpenRegulator()
	if err != nil {
		return nil, multierr.Combine(
			fmt.Errorf("%w: regulator: %w", ErrResourceUnavailable, err),
			pwm.Close(),
			regs.Close(),
		)
	}

	d := newDevice(p, pwm, reg, regs, opts)
	d.seq.initRegisters()
	d.logf("haptic: attached max_timeout=%v duty=%d period=%d", p.MaxTimeout, p.BaselineDuty, p.Period)
	return d, nil
}

// Close detaches the device: the countdown and worker are stopped, the
// motor path is switched off, the rail is disabled and every handle is
// released in reverse acquisition order. Later calls return the first
// result.
func (d *Device) Close() error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()

		d.timer.cancel()
		d.worker.flush()
		d.worker.close()

		d.hwMu.Lock()
		defer d.hwMu.Unlock()
		// An Activate that got past the closed check before it was set may
		// have armed a countdown; it held hwMu while doing so.
		d.timer.cancel()

		var err error
		err = multierr.Append(err, d.seq.regs.SetMotorEnable(false))
		d.mu.Lock()
		running := d.running
		d.running = false
		d.mu.Unlock()
		if running {
			err = multierr.Append(err, d.seq.pwm.Disable())
		}
		err = multierr.Append(err, d.seq.reg.Disable())
		err = multierr.Append(err, d.seq.reg.Close())
		err = multierr.Append(err, d.seq.pwm.Close())
		err = multierr.Append(err, d.seq.regs.Close())
		d.closeErr = err
		d.logf("haptic: detached")
	})
	return d.closeErr
}
