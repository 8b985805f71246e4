package haptic

// PWM is the motor drive output. Duty and period share one unit
// (nanoseconds for the sysfs backend).
type PWM interface {
	Config(duty, period uint32) error
	Enable() error
	Disable() error
	Close() error
}

// Regulator is the motor supply rail.
type Regulator interface {
	Enable() error
	Disable() error
	Close() error
}

// Registers is the analog front-end: bias/mode setup and the drive enable
// bit. Close releases the bus it sits on.
type Registers interface {
	InitRegisters() error
	SetMotorEnable(on bool) error
	Close() error
}

// powerSequencer orders the physical motor path. It never retries and never
// stops halfway: every step is attempted and failures are only logged.
type powerSequencer struct {
	pwm  PWM
	reg  Regulator
	regs Registers
	logf func(format string, args ...any)
}

// bringUp powers the motor path: PWM config, PWM on, rail on, drive enable.
func (s *powerSequencer) bringUp(duty, period uint32) {
	if err := s.pwm.Config(duty, period); err != nil {
		s.logf("haptic: pwm config duty=%d period=%d failed: %v", duty, period, err)
	}
	if err := s.pwm.Enable(); err != nil {
		s.logf("haptic: pwm enable failed: %v", err)
	}
	if err := s.reg.Enable(); err != nil {
		s.logf("haptic: regulator enable failed: %v", err)
	}
	if err := s.regs.SetMotorEnable(true); err != nil {
		s.logf("haptic: motor enable failed: %v", err)
	}
}

// tearDown reverses bringUp except for the rail, which stays on across
// ordinary stop/start cycles.
func (s *powerSequencer) tearDown() {
	if err := s.regs.SetMotorEnable(false); err != nil {
		s.logf("haptic: motor disable failed: %v", err)
	}
	if err := s.pwm.Disable(); err != nil {
		s.logf("haptic: pwm disable failed: %v", err)
	}
}

// initRegisters turns the rail on and restores bias and motor mode.
func (s *powerSequencer) initRegisters() {
	if err := s.reg.Enable(); err != nil {
		s.logf("haptic: regulator enable failed: %v", err)
	}
	if err := s.regs.InitRegisters(); err != nil {
		s.logf("haptic: register init failed: %v", err)
	}
}

// applyDuty reprograms the PWM without touching its enable state.
func (s *powerSequencer) applyDuty(duty, period uint32) {
	if err := s.pwm.Config(duty, period); err != nil {
		s.logf("haptic: pwm config duty=%d period=%d failed: %v", duty, period, err)
	}
}
