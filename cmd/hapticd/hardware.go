package main

import (
	"fmt"
	"log"

	"hapticd/internal/config"
	"hapticd/internal/haptic"
	"hapticd/internal/i2c"
	"hapticd/internal/max77843"
	"hapticd/internal/pwm"
	"hapticd/internal/regulator"
)

var (
	openBusFn       = i2c.OpenBackend
	openPWMFn       = openPWM
	openRegulatorFn = regulator.Open
)

func openPWM(chip, channel int) (haptic.PWM, error) {
	ch, err := pwm.Open(chip, channel)
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// hardware acquires the board resources named by the config. It is the
// haptic.Acquirer for the daemon.
type hardware struct {
	cfg config.Config
}

var _ haptic.Acquirer = hardware{}

// frontEnd is the MAX77843 on the bus it owns; Close releases the bus.
type frontEnd struct {
	*max77843.Device
	bus i2c.BusCloser
}

func (f frontEnd) Close() error { return f.bus.Close() }

func (h hardware) OpenRegisters() (haptic.Registers, error) {
	motor, err := max77843.ParseMotorType(h.cfg.Haptic.MotorType)
	if err != nil {
		return nil, err
	}
	bus, err := openBusFn(h.cfg.Bus.Backend, h.cfg.BusTarget())
	if err != nil {
		return nil, err
	}
	fe := frontEnd{Device: max77843.New(bus, h.cfg.Bus.Address, motor), bus: bus}
	log.Printf("i2c: %s bus %q open, max77843 at 0x%02x (%s)", h.cfg.Bus.Backend, h.cfg.BusTarget(), h.cfg.Bus.Address, fe.Motor())
	return fe, nil
}

func (h hardware) OpenPWM() (haptic.PWM, error) {
	p, err := openPWMFn(h.cfg.PWM.Chip, h.cfg.PWM.Channel)
	if err != nil {
		return nil, err
	}
	if s, ok := p.(fmt.Stringer); ok {
		log.Printf("pwm: %s open", s)
	}
	return p, nil
}

func (h hardware) OpenRegulator() (haptic.Regulator, error) {
	r, err := openRegulatorFn(h.cfg.RegulatorOpenConfig())
	if err != nil {
		return nil, err
	}
	log.Printf("regulator: %s backend open", h.cfg.Regulator.Backend)
	return r, nil
}
