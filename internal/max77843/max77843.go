// Package max77843 drives the haptic block of the MAX77843 PMIC: the bias
// enable in MAINCTRL1 and the motor configuration register MCONFIG.
//
// Every register change is a read-modify-write over the I2C bus. Failures
// are returned wrapped in ErrRegisterIO; callers decide whether to proceed.
package max77843

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"tinygo.org/x/drivers"
)

// DefaultAddress is the 7-bit address of the PMIC register page.
const DefaultAddress = 0x66

// Registers.
const (
	RegMainCtrl1 = 0x02
	RegMConfig   = 0x10
)

// MAINCTRL1 bits.
const (
	MainCtrl1MREN   = 1 << 3
	MainCtrl1BiasEn = 1 << 7
)

// MCONFIG bits.
const (
	MConfigLRA        = 1 << 7 // resonant actuator mode; cleared selects ERM
	MConfigEnable     = 1 << 6 // motor drive enable
	MConfigDivider128 = 1 << 1
)

var ErrRegisterIO = errors.New("max77843: register i/o failed")

// MotorType selects the actuator drive mode.
type MotorType uint8

const (
	MotorLRA MotorType = iota
	MotorERM
)

func (m MotorType) String() string {
	switch m {
	case MotorLRA:
		return "lra"
	case MotorERM:
		return "erm"
	default:
		return fmt.Sprintf("MotorType(%d)", uint8(m))
	}
}

// ParseMotorType accepts "lra" or "erm" (case-insensitive). Empty means LRA.
func ParseMotorType(s string) (MotorType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lra":
		return MotorLRA, nil
	case "erm":
		return MotorERM, nil
	default:
		return 0, fmt.Errorf("max77843: unknown motor type %q", s)
	}
}

// Device is the register front-end. It holds no state besides the bus
// handle; the mutex keeps one read-modify-write from interleaving with
// another on the same register.
type Device struct {
	bus   drivers.I2C
	addr  uint16
	motor MotorType

	mu sync.Mutex
	w  [2]byte
	r  [1]byte
}

func New(bus drivers.I2C, addr uint16, motor MotorType) *Device {
	if addr == 0 {
		addr = DefaultAddress
	}
	return &Device{bus: bus, addr: addr, motor: motor}
}

func (d *Device) Motor() MotorType { return d.motor }

// readReg returns the current value of reg.
func (d *Device) readReg(reg byte) (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readLocked(reg)
}

func (d *Device) readLocked(reg byte) (byte, error) {
	d.w[0] = reg
	if err := d.bus.Tx(d.addr, d.w[:1], d.r[:1]); err != nil {
		return 0, fmt.Errorf("%w: read 0x%02X: %w", ErrRegisterIO, reg, err)
	}
	return d.r[0], nil
}

// UpdateReg replaces the bits selected by mask with the matching bits of
// value. The write is skipped when nothing would change.
func (d *Device) UpdateReg(reg, value, mask byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	cur, err := d.readLocked(reg)
	if err != nil {
		return err
	}
	next := (cur &^ mask) | (value & mask)
	if next == cur {
		return nil
	}
	d.w[0] = reg
	d.w[1] = next
	if err := d.bus.Tx(d.addr, d.w[:2], nil); err != nil {
		return fmt.Errorf("%w: write 0x%02X: %w", ErrRegisterIO, reg, err)
	}
	return nil
}

// InitRegisters sets the bias enable, makes sure the drive enable is off and
// selects the motor mode. It is needed once at attach and again after every
// resume because the PMIC loses this state across suspend. All three updates
// are attempted even if an earlier one fails.
func (d *Device) InitRegisters() error {
	var err error
	if e := d.UpdateReg(RegMainCtrl1, MainCtrl1BiasEn, MainCtrl1BiasEn); e != nil {
		err = multierr.Append(err, fmt.Errorf("bias enable: %w", e))
	}
	if e := d.UpdateReg(RegMConfig, 0, MConfigEnable); e != nil {
		err = multierr.Append(err, fmt.Errorf("motor enable: %w", e))
	}
	mode := byte(0)
	if d.motor == MotorLRA {
		mode = MConfigLRA
	}
	if e := d.UpdateReg(RegMConfig, mode, MConfigLRA); e != nil {
		err = multierr.Append(err, fmt.Errorf("motor mode %s: %w", d.motor, e))
	}
	return err
}

// SetMotorEnable gates the motor drive.
func (d *Device) SetMotorEnable(on bool) error {
	v := byte(0)
	if on {
		v = MConfigEnable
	}
	return d.UpdateReg(RegMConfig, v, MConfigEnable)
}
