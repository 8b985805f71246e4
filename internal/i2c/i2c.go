// Package i2c opens the register bus the analog front-end sits on.
//
// Two backends are available: the kernel /dev/i2c-N character device driven
// directly with I2C_RDWR, and periph.io's bus registry. Both satisfy the
// tinygo drivers.I2C shape so register drivers do not care which is used.
package i2c

import (
	"fmt"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"
)

// BusCloser is a register bus that owns an OS handle.
type BusCloser interface {
	drivers.I2C
	Close() error
}

const (
	BackendDev    = "dev"
	BackendPeriph = "periph"
)

var (
	openDevFn    = openDev
	openPeriphFn = OpenPeriph
)

func openDev(path string) (BusCloser, error) {
	b, err := Open(path)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// OpenBackend opens the bus named by backend. For BackendDev, target is a
// device path such as /dev/i2c-0; for BackendPeriph it is a periph bus name
// such as "I2C1" (empty selects the first registered bus).
func OpenBackend(backend, target string) (BusCloser, error) {
	switch backend {
	case "", BackendDev:
		return openDevFn(target)
	case BackendPeriph:
		return openPeriphFn(target)
	default:
		return nil, fmt.Errorf("i2c: unknown backend %q", backend)
	}
}

// OpenPeriph initializes periph host drivers and opens a bus from its
// registry.
func OpenPeriph(name string) (BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("i2c: periph host init: %w", err)
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("i2c: periph open %q: %w", name, err)
	}
	return b, nil
}
