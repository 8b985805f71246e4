// Package regulator switches the motor supply rail.
//
// Backends:
//   - fixed: an always-on rail; Enable/Disable are no-ops.
//   - userspace: a reg-userspace-consumer node; writes "enabled"/"disabled"
//     to its state attribute.
//   - gpio: a load switch or LDO enable pin driven through the GPIO
//     character device.
package regulator

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"hapticd/internal/sysfs"
)

// Regulator is a controllable supply rail. Enable and Disable are
// idempotent. Close releases the handle without changing the rail.
type Regulator interface {
	Enable() error
	Disable() error
	Close() error
}

const (
	BackendFixed     = "fixed"
	BackendUserspace = "userspace"
	BackendGPIO      = "gpio"
)

type Config struct {
	Backend string
	// Path is the reg-userspace-consumer device directory (userspace).
	Path string
	// Chip is a /dev/gpiochipN path; empty searches all chips (gpio).
	Chip string
	// Line is the GPIO line name (gpio).
	Line      string
	ActiveLow bool
}

var openGPIOFn = openGPIO

func Open(cfg Config) (Regulator, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendFixed:
		return Fixed{}, nil
	case BackendUserspace:
		return OpenUserspace(cfg.Path)
	case BackendGPIO:
		return openGPIOFn(cfg.Chip, cfg.Line, cfg.ActiveLow)
	default:
		return nil, fmt.Errorf("regulator: unknown backend %q", cfg.Backend)
	}
}

// Fixed is a rail that is always on.
type Fixed struct{}

func (Fixed) Enable() error  { return nil }
func (Fixed) Disable() error { return nil }
func (Fixed) Close() error   { return nil }

var writeAttr = sysfs.Write

// Userspace drives a reg-userspace-consumer instance.
type Userspace struct {
	state string

	mu sync.Mutex
	on bool
}

// OpenUserspace checks that dir/state exists and is readable.
func OpenUserspace(dir string) (*Userspace, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("regulator: userspace backend needs a path")
	}
	state := filepath.Join(dir, "state")
	cur, err := sysfs.ReadString(state)
	if err != nil {
		return nil, fmt.Errorf("regulator: %w", err)
	}
	return &Userspace{state: state, on: cur == "enabled"}, nil
}

func (u *Userspace) Enable() error  { return u.set(true) }
func (u *Userspace) Disable() error { return u.set(false) }

func (u *Userspace) set(on bool) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	v := "disabled"
	if on {
		v = "enabled"
	}
	if err := writeAttr(u.state, v); err != nil {
		return fmt.Errorf("regulator: set %s: %w", v, err)
	}
	u.on = on
	return nil
}

// enabled reports the last state written.
func (u *Userspace) enabled() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.on
}

func (u *Userspace) Close() error { return nil }
