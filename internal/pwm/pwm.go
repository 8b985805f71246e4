// Package pwm drives a hardware PWM channel through /sys/class/pwm.
//
// Duty and period are nanoseconds, the unit the kernel PWM core uses. The
// channel is exported on Open and unexported again on Close.
package pwm

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"hapticd/internal/sysfs"
)

var sysfsBase = "/sys/class/pwm"

// writeAttr is swapped in tests to record attribute writes in order.
var writeAttr = sysfs.Write

// exportWait bounds how long Open waits for pwmN to appear after export.
var exportWait = 500 * time.Millisecond

// Channel is one exported PWM output. It is safe for concurrent use.
type Channel struct {
	chipPath string // /sys/class/pwm/pwmchipN
	pwmPath  string // /sys/class/pwm/pwmchipN/pwmM
	channel  int

	mu       sync.Mutex
	dutyNS   uint64
	periodNS uint64
	enabled  bool
}

// Open exports channel on pwmchip<chip>. A negative chip selects the first
// pwmchip that has enough channels.
func Open(chip, channel int) (*Channel, error) {
	if channel < 0 {
		return nil, fmt.Errorf("pwm: invalid channel %d", channel)
	}
	chipPath, err := findChip(chip, channel)
	if err != nil {
		return nil, err
	}
	c := &Channel{
		chipPath: chipPath,
		channel:  channel,
		pwmPath:  filepath.Join(chipPath, fmt.Sprintf("pwm%d", channel)),
	}
	if err := c.ensureExported(); err != nil {
		return nil, err
	}
	// Start from a known state; the output is enabled explicitly later.
	_ = writeAttr(c.attr("enable"), "0")
	if n, err := sysfs.ReadInt(c.attr("period")); err == nil && n > 0 {
		c.periodNS = uint64(n)
	}
	if n, err := sysfs.ReadInt(c.attr("duty_cycle")); err == nil && n >= 0 {
		c.dutyNS = uint64(n)
	}
	return c, nil
}

func findChip(chip, channel int) (string, error) {
	if chip >= 0 {
		p := filepath.Join(sysfsBase, fmt.Sprintf("pwmchip%d", chip))
		n, err := sysfs.ReadInt(filepath.Join(p, "npwm"))
		if err != nil {
			return "", fmt.Errorf("pwm: read pwmchip%d: %w", chip, err)
		}
		if channel >= n {
			return "", fmt.Errorf("pwm: pwmchip%d has %d channels, want channel %d", chip, n, channel)
		}
		return p, nil
	}

	entries, err := os.ReadDir(sysfsBase)
	if err != nil {
		return "", fmt.Errorf("pwm: read %s: %w", sysfsBase, err)
	}
	// pwmchipN entries are commonly symlinks, not directories.
	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "pwmchip") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		p := filepath.Join(sysfsBase, name)
		n, err := sysfs.ReadInt(filepath.Join(p, "npwm"))
		if err != nil || channel >= n {
			continue
		}
		return p, nil
	}
	return "", fmt.Errorf("pwm: no pwmchip with channel %d under %s", channel, sysfsBase)
}

func (c *Channel) ensureExported() error {
	if _, err := os.Stat(c.pwmPath); err == nil {
		return nil
	}
	if err := writeAttr(filepath.Join(c.chipPath, "export"), strconv.Itoa(c.channel)); err != nil {
		// Already exported by someone else.
		if _, statErr := os.Stat(c.pwmPath); statErr == nil {
			return nil
		}
		return fmt.Errorf("pwm: export: %w", err)
	}

	deadline := time.Now().Add(exportWait)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(c.pwmPath); err == nil {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := os.Stat(c.pwmPath); err != nil {
		return fmt.Errorf("pwm: %s not created after export: %w", c.pwmPath, err)
	}
	return nil
}

func (c *Channel) attr(name string) string { return filepath.Join(c.pwmPath, name) }

// Config programs duty and period (ns). duty must not exceed period.
func (c *Channel) Config(duty, period uint32) error {
	if period == 0 {
		return fmt.Errorf("pwm: period must be > 0")
	}
	if duty > period {
		return fmt.Errorf("pwm: duty %d exceeds period %d", duty, period)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	d, p := uint64(duty), uint64(period)
	// The kernel rejects any intermediate state with duty_cycle > period, so
	// the write order depends on which way the period moves.
	if p >= c.dutyNS {
		if err := writeAttr(c.attr("period"), strconv.FormatUint(p, 10)); err != nil {
			return fmt.Errorf("pwm: set period: %w", err)
		}
		c.periodNS = p
		if err := writeAttr(c.attr("duty_cycle"), strconv.FormatUint(d, 10)); err != nil {
			return fmt.Errorf("pwm: set duty: %w", err)
		}
		c.dutyNS = d
		return nil
	}
	if err := writeAttr(c.attr("duty_cycle"), strconv.FormatUint(d, 10)); err != nil {
		return fmt.Errorf("pwm: set duty: %w", err)
	}
	c.dutyNS = d
	if err := writeAttr(c.attr("period"), strconv.FormatUint(p, 10)); err != nil {
		return fmt.Errorf("pwm: set period: %w", err)
	}
	c.periodNS = p
	return nil
}

func (c *Channel) Enable() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := writeAttr(c.attr("enable"), "1"); err != nil {
		return fmt.Errorf("pwm: enable: %w", err)
	}
	c.enabled = true
	return nil
}

func (c *Channel) Disable() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := writeAttr(c.attr("enable"), "0"); err != nil {
		return fmt.Errorf("pwm: disable: %w", err)
	}
	c.enabled = false
	return nil
}

// state reports the last values written through this handle.
func (c *Channel) state() (duty, period uint32, enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return uint32(c.dutyNS), uint32(c.periodNS), c.enabled
}

// Close disables the output and unexports the channel. Best effort.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = writeAttr(c.attr("enable"), "0")
	c.enabled = false
	if err := writeAttr(filepath.Join(c.chipPath, "unexport"), strconv.Itoa(c.channel)); err != nil {
		return fmt.Errorf("pwm: unexport: %w", err)
	}
	return nil
}

func (c *Channel) String() string {
	return fmt.Sprintf("%s/pwm%d", filepath.Base(c.chipPath), c.channel)
}
