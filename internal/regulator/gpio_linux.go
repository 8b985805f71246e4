//go:build linux

package regulator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// GPIO is a supply rail gated by one output line.
type GPIO struct {
	mu   sync.Mutex
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// openGPIO requests lineName as an output, initially off. With an empty
// chipPath every /dev/gpiochip* is searched.
func openGPIO(chipPath, lineName string, activeLow bool) (Regulator, error) {
	if strings.TrimSpace(lineName) == "" {
		return nil, fmt.Errorf("regulator: gpio backend needs a line name")
	}

	candidates := []string{chipPath}
	if chipPath == "" {
		candidates = candidates[:0]
		entries, _ := os.ReadDir("/dev")
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), "gpiochip") {
				candidates = append(candidates, filepath.Join("/dev", e.Name()))
			}
		}
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0), gpiocdev.WithConsumer("hapticd-vmotor")}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	for _, p := range candidates {
		chip, err := gpiocdev.NewChip(p)
		if err != nil {
			continue
		}
		offset, err := chip.FindLine(lineName)
		if err != nil {
			_ = chip.Close()
			continue
		}
		line, err := chip.RequestLine(offset, opts...)
		if err != nil {
			_ = chip.Close()
			return nil, fmt.Errorf("regulator: request %s on %s: %w", lineName, p, err)
		}
		return &GPIO{chip: chip, line: line}, nil
	}
	return nil, fmt.Errorf("regulator: gpio line %q not found", lineName)
}

func (g *GPIO) Enable() error  { return g.set(1) }
func (g *GPIO) Disable() error { return g.set(0) }

func (g *GPIO) set(v int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.line == nil {
		return fmt.Errorf("regulator: gpio line released")
	}
	return g.line.SetValue(v)
}

// Close releases the line. The kernel keeps the last driven value until the
// line is requested again.
func (g *GPIO) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.line == nil {
		return nil
	}
	err := g.line.Close()
	g.line = nil
	if g.chip != nil {
		_ = g.chip.Close()
		g.chip = nil
	}
	return err
}
