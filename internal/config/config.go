package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"hapticd/internal/haptic"
	"hapticd/internal/i2c"
	"hapticd/internal/max77843"
	"hapticd/internal/regulator"
)

type Config struct {
	Haptic    HapticConfig    `yaml:"haptic"`
	PWM       PWMConfig       `yaml:"pwm"`
	Regulator RegulatorConfig `yaml:"regulator"`
	Bus       BusConfig       `yaml:"bus"`
	Web       WebConfig       `yaml:"web"`
}

type HapticConfig struct {
	// MaxTimeout caps every activation. It takes a duration string ("10s",
	// "1500ms") or a bare integer in milliseconds.
	MaxTimeout Duration `yaml:"max_timeout"`
	// Duty is the baseline duty cycle (ns) driven at full intensity.
	Duty uint32 `yaml:"duty"`
	// Period is the PWM period (ns).
	Period    uint32 `yaml:"period"`
	MotorType string `yaml:"motor_type"`
}

// Duration is a time.Duration that also decodes from a bare YAML integer,
// read as milliseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var ms int64
	if err := value.Decode(&ms); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q (want e.g. 10s or integer milliseconds)", s)
	}
	*d = Duration(v)
	return nil
}

type PWMConfig struct {
	// Chip is the pwmchip index; -1 picks the first chip with enough
	// channels.
	Chip    int `yaml:"chip"`
	Channel int `yaml:"channel"`
}

type RegulatorConfig struct {
	Backend   string `yaml:"backend"`
	Path      string `yaml:"path"`
	Chip      string `yaml:"chip"`
	Line      string `yaml:"line"`
	ActiveLow bool   `yaml:"active_low"`
}

type BusConfig struct {
	Backend string `yaml:"backend"`
	// Device is the i2c-dev node (dev backend).
	Device string `yaml:"device"`
	// Name is the periph bus name (periph backend); empty selects the first
	// registered bus.
	Name    string `yaml:"name"`
	Address uint16 `yaml:"address"`
}

type WebConfig struct {
	Listen string `yaml:"listen"`
}

// FieldError names a missing or invalid key by its yaml path. It matches
// haptic.ErrConfigMissing under errors.Is.
type FieldError struct {
	Path string
	Msg  string
}

func (e *FieldError) Error() string { return e.Path + " " + e.Msg }

func (e *FieldError) Is(target error) bool { return target == haptic.ErrConfigMissing }

func fieldErr(path, format string, args ...any) error {
	return &FieldError{Path: path, Msg: fmt.Sprintf(format, args...)}
}

// Default is the static configuration used when no file is given.
func Default() Config {
	cfg := Config{
		Haptic: HapticConfig{
			MaxTimeout: Duration(10 * time.Second),
			Duty:       37000,
			Period:     38022,
		},
	}
	applyDefaults(&cfg)
	return cfg
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		var te *yaml.TypeError
		if errors.As(err, &te) {
			return Config{}, unknownFieldsErr(te)
		}
		return Config{}, err
	}

	if cfg.Haptic.MaxTimeout <= 0 {
		return Config{}, fieldErr("haptic.max_timeout", "is required")
	}
	if cfg.Haptic.Period == 0 {
		return Config{}, fieldErr("haptic.period", "is required")
	}
	if cfg.Haptic.Duty == 0 {
		return Config{}, fieldErr("haptic.duty", "is required")
	}

	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// unknownFieldsErr drops yaml's "line N: " prefixes so the message names
// only the offending keys.
func unknownFieldsErr(te *yaml.TypeError) error {
	msgs := make([]string, 0, len(te.Errors))
	for _, m := range te.Errors {
		if i := strings.Index(m, ": "); i >= 0 && strings.HasPrefix(m, "line ") {
			m = m[i+2:]
		}
		msgs = append(msgs, m)
	}
	if len(msgs) > 0 && !strings.Contains(msgs[0], "not found in type") {
		return fmt.Errorf("config: %s", strings.Join(msgs, "; "))
	}
	return fmt.Errorf("config contains unknown fields: %s", strings.Join(msgs, "; "))
}

func applyDefaults(cfg *Config) {
	if cfg.Haptic.MotorType == "" {
		cfg.Haptic.MotorType = max77843.MotorLRA.String()
	}
	if cfg.Regulator.Backend == "" {
		cfg.Regulator.Backend = regulator.BackendFixed
	}
	if cfg.Bus.Backend == "" {
		cfg.Bus.Backend = i2c.BackendDev
	}
	if cfg.Bus.Backend == i2c.BackendDev && cfg.Bus.Device == "" {
		cfg.Bus.Device = "/dev/i2c-0"
	}
	if cfg.Bus.Address == 0 {
		cfg.Bus.Address = max77843.DefaultAddress
	}
	if cfg.Web.Listen == "" {
		cfg.Web.Listen = "127.0.0.1:8085"
	}
}

func (cfg Config) validate() error {
	if cfg.Haptic.Duty > cfg.Haptic.Period {
		return fieldErr("haptic.duty", "must be <= haptic.period (%d > %d)", cfg.Haptic.Duty, cfg.Haptic.Period)
	}
	if _, err := max77843.ParseMotorType(cfg.Haptic.MotorType); err != nil {
		return fieldErr("haptic.motor_type", "must be 'lra' or 'erm'")
	}

	if cfg.PWM.Chip < -1 {
		return fieldErr("pwm.chip", "must be >= -1")
	}
	if cfg.PWM.Channel < 0 {
		return fieldErr("pwm.channel", "must be >= 0")
	}

	switch strings.ToLower(cfg.Regulator.Backend) {
	case regulator.BackendFixed:
	case regulator.BackendUserspace:
		if strings.TrimSpace(cfg.Regulator.Path) == "" {
			return fieldErr("regulator.path", "is required when regulator.backend is 'userspace'")
		}
	case regulator.BackendGPIO:
		if strings.TrimSpace(cfg.Regulator.Line) == "" {
			return fieldErr("regulator.line", "is required when regulator.backend is 'gpio'")
		}
	default:
		return fieldErr("regulator.backend", "must be 'fixed', 'userspace' or 'gpio'")
	}

	switch cfg.Bus.Backend {
	case i2c.BackendDev, i2c.BackendPeriph:
	default:
		return fieldErr("bus.backend", "must be 'dev' or 'periph'")
	}
	if cfg.Bus.Address > 0x7f {
		return fieldErr("bus.address", "must be a 7-bit address")
	}
	return nil
}

// Platform returns the immutable parameters the haptic core runs on.
func (cfg Config) Platform() haptic.Platform {
	return haptic.Platform{
		MaxTimeout:   time.Duration(cfg.Haptic.MaxTimeout),
		BaselineDuty: cfg.Haptic.Duty,
		Period:       cfg.Haptic.Period,
	}
}

// RegulatorOpenConfig converts the regulator section for regulator.Open.
func (cfg Config) RegulatorOpenConfig() regulator.Config {
	return regulator.Config{
		Backend:   cfg.Regulator.Backend,
		Path:      cfg.Regulator.Path,
		Chip:      cfg.Regulator.Chip,
		Line:      cfg.Regulator.Line,
		ActiveLow: cfg.Regulator.ActiveLow,
	}
}

// BusTarget is the argument i2c.OpenBackend expects for the configured
// backend.
func (cfg Config) BusTarget() string {
	if cfg.Bus.Backend == i2c.BackendPeriph {
		return cfg.Bus.Name
	}
	return cfg.Bus.Device
}
