package haptic

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// eventLog records hardware calls across all fakes so tests can check
// ordering.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func (l *eventLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

func (l *eventLog) count(name string) int {
	n := 0
	for _, e := range l.snapshot() {
		if e == name || strings.HasPrefix(e, name+" ") {
			n++
		}
	}
	return n
}

type fakePWM struct {
	log *eventLog

	mu         sync.Mutex
	duty       uint32
	period     uint32
	enabled    bool
	failConfig error

	// enableGate, when set, holds Enable until closed.
	enableGate chan struct{}
	enableHit  chan struct{}
}

// holdEnable makes the next Enable block. entered fires once Enable is
// waiting; release lets it finish.
func (p *fakePWM) holdEnable(t *testing.T) (entered <-chan struct{}, release func()) {
	t.Helper()
	gate := make(chan struct{})
	hit := make(chan struct{}, 1)
	p.mu.Lock()
	p.enableGate, p.enableHit = gate, hit
	p.mu.Unlock()
	var once sync.Once
	release = func() { once.Do(func() { close(gate) }) }
	t.Cleanup(release)
	return hit, release
}

func (p *fakePWM) Config(duty, period uint32) error {
	p.log.add("pwm.config %d/%d", duty, period)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failConfig != nil {
		return p.failConfig
	}
	p.duty, p.period = duty, period
	return nil
}

func (p *fakePWM) Enable() error {
	p.log.add("pwm.enable")
	p.mu.Lock()
	gate, hit := p.enableGate, p.enableHit
	p.enableGate, p.enableHit = nil, nil
	p.mu.Unlock()
	if gate != nil {
		hit <- struct{}{}
		<-gate
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = true
	return nil
}

func (p *fakePWM) Disable() error {
	p.log.add("pwm.disable")
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = false
	return nil
}

func (p *fakePWM) Close() error {
	p.log.add("pwm.close")
	return nil
}

func (p *fakePWM) state() (duty, period uint32, enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duty, p.period, p.enabled
}

type fakeRegulator struct {
	log *eventLog

	mu         sync.Mutex
	on         bool
	failEnable error
}

func (r *fakeRegulator) Enable() error {
	r.log.add("reg.enable")
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failEnable != nil {
		return r.failEnable
	}
	r.on = true
	return nil
}

func (r *fakeRegulator) Disable() error {
	r.log.add("reg.disable")
	r.mu.Lock()
	defer r.mu.Unlock()
	r.on = false
	return nil
}

func (r *fakeRegulator) Close() error {
	r.log.add("reg.close")
	return nil
}

type fakeRegisters struct {
	log *eventLog

	mu      sync.Mutex
	motorEn bool
	biasEn  bool
	failIO  error
}

func (f *fakeRegisters) InitRegisters() error {
	f.log.add("regs.init")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIO != nil {
		return f.failIO
	}
	f.biasEn = true
	f.motorEn = false
	return nil
}

func (f *fakeRegisters) SetMotorEnable(on bool) error {
	f.log.add("regs.motor %v", on)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIO != nil {
		return f.failIO
	}
	f.motorEn = on
	return nil
}

func (f *fakeRegisters) Close() error {
	f.log.add("regs.close")
	return nil
}

func (f *fakeRegisters) motorEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.motorEn
}

type fakeAcquirer struct {
	log  *eventLog
	pwm  *fakePWM
	reg  *fakeRegulator
	regs *fakeRegisters

	failRegs error
	failPWM  error
	failReg  error
}

func newFakeAcquirer() *fakeAcquirer {
	log := &eventLog{}
	return &fakeAcquirer{
		log:  log,
		pwm:  &fakePWM{log: log},
		reg:  &fakeRegulator{log: log},
		regs: &fakeRegisters{log: log},
	}
}

func (a *fakeAcquirer) OpenRegisters() (Registers, error) {
	a.log.add("open.regs")
	if a.failRegs != nil {
		return nil, a.failRegs
	}
	return a.regs, nil
}

func (a *fakeAcquirer) OpenPWM() (PWM, error) {
	a.log.add("open.pwm")
	if a.failPWM != nil {
		return nil, a.failPWM
	}
	return a.pwm, nil
}

func (a *fakeAcquirer) OpenRegulator() (Regulator, error) {
	a.log.add("open.reg")
	if a.failReg != nil {
		return nil, a.failReg
	}
	return a.reg, nil
}

// logSink captures Logf output.
type logSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *logSink) logf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, fmt.Sprintf(format, args...))
}

func (s *logSink) contains(sub string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.lines {
		if strings.Contains(l, sub) {
			return true
		}
	}
	return false
}

var testPlatform = Platform{
	MaxTimeout:   2 * time.Second,
	BaselineDuty: 500,
	Period:       1000,
}

func attachFake(t *testing.T, p Platform) (*Device, *fakeAcquirer, *logSink) {
	t.Helper()
	acq := newFakeAcquirer()
	sink := &logSink{}
	d, err := Attach(p, acq, Options{Logf: sink.logf})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d, acq, sink
}

func waitFor(t *testing.T, what string, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

var errBus = errors.New("i2c nack")
