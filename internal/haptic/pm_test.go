package haptic

import (
	"strings"
	"testing"
	"time"
)

func TestSuspend_FromActive(t *testing.T) {
	d, acq, _ := attachFake(t, testPlatform)
	if err := d.Activate(time.Second); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if err := d.Suspend(); err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	if d.Running() {
		t.Fatalf("running after suspend")
	}
	if d.timer.armed() || d.RemainingTime() != 0 {
		t.Fatalf("countdown still armed after suspend")
	}
	if acq.regs.motorEnabled() {
		t.Fatalf("motor enable bit set after suspend")
	}
	if _, _, on := acq.pwm.state(); on {
		t.Fatalf("pwm enabled after suspend")
	}
}

func TestSuspend_FromIdleClearsEnableBit(t *testing.T) {
	d, acq, _ := attachFake(t, testPlatform)
	acq.log.reset()
	if err := d.Suspend(); err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	if d.Running() || d.timer.armed() {
		t.Fatalf("suspend left state running=%v armed=%v", d.Running(), d.timer.armed())
	}
	if got := acq.log.snapshot(); len(got) != 1 || got[0] != "regs.motor false" {
		t.Fatalf("events=%v want [regs.motor false]", got)
	}
}

func TestSuspend_RacesPendingExpiry(t *testing.T) {
	d, _, _ := attachFake(t, testPlatform)
	for i := 0; i < 20; i++ {
		if err := d.Activate(time.Millisecond); err != nil {
			t.Fatalf("Activate: %v", err)
		}
		time.Sleep(time.Duration(i%3) * time.Millisecond)
		if err := d.Suspend(); err != nil {
			t.Fatalf("Suspend: %v", err)
		}
		if d.Running() || d.timer.armed() {
			t.Fatalf("iteration %d: running=%v armed=%v", i, d.Running(), d.timer.armed())
		}
	}
}

func TestSuspend_DuringBringUpLeavesNoCountdown(t *testing.T) {
	d, acq, _ := attachFake(t, testPlatform)
	entered, release := acq.pwm.holdEnable(t)

	activated := make(chan error, 1)
	go func() { activated <- d.Activate(time.Second) }()
	<-entered

	suspended := make(chan error, 1)
	go func() { suspended <- d.Suspend() }()
	// Let Suspend disarm and flush, then queue behind the bring-up.
	time.Sleep(20 * time.Millisecond)
	release()

	if err := <-activated; err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if err := <-suspended; err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	if d.Running() || d.timer.armed() || d.RemainingTime() != 0 {
		t.Fatalf("after suspend running=%v armed=%v remaining=%v", d.Running(), d.timer.armed(), d.RemainingTime())
	}
	if acq.regs.motorEnabled() {
		t.Fatalf("motor enable bit set after suspend")
	}
}

func TestResume_ReinitializesRegisters(t *testing.T) {
	d, acq, _ := attachFake(t, testPlatform)
	if err := d.Suspend(); err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	acq.log.reset()
	if err := d.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	want := []string{"reg.enable", "regs.init"}
	if got := acq.log.snapshot(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("events=%v want %v", got, want)
	}
	if d.Running() {
		t.Fatalf("resume must not start the motor")
	}
}
