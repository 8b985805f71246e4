package regulator

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func userspaceNode(t *testing.T, initial string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "state"), []byte(initial+"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return dir
}

func TestOpen_DefaultsToFixed(t *testing.T) {
	r, err := Open(Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := r.(Fixed); !ok {
		t.Fatalf("got %T want Fixed", r)
	}
	if err := r.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if err := r.Disable(); err != nil {
		t.Fatalf("Disable: %v", err)
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, err := Open(Config{Backend: "pmbus"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestOpen_GPIOUsesFactory(t *testing.T) {
	old := openGPIOFn
	t.Cleanup(func() { openGPIOFn = old })
	var gotChip, gotLine string
	var gotLow bool
	openGPIOFn = func(chip, line string, activeLow bool) (Regulator, error) {
		gotChip, gotLine, gotLow = chip, line, activeLow
		return Fixed{}, nil
	}
	if _, err := Open(Config{Backend: "GPIO", Chip: "/dev/gpiochip2", Line: "VMOTOR_EN", ActiveLow: true}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if gotChip != "/dev/gpiochip2" || gotLine != "VMOTOR_EN" || !gotLow {
		t.Fatalf("factory got chip=%q line=%q low=%v", gotChip, gotLine, gotLow)
	}
}

func TestUserspace_EnableDisable(t *testing.T) {
	dir := userspaceNode(t, "disabled")

	var writes []string
	old := writeAttr
	writeAttr = func(path, value string) error {
		if path != filepath.Join(dir, "state") {
			t.Fatalf("write to %q", path)
		}
		writes = append(writes, value)
		return nil
	}
	t.Cleanup(func() { writeAttr = old })

	r, err := Open(Config{Backend: BackendUserspace, Path: dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	u := r.(*Userspace)
	if u.enabled() {
		t.Fatalf("expected initial state disabled")
	}
	if err := u.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if !u.enabled() {
		t.Fatalf("expected enabled")
	}
	if err := u.Disable(); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if len(writes) != 2 || writes[0] != "enabled" || writes[1] != "disabled" {
		t.Fatalf("writes=%v", writes)
	}
}

func TestUserspace_ReadsInitialState(t *testing.T) {
	u, err := OpenUserspace(userspaceNode(t, "enabled"))
	if err != nil {
		t.Fatalf("OpenUserspace: %v", err)
	}
	if !u.enabled() {
		t.Fatalf("expected enabled")
	}
}

func TestUserspace_MissingNode(t *testing.T) {
	if _, err := OpenUserspace(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := OpenUserspace(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestUserspace_WriteFailureKeepsState(t *testing.T) {
	u, err := OpenUserspace(userspaceNode(t, "disabled"))
	if err != nil {
		t.Fatalf("OpenUserspace: %v", err)
	}
	old := writeAttr
	writeAttr = func(string, string) error { return errors.New("EIO") }
	t.Cleanup(func() { writeAttr = old })

	if err := u.Enable(); err == nil {
		t.Fatalf("expected error")
	}
	if u.enabled() {
		t.Fatalf("state changed after failed write")
	}
}
