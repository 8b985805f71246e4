// Package sysfs holds the small attribute read/write helpers shared by the
// PWM and regulator backends.
package sysfs

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/multierr"
)

// RetryWindow bounds how long Write keeps retrying a freshly created
// attribute that is not yet writable.
var RetryWindow = 2 * time.Second

// Write stores value into a sysfs attribute.
//
// Attributes are opened O_WRONLY without O_TRUNC/O_CREATE; some attributes
// reject truncation flags at open() time even when mode bits allow writes.
// Right after a node is exported the kernel creates its files and udev may
// fix up permissions asynchronously, so EACCES/ENOENT are retried for a short
// window.
func Write(path string, value string) error {
	deadline := time.Now().Add(RetryWindow)
	var lastErr error
	for {
		f, err := os.OpenFile(path, os.O_WRONLY, 0)
		if err != nil {
			lastErr = err
			if time.Now().Before(deadline) && isRetryable(err) {
				time.Sleep(25 * time.Millisecond)
				continue
			}
			return err
		}
		_, werr := f.WriteString(value)
		cerr := f.Close()
		if werr == nil && cerr == nil {
			return nil
		}
		if werr != nil {
			lastErr = werr
		} else {
			lastErr = cerr
		}
		if time.Now().Before(deadline) && isRetryable(lastErr) {
			time.Sleep(25 * time.Millisecond)
			continue
		}
		return multierr.Combine(werr, cerr)
	}
}

// ReadString returns the attribute contents with surrounding whitespace and
// NUL padding removed.
func ReadString(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.Trim(strings.TrimSpace(string(b)), "\x00"), nil
}

func ReadInt(path string) (int, error) {
	s, err := ReadString(path)
	if err != nil {
		return 0, err
	}
	if s == "" {
		return 0, fmt.Errorf("sysfs: %s is empty", path)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("sysfs: parse %s: %w", path, err)
	}
	return n, nil
}

func isRetryable(err error) bool {
	return os.IsPermission(err) || os.IsNotExist(err) || errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.ENOENT)
}
