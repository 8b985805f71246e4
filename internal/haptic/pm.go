package haptic

// Suspend forces the motor off before the system sleeps. It blocks until
// the countdown is disarmed and any queued stop has run, then clears the
// drive enable bit whether or not the motor was running.
func (d *Device) Suspend() error {
	if d.isClosed() {
		return ErrClosed
	}
	d.timer.cancel()
	d.worker.flush()

	d.hwMu.Lock()
	defer d.hwMu.Unlock()
	// A bring-up that held hwMu through the cancel above armed after it.
	d.timer.cancel()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	running := d.running
	d.mu.Unlock()

	if running {
		d.seq.tearDown()
	} else if err := d.seq.regs.SetMotorEnable(false); err != nil {
		d.logf("haptic: motor disable failed: %v", err)
	}

	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
	d.logf("haptic: suspend (was running=%v)", running)
	return nil
}

// Resume restores the register state the front-end loses across suspend.
// The motor stays off until the next Activate.
func (d *Device) Resume() error {
	d.hwMu.Lock()
	defer d.hwMu.Unlock()

	if d.isClosed() {
		return ErrClosed
	}
	d.seq.initRegisters()
	d.logf("haptic: resume")
	return nil
}
