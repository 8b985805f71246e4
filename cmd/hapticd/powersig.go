package main

import (
	"context"
	"log"
	"os"
)

type powerHooks interface {
	Suspend() error
	Resume() error
}

// runPowerSignals maps suspendSignal and resumeSignal to the device's
// power-management hooks until ctx is done.
func runPowerSignals(ctx context.Context, pm powerHooks, sigs <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-sigs:
			switch s {
			case suspendSignal:
				if err := pm.Suspend(); err != nil {
					log.Printf("suspend failed: %v", err)
				}
			case resumeSignal:
				if err := pm.Resume(); err != nil {
					log.Printf("resume failed: %v", err)
				}
			}
		}
	}
}
