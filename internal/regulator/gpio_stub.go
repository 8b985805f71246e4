//go:build !linux

package regulator

import "fmt"

func openGPIO(chipPath, lineName string, activeLow bool) (Regulator, error) {
	return nil, fmt.Errorf("regulator: gpio unsupported on this platform")
}
