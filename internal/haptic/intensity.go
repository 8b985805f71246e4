package haptic

import "fmt"

// MaxIntensity is the top of the intensity scale.
const MaxIntensity = 10000

// ComputeDuty maps an intensity level to a PWM duty cycle.
//
//   - MaxIntensity drives exactly baselineDuty.
//   - 0 is the midpoint period/2: PWM running, no audible effect.
//   - Anything else adds a share of baselineDuty/2 on top of period/2,
//     scaled by intensity/MaxIntensity in 64-bit integer math so small
//     intensities are not truncated to zero.
//
// The result never exceeds period as long as baselineDuty <= period.
func ComputeDuty(intensity int, baselineDuty, period uint32) (uint32, error) {
	if intensity < 0 || intensity > MaxIntensity {
		return 0, fmt.Errorf("%w: %d not in [0, %d]", ErrIntensityOutOfRange, intensity, MaxIntensity)
	}
	switch intensity {
	case MaxIntensity:
		return baselineDuty, nil
	case 0:
		return period / 2, nil
	}
	half := uint64(baselineDuty / 2)
	extra := half * uint64(intensity) / MaxIntensity
	return period/2 + uint32(extra), nil
}
