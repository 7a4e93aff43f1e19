package quantum

import "fmt"

// InvalidInputError indicates simulator parameters the engine cannot work
// with. Callers should re-prompt the player rather than treat it as fatal.
type InvalidInputError struct {
	Param  string
	Reason string
}

func (e InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %q: %s", e.Param, e.Reason)
}

// InsufficientDataError indicates an analysis was requested before enough
// measurements were collected.
type InsufficientDataError struct {
	Need int
	Got  int
}

func (e InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: need %d measurements, got %d", e.Need, e.Got)
}

// InvalidBarrierError indicates a tunneling configuration where the particle
// is classically over the barrier. The vault puzzle rejects these instead of
// treating them as trivial transmission.
type InvalidBarrierError struct {
	EnergyEv  float64
	BarrierEv float64
}

func (e InvalidBarrierError) Error() string {
	return fmt.Sprintf("particle energy %.3f eV is not below barrier height %.3f eV", e.EnergyEv, e.BarrierEv)
}

// InsufficientAxesError indicates state reconstruction was attempted without
// samples on all three measurement axes.
type InsufficientAxesError struct {
	Sampled int
}

func (e InsufficientAxesError) Error() string {
	return fmt.Sprintf("state reconstruction needs samples on 3 axes, got %d", e.Sampled)
}
