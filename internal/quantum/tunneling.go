// Rectangular-barrier tunneling for the vault room.
//
// Transmission follows the thin-barrier approximation T = e^(-2κa) with
// κ = sqrt(2m(V-E))/ħ. Energies arrive in eV and widths in nm, so the
// constants below fold the unit conversions into a single factor.
package quantum

import "math"

// kappaPerNm converts sqrt(V-E in eV) to κ in 1/nm for an electron:
// sqrt(2 m_e) / ħ with the eV and nm conversions applied.
const kappaPerNm = 5.123

// Grid bounds for Optimize. Chosen to cover the dial ranges the vault room
// exposes to the player.
const (
	minBarrierEv = 1.0
	maxBarrierEv = 10.0
	minWidthNm   = 0.1
	maxWidthNm   = 2.0
	minEnergyEv  = 0.1
	gridSteps    = 40
)

// TunnelConfig is one barrier/particle configuration.
type TunnelConfig struct {
	BarrierHeightEv  float64 `json:"barrierHeightEv"`
	BarrierWidthNm   float64 `json:"barrierWidthNm"`
	ParticleEnergyEv float64 `json:"particleEnergyEv"`
}

// TransmissionProbability returns the probability of a particle crossing a
// classically forbidden barrier. A particle at or above the barrier height is
// rejected with InvalidBarrierError: the vault only opens by tunneling, never
// by going over the top.
func TransmissionProbability(barrierHeightEv, barrierWidthNm, particleEnergyEv float64) (float64, error) {
	if barrierHeightEv <= 0 {
		return 0, InvalidInputError{Param: "barrierHeightEv", Reason: "must be positive"}
	}
	if barrierWidthNm <= 0 {
		return 0, InvalidInputError{Param: "barrierWidthNm", Reason: "must be positive"}
	}
	if particleEnergyEv <= 0 {
		return 0, InvalidInputError{Param: "particleEnergyEv", Reason: "must be positive"}
	}
	if particleEnergyEv >= barrierHeightEv {
		return 0, InvalidBarrierError{EnergyEv: particleEnergyEv, BarrierEv: barrierHeightEv}
	}

	kappa := kappaPerNm * math.Sqrt(barrierHeightEv-particleEnergyEv)
	return math.Exp(-2 * kappa * barrierWidthNm), nil
}

// Optimize searches a bounded parameter grid for the configuration whose
// transmission probability lands closest to target. Deterministic for
// identical inputs; on ties the lowest barrier width wins: width is scanned
// ascending in the outermost loop and only strict improvements replace the
// best, so the first (thinnest) candidate at a given distance sticks.
func Optimize(targetProbability float64) (TunnelConfig, error) {
	if targetProbability <= 0 || targetProbability > 1 {
		return TunnelConfig{}, InvalidInputError{Param: "targetProbability", Reason: "must be in (0, 1]"}
	}

	var best TunnelConfig
	bestDiff := math.Inf(1)

	heightStep := (maxBarrierEv - minBarrierEv) / gridSteps
	widthStep := (maxWidthNm - minWidthNm) / gridSteps

	for wi := 0; wi <= gridSteps; wi++ {
		width := minWidthNm + float64(wi)*widthStep
		for hi := 0; hi <= gridSteps; hi++ {
			height := minBarrierEv + float64(hi)*heightStep
			energyStep := (height - minEnergyEv) / gridSteps
			for ei := 0; ei < gridSteps; ei++ {
				energy := minEnergyEv + float64(ei)*energyStep
				if energy >= height {
					continue
				}
				prob, err := TransmissionProbability(height, width, energy)
				if err != nil {
					continue
				}
				diff := math.Abs(prob - targetProbability)
				if diff < bestDiff {
					bestDiff = diff
					best = TunnelConfig{
						BarrierHeightEv:  height,
						BarrierWidthNm:   width,
						ParticleEnergyEv: energy,
					}
				}
			}
		}
	}
	return best, nil
}
