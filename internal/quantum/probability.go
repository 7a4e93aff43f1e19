package quantum

import "math"

// AmplitudeToProbability applies the Born rule: the probability of observing
// an outcome is the squared magnitude of its amplitude.
func AmplitudeToProbability(amplitude float64) float64 {
	return amplitude * amplitude
}

// Normalize rescales amplitudes so their squared magnitudes sum to 1.
// Returns InvalidInputError when every amplitude is zero, since there is no
// valid state to normalize toward.
func Normalize(amplitudes []float64) ([]float64, error) {
	var sumSq float64
	for _, a := range amplitudes {
		sumSq += a * a
	}
	if sumSq == 0 {
		return nil, InvalidInputError{Param: "amplitudes", Reason: "all amplitudes are zero"}
	}

	norm := 1.0 / math.Sqrt(sumSq)
	out := make([]float64, len(amplitudes))
	for i, a := range amplitudes {
		out[i] = a * norm
	}
	return out, nil
}
