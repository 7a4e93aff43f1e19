// Bloch-vector reconstruction for the state lab room.
package quantum

import (
	"math"
	"math/rand"
)

// Axis is one of the three Bloch-sphere measurement axes.
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
	AxisZ Axis = "z"
)

// StateValidTolerance is how far |v|² may drift from 1 before a reconstructed
// vector stops counting as a physical state.
const StateValidTolerance = 0.1

// StateVector is a 3-component Bloch-sphere state.
type StateVector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Norm returns the Euclidean length of the vector.
func (v StateVector) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Reconstruct infers a state vector from noisy per-axis samples: each axis
// component is the clamped mean of its samples. The result is deliberately
// NOT renormalized; ValidateTargetState reports whether it is physical, and
// the room surfaces that to the player instead of silently fixing the vector.
func Reconstruct(measurements map[Axis][]float64) (StateVector, error) {
	sampled := 0
	for _, axis := range []Axis{AxisX, AxisY, AxisZ} {
		if len(measurements[axis]) > 0 {
			sampled++
		}
	}
	if sampled < 3 {
		return StateVector{}, InsufficientAxesError{Sampled: sampled}
	}

	return StateVector{
		X: clampedMean(measurements[AxisX]),
		Y: clampedMean(measurements[AxisY]),
		Z: clampedMean(measurements[AxisZ]),
	}, nil
}

// ValidateTargetState reports whether v is a valid physical state, i.e. its
// squared norm is within StateValidTolerance of 1.
func ValidateTargetState(v StateVector) bool {
	normSq := v.X*v.X + v.Y*v.Y + v.Z*v.Z
	return math.Abs(normSq-1) <= StateValidTolerance
}

// GenerateRandomTargetState draws θ ∈ [0,π], φ ∈ [0,2π] uniformly and returns
// the corresponding unit vector, so |v| = 1 by construction.
func GenerateRandomTargetState(rng *rand.Rand) StateVector {
	theta := rng.Float64() * math.Pi
	phi := rng.Float64() * 2 * math.Pi
	return StateVector{
		X: math.Sin(theta) * math.Cos(phi),
		Y: math.Sin(theta) * math.Sin(phi),
		Z: math.Cos(theta),
	}
}

func clampedMean(samples []float64) float64 {
	var sum float64
	for _, s := range samples {
		sum += s
	}
	mean := sum / float64(len(samples))
	if mean > 1 {
		return 1
	}
	if mean < -1 {
		return -1
	}
	return mean
}
