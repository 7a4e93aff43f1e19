// Paired-measurement simulation and CHSH evaluation for the entanglement room.
//
// The bell parameter here is NOT the textbook four-term CHSH sum. The game
// computes a single dominant-correlation proxy: group measurements by angle
// pair, take the maximum absolute average correlation across groups, and
// scale by 2.8 to reproduce the 0-2.83 theoretical range. A literal CHSH
// computation would need four separately-correlated streams; the proxy is
// what the puzzle balance was tuned against, so it is preserved exactly.
package quantum

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// MinBellMeasurements is the smallest log size RunBellTest will analyze.
const MinBellMeasurements = 20

// bellScale maps the maximum group correlation onto the CHSH range.
const bellScale = 2.8

// classicalBound is the CHSH limit for local hidden-variable theories.
const classicalBound = 2.0

// Measurement is one correlated Alice/Bob detector pair. Immutable once
// created; the caller appends it to an ordered log and never reorders.
type Measurement struct {
	AliceAngle  float64   `json:"aliceAngle"` // degrees
	BobAngle    float64   `json:"bobAngle"`   // degrees
	AliceResult int       `json:"aliceResult"`
	BobResult   int       `json:"bobResult"`
	Correlation int       `json:"correlation"` // +1 match, -1 mismatch
	Timestamp   time.Time `json:"timestamp"`
}

// BellTestResult is derived from the full measurement log on each run and is
// never stored.
type BellTestResult struct {
	BellParameter      float64 `json:"bellParameter"`
	ViolatesInequality bool    `json:"violatesInequality"`
	CorrelationAverage float64 `json:"correlationAverage"`
}

// optimalPairs are the four analyzer settings that maximize CHSH violation.
var optimalPairs = [4][2]float64{
	{0, 22.5},
	{0, 67.5},
	{45, 22.5},
	{45, 67.5},
}

// BellTester simulates paired polarization measurements. The random source is
// injected so tests can reproduce exact runs.
type BellTester struct {
	rng *rand.Rand
}

func NewBellTester(rng *rand.Rand) *BellTester {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &BellTester{rng: rng}
}

// Measure simulates one entangled pair measured at the given analyzer angles.
// Alice's bit is uniform; Bob's matches hers with probability cos²(Δθ).
func (b *BellTester) Measure(aliceAngle, bobAngle float64) Measurement {
	delta := (aliceAngle - bobAngle) * math.Pi / 180
	matchProb := math.Cos(delta) * math.Cos(delta)

	alice := 0
	if b.rng.Float64() < 0.5 {
		alice = 1
	}
	bob := alice
	if b.rng.Float64() >= matchProb {
		bob = 1 - alice
	}

	correlation := -1
	if alice == bob {
		correlation = 1
	}
	return Measurement{
		AliceAngle:  aliceAngle,
		BobAngle:    bobAngle,
		AliceResult: alice,
		BobResult:   bob,
		Correlation: correlation,
		Timestamp:   time.Now(),
	}
}

// AutoMeasureBatch produces exactly n measurements, round-robin over the four
// optimal angle pairs.
func (b *BellTester) AutoMeasureBatch(n int) []Measurement {
	out := make([]Measurement, 0, n)
	for i := 0; i < n; i++ {
		pair := optimalPairs[i%len(optimalPairs)]
		out = append(out, b.Measure(pair[0], pair[1]))
	}
	return out
}

// RunBellTest evaluates the measurement log. See the package comment for why
// the bell parameter is a scaled single-maximum proxy rather than the full
// four-term sum.
func RunBellTest(measurements []Measurement) (BellTestResult, error) {
	if len(measurements) < MinBellMeasurements {
		return BellTestResult{}, InsufficientDataError{Need: MinBellMeasurements, Got: len(measurements)}
	}

	type group struct {
		sum   int
		count int
	}
	groups := make(map[string]*group)
	total := 0
	for _, m := range measurements {
		key := fmt.Sprintf("%.4f/%.4f", m.AliceAngle, m.BobAngle)
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
		}
		g.sum += m.Correlation
		g.count++
		total += m.Correlation
	}

	var maxAbs float64
	for _, g := range groups {
		avg := math.Abs(float64(g.sum) / float64(g.count))
		if avg > maxAbs {
			maxAbs = avg
		}
	}

	param := maxAbs * bellScale
	return BellTestResult{
		BellParameter:      param,
		ViolatesInequality: param > classicalBound,
		CorrelationAverage: float64(total) / float64(len(measurements)),
	}, nil
}
