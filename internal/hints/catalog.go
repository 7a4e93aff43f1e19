package hints

import "quantumescape/internal/rooms"

// Hint is a static catalog entry. Priority 1 is the highest; a zero
// RepeatLimit means the hint may repeat without bound. Trigger, when set,
// matches external telemetry event keys.
type Hint struct {
	ID          string `json:"id"`
	Message     string `json:"message"`
	Category    string `json:"category"`
	Priority    int    `json:"priority"`
	Trigger     string `json:"-"`
	RepeatLimit int    `json:"-"`
}

// Catalog holds the per-room hint decks.
var Catalog = map[rooms.ID][]Hint{
	rooms.Superposition: {
		{ID: "sup-welcome", Message: "A qubit can hold both answers at once. Try preparing an equal mix.", Category: "intro", Priority: 1, RepeatLimit: 1},
		{ID: "sup-normalize", Message: "Amplitudes must square-sum to one before the detector accepts them.", Category: "physics", Priority: 2, Trigger: "invalid_input"},
		{ID: "sup-idle", Message: "Stuck? The sliders set amplitudes, not probabilities.", Category: "nudge", Priority: 3, Trigger: "idle"},
	},
	rooms.DoubleSlit: {
		{ID: "slit-pattern", Message: "The pattern on the wall is the square of the wave, not the wave itself.", Category: "intro", Priority: 1, RepeatLimit: 1},
		{ID: "slit-fail", Message: "Zero everywhere means no wave at all. Give at least one path an amplitude.", Category: "physics", Priority: 2, Trigger: "invalid_input"},
	},
	rooms.Entanglement: {
		{ID: "bell-angles", Message: "Certain analyzer angles correlate more strongly than any classical theory allows.", Category: "intro", Priority: 1, RepeatLimit: 1},
		{ID: "bell-more-data", Message: "The test needs at least twenty measurement pairs before it means anything.", Category: "physics", Priority: 2, Trigger: "insufficient_data"},
		{ID: "bell-auto", Message: "The auto-measure lever cycles the four optimal angle pairs for you.", Category: "nudge", Priority: 3, Trigger: "idle"},
	},
	rooms.Vault: {
		{ID: "vault-thin", Message: "Thinner barriers leak more. Width matters exponentially.", Category: "intro", Priority: 1, RepeatLimit: 1},
		{ID: "vault-over", Message: "The vault only opens by tunneling. Keep the particle energy below the barrier.", Category: "physics", Priority: 2, Trigger: "over_barrier"},
		{ID: "vault-optimize", Message: "The console can search barrier settings for a target probability.", Category: "nudge", Priority: 3, Trigger: "failed_attempt"},
	},
	rooms.StateLab: {
		{ID: "lab-axes", Message: "You need readings on all three axes to pin the state down.", Category: "intro", Priority: 1, RepeatLimit: 1},
		{ID: "lab-noise", Message: "Single readings are noisy. Average many per axis.", Category: "physics", Priority: 2, Trigger: "invalid_state"},
	},
	rooms.Decoherence: {
		{ID: "deco-final", Message: "Everything you learned applies here. Keep the system isolated.", Category: "intro", Priority: 1, RepeatLimit: 1},
		{ID: "deco-fail", Message: "Each failed attempt couples the system to the environment a little more.", Category: "nudge", Priority: 2, Trigger: "failed_attempt"},
	},
}
