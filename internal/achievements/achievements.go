// Package achievements evaluates unlock predicates over accumulated game
// state. Predicates are pure; the caller owns the unlocked set, so
// re-evaluating an already-unlocked achievement never re-fires.
package achievements

import "quantumescape/internal/rooms"

type ID string

const (
	FirstSteps     ID = "first_steps"
	Halfway        ID = "halfway"
	FullClear      ID = "full_clear"
	ScoreCollector ID = "score_collector"
	ScoreMaster    ID = "score_master"
	BellBreaker    ID = "bell_breaker"
	GhostInTheWall ID = "ghost_in_the_wall"
)

type Achievement struct {
	ID          ID
	Name        string
	Description string
	Icon        string
}

var All = map[ID]Achievement{
	FirstSteps:     {ID: FirstSteps, Name: "First Steps", Description: "Complete your first room", Icon: "🚪"},
	Halfway:        {ID: Halfway, Name: "Halfway There", Description: "Complete 3 rooms", Icon: "🧭"},
	FullClear:      {ID: FullClear, Name: "Escape Artist", Description: "Complete all 6 rooms", Icon: "🏆"},
	ScoreCollector: {ID: ScoreCollector, Name: "Collector", Description: "Reach 500 points", Icon: "💎"},
	ScoreMaster:    {ID: ScoreMaster, Name: "High Scorer", Description: "Reach 1000 points", Icon: "👑"},
	BellBreaker:    {ID: BellBreaker, Name: "Bell Breaker", Description: "Violate the CHSH inequality", Icon: "🔔"},
	GhostInTheWall: {ID: GhostInTheWall, Name: "Ghost in the Wall", Description: "Tunnel through the vault barrier on the first attempt", Icon: "👻"},
}

// Snapshot is the read-only view of game state the predicates consume.
type Snapshot struct {
	CompletedRooms []rooms.ID
	TotalScore     int
	BellViolated   bool
	PerfectVault   bool
}

// Evaluate returns the achievements newly satisfied by state that are not in
// unlocked yet, in a fixed check order.
func Evaluate(state Snapshot, unlocked map[ID]bool) []Achievement {
	var earned []Achievement
	add := func(id ID, satisfied bool) {
		if satisfied && !unlocked[id] {
			earned = append(earned, All[id])
		}
	}

	add(FirstSteps, len(state.CompletedRooms) >= 1)
	add(Halfway, len(state.CompletedRooms) >= 3)
	add(FullClear, len(state.CompletedRooms) >= rooms.Total)
	add(ScoreCollector, state.TotalScore >= 500)
	add(ScoreMaster, state.TotalScore >= 1000)
	add(BellBreaker, state.BellViolated)
	add(GhostInTheWall, state.PerfectVault)

	return earned
}
