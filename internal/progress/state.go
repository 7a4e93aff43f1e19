package progress

import (
	"encoding/json"

	"quantumescape/internal/achievements"
	"quantumescape/internal/rooms"
)

// State is the machine's lifecycle phase.
type State string

const (
	StateUnauthenticatedLocal State = "unauthenticated-local"
	StateAuthenticatedSyncing State = "authenticated-syncing"
	StateSessionActive        State = "session-active"
	StateSessionCompleting    State = "session-completing"
	StateSessionTerminated    State = "session-terminated"
)

// GameState is the canonical game progress, owned exclusively by the Machine.
// CompletedRooms is a set with insertion order preserved; CurrentProgress
// never decreases; TotalScore never goes negative.
type GameState struct {
	CompletedRooms  []rooms.ID
	CurrentProgress int
	Achievements    []achievements.ID
	TotalScore      int
}

// Session tracks one playthrough. It exists only while authenticated and is
// detached from the machine once completed.
type Session struct {
	ID           string
	UserID       string
	CurrentRoom  rooms.ID
	RoomTimes    map[rooms.ID]int
	RoomAttempts map[rooms.ID]int
	RoomScores   map[rooms.ID]int
	IsCompleted  bool
}

// CompletionData is what a room reports when the player solves it.
type CompletionData struct {
	Score        int
	TimeSeconds  int
	BellViolated bool
	PerfectVault bool
}

// Snapshot is the read-only view handed to consumers. The machine never
// shares its internal slices.
type Snapshot struct {
	State           State             `json:"state"`
	CurrentRoom     rooms.ID          `json:"currentRoom"`
	CompletedRooms  []rooms.ID        `json:"completedRooms"`
	CurrentProgress int               `json:"currentProgress"`
	Achievements    []achievements.ID `json:"achievements"`
	TotalScore      int               `json:"totalScore"`
	SessionID       string            `json:"sessionId,omitempty"`
}

// Local persistence keys (see the session service contract).
const (
	keyGameState   = "gameState"
	keyCurrentRoom = "currentRoom"
)

// persistedState is the gameState JSON written to the local store.
type persistedState struct {
	CompletedRooms  []rooms.ID        `json:"completedRooms"`
	CurrentProgress int               `json:"currentProgress"`
	Achievements    []achievements.ID `json:"achievements"`
	TotalScore      int               `json:"totalScore"`
	RoomAttempts    map[rooms.ID]int  `json:"roomAttempts,omitempty"`
	RoomTimes       map[rooms.ID]int  `json:"roomTimes,omitempty"`
	RoomScores      map[rooms.ID]int  `json:"roomScores,omitempty"`
}

func (p persistedState) marshal() string {
	data, err := json.Marshal(p)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// parsePersisted decodes stored game state. Corrupt content falls back
// silently to zero defaults.
func parsePersisted(raw string) persistedState {
	var p persistedState
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return persistedState{}
	}
	return p
}
