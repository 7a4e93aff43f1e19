// Package events carries game lifecycle notifications from the progress core
// to the delivery layers (SSE broadcaster, websocket hub).
package events

type RoomCompletedEvent struct {
	Room     string
	Score    int
	Progress int
}

type AchievementUnlockedEvent struct {
	AchievementID string
	Name          string
}

type HintShownEvent struct {
	HintID  string
	Room    string
	Message string
}

type SessionCompletedEvent struct {
	SessionID  string
	TotalScore int
}

type Bus struct {
	RoomCompletions    chan RoomCompletedEvent
	AchievementUnlocks chan AchievementUnlockedEvent
	HintsShown         chan HintShownEvent
	SessionCompletions chan SessionCompletedEvent
}

func NewBus() *Bus {
	return &Bus{
		RoomCompletions:    make(chan RoomCompletedEvent, 10),
		AchievementUnlocks: make(chan AchievementUnlockedEvent, 10),
		HintsShown:         make(chan HintShownEvent, 10),
		SessionCompletions: make(chan SessionCompletedEvent, 10),
	}
}
