// Package broadcast fans game lifecycle events out to SSE subscribers.
package broadcast

import (
	"encoding/json"
	"sync"

	"quantumescape/internal/events"
)

// EventMessage is one SSE frame: an event name plus a JSON payload.
type EventMessage struct {
	Event string
	Data  string
}

type Broadcaster struct {
	Mu      sync.Mutex
	Clients map[chan EventMessage]bool

	done     chan struct{}
	stopOnce sync.Once
}

// NewBroadcaster starts pumping the bus channels into connected clients.
// Stop ends the pump.
func NewBroadcaster(bus *events.Bus) *Broadcaster {
	b := &Broadcaster{
		Clients: make(map[chan EventMessage]bool),
		done:    make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-b.done:
				return
			case ev := <-bus.RoomCompletions:
				b.Broadcast("roomCompleted", ev)
			case ev := <-bus.AchievementUnlocks:
				b.Broadcast("achievementUnlocked", ev)
			case ev := <-bus.HintsShown:
				b.Broadcast("hintShown", ev)
			case ev := <-bus.SessionCompletions:
				b.Broadcast("sessionCompleted", ev)
			}
		}
	}()
	return b
}

// Stop shuts the pump goroutine down. Safe to call more than once.
func (b *Broadcaster) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
	})
}

func (b *Broadcaster) Subscribe() chan EventMessage {
	ch := make(chan EventMessage, 10)
	b.Mu.Lock()
	b.Clients[ch] = true
	b.Mu.Unlock()
	return ch
}

func (b *Broadcaster) Unsubscribe(ch chan EventMessage) {
	b.Mu.Lock()
	delete(b.Clients, ch)
	b.Mu.Unlock()
	close(ch)
}

// Broadcast sends an event to every subscriber, dropping it for clients whose
// channels are full.
func (b *Broadcaster) Broadcast(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	b.Mu.Lock()
	defer b.Mu.Unlock()
	for ch := range b.Clients {
		select {
		case ch <- EventMessage{Event: event, Data: string(data)}:
		default:
			// skip clients with full data channels
		}
	}
}
