// Package hints delivers contextual messages per room: an automatic
// highest-priority hint shortly after room entry, and trigger-driven hints in
// response to telemetry events from the rooms.
package hints

import (
	"math/rand"
	"sync"
	"time"

	"quantumescape/internal/events"
	"quantumescape/internal/rooms"
)

// Scheduler owns hint delivery for one player session. The shown set is
// per-room and resets on room change; show counts persist for the scheduler's
// lifetime so repeat limits hold across re-entries.
type Scheduler struct {
	mu        sync.Mutex
	bus       *events.Bus
	rng       *rand.Rand
	delay     time.Duration
	room      rooms.ID
	shown     map[string]bool
	showCount map[string]int
	visible   *Hint
	autoTimer *time.Timer
}

func NewScheduler(bus *events.Bus, rng *rand.Rand, delay time.Duration) *Scheduler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Scheduler{
		bus:       bus,
		rng:       rng,
		delay:     delay,
		shown:     make(map[string]bool),
		showCount: make(map[string]int),
	}
}

// SetRoom switches the active room: cancels any pending auto-show timer,
// resets the per-room shown set, closes the visible hint, and schedules the
// room's auto hint.
func (s *Scheduler) SetRoom(room rooms.ID) {
	s.mu.Lock()
	if s.autoTimer != nil {
		s.autoTimer.Stop()
		s.autoTimer = nil
	}
	s.room = room
	s.shown = make(map[string]bool)
	s.visible = nil
	s.autoTimer = time.AfterFunc(s.delay, func() {
		s.autoShow(room)
	})
	s.mu.Unlock()
}

// Stop cancels pending timers. Called on session teardown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.autoTimer != nil {
		s.autoTimer.Stop()
		s.autoTimer = nil
	}
}

// Visible returns the hint currently on screen, if any.
func (s *Scheduler) Visible() *Hint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// Dismiss closes the visible hint.
func (s *Scheduler) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = nil
}

// Trigger reacts to a telemetry event key: the lowest-priority-number hint
// whose trigger matches and is still under its repeat limit wins. With no
// match, an unseen hint from the room's deck is picked uniformly at random;
// with everything seen, any hint is picked at random.
func (s *Scheduler) Trigger(event string) *Hint {
	s.mu.Lock()
	defer s.mu.Unlock()

	deck := Catalog[s.room]
	if len(deck) == 0 {
		return nil
	}

	var best *Hint
	for i := range deck {
		h := &deck[i]
		if h.Trigger != event || s.overLimit(h) {
			continue
		}
		if best == nil || h.Priority < best.Priority {
			best = h
		}
	}
	if best == nil {
		var unseen []*Hint
		for i := range deck {
			if !s.shown[deck[i].ID] {
				unseen = append(unseen, &deck[i])
			}
		}
		if len(unseen) > 0 {
			best = unseen[s.rng.Intn(len(unseen))]
		} else {
			best = &deck[s.rng.Intn(len(deck))]
		}
	}

	s.show(best)
	return best
}

// autoShow surfaces the highest-priority unseen hint for the room the timer
// was armed for. A room change between arming and firing makes this a no-op.
func (s *Scheduler) autoShow(room rooms.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.room != room {
		return
	}

	var best *Hint
	deck := Catalog[room]
	for i := range deck {
		h := &deck[i]
		if s.shown[h.ID] || s.overLimit(h) {
			continue
		}
		if best == nil || h.Priority < best.Priority {
			best = h
		}
	}
	if best != nil {
		s.show(best)
	}
}

// show records and publishes a hint. Caller holds the lock. Showing a new
// hint implicitly closes the current one: only one is visible at a time.
func (s *Scheduler) show(h *Hint) {
	s.shown[h.ID] = true
	s.showCount[h.ID]++
	s.visible = h
	if s.bus != nil {
		select {
		case s.bus.HintsShown <- events.HintShownEvent{HintID: h.ID, Room: string(s.room), Message: h.Message}:
		default:
		}
	}
}

func (s *Scheduler) overLimit(h *Hint) bool {
	return h.RepeatLimit > 0 && s.showCount[h.ID] >= h.RepeatLimit
}
