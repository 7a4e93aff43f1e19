// Package progress owns the canonical game state and the session lifecycle:
// it reconciles local (offline) and remote (authenticated) progress, drives
// room transitions, evaluates achievement unlocks, and feeds the hint
// scheduler and event bus.
package progress

import (
	"context"
	"log"
	"sync"
	"time"

	"quantumescape/internal/achievements"
	"quantumescape/internal/events"
	"quantumescape/internal/hints"
	"quantumescape/internal/localstore"
	"quantumescape/internal/remote"
	"quantumescape/internal/rooms"
)

// RemoteAPI is the slice of the session service the machine uses. All calls
// are fire-and-forget from its perspective: failures are logged and local
// state stays authoritative.
type RemoteAPI interface {
	FetchIdentity(ctx context.Context) (remote.Identity, error)
	CreateSession(ctx context.Context) (remote.Session, error)
	UpdateSession(ctx context.Context, id string, upd remote.SessionUpdate) (remote.Session, error)
	CompleteSession(ctx context.Context, id string) (remote.Session, error)
	ListSessions(ctx context.Context) ([]remote.Session, error)
	SubmitScore(ctx context.Context, sessionID string) (remote.LeaderboardAck, error)
	UnlockAchievement(ctx context.Context, achievementID, sessionID string) error
}

// Machine is the progress state machine. All mutations go through its public
// operations; everything else sees snapshots.
type Machine struct {
	// mu guards every field below. Operations run to completion under it, so
	// no two room completions can interleave mid-update.
	mu sync.Mutex

	state    State
	game     GameState
	session  *Session
	unlocked map[achievements.ID]bool

	currentRoom rooms.ID
	enteredAt   time.Time

	remote    RemoteAPI
	store     *localstore.Store
	bus       *events.Bus
	hints     *hints.Scheduler
	queue     *syncQueue
	submitted bool

	onSyncFailure func()
}

// SetSyncFailureHook registers a callback invoked once per failed remote
// write. Used by the server to count failures.
func (m *Machine) SetSyncFailureHook(f func()) {
	m.mu.Lock()
	m.onSyncFailure = f
	m.mu.Unlock()
}

func (m *Machine) noteSyncFailure() {
	m.mu.Lock()
	f := m.onSyncFailure
	m.mu.Unlock()
	if f != nil {
		f()
	}
}

// NewMachine builds a machine in Unauthenticated-Local state, restoring any
// locally persisted progress. Corrupt persisted state falls back to defaults.
func NewMachine(store *localstore.Store, bus *events.Bus, sched *hints.Scheduler) *Machine {
	m := &Machine{
		state:    StateUnauthenticatedLocal,
		unlocked: make(map[achievements.ID]bool),
		store:    store,
		bus:      bus,
		hints:    sched,
		queue:    newSyncQueue(),
	}
	m.restoreLocal()
	return m
}

// Authenticate attempts to move the machine online with the given client. On
// identity failure the caller should discard its token; the machine stays
// local-only.
func (m *Machine) Authenticate(ctx context.Context, api RemoteAPI) error {
	identity, err := api.FetchIdentity(ctx)
	if err != nil {
		log.Printf("[Sync] Identity fetch failed, staying local: %v\n", err)
		m.noteSyncFailure()
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.remote = api
	m.state = StateAuthenticatedSyncing

	// Resume the most recent incomplete session, if the service has one.
	sessions, err := api.ListSessions(ctx)
	if err != nil {
		log.Printf("[Sync] Session list failed, will create lazily: %v\n", err)
		if m.onSyncFailure != nil {
			m.onSyncFailure()
		}
		return nil
	}
	for i := len(sessions) - 1; i >= 0; i-- {
		if sessions[i].IsCompleted {
			continue
		}
		m.adoptSessionLocked(sessions[i], identity.UserID)
		m.state = StateSessionActive
		log.Printf("[Sync] Resumed session %s\n", m.session.ID)
		break
	}
	if m.session == nil {
		log.Printf("[Sync] Authenticated as %s, no session yet\n", identity.UserID)
	}
	return nil
}

// SetCurrentRoom moves the player. When authenticated without an active
// session, entering the canonical first room lazily creates one (a single
// remote create, serialized through the sync queue).
func (m *Machine) SetCurrentRoom(room rooms.ID) error {
	if !rooms.Valid(room) {
		return InvalidRoomError{Room: string(room)}
	}

	m.mu.Lock()
	m.currentRoom = room
	m.enteredAt = time.Now()
	if m.session != nil {
		m.session.CurrentRoom = room
	}
	lazyCreate := m.state == StateAuthenticatedSyncing && m.session == nil && room == rooms.First()
	if lazyCreate {
		m.state = StateSessionActive
		m.session = &Session{
			CurrentRoom:  room,
			RoomTimes:    make(map[rooms.ID]int),
			RoomAttempts: make(map[rooms.ID]int),
			RoomScores:   make(map[rooms.ID]int),
		}
	}
	m.persistLocalLocked()
	api := m.remote
	m.mu.Unlock()

	if m.hints != nil {
		m.hints.SetRoom(room)
	}

	if lazyCreate && api != nil {
		m.queue.Enqueue(func(ctx context.Context) {
			s, err := api.CreateSession(ctx)
			if err != nil {
				log.Printf("[Sync] Session create failed: %v\n", err)
				m.noteSyncFailure()
				return
			}
			m.mu.Lock()
			if m.session != nil && m.session.ID == "" {
				m.session.ID = s.ID
				m.session.UserID = s.UserID
			}
			m.mu.Unlock()
			log.Printf("[Sync] Session %s created\n", s.ID)
		})
	}
	return nil
}

// RecordAttempt logs a solve attempt for a room; rooms call it on every
// failed validation so attempt counts reach the session record.
func (m *Machine) RecordAttempt(room rooms.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		m.session.RoomAttempts[room]++
	}
}

// CompleteRoom records a solved room. Re-completing a room does not duplicate
// it in the completed set but does re-add its score; that scoring quirk is
// intentional behavior parity and pinned by tests. The sixth distinct room
// completes the session: one completion call and one leaderboard submission.
func (m *Machine) CompleteRoom(room rooms.ID, data CompletionData) error {
	if !rooms.Valid(room) {
		return InvalidRoomError{Room: string(room)}
	}

	m.mu.Lock()

	already := false
	for _, r := range m.game.CompletedRooms {
		if r == room {
			already = true
			break
		}
	}
	if !already {
		m.game.CompletedRooms = append(m.game.CompletedRooms, room)
	}

	// Score is re-added even for an already-completed room. The total never
	// drops below zero.
	m.game.TotalScore += data.Score
	if m.game.TotalScore < 0 {
		m.game.TotalScore = 0
	}

	if p := len(m.game.CompletedRooms) + 1; p > m.game.CurrentProgress {
		m.game.CurrentProgress = p
	}

	if m.session != nil {
		m.session.RoomScores[room] = data.Score
		if m.session.RoomAttempts[room] == 0 {
			m.session.RoomAttempts[room] = 1
		}
		seconds := data.TimeSeconds
		if seconds == 0 && !m.enteredAt.IsZero() && m.currentRoom == room {
			seconds = int(time.Since(m.enteredAt).Seconds())
		}
		m.session.RoomTimes[room] = seconds
	}

	newUnlocks := m.evaluateAchievementsLocked(achievements.Snapshot{
		CompletedRooms: append([]rooms.ID(nil), m.game.CompletedRooms...),
		TotalScore:     m.game.TotalScore,
		BellViolated:   data.BellViolated,
		PerfectVault:   data.PerfectVault,
	})

	m.persistLocalLocked()

	finishing := m.state == StateSessionActive && len(m.game.CompletedRooms) >= rooms.Total && !m.submitted
	if finishing {
		m.state = StateSessionCompleting
		m.submitted = true
	}

	api := m.remote
	var sessionID string
	var upd remote.SessionUpdate
	if m.session != nil {
		sessionID = m.session.ID
		upd = m.sessionUpdateLocked()
	}
	score := m.game.TotalScore
	progress := m.game.CurrentProgress
	m.mu.Unlock()

	m.emitRoomCompleted(room, data.Score, progress)
	for _, a := range newUnlocks {
		m.emitUnlock(a)
		if api != nil {
			id := string(a.ID)
			m.queue.Enqueue(func(ctx context.Context) {
				if err := api.UnlockAchievement(ctx, id, sessionID); err != nil {
					log.Printf("[Sync] Achievement %s persist failed: %v\n", id, err)
					m.noteSyncFailure()
				}
			})
		}
	}

	if api != nil && m.hasSession() {
		m.queue.Enqueue(func(ctx context.Context) {
			id := m.sessionID()
			if id == "" {
				log.Printf("[Sync] No remote session id, skipping update\n")
				return
			}
			if _, err := api.UpdateSession(ctx, id, upd); err != nil {
				log.Printf("[Sync] Session update failed: %v\n", err)
				m.noteSyncFailure()
			}
		})
	}

	if finishing {
		m.finishSession(api, score)
	}
	return nil
}

// CheckAndUnlockAchievements evaluates the predicate table against the given
// state and unlocks anything newly satisfied. Already-unlocked achievements
// never re-fire.
func (m *Machine) CheckAndUnlockAchievements(completedRooms []rooms.ID, totalScore int) []achievements.Achievement {
	m.mu.Lock()
	newUnlocks := m.evaluateAchievementsLocked(achievements.Snapshot{
		CompletedRooms: completedRooms,
		TotalScore:     totalScore,
	})
	m.persistLocalLocked()
	api := m.remote
	sessionID := ""
	if m.session != nil {
		sessionID = m.session.ID
	}
	m.mu.Unlock()

	for _, a := range newUnlocks {
		m.emitUnlock(a)
		if api != nil {
			id := string(a.ID)
			m.queue.Enqueue(func(ctx context.Context) {
				if err := api.UnlockAchievement(ctx, id, sessionID); err != nil {
					log.Printf("[Sync] Achievement %s persist failed: %v\n", id, err)
					m.noteSyncFailure()
				}
			})
		}
	}
	return newUnlocks
}

// ResetGame clears in-memory and locally persisted state. The machine returns
// to local-only or syncing depending on whether it is authenticated.
func (m *Machine) ResetGame() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.game = GameState{}
	m.session = nil
	m.unlocked = make(map[achievements.ID]bool)
	m.currentRoom = ""
	m.submitted = false
	m.store.Delete(keyGameState)
	m.store.Delete(keyCurrentRoom)
	if m.remote != nil {
		m.state = StateAuthenticatedSyncing
	} else {
		m.state = StateUnauthenticatedLocal
	}
}

// GetSnapshot returns a read-only copy of the canonical state.
func (m *Machine) GetSnapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := Snapshot{
		State:           m.state,
		CurrentRoom:     m.currentRoom,
		CompletedRooms:  append([]rooms.ID(nil), m.game.CompletedRooms...),
		CurrentProgress: m.game.CurrentProgress,
		Achievements:    append([]achievements.ID(nil), m.game.Achievements...),
		TotalScore:      m.game.TotalScore,
	}
	if m.session != nil {
		snap.SessionID = m.session.ID
	}
	return snap
}

// Close drains the sync queue and stops the hint scheduler.
func (m *Machine) Close() {
	if m.hints != nil {
		m.hints.Stop()
	}
	m.queue.Close()
}

// finishSession submits completion and one leaderboard entry, then
// terminates. Runs through the queue so it orders after the final update.
func (m *Machine) finishSession(api RemoteAPI, totalScore int) {
	sessionID := m.sessionID()
	m.queue.Enqueue(func(ctx context.Context) {
		if api != nil && sessionID != "" {
			if _, err := api.CompleteSession(ctx, sessionID); err != nil {
				log.Printf("[Sync] Session complete failed: %v\n", err)
				m.noteSyncFailure()
			}
			if ack, err := api.SubmitScore(ctx, sessionID); err != nil {
				log.Printf("[Sync] Leaderboard submission failed: %v\n", err)
				m.noteSyncFailure()
			} else {
				log.Printf("[Sync] Leaderboard rank %d\n", ack.Rank)
			}
		}

		m.mu.Lock()
		if m.session != nil {
			m.session.IsCompleted = true
			m.session = nil
		}
		m.state = StateSessionTerminated
		m.mu.Unlock()

		if m.bus != nil {
			select {
			case m.bus.SessionCompletions <- events.SessionCompletedEvent{SessionID: sessionID, TotalScore: totalScore}:
			default:
			}
		}
	})
}

// evaluateAchievementsLocked applies the predicate table and records new
// unlocks. Caller holds the lock.
func (m *Machine) evaluateAchievementsLocked(snap achievements.Snapshot) []achievements.Achievement {
	newUnlocks := achievements.Evaluate(snap, m.unlocked)
	for _, a := range newUnlocks {
		m.unlocked[a.ID] = true
		m.game.Achievements = append(m.game.Achievements, a.ID)
	}
	return newUnlocks
}

func (m *Machine) adoptSessionLocked(s remote.Session, userID string) {
	sess := &Session{
		ID:           s.ID,
		UserID:       userID,
		CurrentRoom:  rooms.ID(s.CurrentRoom),
		RoomTimes:    make(map[rooms.ID]int),
		RoomAttempts: make(map[rooms.ID]int),
		RoomScores:   make(map[rooms.ID]int),
	}
	for k, v := range s.RoomTimes {
		sess.RoomTimes[rooms.ID(k)] = v
	}
	for k, v := range s.RoomAttempts {
		sess.RoomAttempts[rooms.ID(k)] = v
	}
	for k, v := range s.RoomScores {
		sess.RoomScores[rooms.ID(k)] = v
	}
	m.session = sess

	// Remote progress wins over whatever was persisted locally.
	m.game.CompletedRooms = nil
	for _, r := range s.CompletedRooms {
		m.game.CompletedRooms = append(m.game.CompletedRooms, rooms.ID(r))
	}
	m.game.TotalScore = s.TotalScore
	if p := len(m.game.CompletedRooms) + 1; p > m.game.CurrentProgress {
		m.game.CurrentProgress = p
	}
	if s.CurrentRoom != "" {
		m.currentRoom = rooms.ID(s.CurrentRoom)
	}
}

func (m *Machine) sessionUpdateLocked() remote.SessionUpdate {
	upd := remote.SessionUpdate{
		CurrentRoom:  string(m.currentRoom),
		RoomTimes:    make(map[string]int),
		RoomAttempts: make(map[string]int),
		RoomScores:   make(map[string]int),
		TotalScore:   m.game.TotalScore,
	}
	for _, r := range m.game.CompletedRooms {
		upd.CompletedRooms = append(upd.CompletedRooms, string(r))
	}
	for k, v := range m.session.RoomTimes {
		upd.RoomTimes[string(k)] = v
	}
	for k, v := range m.session.RoomAttempts {
		upd.RoomAttempts[string(k)] = v
	}
	for k, v := range m.session.RoomScores {
		upd.RoomScores[string(k)] = v
	}
	return upd
}

// restoreLocal loads persisted state; anything unparsable silently yields
// defaults.
func (m *Machine) restoreLocal() {
	if raw, ok := m.store.Get(keyGameState); ok {
		p := parsePersisted(raw)
		m.game.CompletedRooms = p.CompletedRooms
		m.game.CurrentProgress = p.CurrentProgress
		m.game.TotalScore = p.TotalScore
		m.game.Achievements = p.Achievements
		for _, id := range p.Achievements {
			m.unlocked[id] = true
		}
	}
	if room, ok := m.store.Get(keyCurrentRoom); ok && rooms.Valid(rooms.ID(room)) {
		m.currentRoom = rooms.ID(room)
	}
}

func (m *Machine) persistLocalLocked() {
	p := persistedState{
		CompletedRooms:  m.game.CompletedRooms,
		CurrentProgress: m.game.CurrentProgress,
		Achievements:    m.game.Achievements,
		TotalScore:      m.game.TotalScore,
	}
	if m.session != nil {
		p.RoomAttempts = m.session.RoomAttempts
		p.RoomTimes = m.session.RoomTimes
		p.RoomScores = m.session.RoomScores
	}
	if err := m.store.Set(keyGameState, p.marshal()); err != nil {
		log.Printf("[Store] Persist failed: %v\n", err)
	}
	if m.currentRoom != "" {
		if err := m.store.Set(keyCurrentRoom, string(m.currentRoom)); err != nil {
			log.Printf("[Store] Persist failed: %v\n", err)
		}
	}
}

func (m *Machine) emitRoomCompleted(room rooms.ID, score, progress int) {
	if m.bus == nil {
		return
	}
	select {
	case m.bus.RoomCompletions <- events.RoomCompletedEvent{Room: string(room), Score: score, Progress: progress}:
	default:
	}
}

func (m *Machine) emitUnlock(a achievements.Achievement) {
	if m.bus == nil {
		return
	}
	select {
	case m.bus.AchievementUnlocks <- events.AchievementUnlockedEvent{AchievementID: string(a.ID), Name: a.Name}:
	default:
	}
}

func (m *Machine) hasSession() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}

func (m *Machine) sessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ""
	}
	return m.session.ID
}
