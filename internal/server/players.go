package server

import (
	"context"
	"log"
	"math/rand"
	"path/filepath"
	"sync"
	"time"

	"quantumescape/internal/broadcast"
	"quantumescape/internal/config"
	"quantumescape/internal/events"
	"quantumescape/internal/hints"
	"quantumescape/internal/localstore"
	"quantumescape/internal/progress"
	"quantumescape/internal/quantum"
)

const (
	playerIdleTTL = time.Hour
	sweepInterval = 5 * time.Minute
)

// playerSession is everything the server keeps per player: the progress
// machine, the hint scheduler, the event fan-out, and the simulator state that
// must persist between requests (the Bell tester's random stream and the
// state-lab target).
type playerSession struct {
	ID          string
	Bus         *events.Bus
	Broadcaster *broadcast.Broadcaster
	Hints       *hints.Scheduler
	Machine     *progress.Machine

	mu        sync.Mutex
	rng       *rand.Rand
	bell      *quantum.BellTester
	target    quantum.StateVector
	hasTarget bool
	lastSeen  time.Time
}

func (p *playerSession) touch() {
	p.mu.Lock()
	p.lastSeen = time.Now()
	p.mu.Unlock()
}

// BellBatch serializes access to the tester's random stream.
func (p *playerSession) BellBatch(n int) []quantum.Measurement {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bell.AutoMeasureBatch(n)
}

// Target returns the player's reconstruction goal, generating one on first
// use. Reset discards it so the next playthrough gets a fresh state.
func (p *playerSession) Target() quantum.StateVector {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasTarget {
		p.target = quantum.GenerateRandomTargetState(p.rng)
		p.hasTarget = true
	}
	return p.target
}

func (p *playerSession) ResetTarget() {
	p.mu.Lock()
	p.hasTarget = false
	p.mu.Unlock()
}

// playerStore holds the live player sessions keyed by cookie ID.
type playerStore struct {
	mu      sync.Mutex
	players map[string]*playerSession

	dataDir string
	delay   time.Duration
	remote  progress.RemoteAPI

	// onSyncFailure is installed on every machine so the server can count
	// failed remote writes.
	onSyncFailure func()
}

func newPlayerStore(cfg config.Config, remote progress.RemoteAPI, onSyncFailure func()) *playerStore {
	return &playerStore{
		players:       make(map[string]*playerSession),
		dataDir:       cfg.DataDir,
		delay:         time.Duration(cfg.HintDelaySeconds) * time.Second,
		remote:        remote,
		onSyncFailure: onSyncFailure,
	}
}

// GetOrCreate returns the session for id, building one (and restoring its
// locally persisted progress) on first sight.
func (ps *playerStore) GetOrCreate(id string) (*playerSession, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if p, ok := ps.players[id]; ok {
		return p, nil
	}

	store, err := localstore.New(filepath.Join(ps.dataDir, "players", id))
	if err != nil {
		return nil, err
	}

	bus := events.NewBus()
	sched := hints.NewScheduler(bus, nil, ps.delay)
	p := &playerSession{
		ID:          id,
		Bus:         bus,
		Broadcaster: broadcast.NewBroadcaster(bus),
		Hints:       sched,
		Machine:     progress.NewMachine(store, bus, sched),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		bell:        quantum.NewBellTester(nil),
		lastSeen:    time.Now(),
	}
	ps.players[id] = p
	if ps.onSyncFailure != nil {
		p.Machine.SetSyncFailureHook(ps.onSyncFailure)
	}

	if ps.remote != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			// Failure leaves the machine local-only; it logs the reason.
			_ = p.Machine.Authenticate(ctx, ps.remote)
		}()
	}

	return p, nil
}

// janitor drops sessions idle past the TTL. Local progress survives on disk
// and is restored if the player returns.
func (ps *playerStore) janitor() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for range ticker.C {
		ps.sweep(playerIdleTTL)
	}
}

func (ps *playerStore) sweep(maxIdle time.Duration) {
	ps.mu.Lock()
	var stale []*playerSession
	for id, p := range ps.players {
		p.mu.Lock()
		idle := time.Since(p.lastSeen)
		p.mu.Unlock()
		if idle > maxIdle {
			stale = append(stale, p)
			delete(ps.players, id)
		}
	}
	ps.mu.Unlock()

	for _, p := range stale {
		p.Machine.Close()
		p.Broadcaster.Stop()
		log.Printf("[Players] Swept idle session %s\n", p.ID)
	}
}
