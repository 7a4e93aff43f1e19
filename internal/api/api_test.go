package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"quantumescape/internal/db"
)

// memStore keeps sessions in memory so the handlers can be exercised without
// Postgres.
type memStore struct {
	mu       sync.Mutex
	nextID   int
	sessions map[string]*db.SessionRecord
	scores   map[string]int // sessionID -> submitted score
	unlocks  map[string]int // userID/achievementID -> unlock count
}

func newMemStore() *memStore {
	return &memStore{
		sessions: make(map[string]*db.SessionRecord),
		scores:   make(map[string]int),
		unlocks:  make(map[string]int),
	}
}

func (m *memStore) CreateSession(userID string) (*db.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s := &db.SessionRecord{
		ID:             fmt.Sprintf("s-%d", m.nextID),
		UserID:         userID,
		CompletedRooms: []string{},
		RoomTimes:      map[string]int{},
		RoomAttempts:   map[string]int{},
		RoomScores:     map[string]int{},
	}
	m.sessions[s.ID] = s
	return s, nil
}

func (m *memStore) GetSession(id string) (*db.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s not found", id)
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) UpdateSession(s *db.SessionRecord) (*db.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.sessions[s.ID]
	if !ok || existing.IsCompleted {
		return nil, fmt.Errorf("session %s not updatable", s.ID)
	}
	cp := *s
	m.sessions[s.ID] = &cp
	return s, nil
}

func (m *memStore) CompleteSession(id string) (*db.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s not found", id)
	}
	s.IsCompleted = true
	cp := *s
	return &cp, nil
}

func (m *memStore) ListSessions(userID string) ([]*db.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*db.SessionRecord
	for _, s := range m.sessions {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) SubmitScore(sessionID string) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return 0, 0, fmt.Errorf("session %s not found", sessionID)
	}
	m.scores[sessionID] = s.TotalScore
	rank := 1
	for _, sc := range m.scores {
		if sc > s.TotalScore {
			rank++
		}
	}
	return rank, s.TotalScore, nil
}

func (m *memStore) UnlockAchievement(userID, achievementID, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unlocks[userID+"/"+achievementID]++
	return nil
}

func newTestServer(t *testing.T) (*httptest.Server, *memStore) {
	t.Helper()
	store := newMemStore()
	srv := httptest.NewServer((&Server{Store: store}).Routes())
	t.Cleanup(srv.Close)
	return srv, store
}

func doReq(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func TestIdentity(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doReq(t, http.MethodGet, srv.URL+"/identity", "user-7", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var id map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		t.Fatalf("decoding identity: %v", err)
	}
	if id["userId"] != "user-7" {
		t.Errorf("expected userId user-7, got %q", id["userId"])
	}
}

func TestIdentityRequiresToken(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doReq(t, http.MethodGet, srv.URL+"/identity", "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
}

func TestSessionLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doReq(t, http.MethodPost, srv.URL+"/session", "user-1", nil)
	var created sessionWire
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decoding created session: %v", err)
	}
	resp.Body.Close()
	if created.ID == "" {
		t.Fatal("expected a session ID")
	}
	if created.IsCompleted {
		t.Error("new session should not be completed")
	}

	upd := sessionUpdateWire{
		CurrentRoom:    "double-slit",
		CompletedRooms: []string{"superposition"},
		RoomScores:     map[string]int{"superposition": 100},
		RoomAttempts:   map[string]int{"superposition": 3},
		RoomTimes:      map[string]int{"superposition": 42},
		TotalScore:     100,
	}
	resp = doReq(t, http.MethodPut, srv.URL+"/session/"+created.ID, "user-1", upd)
	var updated sessionWire
	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		t.Fatalf("decoding updated session: %v", err)
	}
	resp.Body.Close()
	if updated.TotalScore != 100 || updated.CurrentRoom != "double-slit" {
		t.Errorf("update not applied: %+v", updated)
	}

	resp = doReq(t, http.MethodPost, srv.URL+"/session/"+created.ID+"/complete", "user-1", nil)
	var done sessionWire
	if err := json.NewDecoder(resp.Body).Decode(&done); err != nil {
		t.Fatalf("decoding completed session: %v", err)
	}
	resp.Body.Close()
	if !done.IsCompleted {
		t.Error("expected session to be completed")
	}

	// Updates after completion are rejected.
	resp = doReq(t, http.MethodPut, srv.URL+"/session/"+created.ID, "user-1", upd)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 updating completed session, got %d", resp.StatusCode)
	}
}

func TestUpdateUnknownSession(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doReq(t, http.MethodPut, srv.URL+"/session/nope", "user-1", sessionUpdateWire{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestListSessionsScopedToUser(t *testing.T) {
	srv, store := newTestServer(t)

	store.CreateSession("alice")
	store.CreateSession("alice")
	store.CreateSession("bob")

	resp := doReq(t, http.MethodGet, srv.URL+"/sessions", "alice", nil)
	var list []sessionWire
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decoding sessions: %v", err)
	}
	resp.Body.Close()
	if len(list) != 2 {
		t.Errorf("expected 2 sessions for alice, got %d", len(list))
	}
}

func TestLeaderboardSubmit(t *testing.T) {
	srv, store := newTestServer(t)

	s, _ := store.CreateSession("alice")
	s.TotalScore = 850
	store.sessions[s.ID] = s

	resp := doReq(t, http.MethodPost, srv.URL+"/leaderboard/submit", "alice",
		map[string]string{"sessionId": s.ID})
	var ack map[string]int
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		t.Fatalf("decoding ack: %v", err)
	}
	resp.Body.Close()
	if ack["score"] != 850 || ack["rank"] != 1 {
		t.Errorf("expected score 850 rank 1, got %v", ack)
	}
}

func TestLeaderboardSubmitMissingSession(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doReq(t, http.MethodPost, srv.URL+"/leaderboard/submit", "alice",
		map[string]string{"sessionId": ""})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for empty sessionId, got %d", resp.StatusCode)
	}
}

func TestAchievementUnlock(t *testing.T) {
	srv, store := newTestServer(t)

	resp := doReq(t, http.MethodPost, srv.URL+"/achievements/unlock", "alice",
		map[string]string{"achievementId": "bell_breaker"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	store.mu.Lock()
	n := store.unlocks["alice/bell_breaker"]
	store.mu.Unlock()
	if n != 1 {
		t.Errorf("expected 1 unlock recorded, got %d", n)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doReq(t, http.MethodGet, srv.URL+"/session", "alice", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
}
