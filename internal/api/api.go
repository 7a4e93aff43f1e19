// Package api implements the identity/session service REST surface backed by
// PostgreSQL. The game server talks to it through internal/remote.
//
// Credential exchange is out of scope: the bearer token is treated as an
// opaque user key issued elsewhere.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"quantumescape/internal/db"
)

// Store is the storage surface the handlers need; *db.DB satisfies it.
type Store interface {
	CreateSession(userID string) (*db.SessionRecord, error)
	GetSession(id string) (*db.SessionRecord, error)
	UpdateSession(s *db.SessionRecord) (*db.SessionRecord, error)
	CompleteSession(id string) (*db.SessionRecord, error)
	ListSessions(userID string) ([]*db.SessionRecord, error)
	SubmitScore(sessionID string) (rank, score int, err error)
	UnlockAchievement(userID, achievementID, sessionID string) error
}

type Server struct {
	Store Store
}

// sessionWire is the session resource as serialized on the wire. Field names
// are part of the client contract.
type sessionWire struct {
	ID             string         `json:"id"`
	UserID         string         `json:"userId,omitempty"`
	CurrentRoom    string         `json:"currentRoom"`
	CompletedRooms []string       `json:"completedRooms"`
	RoomTimes      map[string]int `json:"roomTimes"`
	RoomAttempts   map[string]int `json:"roomAttempts"`
	RoomScores     map[string]int `json:"roomScores"`
	TotalScore     int            `json:"totalScore"`
	IsCompleted    bool           `json:"isCompleted"`
}

type sessionUpdateWire struct {
	CurrentRoom    string         `json:"currentRoom"`
	CompletedRooms []string       `json:"completedRooms"`
	RoomTimes      map[string]int `json:"roomTimes"`
	RoomAttempts   map[string]int `json:"roomAttempts"`
	RoomScores     map[string]int `json:"roomScores"`
	TotalScore     int            `json:"totalScore"`
}

func toWire(s *db.SessionRecord) sessionWire {
	w := sessionWire{
		ID:             s.ID,
		UserID:         s.UserID,
		CurrentRoom:    s.CurrentRoom,
		CompletedRooms: s.CompletedRooms,
		RoomTimes:      s.RoomTimes,
		RoomAttempts:   s.RoomAttempts,
		RoomScores:     s.RoomScores,
		TotalScore:     s.TotalScore,
		IsCompleted:    s.IsCompleted,
	}
	if w.CompletedRooms == nil {
		w.CompletedRooms = []string{}
	}
	if w.RoomTimes == nil {
		w.RoomTimes = map[string]int{}
	}
	if w.RoomAttempts == nil {
		w.RoomAttempts = map[string]int{}
	}
	if w.RoomScores == nil {
		w.RoomScores = map[string]int{}
	}
	return w
}

// Routes wires the service endpoints onto a mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/identity", s.handleIdentity)
	mux.HandleFunc("/session", s.handleCreateSession)
	mux.HandleFunc("/session/", s.handleSessionByID)
	mux.HandleFunc("/sessions", s.handleListSessions)
	mux.HandleFunc("/leaderboard/submit", s.handleLeaderboardSubmit)
	mux.HandleFunc("/achievements/unlock", s.handleAchievementUnlock)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// userID extracts the opaque user key from the bearer token.
func userID(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(auth, "Bearer ")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] Encode error: %v\n", err)
	}
}

func (s *Server) handleIdentity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	uid := userID(r)
	if uid == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"userId": uid, "username": uid})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, err := s.Store.CreateSession(userID(r))
	if err != nil {
		log.Printf("[API] Create session: %v\n", err)
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toWire(sess))
}

func (s *Server) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/session/")
	if rest == "" {
		http.NotFound(w, r)
		return
	}

	if id, ok := strings.CutSuffix(rest, "/complete"); ok {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		sess, err := s.Store.CompleteSession(id)
		if err != nil {
			log.Printf("[API] Complete session: %v\n", err)
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, toWire(sess))
		return
	}

	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var upd sessionUpdateWire
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		http.Error(w, "malformed body", http.StatusBadRequest)
		return
	}

	sess, err := s.Store.GetSession(rest)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	sess.CurrentRoom = upd.CurrentRoom
	sess.CompletedRooms = upd.CompletedRooms
	sess.RoomTimes = upd.RoomTimes
	sess.RoomAttempts = upd.RoomAttempts
	sess.RoomScores = upd.RoomScores
	sess.TotalScore = upd.TotalScore

	updated, err := s.Store.UpdateSession(sess)
	if err != nil {
		log.Printf("[API] Update session: %v\n", err)
		http.Error(w, "failed to update session", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, toWire(updated))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sessions, err := s.Store.ListSessions(userID(r))
	if err != nil {
		log.Printf("[API] List sessions: %v\n", err)
		http.Error(w, "failed to list sessions", http.StatusInternalServerError)
		return
	}
	out := make([]sessionWire, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, toWire(sess))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLeaderboardSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.SessionID == "" {
		http.Error(w, "malformed body", http.StatusBadRequest)
		return
	}
	rank, score, err := s.Store.SubmitScore(body.SessionID)
	if err != nil {
		log.Printf("[API] Submit score: %v\n", err)
		http.Error(w, "failed to submit score", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"rank": rank, "score": score})
}

func (s *Server) handleAchievementUnlock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		AchievementID string `json:"achievementId"`
		SessionID     string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.AchievementID == "" {
		http.Error(w, "malformed body", http.StatusBadRequest)
		return
	}
	if err := s.Store.UnlockAchievement(userID(r), body.AchievementID, body.SessionID); err != nil {
		log.Printf("[API] Unlock achievement: %v\n", err)
		http.Error(w, "failed to unlock achievement", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
