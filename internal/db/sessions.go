package db

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionRecord is one playthrough as stored. The per-room maps are kept as
// JSON text columns since the service only ever reads and writes them whole.
type SessionRecord struct {
	ID             string
	UserID         string
	CurrentRoom    string
	CompletedRooms []string
	RoomTimes      map[string]int
	RoomAttempts   map[string]int
	RoomScores     map[string]int
	TotalScore     int
	IsCompleted    bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (d *DB) CreateSession(userID string) (*SessionRecord, error) {
	id := uuid.New().String()
	_, err := d.conn.Exec(`
		INSERT INTO sessions (id, user_id) VALUES ($1, $2)
	`, id, userID)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return d.GetSession(id)
}

func (d *DB) GetSession(id string) (*SessionRecord, error) {
	var s SessionRecord
	var completed, times, attempts, scores string
	err := d.conn.QueryRow(`
		SELECT id, user_id, current_room, completed_rooms, room_times, room_attempts, room_scores,
		       total_score, is_completed, created_at, updated_at
		FROM sessions WHERE id = $1
	`, id).Scan(&s.ID, &s.UserID, &s.CurrentRoom, &completed, &times, &attempts, &scores,
		&s.TotalScore, &s.IsCompleted, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	json.Unmarshal([]byte(completed), &s.CompletedRooms)
	json.Unmarshal([]byte(times), &s.RoomTimes)
	json.Unmarshal([]byte(attempts), &s.RoomAttempts)
	json.Unmarshal([]byte(scores), &s.RoomScores)
	return &s, nil
}

func (d *DB) UpdateSession(s *SessionRecord) (*SessionRecord, error) {
	completed, _ := json.Marshal(s.CompletedRooms)
	times, _ := json.Marshal(s.RoomTimes)
	attempts, _ := json.Marshal(s.RoomAttempts)
	scores, _ := json.Marshal(s.RoomScores)

	res, err := d.conn.Exec(`
		UPDATE sessions
		SET current_room = $2, completed_rooms = $3, room_times = $4, room_attempts = $5,
		    room_scores = $6, total_score = $7, updated_at = now()
		WHERE id = $1 AND NOT is_completed
	`, s.ID, s.CurrentRoom, string(completed), string(times), string(attempts), string(scores), s.TotalScore)
	if err != nil {
		return nil, fmt.Errorf("updating session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("updating session: no open session %s", s.ID)
	}
	return d.GetSession(s.ID)
}

func (d *DB) CompleteSession(id string) (*SessionRecord, error) {
	_, err := d.conn.Exec(`
		UPDATE sessions SET is_completed = true, updated_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return nil, fmt.Errorf("completing session: %w", err)
	}
	return d.GetSession(id)
}

func (d *DB) ListSessions(userID string) ([]*SessionRecord, error) {
	rows, err := d.conn.Query(`
		SELECT id FROM sessions WHERE user_id = $1 ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []*SessionRecord
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		s, err := d.GetSession(id)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
