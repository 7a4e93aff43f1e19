// Package remote is the client for the identity/session service. Every
// payload crossing the wire has an explicit schema; anything that is not a
// 2xx with a well-formed body becomes a RemoteSyncError for the caller's
// log-and-continue policy.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RemoteSyncError wraps any network, status, or shape failure talking to the
// session service. Callers log it and keep the local state authoritative.
type RemoteSyncError struct {
	Op     string
	Status int
	Err    error
}

func (e RemoteSyncError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("remote sync %s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("remote sync %s: %v", e.Op, e.Err)
}

func (e RemoteSyncError) Unwrap() error { return e.Err }

// Session mirrors the service's session resource.
type Session struct {
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

// SessionUpdate is the PUT /session/{id} request body.
type SessionUpdate struct {
	CurrentRoom    string         `json:"currentRoom"`
	CompletedRooms []string       `json:"completedRooms"`
	RoomTimes      map[string]int `json:"roomTimes"`
	RoomAttempts   map[string]int `json:"roomAttempts"`
	RoomScores     map[string]int `json:"roomScores"`
	TotalScore     int            `json:"totalScore"`
}

// Identity is the authenticated user the stored token resolves to.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// LeaderboardAck is the response to a leaderboard submission.
type LeaderboardAck struct {
	Rank  int `json:"rank"`
	Score int `json:"score"`
}

type leaderboardSubmit struct {
	SessionID string `json:"sessionId"`
}

type achievementUnlock struct {
	AchievementID string `json:"achievementId"`
	SessionID     string `json:"sessionId,omitempty"`
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchIdentity resolves the stored token to a user. Used at boot to decide
// between authenticated and local-only operation.
func (c *Client) FetchIdentity(ctx context.Context) (Identity, error) {
	var id Identity
	err := c.do(ctx, "identity", http.MethodGet, "/identity", nil, &id)
	return id, err
}

// CreateSession starts a new playthrough session on the service.
func (c *Client) CreateSession(ctx context.Context) (Session, error) {
	var s Session
	err := c.do(ctx, "create session", http.MethodPost, "/session", struct{}{}, &s)
	return s, err
}

// UpdateSession persists the current progress snapshot.
func (c *Client) UpdateSession(ctx context.Context, id string, upd SessionUpdate) (Session, error) {
	var s Session
	err := c.do(ctx, "update session", http.MethodPut, "/session/"+id, upd, &s)
	return s, err
}

// CompleteSession marks the session finished on the service.
func (c *Client) CompleteSession(ctx context.Context, id string) (Session, error) {
	var s Session
	err := c.do(ctx, "complete session", http.MethodPost, "/session/"+id+"/complete", struct{}{}, &s)
	return s, err
}

// ListSessions returns the user's sessions, used to resume an incomplete one.
func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	var list []Session
	err := c.do(ctx, "list sessions", http.MethodGet, "/sessions", nil, &list)
	return list, err
}

// SubmitScore submits the finished session to the leaderboard. Not retried on
// failure.
func (c *Client) SubmitScore(ctx context.Context, sessionID string) (LeaderboardAck, error) {
	var ack LeaderboardAck
	err := c.do(ctx, "submit score", http.MethodPost, "/leaderboard/submit", leaderboardSubmit{SessionID: sessionID}, &ack)
	return ack, err
}

// UnlockAchievement persists an achievement unlock.
func (c *Client) UnlockAchievement(ctx context.Context, achievementID, sessionID string) error {
	return c.do(ctx, "unlock achievement", http.MethodPost, "/achievements/unlock",
		achievementUnlock{AchievementID: achievementID, SessionID: sessionID}, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return RemoteSyncError{Op: op, Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return RemoteSyncError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return RemoteSyncError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return RemoteSyncError{Op: op, Status: resp.StatusCode}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return RemoteSyncError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
		}
	}
	return nil
}
