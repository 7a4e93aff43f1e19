package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_CreateSession(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/session" {
			t.Errorf("got %s %s, want POST /session", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode(Session{ID: "s-1", CurrentRoom: "superposition"})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "tok")
	s, err := c.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}
	if s.ID != "s-1" {
		t.Errorf("session id = %q, want s-1", s.ID)
	}
}

func TestClient_UpdateSession(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/session/s-1" {
			t.Errorf("got %s %s, want PUT /session/s-1", r.Method, r.URL.Path)
		}
		var upd SessionUpdate
		if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		if upd.TotalScore != 250 {
			t.Errorf("totalScore = %d, want 250", upd.TotalScore)
		}
		json.NewEncoder(w).Encode(Session{ID: "s-1", TotalScore: upd.TotalScore})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "tok")
	s, err := c.UpdateSession(context.Background(), "s-1", SessionUpdate{TotalScore: 250})
	if err != nil {
		t.Fatalf("UpdateSession() error: %v", err)
	}
	if s.TotalScore != 250 {
		t.Errorf("echoed totalScore = %d", s.TotalScore)
	}
}

func TestClient_SubmitScore(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/leaderboard/submit" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["sessionId"] != "s-1" {
			t.Errorf("sessionId = %q", body["sessionId"])
		}
		json.NewEncoder(w).Encode(LeaderboardAck{Rank: 3, Score: 900})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "")
	ack, err := c.SubmitScore(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("SubmitScore() error: %v", err)
	}
	if ack.Rank != 3 {
		t.Errorf("rank = %d, want 3", ack.Rank)
	}
}

func TestClient_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "")
	_, err := c.CreateSession(context.Background())
	var syncErr RemoteSyncError
	if !errors.As(err, &syncErr) {
		t.Fatalf("error = %v, want RemoteSyncError", err)
	}
	if syncErr.Status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", syncErr.Status)
	}
}

func TestClient_MalformedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "")
	_, err := c.ListSessions(context.Background())
	var syncErr RemoteSyncError
	if !errors.As(err, &syncErr) {
		t.Fatalf("error = %v, want RemoteSyncError", err)
	}
}

func TestClient_Unreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "")
	_, err := c.FetchIdentity(context.Background())
	var syncErr RemoteSyncError
	if !errors.As(err, &syncErr) {
		t.Fatalf("error = %v, want RemoteSyncError", err)
	}
}
