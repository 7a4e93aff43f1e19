package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"quantumescape/internal/config"
	"quantumescape/internal/progress"
	"quantumescape/internal/quantum"
	"quantumescape/internal/rooms"
	"quantumescape/internal/wshub"
)

type Server struct {
	Players *playerStore
	Hub     *wshub.Hub
	Metrics *Metrics
}

func NewServer(cfg config.Config, remote progress.RemoteAPI) *Server {
	metrics := NewMetrics()
	return &Server{
		Players: newPlayerStore(cfg, remote, metrics.SyncFailures.Inc),
		Hub:     wshub.NewHub(),
		Metrics: metrics,
	}
}

// player resolves the requesting player from the player_id cookie, minting a
// cookie and a fresh session on first contact.
func (s *Server) player(w http.ResponseWriter, r *http.Request) (*playerSession, error) {
	var id string
	if cookie, err := r.Cookie("player_id"); err == nil && cookie.Value != "" {
		id = cookie.Value
	} else {
		id = uuid.New().String()
		http.SetCookie(w, &http.Cookie{
			Name:     "player_id",
			Value:    id,
			Path:     "/",
			HttpOnly: true,
		})
	}
	p, err := s.Players.GetOrCreate(id)
	if err != nil {
		return nil, err
	}
	p.touch()
	return p, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Handle] Encode error: %v\n", err)
	}
}

// writeEngineError maps simulator and progress errors onto the API contract:
// insufficient data is a retryable 409, everything else a 400.
func writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	var insufficient quantum.InsufficientDataError
	if errors.As(err, &insufficient) {
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return false
	}
	return true
}

// handleRoomAPI dispatches /api/rooms/{room}/{op}.
func (s *Server) handleRoomAPI(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/rooms/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) < 2 {
		http.NotFound(w, r)
		return
	}
	room := rooms.ID(parts[0])
	if !rooms.Valid(room) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("unknown room %q", parts[0])})
		return
	}

	p, err := s.player(w, r)
	if err != nil {
		log.Printf("[Handle] Player session error: %v\n", err)
		http.Error(w, "failed to open player session", http.StatusInternalServerError)
		return
	}

	op := parts[1]
	if op == "target-state" {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"target": p.Target()})
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch op {
	case "measure":
		s.handleMeasure(w, r, p, room)
	case "bell-test":
		s.handleBellTest(w, r, p, room)
	case "tunnel":
		s.handleTunnel(w, r, p, room)
	case "tunnel/optimize":
		s.handleTunnelOptimize(w, r, p)
	case "reconstruct":
		s.handleReconstruct(w, r, p, room)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleMeasure(w http.ResponseWriter, r *http.Request, p *playerSession, room rooms.ID) {
	var body struct {
		Amplitudes []float64 `json:"amplitudes"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	normalized, err := quantum.Normalize(body.Amplitudes)
	if err != nil {
		p.Machine.RecordAttempt(room)
		writeEngineError(w, err)
		return
	}
	probabilities := make([]float64, len(normalized))
	for i, a := range normalized {
		probabilities[i] = quantum.AmplitudeToProbability(a)
	}
	s.Metrics.Measurements.Inc()

	resp := map[string]any{
		"normalized":    normalized,
		"probabilities": probabilities,
	}
	s.broadcastTelemetry("measurement", room, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBellTest(w http.ResponseWriter, r *http.Request, p *playerSession, room rooms.ID) {
	body := struct {
		Count int `json:"count"`
	}{Count: 100}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Count < 0 {
		body.Count = 0
	}

	measurements := p.BellBatch(body.Count)
	result, err := quantum.RunBellTest(measurements)
	if err != nil {
		p.Machine.RecordAttempt(room)
		writeEngineError(w, err)
		return
	}
	s.Metrics.Measurements.Inc()
	if result.ViolatesInequality {
		s.Metrics.BellViolations.Inc()
	}

	resp := map[string]any{
		"result":       result,
		"measurements": len(measurements),
	}
	s.broadcastTelemetry("bellTest", room, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTunnel(w http.ResponseWriter, r *http.Request, p *playerSession, room rooms.ID) {
	var body quantum.TunnelConfig
	if !decodeBody(w, r, &body) {
		return
	}

	probability, err := quantum.TransmissionProbability(body.BarrierHeightEv, body.BarrierWidthNm, body.ParticleEnergyEv)
	if err != nil {
		p.Machine.RecordAttempt(room)
		writeEngineError(w, err)
		return
	}
	s.Metrics.Measurements.Inc()

	resp := map[string]any{"transmissionProbability": probability}
	s.broadcastTelemetry("tunnel", room, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTunnelOptimize(w http.ResponseWriter, r *http.Request, p *playerSession) {
	var body struct {
		TargetProbability float64 `json:"targetProbability"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	cfg, err := quantum.Optimize(body.TargetProbability)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleReconstruct(w http.ResponseWriter, r *http.Request, p *playerSession, room rooms.ID) {
	var body struct {
		Measurements map[quantum.Axis][]float64 `json:"measurements"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	state, err := quantum.Reconstruct(body.Measurements)
	if err != nil {
		p.Machine.RecordAttempt(room)
		writeEngineError(w, err)
		return
	}
	s.Metrics.Measurements.Inc()

	resp := map[string]any{
		"state": state,
		"valid": quantum.ValidateTargetState(state),
	}
	s.broadcastTelemetry("reconstruction", room, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProgressRoom(w http.ResponseWriter, r *http.Request) {
	p, ok := s.playerOr500(w, r)
	if !ok {
		return
	}
	var body struct {
		Room string `json:"room"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := p.Machine.SetCurrentRoom(rooms.ID(body.Room)); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Machine.GetSnapshot())
}

func (s *Server) handleProgressComplete(w http.ResponseWriter, r *http.Request) {
	p, ok := s.playerOr500(w, r)
	if !ok {
		return
	}
	var body struct {
		Room         string `json:"room"`
		Score        int    `json:"score"`
		TimeSeconds  int    `json:"timeSeconds"`
		BellViolated bool   `json:"bellViolated"`
		PerfectVault bool   `json:"perfectVault"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	if body.Score < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "score must be non-negative"})
		return
	}

	room := rooms.ID(body.Room)
	score := body.Score
	if score == 0 {
		if entry, ok := rooms.Get(room); ok {
			score = entry.BaseScore
		}
	}

	err := p.Machine.CompleteRoom(room, progress.CompletionData{
		Score:        score,
		TimeSeconds:  body.TimeSeconds,
		BellViolated: body.BellViolated,
		PerfectVault: body.PerfectVault,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	s.Metrics.RoomCompletions.Inc()
	writeJSON(w, http.StatusOK, p.Machine.GetSnapshot())
}

func (s *Server) handleProgressReset(w http.ResponseWriter, r *http.Request) {
	p, ok := s.playerOr500(w, r)
	if !ok {
		return
	}
	p.Machine.ResetGame()
	p.ResetTarget()
	writeJSON(w, http.StatusOK, p.Machine.GetSnapshot())
}

func (s *Server) handleHintsTrigger(w http.ResponseWriter, r *http.Request) {
	p, ok := s.playerOr500(w, r)
	if !ok {
		return
	}
	var body struct {
		Event string `json:"event"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	hint := p.Hints.Trigger(body.Event)
	if hint == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.Metrics.HintsShown.Inc()
	writeJSON(w, http.StatusOK, hint)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	p, ok := s.playerOr500(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p.Machine.GetSnapshot())
}

// handleEvents streams the player's lifecycle events over SSE.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	p, ok := s.playerOr500(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	msgChan := p.Broadcaster.Subscribe()
	defer p.Broadcaster.Unsubscribe(msgChan)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg := <-msgChan:
			fmt.Fprintf(w, "event: %s\n", msg.Event)
			fmt.Fprintf(w, "data: %s\n\n", msg.Data)
			flusher.Flush()
		}
	}
}

// handleWS accepts a telemetry WebSocket: server pushes live simulator
// frames, clients push telemetry events that feed the hint scheduler.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	p, ok := s.playerOr500(w, r)
	if !ok {
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Printf("[WS] Accept error: %v\n", err)
		return
	}
	defer conn.CloseNow()

	client := &wshub.Client{
		PlayerID: p.ID,
		Conn:     conn,
		Send:     make(chan []byte, 16),
	}
	s.Hub.Register(client)
	defer s.Hub.Unregister(p.ID)

	ctx := r.Context()
	go client.WritePump(ctx)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var cm wshub.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			continue
		}
		if cm.Type == "event" && cm.Event != "" {
			if hint := p.Hints.Trigger(cm.Event); hint != nil {
				s.Metrics.HintsShown.Inc()
			}
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, `{"status":"ok"}`)
}

func (s *Server) playerOr500(w http.ResponseWriter, r *http.Request) (*playerSession, bool) {
	p, err := s.player(w, r)
	if err != nil {
		log.Printf("[Handle] Player session error: %v\n", err)
		http.Error(w, "failed to open player session", http.StatusInternalServerError)
		return nil, false
	}
	return p, true
}

func (s *Server) broadcastTelemetry(kind string, room rooms.ID, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	s.Hub.Broadcast(wshub.ServerMessage{Type: kind, Room: string(room), Payload: data})
}
