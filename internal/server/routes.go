package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quantumescape/internal/config"
	"quantumescape/internal/progress"
	"quantumescape/internal/remote"
)

func Run() error {
	cfg := config.Load()

	var api progress.RemoteAPI
	if cfg.SessionAPIURL != "" {
		api = remote.NewClient(cfg.SessionAPIURL, cfg.SessionAPIToken)
		log.Println("[Sync] Session service configured")
	} else {
		log.Println("[Sync] SESSION_API_URL not set, running local-only")
	}

	srv := NewServer(cfg, api)
	go srv.Players.janitor()

	addr := "0.0.0.0:" + cfg.Port
	fmt.Printf("Server listening on http://localhost:%s\n", cfg.Port)
	return http.ListenAndServe(addr, srv.Routes())
}

// Routes wires every endpoint onto a mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/rooms/", s.handleRoomAPI)
	mux.HandleFunc("/api/progress/room", post(s.handleProgressRoom))
	mux.HandleFunc("/api/progress/complete", post(s.handleProgressComplete))
	mux.HandleFunc("/api/progress/reset", post(s.handleProgressReset))
	mux.HandleFunc("/api/hints/trigger", post(s.handleHintsTrigger))
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}))
	return mux
}

func post(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}
