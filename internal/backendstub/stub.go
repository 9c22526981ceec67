// Package backendstub is a stand-in content backend for local runs. It
// accepts the gateway's outbound payload and answers with a canned JSON
// object, optionally after a delay or with a failing status.
package backendstub

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"marketplace/gateway/internal/dispatch"
)

type Stub struct {
	log    *slog.Logger
	name   string
	delay  time.Duration
	status int
}

func New(log *slog.Logger, name string, delay time.Duration, status int) *Stub {
	if status == 0 {
		status = http.StatusOK
	}
	return &Stub{log: log, name: name, delay: delay, status: status}
}

type response struct {
	Backend  string `json:"backend"`
	Result   string `json:"result"`
	Platform string `json:"platform"`
	Reach    int    `json:"estimated_reach"`
}

func (s *Stub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req dispatch.BackendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	s.log.Info("Stub backend received request",
		"backend", s.name,
		"path", r.URL.Path,
		"platform", req.Platform,
		"request_id", r.Header.Get(dispatch.RequestIDHeader),
	)

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(s.status)
	if s.status < 200 || s.status >= 300 {
		_, _ = w.Write([]byte(`{"error":"stub configured to fail"}`))
		return
	}
	_ = json.NewEncoder(w).Encode(response{
		Backend:  s.name,
		Result:   "Analyzed: " + req.Content,
		Platform: req.Platform,
		Reach:    req.InstagramFollowers / 10,
	})
}
