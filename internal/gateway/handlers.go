package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"marketplace/gateway/internal/dispatch"
	"marketplace/gateway/internal/registry"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
)

const invalidBodyMessage = "invalid request body"

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

type serviceInfo struct {
	ID   string `json:"id"`
	Mode string `json:"mode"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: s.clock.NowMillis(),
	})
}

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	services := lo.Map(s.registry.Descriptors(), func(d registry.ServiceDescriptor, _ int) serviceInfo {
		return serviceInfo{ID: d.ID, Mode: lo.Ternary(d.IsMock(), "mock", "backend")}
	})
	s.writeJSON(w, http.StatusOK, map[string]any{"services": services})
}

// handleService answers 200 for both outcomes; failure is carried by the
// envelope's success field. Only an undecodable body gets a 400.
func (s *Server) handleService(w http.ResponseWriter, r *http.Request) {
	serviceID := chi.URLParam(r, "serviceId")
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	req, err := decodeServiceRequest(r.Body)
	if err != nil {
		s.log.Warn("Rejected service request",
			"service", serviceID,
			"request_id", dispatch.RequestID(r.Context()),
			"error", err,
		)
		s.writeJSON(w, http.StatusBadRequest, dispatch.Envelope{
			Success: false,
			Service: serviceID,
			Error:   invalidBodyMessage,
		})
		return
	}

	s.writeJSON(w, http.StatusOK, s.dispatcher.Handle(r.Context(), serviceID, req))
}

var errNotObject = errors.New("body must be a JSON object")

// decodeServiceRequest only checks shape. An empty body is accepted and
// yields an empty input.
func decodeServiceRequest(body io.Reader) (dispatch.ServiceRequest, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return dispatch.ServiceRequest{}, nil
		}
		return dispatch.ServiceRequest{}, err
	}
	if raw == nil {
		return dispatch.ServiceRequest{}, errNotObject
	}

	var req dispatch.ServiceRequest
	req.Input = stringField(raw["input"])
	req.Type = stringField(raw["type"])
	req.Lang = stringField(raw["lang"])
	return req, nil
}

// stringField keeps strings as-is and renders any other JSON value as its
// literal text, so a numeric input still reaches the backend.
func stringField(v json.RawMessage) string {
	if len(v) == 0 {
		return ""
	}
	var str string
	if err := json.Unmarshal(v, &str); err == nil {
		return str
	}
	if string(v) == "null" {
		return ""
	}
	return string(v)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		s.log.Error("Write response failed", "error", err)
	}
}
