package dispatch

import (
	"encoding/json"
	"maps"
)

// UnavailableMessage is the only failure detail a client ever sees.
const UnavailableMessage = "Service temporarily unavailable"

// ServiceRequest is the client payload for POST /api/service/{serviceId}.
// Type and Lang are accepted and carried but do not affect dispatch.
type ServiceRequest struct {
	Input string `json:"input"`
	Type  string `json:"type,omitempty"`
	Lang  string `json:"lang,omitempty"`
}

// Metrics is placeholder telemetry attached to mock results.
type Metrics struct {
	ProcessingTime int `json:"processingTime"`
	Accuracy       int `json:"accuracy"`
}

// Envelope is the uniform response shape. Fields holds a backend's response
// object, flattened into the top level on encoding.
type Envelope struct {
	Success bool     `json:"success"`
	Service string   `json:"service"`
	Output  string   `json:"output,omitempty"`
	Metrics *Metrics `json:"metrics,omitempty"`
	Error   string   `json:"error,omitempty"`

	Fields map[string]any `json:"-"`
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	type plain Envelope
	if len(e.Fields) == 0 {
		return json.Marshal(plain(e))
	}
	return json.Marshal(mergeFields(e, e.Fields))
}

// mergeFields flattens backend fields over the envelope header. Backend keys
// win on conflict.
func mergeFields(base Envelope, fields map[string]any) map[string]any {
	merged := map[string]any{
		"success": base.Success,
		"service": base.Service,
	}
	maps.Copy(merged, fields)
	return merged
}

func unavailable(serviceID string) Envelope {
	return Envelope{
		Success: false,
		Service: serviceID,
		Error:   UnavailableMessage,
	}
}
