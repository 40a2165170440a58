package domain

import (
	"encoding/json"
	"time"
)

// RawEvent is one captured interaction with the records system.
// It is written once to the event log and never mutated afterwards.
type RawEvent struct {
	// ID uniquely identifies the event. Filled on append when empty.
	ID string `json:"id"`

	// Timestamp is when the interaction was observed.
	Timestamp time.Time `json:"timestamp"`

	// Endpoint is the request URL or path as captured.
	Endpoint string `json:"endpoint"`

	// Method is the HTTP method, uppercased on append.
	Method string `json:"method"`

	// Status is the HTTP response status, when known.
	Status *int `json:"status,omitempty"`

	// PatientID is the subject hint supplied by the capture layer.
	PatientID string `json:"patient_id,omitempty"`

	// Payload is the response body exactly as observed.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Source names the capture channel (e.g. "proxy", "extension").
	Source string `json:"source,omitempty"`
}

// DecodePayload unmarshals the payload into generic JSON values.
// An empty or null payload decodes to nil without error.
func (e RawEvent) DecodePayload() (any, error) {
	if len(e.Payload) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(e.Payload, &v); err != nil {
		return nil, err
	}
	return v, nil
}
