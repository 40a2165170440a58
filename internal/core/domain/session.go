package domain

import "fmt"

// SessionContext is the credential bundle of the active browser session.
// It lives only in memory and is replaced wholesale on update.
type SessionContext struct {
	BaseURL       string            `json:"base_url"`
	Cookies       map[string]string `json:"cookies"`
	Headers       map[string]string `json:"headers,omitempty"`
	UserAgent     string            `json:"user_agent,omitempty"`
	PatientHint   string            `json:"patient_hint,omitempty"`
	EncounterHint string            `json:"encounter_hint,omitempty"`
}

// Validate checks that the session can authenticate a request.
func (s SessionContext) Validate() error {
	if s.BaseURL == "" {
		return fmt.Errorf("%w: session base URL is empty", ErrInvalidSession)
	}
	if len(s.Cookies) == 0 {
		return fmt.Errorf("%w: session has no cookies", ErrInvalidSession)
	}
	return nil
}
