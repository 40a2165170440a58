package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionContext_Validate(t *testing.T) {
	tests := []struct {
		name    string
		session SessionContext
		wantErr bool
	}{
		{
			name: "valid session",
			session: SessionContext{
				BaseURL: "https://mychart.example.org",
				Cookies: map[string]string{"MyChartSession": "abc"},
			},
		},
		{
			name:    "missing base URL",
			session: SessionContext{Cookies: map[string]string{"a": "b"}},
			wantErr: true,
		},
		{
			name:    "missing cookies",
			session: SessionContext{BaseURL: "https://mychart.example.org"},
			wantErr: true,
		},
		{
			name:    "empty session",
			session: SessionContext{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.session.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidSession))
				return
			}
			assert.NoError(t, err)
		})
	}
}
