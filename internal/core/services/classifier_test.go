package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chartrail/internal/core/domain"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestClassifier_EndpointRule(t *testing.T) {
	c := NewClassifier()

	cl := c.Classify("/ax/data?sources=active_medications", nil)

	assert.Equal(t, domain.CategoryMedications, cl.Category)
	assert.Equal(t, "active", cl.Subcategory)
	assert.InDelta(t, 0.95, cl.Confidence, 1e-9)
}

func TestClassifier_EndpointRulesInOrder(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		endpoint    string
		category    domain.Category
		subcategory string
	}{
		{"/api/medications/history", domain.CategoryMedications, "history"},
		{"/api/allergies", domain.CategoryAllergies, ""},
		{"/api/problem-list", domain.CategoryProblems, "problem_list"},
		{"/api/flowsheets/123", domain.CategoryVitals, "flowsheet"},
		{"/api/test-results", domain.CategoryLabs, "results"},
		{"/api/immunizations", domain.CategoryImmunizations, ""},
		{"/api/clinical-notes", domain.CategoryDocuments, "notes"},
		{"/api/appointments/upcoming", domain.CategoryAppointments, ""},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			cl := c.Classify(tt.endpoint, nil)
			assert.Equal(t, tt.category, cl.Category)
			assert.Equal(t, tt.subcategory, cl.Subcategory)
			assert.InDelta(t, domain.ConfidenceEndpoint, cl.Confidence, 1e-9)
		})
	}
}

func TestClassifier_MultiDomainPayload(t *testing.T) {
	c := NewClassifier()
	payload := decode(t, `{"medications":[{"name":"x"}],"vitals":[{"bp":"120/80"}]}`)

	cl := c.Classify("/ax/data", payload)

	assert.Equal(t, domain.CategoryMultiDomain, cl.Category)
	assert.Equal(t, "medications+vitals", cl.Subcategory)
	assert.InDelta(t, 0.85, cl.Confidence, 1e-9)
}

func TestClassifier_SinglePayloadKey(t *testing.T) {
	c := NewClassifier()
	payload := decode(t, `{"Allergies":[],"count":0}`)

	cl := c.Classify("/ax/data", payload)

	assert.Equal(t, domain.CategoryAllergies, cl.Category)
	assert.Equal(t, "allergies", cl.Subcategory)
	assert.InDelta(t, domain.ConfidencePayloadKeys, cl.Confidence, 1e-9)
}

func TestClassifier_SameCategoryKeysAreNotMultiDomain(t *testing.T) {
	c := NewClassifier()
	payload := decode(t, `{"meds":[],"prescriptions":[]}`)

	cl := c.Classify("/ax/data", payload)

	assert.Equal(t, domain.CategoryMedications, cl.Category)
	assert.InDelta(t, domain.ConfidencePayloadKeys, cl.Confidence, 1e-9)
}

func TestClassifier_EndpointBeatsPayload(t *testing.T) {
	c := NewClassifier()
	payload := decode(t, `{"vitals":[]}`)

	cl := c.Classify("/api/allergies", payload)

	assert.Equal(t, domain.CategoryAllergies, cl.Category)
}

func TestClassifier_TypeMarkers(t *testing.T) {
	c := NewClassifier()
	payload := decode(t, `{"data":{"rows":[{"$type":"Vendor.Clinical.ImmunizationRecord"}]}}`)

	cl := c.Classify("/ax/data", payload)

	assert.Equal(t, domain.CategoryImmunizations, cl.Category)
	assert.Equal(t, "immunization", cl.Subcategory)
	assert.InDelta(t, 0.6, cl.Confidence, 1e-9)
}

func TestClassifier_Unknown(t *testing.T) {
	c := NewClassifier()

	cl := c.Classify("/ax/data", decode(t, `{"foo":1}`))

	assert.Equal(t, domain.CategoryUnknown, cl.Category)
	assert.Empty(t, cl.Subcategory)
	assert.Zero(t, cl.Confidence)
}

func TestClassifier_UnknownForEmptyInput(t *testing.T) {
	c := NewClassifier()

	cl := c.Classify("", nil)

	assert.Equal(t, domain.CategoryUnknown, cl.Category)
}

func TestClassifier_DetectSourceType(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name     string
		endpoint string
		payload  string
		want     domain.SourceType
	}{
		{"trigger path", "/__trigger/meds", `{}`, domain.SourceTriggered},
		{"trigger param", "/api/x?trigger=1", `{}`, domain.SourceTriggered},
		{"explore path", "/__explore/labs", `{}`, domain.SourceExplored},
		{"metadata", "/api/x", `{"_meta":{"source_type":"Explored"}}`, domain.SourceExplored},
		{"invalid metadata", "/api/x", `{"_meta":{"source_type":"bogus"}}`, domain.SourceObserved},
		{"endpoint beats metadata", "/__trigger", `{"_meta":{"source_type":"explored"}}`, domain.SourceTriggered},
		{"default", "/api/x", `{}`, domain.SourceObserved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.DetectSourceType(tt.endpoint, decode(t, tt.payload)))
		})
	}
}

func TestClassifier_ExtractPatientID(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name     string
		endpoint string
		payload  string
		want     string
	}{
		{"metadata", "/api/x", `{"_meta":{"patient_id":"P-1"}}`, "P-1"},
		{"top level number", "/api/x", `{"patientId":42}`, "42"},
		{"query param", "/api/x?patient_id=abc1", `{}`, "abc1"},
		{"path segment", "/api/patients/Z123/labs", `{}`, "Z123"},
		{"digit run", "/api/chart/1234567/meds", `{}`, "1234567"},
		{"short digits ignored", "/api/chart/12345", `{}`, ""},
		{"metadata beats endpoint", "/api/patients/Z9", `{"meta":{"pat_id":"M1"}}`, "M1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.ExtractPatientID(tt.endpoint, decode(t, tt.payload)))
		})
	}
}
