package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceType_IsValid(t *testing.T) {
	assert.True(t, SourceObserved.IsValid())
	assert.True(t, SourceTriggered.IsValid())
	assert.True(t, SourceExplored.IsValid())
	assert.False(t, SourceType("").IsValid())
	assert.False(t, SourceType("replayed").IsValid())
}

func TestIndexFilter_Matches(t *testing.T) {
	entry := IndexEntry{
		PatientID:       "123456",
		Category:        CategoryMedications,
		Subcategory:     "active",
		SourceType:      SourceObserved,
		EndpointPattern: "/ax/data?sources",
		IndexerVersion:  "1.4.0",
	}

	tests := []struct {
		name   string
		filter IndexFilter
		want   bool
	}{
		{"empty filter", IndexFilter{}, true},
		{"matching patient", IndexFilter{PatientID: "123456"}, true},
		{"other patient", IndexFilter{PatientID: "999999"}, false},
		{"category and subcategory", IndexFilter{Category: CategoryMedications, Subcategory: "active"}, true},
		{"wrong category", IndexFilter{Category: CategoryVitals}, false},
		{"wrong version", IndexFilter{IndexerVersion: "1.0.0"}, false},
		{"source type", IndexFilter{SourceType: SourceObserved}, true},
		{"endpoint pattern", IndexFilter{EndpointPattern: "/other"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(entry))
		})
	}
}

func TestIndexEntry_NeedsReview(t *testing.T) {
	assert.True(t, IndexEntry{Category: CategoryUnknown}.NeedsReview())
	assert.False(t, IndexEntry{Category: CategoryLabs}.NeedsReview())
}

func TestRawEvent_DecodePayload(t *testing.T) {
	v, err := RawEvent{}.DecodePayload()
	assert.NoError(t, err)
	assert.Nil(t, v)

	v, err = RawEvent{Payload: []byte(`{"a":1}`)}.DecodePayload()
	assert.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1)}, v)

	_, err = RawEvent{Payload: []byte(`{"a":`)}.DecodePayload()
	assert.Error(t, err)
}
