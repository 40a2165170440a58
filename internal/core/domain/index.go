package domain

import "time"

// Category is the clinical domain an event is classified into.
type Category string

// Known categories.
const (
	CategoryMedications   Category = "medications"
	CategoryAllergies     Category = "allergies"
	CategoryProblems      Category = "problems"
	CategoryVitals        Category = "vitals"
	CategoryLabs          Category = "labs"
	CategoryImmunizations Category = "immunizations"
	CategoryProcedures    Category = "procedures"
	CategoryEncounters    Category = "encounters"
	CategoryDocuments     Category = "documents"
	CategoryImaging       Category = "imaging"
	CategoryOrders        Category = "orders"
	CategoryAppointments  Category = "appointments"
	CategoryDemographics  Category = "demographics"
	CategoryMessages      Category = "messages"
	CategoryInsurance     Category = "insurance"

	// CategoryMultiDomain marks payloads carrying markers of two or more domains.
	CategoryMultiDomain Category = "multi_domain"

	// CategoryUnknown marks events that need manual review.
	CategoryUnknown Category = "unknown"
)

// String returns the string representation.
func (c Category) String() string {
	return string(c)
}

// Confidence levels assigned by each classification strategy.
const (
	ConfidenceEndpoint    = 0.95
	ConfidenceMultiDomain = 0.85
	ConfidencePayloadKeys = 0.75
	ConfidenceStructural  = 0.6
	ConfidenceUnknown     = 0.0
)

// SourceType distinguishes how an event came to be captured.
type SourceType string

// Source types.
const (
	// SourceObserved is traffic seen during normal browsing.
	SourceObserved SourceType = "observed"

	// SourceTriggered is traffic deliberately provoked by the capture tooling.
	SourceTriggered SourceType = "triggered"

	// SourceExplored is traffic produced by automated endpoint exploration.
	SourceExplored SourceType = "explored"
)

// IsValid returns true if the source type is recognised.
func (s SourceType) IsValid() bool {
	switch s {
	case SourceObserved, SourceTriggered, SourceExplored:
		return true
	default:
		return false
	}
}

// Complexity tiers derived from payload structure.
const (
	ComplexitySimple   = "simple"
	ComplexityModerate = "moderate"
	ComplexityComplex  = "complex"
)

// ExtractionHints describes the shape of a payload. It never holds clinical content.
type ExtractionHints struct {
	HasNesting    bool     `json:"has_nesting"`
	CodingSystems []string `json:"coding_systems,omitempty"`
	MaxDepth      int      `json:"max_depth"`
	LargestArray  int      `json:"largest_array"`
	KeyCount      int      `json:"key_count"`
	Fingerprint   string   `json:"fingerprint,omitempty"`
	Complexity    string   `json:"complexity"`
}

// IndexEntry is a versioned classification of one raw event.
// Entries are append-only; reprocessing adds entries rather than replacing them.
type IndexEntry struct {
	ID              string          `json:"id"`
	EventID         string          `json:"event_id"`
	Timestamp       time.Time       `json:"timestamp"`
	PatientID       string          `json:"patient_id,omitempty"`
	Category        Category        `json:"category"`
	Subcategory     string          `json:"subcategory,omitempty"`
	SourceType      SourceType      `json:"source_type"`
	EndpointPattern string          `json:"endpoint_pattern"`
	Confidence      float64         `json:"confidence"`
	ExtractionHints ExtractionHints `json:"extraction_hints"`
	IndexerVersion  string          `json:"indexer_version"`
	IndexedAt       time.Time       `json:"indexed_at"`
	Provenance      *Provenance     `json:"provenance,omitempty"`
}

// NeedsReview reports whether the entry could not be classified.
func (e IndexEntry) NeedsReview() bool {
	return e.Category == CategoryUnknown
}

// IndexFilter selects index entries. Empty fields match everything.
type IndexFilter struct {
	PatientID       string
	Category        Category
	Subcategory     string
	SourceType      SourceType
	EndpointPattern string
	IndexerVersion  string
}

// Matches reports whether the entry satisfies every set field.
func (f IndexFilter) Matches(e IndexEntry) bool {
	if f.PatientID != "" && e.PatientID != f.PatientID {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.Subcategory != "" && e.Subcategory != f.Subcategory {
		return false
	}
	if f.SourceType != "" && e.SourceType != f.SourceType {
		return false
	}
	if f.EndpointPattern != "" && e.EndpointPattern != f.EndpointPattern {
		return false
	}
	if f.IndexerVersion != "" && e.IndexerVersion != f.IndexerVersion {
		return false
	}
	return true
}

// CategoryCount is one row of category statistics.
type CategoryCount struct {
	Category Category `json:"category"`
	Count    int      `json:"count"`
}

// ReindexStats summarises one reindex run.
type ReindexStats struct {
	Scanned    int              `json:"scanned"`
	Indexed    int              `json:"indexed"`
	Skipped    int              `json:"skipped"`
	Errors     int              `json:"errors"`
	ByCategory map[Category]int `json:"by_category"`
}
