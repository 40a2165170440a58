package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"maps"
	"time"
)

// Provenance stage tags recorded in Provenance.Meta["stage"].
const (
	StageCapture   = "capture"
	StageHTTPFirst = "http_first"
	StageFallback  = "fallback"
)

// Provenance is an audit record of where a datum came from.
// Treat values as immutable: use WithMeta to derive a modified copy.
type Provenance struct {
	CapturedAt    time.Time         `json:"captured_at"`
	SourceURL     string            `json:"source_url"`
	HTTPMethod    string            `json:"http_method"`
	Status        *int              `json:"status,omitempty"`
	PayloadHash   string            `json:"payload_hash,omitempty"`
	ArtifactHash  string            `json:"artifact_hash,omitempty"`
	PatientHint   string            `json:"patient_hint,omitempty"`
	EncounterHint string            `json:"encounter_hint,omitempty"`
	Meta          map[string]string `json:"meta,omitempty"`
}

// Stage returns the stage tag, if any.
func (p Provenance) Stage() string {
	return p.Meta["stage"]
}

// WithMeta returns a copy of p with key set to value.
func (p Provenance) WithMeta(key, value string) Provenance {
	out := p.clone()
	if out.Meta == nil {
		out.Meta = make(map[string]string)
	}
	out.Meta[key] = value
	return out
}

func (p Provenance) clone() Provenance {
	out := p
	if p.Status != nil {
		s := *p.Status
		out.Status = &s
	}
	out.Meta = maps.Clone(p.Meta)
	return out
}

// ProvenanceChain is the ordered history of one logical datum across
// transformation stages. Records can only be appended.
type ProvenanceChain struct {
	records []Provenance
}

// NewProvenanceChain starts a chain at origin.
func NewProvenanceChain(origin Provenance) *ProvenanceChain {
	return &ProvenanceChain{records: []Provenance{origin.clone()}}
}

// Append adds the next stage.
func (c *ProvenanceChain) Append(p Provenance) {
	c.records = append(c.records, p.clone())
}

// Origin returns the first record.
func (c *ProvenanceChain) Origin() (Provenance, bool) {
	if len(c.records) == 0 {
		return Provenance{}, false
	}
	return c.records[0].clone(), true
}

// Latest returns the last record.
func (c *ProvenanceChain) Latest() (Provenance, bool) {
	if len(c.records) == 0 {
		return Provenance{}, false
	}
	return c.records[len(c.records)-1].clone(), true
}

// Len returns the number of records.
func (c *ProvenanceChain) Len() int {
	return len(c.records)
}

// Records returns a copy of the chain.
func (c *ProvenanceChain) Records() []Provenance {
	out := make([]Provenance, len(c.records))
	for i, r := range c.records {
		out[i] = r.clone()
	}
	return out
}

// ContentHash returns the hex SHA-256 of data.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
