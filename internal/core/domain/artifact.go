package domain

import "time"

// StoredArtifact describes a downloaded binary held in the artifact store.
// Created once per successful put and never modified.
type StoredArtifact struct {
	ArtifactID       string     `json:"artifact_id"`
	Path             string     `json:"path"`
	SizeBytes        int64      `json:"size_bytes"`
	MimeType         string     `json:"mime_type,omitempty"`
	Provenance       Provenance `json:"provenance"`
	OriginalFilename string     `json:"original_filename,omitempty"`
	StoredAt         time.Time  `json:"stored_at"`
}

// ArtifactStats summarises the artifact store.
type ArtifactStats struct {
	Count      int   `json:"count"`
	TotalBytes int64 `json:"total_bytes"`
	Subjects   int   `json:"subjects"`
}

// DocumentRecord links a document reference to the artifact that satisfied it.
type DocumentRecord struct {
	DocID      string    `json:"doc_id"`
	ArtifactID string    `json:"artifact_id"`
	PatientID  string    `json:"patient_id,omitempty"`
	DocType    string    `json:"doc_type,omitempty"`
	Title      string    `json:"title,omitempty"`
	SourceURL  string    `json:"source_url,omitempty"`
	Stage      string    `json:"stage,omitempty"`
	StoredAt   time.Time `json:"stored_at"`
}
