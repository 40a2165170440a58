package domain

// DocumentRef points at a document mentioned in a payload.
// DocID is the deduplication key.
type DocumentRef struct {
	DocID        string `json:"doc_id"`
	DownloadURL  string `json:"download_url,omitempty"`
	FilenameHint string `json:"filename_hint"`
	DocType      string `json:"doc_type,omitempty"`
	MimeType     string `json:"mime_type,omitempty"`
	PatientID    string `json:"patient_id,omitempty"`
	EncounterID  string `json:"encounter_id,omitempty"`
	Title        string `json:"title,omitempty"`
	CreatedDate  string `json:"created_date,omitempty"`
}

// MissingReason explains why a document still has to be fetched.
type MissingReason string

// Missing reasons.
const (
	MissingNoDownloadURL MissingReason = "no_download_url"
	MissingNotInStore    MissingReason = "not_in_store"
)

// MissingDocument is a reference the artifact index does not hold.
type MissingDocument struct {
	Ref    DocumentRef   `json:"ref"`
	Reason MissingReason `json:"reason"`
}

// Downloadable reports whether the document can be fetched directly.
func (m MissingDocument) Downloadable() bool {
	return m.Reason == MissingNotInStore
}
