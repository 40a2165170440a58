package services

import (
	"encoding/json"
	"maps"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/custodia-labs/chartrail/internal/core/domain"
)

// Filename hint limits.
const (
	maxHintTitle = 40
	maxHintDocID = 64
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// extensionHints maps substrings of mime types and document types to file
// extensions. Checked in order.
var extensionHints = []struct {
	substr string
	ext    string
}{
	{"pdf", ".pdf"},
	{"html", ".html"},
	{"htm", ".html"},
	{"xml", ".xml"},
	{"ccd", ".xml"},
	{"cda", ".xml"},
	{"jpeg", ".jpg"},
	{"jpg", ".jpg"},
	{"png", ".png"},
	{"tif", ".tiff"},
	{"rtf", ".rtf"},
	{"dicom", ".dcm"},
	{"dcm", ".dcm"},
	{"plain", ".txt"},
	{"txt", ".txt"},
}

// ExtractRefs finds document pointers in a payload. Each known payload shape
// is decoded independently; references are deduplicated by DocID with the
// first occurrence kept. patientID and encounterID fill references that do
// not name their own.
func ExtractRefs(payload json.RawMessage, patientID, encounterID string) []domain.DocumentRef {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(payload, &top); err != nil {
		return nil
	}

	byShapeKey := make(map[string][]json.RawMessage)
	// Sorted so keys that differ only in case or separators group in a
	// fixed order.
	for _, k := range slices.Sorted(maps.Keys(top)) {
		nk := shapeKey(k)
		byShapeKey[nk] = append(byShapeKey[nk], top[k])
	}

	seen := make(map[string]bool)
	var refs []domain.DocumentRef
	for _, shape := range payloadShapes {
		for _, key := range shape.keys {
			for _, raw := range byShapeKey[key] {
				for _, c := range shape.decode(raw) {
					if c.docID == "" || seen[c.docID] {
						continue
					}
					seen[c.docID] = true
					refs = append(refs, c.toRef(patientID, encounterID))
				}
			}
		}
	}
	return refs
}

// shapeKey normalises a payload key for shape matching.
func shapeKey(k string) string {
	k = strings.ToLower(k)
	return strings.NewReplacer("_", "", "-", "").Replace(k)
}

func (c refCandidate) toRef(patientID, encounterID string) domain.DocumentRef {
	if c.patientID != "" {
		patientID = c.patientID
	}
	if c.encounterID != "" {
		encounterID = c.encounterID
	}
	mime := c.mimeType
	if mime == "" && c.fileName != "" {
		mime = strings.TrimPrefix(extOf(c.fileName), ".")
	}
	return domain.DocumentRef{
		DocID:        c.docID,
		DownloadURL:  c.downloadURL,
		FilenameHint: FilenameHint(c.docType, c.title, c.docID, mime),
		DocType:      c.docType,
		MimeType:     c.mimeType,
		PatientID:    patientID,
		EncounterID:  encounterID,
		Title:        c.title,
		CreatedDate:  c.createdDate,
	}
}

// FilenameHint builds a deterministic filename from a document's type, title
// and ID. The extension follows the mime or document type and defaults to
// domain.DefaultFilenameHintExt.
func FilenameHint(docType, title, docID, mimeType string) string {
	var parts []string
	if s := slug(docType, maxHintTitle); s != "" {
		parts = append(parts, s)
	}
	if s := slug(title, maxHintTitle); s != "" {
		parts = append(parts, s)
	}
	if s := slug(docID, maxHintDocID); s != "" {
		parts = append(parts, s)
	}
	base := strings.Join(parts, "_")
	if base == "" {
		base = "document"
	}
	return base + inferExtension(mimeType, docType)
}

// inferExtension picks an extension from hints, mime type first.
func inferExtension(hints ...string) string {
	for _, h := range hints {
		lower := strings.ToLower(h)
		if lower == "" {
			continue
		}
		for _, e := range extensionHints {
			if strings.Contains(lower, e.substr) {
				return e.ext
			}
		}
	}
	return domain.DefaultFilenameHintExt
}

// slug folds s to lowercase ASCII words joined by underscores, capped at n.
func slug(s string, n int) string {
	if s == "" {
		return ""
	}
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(folder, s); err == nil {
		s = folded
	}
	s = strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "_"), "_")
	if len(s) > n {
		s = strings.TrimRight(s[:n], "_")
	}
	return s
}
