package services

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func refIDs(t *testing.T, payload, patientID string) []string {
	t.Helper()
	var ids []string
	for _, r := range ExtractRefs(json.RawMessage(payload), patientID, "") {
		ids = append(ids, r.DocID)
	}
	return ids
}

func TestExtractRefs_Documents(t *testing.T) {
	payload := `{"documents":[{"documentId":"D1","downloadUrl":"/doc/D1","documentType":"Discharge Summary",` +
		`"title":"Visit Note","mimeType":"application/pdf","createdDate":"2026-01-02"}]}`

	refs := ExtractRefs(json.RawMessage(payload), "P1", "ENC1")

	require.Len(t, refs, 1)
	r := refs[0]
	assert.Equal(t, "D1", r.DocID)
	assert.Equal(t, "/doc/D1", r.DownloadURL)
	assert.Equal(t, "Discharge Summary", r.DocType)
	assert.Equal(t, "Visit Note", r.Title)
	assert.Equal(t, "application/pdf", r.MimeType)
	assert.Equal(t, "2026-01-02", r.CreatedDate)
	assert.Equal(t, "P1", r.PatientID)
	assert.Equal(t, "ENC1", r.EncounterID)
	assert.Equal(t, "discharge_summary_visit_note_d1.pdf", r.FilenameHint)
}

func TestExtractRefs_ElementOverridesDefaults(t *testing.T) {
	payload := `{"documents":[{"id":"D1","url":"/x","patientId":"P9","csn":"C7"}]}`

	refs := ExtractRefs(json.RawMessage(payload), "P1", "ENC1")

	require.Len(t, refs, 1)
	assert.Equal(t, "P9", refs[0].PatientID)
	assert.Equal(t, "C7", refs[0].EncounterID)
}

func TestExtractRefs_SameShapeKeyIsDeterministic(t *testing.T) {
	payload := `{
		"documents":[{"id":"D1","url":"/lower"}],
		"Documents":[{"id":"D1","url":"/upper"}],
		"DOCUMENTS":[{"id":"D1","url":"/caps"}]
	}`

	for i := 0; i < 50; i++ {
		refs := ExtractRefs(json.RawMessage(payload), "", "")
		require.Len(t, refs, 1)
		assert.Equal(t, "/caps", refs[0].DownloadURL)
	}
}

func TestExtractRefs_DeduplicatesAcrossShapes(t *testing.T) {
	payload := `{
		"documents":[{"id":"A1","url":"/a"}],
		"attachments":[
			{"attachmentId":"A1","downloadUrl":"/b","fileName":"dup.pdf"},
			{"attachmentId":"A2","href":"/c","fileName":"scan.png"}
		]
	}`

	refs := ExtractRefs(json.RawMessage(payload), "", "")

	require.Len(t, refs, 2)
	assert.Equal(t, "A1", refs[0].DocID)
	assert.Equal(t, "/a", refs[0].DownloadURL)

	a2 := refs[1]
	assert.Equal(t, "A2", a2.DocID)
	assert.Equal(t, "/c", a2.DownloadURL)
	assert.Equal(t, "attachment", a2.DocType)
	assert.Equal(t, "scan", a2.Title)
	assert.Equal(t, "attachment_scan_a2.png", a2.FilenameHint)
}

func TestExtractRefs_EventsNeedURLOrType(t *testing.T) {
	payload := `{"events":[
		{"id":"E1","name":"Lab drawn"},
		{"id":"E2","name":"Letter","document":{"documentId":"D9","downloadUrl":"/d9"}},
		{"id":"E3","docType":"note"}
	]}`

	refs := ExtractRefs(json.RawMessage(payload), "", "")

	require.Len(t, refs, 2)
	assert.Equal(t, "D9", refs[0].DocID)
	assert.Equal(t, "/d9", refs[0].DownloadURL)
	assert.Equal(t, "Letter", refs[0].Title)
	assert.Equal(t, "E3", refs[1].DocID)
	assert.Empty(t, refs[1].DownloadURL)
}

func TestExtractRefs_KeyCasingVariants(t *testing.T) {
	payload := `{
		"Documents":[{"DocumentID":"X1","DownloadURL":"/x"}],
		"document_list":[{"doc_id":"X2","download_url":"/y"}],
		"Instances":[{"DocumentId":"X3","Url":"/z"}]
	}`

	assert.Equal(t, []string{"X1", "X3", "X2"}, refIDs(t, payload, ""))
}

func TestExtractRefs_ResultsWithReports(t *testing.T) {
	payload := `{"results":[{"resultId":"R1","reportUrl":"/r1","testName":"CBC"},{"resultId":"R2"}]}`

	refs := ExtractRefs(json.RawMessage(payload), "", "")

	require.Len(t, refs, 1)
	assert.Equal(t, "R1", refs[0].DocID)
	assert.Equal(t, "result_report", refs[0].DocType)
	assert.Equal(t, "result_report_cbc_r1.pdf", refs[0].FilenameHint)
}

func TestExtractRefs_TolerantElements(t *testing.T) {
	payload := `{"documents":[
		{"documentId":12345,"url":"/n"},
		"junk",
		{"documentId":{"nested":true},"id":"fallback","url":"/f"},
		{"title":"no id"}
	]}`

	assert.Equal(t, []string{"12345", "fallback"}, refIDs(t, payload, ""))
}

func TestExtractRefs_NonObjectPayloads(t *testing.T) {
	for _, p := range []string{`[1,2]`, `"text"`, `not json`, ``, `null`} {
		assert.Empty(t, ExtractRefs(json.RawMessage(p), "", ""), p)
	}
}

func TestExtractRefs_Idempotent(t *testing.T) {
	payload := json.RawMessage(`{"documents":[{"id":"A","url":"/a"},{"id":"B","url":"/b"}],` +
		`"attachments":[{"id":"C","url":"/c","fileName":"c.xml"}]}`)

	assert.Equal(t, ExtractRefs(payload, "P", ""), ExtractRefs(payload, "P", ""))
}

func TestFilenameHint(t *testing.T) {
	tests := []struct {
		name                          string
		docType, title, docID, mimeTy string
		want                          string
	}{
		{"empty", "", "", "", "", "document.pdf"},
		{"accents folded", "Lab Report", "Résumé Été", "ABC-123", "text/html", "lab_report_resume_ete_abc_123.html"},
		{"doc type extension", "CCD", "", "d1", "", "ccd_d1.xml"},
		{"jpeg", "", "x-ray", "7", "image/jpeg", "x_ray_7.jpg"},
		{"mime beats doc type", "pdf", "", "1", "text/plain", "pdf_1.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilenameHint(tt.docType, tt.title, tt.docID, tt.mimeTy))
		})
	}
}

func TestFilenameHint_CapsLongParts(t *testing.T) {
	hint := FilenameHint("", strings.Repeat("a", 60), "", "")

	assert.Equal(t, strings.Repeat("a", maxHintTitle)+".pdf", hint)
}
