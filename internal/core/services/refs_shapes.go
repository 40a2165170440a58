package services

import (
	"bytes"
	"encoding/json"
	"strings"
)

// flexString decodes JSON strings, numbers and booleans as text. Objects,
// arrays and null decode to the empty string so one odd field cannot
// invalidate a whole element.
type flexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*f = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
	case '{', '[', 'n':
		*f = ""
	default:
		*f = flexString(data)
	}
	return nil
}

// first returns the first non-empty value.
func first(values ...flexString) string {
	for _, v := range values {
		if v != "" {
			return string(v)
		}
	}
	return ""
}

// documentItem is an element of a top-level document array or of the
// alternate document-list key. encoding/json matches tags case-insensitively,
// so DocumentId, documentId and documentID all decode into DocumentID.
type documentItem struct {
	DocumentID   flexString `json:"documentId"`
	DocIDSnake   flexString `json:"doc_id"`
	ID           flexString `json:"id"`
	DownloadURL  flexString `json:"downloadUrl"`
	DownloadSn   flexString `json:"download_url"`
	URL          flexString `json:"url"`
	DocumentType flexString `json:"documentType"`
	DocType      flexString `json:"docType"`
	DocTypeSnake flexString `json:"doc_type"`
	Title        flexString `json:"title"`
	Name         flexString `json:"name"`
	CreatedDate  flexString `json:"createdDate"`
	CreatedSnake flexString `json:"created_date"`
	Date         flexString `json:"date"`
	MimeType     flexString `json:"mimeType"`
	ContentType  flexString `json:"contentType"`
	PatientID    flexString `json:"patientId"`
	EncounterID  flexString `json:"encounterId"`
	CSN          flexString `json:"csn"`
}

func (d documentItem) docID() string {
	return first(d.DocumentID, d.DocIDSnake, d.ID)
}

func (d documentItem) downloadURL() string {
	return first(d.DownloadURL, d.DownloadSn, d.URL)
}

func (d documentItem) docType() string {
	return first(d.DocumentType, d.DocType, d.DocTypeSnake)
}

func (d documentItem) candidate() refCandidate {
	return refCandidate{
		docID:       d.docID(),
		downloadURL: d.downloadURL(),
		docType:     d.docType(),
		mimeType:    first(d.MimeType, d.ContentType),
		title:       first(d.Title, d.Name),
		createdDate: first(d.CreatedDate, d.CreatedSnake, d.Date),
		patientID:   string(d.PatientID),
		encounterID: first(d.EncounterID, d.CSN),
	}
}

// eventItem is an element of an event or instance list. The document
// pointer may sit on the event itself or in a nested object.
type eventItem struct {
	documentItem
	Document    *documentItem `json:"document"`
	DocumentRef *documentItem `json:"documentRef"`
	Pointer     *documentItem `json:"pointer"`
}

// attachmentItem is an element of an attachment list.
type attachmentItem struct {
	AttachmentID flexString `json:"attachmentId"`
	DocumentID   flexString `json:"documentId"`
	ID           flexString `json:"id"`
	DownloadURL  flexString `json:"downloadUrl"`
	URL          flexString `json:"url"`
	Href         flexString `json:"href"`
	FileName     flexString `json:"fileName"`
	FileNameSn   flexString `json:"file_name"`
	Name         flexString `json:"name"`
	Title        flexString `json:"title"`
	ContentType  flexString `json:"contentType"`
	MimeType     flexString `json:"mimeType"`
	DocType      flexString `json:"docType"`
	Date         flexString `json:"date"`
}

// resultItem is a result object that may carry a report URL.
type resultItem struct {
	ReportID     flexString `json:"reportId"`
	ResultID     flexString `json:"resultId"`
	ID           flexString `json:"id"`
	ReportURL    flexString `json:"reportUrl"`
	ReportURLSn  flexString `json:"report_url"`
	TestName     flexString `json:"testName"`
	Name         flexString `json:"name"`
	Title        flexString `json:"title"`
	ResultDate   flexString `json:"resultDate"`
	Date         flexString `json:"date"`
	EncounterID  flexString `json:"encounterId"`
	OrderingDept flexString `json:"orderingDepartment"`
}

// refCandidate is a decoded pointer before defaults and filename hints apply.
type refCandidate struct {
	docID       string
	downloadURL string
	docType     string
	mimeType    string
	title       string
	createdDate string
	patientID   string
	encounterID string
	fileName    string
}

// payloadShape decodes one observed vendor payload shape.
type payloadShape struct {
	name string
	// keys are matched against top-level keys after lowercasing and
	// removing '_' and '-'.
	keys   []string
	decode func(raw json.RawMessage) []refCandidate
}

// payloadShapes lists the known shapes in probe order. Earlier shapes win
// when two shapes name the same document.
var payloadShapes = []payloadShape{
	{name: "documents", keys: []string{"documents"}, decode: decodeDocuments},
	{name: "events", keys: []string{"events", "instances"}, decode: decodeEvents},
	{name: "attachments", keys: []string{"attachments"}, decode: decodeAttachments},
	{name: "results", keys: []string{"results"}, decode: decodeResults},
	{name: "document_list", keys: []string{"documentlist", "doclist"}, decode: decodeDocuments},
}

// decodeElements decodes each array element into T independently and
// skips elements that do not decode. Non-array values yield nothing.
func decodeElements[T any](raw json.RawMessage) []T {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil
	}
	out := make([]T, 0, len(elems))
	for _, e := range elems {
		var v T
		if err := json.Unmarshal(e, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

func decodeDocuments(raw json.RawMessage) []refCandidate {
	var out []refCandidate
	for _, d := range decodeElements[documentItem](raw) {
		out = append(out, d.candidate())
	}
	return out
}

// decodeEvents keeps only events that carry a download URL or an explicit
// document type, since most events do not point at documents at all.
func decodeEvents(raw json.RawMessage) []refCandidate {
	var out []refCandidate
	for _, ev := range decodeElements[eventItem](raw) {
		c := ev.candidate()
		for _, nested := range []*documentItem{ev.Document, ev.DocumentRef, ev.Pointer} {
			if nested == nil {
				continue
			}
			n := nested.candidate()
			c = mergeCandidate(n, c)
			break
		}
		if c.downloadURL == "" && c.docType == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func decodeAttachments(raw json.RawMessage) []refCandidate {
	var out []refCandidate
	for _, a := range decodeElements[attachmentItem](raw) {
		fileName := first(a.FileName, a.FileNameSn)
		out = append(out, refCandidate{
			docID:       first(a.AttachmentID, a.DocumentID, a.ID),
			downloadURL: first(a.DownloadURL, a.URL, a.Href),
			docType:     first(a.DocType, "attachment"),
			mimeType:    first(a.ContentType, a.MimeType),
			title:       first(a.Title, a.Name, flexString(strings.TrimSuffix(fileName, extOf(fileName)))),
			createdDate: string(a.Date),
			fileName:    fileName,
		})
	}
	return out
}

// decodeResults keeps only results that link a report.
func decodeResults(raw json.RawMessage) []refCandidate {
	var out []refCandidate
	for _, r := range decodeElements[resultItem](raw) {
		reportURL := first(r.ReportURL, r.ReportURLSn)
		if reportURL == "" {
			continue
		}
		out = append(out, refCandidate{
			docID:       first(r.ReportID, r.ResultID, r.ID),
			downloadURL: reportURL,
			docType:     "result_report",
			title:       first(r.Title, r.TestName, r.Name),
			createdDate: first(r.ResultDate, r.Date),
			encounterID: string(r.EncounterID),
		})
	}
	return out
}

// mergeCandidate fills empty fields of primary from secondary.
func mergeCandidate(primary, secondary refCandidate) refCandidate {
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&primary.docID, secondary.docID)
	fill(&primary.downloadURL, secondary.downloadURL)
	fill(&primary.docType, secondary.docType)
	fill(&primary.mimeType, secondary.mimeType)
	fill(&primary.title, secondary.title)
	fill(&primary.createdDate, secondary.createdDate)
	fill(&primary.patientID, secondary.patientID)
	fill(&primary.encounterID, secondary.encounterID)
	fill(&primary.fileName, secondary.fileName)
	return primary
}

// extOf returns the extension of name including the dot, or "".
func extOf(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 || strings.ContainsAny(name[i:], "/\\ ") {
		return ""
	}
	return name[i:]
}
