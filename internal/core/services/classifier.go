package services

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/chartrail/internal/core/domain"
)

// maxWalkDepth bounds recursive payload walks.
const maxWalkDepth = 5

// maxWalkSample is how many list elements a walk inspects.
const maxWalkSample = 10

// Classification is the result of classifying one event.
type Classification struct {
	Category    domain.Category
	Subcategory string
	Confidence  float64
}

// Classifier assigns clinical categories to captured traffic.
// It is stateless after construction and safe for concurrent use.
type Classifier struct {
	endpointRules []endpointRule
	markerKeys    map[string]domain.Category
	entityNames   []entityName
}

// NewClassifier creates a classifier with the built-in rule tables.
func NewClassifier() *Classifier {
	c := &Classifier{
		endpointRules: defaultEndpointRules,
		markerKeys:    make(map[string]domain.Category),
		entityNames:   defaultEntityNames,
	}
	for category, keys := range defaultMarkerKeys {
		for _, k := range keys {
			c.markerKeys[k] = category
		}
	}
	return c
}

// Classify applies the strategies in precedence order and returns the first
// match: endpoint pattern, payload marker keys, structural type markers.
// Unclassifiable events get CategoryUnknown with zero confidence.
func (c *Classifier) Classify(endpoint string, payload any) Classification {
	if cl, ok := c.byEndpoint(endpoint); ok {
		return cl
	}
	if cl, ok := c.byPayloadKeys(payload); ok {
		return cl
	}
	if cl, ok := c.byTypeMarkers(payload); ok {
		return cl
	}
	return Classification{Category: domain.CategoryUnknown, Confidence: domain.ConfidenceUnknown}
}

func (c *Classifier) byEndpoint(endpoint string) (Classification, bool) {
	if endpoint == "" {
		return Classification{}, false
	}
	for _, r := range c.endpointRules {
		if r.pattern.MatchString(endpoint) {
			return Classification{
				Category:    r.category,
				Subcategory: r.subcategory,
				Confidence:  domain.ConfidenceEndpoint,
			}, true
		}
	}
	return Classification{}, false
}

func (c *Classifier) byPayloadKeys(payload any) (Classification, bool) {
	keys := topLevelKeys(payload)
	if len(keys) == 0 {
		return Classification{}, false
	}

	hits := make(map[domain.Category]string)
	for _, k := range keys {
		category, ok := c.markerKeys[strings.ToLower(k)]
		if !ok {
			continue
		}
		if _, seen := hits[category]; !seen {
			hits[category] = strings.ToLower(k)
		}
	}

	switch len(hits) {
	case 0:
		return Classification{}, false
	case 1:
		for category, key := range hits {
			return Classification{Category: category, Subcategory: key, Confidence: domain.ConfidencePayloadKeys}, true
		}
	}

	names := make([]string, 0, len(hits))
	for category := range hits {
		names = append(names, category.String())
	}
	sort.Strings(names)
	return Classification{
		Category:    domain.CategoryMultiDomain,
		Subcategory: strings.Join(names, "+"),
		Confidence:  domain.ConfidenceMultiDomain,
	}, true
}

func (c *Classifier) byTypeMarkers(payload any) (Classification, bool) {
	var found Classification
	var ok bool
	walkPayload(payload, func(key string, value any, _ int) bool {
		if !typeMarkerKeys[strings.ToLower(key)] {
			return true
		}
		s, isString := value.(string)
		if !isString {
			return true
		}
		lower := strings.ToLower(s)
		for _, e := range c.entityNames {
			if strings.Contains(lower, e.substr) {
				found = Classification{Category: e.category, Subcategory: e.substr, Confidence: domain.ConfidenceStructural}
				ok = true
				return false
			}
		}
		return true
	})
	return found, ok
}

// DetectSourceType reports whether traffic was observed, triggered or explored.
// Endpoint markers take precedence over payload capture metadata.
func (c *Classifier) DetectSourceType(endpoint string, payload any) domain.SourceType {
	lower := strings.ToLower(endpoint)
	for _, m := range triggeredMarkers {
		if strings.Contains(lower, m) {
			return domain.SourceTriggered
		}
	}
	for _, m := range exploredMarkers {
		if strings.Contains(lower, m) {
			return domain.SourceExplored
		}
	}
	for _, meta := range captureMetadata(payload) {
		if s, ok := meta["source_type"].(string); ok {
			st := domain.SourceType(strings.ToLower(s))
			if st.IsValid() {
				return st
			}
		}
	}
	return domain.SourceObserved
}

// ExtractPatientID finds the subject of an event. Payload metadata is the
// most reliable source; endpoint patterns are tried next, ending with a
// generic run of six or more digits.
func (c *Classifier) ExtractPatientID(endpoint string, payload any) string {
	candidates := captureMetadata(payload)
	if m, ok := payload.(map[string]any); ok {
		candidates = append(candidates, m)
	}
	for _, m := range candidates {
		for _, k := range patientIDKeys {
			if id := scalarString(m[k]); id != "" {
				return id
			}
		}
	}
	for _, re := range patientEndpointPatterns {
		if match := re.FindStringSubmatch(endpoint); match != nil {
			return match[1]
		}
	}
	return ""
}

// captureMetadata returns the metadata objects embedded in a payload.
func captureMetadata(payload any) []map[string]any {
	m, ok := payload.(map[string]any)
	if !ok {
		return nil
	}
	var out []map[string]any
	for _, k := range metadataKeys {
		if meta, ok := m[k].(map[string]any); ok {
			out = append(out, meta)
		}
	}
	return out
}

// topLevelKeys returns the keys of a payload object, or of the first object
// in a top-level array.
func topLevelKeys(payload any) []string {
	switch t := payload.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys
	case []any:
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				return topLevelKeys(m)
			}
		}
	}
	return nil
}

// scalarString renders string and numeric JSON values.
func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	}
	return ""
}

// walkPayload visits every object key down to maxWalkDepth, sampling the
// first maxWalkSample elements of lists. Keys are visited in sorted order.
// Returning false from visit stops the walk.
func walkPayload(payload any, visit func(key string, value any, depth int) bool) {
	var walk func(v any, depth int) bool
	walk = func(v any, depth int) bool {
		switch t := v.(type) {
		case map[string]any:
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if !visit(k, t[k], depth) {
					return false
				}
				if depth < maxWalkDepth && !walk(t[k], depth+1) {
					return false
				}
			}
		case []any:
			for i, item := range t {
				if i >= maxWalkSample {
					break
				}
				if depth < maxWalkDepth && !walk(item, depth+1) {
					return false
				}
			}
		}
		return true
	}
	walk(payload, 1)
}
