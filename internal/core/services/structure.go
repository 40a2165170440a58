package services

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/custodia-labs/chartrail/internal/core/domain"
)

// fingerprintLength is the number of hex characters kept from the key hash.
const fingerprintLength = 12

// AnalyzeStructure describes the shape of a payload without reading its
// clinical content. The walk is bounded to maxWalkDepth levels and samples
// the first maxWalkSample elements of every list.
func (c *Classifier) AnalyzeStructure(payload any) domain.ExtractionHints {
	var hints domain.ExtractionHints
	systems := make(map[string]bool)

	var walk func(v any, depth int)
	walk = func(v any, depth int) {
		switch t := v.(type) {
		case map[string]any:
			hints.MaxDepth = max(hints.MaxDepth, depth)
			for k, child := range t {
				lower := strings.ToLower(k)
				if nestingMarkers[lower] {
					hints.HasNesting = true
				}
				for _, cs := range codingSystemKeys {
					if strings.Contains(lower, cs.substr) {
						systems[cs.system] = true
					}
				}
				if depth < maxWalkDepth {
					walk(child, depth+1)
				}
			}
		case []any:
			hints.MaxDepth = max(hints.MaxDepth, depth)
			hints.LargestArray = max(hints.LargestArray, len(t))
			for i, item := range t {
				if i >= maxWalkSample {
					break
				}
				if depth < maxWalkDepth {
					walk(item, depth+1)
				}
			}
		}
	}
	walk(payload, 1)

	for s := range systems {
		hints.CodingSystems = append(hints.CodingSystems, s)
	}
	sort.Strings(hints.CodingSystems)

	keys := topLevelKeys(payload)
	hints.KeyCount = len(keys)
	hints.Fingerprint = fingerprint(keys)
	hints.Complexity = complexityTier(hints.MaxDepth, hints.HasNesting)
	return hints
}

// complexityTier derives a tier from depth and nesting markers.
func complexityTier(depth int, nesting bool) string {
	switch {
	case depth <= 2 && !nesting:
		return domain.ComplexitySimple
	case depth <= 4 && nesting:
		return domain.ComplexityModerate
	default:
		return domain.ComplexityComplex
	}
}

// fingerprint hashes sorted top-level keys so payloads of the same shape cluster.
func fingerprint(keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "|")))
	return hex.EncodeToString(sum[:])[:fingerprintLength]
}
