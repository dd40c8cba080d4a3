package etag

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ETagger fingerprints the JSON rendering of an entity or collection.
type ETagger struct{}

func New() *ETagger {
	return &ETagger{}
}

// Compute returns a strong, quoted entity tag.
func (e *ETagger) Compute(v any) (string, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("etag: encode entity: %w", err)
	}
	return fmt.Sprintf(`"%016x"`, xxhash.Sum64(payload)), nil
}

// Matches implements If-None-Match comparison: weak comparison over a
// comma-separated list, with "*" matching any current representation.
func Matches(ifNoneMatch, tag string) bool {
	ifNoneMatch = strings.TrimSpace(ifNoneMatch)
	if ifNoneMatch == "" || tag == "" {
		return false
	}
	if ifNoneMatch == "*" {
		return true
	}
	want := opaque(tag)
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		if opaque(candidate) == want {
			return true
		}
	}
	return false
}

func opaque(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimPrefix(tag, "W/")
	return strings.Trim(tag, `"`)
}
