// ABOUTME: Canonicalization of location-qualified conversation names
// ABOUTME: Strips the locations segment so every instance agrees on one registry key

package conversation

import "strings"

// CanonicalName returns the conversation name without its location segment.
// Names arrive either location-qualified
// ("projects/p/locations/global/conversations/c") or already canonical
// ("projects/p/conversations/c"); both map to the same canonical form.
// The rule keeps the leading two and trailing two path segments.
// Canonical input is returned unchanged.
func CanonicalName(name string) string {
	if !strings.Contains(name, "/locations/") {
		return name
	}
	parts := strings.Split(name, "/")
	if len(parts) < 4 {
		return name
	}
	return strings.Join([]string{parts[0], parts[1], parts[len(parts)-2], parts[len(parts)-1]}, "/")
}
