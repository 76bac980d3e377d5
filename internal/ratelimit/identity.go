package ratelimit

import "strings"

// UnknownOrigin is the sentinel used when no network origin can be derived.
const UnknownOrigin = "unknown"

// IdentityKey derives the string key that attributes requests to a single
// counted identity. When an authenticated subject is present the key pairs it
// with the origin, so a credential reused from a new origin is tracked per
// pairing; an anonymous caller is tracked by origin alone. The result is
// always usable: a missing origin falls back to the "unknown" sentinel.
func IdentityKey(subject, origin string) string {
	subject = strings.TrimSpace(subject)
	origin = strings.TrimSpace(origin)

	if origin == "" {
		origin = UnknownOrigin
	}
	if subject == "" {
		return origin
	}
	return subject + ":" + origin
}
