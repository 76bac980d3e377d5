package ratelimit

import "testing"

func TestIdentityKey(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		origin  string
		want    string
	}{
		{name: "subject and origin", subject: "user-42", origin: "203.0.113.7", want: "user-42:203.0.113.7"},
		{name: "origin only", subject: "", origin: "203.0.113.7", want: "203.0.113.7"},
		{name: "subject only", subject: "user-42", origin: "", want: "user-42:unknown"},
		{name: "neither", subject: "", origin: "", want: "unknown"},
		{name: "whitespace trimmed", subject: " user-42 ", origin: " 203.0.113.7 ", want: "user-42:203.0.113.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IdentityKey(tt.subject, tt.origin); got != tt.want {
				t.Fatalf("IdentityKey(%q, %q) = %q, want %q", tt.subject, tt.origin, got, tt.want)
			}
		})
	}
}
