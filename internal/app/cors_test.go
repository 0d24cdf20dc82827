package app

import "testing"

func TestOriginAllowed(t *testing.T) {
	patterns := []string{"nn1.dev", "*.nn1.dev", "localhost:*"}
	tests := map[string]bool{
		"https://nn1.dev":       true,
		"https://www.nn1.dev":   true,
		"http://localhost:3000": true,
		"https://evil.dev":      false,
		"https://nn1.dev.evil":  false,
		"https://evilnn1.dev":   false,
	}
	for origin, want := range tests {
		if got := originAllowed(patterns, origin); got != want {
			t.Errorf("originAllowed(%q) = %v, want %v", origin, got, want)
		}
	}
}
