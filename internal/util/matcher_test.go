package util

import (
	"strings"
	"testing"
)

func TestMatchMask(t *testing.T) {
	cases := []struct {
		pattern   string
		candidate string
		want      bool
	}{
		{"*", "", true},
		{"*", "anything", true},
		{"", "", true},
		{"", "x", false},
		{"abc", "abc", true},
		{"abc", "abd", false},
		{"a?c", "abc", true},
		{"a?c", "ac", false},
		{"a?c", "abbc", false},
		{"*!*@example.com", "alice!bob@example.com", true},
		{"*!*@example.com", "alice!bob@example.org", false},
		{"a?c!*@*", "abc!x@y", true},
		{"a?c!*@*", "abx!x@y", false},
		{"nick!*@*.isp.net", "nick!ident@dsl-44.isp.net", true},
		{"nick!*@*.isp.net", "nick!ident@isp.net", false},
		{"*a*b*", "xxaxxbxx", true},
		{"*a*b*", "xxbxxaxx", false},
		// '*' is literal on the candidate side.
		{"a*c", "a*c", true},
		{"a?c", "a?c", true},
		// Case-sensitive on the raw strings.
		{"Nick!*@*", "nick!x@y", false},
	}

	for _, tc := range cases {
		if got := MatchMask(tc.pattern, tc.candidate); got != tc.want {
			t.Errorf("MatchMask(%q, %q) = %v, want %v", tc.pattern, tc.candidate, got, tc.want)
		}
	}
}

func TestMatchMaskNoBlowup(t *testing.T) {
	// The classic regex-backtracking killer must complete instantly.
	pattern := strings.Repeat("a*", 30) + "b"
	candidate := strings.Repeat("a", 300)
	if MatchMask(pattern, candidate) {
		t.Error("pattern should not match candidate without trailing b")
	}
	if !MatchMask(pattern, candidate+"b") {
		t.Error("pattern should match candidate with trailing b")
	}
}

func TestMatchUserHost(t *testing.T) {
	cases := []struct {
		mask     string
		userHost string
		want     bool
	}{
		{"*!*@*", "nick!ident@host", true},
		{"nick!*@*", "nick!ident@host", true},
		{"nick!*@*", "other!ident@host", false},
		{"*!ident@host", "nick!ident@host", true},
		{"*!*@10.0.0.?", "nick!ident@10.0.0.7", true},
		{"*!*@10.0.0.?", "nick!ident@10.0.0.77", false},
		// Malformed sides never match.
		{"just-a-nick", "nick!ident@host", false},
		{"nick!*@*", "nick", false},
		// The ident wildcard must not swallow the '@' separator span.
		{"*!x@y", "nick!x@z@y", false},
	}

	for _, tc := range cases {
		if got := MatchUserHost(tc.mask, tc.userHost); got != tc.want {
			t.Errorf("MatchUserHost(%q, %q) = %v, want %v", tc.mask, tc.userHost, got, tc.want)
		}
	}
}
