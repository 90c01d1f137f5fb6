package pattern_test

import (
	"testing"

	"github.com/luckboy/rsush-sub000/pattern"
)

func TestMatch(t *testing.T) {
	cases := []struct {
		pat, s string
		want   bool
	}{
		{"abc", "abc", true},
		{"abc", "abcd", false},
		{"a*c", "abbbc", true},
		{"a*c", "ac", true},
		{"a?c", "abc", true},
		{"a?c", "ac", false},
		{"[abc]", "b", true},
		{"[abc]", "d", false},
		{"[!abc]", "d", true},
		{"[[:digit:]]*", "9abc", true},
		{"[[:digit:]]*", "abc", false},
	}
	for _, tc := range cases {
		got, err := pattern.Match(tc.pat, tc.s)
		if err != nil {
			t.Errorf("Match(%q, %q): %v", tc.pat, tc.s, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tc.pat, tc.s, got, tc.want)
		}
	}
}

func TestCompileInvalidBracket(t *testing.T) {
	if _, err := pattern.Compile("[abc"); err == nil {
		t.Error("expected an error for an unterminated bracket expression")
	}
}
