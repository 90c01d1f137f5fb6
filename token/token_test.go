package token_test

import (
	"testing"

	"github.com/luckboy/rsush-sub000/token"
)

func TestKeywordsRoundTrip(t *testing.T) {
	for word, tok := range token.Keywords {
		if !token.IsKeyword(tok) {
			t.Errorf("IsKeyword(%v) = false for keyword %q", tok, word)
		}
		if tok.String() != word {
			t.Errorf("%v.String() = %q, want %q", tok, tok.String(), word)
		}
	}
}

func TestIsKeywordRejectsNonKeywords(t *testing.T) {
	for _, tok := range []token.Token{token.WORD, token.SEMICOLON, token.PIPE, token.EOF} {
		if token.IsKeyword(tok) {
			t.Errorf("IsKeyword(%v) = true, want false", tok)
		}
	}
}

func TestUnknownTokenString(t *testing.T) {
	var tok token.Token = 9999
	if got := tok.String(); got != "unknown" {
		t.Errorf("String() on out-of-range token = %q, want %q", got, "unknown")
	}
}
