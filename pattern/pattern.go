// Package pattern translates the POSIX case/glob pattern language
// (literal runs, `*`, `?`, `[...]` bracket expressions, and the POSIX
// `[[:class:]]` named character classes) into a regexp.Regexp, for
// `case` arm matching.
package pattern

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

// HasMeta reports whether r has special meaning in a pattern: '*', '?',
// '[', or the backslash escape introducer.
func HasMeta(r rune) bool {
	return r == '*' || r == '?' || r == '[' || r == '\\'
}

func anyMeta(s string) bool {
	for _, r := range s {
		if HasMeta(r) {
			return true
		}
	}
	return false
}

var classNames = map[string]bool{
	"alnum": true, "alpha": true, "ascii": true, "blank": true, "cntrl": true,
	"digit": true, "graph": true, "lower": true, "print": true, "punct": true,
	"space": true, "upper": true, "word": true, "xdigit": true,
}

// charClass matches a "[[:name:]]" prefix of s and returns its regexp
// equivalent, or "" if s does not start with one.
func charClass(s string) (string, error) {
	if !strings.HasPrefix(s, "[[:") {
		return "", nil
	}
	rest := s[3:]
	end := strings.Index(rest, ":]]")
	if end < 0 {
		return "", fmt.Errorf("pattern: \"[[:\" has no matching \":]]\"")
	}
	name := rest[:end]
	if !classNames[name] {
		return "", fmt.Errorf("pattern: invalid character class %q", name)
	}
	return s[:len(name)+6], nil
}

// Translate turns a shell pattern into the equivalent Go regexp syntax.
// The result always anchors implicitly by virtue of Compile wrapping it
// in "^(?:...)$"; Translate itself returns the unanchored body.
func Translate(pat string) (string, error) {
	if !anyMeta(pat) {
		return regexp.QuoteMeta(pat), nil
	}
	var buf bytes.Buffer
	for i := 0; i < len(pat); i++ {
		c := pat[i]
		switch c {
		case '*':
			buf.WriteString(".*")
		case '?':
			buf.WriteString(".")
		case '\\':
			if i++; i >= len(pat) {
				buf.WriteString(`\\`)
				break
			}
			buf.WriteString(regexp.QuoteMeta(string(pat[i])))
		case '[':
			name, err := charClass(pat[i:])
			if err != nil {
				return "", err
			}
			if name != "" {
				buf.WriteString(name)
				i += len(name) - 1
				continue
			}
			buf.WriteByte('[')
			if i++; i >= len(pat) {
				return "", fmt.Errorf("pattern: \"[\" has no matching \"]\"")
			}
			c = pat[i]
			if c == '!' {
				c = '^'
			}
			buf.WriteByte(c)
			for {
				if i++; i >= len(pat) {
					return "", fmt.Errorf("pattern: \"[\" has no matching \"]\"")
				}
				c = pat[i]
				buf.WriteByte(c)
				if c == ']' {
					break
				}
			}
		default:
			buf.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	return buf.String(), nil
}

// Compile translates pat and compiles it to a *regexp.Regexp anchored to
// match the whole subject string, as case arms and pathname matching
// both require.
func Compile(pat string) (*regexp.Regexp, error) {
	body, err := Translate(pat)
	if err != nil {
		return nil, err
	}
	return regexp.Compile("^(?:" + body + ")$")
}

// Match reports whether s matches the shell pattern pat.
func Match(pat, s string) (bool, error) {
	re, err := Compile(pat)
	if err != nil {
		return false, err
	}
	return re.MatchString(s), nil
}
