// Package ifs implements field splitting: partitioning a string into
// fields using a delimiter set split into whitespace delimiters (space,
// tab, newline) and non-whitespace delimiters, with the asymmetric
// empty-field rules POSIX word splitting on $IFS requires.
package ifs

import "strings"

func isWhitespace(r rune) bool { return r == ' ' || r == '\t' || r == '\n' }

// Split partitions s into fields using delims as the combined IFS
// delimiter set. Runs of whitespace delimiters between fields are
// consumed silently; a single non-whitespace delimiter always
// separates two fields (producing an empty one on either side if
// nothing else is there), and leading/trailing whitespace-only
// delimiters never themselves produce an empty boundary field.
func Split(s string, delims string) []string {
	if s == "" {
		return nil
	}
	isDelim := func(r rune) bool { return strings.ContainsRune(delims, r) }
	isWSDelim := func(r rune) bool { return isWhitespace(r) && isDelim(r) }
	isNonWSDelim := func(r rune) bool { return isDelim(r) && !isWhitespace(r) }

	runes := []rune(s)
	n := len(runes)
	i := 0
	skipWS := func() {
		for i < n && isWSDelim(runes[i]) {
			i++
		}
	}

	var fields []string
	skipWS()
	for i < n {
		start := i
		for i < n && !isDelim(runes[i]) {
			i++
		}
		fields = append(fields, string(runes[start:i]))
		if i >= n {
			break
		}
		if isWhitespace(runes[i]) {
			skipWS()
			if i < n && isNonWSDelim(runes[i]) {
				i++
				skipWS()
				if i >= n {
					fields = append(fields, "")
				}
			}
			continue
		}
		// a non-whitespace delimiter: always separates two fields.
		i++
		skipWS()
		if i >= n {
			fields = append(fields, "")
		}
	}
	return fields
}
