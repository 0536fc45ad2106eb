// Package ident derives Go identifiers from OpenAPI schema names.
//
// One cleaning rule is applied everywhere a document name becomes an
// identifier: every character outside [A-Za-z0-9_] is stripped, then any
// leading run of non-letters is stripped, so the result always begins with
// a letter. Distinct document names may clean to the same identifier; the
// caller is responsible for collision handling.
package ident

import "strings"

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isLegal(r rune) bool {
	return isLetter(r) || (r >= '0' && r <= '9') || r == '_'
}

// Clean strips every character outside [A-Za-z0-9_] from name, then strips
// any leading run of characters that are not letters. The result is empty
// when nothing survives.
func Clean(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if isLegal(r) {
			b.WriteRune(r)
		}
	}
	s := b.String()
	start := 0
	for start < len(s) && !isLetter(rune(s[start])) {
		start++
	}
	return s[start:]
}

// Exported cleans name and uppercases the first letter, yielding an exported
// Go identifier, or the empty string when nothing survives cleaning.
func Exported(name string) string {
	s := Clean(name)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Package cleans name and lowercases it for use as a package name.
func Package(name string) string {
	return strings.ToLower(Clean(name))
}
