// Package rut canonicalizes Chilean national IDs (RUTs).
//
// The canonical form is "body-checkdigit", e.g. "12345678-5" or
// "9876543-K". Every comparison in the system happens on canonical
// form, so the same function runs at write time (form submit, import)
// and at read time (registry lookup).
package rut

import "strings"

// Normalize strips every character except digits, 'k'/'K' and '-',
// upper-cases the check letter, and synthesizes the dash before the
// final character when the input carries none. Idempotent.
func Normalize(raw string) string {
	clean := keep(raw, true)
	if clean == "" {
		return ""
	}
	if strings.Contains(clean, "-") {
		return clean
	}
	if len(clean) == 1 {
		return clean
	}
	return clean[:len(clean)-1] + "-" + clean[len(clean)-1:]
}

// Clean removes dots, dashes and everything else that is not a digit or
// the check letter. Used for prefix matching against the registry's RUN
// column, which stores the bare body.
func Clean(raw string) string {
	return keep(raw, false)
}

// Body returns the part before the dash of a normalized RUT, without
// the check digit. The strict registry lookup matches on this alone.
func Body(raw string) string {
	n := Normalize(raw)
	if i := strings.IndexByte(n, '-'); i >= 0 {
		return n[:i]
	}
	return n
}

func keep(raw string, dash bool) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'k' || r == 'K':
			b.WriteByte('K')
		case dash && r == '-':
			b.WriteByte('-')
		}
	}
	return b.String()
}
