package sheetsql

import (
	"fmt"
	"strings"
)

// emptyColumnName replaces a header that sanitizing strips to nothing.
const emptyColumnName = "col"

// sanitizeIdentifier maps a raw header, sheet, or file name to a
// store-safe identifier: surrounding whitespace is trimmed, every rune
// outside [A-Za-z0-9_] becomes one underscore, a leading digit gets an
// underscore prefix, and an empty result falls back to emptyColumnName.
// The mapping is idempotent.
func sanitizeIdentifier(raw string) string {
	trimmed := strings.TrimSpace(raw)
	var sb strings.Builder
	sb.Grow(len(trimmed) + 1)
	for _, r := range trimmed {
		if isIdentRune(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	s := sb.String()
	if s == "" {
		return emptyColumnName
	}
	if s[0] >= '0' && s[0] <= '9' {
		return "_" + s
	}
	return s
}

func isIdentRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_':
		return true
	default:
		return false
	}
}

// tableBaseName derives the table name for one sheet: file stem and
// sheet name are joined first, then sanitized as a single unit, so runes
// dropped from either part cannot collapse the separator. Sources
// without sheets use the stem alone.
func tableBaseName(stem, sheetName string) string {
	if sheetName == "" {
		return sanitizeIdentifier(stem)
	}
	return sanitizeIdentifier(stem + "_" + sheetName)
}

// sanitizeColumns maps raw headers to unique identifiers in column
// order. Case-insensitive duplicates get _2, _3, ... suffixes.
func sanitizeColumns(headers []string) []string {
	alloc := newNameAllocator()
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = alloc.claim(sanitizeIdentifier(h))
	}
	return out
}

// nameAllocator resolves case-insensitive name collisions within one
// scope: the columns of a sheet, or the tables of a load batch. Later
// claimants of a taken name get _2, _3, ... suffixes in claim order, so
// a fixed claim order yields fixed names.
type nameAllocator struct {
	taken map[string]struct{}
}

func newNameAllocator() *nameAllocator {
	return &nameAllocator{taken: make(map[string]struct{})}
}

// reserve records an existing name verbatim, making it unavailable to
// later claims.
func (a *nameAllocator) reserve(name string) {
	a.taken[strings.ToLower(name)] = struct{}{}
}

// claim returns name if it is free, otherwise the first free suffixed
// variant, and marks the result as taken.
func (a *nameAllocator) claim(name string) string {
	key := strings.ToLower(name)
	if _, ok := a.taken[key]; !ok {
		a.taken[key] = struct{}{}
		return name
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d", name, n)
		key = strings.ToLower(candidate)
		if _, ok := a.taken[key]; !ok {
			a.taken[key] = struct{}{}
			return candidate
		}
	}
}
