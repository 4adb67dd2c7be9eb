// Package extract turns free-text model output into named fields using
// ordered banks of regular expressions.
package extract

import (
	"regexp"
	"strings"
)

// Field is one extractable value and its candidate patterns, most specific
// first. Format documents the expected shape (e.g. MM/YYYY); it is not
// enforced here.
type Field struct {
	Name     string
	Format   string
	Patterns []*regexp.Regexp
}

// Table is an ordered set of fields.
type Table []Field

// Names returns the field names in declaration order.
func (t Table) Names() []string {
	names := make([]string, len(t))
	for i, f := range t {
		names[i] = f.Name
	}
	return names
}

// Record holds one sample's extracted values. Every field of the table is
// present as a key; unmatched fields are nil.
type Record map[string]*string

// MustCompile builds a Field, compiling each pattern case-insensitive and
// multi-line. It panics on an invalid pattern.
func MustCompile(name, format string, patterns ...string) Field {
	f := Field{Name: name, Format: format, Patterns: make([]*regexp.Regexp, len(patterns))}
	for i, p := range patterns {
		f.Patterns[i] = regexp.MustCompile(`(?im)` + p)
	}
	return f
}

// Match returns the trimmed first capture group of the first pattern that
// matches text, or nil.
func (f Field) Match(text string) *string {
	for _, re := range f.Patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if len(m) < 2 {
			continue
		}
		v := strings.TrimSpace(m[1])
		if v == "" {
			continue
		}
		return &v
	}
	return nil
}

// Extract runs every field of table over text.
func Extract(text string, table Table) Record {
	rec := make(Record, len(table))
	for _, f := range table {
		rec[f.Name] = f.Match(text)
	}
	return rec
}
