// Package origin applies the small, static table of origin-specific
// overrides described in spec.md §4.3 step 3: known dataset path prefixes
// that need a fixed media type or source URL patched in before dispatch,
// mirroring original_source/kl3m_data/parsers/generic_object.py's
// patch_source_metadata.
package origin

import "strings"

// Override is a source URL and/or format forced for a given document-key
// prefix.
type Override struct {
	Prefix string
	Source string // empty means "leave source untouched"
	Format string // empty means "leave format untouched"
}

// Table is the static prefix -> override mapping, checked in order (the
// first matching prefix wins).
var Table = []Override{
	{Prefix: "documents/dockets/", Source: "https://archive.org/download/federal-court-dockets"},
	{Prefix: "documents/fdlp/", Source: "https://permanent.fdlp.gov/"},
	{Prefix: "documents/eu_oj/", Source: "https://publications.europa.eu/"},
	{Prefix: "documents/uspto/", Format: "text/markdown"},
}

// Apply patches source/format in place when key matches a table entry.
// Source is only overridden when the caller's existing source is empty,
// matching the original's "only fill in if missing" behavior; format is
// always forced when the table specifies one.
func Apply(key, source, format string) (newSource, newFormat string) {
	newSource, newFormat = source, format
	for _, o := range Table {
		if !strings.HasPrefix(key, o.Prefix) {
			continue
		}
		if o.Source != "" && newSource == "" {
			newSource = o.Source
		}
		if o.Format != "" {
			newFormat = o.Format
		}
		return newSource, newFormat
	}
	return newSource, newFormat
}
