// Package filters implements the small ordered list of pure byte/string
// transducers applied to every parsed-document representation during
// postprocessing (spec.md §4.3).
package filters

import "strings"

// LineFilter is a pure transducer over representation text.
type LineFilter func(content string) string

// VerDate strips "VerDate ..." page-header lines emitted by the US
// Government Publishing Office's typesetting pipeline, e.g.:
//
//	VerDate Mar<15>2010 16:40 Jun 14, 2010
func VerDate(content string) string {
	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(line, "VerDate") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// Default is the canonical filter chain applied to every representation.
var Default = []LineFilter{VerDate}

// Apply runs every filter in chain over content, in order.
func Apply(chain []LineFilter, content string) string {
	for _, f := range chain {
		content = f(content)
	}
	return content
}
