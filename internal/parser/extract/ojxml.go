package extract

import (
	"fmt"
	"strings"
)

// EUOfficialJournalXML is the specialized XML branch for the EU
// Publications Office's Official Journal schema (spec.md §4.3 step 4: "a
// specialized branch for a specific publisher"). The original applies an
// XSLT transform to HTML and reuses the HTML extractor on the result; no
// XSLT engine exists in this module's dependency set, so the tree is
// instead flattened directly into a minimal HTML document (one paragraph
// per leaf text node) and handed to the same HTML extractor, preserving
// reading order and paragraph boundaries without a schema-specific
// stylesheet.
func EUOfficialJournalXML(content []byte, source, identifier string) (Result, error) {
	content = stripEDGARWrapper(content)

	root, err := parseXML(content)
	if err != nil {
		return nil, fmt.Errorf("parse eu official journal xml: %w", err)
	}

	var b strings.Builder
	b.WriteString("<html><body>")
	writeParagraphs(&b, root)
	b.WriteString("</body></html>")

	return HTML([]byte(b.String()), source, identifier)
}

func writeParagraphs(b *strings.Builder, n *xmlNode) {
	text := trimmed(n.Text)
	if text != "" {
		b.WriteString("<p>")
		b.WriteString(text)
		b.WriteString("</p>")
	}
	for _, child := range n.Children {
		writeParagraphs(b, child)
	}
}
