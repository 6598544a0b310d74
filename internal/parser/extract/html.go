package extract

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/alea-labs/kl3mpipe/internal/model"
)

var tagRe = regexp.MustCompile(`<[^>]*>`)
var spaceRe = regexp.MustCompile(`\s+`)

// HTML converts an HTML payload to a single text/markdown representation,
// mirroring generic_html.py's "extract markdown, re-wrap and retry on
// empty output" shape.
func HTML(content []byte, source, identifier string) (Result, error) {
	text := stripNonContentElements(string(content))

	converted, err := convertHTMLToMarkdown(text)
	if err != nil || strings.TrimSpace(converted) == "" {
		converted = stripHTMLTags(text)
	}

	converted = strings.TrimSpace(html.UnescapeString(converted))
	if converted == "" {
		return nil, fmt.Errorf("unable to extract any text for %s", identifier)
	}

	return single(source, identifier, map[string]*model.Representation{
		"text/markdown": {Content: converted, MimeType: "text/markdown"},
	}), nil
}

func convertHTMLToMarkdown(text string) (string, error) {
	converter := md.NewConverter("", true, nil)
	converted, err := converter.ConvertString(text)
	if err != nil {
		return "", fmt.Errorf("html to markdown: %w", err)
	}
	if strings.TrimSpace(converted) == "" {
		wrapped := "<html>" + text + "</html>"
		converted, err = converter.ConvertString(wrapped)
		if err != nil {
			return "", fmt.Errorf("html to markdown (wrapped retry): %w", err)
		}
	}
	return converted, nil
}

// stripHTMLTags is the last-resort fallback when conversion fails or
// yields nothing: strip tags with a regex and collapse whitespace.
func stripHTMLTags(input string) string {
	stripped := tagRe.ReplaceAllString(input, "")
	return strings.TrimSpace(spaceRe.ReplaceAllString(stripped, " "))
}

// stripNonContentElements removes <script> and <style> elements before
// markdown conversion so their text never leaks into the extracted
// representation. Falls back to the original input if the document does
// not parse as HTML.
func stripNonContentElements(input string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(input))
	if err != nil {
		return input
	}
	doc.Find("script, style, noscript").Remove()
	out, err := doc.Html()
	if err != nil || strings.TrimSpace(out) == "" {
		return input
	}
	return out
}

// LooksLikeHTML reports whether plain-text content actually contains HTML
// markup, matching the dispatch's text/plain double-check for <html/
// <!doctype tags (spec.md §4.3 step 4, generic_object.py's text/plain
// branch).
func LooksLikeHTML(content []byte) bool {
	lower := strings.ToLower(string(content))
	return strings.Contains(lower, "<html") || strings.Contains(lower, "<!doctype")
}
