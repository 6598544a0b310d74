package extract

import "github.com/alea-labs/kl3mpipe/internal/model"

// PlainText wraps raw decoded text as a single text/plain representation.
func PlainText(content []byte, source, identifier string) Result {
	return single(source, identifier, map[string]*model.Representation{
		"text/plain": {Content: string(content), MimeType: "text/plain"},
	})
}

// Markdown wraps raw decoded text as a single text/markdown
// representation, passed through unmodified (spec.md §4.3: "Markdown
// passthrough").
func Markdown(content []byte, source, identifier string) Result {
	return single(source, identifier, map[string]*model.Representation{
		"text/markdown": {Content: string(content), MimeType: "text/markdown"},
	})
}
