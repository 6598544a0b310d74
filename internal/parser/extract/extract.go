// Package extract implements the per-media-type extractors the Parser
// Dispatch fans out to: archive, PDF, HTML, XML (with an EU Official
// Journal branch), JSON, plain text, and Markdown passthrough (spec.md §4.3
// step 4). There is no standalone YAML extractor; the JSON and XML
// extractors emit an application/yaml representation alongside their own.
// Every extractor returns zero or more parsed
// documents whose representations are text-shaped; none of them tokenize.
package extract

import "github.com/alea-labs/kl3mpipe/internal/model"

// Result is what every extractor returns: zero or more parsed documents
// (archives yield many, most formats yield exactly one, failures yield
// zero).
type Result = []*model.ParsedDocument

func single(source, identifier string, reps map[string]*model.Representation) Result {
	return Result{
		&model.ParsedDocument{
			Source:          source,
			Identifier:      identifier,
			Representations: reps,
			Success:         true,
		},
	}
}
