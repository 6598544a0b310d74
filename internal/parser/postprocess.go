package parser

import (
	"strings"

	"github.com/alea-labs/kl3mpipe/internal/model"
	"github.com/alea-labs/kl3mpipe/internal/parser/filters"
	"github.com/alea-labs/kl3mpipe/internal/tokenizer"
)

// Postprocess applies the configured line filters, drops empty
// representations, tokenizes what remains with every configured
// tokenizer, and drops the whole document if nothing survives (spec.md
// §4.3 "Postprocessing").
func Postprocess(doc *model.ParsedDocument, originalURI string, filterChain []filters.LineFilter, tokenizers []tokenizer.Tokenizer) *model.ParsedDocument {
	if doc == nil {
		return nil
	}
	doc.OriginalURI = originalURI

	final := make(map[string]*model.Representation, len(doc.Representations))
	for mimeType, rep := range doc.Representations {
		rep.Content = filters.Apply(filterChain, rep.Content)
		if strings.TrimSpace(rep.Content) == "" {
			continue
		}

		rep.Tokens = make(map[string][]uint32, len(tokenizers))
		for _, tok := range tokenizers {
			ids, err := tok.Encode(rep.Content, false)
			if err != nil {
				continue
			}
			rep.Tokens[tok.Name()] = ids
		}

		final[mimeType] = rep
	}
	doc.Representations = final

	if len(doc.Representations) == 0 {
		return nil
	}
	return doc
}

// PostprocessAll applies Postprocess to every document in docs, dropping
// any that end up with zero representations.
func PostprocessAll(docs []*model.ParsedDocument, originalURI string, filterChain []filters.LineFilter, tokenizers []tokenizer.Tokenizer) []*model.ParsedDocument {
	final := make([]*model.ParsedDocument, 0, len(docs))
	for _, doc := range docs {
		if processed := Postprocess(doc, originalURI, filterChain, tokenizers); processed != nil {
			final = append(final, processed)
		}
	}
	return final
}
