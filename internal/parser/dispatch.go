// Package parser implements the Parser Dispatch of spec.md §4.3: normalize
// a raw byte payload, detect its media type, apply origin-specific
// overrides, and fan out to the matching extractor.
package parser

import (
	"errors"
	"fmt"

	"github.com/alea-labs/kl3mpipe/internal/model"
	"github.com/alea-labs/kl3mpipe/internal/parser/extract"
	"github.com/alea-labs/kl3mpipe/internal/parser/origin"
	"github.com/ternarybob/arbor"
)

// ErrPayloadTooLarge is returned when content exceeds the configured size
// cap (spec.md §4.3 step 5).
var ErrPayloadTooLarge = errors.New("payload too large")

// Options configures a single Dispatch call.
type Options struct {
	// Key is the object-store key the payload was read from, used to look
	// up origin-specific overrides and to build per-archive-member
	// identifiers.
	Key string
	// MaxSize is the size cap in bytes; zero disables the check.
	MaxSize int
}

// Dispatch runs the full normalize -> detect -> override -> extract
// pipeline against a raw payload and returns zero or more parsed
// documents. It does not tokenize; callers run Postprocess afterward.
func Dispatch(content []byte, declaredFormat, declaredSource string, opts Options, logger arbor.ILogger) ([]*model.ParsedDocument, error) {
	if opts.MaxSize > 0 && len(content) > opts.MaxSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(content), opts.MaxSize)
	}

	content = stripPDFWrapper(content)

	if decoded, guessedFormat, ok, err := maybeUUDecode(content, declaredFormat); err != nil {
		logger.Error().Err(err).Str("key", opts.Key).Msg("parser: uudecode failed")
		return nil, err
	} else if ok {
		content = decoded
		if guessedFormat != "" {
			declaredFormat = guessedFormat
		}
	}

	format := detectFormat(content, declaredFormat)
	source, format := origin.Apply(opts.Key, declaredSource, format)

	identifier := opts.Key

	var (
		docs []*model.ParsedDocument
		err  error
	)
	switch format {
	case "application/zip":
		docs, err = extract.Archive(content, source, identifier)
	case "application/pdf":
		docs, err = extract.PDF(content, source, identifier)
	case "text/html", "application/xhtml+xml":
		docs, err = extract.HTML(content, source, identifier)
	case "text/xml", "application/xml":
		if source == "https://publications.europa.eu/" {
			docs, err = extract.EUOfficialJournalXML(content, source, identifier)
		} else {
			docs, err = extract.XML(content, source, identifier)
		}
	case "application/json":
		docs, err = extract.JSON(content, source, identifier)
	case "text/markdown":
		docs = extract.Markdown(content, source, identifier)
	case "text/plain":
		if extract.LooksLikeHTML(content) {
			docs, err = extract.HTML(content, source, identifier)
		} else {
			docs = extract.PlainText(content, source, identifier)
		}
	default:
		logger.Info().Str("format", format).Str("key", opts.Key).Msg("parser: no extractor for format, skipping")
		return nil, nil
	}

	if err != nil {
		logger.Error().Err(err).Str("format", format).Str("key", opts.Key).Msg("parser: extraction failed")
		return nil, nil
	}
	return docs, nil
}
