// Package quality implements the export-time quality scorer of spec.md
// §4.6: per-document character-class ratios, line/paragraph statistics,
// type-token ratio, token entropy, and bad-bigram/format-token counts,
// weighed against a fixed table of expected ranges into one deviation
// score.
package quality

import (
	"math"
	"strings"
	"unicode"

	"github.com/alea-labs/kl3mpipe/internal/tokenizer"
)

// Weights mirrors the original scorer's per-metric weight table, ported
// from original_source/kl3m_data/metrics/quality_metrics.py's
// METRIC_WEIGHTS.
var Weights = map[string]float64{
	"ratio_whitespace":          1.0,
	"average_line_length":       1.0,
	"average_paragraph_length":  1.0,
	"ratio_alphanumeric":        1.0,
	"ratio_alpha_to_numeric":    0.1,
	"ratio_non_ascii":           2.0,
	"ratio_capital":             1.0,
	"ratio_punctuation":         1.0,
	"average_word_length":       1.5,
	"type_token_ratio":          1.5,
	"token_entropy":             0.5,
	"char_entropy":              0.5,
	"max_token_frequency_ratio": 1.0,
	"repetition_rate":           1.5,
	"ratio_format_tokens":       1.0,
	"ratio_nospace_bigrams":     2.0,
}

// ExpectedRanges mirrors the original's EXPECTED_RANGES, derived from the
// 2nd/98th percentile of USC and CFR text.
var ExpectedRanges = map[string][2]float64{
	"ratio_whitespace":          {0.121212, 0.193813},
	"average_line_length":       {17.5, 245.0},
	"average_paragraph_length":  {35.0, 849.0},
	"ratio_alphanumeric":        {0.594595, 0.822884},
	"ratio_alpha_to_numeric":    {1.829268, 265.1},
	"ratio_non_ascii":           {0.0, 0.034483},
	"ratio_capital":             {0.008368, 0.224638},
	"ratio_punctuation":         {0.021601, 0.210867},
	"average_word_length":       {4.498695, 7.285714},
	"type_token_ratio":          {0.387879, 0.66055},
	"repetition_rate":           {0.33945, 0.612121},
	"token_entropy":             {3.38158, 7.855401},
	"char_entropy":              {4.066784, 5.017473},
	"max_token_frequency_ratio": {0.04028, 0.153846},
	"ratio_format_tokens":       {0.0, 0.0},
	"ratio_nospace_bigrams":     {0.0, 0.0},
}

const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

func isASCIIPunct(r rune) bool {
	return strings.ContainsRune(asciiPunctuation, r)
}

// Score computes the metric table and weighted deviation score for one
// document given its token ids and decoded text. tok is used to detect
// special-token leakage for ratio_format_tokens; it may be nil, in which
// case that metric is reported as zero.
//
// ratio_nospace_bigrams and ratio_format_tokens are adapted from the
// original's hardcoded token-id lookups (meaningful only for that
// project's own trained vocabulary): here ratio_nospace_bigrams flags
// each token whose own decoded text contains a lower-to-upper case or
// letter/digit transition with no separating space (adjacent tokens are
// not compared), and ratio_format_tokens flags tokens whose
// decoded text is itself one of the tokenizer's configured special tokens
// appearing outside the first/last position — the tokenizer-agnostic
// analogs of the same defects.
func Score(tokens []uint32, text string, tok tokenizer.Tokenizer) (float64, map[string]float64) {
	metrics := textMetrics(text)
	for k, v := range tokenMetrics(tokens, tok) {
		metrics[k] = v
	}
	return scoreMetrics(metrics), metrics
}

func textMetrics(text string) map[string]float64 {
	runes := []rune(text)
	total := len(runes)
	if total == 0 {
		return map[string]float64{
			"total_characters":          0,
			"ratio_whitespace":          0,
			"average_line_length":       0,
			"average_paragraph_length":  0,
			"ratio_alphanumeric":        0,
			"ratio_alpha_to_numeric":    math.Inf(1),
			"ratio_non_ascii":           0,
			"ratio_capital":             0,
			"ratio_punctuation":         0,
			"average_word_length":       0,
			"type_token_ratio":          0,
			"token_entropy":             0,
			"char_entropy":              0,
		}
	}

	var (
		whitespace, alpha, digit, capital, punctuation, nonASCII int
		lineCount                                                = 1
		paragraphCount                                           int
	)
	charCounts := make(map[rune]int)

	for i, r := range runes {
		charCounts[r]++
		if unicode.IsSpace(r) {
			whitespace++
			if r == '\n' {
				lineCount++
			}
		}
		switch {
		case unicode.IsLetter(r):
			alpha++
			if unicode.IsUpper(r) {
				capital++
			}
		case unicode.IsDigit(r):
			digit++
		}
		if isASCIIPunct(r) {
			punctuation++
		}
		if r > 127 {
			nonASCII++
		}
		if r == '.' && i+2 < total {
			next2 := string(runes[i+1 : i+3])
			if next2 == "\r\n" || next2 == "\n\n" {
				paragraphCount++
			}
		}
	}
	paragraphCount++

	alphanumeric := 0
	for r, count := range charCounts {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			alphanumeric += count
		}
	}

	ratioAlphaToNumeric := math.Inf(1)
	if digit > 0 {
		ratioAlphaToNumeric = float64(alpha) / float64(digit)
	}
	ratioCapital := 0.0
	if alpha > 0 {
		ratioCapital = float64(capital) / float64(alpha)
	}

	charEntropy := 0.0
	for _, count := range charCounts {
		p := float64(count) / float64(total)
		charEntropy += -p * math.Log2(p)
	}

	words := strings.Fields(text)
	numWords := len(words)
	avgWordLength, ttr, wordEntropy := 0.0, 0.0, 0.0
	if numWords > 0 {
		wordCounts := make(map[string]int, numWords)
		totalWordLen := 0
		for _, w := range words {
			totalWordLen += len([]rune(w))
			wordCounts[w]++
		}
		avgWordLength = float64(totalWordLen) / float64(numWords)
		ttr = float64(len(wordCounts)) / float64(numWords)
		for _, count := range wordCounts {
			p := float64(count) / float64(numWords)
			wordEntropy += -p * math.Log2(p)
		}
	}

	return map[string]float64{
		"total_characters":         float64(total),
		"ratio_whitespace":         float64(whitespace) / float64(total),
		"average_line_length":      float64(total) / float64(lineCount),
		"average_paragraph_length": float64(total) / float64(paragraphCount),
		"ratio_alphanumeric":       float64(alphanumeric) / float64(total),
		"ratio_alpha_to_numeric":   ratioAlphaToNumeric,
		"ratio_non_ascii":          float64(nonASCII) / float64(total),
		"ratio_capital":            ratioCapital,
		"ratio_punctuation":        float64(punctuation) / float64(total),
		"average_word_length":      avgWordLength,
		"type_token_ratio":         ttr,
		"token_entropy":            wordEntropy,
		"char_entropy":             charEntropy,
	}
}

func tokenMetrics(tokens []uint32, tok tokenizer.Tokenizer) map[string]float64 {
	total := len(tokens)
	if total == 0 {
		return map[string]float64{
			"max_token_frequency_ratio": 0,
			"repetition_rate":           0,
			"ratio_format_tokens":       0,
			"ratio_nospace_bigrams":     0,
		}
	}

	counts := make(map[uint32]int, total)
	maxFreq := 0
	for _, id := range tokens {
		counts[id]++
		if counts[id] > maxFreq {
			maxFreq = counts[id]
		}
	}
	unique := len(counts)

	formatTokens := 0
	if tok != nil {
		for i, id := range tokens {
			if i == 0 || i == total-1 {
				continue
			}
			if isSpecialTokenID(id, tok) {
				formatTokens++
			}
		}
	}

	return map[string]float64{
		"max_token_frequency_ratio": float64(maxFreq) / float64(total),
		"repetition_rate":           1 - float64(unique)/float64(total),
		"ratio_format_tokens":       float64(formatTokens) / float64(total),
		"ratio_nospace_bigrams":     nospaceBigramRatio(tokens, tok),
	}
}

func isSpecialTokenID(id uint32, tok tokenizer.Tokenizer) bool {
	for _, st := range tokenizer.SpecialTokens {
		specialID, err := tok.IDOf(string(st))
		if err == nil && specialID == id {
			return true
		}
	}
	return false
}

// nospaceBigramRatio flags tokens whose own decoded text glues two word
// runs together (a lower-to-upper transition, or a letter-digit
// transition) with no separator — the generalizable analog of the
// original's fixed bad-bigram-id lookup, which only had meaning for that
// project's own trained vocabulary.
func nospaceBigramRatio(tokens []uint32, tok tokenizer.Tokenizer) float64 {
	if tok == nil || len(tokens) == 0 {
		return 0
	}
	bad := 0
	for _, id := range tokens {
		piece, err := tok.Decode([]uint32{id}, false)
		if err != nil {
			continue
		}
		if hasGluedWordBoundary(piece) {
			bad++
		}
	}
	return float64(bad) / float64(len(tokens))
}

func hasGluedWordBoundary(s string) bool {
	runes := []rune(s)
	for i := 0; i+1 < len(runes); i++ {
		a, b := runes[i], runes[i+1]
		if unicode.IsLower(a) && unicode.IsUpper(b) {
			return true
		}
		if unicode.IsLetter(a) && unicode.IsDigit(b) {
			return true
		}
		if unicode.IsDigit(a) && unicode.IsLetter(b) {
			return true
		}
	}
	return false
}

func scoreMetrics(metrics map[string]float64) float64 {
	const eps = 1e-8
	var total float64
	for metric, weight := range Weights {
		value, ok := metrics[metric]
		if !ok {
			continue
		}
		bounds, hasRange := ExpectedRanges[metric]
		if !hasRange || math.IsInf(value, 0) || math.IsNaN(value) {
			continue
		}
		lower, upper := bounds[0], bounds[1]
		var component float64
		if lower == upper {
			if math.Abs(value-lower) > eps {
				component = weight * math.Abs(value-lower)
			}
		} else if value < lower {
			component = weight * (lower - value) / (math.Abs(lower) + eps)
		} else if value > upper {
			component = weight * (value - upper) / (math.Abs(upper) + eps)
		}
		total += component
	}
	return total
}
