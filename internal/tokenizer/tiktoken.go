package tokenizer

import (
	"fmt"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// TiktokenTokenizer is a Tokenizer backed by pkoukk/tiktoken-go's BPE
// encodings, extended with the fixed special-token table the pipeline needs
// (start/end/mask/unk/cls/sep/pad) appended past the base vocabulary.
type TiktokenTokenizer struct {
	name      string
	enc       *tiktoken.Tiktoken
	baseSize  int
	specialID map[SpecialToken]uint32
	idSpecial map[uint32]SpecialToken
}

// NewTiktokenTokenizer constructs a TiktokenTokenizer for the given BPE
// encoding name (e.g. "cl100k_base"). The encoding is loaded once; special
// tokens are assigned sequential ids immediately above the base vocabulary.
func NewTiktokenTokenizer(encodingName string) (*TiktokenTokenizer, error) {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("initializing tiktoken encoding %q: %w", encodingName, err)
	}

	baseSize := baseVocabSize(encodingName)

	t := &TiktokenTokenizer{
		name:      encodingName,
		enc:       enc,
		baseSize:  baseSize,
		specialID: make(map[SpecialToken]uint32, len(SpecialTokens)),
		idSpecial: make(map[uint32]SpecialToken, len(SpecialTokens)),
	}
	for i, tok := range SpecialTokens {
		id := uint32(baseSize + i)
		t.specialID[tok] = id
		t.idSpecial[id] = tok
	}
	return t, nil
}

// baseVocabSize returns the published base vocabulary size for known BPE
// encodings, above which this tokenizer appends its own special-token
// table. Unrecognized encoding names fall back to the cl100k_base size,
// which only affects where special-token ids start (not correctness of
// Encode/Decode, which always defer to the underlying library).
func baseVocabSize(encodingName string) int {
	switch encodingName {
	case "cl100k_base":
		return 100256
	case "o200k_base":
		return 199998
	case "p50k_base":
		return 50281
	case "r50k_base":
		return 50257
	default:
		return 100256
	}
}

func (t *TiktokenTokenizer) Name() string { return t.name }

// Encode converts text to token ids. When addSpecial is true the sequence
// is wrapped with TokenStart/TokenEnd, matching the canonical windowing
// convention used by internal/producer.
func (t *TiktokenTokenizer) Encode(text string, addSpecial bool) ([]uint32, error) {
	raw := t.enc.Encode(text, nil, nil)
	ids := make([]uint32, 0, len(raw)+2)
	if addSpecial {
		ids = append(ids, t.specialID[TokenStart])
	}
	for _, id := range raw {
		ids = append(ids, uint32(id))
	}
	if addSpecial {
		ids = append(ids, t.specialID[TokenEnd])
	}
	return ids, nil
}

// Decode converts token ids back to text. Special-token ids are either
// skipped or rendered as their literal "<|...|>" form depending on
// skipSpecial.
func (t *TiktokenTokenizer) Decode(ids []uint32, skipSpecial bool) (string, error) {
	raw := make([]int, 0, len(ids))
	var out string
	for _, id := range ids {
		if tok, ok := t.idSpecial[id]; ok {
			if skipSpecial {
				continue
			}
			out += t.enc.Decode(raw) + string(tok)
			raw = raw[:0]
			continue
		}
		raw = append(raw, int(id))
	}
	return out + t.enc.Decode(raw), nil
}

// IDOf returns the id for a literal token string, checking the special
// table first so reserved tokens never collide with base-vocabulary BPE
// merges.
func (t *TiktokenTokenizer) IDOf(token string) (uint32, error) {
	if id, ok := t.specialID[SpecialToken(token)]; ok {
		return id, nil
	}
	ids := t.enc.Encode(token, nil, nil)
	if len(ids) != 1 {
		return 0, fmt.Errorf("%q is not a single base-vocabulary token", token)
	}
	return uint32(ids[0]), nil
}

// VocabSize returns the base BPE vocabulary size plus the special-token
// table.
func (t *TiktokenTokenizer) VocabSize() int {
	return t.baseSize + len(SpecialTokens)
}

// SpecialID returns the id assigned to a SpecialToken without the string
// round trip IDOf requires.
func (t *TiktokenTokenizer) SpecialID(tok SpecialToken) uint32 {
	return t.specialID[tok]
}
