package parser

import (
	"bytes"
	"fmt"
	"mime"
	"path/filepath"
)

// stripPDFWrapper removes a leading "<PDF>"/trailing "</PDF>" wrapper some
// sources embed around an otherwise-raw PDF payload (spec.md §4.3 step 1).
func stripPDFWrapper(content []byte) []byte {
	if !bytes.HasPrefix(content, []byte("<PDF>")) {
		return content
	}
	content = bytes.TrimSpace(content[len("<PDF>"):])
	if bytes.HasSuffix(content, []byte("</PDF>")) {
		content = bytes.TrimSpace(content[:len(content)-len("</PDF>")])
	}
	return content
}

// maybeUUDecode detects a uuencoded payload either via an explicit
// declared format or a leading "begin NNN <name>" line, decodes it, and
// returns the decoded content plus the media type guessed from the
// embedded filename. ok is false when content was not uuencoded.
func maybeUUDecode(content []byte, declaredFormat string) (decoded []byte, guessedFormat string, ok bool, err error) {
	if declaredFormat != "application/uuencode" && !looksLikeUUHeader(content) {
		return content, "", false, nil
	}

	name, data, err := uuDecode(content)
	if err != nil {
		return nil, "", false, fmt.Errorf("uudecode: %w", err)
	}

	guessed := mime.TypeByExtension(filepath.Ext(name))
	return data, guessed, true, nil
}

// looksLikeUUHeader reports whether content begins with a "begin NNN "
// uuencode header line, where NNN is a three-digit octal mode.
func looksLikeUUHeader(content []byte) bool {
	if !bytes.HasPrefix(content, []byte("begin")) {
		return false
	}
	if len(content) < 9 {
		return false
	}
	mode := content[6:9]
	for _, b := range mode {
		if b < '0' || b > '7' {
			return false
		}
	}
	return true
}
