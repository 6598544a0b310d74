package parser

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// detectFormat auto-detects the media type from the byte prefix when the
// declared type is absent or generic (spec.md §4.3 step 2).
func detectFormat(content []byte, declared string) string {
	declared = normalizeFormat(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return normalizeFormat(mimetype.Detect(content).String())
}

// normalizeFormat strips a trailing ";charset=..." parameter and lowercases
// the media type, matching the original's
// object_format.split(";")[0].lower().strip().
func normalizeFormat(format string) string {
	if format == "" {
		return ""
	}
	if idx := strings.IndexByte(format, ';'); idx >= 0 {
		format = format[:idx]
	}
	return strings.ToLower(strings.TrimSpace(format))
}
