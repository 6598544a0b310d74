package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
)

// Archive recurses over ZIP members, dispatching each to the matching
// extractor without re-entering Archive itself (spec.md §4.3 step 4: "an
// archive extractor... recurses over members without re-entering itself").
// There is no third-party ZIP library anywhere in the example corpus, so
// this uses the standard library's archive/zip (see DESIGN.md).
func Archive(content []byte, source, identifier string) (Result, error) {
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open zip archive: %w", err)
	}

	var documents Result
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		memberContent, err := readZipMember(file)
		if err != nil {
			continue
		}

		memberFormat := mimetype.Detect(memberContent).String()
		memberIdentifier := identifier + "/" + file.Name
		memberDocs, err := dispatchArchiveMember(memberContent, memberFormat, source, memberIdentifier)
		if err != nil {
			continue
		}
		documents = append(documents, memberDocs...)
	}
	return documents, nil
}

func readZipMember(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip member %s: %w", file.Name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// dispatchArchiveMember is a restricted dispatch for archive members: it
// supports the same leaf formats as the top-level dispatch but never
// recurses into nested archives, matching
// original_source/kl3m_data/parsers/generic_zip.py's parse_zip_member.
func dispatchArchiveMember(content []byte, format, source, identifier string) (Result, error) {
	format = normalizeMediaType(format)
	switch format {
	case "application/pdf":
		return PDF(content, source, identifier)
	case "text/html", "application/xhtml+xml":
		return HTML(content, source, identifier)
	case "text/xml", "application/xml":
		return XML(content, source, identifier)
	case "application/json":
		return JSON(content, source, identifier)
	case "text/markdown":
		return Markdown(content, source, identifier), nil
	case "text/plain":
		return PlainText(content, source, identifier), nil
	default:
		return nil, nil
	}
}

func normalizeMediaType(format string) string {
	for i := 0; i < len(format); i++ {
		if format[i] == ';' {
			return format[:i]
		}
	}
	return format
}
