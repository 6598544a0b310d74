package extract

import (
	"bytes"
	"fmt"

	"github.com/alea-labs/kl3mpipe/internal/model"
)

// XML parses an XML payload and emits application/xml, application/json,
// and application/yaml representations, mirroring generic_xml.py.
func XML(content []byte, source, identifier string) (Result, error) {
	content = stripEDGARWrapper(content)

	root, err := parseXML(content)
	if err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}

	reps := map[string]*model.Representation{
		"application/xml": {Content: string(content), MimeType: "application/xml"},
	}
	if j, err := xmlToJSON(root); err == nil {
		reps["application/json"] = &model.Representation{Content: j, MimeType: "application/json"}
	}
	if y, err := xmlToYAML(root); err == nil {
		reps["application/yaml"] = &model.Representation{Content: y, MimeType: "application/yaml"}
	}

	return single(source, identifier, reps), nil
}

// stripEDGARWrapper removes a leading "<XML>"/trailing "</XML>" wrapper
// some SEC EDGAR filings embed around the real document.
func stripEDGARWrapper(content []byte) []byte {
	trimmed := bytes.TrimSpace(content)
	if !bytes.HasPrefix(trimmed, []byte("<XML>")) || !bytes.HasSuffix(trimmed, []byte("</XML>")) {
		return content
	}
	start := bytes.Index(trimmed, []byte("<XML>"))
	end := bytes.LastIndex(trimmed, []byte("</XML>"))
	return bytes.TrimSpace(trimmed[start+len("<XML>") : end])
}
