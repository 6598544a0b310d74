package extract

import (
	"encoding/json"
	"fmt"

	"github.com/alea-labs/kl3mpipe/internal/model"
	yaml "gopkg.in/yaml.v3"
)

// JSON parses a JSON payload and emits application/json (pretty-printed),
// application/yaml, and application/xml representations, mirroring
// generic_json.py.
func JSON(content []byte, source, identifier string) (Result, error) {
	var data any
	if err := json.Unmarshal(content, &data); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	reps := map[string]*model.Representation{}

	pretty, err := json.MarshalIndent(data, "", "  ")
	if err == nil {
		reps["application/json"] = &model.Representation{Content: string(pretty), MimeType: "application/json"}
	}

	if y, err := yaml.Marshal(data); err == nil {
		reps["application/yaml"] = &model.Representation{Content: string(y), MimeType: "application/yaml"}
	}

	if x, err := anyToXML("document", data); err == nil {
		reps["application/xml"] = &model.Representation{Content: x, MimeType: "application/xml"}
	}

	if len(reps) == 0 {
		return nil, fmt.Errorf("no representations produced for json document")
	}
	return single(source, identifier, reps), nil
}
