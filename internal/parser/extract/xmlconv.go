package extract

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"sort"

	yaml "gopkg.in/yaml.v3"
)

// xmlNode is a generic, order-preserving XML element tree. The standard
// library's encoding/xml has no built-in "parse to a generic tree" mode
// (unlike lxml.etree in the original), so this is a small direct decoder
// built on xml.Decoder tokens; no corpus library offers a generic XML<->map
// bridge, so this part is necessarily stdlib (see DESIGN.md).
type xmlNode struct {
	Name     string
	Attrs    map[string]string
	Text     string
	Children []*xmlNode
}

func parseXML(data []byte) (*xmlNode, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var root *xmlNode
	var stack []*xmlNode

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			node := &xmlNode{Name: t.Name.Local, Attrs: map[string]string{}}
			for _, a := range t.Attr {
				node.Attrs[a.Name.Local] = a.Value
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			} else {
				root = node
			}
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("no root element found")
	}
	return root, nil
}

// toMap converts the tree to a generic map/slice shape suitable for JSON
// or YAML marshaling, mirroring etree_to_json/etree_to_yaml's nested-dict
// output.
func (n *xmlNode) toMap() map[string]any {
	m := map[string]any{}
	if len(n.Attrs) > 0 {
		attrs := make(map[string]any, len(n.Attrs))
		for k, v := range n.Attrs {
			attrs[k] = v
		}
		m["@attributes"] = attrs
	}
	if text := trimmed(n.Text); text != "" && len(n.Children) == 0 {
		m["#text"] = text
	}
	for _, child := range n.Children {
		childMap := child.toMap()
		if existing, ok := m[child.Name]; ok {
			switch e := existing.(type) {
			case []any:
				m[child.Name] = append(e, childMap)
			default:
				m[child.Name] = []any{e, childMap}
			}
		} else {
			m[child.Name] = childMap
		}
	}
	return map[string]any{n.Name: m}
}

func trimmed(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func xmlToJSON(root *xmlNode) (string, error) {
	out, err := json.MarshalIndent(root.toMap(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal xml tree to json: %w", err)
	}
	return string(out), nil
}

func xmlToYAML(root *xmlNode) (string, error) {
	out, err := yaml.Marshal(root.toMap())
	if err != nil {
		return "", fmt.Errorf("marshal xml tree to yaml: %w", err)
	}
	return string(out), nil
}

// anyToXML renders a generic JSON-decoded value (map[string]any, []any, or
// scalar) as XML under rootName, the inverse direction needed by the JSON
// extractor's application/xml representation.
func anyToXML(rootName string, v any) (string, error) {
	var buf bytes.Buffer
	buf.WriteString("<" + rootName + ">")
	if err := writeXMLValue(&buf, v); err != nil {
		return "", err
	}
	buf.WriteString("</" + rootName + ">")
	return buf.String(), nil
}

func writeXMLValue(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			tag := xmlSafeTag(k)
			buf.WriteString("<" + tag + ">")
			if err := writeXMLValue(buf, val[k]); err != nil {
				return err
			}
			buf.WriteString("</" + tag + ">")
		}
	case []any:
		for _, item := range val {
			buf.WriteString("<item>")
			if err := writeXMLValue(buf, item); err != nil {
				return err
			}
			buf.WriteString("</item>")
		}
	case nil:
		// empty element
	default:
		var s string
		if err := xmlEscapeInto(buf, val); err != nil {
			return err
		}
		_ = s
	}
	return nil
}

func xmlEscapeInto(buf *bytes.Buffer, v any) error {
	enc := xml.NewEncoder(buf)
	if err := enc.EncodeToken(xml.CharData([]byte(fmt.Sprint(v)))); err != nil {
		return err
	}
	return enc.Flush()
}

func xmlSafeTag(name string) string {
	if name == "" {
		return "field"
	}
	if name[0] >= '0' && name[0] <= '9' {
		return "_" + name
	}
	return name
}
