package normalize

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// RawXMLTagKey records the root element name of an XML envelope.
const RawXMLTagKey = "raw_xml_tag"

type xmlNode struct {
	name     string
	attrs    []xml.Attr
	children []*xmlNode
	text     strings.Builder
}

// parseXML decodes an XML document into a mapping. Single-child wrapper
// elements around the record are collapsed; the surviving root tag is stored
// under data.raw_xml_tag.
func parseXML(text string) (map[string]any, error) {
	decoder := xml.NewDecoder(strings.NewReader(text))
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "xml: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	var root *xmlNode
	var stack []*xmlNode
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "xml: decode")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			node := &xmlNode{name: t.Name.Local, attrs: t.Attr}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, node)
			} else if root == nil {
				root = node
			} else {
				return nil, eris.New("xml: multiple root elements")
			}
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}
	if root == nil {
		return nil, eris.New("xml: no root element")
	}

	for isWrapper(root) {
		root = root.children[0]
	}

	m, ok := root.value().(map[string]any)
	if !ok {
		return nil, eris.New("xml: root element has no fields")
	}
	data, _ := m["data"].(map[string]any)
	if data == nil {
		data = make(map[string]any)
		if existing, present := m["data"]; present {
			data["value"] = existing
		}
		m["data"] = data
	}
	data[RawXMLTagKey] = root.name
	return m, nil
}

func isWrapper(n *xmlNode) bool {
	if len(n.children) != 1 || len(n.attrs) > 0 || strings.TrimSpace(n.text.String()) != "" {
		return false
	}
	child := n.children[0]
	return len(child.children) > 0 && child.name != "data"
}

func (n *xmlNode) value() any {
	if len(n.children) == 0 && len(n.attrs) == 0 {
		return strings.TrimSpace(n.text.String())
	}
	out := make(map[string]any, len(n.children)+len(n.attrs))
	for _, a := range n.attrs {
		out[a.Name.Local] = a.Value
	}
	for _, c := range n.children {
		v := c.value()
		switch existing := out[c.name].(type) {
		case nil:
			out[c.name] = v
		case []any:
			out[c.name] = append(existing, v)
		default:
			out[c.name] = []any{existing, v}
		}
	}
	if text := strings.TrimSpace(n.text.String()); text != "" {
		out["text"] = text
	}
	return out
}
