package fetcher

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/bertel/migration-tool/internal/normalize"
)

// yamlEnvelopes decodes every document of a YAML stream.
func yamlEnvelopes(name string, data []byte) ([]Source, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var out []Source
	for i := 1; ; i++ {
		var doc any
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "yaml: decode %s document %d", name, i)
		}
		if doc == nil {
			continue
		}
		origin := name
		if i > 1 {
			origin = fmt.Sprintf("%s#%d", name, i)
		}
		out = append(out, Source{Origin: origin, Envelope: normalize.FromValue(jsonCompatible(doc))})
	}
	return out, nil
}

// jsonCompatible rewrites YAML maps with non-string keys into
// map[string]any so the normalizer sees the same shapes as decoded JSON.
func jsonCompatible(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = jsonCompatible(item)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = jsonCompatible(item)
		}
		return out
	case []any:
		for i, item := range t {
			t[i] = jsonCompatible(item)
		}
		return t
	default:
		return v
	}
}
