// Package fetcher loads raw envelopes from files on disk. JSON, XML, and
// plain text files are one envelope each; YAML yields one envelope per
// document, XLSX one per data row, and ZIP archives the envelopes of every
// supported entry.
package fetcher

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/bertel/migration-tool/internal/normalize"
)

// ErrUnsupported is returned for file extensions no loader handles.
var ErrUnsupported = eris.New("fetcher: unsupported file type")

// Source is one loaded envelope and where it came from.
type Source struct {
	// Origin is the file path, with "#<n>" or "!<entry>" suffixes for rows,
	// documents, and archive entries.
	Origin   string
	Envelope normalize.Envelope
}

// Supported reports whether path has an extension LoadEnvelopes handles.
func Supported(path string) bool {
	switch ext(path) {
	case ".json", ".xml", ".txt", ".yaml", ".yml", ".xlsx", ".zip":
		return true
	}
	return false
}

// LoadEnvelopes reads every envelope in the file at path.
func LoadEnvelopes(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read %s", path)
	}
	if ext(path) == ".zip" {
		return zipEnvelopes(path)
	}
	return decode(path, data)
}

// decode dispatches on the extension of name.
func decode(name string, data []byte) ([]Source, error) {
	switch ext(name) {
	case ".json", ".xml", ".txt":
		return []Source{{Origin: name, Envelope: normalize.DecodeEnvelope(data)}}, nil
	case ".yaml", ".yml":
		return yamlEnvelopes(name, data)
	case ".xlsx":
		return xlsxEnvelopes(name, data)
	default:
		return nil, eris.Wrapf(ErrUnsupported, "%s", name)
	}
}

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
