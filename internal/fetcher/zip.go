package fetcher

import (
	"archive/zip"
	"io"
	"path"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// maxEntrySize bounds the bytes read from one archive entry.
const maxEntrySize = 64 << 20

// zipEnvelopes loads every supported entry of the archive in name order.
// Unsupported entries are skipped.
func zipEnvelopes(zipPath string) ([]Source, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrap(err, "zip: open archive")
	}
	defer r.Close() //nolint:errcheck

	files := make([]*zip.File, 0, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if !Supported(f.Name) || ext(f.Name) == ".zip" {
			zap.L().Debug("zip: skipping entry", zap.String("archive", zipPath), zap.String("entry", f.Name))
			continue
		}
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	var out []Source
	for _, f := range files {
		data, err := readEntry(f)
		if err != nil {
			return out, err
		}
		sources, err := decode(zipPath+"!"+path.Clean(f.Name), data)
		if err != nil {
			return out, err
		}
		out = append(out, sources...)
	}
	return out, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > maxEntrySize {
		return nil, eris.Errorf("zip: entry %q too large (%d bytes)", f.Name, f.UncompressedSize64)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, eris.Wrap(err, "zip: open entry")
	}
	defer rc.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(rc, maxEntrySize))
	if err != nil {
		return nil, eris.Wrap(err, "zip: read entry")
	}
	return data, nil
}
