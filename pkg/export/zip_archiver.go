package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path"
	"strings"
	"time"
)

// ArchiveEntry is one named file inside a zip archive.
type ArchiveEntry struct {
	Name string
	Data []byte
}

// Archive packs entries into a zip in the given order. A repeated name gets a
// _2, _3... suffix before its extension, compared case-insensitively.
func Archive(entries []ArchiveEntry, modified time.Time) ([]byte, error) {
	if modified.IsZero() {
		modified = time.Now()
	}
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	names := newNameSet()
	for _, entry := range entries {
		name := names.claim(entry.Name)
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return nil, fmt.Errorf("create zip entry %s: %w", name, err)
		}
		if _, err := w.Write(entry.Data); err != nil {
			return nil, fmt.Errorf("write zip entry %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

type nameSet map[string]struct{}

func newNameSet() nameSet {
	return make(nameSet)
}

func (s nameSet) claim(name string) string {
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	candidate := name
	for i := 2; s.has(candidate); i++ {
		candidate = fmt.Sprintf("%s_%d%s", base, i, ext)
	}
	s[strings.ToLower(candidate)] = struct{}{}
	return candidate
}

func (s nameSet) has(name string) bool {
	_, ok := s[strings.ToLower(name)]
	return ok
}
