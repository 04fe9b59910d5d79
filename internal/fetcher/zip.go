package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractZIP extracts every file in the archive into destDir and returns the
// extracted paths.
func ExtractZIP(zipPath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrap(err, "zip: open archive")
	}
	defer r.Close() //nolint:errcheck

	var extracted []string
	for _, f := range r.File {
		path, err := extractEntry(f, destDir)
		if err != nil {
			return extracted, err
		}
		if path != "" {
			extracted = append(extracted, path)
		}
	}
	return extracted, nil
}

// ExtractZIPFile extracts the named entry and returns its path.
func ExtractZIPFile(zipPath, name, destDir string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", eris.Wrap(err, "zip: open archive")
	}
	defer r.Close() //nolint:errcheck

	for _, f := range r.File {
		if f.Name == name {
			return extractEntry(f, destDir)
		}
	}
	return "", eris.Errorf("zip: file %q not found in archive", name)
}

// FindExt returns the first path with the given extension, compared
// case-insensitively.
func FindExt(paths []string, ext string) (string, bool) {
	for _, p := range paths {
		if strings.EqualFold(filepath.Ext(p), ext) {
			return p, true
		}
	}
	return "", false
}

func extractEntry(f *zip.File, destDir string) (string, error) {
	destPath := filepath.Join(destDir, f.Name)
	if !strings.HasPrefix(filepath.Clean(destPath), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("zip: illegal path %q", f.Name)
	}

	if f.FileInfo().IsDir() {
		return "", eris.Wrap(os.MkdirAll(destPath, 0o755), "zip: create directory")
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", eris.Wrap(err, "zip: create parent directory")
	}

	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrap(err, "zip: open entry")
	}
	defer rc.Close() //nolint:errcheck

	if _, err := writeFile(destPath, io.LimitReader(rc, int64(f.UncompressedSize64))); err != nil {
		return "", eris.Wrapf(err, "zip: extract %s", f.Name)
	}
	return destPath, nil
}
