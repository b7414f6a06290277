package wobsite

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Index is the file index of a build: every regular file under the source
// directory, together with a content hash per file keyed by the file's
// site-absolute URL path (e.g. "/css/style.css").
//
// An Index is built once at the start of a build and never mutated
// afterwards, so it is shared read-only across concurrent build jobs.
type Index struct {
	source string
	output string
	files  []string
	hashes map[string]string
}

// NewIndex recursively scans source and hashes the content of every regular
// file it finds. The first I/O error during traversal or hashing aborts the
// scan; no partial index is returned.
func NewIndex(source, output string) (*Index, error) {
	idx := &Index{
		source: filepath.Clean(source),
		output: filepath.Clean(output),
		hashes: map[string]string{},
	}

	err := filepath.WalkDir(idx.source, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(idx.source, path)
		if err != nil {
			return err
		}

		hash, err := hashFile(path)
		if err != nil {
			return err
		}

		idx.files = append(idx.files, path)
		idx.hashes["/"+filepath.ToSlash(rel)] = hash
		return nil
	})
	if err != nil {
		return nil, err
	}

	return idx, nil
}

// Source returns the directory the index was built from.
func (i *Index) Source() string { return i.source }

// Output returns the directory build results are written to.
func (i *Index) Output() string { return i.output }

// Files returns every regular file found under the source directory, in walk
// order. The returned slice must not be modified.
func (i *Index) Files() []string { return i.files }

// Match returns the indexed files whose path relative to the source
// directory matches pattern. A pattern starting with "/" is anchored to the
// source root and must match the full relative path; any other pattern
// matches at any depth in the hierarchy.
func (i *Index) Match(pattern string) []string {
	if strings.HasPrefix(pattern, "/") {
		pattern = strings.TrimPrefix(pattern, "/")
	} else {
		pattern = "**/" + pattern
	}

	var matched []string

	for _, file := range i.files {
		rel, err := filepath.Rel(i.source, file)
		if err != nil {
			continue
		}
		if ok, err := doublestar.Match(pattern, filepath.ToSlash(rel)); err == nil && ok {
			matched = append(matched, file)
		}
	}

	return matched
}

// Hash returns the content hash of the file with the given site-absolute URL
// path. The second return value reports whether the path was indexed.
func (i *Index) Hash(path string) (string, bool) {
	hash, ok := i.hashes[path]
	return hash, ok
}

// hashFile streams the file's content through SHA-256 and returns the hex
// encoded digest.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
