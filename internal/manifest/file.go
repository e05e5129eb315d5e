package manifest

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
)

// DefaultFileName is the conventional manifest file name.
const DefaultFileName = "package.json"

// ErrConfigNotFound is returned when no manifest exists at the expected path.
var ErrConfigNotFound = errors.New("manifest not found")

// Read loads and parses the manifest at path.
func Read(fsys afero.Fs, path string) (*Document, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Write renders doc and replaces the file at path, keeping its mode when
// the file already exists.
func Write(fsys afero.Fs, path string, doc *Document) error {
	data, err := Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal manifest %s: %w", path, err)
	}
	perm := os.FileMode(0o644)
	if info, err := fsys.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	if err := afero.WriteFile(fsys, path, data, perm); err != nil {
		return fmt.Errorf("write manifest %s: %w", path, err)
	}
	return nil
}

// Merge copies every top-level key of patch into doc. Keys already in doc
// keep their position; new keys are appended.
func Merge(doc, patch *Document) *Document {
	out := doc.Clone()
	for _, k := range patch.keys {
		out.Set(k, cloneValue(patch.values[k]))
	}
	return out
}
