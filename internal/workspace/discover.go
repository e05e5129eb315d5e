package workspace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/kb-labs/pkgops/internal/manifest"
)

// LernaFile marks a project managed by lerna.
const LernaFile = "lerna.json"

const fieldWorkspaces = "workspaces"

// Discover reads the manifest in rootDir and, for a workspace root, every
// member package its globs point at. Members come in glob order, then in
// lexicographic directory order within a glob. Members are one level deep:
// their own workspace fields are not followed.
func Discover(fsys afero.Fs, rootDir string, opts Options) (*Topology, error) {
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", rootDir, err)
	}
	rootDir = abs
	fileName := opts.fileName()

	doc, err := manifest.Read(fsys, filepath.Join(rootDir, fileName))
	if err != nil {
		return nil, err
	}
	topo := &Topology{Root: newPackage(rootDir, rootDir, fileName, doc)}

	lerna, err := readLerna(fsys, rootDir)
	if err != nil {
		return nil, err
	}
	topo.Lerna = lerna != nil

	globs, declared := workspaceGlobs(doc)
	if !declared && lerna == nil {
		return topo, nil
	}
	if !declared {
		globs = lerna.globs()
	}
	topo.Globs = globs

	for _, glob := range globs {
		members, err := expand(fsys, rootDir, glob, fileName)
		if err != nil {
			return nil, err
		}
		topo.Members = append(topo.Members, members...)
	}
	return topo, nil
}

// workspaceGlobs reads the workspaces field in its array form or in yarn's
// {"packages": [...]} form. declared is false when the field is absent.
func workspaceGlobs(doc *manifest.Document) (globs []string, declared bool) {
	v, ok := doc.Get(fieldWorkspaces)
	if !ok {
		return nil, false
	}
	if obj, isObj := v.(*manifest.Document); isObj {
		v, _ = obj.Get("packages")
	}
	list, _ := v.([]any)
	globs = []string{}
	for _, it := range list {
		if s, ok := it.(string); ok && s != "" {
			globs = append(globs, s)
		}
	}
	return globs, true
}

// expand lists the member directories of one glob. "base/*" means every
// immediate subdirectory of base; anything else names a single directory.
func expand(fsys afero.Fs, rootDir, glob, fileName string) ([]*Package, error) {
	pattern := filepath.FromSlash(glob)
	base, all := strings.CutSuffix(filepath.ToSlash(filepath.Clean(pattern)), "/*")
	baseDir := filepath.Join(rootDir, filepath.FromSlash(base))

	if !all {
		p, err := loadMember(fsys, rootDir, baseDir, glob, fileName)
		if err != nil {
			return nil, err
		}
		return []*Package{p}, nil
	}

	// afero.ReadDir sorts by name
	entries, err := afero.ReadDir(fsys, baseDir)
	if err != nil {
		return nil, &DiscoveryError{Dir: baseDir, Glob: glob, Err: err}
	}
	var out []*Package
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		p, err := loadMember(fsys, rootDir, filepath.Join(baseDir, e.Name()), glob, fileName)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func loadMember(fsys afero.Fs, rootDir, dir, glob, fileName string) (*Package, error) {
	doc, err := manifest.Read(fsys, filepath.Join(dir, fileName))
	if err != nil {
		return nil, &DiscoveryError{Dir: dir, Glob: glob, Err: err}
	}
	p := newPackage(rootDir, dir, fileName, doc)
	if p.Name == "" {
		return nil, &DiscoveryError{Dir: dir, Glob: glob, Err: errors.New("manifest has no name")}
	}
	return p, nil
}

type lernaConfig struct {
	Packages []string `json:"packages"`
}

func (c *lernaConfig) globs() []string {
	if len(c.Packages) == 0 {
		return []string{DefaultGlob}
	}
	return c.Packages
}

// readLerna returns nil when lerna.json does not exist.
func readLerna(fsys afero.Fs, rootDir string) (*lernaConfig, error) {
	path := filepath.Join(rootDir, LernaFile)
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var cfg lernaConfig
	// an empty marker file is a valid lerna.json
	if len(bytes.TrimSpace(data)) == 0 {
		return &cfg, nil
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}
