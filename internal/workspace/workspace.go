// Package workspace resolves the layout of a node project: a single package
// or a workspace root with member packages found through its glob list.
package workspace

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/kb-labs/pkgops/internal/manifest"
)

// DefaultGlob is used when lerna.json is present but declares no packages.
const DefaultGlob = "packages/*"

// ErrDiscovery marks every failure to enumerate workspace members.
var ErrDiscovery = errors.New("workspace discovery failed")

// DiscoveryError locates a discovery failure.
type DiscoveryError struct {
	Dir  string // directory being read
	Glob string // glob that produced it
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("%s: %s (glob %q): %v", ErrDiscovery, e.Dir, e.Glob, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// Is reports true for ErrDiscovery so callers need not unwrap.
func (e *DiscoveryError) Is(target error) bool { return target == ErrDiscovery }

// Package is one package of a project. It is read-only after discovery;
// run Discover again to see changes on disk.
type Package struct {
	Name         string // from the manifest
	DirName      string // base name of Dir
	Dir          string // absolute directory
	RelDir       string // Dir relative to the project root, "." for the root
	RelPath      string // manifest path relative to the project root
	ManifestPath string
	Manifest     *manifest.Document
}

// Topology is the result of one discovery pass.
type Topology struct {
	Root    *Package
	Members []*Package
	Globs   []string // globs that produced Members, in declared order
	Lerna   bool     // lerna.json present at the root
}

// IsWorkspace reports whether the root declares member packages.
func (t *Topology) IsWorkspace() bool {
	return t.Globs != nil
}

// Member returns the member package with the given name.
func (t *Topology) Member(name string) (*Package, bool) {
	for _, p := range t.Members {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Packages returns the root followed by every member.
func (t *Topology) Packages() []*Package {
	out := make([]*Package, 0, len(t.Members)+1)
	out = append(out, t.Root)
	return append(out, t.Members...)
}

// Options tunes discovery.
type Options struct {
	// ConfigFileName is the manifest file name. Default: package.json.
	ConfigFileName string
}

func (o Options) fileName() string {
	if o.ConfigFileName == "" {
		return manifest.DefaultFileName
	}
	return o.ConfigFileName
}

func newPackage(rootDir, dir, fileName string, doc *manifest.Document) *Package {
	path := filepath.Join(dir, fileName)
	rel, err := filepath.Rel(rootDir, dir)
	if err != nil {
		rel = dir
	}
	name, _ := doc.String("name")
	return &Package{
		Name:         name,
		DirName:      filepath.Base(dir),
		Dir:          dir,
		RelDir:       rel,
		RelPath:      filepath.Join(rel, fileName),
		ManifestPath: path,
		Manifest:     doc,
	}
}
