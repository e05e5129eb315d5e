// Package installer runs dependency operations on the packages of a project.
// It renders package manager commands through pm, edits manifests directly
// in save-only mode, and sorts manifests against the package schema.
package installer

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/kb-labs/pkgops/internal/logger"
	"github.com/kb-labs/pkgops/internal/manifest"
	"github.com/kb-labs/pkgops/internal/pm"
	"github.com/kb-labs/pkgops/internal/schema"
	"github.com/kb-labs/pkgops/internal/workspace"
)

// Registry resolves the latest published version of a package.
type Registry interface {
	LatestVersion(name string) (string, error)
}

// Target is the package an operation applies to.
type Target struct {
	Package *workspace.Package
	Role    pm.Target
	WorkDir string // commands run here: always the project root
}

// TargetFor picks the root package, or the named member when member is
// set. A member may be given by package name or by directory name.
func TargetFor(topo *workspace.Topology, member string) (Target, error) {
	root := topo.Root
	if member == "" {
		role := pm.Single
		if topo.IsWorkspace() {
			role = pm.Root
		}
		return Target{Package: root, Role: role, WorkDir: root.Dir}, nil
	}
	if !topo.IsWorkspace() {
		return Target{}, fmt.Errorf("%s is not a workspace root", root.Dir)
	}
	p, ok := topo.Member(member)
	if !ok {
		for _, m := range topo.Members {
			if m.DirName == member {
				p, ok = m, true
				break
			}
		}
	}
	if !ok {
		return Target{}, fmt.Errorf("no workspace member %q", member)
	}
	return Target{Package: p, Role: pm.Member, WorkDir: root.Dir}, nil
}

// TargetsFor resolves several members at once. With all set it returns
// every member; otherwise each name goes through TargetFor. Targets come in
// discovery order without duplicates. No names and no all yields the root.
func TargetsFor(topo *workspace.Topology, members []string, all bool) ([]Target, error) {
	if !all && len(members) == 0 {
		t, err := TargetFor(topo, "")
		if err != nil {
			return nil, err
		}
		return []Target{t}, nil
	}
	if !topo.IsWorkspace() {
		return nil, fmt.Errorf("%s is not a workspace root", topo.Root.Dir)
	}

	want := make(map[*workspace.Package]bool, len(members))
	for _, m := range members {
		t, err := TargetFor(topo, m)
		if err != nil {
			return nil, err
		}
		want[t.Package] = true
	}
	var out []Target
	for _, p := range topo.Members {
		if all || want[p] {
			out = append(out, Target{Package: p, Role: pm.Member, WorkDir: topo.Root.Dir})
		}
	}
	return out, nil
}

func (t Target) member() string {
	if t.Role == pm.Member {
		return t.Package.Name
	}
	return ""
}

// Installer runs dependency operations. Every external command goes through
// Runner strictly one after another.
type Installer struct {
	FS        afero.Fs
	Runner    pm.Runner
	Registry  Registry
	Selection pm.Selection
	Log       *logger.Logger
	OnStep    func(step, total int, label string) // called before each unit of work
}

// Install runs one install command per name, in order. The first failing
// command aborts the rest.
func (ins *Installer) Install(t Target, names []string, dev bool) error {
	for i, name := range names {
		cmd, err := pm.Render(pm.Install, t.Role, ins.Selection, name, t.member(), dev)
		if err != nil {
			return err
		}
		cmd.Dir = t.WorkDir
		ins.step(i+1, len(names), cmd.String())
		if err := ins.Runner.Run(cmd); err != nil {
			return fmt.Errorf("install %s: %w", name, err)
		}
	}
	return nil
}

// InstallEach runs Install on every target in order and stops at the first
// failure.
func (ins *Installer) InstallEach(ts []Target, names []string, dev bool) error {
	for _, t := range ts {
		if len(ts) > 1 {
			ins.Log.Printf("install into %s", label(t.Package))
		}
		if err := ins.Install(t, names, dev); err != nil {
			return fmt.Errorf("%s: %w", label(t.Package), err)
		}
	}
	return nil
}

// Removal lists the names taken out of one package.
type Removal struct {
	Package *workspace.Package
	Names   []string
}

// UninstallEach runs Uninstall on every target in order and stops at the
// first failure. The result has one entry per target reached, including the
// failing one.
func (ins *Installer) UninstallEach(ts []Target, names []string) ([]Removal, error) {
	var out []Removal
	for _, t := range ts {
		removed, err := ins.Uninstall(t, names)
		out = append(out, Removal{Package: t.Package, Names: removed})
		if err != nil {
			return out, fmt.Errorf("%s: %w", label(t.Package), err)
		}
	}
	return out, nil
}

// Uninstall removes the names that the manifest of t actually lists in
// dependencies or devDependencies, and returns them. Absent names are
// skipped; when none is present no command runs.
func (ins *Installer) Uninstall(t Target, names []string) ([]string, error) {
	doc, err := manifest.Read(ins.FS, t.Package.ManifestPath)
	if err != nil {
		return nil, err
	}
	var present []string
	for _, name := range names {
		if manifest.HasDependency(doc, name) {
			present = append(present, name)
		} else {
			ins.Log.Printf("skip %s: not a dependency of %s", name, label(t.Package))
		}
	}

	for i, name := range present {
		cmd, err := pm.Render(pm.Uninstall, t.Role, ins.Selection, name, t.member(), false)
		if err != nil {
			return present[:i], err
		}
		cmd.Dir = t.WorkDir
		ins.step(i+1, len(present), cmd.String())
		if err := ins.Runner.Run(cmd); err != nil {
			return present[:i], fmt.Errorf("uninstall %s: %w", name, err)
		}
	}
	return present, nil
}

// Dependency is a name pinned to a version range.
type Dependency struct {
	Name    string
	Version string
}

// Failure is a name whose lookup failed.
type Failure struct {
	Name string
	Err  error
}

// AddResult reports a save-only add.
type AddResult struct {
	Added  []Dependency
	Failed []Failure
}

// Err joins the per-name failures, or returns nil.
func (r *AddResult) Err() error {
	errs := make([]error, len(r.Failed))
	for i, f := range r.Failed {
		errs[i] = f.Err
	}
	return errors.Join(errs...)
}

// Add records each name at ^<latest> in the manifest of t without running
// the package manager. A failed lookup is recorded in the result and does
// not stop the other names. The returned error is only for manifest I/O.
func (ins *Installer) Add(t Target, names []string, dev bool) (*AddResult, error) {
	doc, err := manifest.Read(ins.FS, t.Package.ManifestPath)
	if err != nil {
		return nil, err
	}

	res := &AddResult{}
	for i, name := range names {
		ins.step(i+1, len(names), "resolve "+name)
		version, err := ins.Registry.LatestVersion(name)
		if err != nil {
			ins.Log.Printf("  %s: %v", name, err)
			res.Failed = append(res.Failed, Failure{Name: name, Err: err})
			continue
		}
		dep := Dependency{Name: name, Version: "^" + version}
		manifest.SetDependency(doc, dep.Name, dep.Version, dev)
		res.Added = append(res.Added, dep)
	}
	if len(res.Added) == 0 {
		return res, nil
	}
	if err := manifest.Write(ins.FS, t.Package.ManifestPath, manifest.Normalize(doc, schema.Package())); err != nil {
		return res, err
	}
	return res, nil
}

// Remove deletes names from both dependency maps of t and writes the
// manifest when anything changed. It returns the removed names.
func (ins *Installer) Remove(t Target, names []string) ([]string, error) {
	doc, err := manifest.Read(ins.FS, t.Package.ManifestPath)
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, name := range names {
		if manifest.RemoveDependency(doc, name) {
			removed = append(removed, name)
		}
	}
	if len(removed) == 0 {
		return nil, nil
	}
	ins.Log.Printf("remove %s from %s", strings.Join(removed, " "), t.Package.RelPath)
	if err := manifest.Write(ins.FS, t.Package.ManifestPath, doc); err != nil {
		return nil, err
	}
	return removed, nil
}

// Sort rewrites each package manifest in canonical field order and returns
// the packages whose file changed. Manifests are re-read so edits made since
// discovery are kept; files already in order are not touched.
func (ins *Installer) Sort(pkgs []*workspace.Package) ([]*workspace.Package, error) {
	return ins.sortAll(pkgs, true)
}

// Unsorted returns the packages whose manifest is not in canonical order,
// without writing anything.
func (ins *Installer) Unsorted(pkgs []*workspace.Package) ([]*workspace.Package, error) {
	return ins.sortAll(pkgs, false)
}

func (ins *Installer) sortAll(pkgs []*workspace.Package, write bool) ([]*workspace.Package, error) {
	var changed []*workspace.Package
	for i, p := range pkgs {
		ins.step(i+1, len(pkgs), "sort "+p.RelPath)
		diff, err := ins.sortOne(p, write)
		if err != nil {
			return changed, err
		}
		if diff {
			changed = append(changed, p)
		}
	}
	return changed, nil
}

func (ins *Installer) sortOne(p *workspace.Package, write bool) (bool, error) {
	raw, err := afero.ReadFile(ins.FS, p.ManifestPath)
	if err != nil {
		// reuse Read for the not-found mapping
		_, err = manifest.Read(ins.FS, p.ManifestPath)
		return false, err
	}
	doc, err := manifest.Parse(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", p.ManifestPath, err)
	}
	sorted := manifest.Normalize(doc, schema.Package())
	out, err := manifest.Marshal(sorted)
	if err != nil {
		return false, err
	}
	if bytes.Equal(raw, out) {
		return false, nil
	}
	if write {
		if err := manifest.Write(ins.FS, p.ManifestPath, sorted); err != nil {
			return false, err
		}
	}
	return true, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func (ins *Installer) step(n, total int, label string) {
	ins.Log.Printf("[%d/%d] %s", n, total, label)
	if ins.OnStep != nil {
		ins.OnStep(n, total, label)
	}
}

func label(p *workspace.Package) string {
	if p.Name != "" {
		return p.Name
	}
	return p.RelPath
}
