package installer

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/kb-labs/pkgops/internal/logger"
	"github.com/kb-labs/pkgops/internal/manifest"
	"github.com/kb-labs/pkgops/internal/pm"
	"github.com/kb-labs/pkgops/internal/registry"
	"github.com/kb-labs/pkgops/internal/workspace"
)

// ── fakes ────────────────────────────────────────────────────────────────────

// fakeRunner records command lines instead of running them.
type fakeRunner struct {
	failErr error
	failOn  string // substring of the command line that fails
	calls   []string
}

func (f *fakeRunner) Run(cmd pm.Command) error {
	line := cmd.String()
	f.calls = append(f.calls, line)
	if f.failOn != "" && strings.Contains(line, f.failOn) {
		return f.failErr
	}
	return nil
}

// fakeRegistry serves versions from a map; missing names are not found.
type fakeRegistry struct {
	versions map[string]string
	asked    []string
}

func (f *fakeRegistry) LatestVersion(name string) (string, error) {
	f.asked = append(f.asked, name)
	v, ok := f.versions[name]
	if !ok {
		return "", fmt.Errorf("%s: %w", name, registry.ErrNotFound)
	}
	return v, nil
}

const root = "/proj"

func write(t *testing.T, fsys afero.Fs, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fsys, path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func read(t *testing.T, fsys afero.Fs, rel string) string {
	t.Helper()
	data, err := afero.ReadFile(fsys, filepath.Join(root, rel))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// singleProject returns a non-workspace project with one dependency of each kind.
func singleProject(t *testing.T) (afero.Fs, *workspace.Topology) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	write(t, fsys, "package.json", `{"name":"app","version":"1.0.0","dependencies":{"react":"^18.0.0"},"devDependencies":{"jest":"^29.0.0"}}`)
	topo, err := workspace.Discover(fsys, root, workspace.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return fsys, topo
}

// monorepo returns a workspace root with members a and b.
func monorepo(t *testing.T) (afero.Fs, *workspace.Topology) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	write(t, fsys, "package.json", `{"name":"root","version":"1.0.0","workspaces":["packages/*"]}`)
	write(t, fsys, "packages/a/package.json", `{"name":"@s/a","version":"1.0.0","dependencies":{"lodash":"^4.0.0"}}`)
	write(t, fsys, "packages/b/package.json", `{"scripts":{"test":"x","prepare":"y"},"version":"1.0.0","name":"@s/b"}`)
	topo, err := workspace.Discover(fsys, root, workspace.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return fsys, topo
}

func newInstaller(fsys afero.Fs, tool pm.Tool) (*Installer, *fakeRunner) {
	r := &fakeRunner{}
	return &Installer{
		FS:        fsys,
		Runner:    r,
		Selection: pm.Selection{Tool: tool},
		Log:       logger.NewDiscard(),
	}, r
}

func mustTarget(t *testing.T, topo *workspace.Topology, member string) Target {
	t.Helper()
	tgt, err := TargetFor(topo, member)
	if err != nil {
		t.Fatalf("TargetFor(%q) error = %v", member, err)
	}
	return tgt
}

// ── TargetFor ────────────────────────────────────────────────────────────────

// TestTargetForSingle verifies a plain project targets its root as Single.
func TestTargetForSingle(t *testing.T) {
	_, topo := singleProject(t)

	tgt := mustTarget(t, topo, "")
	if tgt.Role != pm.Single || tgt.WorkDir != root || tgt.Package.Name != "app" {
		t.Errorf("TargetFor = %+v", tgt)
	}
	if _, err := TargetFor(topo, "a"); err == nil {
		t.Error("member target on a plain project should fail")
	}
}

// TestTargetForWorkspace verifies root and member targets in a workspace.
func TestTargetForWorkspace(t *testing.T) {
	_, topo := monorepo(t)

	if got := mustTarget(t, topo, "").Role; got != pm.Root {
		t.Errorf("root Role = %q, want root", got)
	}

	byName := mustTarget(t, topo, "@s/b")
	byDir := mustTarget(t, topo, "b")
	if byName.Package != byDir.Package {
		t.Error("member by name and by dir differ")
	}
	if byName.Role != pm.Member || byName.WorkDir != root {
		t.Errorf("member target = %+v", byName)
	}

	if _, err := TargetFor(topo, "zzz"); err == nil {
		t.Error("unknown member should fail")
	}
}

// TestTargetsFor verifies member lists resolve in discovery order without duplicates.
func TestTargetsFor(t *testing.T) {
	_, topo := monorepo(t)

	tests := []struct {
		name    string
		members []string
		all     bool
		want    []string
	}{
		{name: "none is root", want: []string{"root"}},
		{name: "reverse order", members: []string{"@s/b", "a"}, want: []string{"@s/a", "@s/b"}},
		{name: "duplicates", members: []string{"b", "@s/b"}, want: []string{"@s/b"}},
		{name: "all", all: true, want: []string{"@s/a", "@s/b"}},
		{name: "all with names", members: []string{"b"}, all: true, want: []string{"@s/a", "@s/b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, err := TargetsFor(topo, tt.members, tt.all)
			if err != nil {
				t.Fatalf("TargetsFor() error = %v", err)
			}
			var got []string
			for _, tgt := range ts {
				got = append(got, tgt.Package.Name)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("targets = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := TargetsFor(topo, []string{"a", "zzz"}, false); err == nil {
		t.Error("unknown member should fail")
	}
	_, single := singleProject(t)
	if _, err := TargetsFor(single, nil, true); err == nil {
		t.Error("all on a plain project should fail")
	}
}

// ── Install ──────────────────────────────────────────────────────────────────

// TestInstallOneCommandPerName verifies commands run in order, one per name.
func TestInstallOneCommandPerName(t *testing.T) {
	fsys, topo := monorepo(t)
	ins, r := newInstaller(fsys, pm.Yarn)

	if err := ins.Install(mustTarget(t, topo, "@s/a"), []string{"zod", "axios"}, true); err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	want := []string{
		"yarn workspace @s/a add zod --dev",
		"yarn workspace @s/a add axios --dev",
	}
	if !reflect.DeepEqual(r.calls, want) {
		t.Errorf("calls = %v, want %v", r.calls, want)
	}
}

// TestInstallFailFast verifies that a failing command aborts the remaining names.
func TestInstallFailFast(t *testing.T) {
	fsys, topo := singleProject(t)
	ins, r := newInstaller(fsys, pm.NPM)
	r.failOn = "bad"
	r.failErr = &pm.CommandError{Command: "npm install bad", ExitCode: 1}

	err := ins.Install(mustTarget(t, topo, ""), []string{"ok", "bad", "never"}, false)
	if !errors.Is(err, pm.ErrCommandFailed) {
		t.Fatalf("Install() error = %v, want ErrCommandFailed", err)
	}
	if len(r.calls) != 2 {
		t.Errorf("calls = %v, want 2 calls", r.calls)
	}
}

// TestInstallLerna verifies lerna is used for member installs when active.
func TestInstallLerna(t *testing.T) {
	fsys, topo := monorepo(t)
	ins, r := newInstaller(fsys, pm.NPM)
	ins.Selection.Lerna = true

	if err := ins.Install(mustTarget(t, topo, "@s/a"), []string{"zod"}, false); err != nil {
		t.Fatal(err)
	}
	if r.calls[0] != "lerna add zod --scope=@s/a" {
		t.Errorf("call = %q", r.calls[0])
	}
}

// TestInstallInvokesOnStep verifies that OnStep fires once per name.
func TestInstallInvokesOnStep(t *testing.T) {
	fsys, topo := singleProject(t)
	ins, _ := newInstaller(fsys, pm.NPM)

	var labels []string
	ins.OnStep = func(step, total int, label string) {
		labels = append(labels, fmt.Sprintf("%d/%d %s", step, total, label))
	}
	if err := ins.Install(mustTarget(t, topo, ""), []string{"a", "b"}, false); err != nil {
		t.Fatal(err)
	}

	want := []string{"1/2 npm install a", "2/2 npm install b"}
	if !reflect.DeepEqual(labels, want) {
		t.Errorf("steps = %v, want %v", labels, want)
	}
}

// TestInstallEachMember verifies members are visited in discovery order,
// every name per member before the next member.
func TestInstallEachMember(t *testing.T) {
	fsys, topo := monorepo(t)
	ins, r := newInstaller(fsys, pm.Yarn)

	ts, err := TargetsFor(topo, []string{"@s/b", "@s/a"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := ins.InstallEach(ts, []string{"zod", "axios"}, false); err != nil {
		t.Fatalf("InstallEach() error = %v", err)
	}

	want := []string{
		"yarn workspace @s/a add zod",
		"yarn workspace @s/a add axios",
		"yarn workspace @s/b add zod",
		"yarn workspace @s/b add axios",
	}
	if !reflect.DeepEqual(r.calls, want) {
		t.Errorf("calls = %v, want %v", r.calls, want)
	}
}

// TestInstallEachFailFast verifies a failure in one member skips the later members.
func TestInstallEachFailFast(t *testing.T) {
	fsys, topo := monorepo(t)
	ins, r := newInstaller(fsys, pm.Yarn)
	r.failOn = "@s/a add axios"
	r.failErr = &pm.CommandError{Command: "yarn workspace @s/a add axios", ExitCode: 1}

	ts, err := TargetsFor(topo, nil, true)
	if err != nil {
		t.Fatal(err)
	}
	err = ins.InstallEach(ts, []string{"zod", "axios"}, false)
	if !errors.Is(err, pm.ErrCommandFailed) {
		t.Fatalf("InstallEach() error = %v, want ErrCommandFailed", err)
	}
	if !strings.HasPrefix(err.Error(), "@s/a: ") {
		t.Errorf("error = %q, want member prefix", err)
	}
	if len(r.calls) != 2 {
		t.Errorf("calls = %v, want 2 calls", r.calls)
	}
}

// ── Uninstall ────────────────────────────────────────────────────────────────

// TestUninstallAbsentIssuesNothing verifies no command runs for names the manifest lacks.
func TestUninstallAbsentIssuesNothing(t *testing.T) {
	fsys, topo := singleProject(t)
	ins, r := newInstaller(fsys, pm.NPM)

	removed, err := ins.Uninstall(mustTarget(t, topo, ""), []string{"left-pad"})
	if err != nil {
		t.Fatalf("Uninstall() error = %v", err)
	}
	if len(removed) != 0 || len(r.calls) != 0 {
		t.Errorf("removed = %v, calls = %v; want none", removed, r.calls)
	}
}

// TestUninstallFiltersNames verifies only listed dependencies are removed, from both maps.
func TestUninstallFiltersNames(t *testing.T) {
	fsys, topo := singleProject(t)
	ins, r := newInstaller(fsys, pm.Yarn)

	removed, err := ins.Uninstall(mustTarget(t, topo, ""), []string{"left-pad", "jest", "react"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(removed, []string{"jest", "react"}) {
		t.Errorf("removed = %v", removed)
	}
	want := []string{"yarn remove jest", "yarn remove react"}
	if !reflect.DeepEqual(r.calls, want) {
		t.Errorf("calls = %v, want %v", r.calls, want)
	}
}

// TestUninstallRereadsManifest verifies the filter sees edits made after discovery.
func TestUninstallRereadsManifest(t *testing.T) {
	fsys, topo := singleProject(t)
	write(t, fsys, "package.json", `{"name":"app","dependencies":{"left-pad":"^1.0.0"}}`)
	ins, r := newInstaller(fsys, pm.NPM)

	if _, err := ins.Uninstall(mustTarget(t, topo, ""), []string{"left-pad"}); err != nil {
		t.Fatal(err)
	}
	if len(r.calls) != 1 || r.calls[0] != "npm uninstall left-pad" {
		t.Errorf("calls = %v", r.calls)
	}
}

// TestUninstallMember verifies the member's own manifest decides the filter.
func TestUninstallMember(t *testing.T) {
	fsys, topo := monorepo(t)
	ins, r := newInstaller(fsys, pm.NPM)

	if _, err := ins.Uninstall(mustTarget(t, topo, "@s/a"), []string{"lodash"}); err != nil {
		t.Fatal(err)
	}
	if _, err := ins.Uninstall(mustTarget(t, topo, "@s/b"), []string{"lodash"}); err != nil {
		t.Fatal(err)
	}
	want := []string{"npm uninstall lodash -w @s/a"}
	if !reflect.DeepEqual(r.calls, want) {
		t.Errorf("calls = %v, want %v", r.calls, want)
	}
}

// TestUninstallFailFast verifies a failed removal stops the batch and reports what was removed.
func TestUninstallFailFast(t *testing.T) {
	fsys, topo := singleProject(t)
	ins, r := newInstaller(fsys, pm.NPM)
	r.failOn = "react"
	r.failErr = &pm.CommandError{Command: "npm uninstall react", ExitCode: 1}

	removed, err := ins.Uninstall(mustTarget(t, topo, ""), []string{"jest", "react"})
	if !errors.Is(err, pm.ErrCommandFailed) {
		t.Fatalf("error = %v", err)
	}
	if !reflect.DeepEqual(removed, []string{"jest"}) {
		t.Errorf("removed = %v, want [jest]", removed)
	}
}

// TestUninstallEachMember verifies each member filters names against its own manifest.
func TestUninstallEachMember(t *testing.T) {
	fsys, topo := monorepo(t)
	write(t, fsys, "packages/b/package.json", `{"name":"@s/b","version":"1.0.0","devDependencies":{"zod":"^3.0.0"}}`)
	ins, r := newInstaller(fsys, pm.NPM)

	ts, err := TargetsFor(topo, nil, true)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ins.UninstallEach(ts, []string{"zod", "lodash"})
	if err != nil {
		t.Fatalf("UninstallEach() error = %v", err)
	}

	want := []string{"npm uninstall lodash -w @s/a", "npm uninstall zod -w @s/b"}
	if !reflect.DeepEqual(r.calls, want) {
		t.Errorf("calls = %v, want %v", r.calls, want)
	}
	if len(got) != 2 || got[0].Package.Name != "@s/a" || !reflect.DeepEqual(got[1].Names, []string{"zod"}) {
		t.Errorf("removals = %+v", got)
	}
}

// TestUninstallMissingManifest verifies ErrConfigNotFound surfaces.
func TestUninstallMissingManifest(t *testing.T) {
	fsys, topo := singleProject(t)
	if err := fsys.Remove(filepath.Join(root, "package.json")); err != nil {
		t.Fatal(err)
	}
	ins, _ := newInstaller(fsys, pm.NPM)

	_, err := ins.Uninstall(mustTarget(t, topo, ""), []string{"react"})
	if !errors.Is(err, manifest.ErrConfigNotFound) {
		t.Errorf("error = %v, want ErrConfigNotFound", err)
	}
}

// ── Add / Remove ─────────────────────────────────────────────────────────────

// TestAddToleratesLookupFailure verifies a failed lookup does not stop the other names.
func TestAddToleratesLookupFailure(t *testing.T) {
	fsys, topo := singleProject(t)
	ins, r := newInstaller(fsys, pm.NPM)
	reg := &fakeRegistry{versions: map[string]string{"zod": "3.23.8", "axios": "1.7.2"}}
	ins.Registry = reg

	res, err := ins.Add(mustTarget(t, topo, ""), []string{"zod", "ghost", "axios"}, false)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if len(r.calls) != 0 {
		t.Errorf("Add ran commands: %v", r.calls)
	}
	if !reflect.DeepEqual(reg.asked, []string{"zod", "ghost", "axios"}) {
		t.Errorf("asked = %v", reg.asked)
	}
	if len(res.Added) != 2 || len(res.Failed) != 1 || res.Failed[0].Name != "ghost" {
		t.Fatalf("result = %+v", res)
	}
	if !errors.Is(res.Err(), registry.ErrNotFound) {
		t.Errorf("Err() = %v, want ErrNotFound", res.Err())
	}

	doc, err := manifest.Read(fsys, filepath.Join(root, "package.json"))
	if err != nil {
		t.Fatal(err)
	}
	deps, _ := doc.Object("dependencies")
	if got := deps.Keys(); !reflect.DeepEqual(got, []string{"react", "zod", "axios"}) {
		t.Errorf("dependencies = %v", got)
	}
	if v, _ := deps.String("zod"); v != "^3.23.8" {
		t.Errorf("zod = %q, want ^3.23.8", v)
	}
}

// TestAddDev verifies dev names land in devDependencies.
func TestAddDev(t *testing.T) {
	fsys, topo := monorepo(t)
	ins, _ := newInstaller(fsys, pm.NPM)
	ins.Registry = &fakeRegistry{versions: map[string]string{"vitest": "1.6.0"}}

	if _, err := ins.Add(mustTarget(t, topo, "b"), []string{"vitest"}, true); err != nil {
		t.Fatal(err)
	}
	out := read(t, fsys, "packages/b/package.json")
	want := `{
  "name": "@s/b",
  "version": "1.0.0",
  "scripts": {
    "prepare": "y",
    "test": "x"
  },
  "devDependencies": {
    "vitest": "^1.6.0"
  }
}
`
	if out != want {
		t.Errorf("manifest =\n%s\nwant\n%s", out, want)
	}
}

// TestAddAllFailedLeavesManifest verifies the file is untouched when nothing resolved.
func TestAddAllFailedLeavesManifest(t *testing.T) {
	fsys, topo := singleProject(t)
	before := read(t, fsys, "package.json")
	ins, _ := newInstaller(fsys, pm.NPM)
	ins.Registry = &fakeRegistry{}

	res, err := ins.Add(mustTarget(t, topo, ""), []string{"ghost"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Err() == nil {
		t.Error("Err() = nil, want lookup failure")
	}
	if after := read(t, fsys, "package.json"); after != before {
		t.Errorf("manifest changed:\n%s", after)
	}
}

// TestRemoveEditsManifest verifies save-only removal from both maps.
func TestRemoveEditsManifest(t *testing.T) {
	fsys, topo := singleProject(t)
	ins, r := newInstaller(fsys, pm.NPM)

	removed, err := ins.Remove(mustTarget(t, topo, ""), []string{"jest", "left-pad"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(removed, []string{"jest"}) {
		t.Errorf("removed = %v", removed)
	}
	if len(r.calls) != 0 {
		t.Errorf("Remove ran commands: %v", r.calls)
	}
	if strings.Contains(read(t, fsys, "package.json"), "jest") {
		t.Error("jest still in manifest")
	}
}

// ── Sort ─────────────────────────────────────────────────────────────────────

// TestSortRewritesEveryPackage verifies manifests are written in canonical order.
func TestSortRewritesEveryPackage(t *testing.T) {
	fsys, topo := monorepo(t)
	ins, _ := newInstaller(fsys, pm.NPM)

	changed, err := ins.Sort(topo.Packages())
	if err != nil {
		t.Fatalf("Sort() error = %v", err)
	}
	// every fixture is written compact, so every file changes
	if len(changed) != 3 {
		t.Errorf("changed = %d, want 3", len(changed))
	}

	out := read(t, fsys, "packages/b/package.json")
	want := `{
  "name": "@s/b",
  "version": "1.0.0",
  "scripts": {
    "prepare": "y",
    "test": "x"
  }
}
`
	if out != want {
		t.Errorf("manifest =\n%s\nwant\n%s", out, want)
	}
	if !strings.HasSuffix(read(t, fsys, "package.json"), "}\n") {
		t.Error("root manifest missing trailing newline")
	}
}

// TestSortIsIdempotent verifies a second pass changes nothing.
func TestSortIsIdempotent(t *testing.T) {
	fsys, topo := monorepo(t)
	ins, _ := newInstaller(fsys, pm.NPM)

	if _, err := ins.Sort(topo.Packages()); err != nil {
		t.Fatal(err)
	}
	first := read(t, fsys, "packages/b/package.json")
	changed, err := ins.Sort(topo.Packages())
	if err != nil {
		t.Fatal(err)
	}
	if len(changed) != 0 {
		t.Errorf("second sort changed %d files", len(changed))
	}
	if second := read(t, fsys, "packages/b/package.json"); second != first {
		t.Errorf("second sort changed the file:\n%s", second)
	}
}

// TestUnsortedDoesNotWrite verifies the check mode reports without writing.
func TestUnsortedDoesNotWrite(t *testing.T) {
	fsys, topo := monorepo(t)
	write(t, fsys, "packages/a/package.json", "{\n  \"name\": \"@s/a\",\n  \"version\": \"1.0.0\"\n}\n")
	before := read(t, fsys, "packages/b/package.json")
	ins, _ := newInstaller(fsys, pm.NPM)

	unsorted, err := ins.Unsorted(topo.Packages())
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, p := range unsorted {
		got = append(got, p.Name)
	}
	if !reflect.DeepEqual(got, []string{"root", "@s/b"}) {
		t.Errorf("unsorted = %v, want [root @s/b]", got)
	}
	if after := read(t, fsys, "packages/b/package.json"); after != before {
		t.Error("Unsorted wrote the manifest")
	}
}

// TestSortMissingManifest verifies a vanished manifest reports ErrConfigNotFound.
func TestSortMissingManifest(t *testing.T) {
	fsys, topo := monorepo(t)
	if err := fsys.Remove(filepath.Join(root, "packages", "a", "package.json")); err != nil {
		t.Fatal(err)
	}
	ins, _ := newInstaller(fsys, pm.NPM)

	_, err := ins.Sort(topo.Packages())
	if !errors.Is(err, manifest.ErrConfigNotFound) {
		t.Errorf("error = %v, want ErrConfigNotFound", err)
	}
}
