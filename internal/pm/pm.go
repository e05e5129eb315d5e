// Package pm maps dependency operations onto the command line of the
// package manager that governs a project. Use Resolve to pick the tool,
// Render to build a command and a Runner to execute it.
package pm

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Tool is a package manager.
type Tool string

const (
	NPM  Tool = "npm"
	Yarn Tool = "yarn"
)

// DefaultTool is used when no lockfile is found and no fallback is given.
const DefaultTool = NPM

// Marker files looked up at the project root.
const (
	NpmLockfile  = "package-lock.json"
	YarnLockfile = "yarn.lock"
	LernaFile    = "lerna.json"
)

// ErrUnknownTool is returned by ParseTool for unsupported names.
var ErrUnknownTool = errors.New("unknown package manager")

// Tools lists the supported package managers.
var Tools = []Tool{NPM, Yarn}

// ParseTool converts a name such as "yarn" into a Tool.
func ParseTool(s string) (Tool, error) {
	t := Tool(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Tools {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTool, s)
}

// Available reports whether the tool's binary is on PATH.
func (t Tool) Available() bool {
	_, err := exec.LookPath(string(t))
	return err == nil
}

// Selection is the tool set for one invocation. It is resolved once and
// never re-derived mid-operation.
type Selection struct {
	Tool  Tool
	Lerna bool // lerna.json present: member installs go through lerna
}

func (s Selection) String() string {
	if s.Lerna {
		return string(s.Tool) + "+lerna"
	}
	return string(s.Tool)
}

// Missing returns the binaries of the selection that are not on PATH.
func (s Selection) Missing() []string {
	tool := s.Tool
	if tool == "" {
		tool = DefaultTool
	}
	bins := []string{string(tool)}
	if s.Lerna {
		bins = append(bins, lerna)
	}
	var out []string
	for _, b := range bins {
		if !Tool(b).Available() {
			out = append(out, b)
		}
	}
	return out
}

// Resolve picks the package manager of the project in rootDir:
//
//	package-lock.json → npm
//	yarn.lock         → yarn
//	fallback()        → its result, when fallback is non-nil
//	otherwise         → DefaultTool
//
// Lerna is detected on its own from lerna.json.
func Resolve(fsys afero.Fs, rootDir string, fallback func() Tool) Selection {
	sel := Selection{Lerna: exists(fsys, filepath.Join(rootDir, LernaFile))}
	switch {
	case exists(fsys, filepath.Join(rootDir, NpmLockfile)):
		sel.Tool = NPM
	case exists(fsys, filepath.Join(rootDir, YarnLockfile)):
		sel.Tool = Yarn
	case fallback != nil:
		sel.Tool = fallback()
	}
	if sel.Tool == "" {
		sel.Tool = DefaultTool
	}
	return sel
}

func exists(fsys afero.Fs, path string) bool {
	_, err := fsys.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}
