package pm

import (
	"errors"
	"fmt"
	"strings"
)

// Intent is the dependency operation to render.
type Intent string

const (
	Install   Intent = "install"
	Uninstall Intent = "uninstall"
)

// Target is where in the project the operation applies.
type Target string

const (
	Single Target = "single" // project without workspaces
	Root   Target = "root"   // workspace root
	Member Target = "member" // one workspace member
)

// Command is an external command line. Dir is the working directory; an
// empty Dir means the current one.
type Command struct {
	Name string
	Args []string
	Dir  string
}

// String returns the command line as typed in a shell.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

const lerna = "lerna"

type rowKey struct {
	tool   string
	target Target
	intent Intent
}

type row struct {
	args func(pkg, member string) []string
	dev  string
}

// commands holds every supported combination. The dev token is appended
// last. Lerna has no uninstall row; Render falls back to the tool's row.
var commands = map[rowKey]row{
	{"npm", Single, Install}:   {func(p, _ string) []string { return []string{"install", p} }, "--save-dev"},
	{"npm", Single, Uninstall}: {func(p, _ string) []string { return []string{"uninstall", p} }, "--save-dev"},
	{"npm", Root, Install}:     {func(p, _ string) []string { return []string{"install", p} }, "--save-dev"},
	{"npm", Root, Uninstall}:   {func(p, _ string) []string { return []string{"uninstall", p} }, "--save-dev"},
	{"npm", Member, Install}:   {func(p, m string) []string { return []string{"install", p, "-w", m} }, "--save-dev"},
	{"npm", Member, Uninstall}: {func(p, m string) []string { return []string{"uninstall", p, "-w", m} }, "--save-dev"},

	{"yarn", Single, Install}:   {func(p, _ string) []string { return []string{"add", p} }, "--dev"},
	{"yarn", Single, Uninstall}: {func(p, _ string) []string { return []string{"remove", p} }, "--dev"},
	{"yarn", Root, Install}:     {func(p, _ string) []string { return []string{"add", p, "-W"} }, "--dev"},
	{"yarn", Root, Uninstall}:   {func(p, _ string) []string { return []string{"remove", p, "-W"} }, "--dev"},
	{"yarn", Member, Install}:   {func(p, m string) []string { return []string{"workspace", m, "add", p} }, "--dev"},
	{"yarn", Member, Uninstall}: {func(p, m string) []string { return []string{"workspace", m, "remove", p} }, "--dev"},

	{lerna, Member, Install}: {func(p, m string) []string { return []string{"add", p, "--scope=" + m} }, "--dev"},
}

// Render builds the command for intent on target. member names the
// workspace member and is required for Member. When sel.Lerna is set,
// lerna's row wins for members wherever one exists.
func Render(intent Intent, target Target, sel Selection, pkg, member string, dev bool) (Command, error) {
	if pkg == "" {
		return Command{}, errors.New("render command: package name is empty")
	}
	if target == Member && member == "" {
		return Command{}, fmt.Errorf("render %s command: member name is required", intent)
	}

	tool := string(sel.Tool)
	if tool == "" {
		tool = string(DefaultTool)
	}
	candidates := []string{tool}
	if sel.Lerna && target == Member {
		candidates = []string{lerna, tool}
	}

	for _, name := range candidates {
		r, ok := commands[rowKey{name, target, intent}]
		if !ok {
			continue
		}
		args := r.args(pkg, member)
		if dev {
			args = append(args, r.dev)
		}
		return Command{Name: name, Args: args}, nil
	}
	return Command{}, fmt.Errorf("render command: no %s command for %s on %s target", intent, tool, target)
}
