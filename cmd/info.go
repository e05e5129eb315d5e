package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kb-labs/pkgops/internal/pm"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show project layout and package manager",
	Args:  cobra.NoArgs,
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	p, err := openProject()
	if err != nil {
		return err
	}
	topo := p.topo

	layout := "single package"
	if topo.IsWorkspace() {
		layout = "workspace"
		if topo.Lerna {
			layout = "lerna workspace"
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %s %s %s\n", labelStyle.Render("Root:     "), valStyle.Render(topo.Root.Name), dimStyle.Render(p.dir))
	fmt.Fprintf(out, "  %s %s\n", labelStyle.Render("Layout:   "), layout)
	fmt.Fprintf(out, "  %s %s %s\n", labelStyle.Render("Manager:  "), p.sel, availability(p.sel))
	fmt.Fprintf(out, "  %s %s\n", labelStyle.Render("Manifest: "), topo.Root.RelPath)

	if !topo.IsWorkspace() {
		fmt.Fprintln(out)
		return nil
	}

	globs := strings.Join(topo.Globs, " ")
	if globs == "" {
		globs = dimStyle.Render("(none)")
	}
	fmt.Fprintf(out, "  %s %s\n\n", labelStyle.Render("Globs:    "), globs)

	fmt.Fprintf(out, "  %s\n", labelStyle.Render(countf("Members (%d):", len(topo.Members))))
	for _, m := range topo.Members {
		fmt.Fprintf(out, "    %s %-30s  %s\n", okStyle.Render("●"), m.Name, dimStyle.Render(m.RelDir))
	}
	fmt.Fprintln(out)
	return nil
}

// availability reports whether the selected binaries are on PATH.
func availability(sel pm.Selection) string {
	if missing := sel.Missing(); len(missing) > 0 {
		return badStyle.Render("(not found: " + strings.Join(missing, ", ") + ")")
	}
	return okStyle.Render("✓")
}
