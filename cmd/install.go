package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kb-labs/pkgops/internal/installer"
	"github.com/kb-labs/pkgops/internal/logger"
	"github.com/kb-labs/pkgops/internal/pm"
)

var installCmd = &cobra.Command{
	Use:   "install NAME...",
	Short: "Add dependencies to a package",
	Long: `Installs each named dependency with the project's package manager,
one command per name. Commands run from the project root; --workspace
targets a member of an npm/yarn workspace and may be repeated, and --all
targets every member. Members are visited in discovery order and the first
failure stops the run.

With --save-only the package manager is not run: the latest version of each
name is looked up in the registry and written to the manifest as ^<version>.`,
	Aliases: []string{"add", "i"},
	Args:    cobra.MinimumNArgs(1),
	RunE:    runInstall,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall NAME...",
	Short: "Remove dependencies from a package",
	Long: `Removes each named dependency that the target manifest lists in
dependencies or devDependencies. Names the manifest does not list are
skipped. --workspace and --all select members as for install.

With --save-only the names are deleted from the manifest without running
the package manager.`,
	Aliases: []string{"remove", "rm"},
	Args:    cobra.MinimumNArgs(1),
	RunE:    runUninstall,
}

var (
	flagDev       bool
	flagWorkspace []string
	flagAll       bool
	flagSaveOnly  bool
	flagQuiet     bool
)

func init() {
	rootCmd.AddCommand(installCmd, uninstallCmd)

	installCmd.Flags().BoolVarP(&flagDev, "dev", "D", false, "save as a devDependency")
	for _, c := range []*cobra.Command{installCmd, uninstallCmd} {
		c.Flags().StringSliceVarP(&flagWorkspace, "workspace", "w", nil, "workspace member (package or directory name), repeatable")
		c.Flags().BoolVarP(&flagAll, "all", "A", false, "target every workspace member")
		c.Flags().BoolVar(&flagSaveOnly, "save-only", false, "edit package.json without running the package manager")
		c.Flags().BoolVarP(&flagQuiet, "quiet", "q", false, "show a spinner instead of package manager output")
	}
}

// prepareDeps opens the project and the run log, and resolves the targets.
func prepareDeps() (*project, *logger.Logger, []installer.Target, error) {
	p, err := openProject()
	if err != nil {
		return nil, nil, nil, err
	}
	targets, err := installer.TargetsFor(p.topo, flagWorkspace, flagAll)
	if err != nil {
		return nil, nil, nil, err
	}
	log, err := p.openLog()
	if err != nil {
		return nil, nil, nil, err
	}
	for _, t := range targets {
		log.Printf("%s in %s using %s", t.Package.RelPath, p.dir, p.sel)
	}
	return p, log, targets, nil
}

// execInstaller returns an installer that runs the package manager, and a
// func to call when it is done. With --quiet the output is folded into a
// spinner and kept in the run log.
func (p *project) execInstaller(out io.Writer, log *logger.Logger) (*installer.Installer, func(error)) {
	if !flagQuiet {
		return p.installer(log, &pm.ExecRunner{Tee: log.FileOnly()}), func(error) {}
	}
	file := log.FileOnly()
	sp := newSpinner(out)
	sp.setLabel(p.sel.String())
	ins := p.installer(file, &pm.ExecRunner{OnLine: func(line string) {
		file.Printf("  %s", line)
		sp.setDetail(line)
	}})
	ins.OnStep = sp.onStep
	sp.start()
	return ins, sp.stop
}

func runInstall(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	p, log, targets, err := prepareDeps()
	if err != nil {
		return err
	}
	defer log.Close()

	if !flagSaveOnly {
		ins, done := p.execInstaller(out, log)
		err := ins.InstallEach(targets, args, flagDev)
		done(err)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n  %s %s\n", okStyle.Render("✓"), countf("%d packages installed", len(args)*len(targets)))
		return nil
	}

	field := "dependencies"
	if flagDev {
		field = "devDependencies"
	}
	ins := p.installer(log.FileOnly(), nil)
	for _, t := range targets {
		sp := newSpinner(out)
		ins.OnStep = sp.onStep
		sp.start()
		res, err := ins.Add(t, args, flagDev)
		sp.stop(err)
		if err != nil {
			return err
		}

		fmt.Fprintln(out)
		for _, d := range res.Added {
			fmt.Fprintf(out, "  %s %s %s\n", okStyle.Render("+"), d.Name, valStyle.Render(d.Version))
		}
		for _, f := range res.Failed {
			fmt.Fprintf(out, "  %s %s %s\n", badStyle.Render("✗"), f.Name, dimStyle.Render(f.Err.Error()))
		}
		if len(res.Added) > 0 {
			fmt.Fprintf(out, "\n  %s\n", dimStyle.Render(fmt.Sprintf("saved to %s %s", t.Package.RelPath, field)))
		}
		if len(res.Failed) > 0 {
			return fmt.Errorf("%s could not be resolved: %w", countf("%d of %d", len(res.Failed), len(args)), res.Err())
		}
	}
	return nil
}

func runUninstall(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	p, log, targets, err := prepareDeps()
	if err != nil {
		return err
	}
	defer log.Close()

	var removals []installer.Removal
	if flagSaveOnly {
		ins := p.installer(log, nil)
		for _, t := range targets {
			var removed []string
			removed, err = ins.Remove(t, args)
			removals = append(removals, installer.Removal{Package: t.Package, Names: removed})
			if err != nil {
				break
			}
		}
	} else {
		ins, done := p.execInstaller(out, log)
		removals, err = ins.UninstallEach(targets, args)
		done(err)
	}

	for i, r := range removals {
		if len(targets) > 1 {
			fmt.Fprintf(out, "  %s\n", labelStyle.Render(r.Package.RelPath))
		}
		for _, name := range r.Names {
			fmt.Fprintf(out, "  %s %s\n", okStyle.Render("-"), name)
		}
		if err != nil && i == len(removals)-1 {
			break
		}
		if skipped := missing(args, r.Names); len(skipped) > 0 {
			fmt.Fprintf(out, "  %s\n", dimStyle.Render("not a dependency of "+r.Package.RelPath+": "+strings.Join(skipped, " ")))
		}
	}
	return err
}

// missing returns the names of want that are not in got, in order.
func missing(want, got []string) []string {
	seen := make(map[string]bool, len(got))
	for _, g := range got {
		seen[g] = true
	}
	var out []string
	for _, w := range want {
		if !seen[w] {
			out = append(out, w)
		}
	}
	return out
}
