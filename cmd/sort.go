package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kb-labs/pkgops/internal/wizard"
	"github.com/kb-labs/pkgops/internal/workspace"
)

var sortCmd = &cobra.Command{
	Use:   "sort",
	Short: "Sort package.json files into canonical field order",
	Long: `Rewrites the selected package manifests so that known fields follow
the canonical package.json order. Unknown fields keep their relative order
after the known ones.

Without --yes or --package an interactive picker lists every package of the
project. --check reports unsorted manifests without writing and fails when
any is found.`,
	Args: cobra.NoArgs,
	RunE: runSort,
}

var (
	flagSortYes      bool
	flagSortCheck    bool
	flagSortPackages []string
)

func init() {
	rootCmd.AddCommand(sortCmd)
	sortCmd.Flags().BoolVarP(&flagSortYes, "yes", "y", false, "sort every package without prompting")
	sortCmd.Flags().BoolVar(&flagSortCheck, "check", false, "report unsorted manifests without writing")
	sortCmd.Flags().StringSliceVarP(&flagSortPackages, "package", "p", nil, "package or directory name to sort (repeatable)")
}

var errUnsorted = errors.New("unsorted manifests found")

func runSort(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	p, err := openProject()
	if err != nil {
		return err
	}

	pkgs, err := wizard.Select(p.topo.Packages(), wizard.Options{
		Title: "sort manifests",
		Yes:   flagSortYes || flagSortCheck,
		Names: flagSortPackages,
	})
	if err != nil {
		return err
	}

	log, err := p.openLog()
	if err != nil {
		return err
	}
	defer log.Close()

	// sort never runs the package manager
	ins := p.installer(log.FileOnly(), nil)

	if flagSortCheck {
		unsorted, err := ins.Unsorted(pkgs)
		if err != nil {
			return err
		}
		for _, pkg := range unsorted {
			fmt.Fprintf(out, "  %s %s\n", badStyle.Render("✗"), pkg.RelPath)
		}
		if len(unsorted) > 0 {
			return fmt.Errorf("%w: %d of %d", errUnsorted, len(unsorted), len(pkgs))
		}
		fmt.Fprintf(out, "  %s %s\n", okStyle.Render("✓"), countf("%d manifests sorted", len(pkgs)))
		return nil
	}

	sp := newSpinner(out)
	ins.OnStep = sp.onStep
	sp.start()
	changed, err := ins.Sort(pkgs)
	sp.stop(err)
	if err != nil {
		return fmt.Errorf("sort failed: %w", err)
	}

	printSorted(cmd, pkgs, changed)
	return nil
}

func printSorted(cmd *cobra.Command, all, changed []*workspace.Package) {
	out := cmd.OutOrStdout()
	touched := make(map[*workspace.Package]bool, len(changed))
	for _, pkg := range changed {
		touched[pkg] = true
	}
	fmt.Fprintln(out)
	for _, pkg := range all {
		if touched[pkg] {
			fmt.Fprintf(out, "  %s %s\n", okStyle.Render("●"), pkg.RelPath)
		} else {
			fmt.Fprintf(out, "  %s %s\n", dimStyle.Render("○"), dimStyle.Render(pkg.RelPath+" (unchanged)"))
		}
	}
	fmt.Fprintf(out, "\n  %s\n", countf("%d of %d manifests rewritten", len(changed), len(all)))
}
