package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/kb-labs/pkgops/internal/installer"
	"github.com/kb-labs/pkgops/internal/schema"
	"github.com/kb-labs/pkgops/internal/workspace"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check package manifests against the package.json schema",
	Long: `Validates every package manifest of the project, or only the member
named by --workspace, against the built-in package.json schema and lists
each violation with its JSON pointer.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

var flagValidateWorkspace string

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVarP(&flagValidateWorkspace, "workspace", "w", "", "validate only this workspace member")
}

var errInvalid = errors.New("invalid manifests found")

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	p, err := openProject()
	if err != nil {
		return err
	}

	pkgs := p.topo.Packages()
	if flagValidateWorkspace != "" {
		target, err := installer.TargetFor(p.topo, flagValidateWorkspace)
		if err != nil {
			return err
		}
		pkgs = []*workspace.Package{target.Package}
	}

	root := schema.Package()
	invalid := 0
	for _, pkg := range pkgs {
		data, err := afero.ReadFile(p.fs, pkg.ManifestPath)
		if err != nil {
			return err
		}
		res, err := schema.Validate(data, root)
		if err != nil {
			return fmt.Errorf("%s: %w", pkg.RelPath, err)
		}
		if res.Valid {
			fmt.Fprintf(out, "  %s %s\n", okStyle.Render("✓"), pkg.RelPath)
			continue
		}
		invalid++
		fmt.Fprintf(out, "  %s %s\n", badStyle.Render("✗"), pkg.RelPath)
		for _, is := range res.Issues {
			path := is.Path
			if path == "" {
				path = "/"
			}
			fmt.Fprintf(out, "      %s  %s\n", valStyle.Render(path), is.Message)
		}
	}

	fmt.Fprintf(out, "\n  %s\n", countf("%d of %d manifests valid", len(pkgs)-invalid, len(pkgs)))
	if invalid > 0 {
		return fmt.Errorf("%w: %d", errInvalid, invalid)
	}
	return nil
}
