// Package cmd implements the pkgops CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// SetVersionInfo is called from main.go with values injected at build time via -ldflags.
// It must be called before Execute().
func SetVersionInfo(version, commit, date string) {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"pkgops %s (commit %s, built %s)\n", version, commit, date,
	))
	rootCmd.Version = version
}

var rootCmd = &cobra.Command{
	Use:   "pkgops",
	Short: "package.json toolkit for npm and yarn projects",
	Long: `pkgops sorts package.json files into canonical order and manages
dependencies across single packages and npm/yarn/lerna workspaces.

Examples:
  pkgops sort                      pick packages and sort their manifests
  pkgops sort --yes                sort every manifest in the project
  pkgops install zod -D            add a dev dependency to the root package
  pkgops install zod -w api        add a dependency to a workspace member
  pkgops uninstall lodash -w api   remove a dependency from a member
  pkgops info                      show workspace layout and package manager`,
	SilenceUsage: true,
}

var (
	flagCwd    string
	flagConfig string
)

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagCwd, "cwd", "C", "", "project directory (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: ~/.pkgops/config.yaml)")
}
