package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kb-labs/pkgops/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and write pkgops settings",
	Long: `Settings live in ~/.pkgops/config.yaml (or the file given by --config).
Every key can also be set through a PKGOPS_<KEY> environment variable,
which wins over the file.

Keys:
  package_manager  npm or yarn, used when the project has no lockfile
  registry         registry base URL for install --save-only
  config_file      manifest file name (default package.json)
  log_dir          directory holding run logs
  timeout          registry request timeout, e.g. 10s`,
}

var configGetCmd = &cobra.Command{
	Use:   "get [KEY]",
	Short: "Print one setting, or all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Persist a setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configGetCmd, configSetCmd)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		v, err := cfg.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, v)
		return nil
	}

	for _, key := range config.Keys {
		v, _ := cfg.Get(key)
		fmt.Fprintf(out, "%-16s %s\n", key, v)
	}
	fmt.Fprintf(out, "\n%s\n", dimStyle.Render("file: "+cfg.Path))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if err := config.Set(flagConfig, args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "  %s %s = %s\n", okStyle.Render("✓"), args[0], args[1])
	return nil
}
