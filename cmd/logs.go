package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kb-labs/pkgops/internal/logger"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the latest run log",
	Long: `Show the log of the most recent pkgops run.
Use --follow to stream new lines in real time.`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

var (
	flagFollow bool
	flagPath   bool
)

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().BoolVarP(&flagFollow, "follow", "f", false, "follow log output (like tail -f)")
	logsCmd.Flags().BoolVar(&flagPath, "path", false, "print the log file path only")
}

func runLogs(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logPath := logger.LatestLogPath(cfg.LogDir)
	if logPath == "" {
		return fmt.Errorf("no run logs found in %s", logger.LogsDir(cfg.LogDir))
	}
	if flagPath {
		fmt.Fprintln(out, logPath)
		return nil
	}

	f, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	// Print existing content.
	if _, err := io.Copy(out, f); err != nil {
		return err
	}

	if !flagFollow {
		return nil
	}

	// Follow mode: poll for new content until interrupted.
	ctx := cmd.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(300 * time.Millisecond):
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			fmt.Fprintln(out, scanner.Text())
		}
	}
}
