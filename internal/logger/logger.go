// Package logger writes run logs. Each line goes to the console as is and
// to a per-run file under <dir>/logs with a time prefix.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	logsSubdir  = "logs"
	filePrefix  = "run-"
	fileSuffix  = ".log"
	stampLayout = "20060102-150405.000"
	lineLayout  = "15:04:05.000"
)

// KeepRuns is the number of run logs Prune leaves in place by default.
const KeepRuns = 20

// Logger writes to the console and a run log file. Loggers derived with
// FileOnly share the file and its lock.
type Logger struct {
	mu      *sync.Mutex
	console io.Writer // nil: file only
	file    *os.File
	owner   bool
}

// LogsDir returns the directory holding run logs under dir.
func LogsDir(dir string) string {
	return filepath.Join(dir, logsSubdir)
}

// New creates a logger that writes to stderr and to <dir>/logs/run-<ts>.log.
func New(dir string) (*Logger, error) {
	logsDir := LogsDir(dir)
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}

	now := time.Now()
	logPath := filepath.Join(logsDir, filePrefix+now.Format(stampLayout)+fileSuffix)
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	l := &Logger{mu: new(sync.Mutex), console: os.Stderr, file: f, owner: true}
	fmt.Fprintf(f, "# pkgops run %s %s\n", now.Format(time.RFC3339), strings.Join(os.Args[1:], " "))
	return l, nil
}

// NewDiscard returns a logger that drops everything. Tests use it.
func NewDiscard() *Logger {
	return &Logger{mu: new(sync.Mutex)}
}

// NewWriter returns a logger that writes plain lines to w and has no file.
func NewWriter(w io.Writer) *Logger {
	return &Logger{mu: new(sync.Mutex), console: w}
}

// FileOnly returns a logger that writes to l's log file without echoing to
// the console. Use it while a spinner owns the terminal. Closing it is a no-op.
func (l *Logger) FileOnly() *Logger {
	return &Logger{mu: l.mu, file: l.file}
}

// LogPath returns the path of the current log file, or "" when there is none.
func (l *Logger) LogPath() string {
	if l.file == nil {
		return ""
	}
	return l.file.Name()
}

// Write implements io.Writer. Raw output such as package manager lines is
// copied unchanged to the console and the file.
func (l *Logger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.console != nil {
		if _, err := l.console.Write(p); err != nil {
			return 0, err
		}
	}
	if l.file != nil {
		if _, err := l.file.Write(p); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Printf writes a formatted line.
func (l *Logger) Printf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.console != nil {
		fmt.Fprintln(l.console, msg)
	}
	if l.file != nil {
		fmt.Fprintf(l.file, "%s %s\n", time.Now().Format(lineLayout), msg)
	}
}

// Close closes the log file of a logger returned by New.
func (l *Logger) Close() error {
	if !l.owner || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// runLogs returns the run log paths under dir, oldest first.
func runLogs(dir string) []string {
	logsDir := LogsDir(dir)
	entries, err := os.ReadDir(logsDir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		out = append(out, filepath.Join(logsDir, name))
	}
	// run-<ts> names sort chronologically
	sort.Strings(out)
	return out
}

// LatestLogPath returns the path to the most recent run log under dir.
// Returns "" if no logs exist.
func LatestLogPath(dir string) string {
	logs := runLogs(dir)
	if len(logs) == 0 {
		return ""
	}
	return logs[len(logs)-1]
}

// Prune deletes all but the newest keep run logs under dir and returns how
// many were removed.
func Prune(dir string, keep int) (int, error) {
	logs := runLogs(dir)
	if keep < 0 {
		keep = 0
	}
	if len(logs) <= keep {
		return 0, nil
	}
	removed := 0
	for _, path := range logs[:len(logs)-keep] {
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("prune logs: %w", err)
		}
		removed++
	}
	return removed, nil
}
