package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/kb-labs/pkgops/internal/config"
	"github.com/kb-labs/pkgops/internal/installer"
	"github.com/kb-labs/pkgops/internal/logger"
	"github.com/kb-labs/pkgops/internal/pm"
	"github.com/kb-labs/pkgops/internal/registry"
	"github.com/kb-labs/pkgops/internal/workspace"
)

// project is the resolved state shared by commands that act on a project.
type project struct {
	cfg  *config.Config
	fs   afero.Fs
	dir  string
	topo *workspace.Topology
	sel  pm.Selection
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func projectDir() (string, error) {
	dir := config.ExpandHome(flagCwd)
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = wd
	}
	return filepath.Abs(dir)
}

// openProject loads config, discovers the workspace at --cwd and resolves
// the package manager.
func openProject() (*project, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	dir, err := projectDir()
	if err != nil {
		return nil, err
	}
	fallback, err := fallbackTool(cfg.PackageManager)
	if err != nil {
		return nil, err
	}

	fsys := afero.NewOsFs()
	topo, err := workspace.Discover(fsys, dir, workspace.Options{ConfigFileName: cfg.ConfigFile})
	if err != nil {
		return nil, err
	}
	return &project{
		cfg:  cfg,
		fs:   fsys,
		dir:  dir,
		topo: topo,
		sel:  pm.Resolve(fsys, dir, fallback),
	}, nil
}

// fallbackTool turns the configured package manager into a Resolve fallback.
func fallbackTool(name string) (func() pm.Tool, error) {
	if name == "" {
		return nil, nil
	}
	tool, err := pm.ParseTool(name)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", config.KeyPackageManager, err)
	}
	return func() pm.Tool { return tool }, nil
}

// openLog creates the run logger under the configured log directory and
// drops old run logs.
func (p *project) openLog() (*logger.Logger, error) {
	log, err := logger.New(p.cfg.LogDir)
	if err != nil {
		return nil, err
	}
	if _, err := logger.Prune(p.cfg.LogDir, logger.KeepRuns); err != nil {
		log.FileOnly().Printf("%v", err)
	}
	return log, nil
}

func (p *project) installer(log *logger.Logger, runner pm.Runner) *installer.Installer {
	return &installer.Installer{
		FS:        p.fs,
		Runner:    runner,
		Registry:  registry.New(p.cfg.Registry, p.cfg.Timeout),
		Selection: p.sel,
		Log:       log,
	}
}
