package tools

import (
	"context"
	"os"
	"path/filepath"
)

// usvfs is built twice, the virtual filesystem hooks into both 32 and 64
// bit processes. The repository ships cmake presets that pin the generator
// and one build directory per architecture.
var usvfsArchs = []struct {
	preset   string
	buildDir string
}{
	{"vs2022-windows-x64", "vsbuild64"},
	{"vs2022-windows-x86", "vsbuild32"},
}

func (j *job) cleanUsvfs(ctx context.Context, flags CleanFlags) error {
	source, err := j.sourcePath()
	if err != nil {
		return err
	}

	if flags.Has(CleanReextract) {
		if err := j.checkSafeToDelete(ctx, source); err != nil {
			return err
		}
		return j.fs.removeTree(source, "source directory")
	}

	if flags.Has(CleanReconfigure) {
		for _, arch := range usvfsArchs {
			if err := j.fs.removeTree(filepath.Join(source, arch.buildDir), "build directory"); err != nil {
				return err
			}
		}
	}

	if flags.Has(CleanRebuild) {
		for _, arch := range usvfsArchs {
			dir := filepath.Join(source, arch.buildDir)
			if _, err := os.Stat(dir); err != nil {
				continue
			}
			if err := j.cmake.CleanTarget(ctx, dir, j.settings.Configuration); err != nil {
				return err
			}
		}
	}
	return nil
}

func (j *job) fetchUsvfs(ctx context.Context) error {
	source, err := j.sourcePath()
	if err != nil {
		return err
	}
	url := j.gitURL()

	// The pinned usvfs release tag doubles as the branch; empty tracks the
	// repository default.
	branch := j.cfg.Versions.Usvfs

	if IsRepo(source) {
		if j.settings.NoPull {
			j.log.Debug("skipping pull", "reason", "no_pull is set")
			return nil
		}
		j.log.Info("pulling", "branch", branch)
		if err := j.git.Pull(ctx, source, branch); err != nil {
			return err
		}
		return j.updateSubmodules(ctx, source)
	}

	j.log.Info("cloning", "url", url, "branch", branch)
	if err := j.git.Clone(ctx, url, source, branch, j.settings.GitShallow); err != nil {
		return err
	}
	if err := j.setupRemotes(ctx, source, j.task.Name); err != nil {
		return err
	}
	return j.updateSubmodules(ctx, source)
}

func (j *job) buildUsvfs(ctx context.Context) error {
	source, err := j.sourcePath()
	if err != nil {
		return err
	}
	install, err := requirePath(j.cfg.Paths.Install, "paths/install")
	if err != nil {
		return err
	}

	defs := map[string]string{
		"CMAKE_INSTALL_PREFIX": install,
		"BUILD_TESTING":        "OFF",
	}

	for _, arch := range usvfsArchs {
		j.log.Info("configuring", "preset", arch.preset)
		if err := j.cmake.ConfigurePreset(ctx, source, arch.preset, defs); err != nil {
			return err
		}
	}

	bt := j.settings.Configuration
	for _, arch := range usvfsArchs {
		j.log.Info("building", "preset", arch.preset, "configuration", bt.String())
		if err := j.cmake.Build(ctx, filepath.Join(source, arch.buildDir), bt); err != nil {
			return err
		}
	}
	return nil
}
