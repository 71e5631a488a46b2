package tools

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
)

// installerRepo is the task's repository; the task itself keeps the short
// name installer.
const installerRepo = "modorganizer-Installer"

func (j *job) installerSourcePath() (string, error) {
	build, err := requirePath(j.cfg.Paths.Build, "paths/build")
	if err != nil {
		return "", err
	}
	return filepath.Join(build, installerRepo), nil
}

func (j *job) cleanInstaller(ctx context.Context, flags CleanFlags) error {
	if flags.Has(CleanReextract) {
		source, err := j.installerSourcePath()
		if err != nil {
			return err
		}
		if err := j.checkSafeToDelete(ctx, source); err != nil {
			return err
		}
		if err := j.fs.removeTree(source, "source directory"); err != nil {
			return err
		}
	}

	if flags.Has(CleanRebuild) {
		install, err := requirePath(j.cfg.Paths.InstallInstaller, "paths/install_installer")
		if err != nil {
			return err
		}
		if err := j.fs.removeTree(install, "installer output directory"); err != nil {
			return err
		}
	}
	return nil
}

func (j *job) fetchInstaller(ctx context.Context) error {
	source, err := j.installerSourcePath()
	if err != nil {
		return err
	}
	url := j.settings.GitURLPrefix + j.settings.MOOrg + "/" + installerRepo + ".git"

	if IsRepo(source) {
		if j.settings.NoPull {
			j.log.Debug("skipping pull", "reason", "no_pull is set")
			return nil
		}
		j.log.Info("pulling", "branch", j.settings.MOBranch)
		return j.git.Pull(ctx, source, j.settings.MOBranch)
	}

	branch := j.resolveBranch(ctx, url)
	j.log.Info("cloning", "url", url, "branch", branch)
	if err := j.git.Clone(ctx, url, source, branch, j.settings.GitShallow); err != nil {
		return err
	}
	return j.setupRemotes(ctx, source, installerRepo)
}

func (j *job) buildInstaller(ctx context.Context) error {
	if runtime.GOOS != "windows" {
		j.log.Warn("the installer only builds on windows, skipping")
		return nil
	}

	source, err := j.installerSourcePath()
	if err != nil {
		return err
	}
	install, err := requirePath(j.cfg.Paths.InstallInstaller, "paths/install_installer")
	if err != nil {
		return err
	}

	iss := filepath.Join(source, "dist", "MO2-Installer.iss")
	if !j.fs.dry {
		if _, err := os.Stat(iss); err != nil {
			j.log.Warn("installer script not found, run fetch first", "path", iss)
			return nil
		}
	}

	if err := j.fs.ensureDir(install); err != nil {
		return err
	}
	j.log.Info("building installer", "script", iss, "output", install)
	return j.iscc.Compile(ctx, iss, install, nil)
}
