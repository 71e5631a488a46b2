package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// buildDirName is the cmake build directory inside each checkout. Keeping
// it out of the source tree proper lets a reconfigure drop generated files
// without touching the clone.
const buildDirName = "vsbuild"

func (j *job) cleanSource(ctx context.Context, flags CleanFlags) error {
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
		return j.fs.removeTree(filepath.Join(source, buildDirName), "build directory")
	}
	return nil
}

func (j *job) fetchSource(ctx context.Context) error {
	source, err := j.sourcePath()
	if err != nil {
		return err
	}
	url := j.gitURL()

	if IsRepo(source) {
		if j.settings.NoPull {
			j.log.Debug("skipping pull", "reason", "no_pull is set")
			return nil
		}
		if j.settings.RevertTS {
			if err := j.git.RevertTS(ctx, source); err != nil {
				return err
			}
		}
		j.log.Info("pulling", "branch", j.settings.MOBranch)
		if err := j.git.Pull(ctx, source, j.settings.MOBranch); err != nil {
			return err
		}
		return j.updateSubmodules(ctx, source)
	}

	branch := j.resolveBranch(ctx, url)
	j.log.Info("cloning", "url", url, "branch", branch)
	if err := j.git.Clone(ctx, url, source, branch, j.settings.GitShallow); err != nil {
		return err
	}
	if err := j.setupRemotes(ctx, source, j.task.Name); err != nil {
		return err
	}
	return j.updateSubmodules(ctx, source)
}

func (j *job) buildSource(ctx context.Context) error {
	source, err := j.sourcePath()
	if err != nil {
		return err
	}

	// Repositories without cmake build files only exist to be fetched. A
	// dry run skips the check, fetch created nothing to look at.
	if !j.fs.dry {
		if _, err := os.Stat(filepath.Join(source, "CMakeLists.txt")); err != nil {
			j.log.Debug("no CMakeLists.txt, skipping build", "path", source)
			return nil
		}
	}

	install, err := requirePath(j.cfg.Paths.Install, "paths/install")
	if err != nil {
		return err
	}

	buildDir := filepath.Join(source, buildDirName)
	bt := j.settings.Configuration
	defs := map[string]string{
		"CMAKE_INSTALL_PREFIX": install,
		"CMAKE_PREFIX_PATH":    j.cmakePrefixPath(install),
	}

	j.log.Info("configuring", "configuration", bt.String())
	if err := j.cmake.Configure(ctx, source, buildDir, defs); err != nil {
		return err
	}

	j.log.Info("building", "configuration", bt.String())
	if err := j.cmake.Build(ctx, buildDir, bt); err != nil {
		return err
	}

	j.log.Info("installing", "prefix", install)
	return j.cmake.Install(ctx, buildDir, bt, install)
}

// resolveBranch picks the branch to clone. The configured branch wins; when
// a fallback is set the remote is probed first so a branch that only exists
// upstream degrades to the fallback instead of failing the clone.
func (j *job) resolveBranch(ctx context.Context, url string) string {
	branch := j.settings.MOBranch
	fallback := j.settings.MOFallback
	if fallback == "" || fallback == branch {
		return branch
	}

	if j.git.RemoteBranchExists(ctx, url, branch) {
		return branch
	}
	if j.git.RemoteBranchExists(ctx, url, fallback) {
		j.log.Info("branch not on remote, using fallback",
			"branch", branch, "fallback", fallback)
		return fallback
	}

	// Neither could be verified. Let the clone try the configured branch
	// and produce the real error.
	return branch
}

// setupRemotes adds the developer's fork as an extra remote after a fresh
// clone. The clone remote stays origin; task/remote_org turns this on.
func (j *job) setupRemotes(ctx context.Context, dir, repo string) error {
	org := j.settings.RemoteOrg
	if org == "" {
		return nil
	}

	url := j.settings.GitURLPrefix + org + "/" + repo + ".git"
	j.log.Debug("adding remote", "name", org, "url", url)
	if err := j.git.AddRemote(ctx, dir, org, url); err != nil {
		return err
	}

	if j.settings.RemoteNoPushUpstream {
		if err := j.git.SetPushURL(ctx, dir, "origin", "nopushurl"); err != nil {
			return err
		}
	}
	if j.settings.RemotePushDefaultOrigin {
		if err := j.git.SetConfig(ctx, dir, "remote.pushdefault", org); err != nil {
			return err
		}
	}
	return nil
}

func (j *job) updateSubmodules(ctx context.Context, dir string) error {
	if _, err := os.Stat(filepath.Join(dir, ".gitmodules")); err != nil {
		return nil
	}
	j.log.Debug("updating submodules")
	return j.git.SubmoduleUpdate(ctx, dir)
}

// cmakePrefixPath lists where find_package looks: the Qt kit, the shared
// cmake machinery checkout and everything earlier tasks installed. QtBin
// sits inside the kit, so its parent is the kit root.
func (j *job) cmakePrefixPath(install string) string {
	var paths []string
	if j.cfg.Paths.QtBin != "" {
		paths = append(paths, filepath.Dir(j.cfg.Paths.QtBin))
	}
	if j.cfg.Paths.Build != "" {
		common := filepath.Join(j.cfg.Paths.Build, "cmake_common")
		if _, err := os.Stat(common); err == nil {
			paths = append(paths, common)
		}
	}
	paths = append(paths, filepath.Join(install, "lib", "cmake"))
	return strings.Join(paths, string(os.PathListSeparator))
}
