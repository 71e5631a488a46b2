package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/mo2build/mob/internal/errors"
)

// Git wraps the git command line for the repository operations a build
// needs: cloning and updating task sources and inspecting their state.
type Git struct {
	run CommandRunner
	exe string
}

// NewGit creates a git client using exe, or "git" from PATH when empty.
func NewGit(run CommandRunner, exe string) *Git {
	if exe == "" {
		exe = "git"
	}
	return &Git{run: run, exe: exe}
}

// Clone clones url into dir. A shallow clone fetches only the tip of the
// requested branch.
func (g *Git) Clone(ctx context.Context, url, dir, branch string, shallow bool) error {
	args := []string{"clone"}
	if shallow {
		args = append(args, "--depth", "1")
	}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, url, dir)

	out, err := g.run.Run(ctx, "", g.exe, args...)
	if err != nil {
		return errors.NewExecutionError("git clone failed", err).WithOutput(string(out))
	}
	return nil
}

// Pull updates the clone at dir from origin, including submodules.
func (g *Git) Pull(ctx context.Context, dir, branch string) error {
	args := []string{"pull", "--recurse-submodules", "--quiet", "origin"}
	if branch != "" {
		args = append(args, branch)
	}

	out, err := g.run.Run(ctx, dir, g.exe, args...)
	if err != nil {
		return errors.NewExecutionError("git pull failed", err).WithOutput(string(out))
	}
	return nil
}

// SubmoduleUpdate initializes and updates all submodules recursively.
func (g *Git) SubmoduleUpdate(ctx context.Context, dir string) error {
	out, err := g.run.Run(ctx, dir, g.exe, "submodule", "update", "--init", "--recursive")
	if err != nil {
		return errors.NewExecutionError("git submodule update failed", err).WithOutput(string(out))
	}
	return nil
}

// HasUncommittedChanges reports whether the working tree at dir has local
// modifications, staged or not.
func (g *Git) HasUncommittedChanges(ctx context.Context, dir string) (bool, error) {
	out, err := g.run.Run(ctx, dir, g.exe, "status", "--porcelain")
	if err != nil {
		return false, errors.NewExecutionError("git status failed", err).WithOutput(string(out))
	}
	return strings.TrimSpace(string(out)) != "", nil
}

// HasStashedChanges reports whether dir has stash entries.
func (g *Git) HasStashedChanges(ctx context.Context, dir string) (bool, error) {
	out, err := g.run.Run(ctx, dir, g.exe, "stash", "list")
	if err != nil {
		return false, errors.NewExecutionError("git stash list failed", err).WithOutput(string(out))
	}
	return strings.TrimSpace(string(out)) != "", nil
}

// RevertTS restores modified .ts translation sources in dir so a pull does
// not stumble over locally regenerated timestamps. Untracked files stay.
func (g *Git) RevertTS(ctx context.Context, dir string) error {
	out, err := g.run.Run(ctx, dir, g.exe, "status", "--porcelain")
	if err != nil {
		return errors.NewExecutionError("git status failed", err).WithOutput(string(out))
	}

	// Porcelain lines are "XY path". Skip untracked entries, keep
	// modified .ts files.
	var files []string
	for _, line := range strings.Split(string(out), "\n") {
		if len(line) < 4 {
			continue
		}
		status, path := line[:2], strings.TrimSpace(line[3:])
		if strings.Contains(status, "?") || !strings.HasSuffix(path, ".ts") {
			continue
		}
		files = append(files, path)
	}
	if len(files) == 0 {
		return nil
	}

	args := append([]string{"checkout", "--"}, files...)
	out, err = g.run.Run(ctx, dir, g.exe, args...)
	if err != nil {
		return errors.NewExecutionError("git checkout failed", err).WithOutput(string(out))
	}
	return nil
}

// RemoteBranchExists reports whether branch exists on the remote at url
// without cloning. Network failures count as the branch not existing, so a
// configured fallback branch still gets a chance.
func (g *Git) RemoteBranchExists(ctx context.Context, url, branch string) bool {
	out, err := g.run.Run(ctx, "", g.exe, "ls-remote", "--heads", url, "refs/heads/"+branch)
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(out)) != ""
}

// AddRemote registers an extra remote named name in the clone at dir.
func (g *Git) AddRemote(ctx context.Context, dir, name, url string) error {
	out, err := g.run.Run(ctx, dir, g.exe, "remote", "add", name, url)
	if err != nil {
		return errors.NewExecutionError("git remote add failed", err).WithOutput(string(out))
	}
	return nil
}

// SetPushURL changes where pushes to remote go without touching fetches.
func (g *Git) SetPushURL(ctx context.Context, dir, remote, url string) error {
	out, err := g.run.Run(ctx, dir, g.exe, "remote", "set-url", "--push", remote, url)
	if err != nil {
		return errors.NewExecutionError("git remote set-url failed", err).WithOutput(string(out))
	}
	return nil
}

// SetConfig sets a repository-local configuration value in dir.
func (g *Git) SetConfig(ctx context.Context, dir, key, value string) error {
	out, err := g.run.Run(ctx, dir, g.exe, "config", key, value)
	if err != nil {
		return errors.NewExecutionError("git config failed", err).WithOutput(string(out))
	}
	return nil
}

// IsRepo reports whether dir is the root of a git working tree.
func IsRepo(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}
