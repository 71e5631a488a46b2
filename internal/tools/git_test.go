package tools

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/mo2build/mob/internal/errors"
)

func TestGitClone(t *testing.T) {
	tests := []struct {
		name     string
		branch   string
		shallow  bool
		wantArgs []string
	}{
		{
			name:     "default branch",
			wantArgs: []string{"clone", "https://example.test/org/repo.git", "/dst"},
		},
		{
			name:     "named branch",
			branch:   "master",
			wantArgs: []string{"clone", "--branch", "master", "https://example.test/org/repo.git", "/dst"},
		},
		{
			name:     "shallow",
			branch:   "dev",
			shallow:  true,
			wantArgs: []string{"clone", "--depth", "1", "--branch", "dev", "https://example.test/org/repo.git", "/dst"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockRunner()
			g := NewGit(mock, "")

			err := g.Clone(context.Background(), "https://example.test/org/repo.git", "/dst", tt.branch, tt.shallow)
			if err != nil {
				t.Fatalf("Clone() error = %v", err)
			}

			call := mock.lastCall()
			if call.name != "git" {
				t.Errorf("command = %q, want git", call.name)
			}
			if !reflect.DeepEqual(call.args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", call.args, tt.wantArgs)
			}
		})
	}
}

func TestGitCloneError(t *testing.T) {
	mock := newMockRunner()
	mock.addResponse([]byte("fatal: repository not found"), errors.New("exit status 128"))

	g := NewGit(mock, "")
	err := g.Clone(context.Background(), "https://example.test/org/repo.git", "/dst", "", false)
	if err == nil {
		t.Fatal("Clone() expected error")
	}

	var execErr *errors.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecutionError, got %T", err)
	}
	if !strings.Contains(execErr.Output, "repository not found") {
		t.Errorf("Output = %q, want captured git output", execErr.Output)
	}
}

func TestGitPull(t *testing.T) {
	t.Run("with branch", func(t *testing.T) {
		mock := newMockRunner()
		g := NewGit(mock, "")

		if err := g.Pull(context.Background(), "/repo", "master"); err != nil {
			t.Fatalf("Pull() error = %v", err)
		}

		call := mock.lastCall()
		if call.dir != "/repo" {
			t.Errorf("dir = %q, want /repo", call.dir)
		}
		want := []string{"pull", "--recurse-submodules", "--quiet", "origin", "master"}
		if !reflect.DeepEqual(call.args, want) {
			t.Errorf("args = %v, want %v", call.args, want)
		}
	})

	t.Run("without branch", func(t *testing.T) {
		mock := newMockRunner()
		g := NewGit(mock, "")

		if err := g.Pull(context.Background(), "/repo", ""); err != nil {
			t.Fatalf("Pull() error = %v", err)
		}

		want := []string{"pull", "--recurse-submodules", "--quiet", "origin"}
		if got := mock.lastCall().args; !reflect.DeepEqual(got, want) {
			t.Errorf("args = %v, want %v", got, want)
		}
	})
}

func TestGitSubmoduleUpdate(t *testing.T) {
	mock := newMockRunner()
	g := NewGit(mock, "")

	if err := g.SubmoduleUpdate(context.Background(), "/repo"); err != nil {
		t.Fatalf("SubmoduleUpdate() error = %v", err)
	}

	want := []string{"submodule", "update", "--init", "--recursive"}
	if got := mock.lastCall().args; !reflect.DeepEqual(got, want) {
		t.Errorf("args = %v, want %v", got, want)
	}
}

func TestGitHasUncommittedChanges(t *testing.T) {
	tests := []struct {
		name       string
		output     string
		err        error
		wantResult bool
		wantErr    bool
	}{
		{name: "clean repo", output: "", wantResult: false},
		{name: "modified file", output: " M file.txt\n", wantResult: true},
		{name: "untracked file", output: "?? newfile.txt\n", wantResult: true},
		{name: "staged file", output: "A  staged.txt\n", wantResult: true},
		{name: "status error", err: errors.New("exit status 128"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockRunner()
			mock.addResponse([]byte(tt.output), tt.err)

			g := NewGit(mock, "")
			result, err := g.HasUncommittedChanges(context.Background(), "/repo")

			if (err != nil) != tt.wantErr {
				t.Fatalf("HasUncommittedChanges() error = %v, wantErr %v", err, tt.wantErr)
			}
			if result != tt.wantResult {
				t.Errorf("HasUncommittedChanges() = %v, want %v", result, tt.wantResult)
			}

			call := mock.lastCall()
			if call.args[0] != "status" || call.args[1] != "--porcelain" {
				t.Errorf("unexpected command: %v %v", call.name, call.args)
			}
		})
	}
}

func TestGitHasStashedChanges(t *testing.T) {
	t.Run("stash entries", func(t *testing.T) {
		mock := newMockRunner()
		mock.addResponse([]byte("stash@{0}: WIP on master\n"), nil)

		g := NewGit(mock, "")
		got, err := g.HasStashedChanges(context.Background(), "/repo")
		if err != nil {
			t.Fatalf("HasStashedChanges() error = %v", err)
		}
		if !got {
			t.Error("HasStashedChanges() = false, want true")
		}
	})

	t.Run("empty stash", func(t *testing.T) {
		mock := newMockRunner()
		mock.addResponse([]byte(""), nil)

		g := NewGit(mock, "")
		got, err := g.HasStashedChanges(context.Background(), "/repo")
		if err != nil {
			t.Fatalf("HasStashedChanges() error = %v", err)
		}
		if got {
			t.Error("HasStashedChanges() = true, want false")
		}
	})
}

func TestGitRevertTS(t *testing.T) {
	t.Run("reverts modified catalogs only", func(t *testing.T) {
		mock := newMockRunner()
		mock.addResponse([]byte(" M src/organizer_de.ts\n M README.md\n?? new_file.ts\n"), nil)

		g := NewGit(mock, "")
		if err := g.RevertTS(context.Background(), "/repo"); err != nil {
			t.Fatalf("RevertTS() error = %v", err)
		}

		calls := mock.getCalls()
		if len(calls) != 2 {
			t.Fatalf("expected 2 calls, got %d", len(calls))
		}
		want := []string{"checkout", "--", "src/organizer_de.ts"}
		if !reflect.DeepEqual(calls[1].args, want) {
			t.Errorf("checkout args = %v, want %v", calls[1].args, want)
		}
	})

	t.Run("nothing to revert", func(t *testing.T) {
		mock := newMockRunner()
		mock.addResponse([]byte(" M README.md\n"), nil)

		g := NewGit(mock, "")
		if err := g.RevertTS(context.Background(), "/repo"); err != nil {
			t.Fatalf("RevertTS() error = %v", err)
		}
		if n := len(mock.getCalls()); n != 1 {
			t.Errorf("expected only the status call, got %d calls", n)
		}
	})

	t.Run("status failure", func(t *testing.T) {
		mock := newMockRunner()
		mock.addResponse(nil, errors.New("exit status 128"))

		g := NewGit(mock, "")
		if err := g.RevertTS(context.Background(), "/repo"); err == nil {
			t.Error("RevertTS() expected error")
		}
	})
}

func TestGitRemoteBranchExists(t *testing.T) {
	tests := []struct {
		name   string
		output string
		err    error
		want   bool
	}{
		{name: "branch exists", output: "d6b8a9b\trefs/heads/master\n", want: true},
		{name: "branch missing", output: "", want: false},
		{name: "network failure", err: errors.New("exit status 128"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockRunner()
			mock.addResponse([]byte(tt.output), tt.err)

			g := NewGit(mock, "")
			got := g.RemoteBranchExists(context.Background(), "https://example.test/org/repo.git", "master")
			if got != tt.want {
				t.Errorf("RemoteBranchExists() = %v, want %v", got, tt.want)
			}

			want := []string{"ls-remote", "--heads", "https://example.test/org/repo.git", "refs/heads/master"}
			if got := mock.lastCall().args; !reflect.DeepEqual(got, want) {
				t.Errorf("args = %v, want %v", got, want)
			}
		})
	}
}

func TestGitRemoteSetup(t *testing.T) {
	mock := newMockRunner()
	g := NewGit(mock, "")
	ctx := context.Background()

	if err := g.AddRemote(ctx, "/repo", "myfork", "https://example.test/myfork/repo.git"); err != nil {
		t.Fatalf("AddRemote() error = %v", err)
	}
	if err := g.SetPushURL(ctx, "/repo", "origin", "nopushurl"); err != nil {
		t.Fatalf("SetPushURL() error = %v", err)
	}
	if err := g.SetConfig(ctx, "/repo", "remote.pushdefault", "myfork"); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}

	calls := mock.getCalls()
	wantCalls := [][]string{
		{"remote", "add", "myfork", "https://example.test/myfork/repo.git"},
		{"remote", "set-url", "--push", "origin", "nopushurl"},
		{"config", "remote.pushdefault", "myfork"},
	}
	if len(calls) != len(wantCalls) {
		t.Fatalf("expected %d calls, got %d", len(wantCalls), len(calls))
	}
	for i, want := range wantCalls {
		if !reflect.DeepEqual(calls[i].args, want) {
			t.Errorf("call %d args = %v, want %v", i, calls[i].args, want)
		}
	}
}

func TestIsRepo(t *testing.T) {
	dir := t.TempDir()
	if IsRepo(dir) {
		t.Error("IsRepo() = true for a directory without .git")
	}

	if err := os.Mkdir(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	if !IsRepo(dir) {
		t.Error("IsRepo() = false for a directory with .git")
	}
}
