package tools

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/mo2build/mob/internal/config"
	"github.com/mo2build/mob/internal/errors"
	"github.com/mo2build/mob/internal/logging"
	"github.com/mo2build/mob/internal/task"
)

// testRegistry registers one task of every kind.
func testRegistry(t *testing.T) *task.Registry {
	t.Helper()

	r := task.NewRegistry()
	descriptors := []*task.Task{
		{Name: "modorganizer-archive", Group: 2, Builtin: true, Kind: task.KindSource},
		{Name: "usvfs", Group: 1, Kind: task.KindUsvfs},
		{Name: "stylesheets", Group: 1, Kind: task.KindStylesheets},
		{Name: "licenses", Group: 1, Kind: task.KindLicenses},
		{Name: "explorerpp", Group: 1, Kind: task.KindExplorerPP},
		{Name: "translations", Group: 3, Kind: task.KindTranslations},
		{Name: "installer", Group: 4, Kind: task.KindInstaller},
	}
	for _, d := range descriptors {
		if err := r.Register(d); err != nil {
			t.Fatalf("Register(%s): %v", d.Name, err)
		}
	}
	return r
}

// resolveConfig resolves the defaults plus the given --set style overrides
// against the registry.
func resolveConfig(t *testing.T, r *task.Registry, specs ...string) *config.Resolved {
	t.Helper()

	store := config.NewStore()
	store.Add(config.DefaultsLayer())
	if len(specs) > 0 {
		layer := config.Layer{Source: "test overrides", Priority: config.PrioritySet}
		for _, spec := range specs {
			entry, err := config.ParseSet(spec)
			if err != nil {
				t.Fatalf("ParseSet(%q): %v", spec, err)
			}
			layer.Entries = append(layer.Entries, entry)
		}
		store.Add(layer)
	}

	resolved, _, err := config.Resolve(store, r)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return resolved
}

func runTask(t *testing.T, ctx context.Context, r *task.Registry, cfg *config.Resolved,
	name string, opts BuildOptions, flags CleanFlags, mock *mockRunner) error {
	t.Helper()

	tk, ok := r.Get(name)
	if !ok {
		t.Fatalf("task %s not registered", name)
	}
	e := NewExecutorWithRunner(logging.Nop(), opts, flags, mock)
	return e.Execute(ctx, tk, cfg)
}

func TestExecutorValidation(t *testing.T) {
	r := testRegistry(t)
	cfg := resolveConfig(t, r)
	e := NewExecutor(logging.Nop(), DefaultBuildOptions(), 0)

	t.Run("nil task", func(t *testing.T) {
		var valErr *errors.ValidationError
		if err := e.Execute(context.Background(), nil, cfg); !errors.As(err, &valErr) {
			t.Errorf("Execute(nil task) error = %v, want ValidationError", err)
		}
	})

	t.Run("nil config", func(t *testing.T) {
		tk, _ := r.Get("licenses")
		var valErr *errors.ValidationError
		if err := e.Execute(context.Background(), tk, nil); !errors.As(err, &valErr) {
			t.Errorf("Execute(nil config) error = %v, want ValidationError", err)
		}
	})

	t.Run("unresolved task", func(t *testing.T) {
		ghost := &task.Task{Name: "ghost", Group: 1, Kind: task.KindSource}
		var valErr *errors.ValidationError
		if err := e.Execute(context.Background(), ghost, cfg); !errors.As(err, &valErr) {
			t.Errorf("Execute(unresolved task) error = %v, want ValidationError", err)
		}
	})
}

func TestExecutorFetchClonesMissingSource(t *testing.T) {
	r := testRegistry(t)
	prefix := t.TempDir()
	cfg := resolveConfig(t, r, "paths/prefix="+prefix)
	mock := newMockRunner()

	err := runTask(t, context.Background(), r, cfg, "modorganizer-archive",
		BuildOptions{Fetch: true}, 0, mock)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	calls := mock.getCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d: %v", len(calls), calls)
	}
	want := []string{
		"clone", "--depth", "1", "--branch", "master",
		"https://github.com/ModOrganizer2/modorganizer-archive.git",
		filepath.Join(prefix, "build", "modorganizer-archive"),
	}
	if !reflect.DeepEqual(calls[0].args, want) {
		t.Errorf("args = %v, want %v", calls[0].args, want)
	}
}

func TestExecutorFetchPullsExistingSource(t *testing.T) {
	r := testRegistry(t)

	setup := func(t *testing.T) (string, *config.Resolved, string) {
		prefix := t.TempDir()
		source := filepath.Join(prefix, "build", "modorganizer-archive")
		if err := os.MkdirAll(filepath.Join(source, ".git"), 0o755); err != nil {
			t.Fatal(err)
		}
		return prefix, resolveConfig(t, r, "paths/prefix="+prefix), source
	}

	t.Run("pulls", func(t *testing.T) {
		_, cfg, source := setup(t)
		mock := newMockRunner()

		err := runTask(t, context.Background(), r, cfg, "modorganizer-archive",
			BuildOptions{Fetch: true}, 0, mock)
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}

		call := mock.lastCall()
		if call.dir != source {
			t.Errorf("dir = %q, want %q", call.dir, source)
		}
		want := []string{"pull", "--recurse-submodules", "--quiet", "origin", "master"}
		if !reflect.DeepEqual(call.args, want) {
			t.Errorf("args = %v, want %v", call.args, want)
		}
	})

	t.Run("no_pull skips", func(t *testing.T) {
		prefix, _, _ := setup(t)
		cfg := resolveConfig(t, r, "paths/prefix="+prefix, "task/no_pull=true")
		mock := newMockRunner()

		err := runTask(t, context.Background(), r, cfg, "modorganizer-archive",
			BuildOptions{Fetch: true}, 0, mock)
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if n := len(mock.getCalls()); n != 0 {
			t.Errorf("expected no calls, got %d", n)
		}
	})

	t.Run("revert_ts before pull", func(t *testing.T) {
		prefix, _, _ := setup(t)
		cfg := resolveConfig(t, r, "paths/prefix="+prefix, "task/revert_ts=true")
		mock := newMockRunner()
		mock.addResponse([]byte(" M organizer_de.ts\n"), nil) // status
		mock.addResponse(nil, nil)                            // checkout
		mock.addResponse(nil, nil)                            // pull

		err := runTask(t, context.Background(), r, cfg, "modorganizer-archive",
			BuildOptions{Fetch: true}, 0, mock)
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}

		calls := mock.getCalls()
		if len(calls) != 3 {
			t.Fatalf("expected 3 calls, got %d", len(calls))
		}
		if calls[0].args[0] != "status" || calls[1].args[0] != "checkout" || calls[2].args[0] != "pull" {
			t.Errorf("unexpected call order: %v", calls)
		}
	})
}

func TestExecutorPhaseGating(t *testing.T) {
	r := testRegistry(t)
	cfg := resolveConfig(t, r, "paths/prefix="+t.TempDir())
	mock := newMockRunner()

	err := runTask(t, context.Background(), r, cfg, "modorganizer-archive",
		BuildOptions{}, 0, mock)
	if err != nil {
		t.Fatalf("Execute() with no phases error = %v", err)
	}
	if n := len(mock.getCalls()); n != 0 {
		t.Errorf("disabled phases still ran %d commands", n)
	}
}

func TestExecutorWrapsPhaseError(t *testing.T) {
	r := testRegistry(t)
	cfg := resolveConfig(t, r, "paths/prefix="+t.TempDir())
	mock := newMockRunner()
	mock.addResponse([]byte("fatal: could not read from remote"), errors.New("exit status 128"))

	err := runTask(t, context.Background(), r, cfg, "modorganizer-archive",
		BuildOptions{Fetch: true}, 0, mock)
	if err == nil {
		t.Fatal("Execute() expected error")
	}

	var execErr *errors.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecutionError, got %T", err)
	}
	if execErr.Task != "modorganizer-archive" {
		t.Errorf("Task = %q, want modorganizer-archive", execErr.Task)
	}
	if execErr.Phase != "fetch" {
		t.Errorf("Phase = %q, want fetch", execErr.Phase)
	}
	if !strings.Contains(execErr.Output, "could not read") {
		t.Errorf("Output = %q, want the captured git output", execErr.Output)
	}
}

func TestExecutorAbort(t *testing.T) {
	r := testRegistry(t)

	t.Run("canceled during a command", func(t *testing.T) {
		cfg := resolveConfig(t, r, "paths/prefix="+t.TempDir())
		mock := newMockRunner()
		mock.addResponse(nil, context.Canceled)

		err := runTask(t, context.Background(), r, cfg, "modorganizer-archive",
			BuildOptions{Fetch: true}, 0, mock)
		if err == nil {
			t.Fatal("Execute() expected error")
		}
		if !errors.IsAbort(err) {
			t.Errorf("IsAbort(%v) = false, want true", err)
		}
	})

	t.Run("canceled before any phase", func(t *testing.T) {
		cfg := resolveConfig(t, r, "paths/prefix="+t.TempDir())
		mock := newMockRunner()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := runTask(t, ctx, r, cfg, "modorganizer-archive",
			BuildOptions{Fetch: true}, 0, mock)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Execute() error = %v, want context.Canceled", err)
		}
		if n := len(mock.getCalls()); n != 0 {
			t.Errorf("canceled run still executed %d commands", n)
		}
	})
}

func TestExecutorDryRun(t *testing.T) {
	r := testRegistry(t)
	prefix := t.TempDir()
	cfg := resolveConfig(t, r, "paths/prefix="+prefix, "global/dry=true")
	tk, _ := r.Get("modorganizer-archive")

	e := NewExecutor(logging.Nop(), DefaultBuildOptions(), 0)
	if err := e.Execute(context.Background(), tk, cfg); err != nil {
		t.Fatalf("Execute() dry run error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(prefix, "build")); err == nil {
		t.Error("dry run created the build directory")
	}
}

func TestExecutorBuildsLicenses(t *testing.T) {
	r := testRegistry(t)
	prefix := t.TempDir()
	licenses := t.TempDir()
	writeTestFile(t, filepath.Join(licenses, "GPL-3.0.txt"), "license text")
	writeTestFile(t, filepath.Join(licenses, "qt", "LGPL.txt"), "qt license")

	cfg := resolveConfig(t, r, "paths/prefix="+prefix, "paths/licenses="+licenses)
	mock := newMockRunner()

	err := runTask(t, context.Background(), r, cfg, "licenses",
		BuildOptions{Build: true}, 0, mock)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	installed := filepath.Join(prefix, "install", "bin", "licenses")
	got, err := os.ReadFile(filepath.Join(installed, "GPL-3.0.txt"))
	if err != nil {
		t.Fatalf("license not installed: %v", err)
	}
	if string(got) != "license text" {
		t.Errorf("installed content = %q", got)
	}
	if _, err := os.Stat(filepath.Join(installed, "qt", "LGPL.txt")); err != nil {
		t.Errorf("nested license not installed: %v", err)
	}
	if n := len(mock.getCalls()); n != 0 {
		t.Errorf("licenses ran %d external commands, want none", n)
	}
}

func TestExecutorStylesheets(t *testing.T) {
	r := testRegistry(t)

	t.Run("clean removes caches and extractions", func(t *testing.T) {
		prefix := t.TempDir()
		cfg := resolveConfig(t, r, "paths/prefix="+prefix)
		cache := filepath.Join(prefix, "downloads", "paper-mono.7z")
		extracted := filepath.Join(prefix, "build", "stylesheets", "paper-mono-latest")
		writeTestFile(t, cache, "archive")
		writeTestFile(t, filepath.Join(extracted, "paper-mono.qss"), "qss")

		err := runTask(t, context.Background(), r, cfg, "stylesheets",
			BuildOptions{Clean: true}, CleanRedownload|CleanReextract, newMockRunner())
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}

		if _, err := os.Stat(cache); err == nil {
			t.Error("cached archive survived the clean")
		}
		if _, err := os.Stat(extracted); err == nil {
			t.Error("extracted directory survived the clean")
		}
	})

	t.Run("build copies extracted themes", func(t *testing.T) {
		prefix := t.TempDir()
		cfg := resolveConfig(t, r, "paths/prefix="+prefix)
		extracted := filepath.Join(prefix, "build", "stylesheets", "paper-mono-latest")
		writeTestFile(t, filepath.Join(extracted, "paper-mono.qss"), "qss")

		err := runTask(t, context.Background(), r, cfg, "stylesheets",
			BuildOptions{Build: true}, 0, newMockRunner())
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}

		installed := filepath.Join(prefix, "install", "bin", "stylesheets", "paper-mono.qss")
		if _, err := os.Stat(installed); err != nil {
			t.Errorf("stylesheet not installed: %v", err)
		}
	})
}

func TestExecutorTranslationsBuild(t *testing.T) {
	r := testRegistry(t)
	prefix := t.TempDir()
	qtDir := t.TempDir()

	project := filepath.Join(prefix, "build", "transifex-translations", "translations", "mod-organizer-2.organizer")
	writeTestFile(t, filepath.Join(project, "de.ts"), "<TS/>")
	writeTestFile(t, filepath.Join(project, "zh_CN.ts"), "<TS/>")
	writeTestFile(t, filepath.Join(qtDir, "qt_de.qm"), "qm")
	writeTestFile(t, filepath.Join(qtDir, "qtbase_zh.qm"), "qm")

	cfg := resolveConfig(t, r, "paths/prefix="+prefix, "paths/qt_translations="+qtDir)
	mock := newMockRunner()

	err := runTask(t, context.Background(), r, cfg, "translations",
		BuildOptions{Build: true}, 0, mock)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	install := filepath.Join(prefix, "install", "bin", "translations")
	calls := mock.getCalls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 lrelease calls, got %d: %v", len(calls), calls)
	}
	want := []string{"-silent", filepath.Join(project, "de.ts"), "-qm", filepath.Join(install, "organizer_de.qm")}
	if !reflect.DeepEqual(calls[0].args, want) {
		t.Errorf("first compile args = %v, want %v", calls[0].args, want)
	}

	// Qt catalogs: the full locale wins, then its language part.
	if _, err := os.Stat(filepath.Join(install, "qt_de.qm")); err != nil {
		t.Error("qt_de.qm not copied")
	}
	if _, err := os.Stat(filepath.Join(install, "qtbase_zh.qm")); err != nil {
		t.Error("qtbase_zh.qm not copied for zh_CN")
	}
	if _, err := os.Stat(filepath.Join(install, "qt_zh_CN.qm")); err == nil {
		t.Error("nonexistent Qt catalog appeared in the install tree")
	}
}

func TestExecutorUsvfsBuild(t *testing.T) {
	r := testRegistry(t)
	prefix := t.TempDir()
	cfg := resolveConfig(t, r, "paths/prefix="+prefix)
	mock := newMockRunner()

	err := runTask(t, context.Background(), r, cfg, "usvfs",
		BuildOptions{Build: true}, 0, mock)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	calls := mock.getCalls()
	if len(calls) != 4 {
		t.Fatalf("expected 4 cmake calls, got %d: %v", len(calls), calls)
	}

	source := filepath.Join(prefix, "build", "usvfs")
	install := filepath.Join(prefix, "install")
	wantConfigure := []string{
		"--preset", "vs2022-windows-x64",
		"-DBUILD_TESTING=OFF", "-DCMAKE_INSTALL_PREFIX=" + install,
	}
	if !reflect.DeepEqual(calls[0].args, wantConfigure) {
		t.Errorf("configure args = %v, want %v", calls[0].args, wantConfigure)
	}
	if calls[0].dir != source {
		t.Errorf("configure dir = %q, want %q", calls[0].dir, source)
	}
	if calls[1].args[1] != "vs2022-windows-x86" {
		t.Errorf("second configure preset = %v", calls[1].args)
	}

	wantBuild := []string{"--build", filepath.Join(source, "vsbuild64"), "--config", "RelWithDebInfo", "--parallel"}
	if !reflect.DeepEqual(calls[2].args, wantBuild) {
		t.Errorf("build args = %v, want %v", calls[2].args, wantBuild)
	}
	if got := calls[3].args[1]; got != filepath.Join(source, "vsbuild32") {
		t.Errorf("second build dir = %q", got)
	}
}

func TestExecutorCleanRefusesDirtyCheckout(t *testing.T) {
	r := testRegistry(t)

	setup := func(t *testing.T) (string, string) {
		prefix := t.TempDir()
		source := filepath.Join(prefix, "build", "modorganizer-archive")
		if err := os.MkdirAll(filepath.Join(source, ".git"), 0o755); err != nil {
			t.Fatal(err)
		}
		return prefix, source
	}

	t.Run("dirty checkout refuses", func(t *testing.T) {
		prefix, source := setup(t)
		cfg := resolveConfig(t, r, "paths/prefix="+prefix)
		mock := newMockRunner()
		mock.addResponse([]byte(" M src/main.cpp\n"), nil)

		err := runTask(t, context.Background(), r, cfg, "modorganizer-archive",
			BuildOptions{Clean: true}, CleanReextract, mock)
		if err == nil {
			t.Fatal("Execute() expected error for dirty checkout")
		}
		if !strings.Contains(err.Error(), "ignore-uncommitted-changes") {
			t.Errorf("error %q does not point at the override flag", err)
		}
		if _, serr := os.Stat(source); serr != nil {
			t.Error("dirty checkout was deleted")
		}
	})

	t.Run("ignore_uncommitted deletes", func(t *testing.T) {
		prefix, source := setup(t)
		cfg := resolveConfig(t, r, "paths/prefix="+prefix, "global/ignore_uncommitted=true")
		mock := newMockRunner()

		err := runTask(t, context.Background(), r, cfg, "modorganizer-archive",
			BuildOptions{Clean: true}, CleanReextract, mock)
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if _, serr := os.Stat(source); serr == nil {
			t.Error("checkout survived the clean")
		}
		if n := len(mock.getCalls()); n != 0 {
			t.Errorf("ignored safety check still ran %d commands", n)
		}
	})
}
