package task

import (
	"reflect"
	"testing"

	"github.com/mo2build/mob/internal/config"
)

// The registry is the task universe scope resolution works against.
var _ config.TaskUniverse = (*Registry)(nil)

func TestRegistryRegister(t *testing.T) {
	t.Run("lookup by canonical and alternate", func(t *testing.T) {
		r := NewRegistry()
		err := r.Register(&Task{Name: "modorganizer-uibase", Alternates: []string{"uibase"}, Group: 2, Builtin: true})
		if err != nil {
			t.Fatalf("Register failed: %v", err)
		}

		for _, name := range []string{"modorganizer-uibase", "uibase"} {
			canonical, ok := r.Canonical(name)
			if !ok || canonical != "modorganizer-uibase" {
				t.Errorf("Canonical(%q) = %q, %v", name, canonical, ok)
			}
		}
		if _, ok := r.Canonical("archive"); ok {
			t.Error("unregistered names should not resolve")
		}

		desc, ok := r.Get("uibase")
		if !ok || desc.Name != "modorganizer-uibase" {
			t.Errorf("Get(uibase) = %v, %v", desc, ok)
		}
	})

	t.Run("rejects duplicate canonical names", func(t *testing.T) {
		r := NewRegistry()
		if err := r.Register(&Task{Name: "usvfs", Group: 1}); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		if err := r.Register(&Task{Name: "usvfs", Group: 2}); err == nil {
			t.Error("duplicate canonical name should fail")
		}
	})

	t.Run("rejects an alternate shadowing a task", func(t *testing.T) {
		r := NewRegistry()
		if err := r.Register(&Task{Name: "usvfs", Group: 1}); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		err := r.Register(&Task{Name: "other", Alternates: []string{"usvfs"}, Group: 1})
		if err == nil {
			t.Error("alternate colliding with a canonical name should fail")
		}
	})

	t.Run("rejects duplicate alternates across tasks", func(t *testing.T) {
		r := NewRegistry()
		if err := r.Register(&Task{Name: "a", Alternates: []string{"short"}, Group: 1}); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		if err := r.Register(&Task{Name: "b", Alternates: []string{"short"}, Group: 1}); err == nil {
			t.Error("shared alternate should fail")
		}
	})

	t.Run("rejects bad descriptors", func(t *testing.T) {
		r := NewRegistry()
		if err := r.Register(&Task{Name: "", Group: 1}); err == nil {
			t.Error("empty name should fail")
		}
		if err := r.Register(&Task{Name: "x", Group: 0}); err == nil {
			t.Error("zero group should fail")
		}
	})

	t.Run("failed registration leaves no trace", func(t *testing.T) {
		r := NewRegistry()
		if err := r.Register(&Task{Name: "usvfs", Group: 1}); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		if err := r.Register(&Task{Name: "other", Alternates: []string{"usvfs"}, Group: 1}); err == nil {
			t.Fatal("expected a collision")
		}
		if _, ok := r.Canonical("other"); ok {
			t.Error("the rejected task must not be resolvable")
		}
		if r.Len() != 1 {
			t.Errorf("Len() = %d, want 1", r.Len())
		}
	})
}

func TestRegistryAliases(t *testing.T) {
	t.Run("registered aliases resolve", func(t *testing.T) {
		r := NewRegistry()
		if err := r.RegisterAlias("mine", []string{"usvfs", "uibase"}); err != nil {
			t.Fatalf("RegisterAlias failed: %v", err)
		}

		members, ok := r.Alias("mine")
		if !ok || !reflect.DeepEqual(members, []string{"usvfs", "uibase"}) {
			t.Errorf("Alias(mine) = %v, %v", members, ok)
		}
		if _, ok := r.Alias("other"); ok {
			t.Error("unknown aliases should not resolve")
		}
	})

	t.Run("super cannot be redefined", func(t *testing.T) {
		r := NewRegistry()
		if err := r.RegisterAlias(AliasAllTasks, []string{"usvfs"}); err == nil {
			t.Error("redefining super should fail")
		}
	})

	t.Run("empty alias name is rejected", func(t *testing.T) {
		r := NewRegistry()
		if err := r.RegisterAlias("", []string{"usvfs"}); err == nil {
			t.Error("empty alias name should fail")
		}
	})

	t.Run("member list is copied", func(t *testing.T) {
		r := NewRegistry()
		members := []string{"usvfs"}
		if err := r.RegisterAlias("mine", members); err != nil {
			t.Fatalf("RegisterAlias failed: %v", err)
		}
		members[0] = "mutated"

		got, _ := r.Alias("mine")
		if got[0] != "usvfs" {
			t.Error("alias members should be copied at registration")
		}
	})

	t.Run("super expands to the builtins", func(t *testing.T) {
		r := NewRegistry()
		mustAdd := func(task Task) {
			t.Helper()
			if err := r.Register(&task); err != nil {
				t.Fatalf("Register failed: %v", err)
			}
		}
		mustAdd(Task{Name: "usvfs", Group: 1})
		mustAdd(Task{Name: "cmake_common", Group: 1, Builtin: true})
		mustAdd(Task{Name: "modorganizer-uibase", Group: 2, Builtin: true})

		members, ok := r.Alias(AliasAllTasks)
		if !ok {
			t.Fatal("super should always resolve")
		}
		want := []string{"cmake_common", "modorganizer-uibase"}
		if !reflect.DeepEqual(members, want) {
			t.Errorf("Alias(super) = %v, want %v", members, want)
		}
	})
}

func TestRegistryRegisterExtra(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&Task{Name: "usvfs", Alternates: []string{"vfs"}, Group: 1}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.RegisterAlias("mine", []string{"usvfs"}); err != nil {
		t.Fatalf("RegisterAlias failed: %v", err)
	}

	if err := r.RegisterExtra("my-plugin"); err != nil {
		t.Fatalf("RegisterExtra failed: %v", err)
	}
	extra, ok := r.Get("my-plugin")
	if !ok {
		t.Fatal("extra task should be registered")
	}
	if extra.Group != pluginGroup || extra.Kind != KindSource || extra.Builtin {
		t.Errorf("extra task = %+v, want plugin group source task", extra)
	}

	// Known names, alternates, aliases and super are all left alone.
	before := r.Len()
	for _, name := range []string{"usvfs", "vfs", "mine", AliasAllTasks, "my-plugin"} {
		if err := r.RegisterExtra(name); err != nil {
			t.Errorf("RegisterExtra(%q) failed: %v", name, err)
		}
	}
	if r.Len() != before {
		t.Errorf("Len() = %d, want %d", r.Len(), before)
	}
}

func TestRegistryMatchableNames(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&Task{Name: "modorganizer-uibase", Alternates: []string{"uibase"}, Group: 2}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(&Task{Name: "usvfs", Group: 1}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	want := []string{"modorganizer-uibase", "uibase", "usvfs"}
	if got := r.MatchableNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("MatchableNames() = %v, want %v", got, want)
	}
}

func TestRegistryTasksOrdering(t *testing.T) {
	r := NewRegistry()
	for _, task := range []Task{
		{Name: "zeta", Group: 1},
		{Name: "alpha", Group: 2},
		{Name: "beta", Group: 1},
	} {
		if err := r.Register(&task); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	var names []string
	for _, task := range r.Tasks() {
		names = append(names, task.Name)
	}
	want := []string{"beta", "zeta", "alpha"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("Tasks() order = %v, want %v", names, want)
	}
}

func TestScopeResolutionAgainstRegistry(t *testing.T) {
	r := DefaultRegistry()
	if err := r.RegisterAlias("plugins", []string{"installer_*"}); err != nil {
		t.Fatalf("RegisterAlias failed: %v", err)
	}

	resolve := func(pattern string) []string {
		t.Helper()
		scope, err := config.ParseScope(pattern)
		if err != nil {
			t.Fatalf("ParseScope(%q) failed: %v", pattern, err)
		}
		return scope.Resolve(r)
	}

	if got := resolve("uibase"); !reflect.DeepEqual(got, []string{"modorganizer-uibase"}) {
		t.Errorf("uibase resolved to %v", got)
	}
	if got := resolve(AliasAllTasks); !reflect.DeepEqual(got, r.Builtins()) {
		t.Errorf("super resolved to %v", got)
	}

	installers := resolve("installer_*")
	if len(installers) != 8 {
		t.Errorf("installer_* resolved to %d tasks: %v", len(installers), installers)
	}
	for _, name := range installers {
		desc, ok := r.Get(name)
		if !ok || desc.Group != pluginGroup {
			t.Errorf("%s should be a plugin group task", name)
		}
	}

	// A config alias whose member is itself a glob.
	if got := resolve("plugins"); !reflect.DeepEqual(got, installers) {
		t.Errorf("plugins alias = %v, want %v", got, installers)
	}

	if got := resolve("explorer++"); !reflect.DeepEqual(got, []string{"explorerpp"}) {
		t.Errorf("explorer++ resolved to %v", got)
	}
	if got := resolve("no-such-task"); got != nil {
		t.Errorf("unknown names resolve to nothing, got %v", got)
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindSource, "source"},
		{KindUsvfs, "usvfs"},
		{KindStylesheets, "stylesheets"},
		{KindLicenses, "licenses"},
		{KindExplorerPP, "explorerpp"},
		{KindTranslations, "translations"},
		{KindInstaller, "installer"},
		{Kind(99), "Kind(99)"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind.String() = %q, want %q", got, tt.want)
		}
	}
}
