package config

import (
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/mo2build/mob/internal/errors"
)

// TaskUniverse is the set of tasks that scopes resolve against. It is
// implemented by the task registry; the indirection keeps this package free
// of task definitions.
type TaskUniverse interface {
	// Canonical resolves a task name or alternate name to the task's
	// canonical name.
	Canonical(name string) (string, bool)
	// MatchableNames returns every name a pattern can match: canonical names
	// and alternates, sorted.
	MatchableNames() []string
	// Alias returns the member patterns of a named alias. The built-in
	// "super" alias covers every builtin task.
	Alias(name string) ([]string, bool)
}

// ScopeKind classifies a scope pattern at parse time.
type ScopeKind int

const (
	// ScopeBase is the empty scope of the task base section, applied to
	// every task without matching.
	ScopeBase ScopeKind = iota
	// ScopeNamed is a literal name: a task, an alternate name or an alias.
	ScopeNamed
	// ScopeGlob is a pattern containing glob metacharacters.
	ScopeGlob
)

// Scope selects which tasks a configuration entry applies to.
type Scope struct {
	// Pattern is the scope text as written.
	Pattern string

	kind    ScopeKind
	matcher glob.Glob
}

// BaseScope returns the scope of the task base section.
func BaseScope() Scope {
	return Scope{}
}

// ParseScope classifies a scope pattern. Glob patterns are compiled here so
// malformed ones fail at load time with the offending pattern named.
func ParseScope(pattern string) (Scope, error) {
	if pattern == "" {
		return Scope{}, nil
	}

	if !strings.ContainsAny(pattern, "*?[{") {
		return Scope{Pattern: pattern, kind: ScopeNamed}, nil
	}

	matcher, err := glob.Compile(pattern)
	if err != nil {
		return Scope{}, errors.NewValidationError("invalid glob pattern").
			WithField("scope").WithValue(pattern).WithCause(err)
	}
	return Scope{Pattern: pattern, kind: ScopeGlob, matcher: matcher}, nil
}

// Kind returns the parse-time classification.
func (s Scope) Kind() ScopeKind {
	return s.kind
}

// Resolve returns the sorted canonical names of the tasks this scope
// matches. A base scope matches nothing here; it applies to every task
// without resolution. A pattern matching no task resolves to the empty set.
func (s Scope) Resolve(u TaskUniverse) []string {
	return s.resolve(u, nil)
}

func (s Scope) resolve(u TaskUniverse, seen map[string]bool) []string {
	switch s.kind {
	case ScopeBase:
		return nil

	case ScopeNamed:
		// An alias spelled like a task name wins alias semantics.
		if members, ok := u.Alias(s.Pattern); ok {
			return s.resolveAlias(u, members, seen)
		}
		if canonical, ok := u.Canonical(s.Pattern); ok {
			return []string{canonical}
		}
		return nil

	case ScopeGlob:
		// A pattern that happens to be a literal name matches that task.
		if canonical, ok := u.Canonical(s.Pattern); ok {
			return []string{canonical}
		}
		set := map[string]bool{}
		for _, name := range u.MatchableNames() {
			if s.matcher.Match(name) {
				if canonical, ok := u.Canonical(name); ok {
					set[canonical] = true
				}
			}
		}
		return sortedKeys(set)
	}

	return nil
}

// resolveAlias unions the resolutions of the alias members. Aliases may
// reference other aliases; seen breaks cycles.
func (s Scope) resolveAlias(u TaskUniverse, members []string, seen map[string]bool) []string {
	if seen == nil {
		seen = map[string]bool{}
	}
	if seen[s.Pattern] {
		return nil
	}
	seen[s.Pattern] = true

	set := map[string]bool{}
	for _, member := range members {
		memberScope, err := ParseScope(member)
		if err != nil {
			continue
		}
		for _, canonical := range memberScope.resolve(u, seen) {
			set[canonical] = true
		}
	}
	return sortedKeys(set)
}

// Matches reports whether the scope applies to the given canonical task
// name. Base scopes apply to every task.
func (s Scope) Matches(u TaskUniverse, canonical string) bool {
	if s.kind == ScopeBase {
		return true
	}
	for _, name := range s.Resolve(u) {
		if name == canonical {
			return true
		}
	}
	return false
}

// Specificity orders scopes within one layer: the task base applies first,
// then aliases, then globs, then exact names, so narrower scopes override
// broader ones regardless of file order.
func (s Scope) Specificity(u TaskUniverse) int {
	switch s.kind {
	case ScopeBase:
		return 0
	case ScopeNamed:
		if _, ok := u.Alias(s.Pattern); ok {
			return 1
		}
		return 3
	case ScopeGlob:
		return 2
	}
	return 0
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
