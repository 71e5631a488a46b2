// Package task is the build catalog: descriptors for everything mob can
// build, a registry resolving any spelling of a task name to its canonical
// form, and the default ModOrganizer task tree.
package task

import "fmt"

// Kind selects the build strategy for a task. Most tasks are plain source
// repositories; the remaining kinds cover the special artifacts that make
// up a release.
type Kind int

const (
	// KindSource is a git repository configured and built with cmake.
	KindSource Kind = iota
	// KindUsvfs builds the virtual filesystem libraries for both
	// architectures.
	KindUsvfs
	// KindStylesheets downloads and unpacks the themed stylesheets.
	KindStylesheets
	// KindLicenses copies third party license texts into the install tree.
	KindLicenses
	// KindExplorerPP downloads and unpacks Explorer++.
	KindExplorerPP
	// KindTranslations pulls transifex translations and compiles them.
	KindTranslations
	// KindInstaller builds the installer executable.
	KindInstaller
)

func (k Kind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindUsvfs:
		return "usvfs"
	case KindStylesheets:
		return "stylesheets"
	case KindLicenses:
		return "licenses"
	case KindExplorerPP:
		return "explorerpp"
	case KindTranslations:
		return "translations"
	case KindInstaller:
		return "installer"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Task describes one buildable unit. Group is the 1-based execution group;
// groups run sequentially and the tasks of one group run in parallel.
// Builtin marks membership in the ModOrganizer super-repository, which is
// what the reserved super alias expands to.
//
// Descriptors are immutable once registered.
type Task struct {
	Name       string
	Alternates []string
	Group      int
	Builtin    bool
	Kind       Kind
}

// AllNames returns the canonical name followed by the alternates.
func (t *Task) AllNames() []string {
	names := make([]string, 0, 1+len(t.Alternates))
	names = append(names, t.Name)
	names = append(names, t.Alternates...)
	return names
}

func (t *Task) String() string {
	return t.Name
}
