package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Section names. Configuration values are addressed as section/key pairs;
// per-task values live under "task" (the base applied to every task) or
// under a "tasks.<scope>" heading in files.
const (
	SectionGlobal    = "global"
	SectionTask      = "task"
	SectionTasks     = "tasks"
	SectionCmake     = "cmake"
	SectionTools     = "tools"
	SectionTransifex = "transifex"
	SectionVersions  = "versions"
	SectionPaths     = "paths"
	SectionAliases   = "aliases"
)

// GlobalConfig holds run-wide settings that are not resolved per task.
type GlobalConfig struct {
	// Dry prints what would be done without running external commands
	Dry bool `mapstructure:"dry"`
	// Redownload discards cached downloads before fetching
	Redownload bool `mapstructure:"redownload"`
	// Reextract deletes extracted archives and source trees before fetching
	Reextract bool `mapstructure:"reextract"`
	// OutputLogLevel is the console log level, 0 (silent) to 6 (dump)
	OutputLogLevel int `mapstructure:"output_log_level"`
	// FileLogLevel is the log file level, 0 (silent) to 6 (dump)
	FileLogLevel int `mapstructure:"file_log_level"`
	// LogFile is the log file path; relative paths resolve against the prefix
	LogFile string `mapstructure:"log_file"`
	// IgnoreUncommitted proceeds even when a repository has uncommitted changes
	IgnoreUncommitted bool `mapstructure:"ignore_uncommitted"`
	// MaxParallel is the number of tasks built concurrently (0 = all CPUs)
	MaxParallel int `mapstructure:"max_parallel"`
	// WatchInstalls watches the install tree during builds and reports tasks
	// writing to the same files
	WatchInstalls bool `mapstructure:"watch_installs"`
}

// TaskSettings holds the per-task values produced by resolution. Every task
// gets its own copy, built from the task base plus whatever scoped entries
// matched it.
type TaskSettings struct {
	// Enabled includes the task in a full build
	Enabled bool `mapstructure:"enabled"`
	// Exclusive runs the task alone before its group's parallel batch
	Exclusive bool `mapstructure:"exclusive"`
	// MOOrg is the github organization for main repositories
	MOOrg string `mapstructure:"mo_org"`
	// MOBranch is the branch checked out for main repositories
	MOBranch string `mapstructure:"mo_branch"`
	// MOFallback is the branch used when MOBranch does not exist
	MOFallback string `mapstructure:"mo_fallback"`
	// NoPull skips pulling existing repositories during fetch
	NoPull bool `mapstructure:"no_pull"`
	// RevertTS reverts generated translation timestamp files before pulling
	RevertTS bool `mapstructure:"revert_ts"`
	// Configuration is the build configuration (Debug, Release, RelWithDebInfo)
	Configuration BuildType `mapstructure:"configuration"`
	// GitURLPrefix is prepended to org/repo when cloning
	GitURLPrefix string `mapstructure:"git_url_prefix"`
	// GitShallow clones with depth 1
	GitShallow bool `mapstructure:"git_shallow"`
	// RemoteOrg adds a remote pointing at this organization after cloning;
	// empty disables remote handling
	RemoteOrg string `mapstructure:"remote_org"`
	// RemoteNoPushUpstream sets the upstream remote's push URL to nopushurl
	RemoteNoPushUpstream bool `mapstructure:"remote_no_push_upstream"`
	// RemotePushDefaultOrigin makes the added remote the default push target
	RemotePushDefaultOrigin bool `mapstructure:"remote_push_default_origin"`
}

// CmakeConfig controls how cmake is invoked.
type CmakeConfig struct {
	// Generator is passed as -G; empty uses cmake's default
	Generator string `mapstructure:"generator"`
	// InstallMessage is the CMAKE_INSTALL_MESSAGE value: always, lazy or never
	InstallMessage string `mapstructure:"install_message"`
	// Host is the target architecture; empty builds for the native host
	Host string `mapstructure:"host"`
}

// ToolsConfig holds the names or paths of external tools. Bare names are
// looked up in PATH.
type ToolsConfig struct {
	Git      string `mapstructure:"git"`
	Cmake    string `mapstructure:"cmake"`
	SevenZ   string `mapstructure:"sevenz"`
	LRelease string `mapstructure:"lrelease"`
	ISCC     string `mapstructure:"iscc"`
	TX       string `mapstructure:"tx"`
}

// TransifexConfig controls the translations task.
type TransifexConfig struct {
	// Enabled pulls translations from transifex; when false the translations
	// task only compiles whatever .ts files are already present
	Enabled bool `mapstructure:"enabled"`
	// Key is the transifex API key; never shown by mob options
	Key string `mapstructure:"key"`
	// Team is the transifex team slug
	Team string `mapstructure:"team"`
	// Project is the transifex project slug
	Project string `mapstructure:"project"`
	// URL is the transifex instance
	URL string `mapstructure:"url"`
	// Minimum is the translation percentage below which a language is skipped
	Minimum int `mapstructure:"minimum"`
	// Force re-downloads translations even when up to date
	Force bool `mapstructure:"force"`
	// Configure writes the .tx/config file before pulling
	Configure bool `mapstructure:"configure"`
	// Pull fetches translation files
	Pull bool `mapstructure:"pull"`
}

// VersionsConfig pins versions of components that are downloaded rather
// than built from source.
type VersionsConfig struct {
	// Usvfs is the usvfs release tag; empty builds from the branch head
	Usvfs string `mapstructure:"usvfs"`
	// ExplorerPP is the Explorer++ release version to download
	ExplorerPP string `mapstructure:"explorerpp"`
	// Stylesheets maps stylesheet repository names to release versions
	Stylesheets map[string]string `mapstructure:"stylesheets"`
}

// PathsConfig holds every directory mob reads or writes. Only Prefix is
// normally set by hand; empty fields are derived from it.
type PathsConfig struct {
	// Prefix is the root directory for everything mob produces
	Prefix string `mapstructure:"prefix"`
	// Cache stores downloaded archives
	Cache string `mapstructure:"cache"`
	// Build holds per-task build directories
	Build string `mapstructure:"build"`
	// Install is the root of the installed output tree
	Install string `mapstructure:"install"`
	// InstallBin is where executables and plugins land
	InstallBin string `mapstructure:"install_bin"`
	// InstallLibs is where link libraries land
	InstallLibs string `mapstructure:"install_libs"`
	// InstallStylesheets is where stylesheet files land
	InstallStylesheets string `mapstructure:"install_stylesheets"`
	// InstallLicenses is where third party licenses land
	InstallLicenses string `mapstructure:"install_licenses"`
	// InstallTranslations is where compiled .qm files land
	InstallTranslations string `mapstructure:"install_translations"`
	// InstallInstaller is where the built installer executable lands
	InstallInstaller string `mapstructure:"install_installer"`
	// Licenses is the source directory for license files
	Licenses string `mapstructure:"licenses"`
	// QtBin is the Qt tools directory used to find lrelease; empty uses PATH
	QtBin string `mapstructure:"qt_bin"`
	// QtTranslations is the directory holding Qt's own .qm files
	QtTranslations string `mapstructure:"qt_translations"`
}

// BuildType is the cmake build configuration.
type BuildType int

const (
	BuildDebug BuildType = iota
	BuildRelease
	BuildRelWithDebInfo
)

// String returns the canonical cmake spelling.
func (b BuildType) String() string {
	switch b {
	case BuildDebug:
		return "Debug"
	case BuildRelease:
		return "Release"
	case BuildRelWithDebInfo:
		return "RelWithDebInfo"
	default:
		return fmt.Sprintf("BuildType(%d)", int(b))
	}
}

// ParseBuildType parses a build configuration name, case-insensitively.
func ParseBuildType(s string) (BuildType, error) {
	switch strings.ToLower(s) {
	case "debug":
		return BuildDebug, nil
	case "release":
		return BuildRelease, nil
	case "relwithdebinfo":
		return BuildRelWithDebInfo, nil
	default:
		return BuildRelease, fmt.Errorf("invalid build configuration %q, must be one of: Debug, Release, RelWithDebInfo", s)
	}
}

// valueKind is the declared type of a configuration key. Values are checked
// against it when a layer entry is applied, so that type errors can name the
// layer that supplied the bad value.
type valueKind int

const (
	kindBool valueKind = iota
	kindInt
	kindString
	kindStringList
	kindStringMap
	kindBuildType
)

// sectionKeys declares every known key and its type, per section. Unknown
// keys produce warnings during resolution instead of errors so that configs
// can be shared across versions.
var sectionKeys = map[string]map[string]valueKind{
	SectionGlobal: {
		"dry":                kindBool,
		"redownload":         kindBool,
		"reextract":          kindBool,
		"output_log_level":   kindInt,
		"file_log_level":     kindInt,
		"log_file":           kindString,
		"ignore_uncommitted": kindBool,
		"max_parallel":       kindInt,
		"watch_installs":     kindBool,
	},
	SectionTask: {
		"enabled":                    kindBool,
		"exclusive":                  kindBool,
		"mo_org":                     kindString,
		"mo_branch":                  kindString,
		"mo_fallback":                kindString,
		"no_pull":                    kindBool,
		"revert_ts":                  kindBool,
		"configuration":              kindBuildType,
		"git_url_prefix":             kindString,
		"git_shallow":                kindBool,
		"remote_org":                 kindString,
		"remote_no_push_upstream":    kindBool,
		"remote_push_default_origin": kindBool,
	},
	SectionCmake: {
		"generator":       kindString,
		"install_message": kindString,
		"host":            kindString,
	},
	SectionTools: {
		"git":      kindString,
		"cmake":    kindString,
		"sevenz":   kindString,
		"lrelease": kindString,
		"iscc":     kindString,
		"tx":       kindString,
	},
	SectionTransifex: {
		"enabled":   kindBool,
		"key":       kindString,
		"team":      kindString,
		"project":   kindString,
		"url":       kindString,
		"minimum":   kindInt,
		"force":     kindBool,
		"configure": kindBool,
		"pull":      kindBool,
	},
	SectionVersions: {
		"usvfs":       kindString,
		"explorerpp":  kindString,
		"stylesheets": kindStringMap,
	},
	SectionPaths: {
		"prefix":               kindString,
		"cache":                kindString,
		"build":                kindString,
		"install":              kindString,
		"install_bin":          kindString,
		"install_libs":         kindString,
		"install_stylesheets":  kindString,
		"install_licenses":     kindString,
		"install_translations": kindString,
		"install_installer":    kindString,
		"licenses":             kindString,
		"qt_bin":               kindString,
		"qt_translations":      kindString,
	},
}

// keyKind looks up the declared type of section/key. The aliases section
// accepts any key, each holding a list of task patterns.
func keyKind(section, key string) (valueKind, bool) {
	if section == SectionAliases {
		return kindStringList, true
	}
	keys, ok := sectionKeys[section]
	if !ok {
		return 0, false
	}
	kind, ok := keys[key]
	return kind, ok
}

// knownSection reports whether the section name is recognized.
func knownSection(section string) bool {
	if section == SectionAliases {
		return true
	}
	_, ok := sectionKeys[section]
	return ok
}

// coerceValue converts a raw entry value to the declared kind. String inputs
// are parsed, so values from environment variables and --set behave like
// values from files.
func coerceValue(value any, kind valueKind) (any, error) {
	switch kind {
	case kindBool:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("expected true or false, got %q", v)
			}
			return b, nil
		}
		return nil, fmt.Errorf("expected a boolean, got %T", value)

	case kindInt:
		switch v := value.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("expected an integer, got %q", v)
			}
			return n, nil
		}
		return nil, fmt.Errorf("expected an integer, got %T", value)

	case kindString:
		if v, ok := value.(string); ok {
			return v, nil
		}
		return nil, fmt.Errorf("expected a string, got %T", value)

	case kindStringList:
		switch v := value.(type) {
		case string:
			return []string{v}, nil
		case []string:
			return v, nil
		case []any:
			list := make([]string, 0, len(v))
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("expected a list of strings, found %T", item)
				}
				list = append(list, s)
			}
			return list, nil
		}
		return nil, fmt.Errorf("expected a list of strings, got %T", value)

	case kindStringMap:
		switch v := value.(type) {
		case map[string]string:
			return v, nil
		case map[string]any:
			m := make(map[string]string, len(v))
			for key, item := range v {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("expected a map of strings, found %T for %q", item, key)
				}
				m[key] = s
			}
			return m, nil
		}
		return nil, fmt.Errorf("expected a map of strings, got %T", value)

	case kindBuildType:
		switch v := value.(type) {
		case BuildType:
			return v, nil
		case string:
			b, err := ParseBuildType(v)
			if err != nil {
				return nil, err
			}
			return b, nil
		}
		return nil, fmt.Errorf("expected a build configuration, got %T", value)
	}

	return nil, fmt.Errorf("unhandled value kind %d", kind)
}

// SetDefaults registers the built-in default for every key with viper.
func SetDefaults(v *viper.Viper) {
	// Global defaults
	v.SetDefault("global.dry", false)
	v.SetDefault("global.redownload", false)
	v.SetDefault("global.reextract", false)
	v.SetDefault("global.output_log_level", 3)
	v.SetDefault("global.file_log_level", 5)
	v.SetDefault("global.log_file", "mob.log")
	v.SetDefault("global.ignore_uncommitted", false)
	v.SetDefault("global.max_parallel", 0)
	v.SetDefault("global.watch_installs", false)

	// Task base defaults, applied to every task before scoped entries
	v.SetDefault("task.enabled", true)
	v.SetDefault("task.exclusive", false)
	v.SetDefault("task.mo_org", "ModOrganizer2")
	v.SetDefault("task.mo_branch", "master")
	v.SetDefault("task.mo_fallback", "")
	v.SetDefault("task.no_pull", false)
	v.SetDefault("task.revert_ts", false)
	v.SetDefault("task.configuration", "RelWithDebInfo")
	v.SetDefault("task.git_url_prefix", "https://github.com/")
	v.SetDefault("task.git_shallow", true)
	v.SetDefault("task.remote_org", "")
	v.SetDefault("task.remote_no_push_upstream", false)
	v.SetDefault("task.remote_push_default_origin", false)

	// Cmake defaults
	v.SetDefault("cmake.generator", "")
	v.SetDefault("cmake.install_message", "never")
	v.SetDefault("cmake.host", "")

	// Tool defaults, resolved through PATH
	v.SetDefault("tools.git", "git")
	v.SetDefault("tools.cmake", "cmake")
	v.SetDefault("tools.sevenz", "7z")
	v.SetDefault("tools.lrelease", "lrelease")
	v.SetDefault("tools.iscc", "iscc")
	v.SetDefault("tools.tx", "tx")

	// Transifex defaults
	v.SetDefault("transifex.enabled", true)
	v.SetDefault("transifex.key", "")
	v.SetDefault("transifex.team", "team-55745")
	v.SetDefault("transifex.project", "mod-organizer-2")
	v.SetDefault("transifex.url", "https://app.transifex.com")
	v.SetDefault("transifex.minimum", 60)
	v.SetDefault("transifex.force", false)
	v.SetDefault("transifex.configure", true)
	v.SetDefault("transifex.pull", true)

	// Version defaults; the shipped configuration file pins real versions
	v.SetDefault("versions.usvfs", "")
	v.SetDefault("versions.explorerpp", "")
	v.SetDefault("versions.stylesheets", map[string]string{})

	// Path defaults; everything except prefix is derived when left empty
	v.SetDefault("paths.prefix", "")
	v.SetDefault("paths.cache", "")
	v.SetDefault("paths.build", "")
	v.SetDefault("paths.install", "")
	v.SetDefault("paths.install_bin", "")
	v.SetDefault("paths.install_libs", "")
	v.SetDefault("paths.install_stylesheets", "")
	v.SetDefault("paths.install_licenses", "")
	v.SetDefault("paths.install_translations", "")
	v.SetDefault("paths.install_installer", "")
	v.SetDefault("paths.licenses", "")
	v.SetDefault("paths.qt_bin", "")
	v.SetDefault("paths.qt_translations", "")
}

// DefaultsLayer builds the lowest-priority layer from the registered
// defaults. Entries are ordered by section and key so resolution stays
// deterministic.
func DefaultsLayer() Layer {
	v := viper.New()
	SetDefaults(v)

	settings := v.AllSettings()
	sections := make([]string, 0, len(settings))
	for section := range settings {
		sections = append(sections, section)
	}
	sort.Strings(sections)

	layer := Layer{Source: "defaults", Priority: PriorityDefaults}
	for _, section := range sections {
		values, ok := settings[section].(map[string]any)
		if !ok {
			continue
		}
		keys := make([]string, 0, len(values))
		for key := range values {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			layer.Entries = append(layer.Entries, Entry{
				Section: section,
				Key:     key,
				Value:   values[key],
			})
		}
	}
	return layer
}

// Derive fills empty path fields from the prefix. It is a no-op when the
// prefix itself is empty; commands that need paths check for that.
func (p *PathsConfig) Derive() {
	if p.Prefix == "" {
		return
	}

	defaultTo := func(field *string, parts ...string) {
		if *field == "" {
			*field = filepath.Join(parts...)
		}
	}

	defaultTo(&p.Cache, p.Prefix, "downloads")
	defaultTo(&p.Build, p.Prefix, "build")
	defaultTo(&p.Install, p.Prefix, "install")
	defaultTo(&p.InstallBin, p.Install, "bin")
	defaultTo(&p.InstallLibs, p.Install, "libs")
	defaultTo(&p.InstallStylesheets, p.InstallBin, "stylesheets")
	defaultTo(&p.InstallLicenses, p.InstallBin, "licenses")
	defaultTo(&p.InstallTranslations, p.InstallBin, "translations")
	defaultTo(&p.InstallInstaller, p.Install, "installer")
	defaultTo(&p.Licenses, p.Prefix, "licenses")
}
