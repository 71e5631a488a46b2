package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/pflag"

	"github.com/mo2build/mob/internal/config"
	"github.com/mo2build/mob/internal/logging"
	"github.com/mo2build/mob/internal/task"
)

const (
	// defaultIniName is the configuration file mob looks for next to the
	// executable and in the working directory.
	defaultIniName = "mob.yaml"

	// iniEnvVar lists extra configuration files, separated like PATH.
	iniEnvVar = "MOBINI"
)

// cliEnv is everything a subcommand needs once configuration has loaded.
type cliEnv struct {
	store    *config.Store
	registry *task.Registry
	cfg      *config.Resolved
	log      *logging.Logger

	// files are the configuration files actually loaded, in priority order.
	files []string
}

// Close flushes and closes the logger's file sink.
func (e *cliEnv) Close() {
	if e.log != nil {
		_ = e.log.Close()
	}
}

// setup assembles the configuration store, the task registry, the resolved
// configuration and the logger. cli carries the command line overrides for
// the highest priority layer; --set assignments are appended after them.
//
// Resolution warnings are logged, not fatal.
func setup(cli []config.Entry) (*cliEnv, error) {
	store, files, err := loadStore(cli)
	if err != nil {
		return nil, err
	}

	registry, err := buildRegistry(store)
	if err != nil {
		return nil, err
	}

	cfg, warnings, err := config.Resolve(store, registry)
	if err != nil {
		return nil, err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		log.Warn("configuration warning", "source", w.Source, "key", w.Key, "detail", w.Message)
	}

	return &cliEnv{store: store, registry: registry, cfg: cfg, log: log, files: files}, nil
}

// loadStore builds the layer store in ascending priority: defaults, the
// primary file next to the executable, MOBINI files, the working directory
// file, --ini files, the environment and the command line.
//
// Explicitly named files (MOBINI, --ini) must exist; the working directory
// file is optional. --no-default-inis drops everything automatic and keeps
// only --ini. A file reachable through two routes loads once.
func loadStore(cli []config.Entry) (*config.Store, []string, error) {
	store := config.NewStore()
	store.Add(config.DefaultsLayer())

	var files []string
	seen := map[string]bool{}

	add := func(path string, priority int, required bool) error {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if seen[abs] {
			return nil
		}
		if !required {
			if _, err := os.Stat(abs); err != nil {
				return nil
			}
		}
		layer, err := config.LoadFile(abs, priority)
		if err != nil {
			return err
		}
		store.Add(layer)
		seen[abs] = true
		files = append(files, abs)
		return nil
	}

	if !noDefaultInis {
		exe, err := os.Executable()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to locate executable: %w", err)
		}
		if err := add(filepath.Join(filepath.Dir(exe), defaultIniName), config.PriorityPrimary, true); err != nil {
			return nil, nil, err
		}
		for _, path := range filepath.SplitList(os.Getenv(iniEnvVar)) {
			if path == "" {
				continue
			}
			if err := add(path, config.PriorityEnvFiles, true); err != nil {
				return nil, nil, err
			}
		}
		if err := add(defaultIniName, config.PriorityWorkingDir, false); err != nil {
			return nil, nil, err
		}
	}

	for _, path := range iniFiles {
		if err := add(path, config.PriorityFlagFiles, true); err != nil {
			return nil, nil, err
		}
	}

	store.Add(config.EnvLayer(os.Environ()))

	entries := make([]config.Entry, 0, len(cli)+len(setValues))
	entries = append(entries, cli...)
	for _, spec := range setValues {
		entry, err := config.ParseSet(spec)
		if err != nil {
			return nil, nil, err
		}
		entries = append(entries, entry)
	}
	store.Add(config.Layer{Source: "command line", Priority: config.PrioritySet, Entries: entries})

	return store, files, nil
}

// buildRegistry starts from the built-in task tree, then registers the
// aliases and the unknown exact-name task sections the configuration files
// declare. An exact tasks.<name> heading that matches nothing becomes a new
// task; glob and alias scopes never create tasks.
func buildRegistry(store *config.Store) (*task.Registry, error) {
	registry := task.DefaultRegistry()

	aliases := store.AliasTable()
	names := make([]string, 0, len(aliases))
	for name := range aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := registry.RegisterAlias(name, aliases[name]); err != nil {
			return nil, err
		}
	}

	for _, pattern := range store.FileTaskScopes() {
		scope, err := config.ParseScope(pattern)
		if err != nil {
			return nil, err
		}
		if scope.Kind() != config.ScopeNamed {
			continue
		}
		if err := registry.RegisterExtra(pattern); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// newLogger builds the logger from the resolved global settings. A relative
// log file resolves against the prefix; without a prefix the file sink stays
// off rather than scattering logs into the working directory.
func newLogger(cfg *config.Resolved) (*logging.Logger, error) {
	opts := logging.Options{
		OutputLevel: logging.ClampLevel(cfg.Global.OutputLogLevel),
		FileLevel:   logging.ClampLevel(cfg.Global.FileLogLevel),
	}

	path := cfg.Global.LogFile
	if path != "" && !filepath.IsAbs(path) {
		if cfg.Paths.Prefix == "" {
			path = ""
		} else {
			path = filepath.Join(cfg.Paths.Prefix, path)
		}
	}
	opts.FilePath = path

	return logging.New(opts)
}

// persistentEntries translates the changed persistent flags into command
// line layer entries. Unchanged flags contribute nothing so that file and
// environment values keep working underneath them.
func persistentEntries(fl *pflag.FlagSet) []config.Entry {
	var entries []config.Entry
	if fl.Changed("dry") {
		entries = append(entries, globalEntry("dry", dryRun))
	}
	if fl.Changed("log-level") {
		entries = append(entries, globalEntry("output_log_level", logLevel))
		// The file level follows the console level unless set on its own.
		if !fl.Changed("file-log-level") {
			entries = append(entries, globalEntry("file_log_level", logLevel))
		}
	}
	if fl.Changed("file-log-level") {
		entries = append(entries, globalEntry("file_log_level", fileLogLevel))
	}
	if fl.Changed("log-file") {
		entries = append(entries, globalEntry("log_file", logFile))
	}
	if fl.Changed("destination") {
		entries = append(entries, config.Entry{Section: config.SectionPaths, Key: "prefix", Value: destination})
	}
	return entries
}

func globalEntry(key string, value any) config.Entry {
	return config.Entry{Section: config.SectionGlobal, Key: key, Value: value}
}

func taskEntry(key string, value any) config.Entry {
	return config.Entry{Section: config.SectionTask, Key: key, Value: value}
}
