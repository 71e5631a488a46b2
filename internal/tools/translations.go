package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mo2build/mob/internal/errors"
)

// translationProject is one project pulled from transifex, a directory like
// mod-organizer-2.organizer holding one .ts catalog per language.
type translationProject struct {
	name    string
	tsFiles []string
}

// transifexPath is the directory tx works in. Pulled catalogs land in its
// translations subdirectory.
func (j *job) transifexPath() (string, error) {
	build, err := requirePath(j.cfg.Paths.Build, "paths/build")
	if err != nil {
		return "", err
	}
	return filepath.Join(build, "transifex-translations"), nil
}

func (j *job) cleanTranslations(flags CleanFlags) error {
	if flags.Has(CleanRedownload) {
		source, err := j.transifexPath()
		if err != nil {
			return err
		}
		if err := j.fs.removeTree(source, "transifex directory"); err != nil {
			return err
		}
	}

	if flags.Has(CleanRebuild) {
		install, err := requirePath(j.cfg.Paths.InstallTranslations, "paths/install_translations")
		if err != nil {
			return err
		}
		if err := j.fs.removeMatching(install, "*.qm", "compiled translations"); err != nil {
			return err
		}
	}
	return nil
}

func (j *job) fetchTranslations(ctx context.Context) error {
	source, err := j.transifexPath()
	if err != nil {
		return err
	}

	// An empty configured key leaves any TX_TOKEN from the caller's
	// environment visible to tx, so only warn when both are missing.
	if j.cfg.Transifex.Key == "" && os.Getenv("TX_TOKEN") == "" {
		j.log.Warn("no transifex API key in transifex/key or TX_TOKEN, this will probably fail")
	}

	j.log.Info("initializing transifex directory", "path", source)
	if err := j.fs.ensureDir(source); err != nil {
		return err
	}
	if err := j.tx.Init(ctx, source); err != nil {
		return err
	}

	if j.cfg.Transifex.Configure {
		url := fmt.Sprintf("%s/%s/%s/dashboard",
			j.cfg.Transifex.URL, j.cfg.Transifex.Team, j.cfg.Transifex.Project)
		j.log.Info("configuring transifex remote", "url", url)
		if err := j.tx.Configure(ctx, source, url); err != nil {
			return err
		}
	}

	if j.cfg.Transifex.Pull {
		j.log.Info("pulling translations", "minimum", j.cfg.Transifex.Minimum)
		if err := j.tx.Pull(ctx, source, j.cfg.Transifex.Minimum, j.cfg.Transifex.Force); err != nil {
			return err
		}
	}
	return nil
}

func (j *job) buildTranslations(ctx context.Context) error {
	source, err := j.transifexPath()
	if err != nil {
		return err
	}
	translations := filepath.Join(source, "translations")

	install, err := requirePath(j.cfg.Paths.InstallTranslations, "paths/install_translations")
	if err != nil {
		return err
	}
	if err := j.fs.ensureDir(install); err != nil {
		return err
	}

	if _, err := os.Stat(translations); err != nil {
		j.log.Warn("translations directory not found, run fetch first", "path", translations)
		return nil
	}

	projects, err := j.discoverProjects(translations)
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		j.log.Warn("no translation projects found", "path", translations)
		return nil
	}
	j.log.Info("compiling translations", "projects", len(projects))

	var organizer *translationProject
	for i := range projects {
		p := &projects[i]
		if p.name == "organizer" {
			organizer = p
		}
		for _, ts := range p.tsFiles {
			lang := strings.TrimSuffix(filepath.Base(ts), ".ts")
			qm := filepath.Join(install, p.name+"_"+lang+".qm")
			j.log.Debug("compiling translation", "project", p.name, "lang", lang)
			if err := j.lrelease.Compile(ctx, []string{ts}, qm); err != nil {
				return err
			}
		}
	}

	if organizer == nil {
		j.log.Warn("organizer project not found, skipping Qt translations")
		return nil
	}
	return j.copyQtTranslations(organizer, install)
}

// copyQtTranslations brings Qt's own catalogs along for every language the
// organizer ships, trying the full locale first and its language part
// second (qt_zh_CN.qm, then qt_zh.qm).
func (j *job) copyQtTranslations(organizer *translationProject, install string) error {
	qtDir := j.cfg.Paths.QtTranslations
	if qtDir == "" {
		j.log.Warn("paths/qt_translations not configured, skipping Qt translations")
		return nil
	}
	if _, err := os.Stat(qtDir); err != nil {
		j.log.Warn("Qt translations directory not found", "path", qtDir)
		return nil
	}

	for _, prefix := range []string{"qt", "qtbase"} {
		for _, ts := range organizer.tsFiles {
			lang := strings.TrimSuffix(filepath.Base(ts), ".ts")

			copied, err := j.copyQtCatalog(qtDir, install, prefix, lang)
			if err != nil {
				return err
			}
			if copied {
				continue
			}

			if short, _, ok := strings.Cut(lang, "_"); ok && short != "" {
				copied, err = j.copyQtCatalog(qtDir, install, prefix, short)
				if err != nil {
					return err
				}
				if copied {
					continue
				}
			}
			j.log.Debug("no builtin Qt translation", "prefix", prefix, "lang", lang)
		}
	}
	return nil
}

func (j *job) copyQtCatalog(qtDir, install, prefix, lang string) (bool, error) {
	name := prefix + "_" + lang + ".qm"
	src := filepath.Join(qtDir, name)
	if _, err := os.Stat(src); err != nil {
		return false, nil
	}
	if err := j.fs.copyFileIfNewer(src, filepath.Join(install, name)); err != nil {
		return false, err
	}
	return true, nil
}

// discoverProjects lists the projects under dir. Directories that do not
// follow the team.project naming are skipped, as are projects without
// catalogs.
func (j *job) discoverProjects(dir string) ([]translationProject, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.NewExecutionError("reading translations directory failed", err)
	}

	var projects []translationProject
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name, ok := parseProjectName(e.Name())
		if !ok {
			j.log.Warn("unrecognized project directory, skipping", "dir", e.Name())
			continue
		}

		tsFiles, err := findTSFiles(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		if len(tsFiles) == 0 {
			j.log.Debug("no .ts files, skipping", "project", name)
			continue
		}
		projects = append(projects, translationProject{name: name, tsFiles: tsFiles})
	}

	sort.Slice(projects, func(i, k int) bool { return projects[i].name < projects[k].name })
	return projects, nil
}

// parseProjectName strips the team prefix from a transifex directory name,
// mod-organizer-2.organizer becomes organizer.
func parseProjectName(dir string) (string, bool) {
	_, project, ok := strings.Cut(dir, ".")
	if !ok || strings.TrimSpace(project) == "" {
		return "", false
	}
	return project, true
}

func findTSFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.NewExecutionError("reading project directory failed", err)
	}

	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && filepath.Ext(e.Name()) == ".ts" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}
