package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// stylesheetRelease identifies one themed stylesheet published as a github
// release. Versions come from versions/stylesheets, keyed by repository
// name; an unpinned repository uses the "latest" tag.
type stylesheetRelease struct {
	user string
	repo string
	file string
}

var stylesheetReleases = []stylesheetRelease{
	{"6788-00", "paper-light-and-dark", "paper-light-and-dark"},
	{"6788-00", "paper-automata", "paper-automata"},
	{"6788-00", "paper-mono", "paper-mono"},
	{"6788-00", "1809-dark-mode", "1809"},
	{"Trosski", "ModOrganizer_Style_Morrowind", "Morrowind-MO2-Stylesheet"},
	{"Trosski", "Mod-Organizer-2-Skyrim-Stylesheet", "Skyrim-MO2-Stylesheet"},
	{"Trosski", "ModOrganizer_Style_Fallout3", "Fallout3-MO2-Stylesheet"},
	{"Trosski", "Mod-Organizer2-Fallout-4-Stylesheet", "Fallout4-MO2-Stylesheet"},
	// The misspelled asset name is what the release actually ships.
	{"Trosski", "Starfield_MO2_Stylesheet", "Starfield.MO2.Stylsheet"},
}

func (j *job) stylesheetVersion(r stylesheetRelease) string {
	if v := j.cfg.Versions.Stylesheets[r.repo]; v != "" {
		return v
	}
	return "latest"
}

func (j *job) stylesheetURL(r stylesheetRelease) string {
	return fmt.Sprintf("https://github.com/%s/%s/releases/download/%s/%s.7z",
		r.user, r.repo, j.stylesheetVersion(r), r.file)
}

func (j *job) stylesheetCache(r stylesheetRelease) (string, error) {
	cache, err := requirePath(j.cfg.Paths.Cache, "paths/cache")
	if err != nil {
		return "", err
	}
	return filepath.Join(cache, r.repo+".7z"), nil
}

func (j *job) stylesheetBuildPath(r stylesheetRelease) (string, error) {
	build, err := requirePath(j.cfg.Paths.Build, "paths/build")
	if err != nil {
		return "", err
	}
	return filepath.Join(build, "stylesheets", r.repo+"-"+j.stylesheetVersion(r)), nil
}

func (j *job) cleanStylesheets(flags CleanFlags) error {
	if flags.Has(CleanRedownload) {
		for _, r := range stylesheetReleases {
			cache, err := j.stylesheetCache(r)
			if err != nil {
				return err
			}
			if err := j.fs.removeFile(cache, "cached archive"); err != nil {
				return err
			}
		}
	}

	if flags.Has(CleanReextract) {
		for _, r := range stylesheetReleases {
			dir, err := j.stylesheetBuildPath(r)
			if err != nil {
				return err
			}
			if err := j.fs.removeTree(dir, "extracted directory"); err != nil {
				return err
			}
		}
	}
	return nil
}

func (j *job) fetchStylesheets(ctx context.Context) error {
	for _, r := range stylesheetReleases {
		cache, err := j.stylesheetCache(r)
		if err != nil {
			return err
		}
		dir, err := j.stylesheetBuildPath(r)
		if err != nil {
			return err
		}

		j.log.Debug("fetching stylesheet", "repo", r.repo, "version", j.stylesheetVersion(r))
		if err := j.download.Fetch(ctx, j.stylesheetURL(r), cache, false); err != nil {
			return err
		}

		// Extract once per version; a reextract clean removed the
		// directory.
		if _, err := os.Stat(dir); err == nil {
			continue
		}
		if err := j.fs.ensureDir(dir); err != nil {
			return err
		}
		if err := j.sevenz.Extract(ctx, cache, dir); err != nil {
			return err
		}
	}
	return nil
}

func (j *job) buildStylesheets() error {
	install, err := requirePath(j.cfg.Paths.InstallStylesheets, "paths/install_stylesheets")
	if err != nil {
		return err
	}
	if err := j.fs.ensureDir(install); err != nil {
		return err
	}

	for _, r := range stylesheetReleases {
		dir, err := j.stylesheetBuildPath(r)
		if err != nil {
			return err
		}
		if _, err := os.Stat(dir); err != nil {
			if !j.fs.dry {
				j.log.Warn("stylesheet not extracted, run fetch first", "repo", r.repo)
				continue
			}
		}

		j.log.Info("installing stylesheet", "repo", r.repo)
		if err := j.fs.copyDirContents(dir, install); err != nil {
			return err
		}
	}
	return nil
}
