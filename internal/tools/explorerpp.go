package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Explorer++ is not built from source, upstream publishes a binary archive
// per version.
const explorerppArchive = "explorerpp_x64.zip"

func (j *job) explorerppURL() string {
	return fmt.Sprintf("https://download.explorerplusplus.com/stable/%s/%s",
		j.cfg.Versions.ExplorerPP, explorerppArchive)
}

func (j *job) explorerppCache() (string, error) {
	cache, err := requirePath(j.cfg.Paths.Cache, "paths/cache")
	if err != nil {
		return "", err
	}
	return filepath.Join(cache, explorerppArchive), nil
}

func (j *job) explorerppBuildPath() (string, error) {
	build, err := requirePath(j.cfg.Paths.Build, "paths/build")
	if err != nil {
		return "", err
	}
	return filepath.Join(build, "explorer++"), nil
}

func (j *job) cleanExplorerPP(flags CleanFlags) error {
	if flags.Has(CleanRedownload) {
		cache, err := j.explorerppCache()
		if err != nil {
			return err
		}
		if err := j.fs.removeFile(cache, "cached archive"); err != nil {
			return err
		}
	}

	if flags.Has(CleanReextract) {
		dir, err := j.explorerppBuildPath()
		if err != nil {
			return err
		}
		if err := j.fs.removeTree(dir, "extracted directory"); err != nil {
			return err
		}
	}
	return nil
}

func (j *job) fetchExplorerPP(ctx context.Context) error {
	version := j.cfg.Versions.ExplorerPP
	if version == "" {
		j.log.Warn("versions/explorerpp not set, skipping")
		return nil
	}

	cache, err := j.explorerppCache()
	if err != nil {
		return err
	}
	dir, err := j.explorerppBuildPath()
	if err != nil {
		return err
	}

	j.log.Info("fetching Explorer++", "version", version)
	if err := j.download.Fetch(ctx, j.explorerppURL(), cache, false); err != nil {
		return err
	}

	if _, err := os.Stat(dir); err == nil {
		return nil
	}
	if err := j.fs.ensureDir(dir); err != nil {
		return err
	}
	return j.sevenz.Extract(ctx, cache, dir)
}

func (j *job) buildExplorerPP() error {
	dir, err := j.explorerppBuildPath()
	if err != nil {
		return err
	}
	installBin, err := requirePath(j.cfg.Paths.InstallBin, "paths/install_bin")
	if err != nil {
		return err
	}
	install := filepath.Join(installBin, "explorer++")

	if _, err := os.Stat(dir); err != nil {
		if !j.fs.dry {
			j.log.Warn("Explorer++ not extracted, run fetch first", "path", dir)
			return nil
		}
	}

	if err := j.fs.ensureDir(install); err != nil {
		return err
	}
	j.log.Info("installing Explorer++", "to", install)
	return j.fs.copyDirContents(dir, install)
}
