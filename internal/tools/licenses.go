package tools

import "os"

// Licenses only copies files into the install tree; clean and fetch are
// no-ops because the texts live in a plain directory, not a repository.
func (j *job) buildLicenses() error {
	source := j.cfg.Paths.Licenses
	if source == "" {
		j.log.Info("paths/licenses not configured, skipping")
		return nil
	}
	install, err := requirePath(j.cfg.Paths.InstallLicenses, "paths/install_licenses")
	if err != nil {
		return err
	}

	if _, err := os.Stat(source); err != nil {
		j.log.Info("licenses directory not found, skipping", "path", source)
		return nil
	}

	if err := j.fs.ensureDir(install); err != nil {
		return err
	}
	j.log.Info("copying license files", "to", install)
	return j.fs.copyDirContents(source, install)
}
