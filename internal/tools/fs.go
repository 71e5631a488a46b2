package tools

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mo2build/mob/internal/errors"
	"github.com/mo2build/mob/internal/logging"
)

// fsOps performs the filesystem side of task phases with the same dry-run
// behavior as the process runner: in dry-run mode changes are logged, not
// made.
type fsOps struct {
	log *logging.Logger
	dry bool
}

// ensureDir creates dir and its parents if missing.
func (f fsOps) ensureDir(dir string) error {
	if _, err := os.Stat(dir); err == nil {
		return nil
	}
	if f.dry {
		f.log.Info("dry run", "create", dir)
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewExecutionError("creating directory failed", err)
	}
	return nil
}

// removeTree deletes path recursively. Missing paths are not an error.
func (f fsOps) removeTree(path, label string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if f.dry {
		f.log.Info("dry run", "delete", path)
		return nil
	}
	f.log.Info("deleting "+label, "path", path)
	if err := os.RemoveAll(path); err != nil {
		return errors.NewExecutionError("deleting "+label+" failed", err)
	}
	return nil
}

// removeFile deletes a single file. Missing files are not an error.
func (f fsOps) removeFile(path, label string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if f.dry {
		f.log.Info("dry run", "delete", path)
		return nil
	}
	f.log.Info("deleting "+label, "path", path)
	if err := os.Remove(path); err != nil {
		return errors.NewExecutionError("deleting "+label+" failed", err)
	}
	return nil
}

// removeMatching deletes the files in dir whose base name matches pattern,
// non-recursively. A missing dir is not an error.
func (f fsOps) removeMatching(dir, pattern, label string) error {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return errors.NewExecutionError("matching "+label+" failed", err)
	}
	for _, m := range matches {
		if err := f.removeFile(m, label); err != nil {
			return err
		}
	}
	return nil
}

// copyDirContents copies everything under src into dst, overwriting
// existing files. dst is created if needed.
func (f fsOps) copyDirContents(src, dst string) error {
	if f.dry {
		f.log.Info("dry run", "copy", src, "to", dst)
		return nil
	}

	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
	if err != nil {
		return errors.NewExecutionError("copying directory failed", err)
	}
	return nil
}

// copyFileIfNewer copies src to dst when dst is missing or older than src.
func (f fsOps) copyFileIfNewer(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return errors.NewExecutionError("reading source file failed", err)
	}
	if dstInfo, err := os.Stat(dst); err == nil {
		if !srcInfo.ModTime().After(dstInfo.ModTime()) {
			return nil
		}
	}

	if f.dry {
		f.log.Info("dry run", "copy", src, "to", dst)
		return nil
	}

	f.log.Debug("copying", "src", src, "dst", dst)
	if err := copyFile(src, dst); err != nil {
		return errors.NewExecutionError("copying file failed", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
