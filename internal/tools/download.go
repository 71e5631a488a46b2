package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/mo2build/mob/internal/errors"
	"github.com/mo2build/mob/internal/logging"
)

// Downloader fetches release archives over HTTP into the download cache.
// Existing files are kept unless force is set, so repeated builds reuse
// their caches.
type Downloader struct {
	log    *logging.Logger
	dry    bool
	client *http.Client
}

// NewDownloader creates a downloader logging through log. A nil logger
// discards all output.
func NewDownloader(log *logging.Logger, dry bool) *Downloader {
	if log == nil {
		log = logging.Nop()
	}
	return &Downloader{log: log, dry: dry, client: &http.Client{}}
}

// Fetch downloads url to dest unless dest already exists. The file is
// written under a temporary name and renamed on completion, so an
// interrupted download never leaves a plausible looking partial file.
func (d *Downloader) Fetch(ctx context.Context, url, dest string, force bool) error {
	if !force {
		if _, err := os.Stat(dest); err == nil {
			d.log.Debug("download cached", "file", dest)
			return nil
		}
	}

	if d.dry {
		d.log.Info("dry run", "url", url, "file", dest)
		return nil
	}

	d.log.Info("downloading", "url", url, "file", dest)

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.NewExecutionError("creating download directory failed", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.NewExecutionError("building download request failed", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return errors.NewExecutionError("download failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.NewExecutionError(fmt.Sprintf("download of %s failed with status %s", url, resp.Status), nil)
	}

	tmp := dest + ".partial"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.NewExecutionError("creating download file failed", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return errors.NewExecutionError("download failed", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.NewExecutionError("writing download failed", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return errors.NewExecutionError("moving download into place failed", err)
	}

	d.log.Debug("download finished", "file", dest)
	return nil
}

// SevenZ extracts downloaded archives with the 7z command line. A single x
// invocation handles every format mob downloads (7z, zip, tar.gz).
type SevenZ struct {
	run CommandRunner
	exe string
}

// NewSevenZ creates a 7z client using exe, or "7z" from PATH when empty.
func NewSevenZ(run CommandRunner, exe string) *SevenZ {
	if exe == "" {
		exe = "7z"
	}
	return &SevenZ{run: run, exe: exe}
}

// Extract unpacks archive into dir, overwriting existing files. The caller
// creates dir.
func (s *SevenZ) Extract(ctx context.Context, archive, dir string) error {
	out, err := s.run.Run(ctx, "", s.exe, "x", "-aoa", "-bd", "-bb0", "-o"+dir, archive)
	if err != nil {
		return errors.NewExecutionError("archive extraction failed", err).WithOutput(string(out))
	}
	return nil
}
