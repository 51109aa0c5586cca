// Package downloadsvc delivers exported artifacts to the local filesystem.
package downloadsvc

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/timetable"
	"github.com/trezcool/ratiba/core/view"
)

type FileDownloader struct {
	dir string
	log core.Logger
}

var _ view.Downloader = (*FileDownloader)(nil)

var openFileFunc = os.OpenFile // mockable

func NewFileDownloader(conf *core.Config, logger core.Logger) *FileDownloader {
	return &FileDownloader{dir: conf.Export.Dir, log: logger}
}

// Download writes the artifact into the export dir without overwriting existing files,
// and returns the written path.
func (d *FileDownloader) Download(_ context.Context, a timetable.Artifact) (string, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating export dir")
	}

	name := filepath.Base(a.Filename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "export"
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 1; ; i++ {
		path := filepath.Join(d.dir, name)
		f, err := openFileFunc(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			name = stem + "-" + strconv.Itoa(i) + ext
			continue
		}
		if err != nil {
			return "", errors.Wrap(err, "creating export file")
		}
		// a partial file must not be mistaken for an export
		if _, err := f.Write(a.Data); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return "", errors.Wrap(err, "writing export file")
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(path)
			return "", errors.Wrap(err, "closing export file")
		}
		d.log.Info("export written to " + path)
		return path, nil
	}
}
