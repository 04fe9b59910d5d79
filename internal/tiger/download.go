package tiger

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/demomap/internal/fetcher"
)

// Downloader fetches and unpacks TIGER/Line archives into a cache directory.
type Downloader struct {
	Fetcher  fetcher.Fetcher
	CacheDir string
	Attempts uint
	Delay    time.Duration
}

// Download fetches url unless an archive of the same name is already cached,
// extracts it and returns the path of the .shp file. A corrupt archive is
// removed and fetched again.
func (d *Downloader) Download(ctx context.Context, url string) (string, error) {
	log := zap.L().With(
		zap.String("component", "tiger.download"),
		zap.String("url", url),
	)

	if err := os.MkdirAll(d.CacheDir, 0o755); err != nil {
		return "", eris.Wrap(err, "tiger: create cache dir")
	}

	zipName := path.Base(url)
	zipPath := filepath.Join(d.CacheDir, zipName)
	extractDir := filepath.Join(d.CacheDir, strings.TrimSuffix(zipName, ".zip"))

	attempts := d.Attempts
	if attempts == 0 {
		attempts = 3
	}
	delay := d.Delay
	if delay == 0 {
		delay = 2 * time.Second
	}

	var shpPath string
	err := retry.Do(func() error {
		if info, err := os.Stat(zipPath); err == nil && info.Size() > 0 {
			log.Debug("archive cached, skipping download", zap.String("path", zipPath))
		} else {
			log.Info("downloading TIGER shapefile")
			if _, err := d.Fetcher.DownloadToFile(ctx, url, zipPath); err != nil {
				_ = os.Remove(zipPath)
				return err
			}
		}

		files, err := fetcher.ExtractZIP(zipPath, extractDir)
		if err != nil {
			_ = os.Remove(zipPath)
			return err
		}
		p, ok := fetcher.FindExt(files, ".shp")
		if !ok {
			_ = os.Remove(zipPath)
			return eris.Errorf("tiger: no .shp file in %s", zipName)
		}
		shpPath = p
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("tiger download failed, retrying", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		return "", eris.Wrapf(err, "tiger: download %s", zipName)
	}
	return shpPath, nil
}
