// Package fetcher downloads remote datasets and decodes the tabular and
// archive formats they arrive in.
package fetcher

import (
	"context"
	"io"
	"net/url"

	"github.com/rotisserie/eris"
)

// ErrNoContent is returned when a server answers 204. The Census API does
// this for queries that match no rows.
var ErrNoContent = eris.New("fetcher: no content")

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)

	// DownloadIfChanged fetches the URL only if its ETag differs from etag.
	// Returns (body, newETag, changed, error); body is nil when unchanged.
	DownloadIfChanged(ctx context.Context, url string, etag string) (io.ReadCloser, string, bool, error)
}

// WithQuery appends encoded query parameters to base.
func WithQuery(base string, q url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: parse url %s", base)
	}
	existing := u.Query()
	for k, vs := range q {
		for _, v := range vs {
			existing.Add(k, v)
		}
	}
	u.RawQuery = existing.Encode()
	return u.String(), nil
}
