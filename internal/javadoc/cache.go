package javadoc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
	"git.home.luguber.info/inful/modjar/internal/logfields"
	"git.home.luguber.info/inful/modjar/internal/module"
)

const (
	defaultFetchConcurrency = 4
	defaultMemoSize         = 128
	maxElementListSize      = 8 << 20
)

// ElementListCache keeps one element list per external module under
// <dir>/<module>/element-list. Entries already on disk are never refetched.
type ElementListCache struct {
	dir         string
	client      *http.Client
	concurrency int
	maxSize     int64
	// memo holds bodies fetched by this process keyed by URL, so a cleaned
	// cache directory is repopulated without network traffic.
	memo *lru.Cache[string, []byte]
}

// CacheOption configures an ElementListCache.
type CacheOption func(*ElementListCache)

// WithHTTPClient sets the client used for fetches.
func WithHTTPClient(c *http.Client) CacheOption {
	return func(e *ElementListCache) { e.client = c }
}

// WithFetchConcurrency bounds the number of parallel fetches.
func WithFetchConcurrency(n int) CacheOption {
	return func(e *ElementListCache) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithMaxElementListSize caps the size of a fetched element list. Larger
// responses fail the fetch.
func WithMaxElementListSize(n int64) CacheOption {
	return func(e *ElementListCache) {
		if n > 0 {
			e.maxSize = n
		}
	}
}

// NewElementListCache creates a cache rooted at dir.
func NewElementListCache(dir string, opts ...CacheOption) (*ElementListCache, error) {
	if dir == "" {
		return nil, errors.ConfigError("element list cache directory is required").Build()
	}
	memo, err := lru.New[string, []byte](defaultMemoSize)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "create element list memo").Build()
	}
	c := &ElementListCache{
		dir:         dir,
		client:      &http.Client{Timeout: 30 * time.Second},
		concurrency: defaultFetchConcurrency,
		maxSize:     maxElementListSize,
		memo:        memo,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Root returns the cache directory.
func (c *ElementListCache) Root() string { return c.dir }

// Dir returns the offline link directory for name.
func (c *ElementListCache) Dir(name module.Name) string {
	return filepath.Join(c.dir, string(name))
}

// Path returns the cached element list file for name.
func (c *ElementListCache) Path(name module.Name) string {
	return filepath.Join(c.Dir(name), ElementListName)
}

// FetchReport lists what a Fetch call did per module.
type FetchReport struct {
	Fetched []module.Name
	Cached  []module.Name
}

// Fetch makes sure every module in table has an element list on disk.
// Missing lists are downloaded concurrently. A failed download is a network
// error naming the URL; it is not retried and the first failure cancels the
// remaining downloads. Lists written before the failure stay in place.
func (c *ElementListCache) Fetch(ctx context.Context, table *LinkTable) (*FetchReport, error) {
	report := &FetchReport{}
	modules := table.Modules()
	if len(modules) == 0 {
		return report, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	fetched := make([]bool, len(modules))
	for i, name := range modules {
		if _, err := os.Stat(c.Path(name)); err == nil {
			slog.Debug("Element list cached", logfields.Module(string(name)), logfields.Path(c.Path(name)))
			continue
		}
		g.Go(func() error {
			if err := c.fetchOne(gctx, name, table.ElementListURL(name)); err != nil {
				return err
			}
			fetched[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, name := range modules {
		if fetched[i] {
			report.Fetched = append(report.Fetched, name)
		} else {
			report.Cached = append(report.Cached, name)
		}
	}
	slog.Info("Element lists ready",
		logfields.Count(len(modules)),
		slog.Int("fetched", len(report.Fetched)),
		logfields.Path(c.dir))
	return report, nil
}

func (c *ElementListCache) fetchOne(ctx context.Context, name module.Name, url string) error {
	body, ok := c.memo.Get(url)
	if !ok {
		var err error
		body, err = c.download(ctx, url)
		if err != nil {
			return errors.WrapError(err, errors.CategoryNetwork, "fetch element list").
				WithRetry(errors.RetryNever).
				WithContext(errors.ContextModule, string(name)).
				WithContext(errors.ContextURL, url).
				Build()
		}
		c.memo.Add(url, body)
	}
	return c.write(name, body)
}

func (c *ElementListCache) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > c.maxSize {
		return nil, fmt.Errorf("element list exceeds %d bytes", c.maxSize)
	}
	slog.Debug("Fetched element list",
		logfields.URL(url),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	return body, nil
}

// write stores "module:<name>\n<body>" atomically. Bodies that already carry
// a module header are stored unchanged.
func (c *ElementListCache) write(name module.Name, body []byte) error {
	dir := c.Dir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create element list directory").
			WithContext(errors.ContextPath, dir).
			Build()
	}
	content := body
	if !bytes.HasPrefix(body, []byte("module:")) {
		content = append([]byte("module:"+string(name)+"\n"), body...)
	}

	tmp, err := os.CreateTemp(dir, ".element-list-*")
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create element list").
			WithContext(errors.ContextPath, dir).
			Build()
	}
	tmpName := tmp.Name()
	_, werr := tmp.Write(content)
	cerr := tmp.Close()
	if werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Rename(tmpName, c.Path(name))
	}
	if werr != nil {
		_ = os.Remove(tmpName)
		return errors.WrapError(werr, errors.CategoryFileSystem, "write element list").
			WithContext(errors.ContextPath, c.Path(name)).
			Build()
	}
	return nil
}
