package mediafs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// Cache downloads confession media into a local directory keyed by content
// id so playback units always bind seekable local files. A file lock on the
// directory keeps a second app instance from clobbering partial downloads.
type Cache struct {
	dir  string
	lock *flock.Flock
	http *http.Client

	mu    sync.Mutex
	local map[string]string // content id -> local path

	s3Once sync.Once
	s3     s3Downloader
	s3Err  error
}

// ErrCacheLocked means another hushfeed instance owns the cache directory.
var ErrCacheLocked = errors.New("media cache directory is locked by another instance")

// New creates the cache directory, takes the instance lock, and indexes any
// media left over from a previous run.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("New: create cache dir: %w", err)
	}

	lock := flock.New(filepath.Join(dir, ".hushfeed.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("New: acquire cache lock: %w", err)
	}
	if !locked {
		return nil, ErrCacheLocked
	}

	c := &Cache{
		dir:   dir,
		lock:  lock,
		http:  &http.Client{Timeout: 60 * time.Second},
		local: make(map[string]string),
	}
	c.indexExisting()
	return c, nil
}

// indexExisting scans the cache dir for media from a previous run.
func (c *Cache) indexExisting() {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		log.Printf("indexExisting: failed to read %s: %v", c.dir, err)
		return
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".partial") {
			continue
		}
		id := strings.TrimSuffix(name, filepath.Ext(name))
		c.local[id] = filepath.Join(c.dir, name)
	}
	if len(c.local) > 0 {
		log.Printf("indexExisting: found %d cached media file(s)", len(c.local))
	}
}

// EnsureLocal downloads the media for a content id if it is not cached yet
// and returns the local path. Idempotent: a second call for the same id and
// uri returns the existing file without touching the network.
func (c *Cache) EnsureLocal(ctx context.Context, contentId, uri string) (string, error) {
	c.mu.Lock()
	if path, ok := c.local[contentId]; ok {
		c.mu.Unlock()
		return path, nil
	}
	c.mu.Unlock()

	path := filepath.Join(c.dir, contentId+extensionFor(uri))
	partial := path + ".partial"

	out, err := os.Create(partial)
	if err != nil {
		return "", fmt.Errorf("EnsureLocal: create %s: %w", partial, err)
	}

	var downloadErr error
	switch {
	case strings.HasPrefix(uri, "s3://"):
		downloadErr = c.downloadS3(ctx, uri, out)
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		downloadErr = c.downloadHTTP(ctx, uri, out)
	default:
		downloadErr = fmt.Errorf("unsupported media uri scheme: %s", uri)
	}
	closeErr := out.Close()

	if downloadErr != nil {
		_ = os.Remove(partial)
		return "", fmt.Errorf("EnsureLocal: download %s: %w", contentId, downloadErr)
	}
	if closeErr != nil {
		_ = os.Remove(partial)
		return "", fmt.Errorf("EnsureLocal: flush %s: %w", partial, closeErr)
	}

	if err := os.Rename(partial, path); err != nil {
		_ = os.Remove(partial)
		return "", fmt.Errorf("EnsureLocal: finalize %s: %w", path, err)
	}

	c.mu.Lock()
	c.local[contentId] = path
	c.mu.Unlock()

	log.Printf("EnsureLocal: cached %s from %s", contentId, uri)
	return path, nil
}

// Evict removes the cached media for a content id. Called when the item
// leaves the preload window for good.
func (c *Cache) Evict(contentId string) {
	c.mu.Lock()
	path, ok := c.local[contentId]
	delete(c.local, contentId)
	c.mu.Unlock()

	if !ok {
		return
	}
	if err := os.Remove(path); err != nil {
		log.Printf("Evict: failed to remove %s: %v", path, err)
	}
}

// CachedPath returns the local path for a content id, if cached.
func (c *Cache) CachedPath(contentId string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	path, ok := c.local[contentId]
	return path, ok
}

// AvailableCached returns the ids of all cached media files.
func (c *Cache) AvailableCached() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.local))
	for id := range c.local {
		ids = append(ids, id)
	}
	return ids
}

// Clear removes every cached media file. Wired to manual refresh.
func (c *Cache) Clear() {
	c.mu.Lock()
	paths := make([]string, 0, len(c.local))
	for _, p := range c.local {
		paths = append(paths, p)
	}
	c.local = make(map[string]string)
	c.mu.Unlock()

	for _, p := range paths {
		_ = os.Remove(p)
	}
	log.Printf("Clear: removed %d cached media file(s)", len(paths))
}

// Close releases the instance lock.
func (c *Cache) Close() error {
	return c.lock.Unlock()
}

func (c *Cache) downloadHTTP(ctx context.Context, uri string, out io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	_, err = io.Copy(out, resp.Body)
	return err
}

// extensionFor keeps the original media extension so the decoder can sniff
// the container; defaults to .mp4.
func extensionFor(uri string) string {
	base := uri
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	ext := filepath.Ext(filepath.Base(base))
	if ext == "" || len(ext) > 5 {
		return ".mp4"
	}
	return ext
}
