// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/semaphore"

	"github.com/bndkit/bndkit/internal/repository"
)

const (
	cacheDirName  = "cache"
	cacheVersion  = "2.4.0"
	cacheRepoName = "cache"
	cacheLabel    = "bnd-cache"

	// CacheLockTimeout bounds the wait for another initialization of the same
	// cache directory.
	CacheLockTimeout = 50 * time.Second
)

//go:embed embedded-repo.jar
var embeddedRepo []byte

// cacheLocks serializes initialization per cache directory across all
// workspaces of the process.
var cacheLocks sync.Map // string -> *semaphore.Weighted

type cacheRepo struct {
	*repository.FileRepo
	lock    *semaphore.Weighted
	timeout time.Duration
	seed    []byte
}

func newCacheRepo(root string) *cacheRepo {
	c := &cacheRepo{
		lock:    cacheLock(root),
		timeout: CacheLockTimeout,
		seed:    embeddedRepo,
	}
	c.FileRepo = repository.NewFileRepo(cacheRepoName, root,
		repository.WithLabel(cacheLabel),
		repository.WithInit(c.init))
	return c
}

func cacheLock(root string) *semaphore.Weighted {
	l, _ := cacheLocks.LoadOrStore(root, semaphore.NewWeighted(1))
	return l.(*semaphore.Weighted)
}

// init creates the cache directory and extracts the seed archive into it.
func (c *cacheRepo) init() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if err := c.lock.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: waited %s for %s", ErrCacheLocked, c.timeout, c.Root())
	}
	defer c.lock.Release(1)

	root := c.Root()
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	if len(c.seed) == 0 {
		return ErrSeedMissing
	}
	n, err := unzipNewer(c.seed, root)
	if err != nil {
		return fmt.Errorf("seed cache %s: %w", root, err)
	}
	slog.Debug("seeded cache repository", "dir", root, "files", n)
	return nil
}

// unzipNewer extracts the regular entries of archive into dir, skipping the
// archive's own META-INF. A file at least as recent as its entry is kept,
// unless the entry carries no time.
func unzipNewer(archive []byte, dir string) (int, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return 0, err
	}
	written := 0
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") || strings.HasPrefix(f.Name, "META-INF/") {
			continue
		}
		dest, err := entryPath(dir, f.Name)
		if err != nil {
			return written, err
		}
		if info, err := os.Stat(dest); err == nil && info.Mode().IsRegular() &&
			!f.Modified.IsZero() && !info.ModTime().Before(f.Modified) {
			continue
		}
		if err := extract(f, dest); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func entryPath(dir, name string) (string, error) {
	dest := filepath.Join(dir, filepath.FromSlash(name))
	rel, err := filepath.Rel(dir, dest)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("entry %q escapes %s", name, dir)
	}
	return dest, nil
}

func extract(f *zip.File, dest string) (err error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}
