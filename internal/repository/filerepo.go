// SPDX-License-Identifier: MPL-2.0

package repository

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/zeebo/blake3"
)

type (
	// FileRepo is a repository stored in a directory as <bsn>/<bsn>-<version>.jar.
	FileRepo struct {
		name  string
		root  string
		label string
		init  func() error

		mu    sync.Mutex
		ready bool
	}

	// FileRepoOption configures a FileRepo during construction.
	FileRepoOption func(*FileRepo)
)

// WithInit sets a hook that runs before the first access. A failing hook is
// retried on the next access.
func WithInit(fn func() error) FileRepoOption {
	return func(r *FileRepo) {
		r.init = fn
	}
}

// WithLabel sets the string shown for the repository in listings.
func WithLabel(label string) FileRepoOption {
	return func(r *FileRepo) {
		r.label = label
	}
}

// NewFileRepo creates a repository named name rooted at root. The directory
// is not touched until first access.
func NewFileRepo(name, root string, opts ...FileRepoOption) *FileRepo {
	r := &FileRepo{name: name, root: root}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name returns the configured name.
func (r *FileRepo) Name() string { return r.name }

// Root returns the repository directory.
func (r *FileRepo) Root() string { return r.root }

func (r *FileRepo) String() string {
	if r.label != "" {
		return r.label
	}
	return r.name
}

// Init runs the init hook. After the first success it is a no-op. The hook
// runs without holding the repository lock, so a hook that bounds its own
// wait bounds the wait of every caller; concurrent first calls may each run it.
func (r *FileRepo) Init() error {
	r.mu.Lock()
	ready := r.ready
	r.mu.Unlock()
	if ready {
		return nil
	}
	if r.init != nil {
		if err := r.init(); err != nil {
			return fmt.Errorf("init repository %s: %w", r.name, err)
		}
	}
	r.mu.Lock()
	r.ready = true
	r.mu.Unlock()
	return nil
}

// List implements Repository.
func (r *FileRepo) List(pattern string) ([]string, error) {
	if err := r.Init(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(r.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list repository %s: %w", r.name, err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if pattern != "" {
			ok, matchErr := doublestar.Match(pattern, e.Name())
			if matchErr != nil {
				return nil, fmt.Errorf("list repository %s: %w", r.name, matchErr)
			}
			if !ok {
				continue
			}
		}
		out = append(out, e.Name())
	}
	return out, nil
}

// Versions implements Repository.
func (r *FileRepo) Versions(bsn string) ([]string, error) {
	if err := r.Init(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(r.root, bsn))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("versions of %s: %w", bsn, err)
	}
	prefix := bsn + "-"
	var versions []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".jar") {
			continue
		}
		versions = append(versions, strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".jar"))
	}
	slices.SortFunc(versions, CompareVersions)
	return versions, nil
}

// Get implements Repository.
func (r *FileRepo) Get(bsn, version string) (string, error) {
	switch version {
	case "", "latest", "project":
		versions, err := r.Versions(bsn)
		if err != nil || len(versions) == 0 {
			return "", err
		}
		version = versions[len(versions)-1]
	default:
		if err := r.Init(); err != nil {
			return "", err
		}
	}
	path := r.path(bsn, version)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("get %s-%s: %w", bsn, version, err)
	}
	return path, nil
}

// Put stores the content of src as bsn at version and returns its path.
func (r *FileRepo) Put(bsn, version string, src io.Reader) (string, error) {
	if err := r.Init(); err != nil {
		return "", err
	}
	path := r.path(bsn, version)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("put %s-%s: %w", bsn, version, err)
	}
	f, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return "", fmt.Errorf("put %s-%s: %w", bsn, version, err)
	}
	tmp := f.Name()
	_, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("put %s-%s: %w", bsn, version, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("put %s-%s: %w", bsn, version, err)
	}
	return path, nil
}

// Digest implements Digester. The digest is a BLAKE3 hash over the sorted
// relative paths and contents of all regular files.
func (r *FileRepo) Digest() ([]byte, error) {
	if err := r.Init(); err != nil {
		return nil, err
	}
	h := blake3.New()
	err := filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == r.root {
				return filepath.SkipDir
			}
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(r.root, path)
		if err != nil {
			return err
		}
		h.Write([]byte(filepath.ToSlash(rel)))
		h.Write([]byte{0})
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(h, f)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("digest repository %s: %w", r.name, err)
	}
	return h.Sum(nil), nil
}

func (r *FileRepo) path(bsn, version string) string {
	return filepath.Join(r.root, bsn, bsn+"-"+version+".jar")
}
