package cache

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	goupdate "github.com/doitdistributed/go-update"

	// Register SHA-256 for checksum verification.
	_ "crypto/sha256"
)

// Repository stores downloaded artifacts by name.
type Repository interface {
	Path(name string) string
	Exists(ctx context.Context, name string) (bool, error)
	Store(ctx context.Context, name string, contents io.Reader, sha256 []byte) error
}

const (
	// FileMode is applied to stored artifacts.
	FileMode os.FileMode = 0o644

	// ChecksumFunction verifies artifacts that come with a digest.
	ChecksumFunction crypto.Hash = crypto.SHA256
)

var errInvalidName = errors.New("artifact name must be a plain file name")

// DirRepository keeps artifacts as files in a single directory.
type DirRepository struct {
	// dir is the cache directory.
	dir string
	// mu serializes writes to the directory.
	mu sync.Mutex
}

// NewDirRepository creates a repository rooted at dir. The directory must exist before Store.
func NewDirRepository(dir string) *DirRepository {
	return &DirRepository{
		dir: filepath.Clean(dir),
	}
}

// Path returns where the artifact name is stored.
func (r *DirRepository) Path(name string) string {
	return filepath.Join(r.dir, name)
}

// Exists reports whether a non-empty artifact is stored under name.
// Empty files are placeholders left by an interrupted Store and count as absent.
func (r *DirRepository) Exists(_ context.Context, name string) (bool, error) {
	if err := checkName(name); err != nil {
		return false, err
	}

	info, err := os.Stat(r.Path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("stat artifact: %w", err)
	}

	return info.Mode().IsRegular() && info.Size() > 0, nil
}

// Store reads contents fully and atomically replaces the artifact name.
// A non-nil sha256 must match the contents or nothing is written.
func (r *DirRepository) Store(_ context.Context, name string, contents io.Reader, sha256 []byte) error {
	if err := checkName(name); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	target := r.Path(name)

	// go-update swaps the target out, so it has to exist first.
	created, err := ensureFile(target)
	if err != nil {
		return err
	}

	options := goupdate.Options{
		TargetPath: target,
		TargetMode: FileMode,
		Checksum:   sha256,
		Hash:       ChecksumFunction,
	}

	if err = goupdate.Apply(contents, options); err != nil {
		if created {
			_ = os.Remove(target)
		}

		return fmt.Errorf("store artifact %s: %w", name, err)
	}

	return nil
}

func ensureFile(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat artifact: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, FileMode)
	if err != nil {
		return false, fmt.Errorf("create artifact: %w", err)
	}

	if err = f.Close(); err != nil {
		return false, fmt.Errorf("create artifact: %w", err)
	}

	return true, nil
}

func checkName(name string) error {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("%q: %w", name, errInvalidName)
	}

	return nil
}
