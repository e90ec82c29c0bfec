package cache

import (
	"context"
	"crypto/sha256"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/require"
)

// TestDirRepository_StoreExists stores an artifact and reads it back.
func TestDirRepository_StoreExists(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewDirRepository(t.TempDir())

	ok, err := repo.Exists(ctx, "Skript-2.7.0.jar")
	require.NoError(t, err)
	require.False(t, ok)

	sum := sha256.Sum256([]byte("jar-bytes"))
	require.NoError(t, repo.Store(ctx, "Skript-2.7.0.jar", strings.NewReader("jar-bytes"), sum[:]))

	ok, err = repo.Exists(ctx, "Skript-2.7.0.jar")
	require.NoError(t, err)
	require.True(t, ok)

	contents, err := os.ReadFile(repo.Path("Skript-2.7.0.jar"))
	require.NoError(t, err)
	require.Equal(t, "jar-bytes", string(contents))

	// No temporary files stay behind.
	entries, err := os.ReadDir(filepath.Dir(repo.Path("x")))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

// TestDirRepository_ChecksumMismatch leaves no artifact behind.
func TestDirRepository_ChecksumMismatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewDirRepository(t.TempDir())

	sum := sha256.Sum256([]byte("expected"))
	err := repo.Store(ctx, "paper-1.20.4-150.jar", strings.NewReader("tampered"), sum[:])
	require.Error(t, err)

	ok, err := repo.Exists(ctx, "paper-1.20.4-150.jar")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = os.Stat(repo.Path("paper-1.20.4-150.jar"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestDirRepository_ReadError does not publish a truncated artifact.
func TestDirRepository_ReadError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewDirRepository(t.TempDir())

	err := repo.Store(ctx, "paper.jar", iotest.ErrReader(errors.New("connection reset")), nil)
	require.Error(t, err)

	ok, err := repo.Exists(ctx, "paper.jar")
	require.NoError(t, err)
	require.False(t, ok)
}

// TestDirRepository_EmptyFileIsAbsent treats placeholders as missing.
func TestDirRepository_EmptyFileIsAbsent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewDirRepository(t.TempDir())

	require.NoError(t, os.WriteFile(repo.Path("paper.jar"), nil, FileMode))

	ok, err := repo.Exists(ctx, "paper.jar")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, repo.Store(ctx, "paper.jar", strings.NewReader("new"), nil))

	ok, err = repo.Exists(ctx, "paper.jar")
	require.NoError(t, err)
	require.True(t, ok)
}

// TestDirRepository_RejectsPaths refuses names that escape the directory.
func TestDirRepository_RejectsPaths(t *testing.T) {
	t.Parallel()

	repo := NewDirRepository(t.TempDir())

	for _, name := range []string{"", "..", "../x.jar", "a/b.jar"} {
		_, err := repo.Exists(context.Background(), name)
		require.ErrorIs(t, err, errInvalidName, name)
	}
}
