package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFileStore_Save(t *testing.T) {
	root := t.TempDir()
	store := NewLocalFileStore(root, "")

	url, err := store.Save(strings.NewReader("png-bytes"), "logo.PNG", "club_logos")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "/uploads/club_logos/"))
	assert.True(t, strings.HasSuffix(url, ".PNG"))

	name := strings.TrimPrefix(url, "/uploads/club_logos/")
	data, err := os.ReadFile(filepath.Join(root, "club_logos", name))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestLocalFileStore_UniqueNames(t *testing.T) {
	store := NewLocalFileStore(t.TempDir(), "/static/")

	first, err := store.Save(strings.NewReader("a"), "logo.png", "club_logos")
	require.NoError(t, err)
	second, err := store.Save(strings.NewReader("b"), "logo.png", "club_logos")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(first, "/static/club_logos/"))
}

func TestLocalFileStore_NoExtension(t *testing.T) {
	store := NewLocalFileStore(t.TempDir(), "")

	url, err := store.Save(strings.NewReader("x"), "README", "docs")
	require.NoError(t, err)
	assert.NotContains(t, strings.TrimPrefix(url, "/uploads/docs/"), ".")
}

func TestLocalFileStore_RejectsTraversal(t *testing.T) {
	store := NewLocalFileStore(t.TempDir(), "")

	for _, dir := range []string{"../etc", "a/../../b", "", "."} {
		_, err := store.Save(strings.NewReader("x"), "a.txt", dir)
		assert.True(t, errors.Is(err, ErrUploadFailed), "子目录 %q 应被拒绝", dir)
	}
}

func TestLocalFileStore_IOError(t *testing.T) {
	root := t.TempDir()
	// 根目录被普通文件占用时无法建目录
	blocker := filepath.Join(root, "blocked")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	store := NewLocalFileStore(blocker, "")
	_, err := store.Save(strings.NewReader("x"), "a.png", "club_logos")
	assert.ErrorIs(t, err, ErrUploadFailed)
}

func TestExtension(t *testing.T) {
	cases := map[string]string{
		"logo.png":          ".png",
		"archive.tar.gz":    ".gz",
		"noext":             "",
		"C:\\tmp\\pic.jpeg": ".jpeg",
		"dir.d/file":        "",
	}
	for in, want := range cases {
		assert.Equal(t, want, extension(in), in)
	}
}
