package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFS_PutURLDelete(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFS(dir, "https://cdn.example.com/img/")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, fs.Put(ctx, "eventos/banner.png", strings.NewReader("png-bytes")))

	raw, err := os.ReadFile(filepath.Join(dir, "eventos", "banner.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(raw))
	assert.Equal(t, "https://cdn.example.com/img/eventos/banner.png", fs.URL("eventos/banner.png"))

	require.NoError(t, fs.Delete(ctx, "eventos/banner.png"))
	_, err = os.Stat(filepath.Join(dir, "eventos", "banner.png"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, fs.Delete(ctx, "eventos/banner.png"))
}

func TestFS_RejectsEscapingKeys(t *testing.T) {
	fs, err := NewFS(t.TempDir(), "http://x")
	require.NoError(t, err)

	err = fs.Put(context.Background(), "../outside", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.ErrorIs(t, fs.Delete(context.Background(), ""), ErrInvalidKey)
}

func TestNewKey(t *testing.T) {
	a := NewKey("eventos", "PNG")
	b := NewKey("eventos", ".png")

	assert.True(t, strings.HasPrefix(a, "eventos/"))
	assert.True(t, strings.HasSuffix(a, ".png"))
	assert.NotEqual(t, a, b)
}
