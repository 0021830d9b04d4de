package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_Load(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(rowB + "\n"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "train.jsonl")
	writeFile(t, path, rowA+"\n")

	r := NewRouter()
	ctx := context.Background()
	records, err := r.Load(ctx, path, "train")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, userContents(t, records))

	records, err = r.Load(ctx, srv.URL+"/train.jsonl", "train")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, userContents(t, records))
}

func TestExists(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	ok, err := Exists(dir)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Exists(filepath.Join(dir, "nope"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Exists("https://example.com/val.jsonl")
	require.NoError(t, err)
	assert.True(t, ok)
}
