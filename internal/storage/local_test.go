package storage_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"membership/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_RoundTrip(t *testing.T) {
	ls, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key := "imports/2026/08/roster.csv"
	content := "\xef\xbb\xbfFirstName,LastName,EMail\r\n"

	require.NoError(t, ls.Store(ctx, key, strings.NewReader(content), "text/csv"))

	exists, err := ls.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	r, err := ls.Retrieve(ctx, key)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))

	meta, err := ls.GetMetadata(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), meta.Size)

	url, err := ls.GetURL(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "/archives/"+key, url)

	require.NoError(t, ls.Delete(ctx, key))
	exists, err = ls.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	ls, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	err = ls.Store(context.Background(), "../../etc/passwd", strings.NewReader("x"), "text/plain")
	assert.Error(t, err)
}

func TestImportKey(t *testing.T) {
	key := storage.ImportKey("admin/../1")

	assert.True(t, strings.HasPrefix(key, "imports/"), key)
	assert.True(t, strings.HasSuffix(key, ".csv"), key)
	// Separators in the admin id must not create extra path segments.
	assert.Equal(t, 3, strings.Count(key, "/"))

	// Keys are unique per call.
	assert.NotEqual(t, key, storage.ImportKey("admin/../1"))
}
