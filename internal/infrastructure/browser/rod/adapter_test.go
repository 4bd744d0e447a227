package rod

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"opfs-inspector/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.Headless)
	assert.Equal(t, time.Duration(defaultSlowMotion), cfg.SlowMotion)
	assert.Equal(t, defaultTimeout, cfg.Timeout)
	assert.False(t, cfg.NoSandbox, "Should be secure by default")
	assert.False(t, cfg.DevTools)
	assert.Empty(t, cfg.ControlURL)
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://example.com", false},
		{"http://127.0.0.1:8080/app", false},
		{"file:///tmp/index.html", true},
		{"javascript:alert(1)", true},
		{"http://", true},
		{"::", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := validateURL(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidURL)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBrowserAdapter_UnknownTab(t *testing.T) {
	adapter := newTestAdapter(t)

	_, err := adapter.Storage("no-such-target")
	assert.ErrorIs(t, err, entity.ErrTabNotFound)
}

func TestBrowserAdapter_OpenTab(t *testing.T) {
	adapter := newTestAdapter(t)
	server := newTestServer(t)
	ctx := context.Background()

	tab, err := adapter.OpenTab(ctx, server.URL)
	require.NoError(t, err)
	assert.NotEmpty(t, tab.ID)
	assert.Equal(t, "OPFS Test Page", tab.Title)

	tabs, err := adapter.Tabs(ctx)
	require.NoError(t, err)
	assert.Contains(t, tabs, tab)
}

func TestBrowserAdapter_OpenTabRejectsScheme(t *testing.T) {
	adapter := newTestAdapter(t)

	_, err := adapter.OpenTab(context.Background(), "about:blank")
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestSession_FileRoundTrip(t *testing.T) {
	ctx, sess := openTestSession(t)

	root, err := sess.Root(ctx)
	require.NoError(t, err)

	dir, err := root.Directory(ctx, "docs", true)
	require.NoError(t, err)
	f, err := dir.File(ctx, "a.txt", true)
	require.NoError(t, err)
	require.NoError(t, f.WriteBase64(ctx, "aGVsbG8=")) // hello

	size, err := f.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)

	content, err := f.ReadBase64(ctx)
	require.NoError(t, err)
	assert.Equal(t, "aGVsbG8=", content)

	entries, err := root.Entries(ctx)
	require.NoError(t, err)
	assert.Contains(t, entries, entity.Entry{Name: "docs", Kind: entity.EntryDirectory})

	require.NoError(t, root.Remove(ctx, "docs", true))
	_, err = root.Directory(ctx, "docs", false)
	assert.True(t, entity.IsNotFound(err), "got %v", err)
}

func TestSession_Errors(t *testing.T) {
	ctx, sess := openTestSession(t)

	root, err := sess.Root(ctx)
	require.NoError(t, err)

	_, err = root.File(ctx, "missing.txt", false)
	assert.Equal(t, entity.ErrNameNotFound, entity.ErrorName(err))

	_, err = root.Directory(ctx, "plain", true)
	require.NoError(t, err)
	_, err = root.File(ctx, "plain", false)
	assert.Equal(t, entity.ErrNameTypeMismatch, entity.ErrorName(err))

	dir, err := root.Directory(ctx, "full", true)
	require.NoError(t, err)
	_, err = dir.File(ctx, "x", true)
	require.NoError(t, err)
	err = root.Remove(ctx, "full", false)
	assert.Equal(t, entity.ErrNameInvalidModification, entity.ErrorName(err))

	require.NoError(t, root.Remove(ctx, "full", true))
	require.NoError(t, root.Remove(ctx, "plain", false))
}

func TestSession_SyncWrite(t *testing.T) {
	ctx, sess := openTestSession(t)

	path := entity.MustParsePath("sync/nested/out.bin")
	require.NoError(t, sess.SyncWrite(ctx, path, []byte("first write, longer")))
	require.NoError(t, sess.SyncWrite(ctx, path, []byte("short")))

	root, err := sess.Root(ctx)
	require.NoError(t, err)
	dir, err := root.Directory(ctx, "sync", false)
	require.NoError(t, err)
	dir, err = dir.Directory(ctx, "nested", false)
	require.NoError(t, err)
	f, err := dir.File(ctx, "out.bin", false)
	require.NoError(t, err)

	content, err := f.ReadBase64(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c2hvcnQ=", content) // short, previous bytes truncated

	require.NoError(t, root.Remove(ctx, "sync", true))
}

func TestSession_ClosedRejectsCalls(t *testing.T) {
	ctx, sess := openTestSession(t)

	root, err := sess.Root(ctx)
	require.NoError(t, err)
	require.NoError(t, sess.Close())

	_, err = root.Entries(ctx)
	assert.Equal(t, "InvalidStateError", entity.ErrorName(err))
}

func newTestAdapter(t *testing.T) *BrowserAdapter {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}

	cfg := DefaultConfig()
	cfg.NoSandbox = true
	adapter, err := NewBrowserAdapter(context.Background(), cfg)
	if err != nil {
		t.Skipf("browser not available: %v", err)
	}
	t.Cleanup(adapter.Close)
	return adapter
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(testPageHTML))
	}))
	t.Cleanup(server.Close)
	return server
}

func openTestSession(t *testing.T) (context.Context, *session) {
	t.Helper()
	adapter := newTestAdapter(t)
	server := newTestServer(t)
	ctx := context.Background()

	tab, err := adapter.OpenTab(ctx, server.URL)
	require.NoError(t, err)
	storage, err := adapter.Storage(tab.ID)
	require.NoError(t, err)
	sess, err := storage.Open(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })
	return ctx, sess.(*session)
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head><title>OPFS Test Page</title></head>
<body><h1>OPFS</h1></body>
</html>`
