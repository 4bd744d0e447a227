package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"opfs-inspector/internal/application/port/output"
	"opfs-inspector/internal/application/service"
	"opfs-inspector/internal/application/service/bus"
	"opfs-inspector/internal/domain/entity"
	"opfs-inspector/internal/infrastructure/storage/memory"
	"opfs-inspector/internal/usecase/panel"
	"opfs-inspector/internal/usecase/relay"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memDownloads struct {
	mu    sync.Mutex
	saved map[string][]byte
}

func (d *memDownloads) SaveAs(_ context.Context, fileName string, data []byte) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.saved[fileName] = data
	return "/downloads/" + fileName, nil
}

type testEnv struct {
	server    *httptest.Server
	browser   *memory.Browser
	downloads *memDownloads
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	browser := memory.NewBrowser()
	messages := bus.New(nil)
	tabs := service.NewTabRegistry(browser)
	tabs.OnAttach(func(tc *service.TabContext) {
		go relay.NewContentRelay(tc.ID, tc.Bridge, messages, output.NopLogger{}).Run(ctx)
	})
	downloads := &memDownloads{saved: make(map[string][]byte)}
	go relay.NewBackground(messages, tabs, downloads, output.NopLogger{}).Run(ctx)

	controller := panel.NewController(messages, panel.NewInspectedWindow(tabs, output.NopLogger{}), output.NopLogger{}, panel.DefaultConfig())
	srv := NewServer(Config{Timeout: 5 * time.Second, AccessLog: io.Discard}, controller, browser, messages, nil)

	server := httptest.NewServer(srv.Handler())
	t.Cleanup(server.Close)
	return &testEnv{server: server, browser: browser, downloads: downloads}
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, body)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (e *testEnv) openTab(t *testing.T) entity.Tab {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/api/tabs", strings.NewReader(`{"url":"https://app.example/"}`))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var tab entity.Tab
	require.NoError(t, json.Unmarshal(body, &tab))
	return tab
}

func decodeResult(t *testing.T, body []byte) resultResponse {
	t.Helper()
	var out resultResponse
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}

func TestServer_Tabs(t *testing.T) {
	env := newTestEnv(t)
	tab := env.openTab(t)

	resp, body := env.do(t, http.MethodGet, "/api/tabs", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tabs []entity.Tab
	require.NoError(t, json.Unmarshal(body, &tabs))
	assert.Equal(t, []entity.Tab{tab}, tabs)
}

func TestServer_OpenTabValidation(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/api/tabs", strings.NewReader(`{}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/tabs", strings.NewReader(`not json`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_TestAccess(t *testing.T) {
	env := newTestEnv(t)
	tab := env.openTab(t)

	resp, body := env.do(t, http.MethodPost, "/api/tabs/"+tab.ID.String()+"/test", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	out := decodeResult(t, body)
	assert.Equal(t, entity.StatusSuccess, out.Result.Status)
	assert.Contains(t, out.Result.Message, "navigator.storage.getDirectory() accessible.")
	assert.Equal(t, "success", out.View.StatusClass)
}

func TestServer_UploadListDownloadDelete(t *testing.T) {
	env := newTestEnv(t)
	tab := env.openTab(t)
	base := "/api/tabs/" + tab.ID.String()

	resp, body := env.do(t, http.MethodPut, base+"/files/docs/a.txt", strings.NewReader("hello"))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	out := decodeResult(t, body)
	assert.Equal(t, "File uploaded to docs/a.txt.", out.Result.Message)
	assert.Equal(t, entity.DirectoryListing{"📁 docs/", "    📄 a.txt (0.00 KB)"}, out.View.Contents)

	resp, body = env.do(t, http.MethodGet, base+"/contents", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out = decodeResult(t, body)
	assert.Equal(t, entity.OperationList, out.Result.Operation)
	assert.Len(t, out.Result.Contents, 2)

	resp, body = env.do(t, http.MethodPost, base+"/download/docs/a.txt", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	out = decodeResult(t, body)
	assert.Equal(t, "Downloaded a.txt to /downloads/a.txt.", out.Result.Message)
	env.downloads.mu.Lock()
	assert.Equal(t, []byte("hello"), env.downloads.saved["a.txt"])
	env.downloads.mu.Unlock()

	resp, body = env.do(t, http.MethodDelete, base+"/files/docs", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out = decodeResult(t, body)
	assert.Equal(t, entity.StatusError, out.Result.Status)
	assert.Contains(t, out.Result.Message, "InvalidModificationError")

	resp, body = env.do(t, http.MethodDelete, base+"/files/docs?recursive=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out = decodeResult(t, body)
	assert.Equal(t, "Deleted docs.", out.Result.Message)
	assert.Empty(t, out.View.Contents)
}

func TestServer_SyncWrite(t *testing.T) {
	env := newTestEnv(t)
	tab := env.openTab(t)

	resp, body := env.do(t, http.MethodPost, "/api/tabs/"+tab.ID.String()+"/sync/logs/out.txt", bytes.NewReader([]byte("abc")))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	out := decodeResult(t, body)
	assert.Equal(t, "Wrote 3 bytes to logs/out.txt.", out.Result.Message)

	origin, err := env.browser.Origin(tab.ID)
	require.NoError(t, err)
	data, err := origin.ReadFile("logs/out.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data)
}

func TestServer_DownloadMissingFile(t *testing.T) {
	env := newTestEnv(t)
	tab := env.openTab(t)

	resp, body := env.do(t, http.MethodPost, "/api/tabs/"+tab.ID.String()+"/download/missing.txt", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeResult(t, body)
	assert.Equal(t, entity.StatusError, out.Result.Status)
	assert.True(t, strings.HasPrefix(out.View.Status, "Error: Error downloading missing.txt: NotFoundError"), out.View.Status)
}

func TestServer_UnknownTab(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/tabs/tab-404/contents", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	out := decodeResult(t, body)
	assert.Contains(t, out.Error, "tab not found")
	assert.True(t, strings.HasPrefix(out.View.Status, "Error: Evaluation failed:"))
}

func TestServer_EventsStream(t *testing.T) {
	env := newTestEnv(t)
	tab := env.openTab(t)
	other := env.openTab(t)

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/api/tabs/" + tab.ID.String() + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	resp, _ := env.do(t, http.MethodGet, "/api/tabs/"+other.ID.String()+"/contents", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = env.do(t, http.MethodGet, "/api/tabs/"+tab.ID.String()+"/contents", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg entity.Message
	require.NoError(t, conn.ReadJSON(&msg))

	assert.Equal(t, entity.MsgContentsResultBridge, msg.Type)
	assert.Equal(t, tab.ID, msg.TabID)
	assert.Equal(t, entity.StatusSuccess, msg.Result.Status)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(entity.ErrTabNotFound))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusBadGateway, statusFor(assert.AnError))
}
