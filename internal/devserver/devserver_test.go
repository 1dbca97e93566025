package devserver

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetpack/internal/build"
	"git.home.luguber.info/inful/assetpack/internal/config"
	"git.home.luguber.info/inful/assetpack/internal/foundation/errors"
)

type fakeRunner struct {
	mu   sync.Mutex
	runs int
	err  error
}

func (f *fakeRunner) Run(_ context.Context) (*build.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs++
	r := &build.Report{BuildID: "build-" + strconv.Itoa(f.runs)}
	if f.err != nil {
		r.Status = build.StatusFailed
		return r, f.err
	}
	r.Status = build.StatusSuccess
	r.Hash = "hash-" + strconv.Itoa(f.runs)
	return r, nil
}

func (f *fakeRunner) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default(config.Env{Serve: true})
	cfg.Entry = filepath.Join(dir, "src", "index.js")
	cfg.Output.Path = filepath.Join(dir, "build")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o750))
	require.NoError(t, os.MkdirAll(cfg.Output.Path, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Output.Path, "index.html"), []byte("<html><body>app</body></html>"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Output.Path, "main.js"), []byte(strings.Repeat("console.log('x');\n", 400)), 0o600))
	return cfg
}

func get(t *testing.T, h http.Handler, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServesOutputWithHistoryFallback(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg, &fakeRunner{})
	require.NoError(t, err)
	_, err = s.Rebuild(t.Context())
	require.NoError(t, err)
	h := s.Handler()

	rec := get(t, h, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "app")

	rec = get(t, h, "/settings/profile")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "app")

	rec = get(t, h, "/missing.js")
	require.Equal(t, http.StatusNotFound, rec.Code)

	cfg.DevServer.HistoryFallback = false
	rec = get(t, s.Handler(), "/settings/profile")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGzipsLargeResponses(t *testing.T) {
	s, err := New(testConfig(t), &fakeRunner{})
	require.NoError(t, err)
	_, err = s.Rebuild(t.Context())
	require.NoError(t, err)

	rec := get(t, s.Handler(), "/main.js", "Accept-Encoding", "gzip")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
}

func TestLiveReloadEndpoints(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg, &fakeRunner{})
	require.NoError(t, err)
	_, err = s.Rebuild(t.Context())
	require.NoError(t, err)

	rec := get(t, s.Handler(), ScriptPath, "Origin", "http://example.test")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Body.String(), EventsPath)

	cfg.DevServer.Hot = false
	rec = get(t, s.Handler(), ScriptPath)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestErrorPageAndHealth(t *testing.T) {
	runner := &fakeRunner{}
	s, err := New(testConfig(t), runner)
	require.NoError(t, err)
	h := s.Handler()

	// Nothing built yet.
	rec := get(t, h, "/healthz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	rec = get(t, h, "/")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	_, err = s.Rebuild(t.Context())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, get(t, h, "/healthz").Code)

	runner.setErr(errors.LoaderError("transform failed").WithContext("module", "app.js").Build())
	_, err = s.Rebuild(t.Context())
	require.Error(t, err)
	require.True(t, strings.HasPrefix(s.Hub().LastHash(), "error:"))

	rec = get(t, h, "/")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "loader error")
	require.Contains(t, body, "app.js")
	require.Contains(t, body, ScriptPath)
	require.Equal(t, http.StatusServiceUnavailable, get(t, h, "/healthz").Code)

	// Assets from the last good build stay available.
	require.Equal(t, http.StatusOK, get(t, h, "/main.js").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, err := New(testConfig(t), &fakeRunner{})
	require.NoError(t, err)
	rec := get(t, s.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "assetpack_livereload_clients")
}

func readUntil(t *testing.T, r *bufio.Reader, want string) {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err, "stream ended before %q", want)
		if strings.Contains(line, want) {
			return
		}
	}
}

func TestHubSendsCurrentAndNewHashes(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Shutdown()
	hub.Broadcast("abc123")

	server := httptest.NewServer(hub)
	defer server.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readUntil(t, reader, `{"hash":"abc123"}`)

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)
	hub.Broadcast("abc123") // unchanged, ignored
	hub.Broadcast("def456")
	readUntil(t, reader, `{"hash":"def456"}`)

	hub.Shutdown()
	_, err = io.ReadAll(reader)
	require.NoError(t, err)
	require.Zero(t, hub.Clients())
}

func TestHubRejectsAfterShutdown(t *testing.T) {
	hub := NewHub(nil)
	hub.Shutdown()
	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, EventsPath, nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWatcherIgnores(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "proj", "src")
	w := &watcher{root: root, outDir: filepath.Join(root, "build")}
	tests := []struct {
		path    string
		ignored bool
	}{
		{filepath.Join(root, "index.js"), false},
		{filepath.Join(root, "components", "App.jsx"), false},
		{filepath.Join(root, "build", "main.js"), true},
		{filepath.Join(root, "node_modules", "react", "index.js"), true},
		{filepath.Join(root, ".git", "HEAD"), true},
		{filepath.Join(root, "index.js.swp"), true},
		{filepath.Join(root, "index.js~"), true},
		{filepath.Join(root, "#index.js#"), true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			require.Equal(t, tt.ignored, w.ignored(tt.path))
		})
	}
}

func TestServeListenerRebuildsOnChange(t *testing.T) {
	cfg := testConfig(t)
	runner := &fakeRunner{}
	s, err := New(cfg, runner, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() { errCh <- s.ServeListener(ctx, ln) }()

	require.Eventually(t, func() bool { return runner.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	src := filepath.Dir(cfg.Entry)
	for i := range 5 {
		require.NoError(t, os.WriteFile(filepath.Join(src, "index.js"), []byte("console.log("+strconv.Itoa(i)+");"), 0o600))
	}
	require.Eventually(t, func() bool { return runner.count() >= 2 }, 3*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("server did not shut down")
	}
}
