// Package devserver serves build output over HTTP, rebuilds on source changes
// and tells connected browsers to reload.
package devserver

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"

	"git.home.luguber.info/inful/assetpack/internal/build"
	"git.home.luguber.info/inful/assetpack/internal/config"
	"git.home.luguber.info/inful/assetpack/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpack/internal/logfields"
	"git.home.luguber.info/inful/assetpack/internal/metrics"
	"git.home.luguber.info/inful/assetpack/internal/plugins/hotreload"
)

const (
	// EventsPath is the SSE endpoint of the live-reload hub.
	EventsPath = "/__assetpack/livereload"
	// ScriptPath serves ClientScript.
	ScriptPath = hotreload.ScriptPath

	shutdownTimeout = 5 * time.Second
)

// Runner is what the server needs from a builder.
type Runner interface {
	Run(ctx context.Context) (*build.Report, error)
}

// status tracks the outcome of the latest build for the error page.
type status struct {
	mu           sync.RWMutex
	lastErr      error
	lastReport   *build.Report
	hasGoodBuild bool
}

func (s *status) set(r *build.Report, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastReport = r
	s.lastErr = err
	if err == nil {
		s.hasGoodBuild = true
	}
}

func (s *status) get() (*build.Report, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReport, s.hasGoodBuild, s.lastErr
}

// Server is the development HTTP server.
type Server struct {
	cfg      *config.Config
	runner   Runner
	hub      *Hub
	registry *prometheus.Registry
	logger   *slog.Logger
	status   status
	outDir   string

	debounce time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRegistry exposes reg at /metrics instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.registry = reg }
}

// WithDebounce overrides the quiet window between a change and its rebuild.
func WithDebounce(d time.Duration) Option {
	return func(s *Server) { s.debounce = d }
}

// New creates a server for cfg that rebuilds with runner.
func New(cfg *config.Config, runner Runner, opts ...Option) (*Server, error) {
	if cfg == nil || runner == nil {
		return nil, errors.ConfigError("dev server needs a config and a builder").Build()
	}
	outDir, err := filepath.Abs(cfg.Output.Path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "resolve output path").Build()
	}
	s := &Server{
		cfg:      cfg,
		runner:   runner,
		logger:   slog.Default(),
		outDir:   outDir,
		debounce: defaultDebounce,
	}
	for _, o := range opts {
		o(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.hub = NewHub(s.registry)
	return s, nil
}

// Hub returns the live-reload hub.
func (s *Server) Hub() *Hub { return s.hub }

// Rebuild runs one build, records its outcome and notifies browsers: the
// output hash on success, an error token on failure.
func (s *Server) Rebuild(ctx context.Context) (*build.Report, error) {
	report, err := s.runner.Run(ctx)
	if ctx.Err() != nil {
		return report, err
	}
	s.status.set(report, err)
	if err != nil {
		s.logger.Warn("Build failed", logfields.Error(err))
		s.hub.Broadcast("error:" + strconv.FormatInt(time.Now().UnixNano(), 10))
		return report, err
	}
	s.hub.Broadcast(report.Hash)
	return report, nil
}

// Handler returns the HTTP handler: live-reload endpoints when hot reload is
// on, /metrics, /healthz and the output directory.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.cfg.DevServer.Hot {
		c := cors.New(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
		})
		mux.Handle(EventsPath, c.Handler(s.hub))
		mux.Handle(ScriptPath, c.Handler(http.HandlerFunc(serveScript)))
	}
	mux.Handle("/metrics", metrics.HTTPHandler(s.registry))
	mux.HandleFunc("/healthz", s.healthz)
	mux.Handle("/", gzhttp.GzipHandler(http.HandlerFunc(s.serveOutput)))
	return mux
}

func serveScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write([]byte(ClientScript))
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	_, good, err := s.status.get()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	switch {
	case err != nil:
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = fmt.Fprintf(w, "build failed: %v\n", err)
	case !good:
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no build yet\n"))
	default:
		_, _ = w.Write([]byte("ok\n"))
	}
}

// serveOutput serves files from the output directory. While the latest build
// is broken, pages get the error overlay instead.
func (s *Server) serveOutput(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	report, good, buildErr := s.status.get()
	name := path.Clean("/" + r.URL.Path)

	if buildErr != nil && isPage(name) {
		s.renderError(w, buildErr, report)
		return
	}
	if !good {
		s.renderError(w, stderrors.New("the first build has not finished"), report)
		return
	}

	file := filepath.Join(s.outDir, filepath.FromSlash(name))
	info, err := os.Stat(file)
	switch {
	case err == nil && info.IsDir():
		if _, err := os.Stat(filepath.Join(file, "index.html")); err != nil {
			http.NotFound(w, r)
			return
		}
		file = filepath.Join(file, "index.html")
	case err != nil && s.cfg.DevServer.HistoryFallback && path.Ext(name) == "":
		file = filepath.Join(s.outDir, "index.html")
	case err != nil:
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, file)
}

func isPage(name string) bool {
	ext := path.Ext(name)
	return ext == "" || ext == ".html"
}

// Serve runs the initial build, starts the HTTP server and the source watcher,
// and blocks until ctx is canceled. Shutdown is bounded by five seconds.
func (s *Server) Serve(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.DevServer.Host, strconv.Itoa(s.cfg.DevServer.Port))
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return errors.WrapError(err, errors.CategoryDevServer, "listen").
			WithContext("address", addr).
			Build()
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	if _, err := s.Rebuild(ctx); err != nil {
		s.logger.Error("Initial build failed; serving error page until the next successful build", logfields.Error(err))
	}

	w, err := newWatcher(s.cfg, s.outDir, s.logger)
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer func() { _ = w.Close() }()

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// SSE connections are long-lived; no write timeout.
		IdleTimeout: 300 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	s.logger.Info("Dev server listening",
		slog.String("url", "http://"+displayAddr(ln.Addr())),
		logfields.Output(s.outDir))

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	trigger, done := s.startRebuildWorker(workerCtx)

	runErr := w.run(ctx, trigger)

	s.logger.Info("Shutting down dev server")
	s.hub.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP server shutdown error", logfields.Error(err))
	}
	stopWorker()
	<-done

	if err, ok := <-serveErr; ok && err != nil {
		return errors.WrapError(err, errors.CategoryDevServer, "http server failed").Build()
	}
	return runErr
}

func displayAddr(a net.Addr) string {
	s := a.String()
	if strings.HasPrefix(s, "[::]:") {
		return "localhost" + strings.TrimPrefix(s, "[::]")
	}
	if strings.HasPrefix(s, "0.0.0.0:") {
		return "localhost" + strings.TrimPrefix(s, "0.0.0.0")
	}
	return s
}

// Serve builds cfg with runner and serves it until ctx is canceled.
func Serve(ctx context.Context, cfg *config.Config, runner Runner, opts ...Option) error {
	s, err := New(cfg, runner, opts...)
	if err != nil {
		return err
	}
	return s.Serve(ctx)
}
