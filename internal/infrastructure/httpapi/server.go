package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"opfs-inspector/internal/application/port/input"
	"opfs-inspector/internal/application/port/output"
	"opfs-inspector/internal/application/service/bus"
	"opfs-inspector/internal/domain/entity"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/gorilla/websocket"
)

const (
	defaultMaxBody  = 64 << 20
	eventWriteLimit = 10 * time.Second
)

type Config struct {
	// Timeout bounds each panel call; zero waits as long as the client does.
	Timeout time.Duration
	MaxBody int64
	// AccessLog receives httplog request lines. Defaults to stdout.
	AccessLog io.Writer
}

// Server exposes the panel over HTTP. Results are JSON; the event stream is
// a WebSocket carrying every relay message addressed to the tab.
type Server struct {
	cfg      Config
	panel    input.Panel
	browser  output.BrowserPort
	bus      *bus.Bus
	logger   output.LoggerPort
	upgrader websocket.Upgrader
}

func NewServer(cfg Config, panel input.Panel, browser output.BrowserPort, messages *bus.Bus, logger output.LoggerPort) *Server {
	if cfg.MaxBody <= 0 {
		cfg.MaxBody = defaultMaxBody
	}
	if cfg.AccessLog == nil {
		cfg.AccessLog = os.Stdout
	}
	if logger == nil {
		logger = output.NopLogger{}
	}
	return &Server{
		cfg:     cfg,
		panel:   panel,
		browser: browser,
		bus:     messages,
		logger:  logger.WithField("component", "http"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

type resultResponse struct {
	Result *entity.RelayResult `json:"result,omitempty"`
	View   input.View          `json:"view"`
	Error  string              `json:"error,omitempty"`
}

type openTabRequest struct {
	URL string `json:"url"`
}

func (s *Server) Handler() http.Handler {
	access := httplog.NewLogger("opfs-inspector", httplog.Options{JSON: true, Concise: true}).Output(s.cfg.AccessLog)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(httplog.RequestLogger(access))

	r.Route("/api/tabs", func(r chi.Router) {
		r.Get("/", s.handleListTabs)
		r.Post("/", s.handleOpenTab)

		r.Route("/{tab}", func(r chi.Router) {
			r.Get("/view", s.handleView)
			r.Get("/events", s.handleEvents)
			r.Post("/test", s.handleTest)
			r.Get("/contents", s.handleContents)
			r.Post("/download/*", s.handleDownload)
			r.Put("/files/*", s.handleUpload)
			r.Delete("/files/*", s.handleDelete)
			r.Post("/sync/*", s.handleSyncWrite)
		})
	})
	return r
}

func (s *Server) handleListTabs(w http.ResponseWriter, r *http.Request) {
	tabs, err := s.browser.Tabs(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, tabs)
}

func (s *Server) handleOpenTab(w http.ResponseWriter, r *http.Request) {
	var req openTabRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, errors.New("url is required"))
		return
	}

	tab, err := s.browser.OpenTab(r.Context(), req.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.logger.Info("tab opened", "tab", tab.ID, "url", tab.URL)
	writeJSON(w, http.StatusCreated, tab)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.panel.View(tabParam(r)))
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	s.call(w, r, func(ctx context.Context, tab entity.TabID) (*entity.RelayResult, error) {
		return s.panel.TestAccess(ctx, tab)
	})
}

func (s *Server) handleContents(w http.ResponseWriter, r *http.Request) {
	s.call(w, r, func(ctx context.Context, tab entity.TabID) (*entity.RelayResult, error) {
		return s.panel.Refresh(ctx, tab)
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	s.call(w, r, func(ctx context.Context, tab entity.TabID) (*entity.RelayResult, error) {
		return s.panel.Download(ctx, tab, path)
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	data, ok := s.readBody(w, r)
	if !ok {
		return
	}
	s.call(w, r, func(ctx context.Context, tab entity.TabID) (*entity.RelayResult, error) {
		return s.panel.Upload(ctx, tab, path, data)
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	recursive, _ := strconv.ParseBool(r.URL.Query().Get("recursive"))
	s.call(w, r, func(ctx context.Context, tab entity.TabID) (*entity.RelayResult, error) {
		return s.panel.Delete(ctx, tab, path, recursive)
	})
}

func (s *Server) handleSyncWrite(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	data, ok := s.readBody(w, r)
	if !ok {
		return
	}
	s.call(w, r, func(ctx context.Context, tab entity.TabID) (*entity.RelayResult, error) {
		return s.panel.SyncWrite(ctx, tab, path, data)
	})
}

// call runs one panel operation. Probe failures are a 200 with an error
// status in the result; only a failed round trip maps to an HTTP error.
func (s *Server) call(w http.ResponseWriter, r *http.Request, op func(context.Context, entity.TabID) (*entity.RelayResult, error)) {
	ctx := r.Context()
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	tab := tabParam(r)
	result, err := op(ctx, tab)
	resp := resultResponse{Result: result, View: s.panel.View(tab)}
	if err != nil {
		resp.Error = err.Error()
		writeJSON(w, statusFor(err), resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return nil, false
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
		return nil, false
	}
	return data, true
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	tab := tabParam(r)
	// Subscribed before the handshake completes so the client sees every
	// message sent after Dial returns.
	ch, cancel := s.bus.Subscribe()
	defer cancel()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "tab", tab, "error", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.logger.Debug("event stream opened", "tab", tab)
	for {
		select {
		case <-closed:
			s.logger.Debug("event stream closed", "tab", tab)
			return
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if msg.TabID != tab {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(eventWriteLimit))
			if err := conn.WriteJSON(msg); err != nil {
				s.logger.Warn("event write failed", "tab", tab, "error", err)
				return
			}
		}
	}
}

func tabParam(r *http.Request) entity.TabID {
	return entity.TabID(chi.URLParam(r, "tab"))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrTabNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
