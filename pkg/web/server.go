// Package web serves speech synthesis over HTTP and WebSocket.
package web

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-tts/pkg/speech"
	"github.com/teslashibe/go-tts/pkg/tts"
)

// Synthesizer is what the server needs from a speech client.
type Synthesizer interface {
	Synthesize(ctx context.Context, req speech.Request) ([]byte, error)
	ListVoices() []tts.Voice
	Health(ctx context.Context) map[string]error
}

// Server is the HTTP front-end.
type Server struct {
	app     *fiber.App
	addr    string
	synth   Synthesizer
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	addr     string
	timeout  time.Duration
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// WithListenAddr sets the listen address.
func WithListenAddr(addr string) Option {
	return func(o *serverOptions) { o.addr = addr }
}

// WithRequestTimeout bounds each synthesis.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *serverOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *serverOptions) { o.logger = l }
}

// WithMetrics exposes g on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(o *serverOptions) { o.gatherer = g }
}

// NewServer creates a server around synth.
func NewServer(synth Synthesizer, opts ...Option) *Server {
	o := serverOptions{
		addr:    ":3000",
		timeout: 60 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{
		addr:    o.addr,
		synth:   synth,
		timeout: o.timeout,
		logger:  o.logger.With("component", "web"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-tts",
		DisableStartupMessage: true,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(s.requestLogger)

	// API routes
	api := app.Group("/api")
	api.Post("/tts", s.handleSynthesize)
	api.Get("/voices", s.handleListVoices)

	app.Get("/health", s.handleHealth)
	if o.gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(o.gatherer, promhttp.HandlerOpts{})))
	}

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/tts", websocket.New(s.handleTTSWS))

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App { return s.app }

// Start listens on the configured address and blocks.
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// Serve serves on ln and blocks.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("listening", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Debug("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return err
}
