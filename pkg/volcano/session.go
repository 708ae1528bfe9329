package volcano

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-tts/internal/httpc"
	"github.com/teslashibe/go-tts/pkg/stream"
	"github.com/teslashibe/go-tts/pkg/tts"
)

const closeWriteTimeout = time.Second

// Client opens one websocket session per synthesis call.
// Connections are never pooled or reused.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer
	logger *slog.Logger
}

// NewClient creates a client. Credentials are checked per call, so a client
// without them still constructs and fails each session with a
// ConfigurationError.
func NewClient(opts ...Option) *Client {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Client{
		cfg: cfg,
		dialer: &websocket.Dialer{
			NetDialContext:   httpc.NetDialer().DialContext,
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		logger: cfg.Logger.With("component", "tts.volcano"),
	}
}

// Config returns the client configuration.
func (c *Client) Config() Config { return c.cfg }

// Synthesize runs one session to completion. A nil dst buffers the audio
// into the result; otherwise audio is written to dst and Result.Audio is nil.
func (c *Client) Synthesize(ctx context.Context, req Request, v Variant, dst stream.Destination) stream.Result {
	sink := stream.New(dst, stream.WithLogger(c.cfg.Logger))
	return c.NewSession(req, v, sink).Run(ctx)
}

// Session owns one request and one connection. It is discarded after Run.
type Session struct {
	client  *Client
	req     Request
	variant Variant
	sink    *stream.Sink
	logger  *slog.Logger

	mu    sync.Mutex
	state State
	conn  *websocket.Conn
}

// NewSession prepares a session writing into sink. A fresh request id is
// generated when req has none.
func (c *Client) NewSession(req Request, v Variant, sink *stream.Sink) *Session {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if req.Operation == "" {
		req.Operation = OperationSubmit
	}
	if v == nil {
		v = Basic
	}
	return &Session{
		client:  c,
		req:     req,
		variant: v,
		sink:    sink,
		logger: c.logger.With(
			"req_id", shortID(req.RequestID),
			"variant", v.Name(),
		),
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RequestID returns the full request id.
func (s *Session) RequestID() string { return s.req.RequestID }

// Run drives the session until a terminal state and returns the sink result.
// Cancelling ctx mid-flight closes the connection and fails the sink.
func (s *Session) Run(ctx context.Context) stream.Result {
	start := time.Now()
	s.run(ctx)
	res := s.sink.Result()

	outcome := "ok"
	if res.Err != nil {
		outcome = string(tts.KindOf(res.Err))
	}
	s.client.cfg.Metrics.SessionDone(s.variant.Name(), outcome, time.Since(start))
	s.logger.Debug("session finished",
		"state", s.State(),
		"outcome", outcome,
		"bytes", s.sink.Written(),
		"elapsed", time.Since(start),
	)
	return res
}

func (s *Session) run(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		s.logger.Info("synthesis aborted before start", "error", err)
		s.fail(fmt.Errorf("%w: %w", tts.ErrAborted, err), "before start")
		return
	}
	if err := s.transition(StateConnecting); err != nil {
		s.sink.Error(err, "start")
		return
	}

	cfg := s.client.cfg
	if err := cfg.Validate(); err != nil {
		s.logger.Warn("missing credentials, not connecting", "error", err)
		s.fail(err, "configure")
		return
	}

	frame, err := EncodeRequest(cfg, s.req)
	if err != nil {
		s.fail(err, "encode request")
		return
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer; "+cfg.AccessToken)

	conn, resp, err := s.client.dialer.DialContext(ctx, cfg.Endpoint, header)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			s.fail(fmt.Errorf("%w: %w", tts.ErrAborted, ctx.Err()), "connect")
		case resp != nil:
			s.fail(&tts.APIError{
				StatusCode: resp.StatusCode,
				Message:    "websocket handshake rejected",
				Provider:   providerName,
			}, "connect")
		default:
			s.fail(&tts.TransportError{Op: "dial", Err: err}, "connect")
		}
		return
	}
	defer conn.Close()

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	if !s.advance(StateOpen) {
		return
	}

	stop := context.AfterFunc(ctx, func() { s.abort(context.Cause(ctx)) })
	defer stop()

	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		s.fail(&tts.TransportError{Op: "send", Err: err}, "send request")
		return
	}
	s.logger.Debug("request sent", "voice", s.req.VoiceID, "chars", len(s.req.Text), "operation", s.req.Operation)

	if !s.advance(StateAwaitingFrames) {
		return
	}
	s.readLoop(conn)
}

// readLoop processes inbound frames in arrival order until the transport
// reports close or error.
func (s *Session) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.onReadError(err)
			return
		}
		if !s.onFrame(conn, data) {
			return
		}
	}
}

// onFrame handles one inbound frame. It returns false when reading must stop.
func (s *Session) onFrame(conn *websocket.Conn, data []byte) bool {
	switch st := s.State(); st {
	case StateAwaitingFrames:
	case StateClosing:
		s.logger.Debug("frame after close requested, dropped", "bytes", len(data))
		return true
	default:
		s.logger.Error("frame in unexpected state", "state", st, "error", ErrIllegalTransition)
		return !st.Terminal()
	}

	metrics := s.client.cfg.Metrics
	frame, err := DecodeFrame(data, s.variant)
	if err != nil {
		metrics.Frame("unknown")
		s.logger.Warn("undecodable frame", "error", err)
		s.sink.Error(err, "unknown message")
		s.closeTransport(conn)
		return true
	}
	metrics.Frame(frame.frameType())

	switch f := frame.(type) {
	case Ack:
		s.logger.Debug("server acknowledged request")

	case AudioChunk:
		if len(f.Payload) > 0 {
			if err := s.sink.Push(f.Payload); err != nil {
				s.fail(err, "push audio")
				conn.Close()
				return false
			}
			metrics.AudioBytes(providerName, len(f.Payload))
		}
		if s.variant.terminal(f) {
			s.logger.Debug("final audio chunk", "seq", f.Sequence)
			s.closeTransport(conn)
		}

	case *ServiceError:
		s.logger.Warn("service error", "code", f.Code, "message", string(f.Message))
		s.sink.Error(f, "service")
		s.closeTransport(conn)
	}
	return true
}

// onReadError maps a read failure to a close or error event.
func (s *Session) onReadError(err error) {
	var ce *websocket.CloseError
	switch st := s.State(); {
	case st == StateErrored:
		s.logger.Debug("transport closed after error", "error", err)
	case st == StateClosing, errors.As(err, &ce):
		if s.advance(StateClosed) {
			s.sink.End()
		}
	default:
		s.fail(&tts.TransportError{Op: "read", Err: err}, "transport")
	}
}

// closeTransport sends a close frame and bounds the wait for the echo.
func (s *Session) closeTransport(conn *websocket.Conn) {
	if !s.advance(StateClosing) {
		return
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout)); err != nil {
		s.logger.Debug("write close frame", "error", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(s.client.cfg.CloseGrace))
}

// abort is called when the caller's context ends mid-flight.
func (s *Session) abort(cause error) {
	s.mu.Lock()
	st := s.state
	conn := s.conn
	if st.Terminal() {
		s.mu.Unlock()
		return
	}
	// All audio has arrived once Closing; only the close handshake is cut short.
	if st != StateClosing {
		_ = s.transitionLocked(StateErrored)
	}
	s.mu.Unlock()

	if st != StateClosing {
		s.logger.Info("synthesis aborted mid-flight", "state", st, "error", cause)
		s.sink.Error(fmt.Errorf("%w: %w", tts.ErrAborted, cause), "abort")
	}
	if conn != nil {
		conn.Close()
	}
}

// fail moves a live session to Errored and fails the sink.
func (s *Session) fail(err error, where string) {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	_ = s.transitionLocked(StateErrored)
	s.mu.Unlock()
	s.sink.Error(err, where)
}

// advance transitions unless the session already reached a terminal state,
// which happens when abort races the session goroutine.
func (s *Session) advance(to State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return false
	}
	return s.transitionLocked(to) == nil
}

func (s *Session) transition(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(to)
}

func (s *Session) transitionLocked(to State) error {
	if !canTransition(s.state, to) {
		s.logger.Error("illegal session transition", "from", s.state, "to", to)
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s.state, to)
	}
	s.logger.Debug("session state", "from", s.state, "to", to)
	s.state = to
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
