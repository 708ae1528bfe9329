package web

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"github.com/teslashibe/go-tts/pkg/protocol"
	"github.com/teslashibe/go-tts/pkg/speech"
	"github.com/teslashibe/go-tts/pkg/tts"
	"github.com/teslashibe/go-tts/pkg/volcano"
)

const (
	// writeWait is how long to wait for a write to complete
	writeWait = 10 * time.Second

	// maxMessageSize bounds client control messages
	maxMessageSize = 64 * 1024
)

var errBusy = errors.New("a synthesis is already running on this connection")

// wsConn serializes writes to one websocket connection.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *wsConn) send(msg *protocol.Message, err error) error {
	if err != nil {
		return err
	}
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	return w.write(websocket.TextMessage, data)
}

func (w *wsConn) write(messageType int, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteMessage(messageType, data)
}

// audioWriter forwards audio chunks as binary frames.
type audioWriter struct {
	ws      *wsConn
	written atomic.Int64
}

func (a *audioWriter) Write(p []byte) (int, error) {
	if err := a.ws.write(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	a.written.Add(int64(len(p)))
	return len(p), nil
}

func (a *audioWriter) Close() error { return nil }

func (a *audioWriter) CloseWithError(error) error { return nil }

// handleTTSWS runs synthesis requests from one client, one at a time.
// A "cancel" message or a disconnect aborts the running synthesis.
func (s *Server) handleTTSWS(c *websocket.Conn) {
	ws := &wsConn{conn: c}
	logger := s.logger.With("remote", c.RemoteAddr().String())
	logger.Debug("websocket connected")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		running context.CancelFunc
	)
	cancelRunning := func() {
		mu.Lock()
		if running != nil {
			running()
		}
		mu.Unlock()
	}
	defer func() {
		cancelRunning()
		wg.Wait()
		logger.Debug("websocket disconnected")
	}()

	c.SetReadLimit(maxMessageSize)
	for {
		mt, data, err := c.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}

		msg, err := protocol.ParseMessage(data)
		if err != nil {
			_ = ws.send(protocol.NewErrorMessage("", string(tts.KindProtocol), err.Error()))
			continue
		}

		switch msg.Type {
		case protocol.TypeSynthesize:
			req, err := msg.GetSynthesizeData()
			if err != nil {
				_ = ws.send(protocol.NewErrorMessage("", string(tts.KindProtocol), err.Error()))
				continue
			}

			mu.Lock()
			if running != nil {
				mu.Unlock()
				_ = ws.send(protocol.NewErrorMessage("", string(tts.KindUnknown), errBusy.Error()))
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			running = cancel
			mu.Unlock()

			wg.Add(1)
			go func() {
				defer wg.Done()
				final, err := s.runWSSynthesis(ctx, ws, req)
				// Clear before replying so the client can start the next one.
				mu.Lock()
				running = nil
				mu.Unlock()
				cancel()
				_ = ws.send(final, err)
			}()

		case protocol.TypeCancel:
			cancelRunning()

		case protocol.TypePing:
			ping, _ := msg.GetPingData()
			id := ""
			if ping != nil {
				id = ping.ID
			}
			_ = ws.send(protocol.NewPongMessage(id, msg.Timestamp, time.Now().UnixMilli()))

		default:
			_ = ws.send(protocol.NewErrorMessage("", string(tts.KindProtocol), "unsupported message type "+string(msg.Type)))
		}
	}
}

// runWSSynthesis streams one synthesis and returns the closing message.
func (s *Server) runWSSynthesis(ctx context.Context, ws *wsConn, req *protocol.SynthesizeData) (*protocol.Message, error) {
	id := uuid.NewString()
	start := time.Now()

	if err := ws.send(protocol.NewStartedMessage(id, req.Voice)); err != nil {
		return nil, err
	}

	out := &audioWriter{ws: ws}
	_, err := s.synth.Synthesize(ctx, speech.Request{
		Text:        req.Text,
		Voice:       req.Voice,
		Protocol:    speech.ParseProtocol(req.Protocol),
		Operation:   volcano.ParseOperation(req.Operation),
		Destination: out,
	})
	if err != nil {
		s.logger.Warn("websocket synthesis failed", "id", id, "kind", tts.KindOf(err), "error", err)
		return protocol.NewErrorMessage(id, string(tts.KindOf(err)), err.Error())
	}
	return protocol.NewDoneMessage(id, out.written.Load(), time.Since(start).Milliseconds())
}
