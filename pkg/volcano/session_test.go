package volcano_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-tts/pkg/stream"
	"github.com/teslashibe/go-tts/pkg/tts"
	"github.com/teslashibe/go-tts/pkg/volcano"
)

// mockServer is a websocket endpoint that runs handler per connection.
type mockServer struct {
	server   *httptest.Server
	upgrader websocket.Upgrader
	dials    atomic.Int32
	auth     atomic.Value
}

func newMockServer(t *testing.T, handler func(conn *websocket.Conn)) *mockServer {
	t.Helper()
	ms := &mockServer{}
	ms.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ms.dials.Add(1)
		ms.auth.Store(r.Header.Get("Authorization"))
		conn, err := ms.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(ms.server.Close)
	return ms
}

func (ms *mockServer) URL() string {
	return "ws" + strings.TrimPrefix(ms.server.URL, "http")
}

// respond reads the request frame, then writes frames and waits for the
// client's close so the default close handler can echo it.
func respond(frames ...[]byte) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.BinaryMessage, f); err != nil {
				return
			}
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}

func newTestClient(ms *mockServer, opts ...volcano.Option) *volcano.Client {
	base := []volcano.Option{
		volcano.WithCredentials("app-1", "token-1"),
		volcano.WithEndpoint(ms.URL()),
		volcano.WithCloseGrace(500 * time.Millisecond),
	}
	return volcano.NewClient(append(base, opts...)...)
}

func runSession(t *testing.T, c *volcano.Client, v volcano.Variant) (*volcano.Session, stream.Result) {
	t.Helper()
	s := c.NewSession(volcano.Request{Text: "你好", VoiceID: volcano.DefaultVoice}, v, stream.New(nil))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s, s.Run(ctx)
}

func TestSessionBasicVariant(t *testing.T) {
	ms := newMockServer(t, respond(
		serverFrame(0xB, 0, 0, nil),
		serverFrame(0xB, 1, 0, audioBody(1, []byte("abc"))),
		serverFrame(0xB, 1, 0, audioBody(2, nil)),
		serverFrame(0xB, 3, 0, audioBody(3, []byte("def"))),
	))

	s, res := runSession(t, newTestClient(ms), volcano.Basic)
	require.NoError(t, res.Err)
	assert.Equal(t, []byte("abcdef"), res.Audio)
	assert.Equal(t, volcano.StateClosed, s.State())
	assert.Equal(t, "Bearer; token-1", ms.auth.Load())
}

func TestSessionBasicShortMetadataIgnored(t *testing.T) {
	ms := newMockServer(t, respond(
		serverFrame(0xB, 1, 0, audioBody(1, []byte("abc"))),
		serverFrame(0xB, 1, 0, []byte{0, 0, 0, 0}),
		serverFrame(0xB, 3, 0, audioBody(2, []byte("def"))),
	))

	s, res := runSession(t, newTestClient(ms), volcano.Basic)
	require.NoError(t, res.Err)
	assert.Equal(t, []byte("abcdef"), res.Audio)
	assert.Equal(t, volcano.StateClosed, s.State())
}

func TestSessionExtendedVariant(t *testing.T) {
	t.Run("negative sequence ends the session", func(t *testing.T) {
		ms := newMockServer(t, respond(
			serverFrame(0xB, 1, 0, audioBody(1, []byte("ab"))),
			serverFrame(0xB, 1, 0, audioBody(2, nil)),
			serverFrame(0xB, 3, 0, audioBody(-3, []byte("cd"))),
		))
		s, res := runSession(t, newTestClient(ms), volcano.Extended)
		require.NoError(t, res.Err)
		assert.Equal(t, []byte("abcd"), res.Audio)
		assert.Equal(t, volcano.StateClosed, s.State())
	})

	t.Run("negative sequence without audio ends the session", func(t *testing.T) {
		ms := newMockServer(t, respond(
			serverFrame(0xB, 1, 0, audioBody(1, []byte("ab"))),
			serverFrame(0xB, 1, 0, audioBody(-2, nil)),
		))
		s, res := runSession(t, newTestClient(ms), volcano.Extended)
		require.NoError(t, res.Err)
		assert.Equal(t, []byte("ab"), res.Audio)
		assert.Equal(t, volcano.StateClosed, s.State())
	})
}

func TestSessionSendsOneRequestFrame(t *testing.T) {
	frames := make(chan []byte, 4)
	ms := newMockServer(t, func(conn *websocket.Conn) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		frames <- data
		_ = conn.WriteMessage(websocket.BinaryMessage, serverFrame(0xB, 3, 0, audioBody(-1, []byte("x"))))
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			frames <- data
		}
	})

	c := newTestClient(ms, volcano.WithUserID("42"))
	s := c.NewSession(volcano.Request{Text: "hello", VoiceID: "BV002_streaming", Operation: volcano.OperationQuery}, volcano.Extended, stream.New(nil))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res := s.Run(ctx)
	require.NoError(t, res.Err)
	assert.Equal(t, []byte("x"), res.Audio)

	require.Len(t, frames, 1)
	_, _, p := decodeRequest(t, <-frames)
	assert.Equal(t, "42", p.User.UID)
	assert.Equal(t, "BV002_streaming", p.Audio.VoiceType)
	assert.Equal(t, "query", p.Request.Operation)
	assert.Equal(t, s.RequestID(), p.Request.ReqID)
	assert.Len(t, p.Request.ReqID, 36)
}

func TestSessionServiceError(t *testing.T) {
	ms := newMockServer(t, respond(
		serverFrame(0xB, 1, 0, audioBody(1, []byte("partial"))),
		serverFrame(0xF, 0, 1, errorBody(3050, gzipBytes(t, []byte("voice not granted")))),
	))

	s, res := runSession(t, newTestClient(ms), volcano.Basic)
	require.Error(t, res.Err)
	assert.Nil(t, res.Audio)
	assert.Equal(t, tts.KindService, tts.KindOf(res.Err))

	var se *volcano.ServiceError
	require.True(t, errors.As(res.Err, &se))
	assert.Equal(t, int32(3050), se.Code)
	assert.Equal(t, "voice not granted", string(se.Message))
	assert.Equal(t, volcano.StateClosed, s.State())
}

func TestSessionUnknownMessage(t *testing.T) {
	ms := newMockServer(t, respond(serverFrame(0x2, 0, 0, []byte("?"))))

	_, res := runSession(t, newTestClient(ms), volcano.Basic)
	require.Error(t, res.Err)
	assert.Equal(t, tts.KindProtocol, tts.KindOf(res.Err))
	assert.Contains(t, res.Err.Error(), "unknown message")
}

func TestSessionClosedWithoutFrames(t *testing.T) {
	ms := newMockServer(t, func(conn *websocket.Conn) {
		_, _, _ = conn.ReadMessage()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	})

	s, res := runSession(t, newTestClient(ms), volcano.Basic)
	assert.NoError(t, res.Err)
	assert.Nil(t, res.Audio)
	assert.Equal(t, volcano.StateClosed, s.State())
}

func TestSessionMissingCredentials(t *testing.T) {
	ms := newMockServer(t, respond())
	c := volcano.NewClient(volcano.WithEndpoint(ms.URL()), volcano.WithCredentials("app-1", ""))

	s, res := runSession(t, c, volcano.Basic)
	require.Error(t, res.Err)
	assert.Nil(t, res.Audio)

	var ce *tts.ConfigurationError
	require.True(t, errors.As(res.Err, &ce))
	assert.Equal(t, "access_token", ce.Field)
	assert.Equal(t, volcano.StateErrored, s.State())
	assert.Zero(t, ms.dials.Load())
}

func TestSessionCancelledBeforeStart(t *testing.T) {
	ms := newMockServer(t, respond())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newTestClient(ms).NewSession(volcano.Request{Text: "hi"}, volcano.Basic, stream.New(nil))
	res := s.Run(ctx)

	assert.ErrorIs(t, res.Err, tts.ErrAborted)
	assert.Nil(t, res.Audio)
	assert.Equal(t, tts.KindAborted, tts.KindOf(res.Err))
	assert.Zero(t, ms.dials.Load())
}

func TestSessionCancelledMidFlight(t *testing.T) {
	ackSent := make(chan struct{})
	serverDone := make(chan struct{})
	ms := newMockServer(t, func(conn *websocket.Conn) {
		defer close(serverDone)
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.BinaryMessage, serverFrame(0xB, 0, 0, nil))
		_ = conn.WriteMessage(websocket.BinaryMessage, serverFrame(0xB, 1, 0, audioBody(1, []byte("ab"))))
		close(ackSent)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	s := newTestClient(ms).NewSession(volcano.Request{Text: "long text"}, volcano.Extended, stream.New(nil))

	go func() {
		<-ackSent
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	done := make(chan stream.Result, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case res := <-done:
		assert.ErrorIs(t, res.Err, tts.ErrAborted)
		assert.ErrorIs(t, res.Err, context.Canceled)
		assert.Equal(t, volcano.StateErrored, s.State())
	case <-time.After(5 * time.Second):
		t.Fatal("session did not stop after cancellation")
	}

	select {
	case <-serverDone:
	case <-time.After(5 * time.Second):
		t.Fatal("transport was not torn down")
	}
}

func TestSessionDialFailure(t *testing.T) {
	ms := newMockServer(t, respond())
	url := ms.URL()
	ms.server.Close()

	c := volcano.NewClient(volcano.WithCredentials("a", "b"), volcano.WithEndpoint(url))
	s, res := runSession(t, c, volcano.Basic)
	require.Error(t, res.Err)
	assert.Equal(t, tts.KindTransport, tts.KindOf(res.Err))
	assert.Equal(t, volcano.StateErrored, s.State())
}

func TestSessionHandshakeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := volcano.NewClient(volcano.WithCredentials("a", "b"), volcano.WithEndpoint("ws"+strings.TrimPrefix(srv.URL, "http")))
	_, res := runSession(t, c, volcano.Basic)

	var apiErr *tts.APIError
	require.True(t, errors.As(res.Err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, tts.KindConfiguration, tts.KindOf(res.Err))
}

func TestSessionWritesToDestination(t *testing.T) {
	ms := newMockServer(t, respond(
		serverFrame(0xB, 1, 0, audioBody(1, []byte("one-"))),
		serverFrame(0xB, 3, 0, audioBody(2, []byte("two"))),
	))

	pr, pw := io.Pipe()
	got := make(chan []byte, 1)
	go func() {
		b, _ := io.ReadAll(pr)
		got <- b
	}()

	res := newTestClient(ms).Synthesize(context.Background(), volcano.Request{Text: "x"}, volcano.Basic, pw)
	require.NoError(t, res.Err)
	assert.Nil(t, res.Audio)
	assert.Equal(t, []byte("one-two"), <-got)
}

func TestSessionReuseIsRejected(t *testing.T) {
	ms := newMockServer(t, respond(serverFrame(0xB, 3, 0, audioBody(1, []byte("a")))))
	s, res := runSession(t, newTestClient(ms), volcano.Basic)
	require.NoError(t, res.Err)

	again := s.Run(context.Background())
	assert.Equal(t, res, again)
	assert.Equal(t, int32(1), ms.dials.Load())
}

func TestProvider(t *testing.T) {
	ms := newMockServer(t, respond(serverFrame(0xB, 3, 0, audioBody(1, []byte("mp3")))))
	p := volcano.NewProvider(newTestClient(ms), volcano.Basic, "")

	assert.Equal(t, "volcano", p.Name())
	assert.NotEmpty(t, p.Voices())
	assert.NoError(t, p.Health(context.Background()))

	result, err := p.Synthesize(context.Background(), tts.Request{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3"), result.Audio)
	assert.Equal(t, volcano.DefaultVoice, result.Voice)
}

func TestProviderStream(t *testing.T) {
	ms := newMockServer(t, respond(
		serverFrame(0xB, 1, 0, audioBody(1, []byte("ab"))),
		serverFrame(0xB, 3, 0, audioBody(2, []byte("cd"))),
	))
	p := volcano.NewProvider(newTestClient(ms), volcano.Basic, volcano.OperationSubmit)

	st, err := p.Stream(context.Background(), tts.Request{Text: "hi", Voice: "BV001_streaming"})
	require.NoError(t, err)
	defer st.Close()

	var all []byte
	for {
		chunk, err := st.Read()
		require.NoError(t, err)
		if chunk == nil {
			break
		}
		all = append(all, chunk...)
	}
	assert.Equal(t, []byte("abcd"), all)
}

func TestProviderStreamMissingCredentials(t *testing.T) {
	p := volcano.NewProvider(volcano.NewClient(), nil, "")
	_, err := p.Stream(context.Background(), tts.Request{Text: "hi"})
	assert.Equal(t, tts.KindConfiguration, tts.KindOf(err))
}
