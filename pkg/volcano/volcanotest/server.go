// Package volcanotest provides a fake binary TTS endpoint for tests.
package volcanotest

import (
	"bytes"
	"encoding/binary"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzip"

	"github.com/teslashibe/go-tts/pkg/volcano"
)

// Request is a decoded client request frame.
type Request struct {
	Authorization string
	AppID         string
	Token         string
	Cluster       string
	UserID        string
	Voice         string
	Encoding      string
	RequestID     string
	Text          string
	TextType      string
	Operation     string
}

type payload struct {
	App struct {
		AppID   string `json:"appid"`
		Token   string `json:"token"`
		Cluster string `json:"cluster"`
	} `json:"app"`
	User struct {
		UID string `json:"uid"`
	} `json:"user"`
	Audio struct {
		VoiceType string `json:"voice_type"`
		Encoding  string `json:"encoding"`
	} `json:"audio"`
	Request struct {
		ReqID     string `json:"reqid"`
		Text      string `json:"text"`
		TextType  string `json:"text_type"`
		Operation string `json:"operation"`
	} `json:"request"`
}

// Handler returns the frames to send for one request.
type Handler func(Request) [][]byte

// Server is a websocket endpoint speaking the binary protocol.
type Server struct {
	*httptest.Server

	handler  Handler
	upgrader websocket.Upgrader

	mu       sync.Mutex
	requests []Request
}

// NewServer starts a server. A nil handler uses Echo.
func NewServer(h Handler) *Server {
	if h == nil {
		h = Echo
	}
	s := &Server{handler: h}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// URL returns the websocket URL of the server.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.Server.URL, "http")
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	_, data, err := conn.ReadMessage()
	if err != nil {
		return
	}
	req, err := decode(data)
	if err != nil {
		_ = conn.WriteMessage(websocket.BinaryMessage, ErrorFrame(40000, err.Error()))
		return
	}
	req.Authorization = r.Header.Get("Authorization")

	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	for _, f := range s.handler(req) {
		if err := conn.WriteMessage(websocket.BinaryMessage, f); err != nil {
			return
		}
	}

	// Drain until the client closes so the close handshake completes.
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func decode(frame []byte) (Request, error) {
	h, err := volcano.ParseHeader(frame)
	if err != nil {
		return Request{}, err
	}
	body := frame[h.Len():]
	if len(body) < 4 {
		return Request{}, io.ErrUnexpectedEOF
	}
	zr, err := gzip.NewReader(bytes.NewReader(body[4:]))
	if err != nil {
		return Request{}, err
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		return Request{}, err
	}
	var p payload
	if err := sonic.Unmarshal(raw, &p); err != nil {
		return Request{}, err
	}
	return Request{
		AppID:     p.App.AppID,
		Token:     p.App.Token,
		Cluster:   p.App.Cluster,
		UserID:    p.User.UID,
		Voice:     p.Audio.VoiceType,
		Encoding:  p.Audio.Encoding,
		RequestID: p.Request.ReqID,
		Text:      p.Request.Text,
		TextType:  p.Request.TextType,
		Operation: p.Request.Operation,
	}, nil
}

// Echo answers with an ack, "[voice]" as the first chunk and the text as
// the last. The last chunk carries a negative sequence and the last-audio
// flag, so it ends both dialects.
func Echo(req Request) [][]byte {
	return [][]byte{
		AckFrame(),
		AudioFrame(1, false, []byte("["+req.Voice+"]")),
		AudioFrame(-2, true, []byte(req.Text)),
	}
}

// AckFrame is an audio-only response without a sequence.
func AckFrame() []byte {
	return header(volcano.MsgAudioOnlyResponse, 0, 0)
}

// AudioFrame is an audio-only response carrying audio.
func AudioFrame(seq int32, last bool, audio []byte) []byte {
	flags := uint8(1)
	if last {
		flags = volcano.FlagLastAudio
	}
	b := header(volcano.MsgAudioOnlyResponse, flags, 0)
	b = binary.BigEndian.AppendUint32(b, uint32(seq))
	b = binary.BigEndian.AppendUint32(b, uint32(len(audio)))
	return append(b, audio...)
}

// ErrorFrame is an uncompressed error response.
func ErrorFrame(code int32, msg string) []byte {
	b := header(volcano.MsgErrorResponse, 0, 0)
	b = binary.BigEndian.AppendUint32(b, uint32(code))
	b = binary.BigEndian.AppendUint32(b, uint32(len(msg)))
	return append(b, msg...)
}

func header(msgType, flags, compression uint8) []byte {
	h := volcano.Header{
		Version:       1,
		Size:          1,
		MessageType:   msgType,
		Flags:         flags,
		Serialization: 1,
		Compression:   compression,
	}
	return h.Bytes()
}
