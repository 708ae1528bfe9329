package volcano

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"

	"github.com/teslashibe/go-tts/pkg/tts"
)

// Message types carried in the high nibble of header byte 1.
const (
	MsgFullClientRequest uint8 = 0x1
	MsgAudioOnlyResponse uint8 = 0xB
	MsgErrorResponse     uint8 = 0xF
)

const (
	protocolVersion   uint8 = 0x1
	serializationJSON uint8 = 0x1
	compressionGzip   uint8 = 0x1

	// FlagLastAudio marks the final chunk in the basic variant.
	FlagLastAudio uint8 = 0x3

	audioMetaLen = 8
)

// RequestHeader is the fixed header of every client frame: version 1,
// one header word, full client request, JSON, gzip.
var RequestHeader = Header{
	Version:       protocolVersion,
	Size:          1,
	MessageType:   MsgFullClientRequest,
	Flags:         0,
	Serialization: serializationJSON,
	Compression:   compressionGzip,
}

// Header is the 4-byte frame header, one field per nibble.
type Header struct {
	Version       uint8
	Size          uint8 // in 4-byte words
	MessageType   uint8
	Flags         uint8
	Serialization uint8
	Compression   uint8
}

// Len is the header length in bytes.
func (h Header) Len() int { return int(h.Size) * 4 }

// Bytes encodes the 4 fixed header bytes.
func (h Header) Bytes() []byte {
	return []byte{
		h.Version<<4 | h.Size&0x0f,
		h.MessageType<<4 | h.Flags&0x0f,
		h.Serialization<<4 | h.Compression&0x0f,
		0x00,
	}
}

// ParseHeader reads the fixed header fields of data.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < 4 {
		return Header{}, &ProtocolError{Reason: fmt.Sprintf("frame too short: %d bytes", len(data))}
	}
	h := Header{
		Version:       data[0] >> 4,
		Size:          data[0] & 0x0f,
		MessageType:   data[1] >> 4,
		Flags:         data[1] & 0x0f,
		Serialization: data[2] >> 4,
		Compression:   data[2] & 0x0f,
	}
	if h.Size == 0 || len(data) < h.Len() {
		return h, &ProtocolError{MessageType: h.MessageType, Reason: fmt.Sprintf("bad header size %d", h.Size)}
	}
	return h, nil
}

// Frame is a decoded inbound frame: Ack, AudioChunk or *ServiceError.
type Frame interface {
	frameType() string
}

// Ack acknowledges the request; audio follows.
type Ack struct{}

func (Ack) frameType() string { return "ack" }

// AudioChunk is one piece of synthesized audio.
type AudioChunk struct {
	Sequence     int32
	DeclaredSize uint32
	Payload      []byte
	Final        bool
}

func (AudioChunk) frameType() string { return "audio" }

// ServiceError is a failure reported by the backend. Message is already
// gunzipped; Compressed records that it arrived compressed.
type ServiceError struct {
	Code       int32
	Message    []byte
	Compressed bool
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("volcano: service error %d: %s", e.Code, e.Message)
}

// Kind implements the tts error classification.
func (e *ServiceError) Kind() tts.Kind { return tts.KindService }

func (*ServiceError) frameType() string { return "error" }

// ProtocolError is a frame the codec cannot interpret.
type ProtocolError struct {
	MessageType uint8
	Reason      string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("volcano: unknown message (type 0x%x): %s", e.MessageType, e.Reason)
}

// Kind implements the tts error classification.
func (e *ProtocolError) Kind() tts.Kind { return tts.KindProtocol }

// payload is the JSON body of a full client request.
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
		VoiceType   string  `json:"voice_type"`
		Encoding    string  `json:"encoding"`
		SpeedRatio  float64 `json:"speed_ratio,omitempty"`
		VolumeRatio float64 `json:"volume_ratio,omitempty"`
		PitchRatio  float64 `json:"pitch_ratio,omitempty"`
	} `json:"audio"`
	Request struct {
		ReqID     string `json:"reqid"`
		Text      string `json:"text"`
		TextType  string `json:"text_type"`
		Operation string `json:"operation"`
	} `json:"request"`
}

// EncodeRequest builds the single outbound frame for req:
// header, 4-byte big-endian payload length, gzip JSON payload.
func EncodeRequest(cfg Config, req Request) ([]byte, error) {
	var p payload
	p.App.AppID = cfg.AppID
	p.App.Token = cfg.AccessToken
	p.App.Cluster = cfg.Cluster
	p.User.UID = cfg.UserID
	p.Audio.VoiceType = req.VoiceID
	p.Audio.Encoding = cfg.Encoding
	p.Audio.SpeedRatio = cfg.SpeedRatio
	p.Audio.VolumeRatio = cfg.VolumeRatio
	p.Audio.PitchRatio = cfg.PitchRatio
	p.Request.ReqID = req.RequestID
	p.Request.Text = req.Text
	p.Request.TextType = "plain"
	p.Request.Operation = string(req.Operation)

	raw, err := sonic.Marshal(&p)
	if err != nil {
		return nil, fmt.Errorf("volcano: marshal request: %w", err)
	}
	compressed, err := gzipCompress(raw)
	if err != nil {
		return nil, fmt.Errorf("volcano: compress request: %w", err)
	}

	frame := make([]byte, 0, 8+len(compressed))
	frame = append(frame, RequestHeader.Bytes()...)
	frame = binary.BigEndian.AppendUint32(frame, uint32(len(compressed)))
	frame = append(frame, compressed...)
	return frame, nil
}

// DecodeFrame interprets one inbound frame under variant v.
func DecodeFrame(data []byte, v Variant) (Frame, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	body := data[h.Len():]

	switch h.MessageType {
	case MsgAudioOnlyResponse:
		if h.Flags == 0 {
			return Ack{}, nil
		}
		c, ok := v.decodeAudio(h.Flags, body)
		if !ok {
			return nil, &ProtocolError{MessageType: h.MessageType, Reason: "truncated audio metadata"}
		}
		return c, nil

	case MsgErrorResponse:
		if len(body) < audioMetaLen {
			return nil, &ProtocolError{MessageType: h.MessageType, Reason: "truncated error frame"}
		}
		code := int32(binary.BigEndian.Uint32(body[:4]))
		msg := body[audioMetaLen:]
		compressed := h.Compression == compressionGzip
		if compressed {
			plain, err := gzipDecompress(msg)
			if err != nil {
				return nil, &ProtocolError{MessageType: h.MessageType, Reason: "gunzip error message: " + err.Error()}
			}
			msg = plain
		}
		return &ServiceError{Code: code, Message: msg, Compressed: compressed}, nil

	default:
		return nil, &ProtocolError{MessageType: h.MessageType, Reason: "unexpected message type"}
	}
}

func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gzipDecompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
