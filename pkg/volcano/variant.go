package volcano

import "encoding/binary"

// Variant selects the server dialect. Both share the header and transport
// and differ in audio metadata layout and the final-chunk signal.
type Variant interface {
	// Name is used in logs and metric labels.
	Name() string

	// decodeAudio reports ok=false when body is too short to decode.
	decodeAudio(flags uint8, body []byte) (c AudioChunk, ok bool)

	// terminal reports whether c ends the session.
	terminal(c AudioChunk) bool
}

var (
	// Basic ignores the audio metadata; flag 3 marks the last chunk.
	Basic Variant = basicVariant{}

	// Extended reads a signed sequence number and a declared size;
	// a negative sequence marks the last chunk.
	Extended Variant = extendedVariant{}
)

type basicVariant struct{}

func (basicVariant) Name() string { return "basic" }

// Metadata shorter than eight bytes yields an empty chunk, which is ignored.
func (basicVariant) decodeAudio(flags uint8, body []byte) (AudioChunk, bool) {
	var payload []byte
	if len(body) > audioMetaLen {
		payload = body[audioMetaLen:]
	}
	return AudioChunk{
		Payload: payload,
		Final:   flags == FlagLastAudio,
	}, true
}

// A flagged final frame without audio is ignored like any empty chunk.
func (basicVariant) terminal(c AudioChunk) bool {
	return c.Final && len(c.Payload) > 0
}

type extendedVariant struct{}

func (extendedVariant) Name() string { return "extended" }

// The sequence decides termination, so short metadata cannot be decoded.
func (extendedVariant) decodeAudio(_ uint8, body []byte) (AudioChunk, bool) {
	if len(body) < audioMetaLen {
		return AudioChunk{}, false
	}
	seq := int32(binary.BigEndian.Uint32(body[0:4]))
	return AudioChunk{
		Sequence:     seq,
		DeclaredSize: binary.BigEndian.Uint32(body[4:8]),
		Payload:      body[audioMetaLen:],
		Final:        seq < 0,
	}, true
}

func (extendedVariant) terminal(c AudioChunk) bool {
	return c.Final
}
