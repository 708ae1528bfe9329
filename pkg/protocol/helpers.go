package protocol

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewSynthesizeMessage creates a synthesis request
func NewSynthesizeMessage(text, voice, protocol, operation string) (*Message, error) {
	return NewMessage(TypeSynthesize, SynthesizeData{
		Text:      text,
		Voice:     voice,
		Protocol:  protocol,
		Operation: operation,
	})
}

// NewCancelMessage creates a cancel request
func NewCancelMessage() (*Message, error) {
	return NewMessage(TypeCancel, nil)
}

// NewStartedMessage acknowledges a synthesis
func NewStartedMessage(id, voice string) (*Message, error) {
	return NewMessage(TypeStarted, StartedData{ID: id, Voice: voice})
}

// NewDoneMessage closes a successful synthesis
func NewDoneMessage(id string, bytes, latencyMs int64) (*Message, error) {
	return NewMessage(TypeDone, DoneData{
		ID:        id,
		Bytes:     bytes,
		LatencyMs: latencyMs,
	})
}

// NewErrorMessage reports a failure
func NewErrorMessage(id, kind, message string) (*Message, error) {
	return NewMessage(TypeError, ErrorData{
		ID:      id,
		Kind:    kind,
		Message: message,
	})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: 0, // Will be set by NewMessage
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetSynthesizeData extracts a synthesis request from a message
func (m *Message) GetSynthesizeData() (*SynthesizeData, error) {
	var data SynthesizeData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetStartedData extracts the acknowledgement from a message
func (m *Message) GetStartedData() (*StartedData, error) {
	var data StartedData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetDoneData extracts completion data from a message
func (m *Message) GetDoneData() (*DoneData, error) {
	var data DoneData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetErrorData extracts error data from a message
func (m *Message) GetErrorData() (*ErrorData, error) {
	var data ErrorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
