package tts

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNoAPIKey is returned when the API key is missing.
	ErrNoAPIKey = errors.New("tts: API key required")

	// ErrNoVoiceID is returned when the voice ID is missing.
	ErrNoVoiceID = errors.New("tts: voice ID required")

	// ErrStreamClosed is returned when reading from a closed stream.
	ErrStreamClosed = errors.New("tts: stream closed")

	// ErrProviderUnavailable is returned when no providers are available.
	ErrProviderUnavailable = errors.New("tts: no providers available")

	// ErrAllProvidersFailed is returned when all providers in a chain fail.
	ErrAllProvidersFailed = errors.New("tts: all providers failed")

	// ErrUnknownVoice is returned when a voice cannot be resolved to any provider.
	ErrUnknownVoice = errors.New("tts: unknown voice")

	// ErrAborted is returned when the caller's context ends a synthesis.
	ErrAborted = errors.New("tts: synthesis aborted")
)

// Kind classifies a synthesis failure.
type Kind string

const (
	KindUnknown       Kind = "unknown"
	KindConfiguration Kind = "configuration"
	KindTransport     Kind = "transport"
	KindProtocol      Kind = "protocol"
	KindService       Kind = "service"
	KindAssetNotFound Kind = "asset_not_found"
	KindSegment       Kind = "segment"
	KindAborted       Kind = "aborted"
)

// kinded is implemented by errors that know their own Kind.
type kinded interface {
	Kind() Kind
}

// KindOf walks the error chain and returns the first Kind found.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	if errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindAborted
	}
	if errors.Is(err, ErrNoAPIKey) || errors.Is(err, ErrNoVoiceID) {
		return KindConfiguration
	}
	return KindUnknown
}

// ConfigurationError reports missing or invalid provider settings.
// No connection is attempted when it is returned.
type ConfigurationError struct {
	Provider string
	Field    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("tts [%s]: missing configuration %s", e.Provider, e.Field)
}

// Kind implements kinded.
func (e *ConfigurationError) Kind() Kind { return KindConfiguration }

// TransportError wraps a connect, send or socket failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("tts transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Kind implements kinded.
func (e *TransportError) Kind() Kind { return KindTransport }

// APIError represents an error response from a TTS API.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the API.
	Message string

	// Code is the error code from the API (if provided).
	Code string

	// Provider identifies which provider returned the error.
	Provider string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tts [%s]: API error %d (%s): %s", e.Provider, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("tts [%s]: API error %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Kind implements kinded.
func (e *APIError) Kind() Kind {
	if e.IsUnauthorized() || e.IsForbidden() {
		return KindConfiguration
	}
	return KindService
}

// IsRateLimited returns true if this is a rate limit error (HTTP 429).
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == 429
}

// IsUnauthorized returns true if this is an authentication error (HTTP 401).
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401
}

// IsForbidden returns true if this is a permission error (HTTP 403).
func (e *APIError) IsForbidden() bool {
	return e.StatusCode == 403
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// IsRetryable returns true if the request should be retried.
func (e *APIError) IsRetryable() bool {
	return e.IsRateLimited() || e.IsServerError()
}

// ProviderError wraps an error with provider context.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("tts [%s]: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with provider context.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}
