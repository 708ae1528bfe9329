package volcano

import (
	"log/slog"
	"time"

	"github.com/teslashibe/go-tts/internal/metrics"
	"github.com/teslashibe/go-tts/pkg/tts"
)

const (
	// DefaultEndpoint is the binary websocket synthesis endpoint.
	DefaultEndpoint = "wss://openspeech.bytedance.com/api/v1/tts/ws_binary"

	DefaultCluster  = "volcano_tts"
	DefaultUserID   = "666"
	DefaultEncoding = "mp3"

	providerName = "volcano"
)

// Operation is the request operation mode.
type Operation string

const (
	OperationSubmit Operation = "submit"
	OperationQuery  Operation = "query"
)

// ParseOperation maps an empty or unknown value to submit.
func ParseOperation(s string) Operation {
	if Operation(s) == OperationQuery {
		return OperationQuery
	}
	return OperationSubmit
}

// Config holds credentials and connection settings.
type Config struct {
	AppID       string
	AccessToken string
	UserID      string
	Cluster     string

	Endpoint string
	Encoding string

	// Optional prosody controls; zero leaves the server default.
	SpeedRatio  float64
	VolumeRatio float64
	PitchRatio  float64

	HandshakeTimeout time.Duration

	// CloseGrace bounds the wait for the server's close frame after
	// the client closes on the final chunk.
	CloseGrace time.Duration

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Option configures a Client.
type Option func(*Config)

// WithCredentials sets the app id and access token.
func WithCredentials(appID, accessToken string) Option {
	return func(c *Config) {
		c.AppID = appID
		c.AccessToken = accessToken
	}
}

// WithUserID sets the user id sent with every request.
func WithUserID(uid string) Option {
	return func(c *Config) {
		if uid != "" {
			c.UserID = uid
		}
	}
}

// WithCluster sets the service cluster.
func WithCluster(cluster string) Option {
	return func(c *Config) {
		if cluster != "" {
			c.Cluster = cluster
		}
	}
}

// WithEndpoint overrides the websocket endpoint.
func WithEndpoint(url string) Option {
	return func(c *Config) {
		if url != "" {
			c.Endpoint = url
		}
	}
}

// WithEncoding sets the audio encoding requested from the server.
func WithEncoding(enc string) Option {
	return func(c *Config) {
		if enc != "" {
			c.Encoding = enc
		}
	}
}

// WithCloseGrace sets how long to wait for the server close frame.
func WithCloseGrace(d time.Duration) Option {
	return func(c *Config) { c.CloseGrace = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithMetrics sets the collectors sessions report to.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Config) { c.Metrics = m }
}

// DefaultConfig returns a config without credentials.
func DefaultConfig() Config {
	return Config{
		UserID:           DefaultUserID,
		Cluster:          DefaultCluster,
		Endpoint:         DefaultEndpoint,
		Encoding:         DefaultEncoding,
		HandshakeTimeout: 10 * time.Second,
		CloseGrace:       2 * time.Second,
		Logger:           slog.Default(),
	}
}

// Validate reports the first missing credential.
func (c Config) Validate() error {
	if c.AppID == "" {
		return &tts.ConfigurationError{Provider: providerName, Field: "app_id"}
	}
	if c.AccessToken == "" {
		return &tts.ConfigurationError{Provider: providerName, Field: "access_token"}
	}
	return nil
}

// Request is one synthesis call. RequestID is filled per session.
type Request struct {
	Text      string
	VoiceID   string
	Operation Operation
	RequestID string
}
