// Package config loads go-tts settings from flags, environment, .env files
// and an optional config file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Volcano    VolcanoConfig    `mapstructure:"volcano"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	ElevenLabs ElevenLabsConfig `mapstructure:"elevenlabs"`
	TTS        TTSConfig        `mapstructure:"tts"`
	Server     ServerConfig     `mapstructure:"server"`
	LogLevel   string           `mapstructure:"log_level"`
	LogFormat  string           `mapstructure:"log_format"`
}

type VolcanoConfig struct {
	AppID       string `mapstructure:"app_id"`
	AccessToken string `mapstructure:"access_token"`
	UserID      string `mapstructure:"user_id"`
	Cluster     string `mapstructure:"cluster"`
	Endpoint    string `mapstructure:"endpoint"`
	Encoding    string `mapstructure:"encoding"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type ElevenLabsConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type TTSConfig struct {
	DefaultVoice  string `mapstructure:"default_voice"`
	DefaultText   string `mapstructure:"default_text"`
	AudioBasePath string `mapstructure:"audio_base_path"`
	RulesFile     string `mapstructure:"rules_file"`
}

type ServerConfig struct {
	ListenAddr     string        `mapstructure:"listen_addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config

	// EnvFiles are loaded into the process environment before binding.
	// Missing files are ignored. Empty means ".env".
	EnvFiles []string
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

// Configured reports whether both volcano credentials are set.
func (c VolcanoConfig) Configured() bool {
	return c.AppID != "" && c.AccessToken != ""
}

// Configured reports whether an API key is set.
func (c OpenAIConfig) Configured() bool {
	return c.APIKey != ""
}

// Configured reports whether an API key is set.
func (c ElevenLabsConfig) Configured() bool {
	return c.APIKey != ""
}

func DefaultConfig() Config {
	return Config{
		Volcano: VolcanoConfig{
			UserID:   "666",
			Cluster:  "volcano_tts",
			Endpoint: "wss://openspeech.bytedance.com/api/v1/tts/ws_binary",
			Encoding: "mp3",
		},
		OpenAI: OpenAIConfig{
			Model:   "tts-1",
			BaseURL: "https://api.openai.com/v1",
		},
		ElevenLabs: ElevenLabsConfig{
			Model:   "eleven_turbo_v2_5",
			BaseURL: "https://api.elevenlabs.io/v1",
		},
		TTS: TTSConfig{
			DefaultVoice:  "BV700_streaming",
			AudioBasePath: "audio",
		},
		Server: ServerConfig{
			ListenAddr:     ":3000",
			RequestTimeout: 60 * time.Second,
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("volcano-app-id", defaults.Volcano.AppID, "Volcano TTS application id")
	fs.String("volcano-access-token", defaults.Volcano.AccessToken, "Volcano TTS access token")
	fs.String("volcano-user-id", defaults.Volcano.UserID, "User id sent with each request")
	fs.String("volcano-cluster", defaults.Volcano.Cluster, "Volcano TTS cluster")
	fs.String("volcano-endpoint", defaults.Volcano.Endpoint, "Volcano TTS websocket endpoint")
	fs.String("volcano-encoding", defaults.Volcano.Encoding, "Requested audio encoding")
	fs.String("openai-api-key", defaults.OpenAI.APIKey, "OpenAI API key")
	fs.String("openai-model", defaults.OpenAI.Model, "OpenAI speech model")
	fs.String("openai-base-url", defaults.OpenAI.BaseURL, "OpenAI API base URL")
	fs.String("elevenlabs-api-key", defaults.ElevenLabs.APIKey, "ElevenLabs API key")
	fs.String("elevenlabs-model", defaults.ElevenLabs.Model, "ElevenLabs model id")
	fs.String("elevenlabs-base-url", defaults.ElevenLabs.BaseURL, "ElevenLabs API base URL")
	fs.String("tts-default-voice", defaults.TTS.DefaultVoice, "Voice used when the requested one is unknown")
	fs.String("tts-default-text", defaults.TTS.DefaultText, "Text synthesized for empty requests")
	fs.String("tts-audio-base-path", defaults.TTS.AudioBasePath, "Directory holding audio assets referenced by rules")
	fs.String("tts-rules-file", defaults.TTS.RulesFile, "YAML file of replacement rules")
	fs.String("server-listen-addr", defaults.Server.ListenAddr, "HTTP listen address")
	fs.Duration("server-request-timeout", defaults.Server.RequestTimeout, "Per-request synthesis timeout")
	fs.String("log-level", defaults.LogLevel, "Log level: debug, info, warn, error")
	fs.String("log-format", defaults.LogFormat, "Log format: text or json")
}

func Load(opts LoadOptions) (Config, error) {
	if err := loadEnvFiles(opts.EnvFiles); err != nil {
		return Config{}, err
	}

	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, err
		}
	}

	v.SetEnvPrefix("GOTTS")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	if err := bindLegacyEnv(v); err != nil {
		return Config{}, err
	}
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("gotts")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Server.ListenAddr = normalizeListenAddr(cfg.Server.ListenAddr)

	return cfg, nil
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	return nil
}

// legacyEnv maps keys to the variable names used by existing deployments.
var legacyEnv = map[string][]string{
	"volcano.app_id":       {"GOTTS_VOLCANO_APP_ID", "VOLCANO_TTS_APP_ID"},
	"volcano.access_token": {"GOTTS_VOLCANO_ACCESS_TOKEN", "VOLCANO_TTS_ACCESS_TOKEN"},
	"volcano.user_id":      {"GOTTS_VOLCANO_USER_ID", "VOLCANO_TTS_USER_ID"},
	"openai.api_key":       {"GOTTS_OPENAI_API_KEY", "OPENAI_API_KEY"},
	"openai.model":         {"GOTTS_OPENAI_MODEL", "OPENAI_TTS_MODEL"},
	"openai.base_url":      {"GOTTS_OPENAI_BASE_URL", "OPENAI_BASE_URL"},
	"elevenlabs.api_key":   {"GOTTS_ELEVENLABS_API_KEY", "ELEVENLABS_API_KEY"},
	"tts.default_voice":    {"GOTTS_TTS_DEFAULT_VOICE", "TTS_DEFAULT_SPEAKER"},
	"server.listen_addr":   {"GOTTS_SERVER_LISTEN_ADDR", "PORT"},
}

func bindLegacyEnv(v *viper.Viper) error {
	for key, names := range legacyEnv {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("bind %s env vars: %w", key, err)
		}
	}
	return nil
}

// normalizeListenAddr turns a bare port, as PORT carries it, into ":port".
func normalizeListenAddr(addr string) string {
	if addr != "" && !strings.Contains(addr, ":") {
		return ":" + addr
	}
	return addr
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("volcano.app_id", c.Volcano.AppID)
	v.SetDefault("volcano.access_token", c.Volcano.AccessToken)
	v.SetDefault("volcano.user_id", c.Volcano.UserID)
	v.SetDefault("volcano.cluster", c.Volcano.Cluster)
	v.SetDefault("volcano.endpoint", c.Volcano.Endpoint)
	v.SetDefault("volcano.encoding", c.Volcano.Encoding)
	v.SetDefault("openai.api_key", c.OpenAI.APIKey)
	v.SetDefault("openai.model", c.OpenAI.Model)
	v.SetDefault("openai.base_url", c.OpenAI.BaseURL)
	v.SetDefault("elevenlabs.api_key", c.ElevenLabs.APIKey)
	v.SetDefault("elevenlabs.model", c.ElevenLabs.Model)
	v.SetDefault("elevenlabs.base_url", c.ElevenLabs.BaseURL)
	v.SetDefault("tts.default_voice", c.TTS.DefaultVoice)
	v.SetDefault("tts.default_text", c.TTS.DefaultText)
	v.SetDefault("tts.audio_base_path", c.TTS.AudioBasePath)
	v.SetDefault("tts.rules_file", c.TTS.RulesFile)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.request_timeout", c.Server.RequestTimeout)
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("log_format", c.LogFormat)
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"volcano-app-id":         "volcano.app_id",
	"volcano-access-token":   "volcano.access_token",
	"volcano-user-id":        "volcano.user_id",
	"volcano-cluster":        "volcano.cluster",
	"volcano-endpoint":       "volcano.endpoint",
	"volcano-encoding":       "volcano.encoding",
	"openai-api-key":         "openai.api_key",
	"openai-model":           "openai.model",
	"openai-base-url":        "openai.base_url",
	"elevenlabs-api-key":     "elevenlabs.api_key",
	"elevenlabs-model":       "elevenlabs.model",
	"elevenlabs-base-url":    "elevenlabs.base_url",
	"tts-default-voice":      "tts.default_voice",
	"tts-default-text":       "tts.default_text",
	"tts-audio-base-path":    "tts.audio_base_path",
	"tts-rules-file":         "tts.rules_file",
	"server-listen-addr":     "server.listen_addr",
	"server-request-timeout": "server.request_timeout",
	"log-level":              "log_level",
	"log-format":             "log_format",
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}
