package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/teslashibe/go-tts/internal/config"
	"github.com/teslashibe/go-tts/pkg/volcano/volcanotest"
)

// isolateEnv blanks credentials the host may carry. Empty values are
// ignored by the config loader.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"VOLCANO_TTS_APP_ID", "VOLCANO_TTS_ACCESS_TOKEN", "OPENAI_API_KEY",
		"GOTTS_VOLCANO_APP_ID", "GOTTS_VOLCANO_ACCESS_TOKEN", "GOTTS_OPENAI_API_KEY",
		"ELEVENLABS_API_KEY", "GOTTS_ELEVENLABS_API_KEY",
		"TTS_DEFAULT_SPEAKER", "GOTTS_TTS_DEFAULT_VOICE",
	} {
		t.Setenv(k, "")
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	orig := activeCfg
	t.Cleanup(func() { activeCfg = orig })

	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func TestNewRootCmd_HasExpectedSubcommands(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"serve", "synth", "voices"} {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected subcommand %q not found in root", name)
		}
	}
}

func TestNewRootCmd_HasPersistentFlags(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"config", "volcano-app-id", "server-listen-addr", "log-format"} {
		if root.PersistentFlags().Lookup(name) == nil {
			t.Errorf("expected --%s persistent flag to be registered", name)
		}
	}
}

func TestRequireConfig_FailsWhenNotInitialized(t *testing.T) {
	orig := activeCfg
	t.Cleanup(func() { activeCfg = orig })

	activeCfg = nil
	if _, err := requireConfig(); err == nil {
		t.Fatal("expected error when config is not loaded")
	}
}

func TestBuildClient(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.OpenAI.APIKey = "sk-test"
	cfg.TTS.AudioBasePath = t.TempDir()

	client, err := buildClient(cfg, nil)
	if err != nil {
		t.Fatalf("buildClient: %v", err)
	}
	providers := client.Registry().Providers()
	if len(providers) != 1 || providers[0].Name() != "openai" {
		t.Fatalf("providers = %v, want only openai", providers)
	}

	cfg.Volcano.AppID = "app"
	cfg.Volcano.AccessToken = "token"
	client, err = buildClient(cfg, nil)
	if err != nil {
		t.Fatalf("buildClient: %v", err)
	}
	if n := len(client.Registry().Providers()); n != 2 {
		t.Errorf("providers = %d, want 2", n)
	}
}

func TestBuildClient_MissingRulesFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.TTS.RulesFile = t.TempDir() + "/missing.yaml"

	if _, err := buildClient(cfg, nil); err == nil {
		t.Fatal("expected error for a missing rules file")
	}
}

func TestVoicesCmd_JSON(t *testing.T) {
	isolateEnv(t)

	out, err := run(t, "voices", "--json", "--provider", "openai", "--openai-api-key", "sk-test")
	if err != nil {
		t.Fatalf("voices: %v", err)
	}
	if !strings.Contains(out, `"alloy"`) {
		t.Errorf("output missing alloy voice: %s", out)
	}
	if strings.Contains(out, "BV700_streaming") {
		t.Errorf("volcano voices listed without credentials: %s", out)
	}
}

func TestVoicesCmd_Table(t *testing.T) {
	isolateEnv(t)

	out, err := run(t, "voices", "--volcano-app-id", "app", "--volcano-access-token", "token")
	if err != nil {
		t.Fatalf("voices: %v", err)
	}
	if !strings.HasPrefix(out, "PROVIDER") {
		t.Errorf("missing table header: %q", out)
	}
	if !strings.Contains(out, "BV700_streaming") {
		t.Errorf("volcano voice missing: %s", out)
	}
}

func TestSynthCmd_Streaming(t *testing.T) {
	isolateEnv(t)

	srv := volcanotest.NewServer(nil)
	defer srv.Close()

	out, err := run(t, "synth",
		"--volcano-app-id", "app",
		"--volcano-access-token", "token",
		"--volcano-endpoint", srv.URL(),
		"--protocol", "streaming",
		"--text", "hi",
		"--out", "-",
	)
	if err != nil {
		t.Fatalf("synth: %v", err)
	}
	if out != "[BV700_streaming]hi" {
		t.Errorf("audio = %q", out)
	}

	reqs := srv.Requests()
	if len(reqs) != 1 || reqs[0].AppID != "app" || reqs[0].Cluster != "volcano_tts" {
		t.Errorf("requests = %+v", reqs)
	}
}

func TestSynthCmd_NoProviders(t *testing.T) {
	isolateEnv(t)

	if _, err := run(t, "synth", "--text", "hi", "--out", "-"); err == nil {
		t.Fatal("expected error without any configured provider")
	}
}

func TestReadSynthText(t *testing.T) {
	got, err := readSynthText("  ", strings.NewReader("  from stdin \n"))
	if err != nil || got != "from stdin" {
		t.Errorf("readSynthText = %q, %v", got, err)
	}

	got, err = readSynthText("flag text", strings.NewReader("ignored"))
	if err != nil || got != "flag text" {
		t.Errorf("readSynthText = %q, %v", got, err)
	}
}
