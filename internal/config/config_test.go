package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/crystalford/canopticon-sub002/internal/model"
)

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env.local")

	content := `# comment line
FOO_TEST_KEY=hello
BAR_TEST_KEY="quoted value"
BAZ_TEST_KEY='single quoted'

EMPTY_LINE_ABOVE=works
NO_VALUE_LINE
`
	if err := os.WriteFile(envFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	for _, k := range []string{"FOO_TEST_KEY", "BAR_TEST_KEY", "BAZ_TEST_KEY", "EMPTY_LINE_ABOVE"} {
		os.Unsetenv(k)
	}

	loadEnvFile(envFile)
	t.Cleanup(func() {
		for _, k := range []string{"FOO_TEST_KEY", "BAR_TEST_KEY", "BAZ_TEST_KEY", "EMPTY_LINE_ABOVE"} {
			os.Unsetenv(k)
		}
	})

	tests := []struct {
		key  string
		want string
	}{
		{"FOO_TEST_KEY", "hello"},
		{"BAR_TEST_KEY", "quoted value"},
		{"BAZ_TEST_KEY", "single quoted"},
		{"EMPTY_LINE_ABOVE", "works"},
	}
	for _, tt := range tests {
		if got := os.Getenv(tt.key); got != tt.want {
			t.Errorf("os.Getenv(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestLoadEnvFile_RealEnvTakesPrecedence(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env.local")

	if err := os.WriteFile(envFile, []byte("PRECEDENCE_TEST=from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}

	os.Setenv("PRECEDENCE_TEST", "from-env")
	t.Cleanup(func() { os.Unsetenv("PRECEDENCE_TEST") })

	loadEnvFile(envFile)

	if got := os.Getenv("PRECEDENCE_TEST"); got != "from-env" {
		t.Errorf("env var = %q, want %q (real env should take precedence)", got, "from-env")
	}
}

func TestLoadEnvFile_MissingFile(t *testing.T) {
	loadEnvFile("/nonexistent/path/.env.local")
}

func TestLoad_Defaults(t *testing.T) {
	envKeys := []string{
		"PORT", "DB_PATH", "SOURCES_PATH", "LLM_PROVIDER",
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL",
		"GEMINI_API_KEY", "GEMINI_MODEL",
		"OLLAMA_URL", "OLLAMA_MODEL",
		"SIGNIFICANCE_THRESHOLD", "GRACE_WINDOW", "ENABLE_AUTO_PUBLISH", "BATCH_SIZE",
		"FETCH_TIMEOUT", "MODEL_TIMEOUT", "STALL_WINDOW", "CYCLE_INTERVAL",
		"LOG_RETENTION", "CORS_ORIGIN",
	}
	saved := make(map[string]string)
	for _, k := range envKeys {
		saved[k] = os.Getenv(k)
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for _, k := range envKeys {
			if v := saved[k]; v != "" {
				os.Setenv(k, v)
			} else {
				os.Unsetenv(k)
			}
		}
	})

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.LLMProvider != "openai" {
		t.Errorf("LLMProvider = %q, want %q", cfg.LLMProvider, "openai")
	}
	if cfg.OpenAIBaseURL != "https://api.openai.com/v1" {
		t.Errorf("OpenAIBaseURL = %q, want default", cfg.OpenAIBaseURL)
	}
	if cfg.SignificanceThreshold != 65 {
		t.Errorf("SignificanceThreshold = %d, want 65", cfg.SignificanceThreshold)
	}
	if cfg.GraceWindow != time.Hour {
		t.Errorf("GraceWindow = %v, want 1h", cfg.GraceWindow)
	}
	if cfg.EnableAutoPublish {
		t.Error("EnableAutoPublish should default to false")
	}
	if cfg.BatchSize != 20 {
		t.Errorf("BatchSize = %d, want 20", cfg.BatchSize)
	}
	if cfg.FetchTimeout != 8*time.Second {
		t.Errorf("FetchTimeout = %v, want 8s", cfg.FetchTimeout)
	}
	if cfg.StallWindow != 10*time.Minute {
		t.Errorf("StallWindow = %v, want 10m", cfg.StallWindow)
	}
	if cfg.CycleInterval != 0 {
		t.Errorf("CycleInterval = %v, want 0 (manual only)", cfg.CycleInterval)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	os.Setenv("SIGNIFICANCE_THRESHOLD", "80")
	os.Setenv("ENABLE_AUTO_PUBLISH", "true")
	os.Setenv("CYCLE_INTERVAL", "15m")
	t.Cleanup(func() {
		os.Unsetenv("SIGNIFICANCE_THRESHOLD")
		os.Unsetenv("ENABLE_AUTO_PUBLISH")
		os.Unsetenv("CYCLE_INTERVAL")
	})

	cfg := Load()

	if cfg.SignificanceThreshold != 80 {
		t.Errorf("SignificanceThreshold = %d, want 80", cfg.SignificanceThreshold)
	}
	if !cfg.EnableAutoPublish {
		t.Error("EnableAutoPublish = false, want true")
	}
	if cfg.CycleInterval != 15*time.Minute {
		t.Errorf("CycleInterval = %v, want 15m", cfg.CycleInterval)
	}
}

func TestUseStubs(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantStub bool
	}{
		{"openai without key", Config{LLMProvider: "openai"}, true},
		{"openai with key", Config{LLMProvider: "openai", OpenAIKey: "sk-x"}, false},
		{"gemini without key", Config{LLMProvider: "gemini"}, true},
		{"gemini with key", Config{LLMProvider: "gemini", GeminiKey: "key"}, false},
		{"ollama always false", Config{LLMProvider: "ollama"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.UseStubs(); got != tt.wantStub {
				t.Errorf("UseStubs() = %v, want %v", got, tt.wantStub)
			}
		})
	}
}

func TestEnvDuration_Invalid(t *testing.T) {
	os.Setenv("TEST_DUR_INVALID", "not-a-duration")
	t.Cleanup(func() { os.Unsetenv("TEST_DUR_INVALID") })

	got := envDuration("TEST_DUR_INVALID", 5*time.Second)
	if got != 5*time.Second {
		t.Errorf("envDuration with invalid value = %v, want fallback 5s", got)
	}
}

func TestEnvBool_Invalid(t *testing.T) {
	os.Setenv("TEST_BOOL_INVALID", "yes-please")
	t.Cleanup(func() { os.Unsetenv("TEST_BOOL_INVALID") })

	if got := envBool("TEST_BOOL_INVALID", true); got != true {
		t.Error("envBool with invalid value should return fallback")
	}
}

func TestLoadSources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	content := `sources:
  - id: example-rss
    name: Example Feed
    url: https://example.com/rss
    kind: rss
    priority: 5
  - id: example-api
    url: https://example.com/api
    kind: api
    active: false
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	sources, err := LoadSources(path)
	if err != nil {
		t.Fatalf("LoadSources: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("sources = %d, want 2", len(sources))
	}
	if sources[0].Kind != model.SourceKindRSS || !sources[0].Active {
		t.Errorf("first source = %+v, want active rss", sources[0])
	}
	if sources[1].Name != "example-api" {
		t.Errorf("Name = %q, want id fallback", sources[1].Name)
	}
	if sources[1].Active {
		t.Error("second source should be inactive")
	}
}

func TestLoadSources_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"unknown kind", "sources:\n  - id: a\n    url: https://x\n    kind: telegraph\n"},
		{"missing id", "sources:\n  - url: https://x\n    kind: rss\n"},
		{"missing url", "sources:\n  - id: a\n    kind: rss\n"},
		{"duplicate id", "sources:\n  - id: a\n    url: https://x\n    kind: rss\n  - id: a\n    url: https://y\n    kind: rss\n"},
		{"bad yaml", "sources: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "bad.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadSources(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadSources_MissingFile(t *testing.T) {
	if _, err := LoadSources("/nonexistent/sources.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}
