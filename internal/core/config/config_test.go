package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Empty path",
			input:    "",
			expected: "",
		},
		{
			name:     "Absolute path",
			input:    "/absolute/path",
			expected: "/absolute/path",
		},
		{
			name:     "Relative path",
			input:    "relative/path",
			expected: "relative/path",
		},
		{
			name:     "Home directory only",
			input:    "~",
			expected: home,
		},
		{
			name:     "Home directory with forward slash",
			input:    "~/models",
			expected: filepath.Join(home, "models"),
		},
		{
			name:     "Home directory with backslash (simulated)",
			input:    `~\models`,
			expected: filepath.Join(home, "models"),
		},
		{
			name:     "Invalid tilde use (no separator)",
			input:    "~user",
			expected: "~user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := expandPath(tt.input)
			if got != tt.expected {
				t.Errorf("expandPath(%q) = %q; want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{ASR: ASRConfig{BeamSize: 8}}
	cfg.ApplyDefaults()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d; want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.ASR.BeamSize != 8 {
		t.Errorf("ASR.BeamSize = %d; want explicit 8 kept", cfg.ASR.BeamSize)
	}
	if cfg.ASR.Engine != EngineWhisper {
		t.Errorf("ASR.Engine = %q; want %q", cfg.ASR.Engine, EngineWhisper)
	}
	if cfg.Fetcher.URLTemplate != DefaultURLTemplate {
		t.Errorf("Fetcher.URLTemplate = %q", cfg.Fetcher.URLTemplate)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "zero beam size",
			mutate:  func(c *Config) { c.ASR.BeamSize = -1 },
			wantErr: "beam_size",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "server.port",
		},
		{
			name:    "unknown engine",
			mutate:  func(c *Config) { c.ASR.Engine = "vosk" },
			wantErr: "unknown asr.engine",
		},
		{
			name:    "openai without key",
			mutate:  func(c *Config) { c.ASR.Engine = EngineOpenAI },
			wantErr: "api_key",
		},
		{
			name: "openai with key",
			mutate: func(c *Config) {
				c.ASR.Engine = EngineOpenAI
				c.OpenAI.APIKey = "sk-test"
			},
		},
		{
			name:    "url template without placeholder",
			mutate:  func(c *Config) { c.Fetcher.URLTemplate = "https://example.com/watch" },
			wantErr: "url_template",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v; want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v; want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	content := `
server:
  port: 9000
  max_concurrent: 4
asr:
  model: whisper-small
  beam_size: 3
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	t.Setenv("VSCRIBE_PORT", "9100")
	t.Setenv("VSCRIBE_MODEL", "")
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	cfg.ApplyDefaults()

	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d; want env override 9100", cfg.Server.Port)
	}
	if cfg.Server.MaxConcurrent != 4 {
		t.Errorf("Server.MaxConcurrent = %d; want 4 from file", cfg.Server.MaxConcurrent)
	}
	if cfg.ASR.Model != "whisper-small" {
		t.Errorf("ASR.Model = %q; want file value kept when env is empty", cfg.ASR.Model)
	}
	if cfg.ASR.BeamSize != 3 {
		t.Errorf("ASR.BeamSize = %d; want 3", cfg.ASR.BeamSize)
	}
}

func TestApplyEnvInvalidInt(t *testing.T) {
	t.Setenv("VSCRIBE_BEAM_SIZE", "wide")
	cfg := &Config{}
	if err := cfg.ApplyEnv(); err == nil {
		t.Fatal("ApplyEnv() = nil; want error for non-numeric VSCRIBE_BEAM_SIZE")
	}
}

func TestLoadOrDefaultWithConfigEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yml")
	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VSCRIBE_CONFIG", path)

	cfg, err := LoadOrDefault()
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q; want debug", cfg.Log.Level)
	}
	if cfg.ASR.BeamSize != DefaultBeamSize {
		t.Errorf("ASR.BeamSize = %d; want default %d", cfg.ASR.BeamSize, DefaultBeamSize)
	}
}

func TestLoadOrDefaultBrokenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VSCRIBE_CONFIG", path)

	if _, err := LoadOrDefault(); err == nil {
		t.Fatal("LoadOrDefault() = nil error; want parse error")
	}
}
