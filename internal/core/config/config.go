package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ConfigFileName = "config.yml"
	AppDirName     = "vscribe"
)

// Engine names accepted in asr.engine.
const (
	EngineWhisper = "whisper"
	EngineOpenAI  = "openai"
)

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "VSCRIBE_CONFIG"

// Defaults
const (
	DefaultPort          = 8000
	DefaultHost          = "127.0.0.1"
	DefaultMaxConcurrent = 2
	DefaultQueueSize     = 16
	DefaultBeamSize      = 5
	DefaultModel         = "whisper-tiny"
	DefaultURLTemplate   = "https://www.youtube.com/watch?v=%s"
	DefaultAudioFormat   = "bestaudio/best"
)

// ConfigDir returns the standard config directory for vscribe.
// Windows: %APPDATA%\vscribe\
// macOS/Linux: ~/.config/vscribe/
func ConfigDir() (string, error) {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, AppDirName), nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppDirName), nil
}

// ConfigPath returns the path to the config file.
// e.g., ~/.config/vscribe/config.yml
func ConfigPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return expandPath(p), nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

type Config struct {
	// Server configuration for `vscribe serve`
	Server ServerConfig `yaml:"server,omitempty"`

	// Fetcher configures audio retrieval via yt-dlp
	Fetcher FetcherConfig `yaml:"fetcher,omitempty"`

	// ASR configures the speech recognition engine
	ASR ASRConfig `yaml:"asr,omitempty"`

	// OpenAI is only used when asr.engine is "openai"
	OpenAI OpenAIConfig `yaml:"openai,omitempty"`

	Log LogConfig `yaml:"log,omitempty"`

	// TempDir holds per-request scratch files (default: os.TempDir())
	TempDir string `yaml:"temp_dir,omitempty"`
}

// ServerConfig holds HTTP server settings for `vscribe serve`
type ServerConfig struct {
	// Host is the listen address (default: 127.0.0.1)
	Host string `yaml:"host,omitempty"`

	// Port is the HTTP listen port (default: 8000)
	Port int `yaml:"port,omitempty"`

	// MaxConcurrent is the number of pipeline workers (default: 2)
	MaxConcurrent int `yaml:"max_concurrent,omitempty"`

	// QueueSize is how many requests may wait for a worker (default: 16)
	QueueSize int `yaml:"queue_size,omitempty"`
}

// FetcherConfig holds yt-dlp settings
type FetcherConfig struct {
	// YtdlpPath is the yt-dlp binary (default: "yt-dlp" from PATH)
	YtdlpPath string `yaml:"ytdlp_path,omitempty"`

	// FFmpegPath is the ffmpeg binary. When missing, the embedded WASM ffmpeg is used.
	FFmpegPath string `yaml:"ffmpeg_path,omitempty"`

	// URLTemplate turns a video id into a URL, must contain one %s
	URLTemplate string `yaml:"url_template,omitempty"`

	// Format is the yt-dlp format selector (default: bestaudio/best)
	Format string `yaml:"format,omitempty"`

	// ExtraArgs are appended to the yt-dlp command line
	ExtraArgs []string `yaml:"extra_args,omitempty"`
}

// ASRConfig holds speech recognition settings
type ASRConfig struct {
	// Engine is "whisper" (local whisper.cpp) or "openai"
	Engine string `yaml:"engine,omitempty"`

	// Model name, e.g. "whisper-tiny", "whisper-small" or a ggml file name
	Model string `yaml:"model,omitempty"`

	// ModelsDir is where ggml models live (default: ~/.config/vscribe/models)
	ModelsDir string `yaml:"models_dir,omitempty"`

	// Language forces a language code; "auto" or empty detects it
	Language string `yaml:"language,omitempty"`

	// BeamSize is the decoder beam width (default: 5)
	BeamSize int `yaml:"beam_size,omitempty"`

	// Threads used by whisper.cpp (default: NumCPU capped at 8)
	Threads int `yaml:"threads,omitempty"`

	// WhisperCLI is the whisper.cpp binary used by builds without cgo
	WhisperCLI string `yaml:"whisper_cli,omitempty"`
}

// OpenAIConfig holds OpenAI transcription API settings
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model,omitempty"`
}

// LogConfig holds logger settings
type LogConfig struct {
	// Level is debug, info, warn or error (default: info)
	Level string `yaml:"level,omitempty"`

	// Format is "console" or "json" (default: console)
	Format string `yaml:"format,omitempty"`
}

// DefaultModelsDir returns ~/.config/vscribe/models
func DefaultModelsDir() string {
	dir, err := ConfigDir()
	if err != nil {
		return "models"
	}
	return filepath.Join(dir, "models")
}

// IsRunningInDocker detects if we're running inside a Docker container
func IsRunningInDocker() bool {
	// Check for .dockerenv file
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	// Check cgroup
	if data, err := os.ReadFile("/proc/1/cgroup"); err == nil {
		content := string(data)
		if strings.Contains(content, "docker") || strings.Contains(content, "containerd") {
			return true
		}
	}
	// Check for kubernetes
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true
	}
	return false
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	host := DefaultHost
	// Inside a container the port is published, so listen on all interfaces
	if IsRunningInDocker() {
		host = "0.0.0.0"
	}

	return &Config{
		Server: ServerConfig{
			Host:          host,
			Port:          DefaultPort,
			MaxConcurrent: DefaultMaxConcurrent,
			QueueSize:     DefaultQueueSize,
		},
		Fetcher: FetcherConfig{
			YtdlpPath:   "yt-dlp",
			URLTemplate: DefaultURLTemplate,
			Format:      DefaultAudioFormat,
		},
		ASR: ASRConfig{
			Engine:     EngineWhisper,
			Model:      DefaultModel,
			ModelsDir:  DefaultModelsDir(),
			Language:   "auto",
			BeamSize:   DefaultBeamSize,
			WhisperCLI: "whisper-cli",
		},
		OpenAI: OpenAIConfig{
			Model: "whisper-1",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// ApplyDefaults fills zero values with defaults.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()

	if c.Server.Host == "" {
		c.Server.Host = d.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.MaxConcurrent <= 0 {
		c.Server.MaxConcurrent = d.Server.MaxConcurrent
	}
	if c.Server.QueueSize <= 0 {
		c.Server.QueueSize = d.Server.QueueSize
	}
	if c.Fetcher.YtdlpPath == "" {
		c.Fetcher.YtdlpPath = d.Fetcher.YtdlpPath
	}
	if c.Fetcher.URLTemplate == "" {
		c.Fetcher.URLTemplate = d.Fetcher.URLTemplate
	}
	if c.Fetcher.Format == "" {
		c.Fetcher.Format = d.Fetcher.Format
	}
	if c.ASR.Engine == "" {
		c.ASR.Engine = d.ASR.Engine
	}
	if c.ASR.Model == "" {
		c.ASR.Model = d.ASR.Model
	}
	if c.ASR.ModelsDir == "" {
		c.ASR.ModelsDir = d.ASR.ModelsDir
	}
	if c.ASR.Language == "" {
		c.ASR.Language = d.ASR.Language
	}
	if c.ASR.BeamSize == 0 {
		c.ASR.BeamSize = d.ASR.BeamSize
	}
	if c.ASR.WhisperCLI == "" {
		c.ASR.WhisperCLI = d.ASR.WhisperCLI
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = d.OpenAI.Model
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.ASR.BeamSize <= 0 {
		return fmt.Errorf("asr.beam_size must be positive, got %d", c.ASR.BeamSize)
	}
	switch c.ASR.Engine {
	case EngineWhisper:
	case EngineOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("asr.engine is %q but openai.api_key is not set", EngineOpenAI)
		}
	default:
		return fmt.Errorf("unknown asr.engine %q (want %q or %q)", c.ASR.Engine, EngineWhisper, EngineOpenAI)
	}
	if strings.Count(c.Fetcher.URLTemplate, "%s") != 1 {
		return fmt.Errorf("fetcher.url_template must contain exactly one %%s: %q", c.Fetcher.URLTemplate)
	}
	return nil
}

// Exists checks if config file exists
func Exists() bool {
	path, err := ConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Load reads the config from ~/.config/vscribe/config.yml
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads the config from path without applying defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg.TempDir = expandPath(cfg.TempDir)
	cfg.ASR.ModelsDir = expandPath(cfg.ASR.ModelsDir)

	return cfg, nil
}

// ApplyEnv overrides settings from VSCRIBE_* variables and OPENAI_API_KEY.
// A .env file in the working directory is loaded first; variables already
// set in the environment win over it.
func (c *Config) ApplyEnv() error {
	// Missing .env is the common case
	_ = godotenv.Load()

	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) error {
		v := os.Getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", key, v, err)
		}
		*dst = n
		return nil
	}

	setString("VSCRIBE_HOST", &c.Server.Host)
	if err := setInt("VSCRIBE_PORT", &c.Server.Port); err != nil {
		return err
	}
	if err := setInt("VSCRIBE_MAX_CONCURRENT", &c.Server.MaxConcurrent); err != nil {
		return err
	}
	if err := setInt("VSCRIBE_QUEUE_SIZE", &c.Server.QueueSize); err != nil {
		return err
	}
	setString("VSCRIBE_YTDLP", &c.Fetcher.YtdlpPath)
	setString("VSCRIBE_FFMPEG", &c.Fetcher.FFmpegPath)
	setString("VSCRIBE_ENGINE", &c.ASR.Engine)
	setString("VSCRIBE_MODEL", &c.ASR.Model)
	setString("VSCRIBE_MODELS_DIR", &c.ASR.ModelsDir)
	setString("VSCRIBE_LANGUAGE", &c.ASR.Language)
	setString("VSCRIBE_WHISPER_CLI", &c.ASR.WhisperCLI)
	if err := setInt("VSCRIBE_BEAM_SIZE", &c.ASR.BeamSize); err != nil {
		return err
	}
	if err := setInt("VSCRIBE_THREADS", &c.ASR.Threads); err != nil {
		return err
	}
	setString("OPENAI_API_KEY", &c.OpenAI.APIKey)
	setString("OPENAI_BASE_URL", &c.OpenAI.BaseURL)
	setString("VSCRIBE_LOG_LEVEL", &c.Log.Level)
	setString("VSCRIBE_LOG_FORMAT", &c.Log.Format)
	setString("VSCRIBE_TEMP_DIR", &c.TempDir)

	c.TempDir = expandPath(c.TempDir)
	c.ASR.ModelsDir = expandPath(c.ASR.ModelsDir)
	return nil
}

// expandPath expands the tilde (~) in the path to the user's home directory.
// It handles both forward and backward slashes to ensure cross-platform compatibility
// for configuration files.
func expandPath(path string) string {
	if path == "" {
		return ""
	}

	if strings.HasPrefix(path, "~") {
		// Only expand if it's explicitly "~", "~/", or "~\"
		if len(path) == 1 || path[1] == '/' || path[1] == '\\' {
			home, err := os.UserHomeDir()
			if err == nil {
				subPath := path[1:]
				if len(subPath) > 0 && (subPath[0] == '/' || subPath[0] == '\\') {
					subPath = subPath[1:]
				}
				return filepath.Join(home, subPath)
			}
		}
	}

	return path
}

// Save writes the config to ~/.config/vscribe/config.yml
func Save(cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	configPath, err := ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	// Ensure config directory exists
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	header := "# vscribe configuration file\n# Run 'vscribe init' to regenerate with defaults\n\n"
	content := header + string(data)

	return os.WriteFile(configPath, []byte(content), 0644)
}

// SavePath returns the path where config will be saved
func SavePath() string {
	if path, err := ConfigPath(); err == nil {
		return path
	}
	return ConfigFileName
}

// Init creates a new config.yml with default values
func Init() error {
	if Exists() {
		path, _ := ConfigPath()
		return fmt.Errorf("%s already exists", path)
	}
	return Save(DefaultConfig())
}

// LoadOrDefault loads config if it exists, otherwise returns defaults.
// Environment overrides and defaults are applied in both cases.
func LoadOrDefault() (*Config, error) {
	cfg := &Config{}
	if Exists() {
		loaded, err := Load()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}
