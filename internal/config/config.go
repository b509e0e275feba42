package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config stores runtime configuration for the voice list app.
type Config struct {
	Deepgram    DeepgramConfig    `yaml:"deepgram"`
	Audio       AudioConfig       `yaml:"audio"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Synthesis   SynthesisConfig   `yaml:"synthesis"`
	Notify      NotifyConfig      `yaml:"notify"`
	Log         LogConfig         `yaml:"log"`

	// File is the YAML file that was applied, empty when none was found.
	File string `yaml:"-"`
}

type DeepgramConfig struct {
	APIKey       string `yaml:"api_key"`
	APIBaseURL   string `yaml:"api_base"`
	Model        string `yaml:"model"`
	Language     string `yaml:"language"`
	SmartFormat  bool   `yaml:"smart_format"`
	EndpointMS   int    `yaml:"endpointing_ms"`
	Alternatives int    `yaml:"alternatives"`
}

type AudioConfig struct {
	RecorderCommand string `yaml:"recorder_command"`
	PlayerCommand   string `yaml:"player_command"`
	InputFormat     string `yaml:"input_format"`
	InputDevice     string `yaml:"input_device"`
	SampleRate      int    `yaml:"sample_rate"`
	Channels        int    `yaml:"channels"`
}

type RecognitionConfig struct {
	Prompt         string        `yaml:"prompt"`
	ChunkSize      int           `yaml:"chunk_size"`
	StreamingGrace time.Duration `yaml:"streaming_grace"`
	MaxUtterance   time.Duration `yaml:"max_utterance"`
}

type SynthesisConfig struct {
	Engine      string        `yaml:"engine"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	InitTimeout time.Duration `yaml:"init_timeout"`
}

type NotifyConfig struct {
	Desktop bool `yaml:"desktop"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() Config {
	return Config{
		Deepgram: DeepgramConfig{
			APIBaseURL:   "https://api.deepgram.com/v1",
			Model:        "nova-2",
			SmartFormat:  true,
			EndpointMS:   300,
			Alternatives: 1,
		},
		Audio: AudioConfig{
			RecorderCommand: "ffmpeg",
			PlayerCommand:   "ffplay",
			InputFormat:     "pulse",
			InputDevice:     "default",
			SampleRate:      16000,
			Channels:        1,
		},
		Recognition: RecognitionConfig{
			Prompt:         "Voice List",
			ChunkSize:      4096,
			StreamingGrace: 500 * time.Millisecond,
			MaxUtterance:   15 * time.Second,
		},
		Synthesis: SynthesisConfig{
			Engine:      "tts-1:alloy",
			InitTimeout: 10 * time.Second,
		},
		Notify: NotifyConfig{Desktop: true},
		Log:    LogConfig{Level: "info"},
	}
}

// Load resolves configuration from defaults, an optional YAML file and the
// environment, in increasing precedence. A .env file in the working
// directory is read first and never overrides variables already set.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()

	path, explicit := configFilePath()
	if path != "" {
		applied, err := applyFile(&cfg, path, explicit)
		if err != nil {
			return Config{}, err
		}
		if applied {
			cfg.File = path
		}
	}

	applyEnv(&cfg)
	normalize(&cfg)
	return cfg, nil
}

func configFilePath() (string, bool) {
	if path := strings.TrimSpace(os.Getenv("VOICELIST_CONFIG_FILE")); path != "" {
		return path, true
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	return filepath.Join(home, ".config", "voicelist", "config.yaml"), false
}

// applyFile decodes the YAML file over cfg. A missing default file is not an
// error; a missing explicitly named file is.
func applyFile(cfg *Config, path string, explicit bool) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return false, nil
		}
		return false, fmt.Errorf("read config file %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return false, fmt.Errorf("parse config file %q: %w", path, err)
	}
	return true, nil
}

func applyEnv(cfg *Config) {
	cfg.Deepgram.APIKey = envOrDefault("DEEPGRAM_API_KEY", cfg.Deepgram.APIKey)
	cfg.Deepgram.APIBaseURL = envOrDefault("DEEPGRAM_API_BASE", cfg.Deepgram.APIBaseURL)
	cfg.Deepgram.Model = envOrDefault("DEEPGRAM_MODEL", cfg.Deepgram.Model)
	cfg.Deepgram.Language = envOrDefault("DEEPGRAM_LANGUAGE", cfg.Deepgram.Language)
	cfg.Deepgram.SmartFormat = envOrDefaultBool("DEEPGRAM_SMART_FORMAT", cfg.Deepgram.SmartFormat)
	cfg.Deepgram.EndpointMS = envOrDefaultInt("DEEPGRAM_ENDPOINTING_MS", cfg.Deepgram.EndpointMS)
	cfg.Deepgram.Alternatives = envOrDefaultInt("DEEPGRAM_ALTERNATIVES", cfg.Deepgram.Alternatives)

	cfg.Audio.RecorderCommand = envOrDefault("VOICELIST_FFMPEG_COMMAND", cfg.Audio.RecorderCommand)
	cfg.Audio.PlayerCommand = envOrDefault("VOICELIST_FFPLAY_COMMAND", cfg.Audio.PlayerCommand)
	cfg.Audio.InputFormat = envOrDefault("VOICELIST_AUDIO_INPUT_FORMAT", cfg.Audio.InputFormat)
	cfg.Audio.InputDevice = envOrDefault("VOICELIST_AUDIO_INPUT_DEVICE", cfg.Audio.InputDevice)
	cfg.Audio.SampleRate = envOrDefaultInt("VOICELIST_SAMPLE_RATE", cfg.Audio.SampleRate)
	cfg.Audio.Channels = envOrDefaultInt("VOICELIST_CHANNELS", cfg.Audio.Channels)

	cfg.Recognition.Prompt = envOrDefault("VOICELIST_PROMPT", cfg.Recognition.Prompt)
	cfg.Recognition.ChunkSize = envOrDefaultInt("VOICELIST_AUDIO_CHUNK_SIZE", cfg.Recognition.ChunkSize)
	cfg.Recognition.StreamingGrace = envOrDefaultMillis("VOICELIST_STREAMING_GRACE_MS", cfg.Recognition.StreamingGrace)
	cfg.Recognition.MaxUtterance = envOrDefaultMillis("VOICELIST_MAX_UTTERANCE_MS", cfg.Recognition.MaxUtterance)

	cfg.Synthesis.Engine = envOrDefault("VOICELIST_TTS_ENGINE", cfg.Synthesis.Engine)
	cfg.Synthesis.APIKey = envOrDefault("OPENAI_API_KEY", cfg.Synthesis.APIKey)
	cfg.Synthesis.BaseURL = envOrDefault("OPENAI_BASE_URL", cfg.Synthesis.BaseURL)
	cfg.Synthesis.InitTimeout = envOrDefaultMillis("VOICELIST_TTS_INIT_TIMEOUT_MS", cfg.Synthesis.InitTimeout)

	cfg.Notify.Desktop = envOrDefaultBool("VOICELIST_DESKTOP_NOTIFY", cfg.Notify.Desktop)

	cfg.Log.Level = envOrDefault("VOICELIST_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Development = envOrDefaultBool("VOICELIST_LOG_DEVELOPMENT", cfg.Log.Development)
}

func normalize(cfg *Config) {
	defaults := Defaults()

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = defaults.Audio.SampleRate
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = defaults.Audio.Channels
	}
	if cfg.Deepgram.EndpointMS < 0 {
		cfg.Deepgram.EndpointMS = 0
	}
	if cfg.Deepgram.Alternatives <= 0 {
		cfg.Deepgram.Alternatives = defaults.Deepgram.Alternatives
	}
	if cfg.Recognition.ChunkSize < 256 {
		cfg.Recognition.ChunkSize = defaults.Recognition.ChunkSize
	}
	if cfg.Recognition.StreamingGrace < 0 {
		cfg.Recognition.StreamingGrace = 0
	}
	if cfg.Recognition.MaxUtterance <= 0 {
		cfg.Recognition.MaxUtterance = defaults.Recognition.MaxUtterance
	}
	if strings.TrimSpace(cfg.Recognition.Prompt) == "" {
		cfg.Recognition.Prompt = defaults.Recognition.Prompt
	}
	if strings.TrimSpace(cfg.Synthesis.Engine) == "" {
		cfg.Synthesis.Engine = defaults.Synthesis.Engine
	}
	if cfg.Synthesis.InitTimeout <= 0 {
		cfg.Synthesis.InitTimeout = defaults.Synthesis.InitTimeout
	}
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultMillis(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return time.Duration(parsed) * time.Millisecond
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
