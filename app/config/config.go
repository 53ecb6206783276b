package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

const (
	DefaultMemoryFile = "memory.jsonl"
	memoryFileEnv     = "MEMORY_FILE_PATH"
)

type Config struct {
	Log        Log        `yaml:"log"`
	Memory     Memory     `yaml:"memory"`
	Server     Server     `yaml:"server"`
	Visualizer Visualizer `yaml:"visualizer"`
}

type Memory struct {
	// Path to the JSONL memory file. Relative paths are resolved against the executable directory
	FilePath string `yaml:"file_path" example:"memory.jsonl"`
}

type Server struct {
	// Name reported to MCP clients
	Name string `yaml:"name" example:"memory-server" validate:"required"`
	// Version reported to MCP clients
	Version string `yaml:"version" example:"0.6.4" validate:"required"`
}

type Visualizer struct {
	// Serve the diagram page
	Enabled bool `yaml:"enabled" example:"true"`
	// First port to try
	BasePort int `yaml:"base_port" example:"4000" validate:"min=1,max=65535"`
	// How many consecutive ports to try before giving up
	PortAttempts int `yaml:"port_attempts" example:"100" validate:"min=1"`
	// Page auto-refresh interval in seconds
	RefreshSeconds int `yaml:"refresh_seconds" example:"5" validate:"min=1"`
}

type Log struct {
	// Minimum console log level
	Level string `yaml:"level" example:"info" validate:"omitempty,oneof=debug info warn error"`
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890" validate:"required_with=Token"`
}

func defaults() Config {
	return Config{
		Log: Log{
			Level: "info",
		},
		Server: Server{
			Name:    "memory-server",
			Version: "0.6.4",
		},
		Visualizer: Visualizer{
			Enabled:        true,
			BasePort:       4000,
			PortAttempts:   100,
			RefreshSeconds: 5,
		},
	}
}

// Load reads the YAML config at path. A missing file is not an error, the
// defaults are used instead. MEMORY_FILE_PATH overrides memory.file_path.
func Load(path string) (*Config, error) {
	result := defaults()

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	if err == nil {
		if err = yaml.Unmarshal(data, &result); err != nil {
			return nil, oops.Errorf("failed to parse YAML config: %w", err)
		}
	}

	if env := os.Getenv(memoryFileEnv); env != "" {
		result.Memory.FilePath = env
	}

	if err = result.SetMemoryFile(result.Memory.FilePath); err != nil {
		return nil, err
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}

// SetMemoryFile resolves path against the executable directory and stores it.
func (c *Config) SetMemoryFile(path string) error {
	baseDir, err := executableDir()
	if err != nil {
		return oops.Errorf("failed to locate executable: %w", err)
	}

	c.Memory.FilePath = ResolveMemoryPath(path, baseDir)

	return nil
}

// ResolveMemoryPath keeps absolute paths, joins anything else with baseDir
// and falls back to DefaultMemoryFile in baseDir when path is empty.
func ResolveMemoryPath(path, baseDir string) string {
	if path == "" {
		return filepath.Join(baseDir, DefaultMemoryFile)
	}

	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(baseDir, path)
}

func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}

	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	return filepath.Dir(exe), nil
}
