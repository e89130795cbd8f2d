package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"reclist/internal/log"
	"reclist/internal/recordings"
)

// DefaultRecordingsDir is used for both the listing default and the base directory.
const DefaultRecordingsDir = "/gravacoes"

type Config struct {
	Port           int      `json:"port" yaml:"port"`
	BindAddr       string   `json:"bind_addr" yaml:"bind_addr"`
	RecordingsDir  string   `json:"recordings_dir" yaml:"recordings_dir"`
	BaseDir        string   `json:"base_dir" yaml:"base_dir"`
	Extensions     []string `json:"extensions" yaml:"extensions"`
	MinFileSize    int64    `json:"min_file_size" yaml:"min_file_size"`
	DataDir        string   `json:"data_dir" yaml:"data_dir"`
	HistoryLimit   int      `json:"history_limit" yaml:"history_limit"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`
	RateLimit      int      `json:"rate_limit" yaml:"rate_limit"`
	LogLevel       string   `json:"log_level" yaml:"log_level"`
	ConfigFile     string   `json:"-" yaml:"-"`
}

func Default() *Config {
	return &Config{
		Port:           8888,
		BindAddr:       "127.0.0.1",
		RecordingsDir:  DefaultRecordingsDir,
		BaseDir:        DefaultRecordingsDir,
		Extensions:     append([]string(nil), recordings.DefaultExtensions...),
		MinFileSize:    recordings.DefaultMinSizeBytes,
		DataDir:        "",
		HistoryLimit:   1000,
		AllowedOrigins: []string{"*"},
		RateLimit:      600,
		LogLevel:       "info",
	}
}

// Load reads configuration from the command line and the environment.
func Load() (*Config, error) {
	return load(flag.CommandLine, os.Args[1:], os.Getenv)
}

func load(fset *flag.FlagSet, args []string, getenv func(string) string) (*Config, error) {
	config := Default()

	fset.StringVar(&config.ConfigFile, "config", "", "Path to a YAML configuration file")
	fset.IntVar(&config.Port, "port", config.Port, "Port to listen on")
	fset.StringVar(&config.BindAddr, "bind", config.BindAddr, "Address to bind to")
	fset.StringVar(&config.RecordingsDir, "dir", config.RecordingsDir, "Recordings directory listed when no dir is requested")
	fset.StringVar(&config.BaseDir, "base-dir", config.BaseDir, "Base directory public paths are relative to")
	fset.Var((*listValue)(&config.Extensions), "ext", "Comma-separated recording extensions")
	fset.Int64Var(&config.MinFileSize, "min-size", config.MinFileSize, "Minimum size in bytes of extensionless recordings")
	fset.StringVar(&config.DataDir, "data-dir", config.DataDir, "Directory for scan history (empty keeps it in memory)")
	fset.IntVar(&config.HistoryLimit, "history", config.HistoryLimit, "Number of scan records to keep")
	fset.Var((*listValue)(&config.AllowedOrigins), "origins", "Comma-separated CORS origins")
	fset.IntVar(&config.RateLimit, "rate-limit", config.RateLimit, "Requests per minute per client on list endpoints (0 disables)")
	fset.StringVar(&config.LogLevel, "log-level", config.LogLevel, "Log level")
	if err := fset.Parse(args); err != nil {
		return nil, err
	}

	if config.ConfigFile == "" {
		config.ConfigFile = getenv("RECLIST_CONFIG")
	}
	if config.ConfigFile != "" {
		// Flags given explicitly win over the file.
		explicit := map[string]string{}
		fset.Visit(func(f *flag.Flag) {
			explicit[f.Name] = f.Value.String()
		})

		if err := config.loadFile(config.ConfigFile); err != nil {
			return nil, err
		}

		for name, value := range explicit {
			if err := fset.Set(name, value); err != nil {
				return nil, fmt.Errorf("reapply flag -%s: %w", name, err)
			}
		}
	}

	// Override with environment variables
	if port := getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Port = p
		}
	}
	if bind := getenv("BIND_ADDR"); bind != "" {
		config.BindAddr = bind
	}
	if dir := getenv("RECORDINGS_DIR"); dir != "" {
		config.RecordingsDir = dir
	}
	if baseDir := getenv("RECORDINGS_BASE_DIR"); baseDir != "" {
		config.BaseDir = baseDir
	}
	if exts := getenv("RECORDING_EXTENSIONS"); exts != "" {
		config.Extensions = splitList(exts)
	}
	if minSize := getenv("MIN_RECORDING_SIZE"); minSize != "" {
		if n, err := strconv.ParseInt(minSize, 10, 64); err == nil {
			config.MinFileSize = n
		}
	}
	if dataDir := getenv("DATA_DIR"); dataDir != "" {
		config.DataDir = dataDir
	}
	if limit := getenv("SCAN_HISTORY_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			config.HistoryLimit = n
		}
	}
	if origins := getenv("ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = splitList(origins)
	}
	if rpm := getenv("RATE_LIMIT_RPM"); rpm != "" {
		if n, err := strconv.Atoi(rpm); err == nil {
			config.RateLimit = n
		}
	}
	if level := getenv("LOG_LEVEL"); level != "" {
		config.LogLevel = level
	}

	config.normalize()
	return config, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config file not found: %s", path)
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (c *Config) normalize() {
	if c.BaseDir == "" {
		c.BaseDir = DefaultRecordingsDir
	}

	exts := make([]string, 0, len(c.Extensions))
	seen := map[string]bool{}
	for _, ext := range c.Extensions {
		ext = recordings.NormalizeExtension(ext)
		if ext == "" || seen[ext] {
			continue
		}
		seen[ext] = true
		exts = append(exts, ext)
	}
	c.Extensions = exts
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if c.RecordingsDir == "" {
		return fmt.Errorf("recordings directory cannot be empty")
	}
	if len(c.Extensions) == 0 {
		return fmt.Errorf("at least one recording extension is required")
	}
	if c.MinFileSize < 0 {
		return fmt.Errorf("minimum file size cannot be negative")
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("history limit cannot be negative")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative")
	}
	if !log.ValidLevel(c.LogLevel) {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

// listValue is a flag.Value holding a comma-separated list.
type listValue []string

func (l *listValue) String() string {
	if l == nil {
		return ""
	}
	return strings.Join(*l, ",")
}

func (l *listValue) Set(s string) error {
	*l = splitList(s)
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
