package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultPort     = 3002
	DefaultFileName = "imgdrop.toml"
	OriginalDir     = "original"
)

var (
	ErrInvalid = errors.New("invalid config")
)

// Duration wraps time.Duration so it reads and writes as "30s" in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

type ServerConfig struct {
	Port            int      `toml:"port"`
	AllowedOrigins  []string `toml:"allowed_origins"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	IdleTimeout     Duration `toml:"idle_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

type StorageConfig struct {
	BaseDir    string `toml:"base_dir"`
	StagingDir string `toml:"staging_dir"`
	ImagesDir  string `toml:"images_dir"`
	FilesDir   string `toml:"files_dir"`
	// CreateDirs makes startup create the directory layout instead of
	// requiring it to exist already.
	CreateDirs    bool     `toml:"create_dirs"`
	StagingMaxAge Duration `toml:"staging_max_age"`
	SweepInterval Duration `toml:"sweep_interval"`
}

type UploadConfig struct {
	// bytes of a multipart body kept in memory before spilling to disk
	MaxMemory int64 `toml:"max_memory"`
	// 0 disables the limit
	MaxSize int64 `toml:"max_size"`
}

// Variant is one resized derivative of an uploaded image.
type Variant struct {
	Name    string `toml:"name"`
	Width   int    `toml:"width"`
	Quality int    `toml:"quality"`
}

type DerivativesConfig struct {
	Variants []Variant `toml:"variants"`
}

type DiscoveryConfig struct {
	Enabled  bool   `toml:"enabled"`
	Instance string `toml:"instance"`
}

type LogConfig struct {
	Level     string `toml:"level"`
	NoColor   bool   `toml:"no_color"`
	AddSource bool   `toml:"add_source"`
}

type Config struct {
	Server      ServerConfig      `toml:"server"`
	Storage     StorageConfig     `toml:"storage"`
	Upload      UploadConfig      `toml:"upload"`
	Derivatives DerivativesConfig `toml:"derivatives"`
	Discovery   DiscoveryConfig   `toml:"discovery"`
	Log         LogConfig         `toml:"log"`
}

// Default returns the configuration used when no config file exists.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port: DefaultPort,
			AllowedOrigins: []string{
				"https://example1.com",
				"https://example2.com",
			},
			ReadTimeout:     Duration{time.Minute},
			WriteTimeout:    Duration{time.Minute},
			IdleTimeout:     Duration{2 * time.Minute},
			ShutdownTimeout: Duration{5 * time.Second},
		},
		Storage: StorageConfig{
			BaseDir:       ".",
			StagingDir:    "staging",
			ImagesDir:     "images",
			FilesDir:      "files",
			StagingMaxAge: Duration{time.Hour},
			SweepInterval: Duration{10 * time.Minute},
		},
		Upload: UploadConfig{
			MaxMemory: 32 << 20,
			MaxSize:   100 << 20,
		},
		Derivatives: DerivativesConfig{
			Variants: []Variant{
				{Name: "medium", Width: 900, Quality: 80},
				{Name: "small", Width: 300, Quality: 90},
			},
		},
		Discovery: DiscoveryConfig{
			Enabled:  false,
			Instance: "imgdrop",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the configuration from path,
// if the file does not exist, it is created with Default values.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("opening config file: %w", err)
		}
		cfg := Default()
		if err = Save(path, cfg); err != nil {
			return Config{}, fmt.Errorf("config file not exists, writing defaults: %w", err)
		}
		return cfg, nil
	}
	defer f.Close()

	cfg, err := readConfig(f)
	if err != nil {
		return Config{}, err
	}
	if err = cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes c to path, creating parent directories as needed.
func Save(path string, c Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating/truncating config file: %w", err)
	}
	defer f.Close()
	if err = writeConfig(f, c); err != nil {
		return fmt.Errorf("writing config to file: %w", err)
	}
	return nil
}

// Validate reports the first setting that would make the server misbehave.
func (c Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalid, c.Server.Port)
	}
	if c.Storage.StagingDir == "" || c.Storage.ImagesDir == "" || c.Storage.FilesDir == "" {
		return fmt.Errorf("%w: storage directories must not be empty", ErrInvalid)
	}
	if c.Upload.MaxMemory <= 0 {
		return fmt.Errorf("%w: upload.max_memory must be positive", ErrInvalid)
	}
	if c.Upload.MaxSize < 0 {
		return fmt.Errorf("%w: upload.max_size must not be negative", ErrInvalid)
	}
	seen := map[string]bool{OriginalDir: true}
	for _, v := range c.Derivatives.Variants {
		if v.Name == "" || v.Name == "." || v.Name == ".." || filepath.Base(v.Name) != v.Name {
			return fmt.Errorf("%w: derivative variant name %q", ErrInvalid, v.Name)
		}
		if seen[v.Name] {
			return fmt.Errorf("%w: duplicate derivative variant %q", ErrInvalid, v.Name)
		}
		seen[v.Name] = true
		if v.Width <= 0 {
			return fmt.Errorf("%w: variant %q width must be positive", ErrInvalid, v.Name)
		}
		if v.Quality < 1 || v.Quality > 100 {
			return fmt.Errorf("%w: variant %q quality must be within 1-100", ErrInvalid, v.Name)
		}
	}
	return nil
}

func readConfig(r io.Reader) (Config, error) {
	cfg := Default()
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config file: %w", err)
	}
	return cfg, nil
}

func writeConfig(w io.Writer, c Config) error {
	if err := toml.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("encoding config file: %w", err)
	}
	return nil
}
