package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tinyrange/rvasm/internal/asm/riscv"
	"github.com/tinyrange/rvasm/internal/assembler"
	"gopkg.in/yaml.v3"
)

const Filename = "rvasm.yaml"

// ColorMode controls ANSI styling of inline errors.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ColorAuto, nil
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	default:
		return "", fmt.Errorf("unknown color mode %q (want auto, always or never)", s)
	}
}

// Enabled resolves the mode against whether the destination is a terminal.
func (m ColorMode) Enabled(tty bool) bool {
	switch m {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		return tty
	}
}

// Config is the per-project rvasm.yaml.
type Config struct {
	Version int `yaml:"version"`

	Format     string `yaml:"format"`
	Addressing string `yaml:"addressing"`
	Strict     bool   `yaml:"strict,omitempty"`
	Color      string `yaml:"color"`
	Verbose    bool   `yaml:"verbose,omitempty"`

	// ISA overrides the built-in instruction table. Relative paths are
	// resolved against the directory holding the config file.
	ISA string `yaml:"isa,omitempty"`

	dir string
}

func (c *Config) normalize() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Format == "" {
		c.Format = string(assembler.FormatBinary)
	}
	if c.Addressing == "" {
		c.Addressing = assembler.AddressingExpanded.String()
	}
	if c.Color == "" {
		c.Color = string(ColorAuto)
	}
}

// Default returns the configuration used when no rvasm.yaml is found.
func Default() Config {
	var c Config
	c.normalize()
	return c
}

// Validate checks that every enumerated field parses.
func (c Config) Validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported %s version %d", Filename, c.Version)
	}
	if _, err := assembler.ParseOutputFormat(c.Format); err != nil {
		return err
	}
	if _, err := assembler.ParseAddressingMode(c.Addressing); err != nil {
		return err
	}
	if _, err := ParseColorMode(c.Color); err != nil {
		return err
	}
	return nil
}

func IsConfigDir(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, Filename))
	return err == nil
}

// Find walks up from dir looking for rvasm.yaml. It returns "" when none
// exists.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if IsConfigDir(dir) {
			return filepath.Join(dir, Filename), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func Load(dir string) (Config, error) {
	return LoadFile(filepath.Join(dir, Filename))
}

func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", Filename, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", Filename, err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", Filename, err)
	}
	cfg.dir = filepath.Dir(path)
	return cfg, nil
}

// Discover loads the nearest rvasm.yaml above dir, or the defaults.
func Discover(dir string) (Config, error) {
	path, err := Find(dir)
	if err != nil {
		return Config{}, err
	}
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// ISAPath returns the instruction table override, or "" for the built-in
// table.
func (c Config) ISAPath() string {
	if c.ISA == "" || filepath.IsAbs(c.ISA) || c.dir == "" {
		return c.ISA
	}
	return filepath.Join(c.dir, c.ISA)
}

// SetISA overrides the instruction table with a path given relative to the
// working directory, as on the command line.
func (c *Config) SetISA(path string) error {
	if path == "" {
		c.ISA = ""
		return nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve instruction table path: %w", err)
	}
	c.ISA = abs
	return nil
}

// Table loads the configured instruction table.
func (c Config) Table() (*riscv.Table, error) {
	path := c.ISAPath()
	if path == "" {
		return riscv.DefaultTable(), nil
	}
	return riscv.LoadTableFile(path)
}

// Options converts the config to assembler options.
func (c Config) Options(log *slog.Logger) (assembler.Options, error) {
	mode, err := assembler.ParseAddressingMode(c.Addressing)
	if err != nil {
		return assembler.Options{}, err
	}
	return assembler.Options{
		Addressing: mode,
		Strict:     c.Strict,
		Logger:     log,
	}, nil
}

// WriteTemplate writes cfg to dir/rvasm.yaml. It refuses to overwrite an
// existing file.
func WriteTemplate(dir string, cfg Config) error {
	cfg.normalize()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, Filename), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%s already exists in %s", Filename, dir)
	} else if err != nil {
		return fmt.Errorf("create %s: %w", Filename, err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(&cfg); err != nil {
		return fmt.Errorf("encode %s: %w", Filename, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close %s: %w", Filename, err)
	}
	return nil
}
