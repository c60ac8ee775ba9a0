package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.yaml.in/yaml/v3"

	"sameappswitcher/internal/hotkeys"
)

const (
	maxConfigFileBytes int64 = 1 << 20 // 1MB

	appDirName   = "sameappswitcher"
	yamlFileName = "config.yaml"
	tomlFileName = "config.toml"
)

// userHomeDirFn is a test seam for the home-directory fallback of DefaultPath.
var userHomeDirFn = os.UserHomeDir

// Format identifies the settings file syntax.
type Format int

const (
	FormatYAML Format = iota
	FormatTOML
)

func (f Format) String() string {
	if f == FormatTOML {
		return "toml"
	}
	return "yaml"
}

// FormatOf picks the syntax from the file extension. Anything that is not
// ".toml" is read as YAML.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// HotkeyConfig holds the four binding strings, e.g. "Alt+Shift+`".
type HotkeyConfig struct {
	Forward       string `yaml:"forward" toml:"forward" json:"forward"`
	Backward      string `yaml:"backward" toml:"backward" json:"backward"`
	ToggleRestore string `yaml:"toggle_restore" toml:"toggle_restore" json:"toggle_restore"`
	ExitOrPause   string `yaml:"exit_or_pause" toml:"exit_or_pause" json:"exit_or_pause"`
}

// DiagnosticsConfig controls debug-only output.
type DiagnosticsConfig struct {
	// WindowTitles attaches the title channel to enumeration and dumps each
	// fresh candidate list at debug level.
	WindowTitles bool `yaml:"window_titles" toml:"window_titles" json:"window_titles"`
}

// Config is the sameappswitcher settings file. It is never written back:
// runtime toggles made through hotkeys live only as long as the process.
type Config struct {
	Hotkeys HotkeyConfig `yaml:"hotkeys" toml:"hotkeys" json:"hotkeys"`
	// RestoreMinimized is the initial value of restore-on-switch.
	RestoreMinimized  bool              `yaml:"restore_minimized" toml:"restore_minimized" json:"restore_minimized"`
	ActiveDesktopOnly bool              `yaml:"active_desktop_only" toml:"active_desktop_only" json:"active_desktop_only"`
	LogLevel          string            `yaml:"log_level" toml:"log_level" json:"log_level"`
	Diagnostics       DiagnosticsConfig `yaml:"diagnostics" toml:"diagnostics" json:"diagnostics"`
	// ControlPipe enables the named-pipe control channel used by sameappctl.
	ControlPipe bool `yaml:"control_pipe" toml:"control_pipe" json:"control_pipe"`
}

// Bindings are the parsed forms of HotkeyConfig.
type Bindings struct {
	Forward       hotkeys.Binding
	Backward      hotkeys.Binding
	ToggleRestore hotkeys.Binding
	ExitOrPause   hotkeys.Binding
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		Hotkeys: HotkeyConfig{
			Forward:       "Alt+`",
			Backward:      "Alt+Shift+`",
			ToggleRestore: "Ctrl+Alt+`",
			ExitOrPause:   "Ctrl+Alt+Shift+`",
		},
		RestoreMinimized:  true,
		ActiveDesktopOnly: true,
		LogLevel:          "info",
		ControlPipe:       true,
	}
}

// DefaultPath resolves the YAML settings path, preferring LOCALAPPDATA over
// APPDATA and falling back to ~/.config when both are unset. If the home
// directory cannot be resolved either, os.TempDir() is used.
func DefaultPath() string {
	base := strings.TrimSpace(os.Getenv("LOCALAPPDATA"))
	if base == "" {
		base = strings.TrimSpace(os.Getenv("APPDATA"))
	}
	if base == "" {
		home, err := userHomeDirFn()
		if err != nil {
			slog.Warn("[WARN-CONFIG] using temp dir as config path fallback", "error", err)
			base = os.TempDir()
		} else {
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, appDirName, yamlFileName)
}

// ResolvePath returns explicit when set. Otherwise it returns DefaultPath,
// or the config.toml next to it when only the TOML file exists.
func ResolvePath(explicit string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return p
	}
	yamlPath := DefaultPath()
	if _, err := os.Stat(yamlPath); err == nil {
		return yamlPath
	}
	tomlPath := filepath.Join(filepath.Dir(yamlPath), tomlFileName)
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath
	}
	return yamlPath
}

// Load reads the settings file at path. A missing or empty file yields the
// defaults. Invalid field values are logged and replaced by their default;
// only I/O and syntax errors are returned, together with DefaultConfig().
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, errors.New("config path required")
	}

	raw, err := readLimitedFile(path, maxConfigFileBytes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return cfg, nil
	}

	if err := decode(raw, FormatOf(path), &cfg); err != nil {
		slog.Warn("[WARN-CONFIG] failed to parse config, using defaults", "path", path, "error", err)
		return DefaultConfig(), err
	}
	applyDefaultsAndValidate(&cfg)
	return cfg, nil
}

func decode(raw []byte, format Format, cfg *Config) error {
	switch format {
	case FormatTOML:
		md, err := toml.Decode(string(raw), cfg)
		if err != nil {
			return fmt.Errorf("decode toml: %w", err)
		}
		for _, key := range md.Undecoded() {
			slog.Warn("[WARN-CONFIG] unknown field ignored", "field", key.String())
		}
		return nil
	default:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return fmt.Errorf("decode yaml: %w", err)
		}
		return nil
	}
}

// applyDefaultsAndValidate replaces invalid values with their defaults.
// MUTATES: cfg is directly modified.
func applyDefaultsAndValidate(cfg *Config) {
	defaults := DefaultConfig()

	fields := []struct {
		name     string
		value    *string
		fallback string
	}{
		{name: "hotkeys.forward", value: &cfg.Hotkeys.Forward, fallback: defaults.Hotkeys.Forward},
		{name: "hotkeys.backward", value: &cfg.Hotkeys.Backward, fallback: defaults.Hotkeys.Backward},
		{name: "hotkeys.toggle_restore", value: &cfg.Hotkeys.ToggleRestore, fallback: defaults.Hotkeys.ToggleRestore},
		{name: "hotkeys.exit_or_pause", value: &cfg.Hotkeys.ExitOrPause, fallback: defaults.Hotkeys.ExitOrPause},
	}
	seen := make(map[string]string, len(fields))
	for _, f := range fields {
		if strings.TrimSpace(*f.value) == "" {
			*f.value = f.fallback
		}
		b, err := hotkeys.ParseBinding(*f.value)
		if err != nil {
			slog.Warn("[WARN-CONFIG] invalid hotkey, using default",
				"field", f.name, "value", *f.value, "default", f.fallback, "error", err)
			*f.value = f.fallback
			b = hotkeys.MustParseBinding(f.fallback)
		}
		if other, dup := seen[b.Normalized()]; dup {
			slog.Warn("[WARN-CONFIG] hotkey bound twice, the later registration will fail",
				"field", f.name, "other", other, "binding", b.Normalized())
		}
		seen[b.Normalized()] = f.name
	}

	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		slog.Warn("[WARN-CONFIG] invalid log_level, using default",
			"value", cfg.LogLevel, "default", defaults.LogLevel, "error", err)
		cfg.LogLevel = defaults.LogLevel
	}
}

// Bindings parses the hotkey strings. Values that do not parse fall back to
// the defaults, so the result is always registrable.
func (c Config) Bindings() Bindings {
	defaults := DefaultConfig().Hotkeys
	return Bindings{
		Forward:       parseOr(c.Hotkeys.Forward, defaults.Forward),
		Backward:      parseOr(c.Hotkeys.Backward, defaults.Backward),
		ToggleRestore: parseOr(c.Hotkeys.ToggleRestore, defaults.ToggleRestore),
		ExitOrPause:   parseOr(c.Hotkeys.ExitOrPause, defaults.ExitOrPause),
	}
}

func parseOr(spec, fallback string) hotkeys.Binding {
	if b, err := hotkeys.ParseBinding(spec); err == nil {
		return b
	}
	return hotkeys.MustParseBinding(fallback)
}

// Level returns the configured slog level, or Info when it does not parse.
func (c Config) Level() slog.Level {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// ParseLevel accepts debug, info, warn (or warning) and error, in any case.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func readLimitedFile(path string, maxBytes int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	limited := io.LimitReader(file, maxBytes+1)
	raw, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > maxBytes {
		return nil, fmt.Errorf("config file exceeds %d bytes", maxBytes)
	}
	return raw, nil
}
