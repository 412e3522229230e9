package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/tidy/pkg/tidy/logging"
	"github.com/jamesainslie/tidy/pkg/tidy/rules"
	"github.com/jamesainslie/tidy/pkg/tidy/scanner"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ErrConfigExists is returned by WriteDefault when the file already exists.
var ErrConfigExists = errors.New("config file already exists")

// ClassificationConfig holds the ruleset and its confidence table.
type ClassificationConfig struct {
	Extensions   []rules.CategoryRule `mapstructure:"extensions" yaml:"extensions"`
	Patterns     []rules.CategoryRule `mapstructure:"patterns" yaml:"patterns"`
	Confidence   rules.Confidence     `mapstructure:"confidence" yaml:"confidence"`
	ContentSniff bool                 `mapstructure:"content_sniff" yaml:"content_sniff"`
}

// ScannerConfig configures file discovery.
type ScannerConfig struct {
	Recursive     bool `mapstructure:"recursive" yaml:"recursive"`
	MaxDepth      int  `mapstructure:"max_depth" yaml:"max_depth"`
	IncludeHidden bool `mapstructure:"include_hidden" yaml:"include_hidden"`
	IncludeSystem bool `mapstructure:"include_system" yaml:"include_system"`
	// Exclude lists glob patterns matched against entry names and
	// root-relative paths.
	Exclude []string `mapstructure:"exclude" yaml:"exclude"`
}

// OrganizerConfig configures organize runs.
type OrganizerConfig struct {
	// Lock enables the per-target advisory run lock.
	Lock bool `mapstructure:"lock" yaml:"lock"`
}

// ManifestConfig configures the run journal.
type ManifestConfig struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
	Path          string `mapstructure:"path" yaml:"path"`
	RetentionDays int    `mapstructure:"retention_days" yaml:"retention_days"`
}

// CacheConfig configures the classification cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
	// TTL expires entries that are not rewritten; 0 keeps them forever.
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Settle time.Duration `mapstructure:"settle" yaml:"settle"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size" yaml:"max_size"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	Daily      bool   `mapstructure:"daily" yaml:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level" yaml:"level"`
	Path       string            `mapstructure:"path" yaml:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation" yaml:"rotation"`
	Components map[string]string `mapstructure:"components" yaml:"components"`
}

// Config represents the application configuration.
type Config struct {
	Classification ClassificationConfig `mapstructure:"classification" yaml:"classification"`
	Scanner        ScannerConfig        `mapstructure:"scanner" yaml:"scanner"`
	Organizer      OrganizerConfig      `mapstructure:"organizer" yaml:"organizer"`
	Manifest       ManifestConfig       `mapstructure:"manifest" yaml:"manifest"`
	Cache          CacheConfig          `mapstructure:"cache" yaml:"cache"`
	Watch          WatchConfig          `mapstructure:"watch" yaml:"watch"`
	Logging        LoggingConfig        `mapstructure:"logging" yaml:"logging"`

	// File is the config file that was read. Empty when defaults only.
	File string `mapstructure:"-" yaml:"-"`
}

// Load loads configuration from a file and TIDY_ environment variables.
//
// When path is empty the file is searched for in
//   - $XDG_CONFIG_HOME/tidy/config.yaml
//   - $HOME/.config/tidy/config.yaml
//
// and a missing file is not an error. An explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		dir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.Logging.Components = mergeComponents(cfg.Logging.Components)

	// A file that defines one rule list replaces the built-in ruleset as a
	// whole; the other list stays empty.
	if !v.InConfig("classification.extensions") && !v.InConfig("classification.patterns") {
		def := rules.Default()
		cfg.Classification.Extensions = def.Extensions
		cfg.Classification.Patterns = def.Patterns
	}

	for _, p := range []*string{&cfg.Manifest.Path, &cfg.Cache.Path, &cfg.Logging.Path} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeComponents fills in default levels for components the file leaves
// unset or blank.
func mergeComponents(levels map[string]string) map[string]string {
	merged := make(map[string]string, len(DefaultComponents)+len(levels))
	for name, level := range DefaultComponents {
		merged[name] = level
	}
	for name, level := range levels {
		if level != "" {
			merged[name] = level
		}
	}
	return merged
}

func setDefaults(v *viper.Viper) {
	conf := rules.DefaultConfidence()
	v.SetDefault("classification.confidence.extension", conf.Extension)
	v.SetDefault("classification.confidence.extension_miss", conf.ExtensionMiss)
	v.SetDefault("classification.confidence.content", conf.Content)
	v.SetDefault("classification.confidence.content_miss", conf.ContentMiss)
	v.SetDefault("classification.confidence.content_unknown", conf.ContentUnknown)
	v.SetDefault("classification.confidence.pattern", conf.Pattern)
	v.SetDefault("classification.confidence.pattern_miss", conf.PatternMiss)
	v.SetDefault("classification.confidence.fallback", conf.Fallback)
	v.SetDefault("classification.confidence.suppress_threshold", conf.SuppressThreshold)
	v.SetDefault("classification.content_sniff", false)

	v.SetDefault("scanner.recursive", true)
	v.SetDefault("scanner.max_depth", scanner.Unbounded)
	v.SetDefault("scanner.include_hidden", false)
	v.SetDefault("scanner.include_system", false)
	v.SetDefault("scanner.exclude", []string{})

	v.SetDefault("organizer.lock", true)

	v.SetDefault("manifest.enabled", true)
	v.SetDefault("manifest.path", "") // Empty means manifest.DefaultDir()
	v.SetDefault("manifest.retention_days", DefaultRetentionDays)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", "") // Empty means cache.DefaultPath()
	v.SetDefault("cache.ttl", DefaultCacheTTL)

	v.SetDefault("watch.settle", DefaultSettle)

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.path", "") // Empty means logging.DefaultLogPath()
	v.SetDefault("logging.rotation.max_size", DefaultLogMaxSize)
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	for name, level := range DefaultComponents {
		v.SetDefault("logging.components."+name, level)
	}
}

// Validate checks value ranges that viper cannot enforce.
func (c *Config) Validate() error {
	if err := c.Classification.Confidence.Validate(); err != nil {
		return fmt.Errorf("classification.confidence: %w", err)
	}
	if c.Scanner.MaxDepth < scanner.Unbounded {
		return fmt.Errorf("scanner.max_depth must be >= %d, got %d", scanner.Unbounded, c.Scanner.MaxDepth)
	}
	if _, err := scanner.CompileExcludes(c.Scanner.Exclude); err != nil {
		return fmt.Errorf("scanner.exclude: %w", err)
	}
	if c.Manifest.RetentionDays < 0 {
		return fmt.Errorf("manifest.retention_days must be >= 0, got %d", c.Manifest.RetentionDays)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must be >= 0, got %s", c.Cache.TTL)
	}
	if c.Watch.Settle <= 0 {
		return fmt.Errorf("watch.settle must be positive, got %s", c.Watch.Settle)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	for name, level := range c.Logging.Components {
		if _, err := logging.ParseLevel(level); err != nil {
			return fmt.Errorf("logging.components.%s: %w", name, err)
		}
	}
	if _, err := c.Logging.Rotation.maxSize(); err != nil {
		return err
	}
	return nil
}

// Rules returns the configured classification ruleset.
func (c *Config) Rules() rules.Rules {
	return rules.Rules{
		Extensions: c.Classification.Extensions,
		Patterns:   c.Classification.Patterns,
	}
}

// ScanOptions converts the scanner section to scanner options rooted at root.
func (c *Config) ScanOptions(root string) scanner.Options {
	return scanner.Options{
		Root:          root,
		Recursive:     c.Scanner.Recursive,
		MaxDepth:      c.Scanner.MaxDepth,
		IncludeHidden: c.Scanner.IncludeHidden,
		IncludeSystem: c.Scanner.IncludeSystem,
		Exclude:       c.Scanner.Exclude,
	}
}

// LogConfig converts the logging section to a logging.Config.
func (c *Config) LogConfig() (logging.Config, error) {
	size, err := c.Logging.Rotation.maxSize()
	if err != nil {
		return logging.Config{}, err
	}
	path := c.Logging.Path
	if path == "" {
		path = logging.DefaultLogPath()
	}
	return logging.Config{
		Level: c.Logging.Level,
		Path:  path,
		Rotation: logging.RotationConfig{
			MaxSize:    size,
			MaxAge:     c.Logging.Rotation.MaxAge,
			MaxBackups: c.Logging.Rotation.MaxBackups,
			Daily:      c.Logging.Rotation.Daily,
		},
		Components: c.Logging.Components,
	}, nil
}

func (r RotationConfig) maxSize() (int64, error) {
	if r.MaxSize == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(r.MaxSize)
	if err != nil {
		return 0, fmt.Errorf("logging.rotation.max_size: %w", err)
	}
	return int64(n), nil
}

// ConfigDir returns the configuration directory, honouring XDG_CONFIG_HOME.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, AppName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", AppName), nil
}

// DefaultFile returns the default config file path.
func DefaultFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// LockDir returns $XDG_STATE_HOME/tidy/locks, where run locks live.
func LockDir() string {
	return filepath.Join(xdg.StateHome, AppName, "locks")
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, path[1:]), nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteDefault writes a commented default config file to path, or to
// DefaultFile when path is empty, and returns the path written. An existing
// file is left untouched and ErrConfigExists is returned unless force is set.
func WriteDefault(path string, force bool) (string, error) {
	if path == "" {
		p, err := DefaultFile()
		if err != nil {
			return "", err
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil && !force {
		return path, fmt.Errorf("%w: %s", ErrConfigExists, path)
	} else if err != nil && !os.IsNotExist(err) {
		return path, fmt.Errorf("failed to check config file: %w", err)
	}

	content, err := defaultFileContent()
	if err != nil {
		return path, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return path, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return path, fmt.Errorf("failed to write default config: %w", err)
	}
	return path, nil
}

func defaultFileContent() ([]byte, error) {
	var ruleBuf bytes.Buffer
	enc := yaml.NewEncoder(&ruleBuf)
	enc.SetIndent(2)
	if err := enc.Encode(rules.Default()); err != nil {
		return nil, fmt.Errorf("encoding default rules: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}

	var indented strings.Builder
	for _, line := range strings.Split(strings.TrimRight(ruleBuf.String(), "\n"), "\n") {
		indented.WriteString("  " + line + "\n")
	}

	conf := rules.DefaultConfidence()
	return fmt.Appendf(nil, `# tidy configuration

classification:
  # Category rules are checked in order; the first match wins.
  # Defining either list replaces the built-in rules entirely.
%s  # Per-strategy confidence. content > extension > pattern must hold.
  confidence:
    extension: %.1f
    extension_miss: %.1f
    content: %.1f
    content_miss: %.1f
    content_unknown: %.1f
    pattern: %.1f
    pattern_miss: %.1f
    fallback: %.1f
    suppress_threshold: %.1f
  # Read file headers when the name gives no MIME type
  content_sniff: false

scanner:
  recursive: true
  max_depth: -1       # -1 means unbounded
  include_hidden: false
  include_system: false
  # Glob patterns to skip, e.g. ["*.part", "build"]
  exclude: []

organizer:
  # Refuse to run twice on the same target at once
  lock: true

manifest:
  enabled: true
  path: ""            # empty means $XDG_DATA_HOME/tidy/manifests
  retention_days: %d

cache:
  enabled: true
  path: ""            # empty means $XDG_CACHE_HOME/tidy/classifications
  ttl: %s             # 0 keeps entries until the rules change

watch:
  settle: %s

logging:
  level: %s
  path: ""            # empty means $XDG_STATE_HOME/tidy/tidy.log
  rotation:
    max_size: %s
    max_age: 30       # days
    max_backups: 5
    daily: true
  components:
    scanner: info
    classifier: info
    organizer: info
    watcher: info
    cache: warn
`, indented.String(),
		conf.Extension, conf.ExtensionMiss, conf.Content, conf.ContentMiss, conf.ContentUnknown,
		conf.Pattern, conf.PatternMiss, conf.Fallback, conf.SuppressThreshold,
		DefaultRetentionDays, DefaultCacheTTL, DefaultSettle, DefaultLogLevel, DefaultLogMaxSize), nil
}
