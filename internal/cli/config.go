package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/nao1215/sheetsql"
	"github.com/nao1215/sheetsql/store"
	"github.com/spf13/pflag"
)

// DefaultDBPath is the database file used when none is configured.
const DefaultDBPath = "sheetsql.db"

// Output formats accepted by the --output flag.
const (
	outputTable = "table"
	outputJSON  = "json"
)

// Config holds the settings shared by every subcommand.
type Config struct {
	// DB is the database file. ":memory:" opens a throwaway in-memory
	// database.
	DB string `koanf:"db"`
	// Driver selects the database backend.
	Driver string `koanf:"driver"`
	// Output selects the rendering format, "table" or "json".
	Output string `koanf:"output"`
	// Verbose enables debug logging on stderr.
	Verbose bool `koanf:"verbose"`
	// Workers is the number of files extracted in parallel. Zero uses
	// the number of CPUs.
	Workers int `koanf:"workers"`
	// ChunkSize is the number of rows per bulk insert batch.
	ChunkSize int `koanf:"chunk_size"`
	// FileTimeout bounds the extraction of a single file. Zero disables
	// the timeout.
	FileTimeout time.Duration `koanf:"file_timeout"`
	// DateFormats replaces the date layouts recognized during type
	// inference. Layouts use Go reference time syntax.
	DateFormats []string `koanf:"date_formats"`
	// ConfigFile is the config file the values were loaded from, if any.
	ConfigFile string `koanf:"-"`
}

// findConfigFile finds the config file to use.
// Priority: explicit path > sheetsql.yaml > sheetsql.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat("sheetsql.yaml"); err == nil {
		return "sheetsql.yaml"
	}
	if _, err := os.Stat("sheetsql.yml"); err == nil {
		return "sheetsql.yml"
	}
	return ""
}

// loadConfig loads configuration from file, environment variables, and
// flags. Precedence (highest to lowest): flags > env vars > config file
// > defaults.
func loadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"db":           DefaultDBPath,
		"driver":       store.DriverSQLite,
		"output":       outputTable,
		"verbose":      false,
		"workers":      0,
		"chunk_size":   sheetsql.DefaultChunkSize,
		"file_timeout": sheetsql.DefaultFileTimeout,
		"date_formats": []string{},
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	configFileUsed := findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Environment variables (SHEETSQL_ prefix)
	// Transform: SHEETSQL_FILE_TIMEOUT -> file_timeout
	if err := k.Load(env.Provider("SHEETSQL_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "SHEETSQL_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			// Transform kebab-case to snake_case for config keys
			key := strings.ReplaceAll(f.Name, "-", "_")

			// The --date-format flag is singular and repeatable; the
			// config key holds the whole list.
			if key == "date_format" {
				return "date_formats", posflag.FlagVal(flags, f)
			}

			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	switch cfg.Output {
	case outputTable, outputJSON:
	default:
		return nil, fmt.Errorf("unknown output format %q (available: %s, %s)",
			cfg.Output, outputTable, outputJSON)
	}
	cfg.ConfigFile = configFileUsed
	return &cfg, nil
}
