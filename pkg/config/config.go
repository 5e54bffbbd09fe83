package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// DefaultFile is the optional configuration file read from the working directory
const DefaultFile = "modeldia.toml"

// EnvPrefix prefixes environment variables (e.g., MODELDIA_OUTPUT=models.dia)
const EnvPrefix = "MODELDIA_"

// Metadata sources
const (
	SourceManifest   = "manifest"
	SourceDatabase   = "database"
	SourceSchemaFile = "schema-file"
)

// ErrNoSource is returned when no metadata source is configured
var ErrNoSource = errors.New("no model source: use --models, --database or --schema-file")

// Config holds all configuration for the application
type Config struct {
	Apps               []string `koanf:"apps"` // Positional app labels, set from the arguments
	AllApplications    bool     `koanf:"all-applications"`
	Output             string   `koanf:"output"`
	VerboseNames       bool     `koanf:"verbose-names"`
	ExcludeColumns     string   `koanf:"exclude-columns"`
	ExcludeModels      string   `koanf:"exclude-models"`
	Pretend            bool     `koanf:"pretend"`
	Inheritance        bool     `koanf:"inheritance"`
	DisableSortFields  bool     `koanf:"disable-sort-fields"`
	Bezier             bool     `koanf:"bezier"`
	Models             string   `koanf:"models"`
	Database           string   `koanf:"database"`
	SchemaFile         string   `koanf:"schema-file"`
	Dialect            string   `koanf:"dialect"`
	Schemas            string   `koanf:"schemas"`
	CollapseJoinTables bool     `koanf:"collapse-join-tables"`
	IncludeRelated     int      `koanf:"include-related"`
	Seed               uint64   `koanf:"seed"`
	Verbosity          string   `koanf:"verbosity"`
	VerboseCnt         int      `koanf:"verbose"`
	LogFormat          string   `koanf:"log-format"`
}

// NewFlagSet defines the command line flags
func NewFlagSet(name string) *pflag.FlagSet {
	f := pflag.NewFlagSet(name, pflag.ContinueOnError)
	f.SortFlags = false

	f.BoolP("all-applications", "a", false, "Include all applications")
	f.StringP("output", "o", "", "Write a gzip-compressed .dia file instead of XML to stdout")
	f.BoolP("verbose-names", "n", false, "Use verbose names of models and fields")
	f.StringP("exclude-columns", "x", "", "Columns to leave out: a comma-separated list or a file with one per line")
	f.StringP("exclude-models", "X", "", "Models to leave out: a comma-separated list or a file with one per line")
	f.BoolP("pretend", "p", false, "List the selected models instead of drawing them")
	f.BoolP("inheritance", "e", false, "Draw inheritance arrows")
	f.BoolP("disable-sort-fields", "S", false, "Keep fields in declaration order")
	f.Bool("bezier", false, "Draw bezier lines instead of database references")

	f.StringP("models", "m", "", "Model manifest file or directory (YAML or JSON)")
	f.String("database", "", "Database URL to inspect (postgres://, mysql://, sqlite://)")
	f.String("schema-file", "", "Atlas HCL schema file to read")
	f.String("dialect", "", "Dialect of the schema file (postgres, mysql, sqlite)")
	f.String("schemas", "", "Comma-separated database schemas to inspect")
	f.Bool("collapse-join-tables", false, "Draw pure join tables as many-to-many relations")
	f.Int("include-related", 0, "Also draw models within N relation hops of the selection (-1 for all)")
	f.Uint64("seed", 0, "Random seed for positions and colours (0 picks one)")

	f.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	f.String("verbosity", "", "Log level (error, warn, info, debug, trace)")
	f.String("log-format", "text", "Log format (text, json)")
	f.String("config", DefaultFile, "Configuration file")
	return f
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	defaults := map[string]interface{}{
		"all-applications":     false,
		"output":               "",
		"verbose-names":        false,
		"exclude-columns":      "",
		"exclude-models":       "",
		"pretend":              false,
		"inheritance":          false,
		"disable-sort-fields":  false,
		"bezier":               false,
		"models":               "",
		"database":             "",
		"schema-file":          "",
		"dialect":              "",
		"schemas":              "",
		"collapse-join-tables": false,
		"include-related":      0,
		"seed":                 0,
		"verbosity":            "",
		"verbose":              0,
		"log-format":           "text",
	}
	if err := k.Load(makeMapProvider(defaults), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File
	// The default file is optional; a file named with --config must load
	path := DefaultFile
	explicit := false
	if f != nil {
		if p, err := f.GetString("config"); err == nil && p != "" {
			path = p
		}
		explicit = f.Changed("config")
	}
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	// 3. Environment Variables
	// Prefix: MODELDIA_ (e.g., MODELDIA_EXCLUDE_MODELS=auth.Group)
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "_", "-")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if f != nil {
		cfg.Apps = f.Args()
	}

	return &cfg, nil
}

// Source returns the configured metadata source. Exactly one must be set.
func (c *Config) Source() (string, error) {
	var sources []string
	if c.Models != "" {
		sources = append(sources, SourceManifest)
	}
	if c.Database != "" {
		sources = append(sources, SourceDatabase)
	}
	if c.SchemaFile != "" {
		sources = append(sources, SourceSchemaFile)
	}

	switch len(sources) {
	case 0:
		return "", ErrNoSource
	case 1:
	default:
		return "", fmt.Errorf("conflicting model sources: %s", strings.Join(sources, ", "))
	}

	if sources[0] == SourceSchemaFile && c.Dialect == "" {
		return "", errors.New("--schema-file requires --dialect")
	}
	return sources[0], nil
}

// SchemaList returns the requested database schemas
func (c *Config) SchemaList() []string {
	var schemas []string
	for _, s := range strings.Split(c.Schemas, ",") {
		if s = strings.TrimSpace(s); s != "" {
			schemas = append(schemas, s)
		}
	}
	return schemas
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
