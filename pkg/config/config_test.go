package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func parse(t *testing.T, args ...string) *Config {
	t.Helper()
	f := NewFlagSet("modeldia")
	// keep tests independent of a modeldia.toml in the package directory
	empty := filepath.Join(t.TempDir(), "empty.toml")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := f.Set("config", empty); err != nil {
		t.Fatalf("Set(config) error = %v", err)
	}
	if err := f.Parse(args); err != nil {
		t.Fatalf("Parse(%v) error = %v", args, err)
	}
	cfg, err := Load(f)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := parse(t)

	if cfg.Output != "" || cfg.Pretend || cfg.Bezier || cfg.AllApplications {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("Expected log format text, got %q", cfg.LogFormat)
	}
	if cfg.IncludeRelated != 0 || cfg.Seed != 0 || cfg.VerboseCnt != 0 {
		t.Errorf("Expected zero numeric defaults, got %+v", cfg)
	}
	if len(cfg.Apps) != 0 {
		t.Errorf("Expected no apps, got %v", cfg.Apps)
	}
}

func TestLoad_Flags(t *testing.T) {
	cfg := parse(t,
		"-a", "-n", "-e", "-S", "-vv",
		"-o", "models", "-X", "auth.Group,Shop", "-x", "created",
		"--bezier", "--models", "models/", "--include-related", "2", "--seed", "42",
		"anyapp", "blog",
	)

	if !cfg.AllApplications || !cfg.VerboseNames || !cfg.Inheritance || !cfg.DisableSortFields || !cfg.Bezier {
		t.Errorf("Expected boolean flags set, got %+v", cfg)
	}
	if cfg.VerboseCnt != 2 {
		t.Errorf("Expected verbose count 2, got %d", cfg.VerboseCnt)
	}
	if cfg.Output != "models" {
		t.Errorf("Expected output models, got %q", cfg.Output)
	}
	if cfg.ExcludeModels != "auth.Group,Shop" || cfg.ExcludeColumns != "created" {
		t.Errorf("Unexpected exclusions %q / %q", cfg.ExcludeModels, cfg.ExcludeColumns)
	}
	if cfg.IncludeRelated != 2 || cfg.Seed != 42 {
		t.Errorf("Unexpected numbers: include-related %d, seed %d", cfg.IncludeRelated, cfg.Seed)
	}
	if len(cfg.Apps) != 2 || cfg.Apps[0] != "anyapp" || cfg.Apps[1] != "blog" {
		t.Errorf("Expected apps [anyapp blog], got %v", cfg.Apps)
	}
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "modeldia.toml")
	content := "output = \"from-file\"\ninheritance = true\nexclude-models = \"auth.Group\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("MODELDIA_EXCLUDE_MODELS", "Shop")
	t.Setenv("MODELDIA_OUTPUT", "from-env")

	f := NewFlagSet("modeldia")
	if err := f.Parse([]string{"--config", path, "-o", "from-flag"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	cfg, err := Load(f)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Output != "from-flag" {
		t.Errorf("Flags should win, got output %q", cfg.Output)
	}
	if cfg.ExcludeModels != "Shop" {
		t.Errorf("Env should override the file, got %q", cfg.ExcludeModels)
	}
	if !cfg.Inheritance {
		t.Error("Expected inheritance from the config file")
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	malformed := filepath.Join(dir, "malformed.toml")
	if err := os.WriteFile(malformed, []byte("output = \"unterminated\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"missing default file", nil, false},
		{"missing explicit file", []string{"--config", filepath.Join(dir, "missing.toml")}, true},
		{"malformed explicit file", []string{"--config", malformed}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// the default file is looked up in the working directory
			t.Chdir(t.TempDir())
			f := NewFlagSet("modeldia")
			if err := f.Parse(tt.args); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			_, err := Load(f)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	t.Run("malformed default file", func(t *testing.T) {
		t.Chdir(t.TempDir())
		if err := os.WriteFile(DefaultFile, []byte("seed = [\n"), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		_, err := Load(NewFlagSet("modeldia"))
		if err == nil || !strings.Contains(err.Error(), DefaultFile) {
			t.Errorf("Expected an error naming %s, got %v", DefaultFile, err)
		}
	})
}

func TestConfig_Source(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    string
		wantErr bool
	}{
		{"manifest", Config{Models: "models/"}, SourceManifest, false},
		{"database", Config{Database: "sqlite://app.db"}, SourceDatabase, false},
		{"schema file", Config{SchemaFile: "schema.hcl", Dialect: "postgres"}, SourceSchemaFile, false},
		{"schema file without dialect", Config{SchemaFile: "schema.hcl"}, "", true},
		{"none", Config{}, "", true},
		{"conflict", Config{Models: "models/", Database: "sqlite://app.db"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.Source()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Source() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Source() = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := (&Config{}).Source(); !errors.Is(err, ErrNoSource) {
		t.Errorf("Expected ErrNoSource, got %v", err)
	}
}

func TestConfig_SchemaList(t *testing.T) {
	cfg := Config{Schemas: "public, sales,,"}
	got := cfg.SchemaList()
	if len(got) != 2 || got[0] != "public" || got[1] != "sales" {
		t.Errorf("SchemaList() = %v", got)
	}
	if got := (&Config{}).SchemaList(); got != nil {
		t.Errorf("Expected nil, got %v", got)
	}
}
