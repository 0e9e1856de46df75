package app

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"sheets_join/internal/config"
	"sheets_join/internal/join"
	"sheets_join/internal/processing"
	"sheets_join/internal/publish"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Backends.
const (
	BackendSheets = "sheets"
	BackendXLSX   = "xlsx"
)

// Config is the full runtime configuration. Every key can be set as an
// upper-cased environment variable or in a YAML config file.
type Config struct {
	PrimaryTableID     string `mapstructure:"primary_table_id"`
	PrimarySheetName   string `mapstructure:"primary_sheet_name" default:"courses xano data Selection für Upload"`
	PrimaryKeyColumn   string `mapstructure:"primary_key_column" default:"uuid"`
	PrimaryValueColumn string `mapstructure:"primary_value_column" default:"title_meinnow"`

	SecondaryTableID   string `mapstructure:"secondary_table_id"`
	SecondarySheetName string `mapstructure:"secondary_sheet_name" default:"page_logs"`
	SecondaryKeyColumn string `mapstructure:"secondary_key_column" default:"course_id"`

	// TargetTableID defaults to SecondaryTableID.
	TargetTableID   string `mapstructure:"target_table_id"`
	TargetSheetName string `mapstructure:"target_sheet_name" default:"Sheet2"`

	Backend               string `mapstructure:"backend" default:"sheets"`
	GoogleCredentialsJSON string `mapstructure:"google_credentials_json"`
	GoogleCredentialsFile string `mapstructure:"google_credentials_file" default:"credentials.json"`

	ReadRetries      int           `mapstructure:"read_retries" default:"0"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout" default:"0s"`
	ReseedNonFormula bool          `mapstructure:"reseed_non_formula" default:"false"`

	NtfyEnabled  bool   `mapstructure:"ntfy_enabled" default:"false"`
	NtfyURL      string `mapstructure:"ntfy_url" default:"https://ntfy.sh"`
	NtfyTopic    string `mapstructure:"ntfy_topic" default:"sheets-join"`
	NtfyPriority string `mapstructure:"ntfy_priority" default:"default"`
}

// EnvFiles are loaded, when present, before the environment is read.
// Variables already set in the process environment win.
var EnvFiles = []string{".env.local", ".env"}

// LoadConfig reads .env files, the environment and, when configFile is not
// empty, a YAML config file. Environment variables override the file.
func LoadConfig(configFile string) (*Config, error) {
	for _, f := range EnvFiles {
		// Missing files are expected outside development.
		_ = godotenv.Load(f)
	}

	v := viper.New()
	bindDefaults(v, Config{})
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.TargetTableID == "" {
		cfg.TargetTableID = cfg.SecondaryTableID
	}
	return &cfg, nil
}

// bindDefaults registers every mapstructure key with its default tag so
// AutomaticEnv can resolve it during Unmarshal.
func bindDefaults(v *viper.Viper, iface any) {
	t := reflect.TypeOf(iface)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key := field.Tag.Get("mapstructure")
		if key == "" {
			continue
		}
		v.SetDefault(key, field.Tag.Get("default"))
	}
}

// Validate reports every missing or invalid setting at once.
func (c *Config) Validate() error {
	var problems []string
	if c.PrimaryTableID == "" {
		problems = append(problems, "PRIMARY_TABLE_ID is required")
	}
	if c.SecondaryTableID == "" {
		problems = append(problems, "SECONDARY_TABLE_ID is required")
	}
	for name, val := range map[string]string{
		"PRIMARY_SHEET_NAME":   c.PrimarySheetName,
		"PRIMARY_KEY_COLUMN":   c.PrimaryKeyColumn,
		"PRIMARY_VALUE_COLUMN": c.PrimaryValueColumn,
		"SECONDARY_SHEET_NAME": c.SecondarySheetName,
		"SECONDARY_KEY_COLUMN": c.SecondaryKeyColumn,
		"TARGET_SHEET_NAME":    c.TargetSheetName,
	} {
		if strings.TrimSpace(val) == "" {
			problems = append(problems, name+" must not be empty")
		}
	}
	if c.Backend != BackendSheets && c.Backend != BackendXLSX {
		problems = append(problems, fmt.Sprintf("BACKEND must be %q or %q, got %q", BackendSheets, BackendXLSX, c.Backend))
	}
	if c.ReadRetries < 0 {
		problems = append(problems, "READ_RETRIES must not be negative")
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
}

// Processing builds the run configuration.
func (c *Config) Processing(dryRun bool) processing.Config {
	return processing.Config{
		Primary: processing.Source{
			TableID:     c.PrimaryTableID,
			SubTable:    c.PrimarySheetName,
			KeyColumn:   c.PrimaryKeyColumn,
			ValueColumn: c.PrimaryValueColumn,
		},
		Secondary: processing.Source{
			TableID:   c.SecondaryTableID,
			SubTable:  c.SecondarySheetName,
			KeyColumn: c.SecondaryKeyColumn,
		},
		Target: processing.Target{
			TableID:  c.TargetTableID,
			SubTable: c.TargetSheetName,
		},
		Resilience: config.DefaultResilienceConfig.WithReadRetries(c.ReadRetries, c.ReadTimeout),
		DryRun:     dryRun,
	}
}

// PublishOptions returns the writer options.
func (c *Config) PublishOptions() publish.Options {
	return publish.Options{ReseedNonFormula: c.ReseedNonFormula}
}

// ExpectedPrimaryColumns lists the primary columns a run reads.
func (c *Config) ExpectedPrimaryColumns() []string {
	return []string{c.PrimaryKeyColumn, c.PrimaryValueColumn}
}

// ExpectedSecondaryColumns lists the secondary columns a run reads.
func (c *Config) ExpectedSecondaryColumns() []string {
	return []string{c.SecondaryKeyColumn, join.BrandColumn, join.ReceivedAtColumn, join.CourseTypeColumn}
}
