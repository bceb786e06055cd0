package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/yearlens/internal/utils"
)

// Global configuration structure.
type Global struct {
	// Rolling and slopes
	Window        int    `mapstructure:"window" yaml:"window" validate:"min=1,max=120"`
	LastN         int    `mapstructure:"last_n" yaml:"last_n" validate:"min=0"`
	MissingPolicy string `mapstructure:"missing_policy" yaml:"missing_policy" validate:"oneof=zero_fill mark_missing"`

	// Alerts
	YoYThreshold   float64 `mapstructure:"yoy_threshold" yaml:"yoy_threshold"`
	DeltaThreshold float64 `mapstructure:"delta_threshold" yaml:"delta_threshold"`
	SlopeThreshold float64 `mapstructure:"slope_threshold" yaml:"slope_threshold"`

	// Anomalies
	AnomalyWindow    int     `mapstructure:"anomaly_window" yaml:"anomaly_window" validate:"min=2"`
	AnomalyThreshold float64 `mapstructure:"anomaly_threshold" yaml:"anomaly_threshold" validate:"gte=0"`
	AnomalyRobust    bool    `mapstructure:"anomaly_robust" yaml:"anomaly_robust"`

	// Correlation
	CorrMethod     string  `mapstructure:"corr_method" yaml:"corr_method" validate:"oneof=pearson spearman"`
	CorrMinPeriods int     `mapstructure:"corr_min_periods" yaml:"corr_min_periods" validate:"min=1"`
	WinsorPct      float64 `mapstructure:"winsor_pct" yaml:"winsor_pct" validate:"gte=0,lte=50"`

	ShapeSensitivity float64 `mapstructure:"shape_sensitivity" yaml:"shape_sensitivity" validate:"gte=0,lte=1"`

	// Input and output
	NameColumn   string `mapstructure:"name_column" yaml:"name_column"`
	CodeColumn   string `mapstructure:"code_column" yaml:"code_column"`
	CurrencyUnit string `mapstructure:"currency_unit" yaml:"currency_unit"`
	ProjectsDir  string `mapstructure:"projects_dir" yaml:"projects_dir"`

	// Runtime
	Workers  int    `mapstructure:"workers" yaml:"workers" validate:"min=0,max=256"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	LogJSON  bool   `mapstructure:"log_json" yaml:"log_json"`
}

// ErrInvalid wraps validation failures.
var ErrInvalid = errors.New("invalid configuration")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report yaml key names instead of Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field ranges and enumerations.
func (c *Global) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: must satisfy %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s (got %v)", fe.Field(), fe.Tag(), fe.Value()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// Defaults returns the built-in configuration.
func Defaults() *Global {
	v := viper.New()
	setDefaults(v)
	var c Global
	_ = v.Unmarshal(&c)
	return &c
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("window", 12)
	v.SetDefault("last_n", 12)
	v.SetDefault("missing_policy", "zero_fill")
	v.SetDefault("yoy_threshold", -0.10)
	v.SetDefault("delta_threshold", -300000.0)
	v.SetDefault("slope_threshold", -1.0)
	v.SetDefault("anomaly_window", 12)
	v.SetDefault("anomaly_threshold", 3.0)
	v.SetDefault("anomaly_robust", false)
	v.SetDefault("corr_method", "pearson")
	v.SetDefault("corr_min_periods", 3)
	v.SetDefault("winsor_pct", 1.0)
	v.SetDefault("shape_sensitivity", 0.5)
	v.SetDefault("name_column", "product_name")
	v.SetDefault("code_column", "")
	v.SetDefault("currency_unit", "円")
	v.SetDefault("projects_dir", "~/.yearlens/projects")
	v.SetDefault("workers", 0)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// DefaultPath returns ~/.yearlens/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".yearlens", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.yearlens/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (applied by the caller) > env > config file > defaults.
// A missing config file is not an error; an unreadable or invalid one is.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("YEARLENS")
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, ".yearlens"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Set assigns a single key from its string form, as used by `config set`.
func (c *Global) Set(key, value string) error {
	field, ok := fieldByKey(key)
	if !ok {
		return fmt.Errorf("unknown key: %s", key)
	}
	value = strings.TrimSpace(value)
	dst := reflect.ValueOf(c).Elem().FieldByName(field)
	switch dst.Kind() {
	case reflect.Int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: not an integer: %q", key, value)
		}
		dst.SetInt(int64(n))
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s: not a number: %q", key, value)
		}
		dst.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: not a boolean: %q", key, value)
		}
		dst.SetBool(b)
	case reflect.String:
		dst.SetString(value)
	}
	return c.Validate()
}

// Keys lists the configurable keys in declaration order.
func Keys() []string {
	t := reflect.TypeOf(Global{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		keys = append(keys, t.Field(i).Tag.Get("yaml"))
	}
	return keys
}

func fieldByKey(key string) (string, bool) {
	t := reflect.TypeOf(Global{})
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("yaml") == key {
			return t.Field(i).Name, true
		}
	}
	return "", false
}
