// Package config resolves runtime settings for the conflator CLI.
//
// Precedence, highest first: command-line flags, CONFLATE_* environment
// variables, .env files, the project file, built-in defaults.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/meshblock/conflator/internal/logging"
	"github.com/meshblock/conflator/pkg/containment"
	"github.com/meshblock/conflator/pkg/project"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "CONFLATE"

// Setting keys. Flags use the same names.
const (
	KeyThreshold   = "threshold"
	KeyWorkers     = "workers"
	KeyLogLevel    = "log-level"
	KeyLogFormat   = "log-format"
	KeyLogOutput   = "log-output"
	KeyOutput      = "output"
	KeyFormat      = "format"
	KeyMetricsFile = "metrics-file"
	KeyAddr        = "addr"
)

// DefaultEnvFiles are loaded when Load is given none. .env.local overrides
// .env; neither overrides variables already in the environment.
var DefaultEnvFiles = []string{".env.local", ".env"}

// Config holds the resolved settings.
type Config struct {
	LogLevel    string
	LogFormat   string
	LogOutput   string
	Output      string
	Format      string
	MetricsFile string
	Addr        string

	v *viper.Viper
}

// Load reads settings from flags, the environment and .env files. Missing
// .env files are ignored.
func Load(flags *pflag.FlagSet, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = DefaultEnvFiles
	}
	loadEnvFiles(envFiles)

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "auto")
	v.SetDefault(KeyLogOutput, "stderr")
	v.SetDefault(KeyOutput, "-")
	v.SetDefault(KeyFormat, "table")
	v.SetDefault(KeyAddr, ":8080")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("binding flags: %w", err)
		}
	}

	return &Config{
		LogLevel:    v.GetString(KeyLogLevel),
		LogFormat:   v.GetString(KeyLogFormat),
		LogOutput:   v.GetString(KeyLogOutput),
		Output:      v.GetString(KeyOutput),
		Format:      v.GetString(KeyFormat),
		MetricsFile: v.GetString(KeyMetricsFile),
		Addr:        v.GetString(KeyAddr),
		v:           v,
	}, nil
}

// Logging returns the logger configuration.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.LogLevel
	cfg.Format = c.LogFormat
	cfg.Output = c.LogOutput
	return cfg
}

// Threshold returns the threshold set by flag or environment, else the
// project's, else the default. The result is validated.
func (c *Config) Threshold(p *project.Project) (containment.Threshold, error) {
	if c.v.IsSet(KeyThreshold) {
		return containment.NewThreshold(c.v.GetFloat64(KeyThreshold))
	}
	t := containment.DefaultThreshold
	if p != nil {
		t = p.ThresholdOr(t)
	}
	return containment.NewThreshold(float64(t))
}

// Workers returns the worker count set by flag or environment, else the
// project's. Zero means one worker per CPU.
func (c *Config) Workers(p *project.Project) int {
	if c.v.IsSet(KeyWorkers) {
		return c.v.GetInt(KeyWorkers)
	}
	if p != nil {
		return p.Workers
	}
	return 0
}

func loadEnvFiles(files []string) {
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}
