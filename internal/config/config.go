// Package config loads service configuration from defaults, an optional
// YAML file and FICHAS_* environment variables, and validates it before
// anything starts.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" json:"server" yaml:"server"`
	Database DatabaseConfig `mapstructure:"database" json:"database" yaml:"database"`
	Log      LogConfig      `mapstructure:"log" json:"log" yaml:"log"`
	Calc     CalcConfig     `mapstructure:"calc" json:"calc" yaml:"calc"`
	Defaults DefaultsConfig `mapstructure:"defaults" json:"defaults" yaml:"defaults"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 127.0.0.1)
	Host string `mapstructure:"host" json:"host" yaml:"host"`

	// Port is the port to listen on (default: 3000)
	Port int `mapstructure:"port" json:"port" yaml:"port"`

	// ReadTimeout bounds reading a request (default: 15s)
	ReadTimeout time.Duration `mapstructure:"read_timeout" json:"read_timeout" yaml:"read_timeout"`

	// AllowOrigins lists CORS origins (default: *)
	AllowOrigins []string `mapstructure:"allow_origins" json:"allow_origins" yaml:"allow_origins"`

	// ShutdownTimeout is the grace period for in-flight requests (default: 30s)
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// DatabaseConfig holds storage settings.
type DatabaseConfig struct {
	// Path is the SQLite database file (default: fichas_tecnicas.db)
	Path string `mapstructure:"path" json:"path" yaml:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `mapstructure:"level" json:"level" yaml:"level"`

	// Format is the log encoding: console or json (default: console)
	Format string `mapstructure:"format" json:"format" yaml:"format"`
}

// CalcConfig holds calculation engine settings.
type CalcConfig struct {
	// Interpreter skips discovery when set.
	Interpreter string `mapstructure:"interpreter" json:"interpreter" yaml:"interpreter"`

	// Candidates are probed in order (default: python3, python, py)
	Candidates []string `mapstructure:"candidates" json:"candidates" yaml:"candidates"`

	// WorkDir must contain the calculators package (default: .)
	WorkDir string `mapstructure:"workdir" json:"workdir" yaml:"workdir"`

	// Timeout bounds one engine run (default: 60s)
	Timeout time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`

	// ProbeTimeout bounds one interpreter probe (default: 5s)
	ProbeTimeout time.Duration `mapstructure:"probe_timeout" json:"probe_timeout" yaml:"probe_timeout"`

	// Engines maps engine keys to Python module entry points.
	Engines map[string]string `mapstructure:"engines" json:"engines" yaml:"engines"`
}

// DefaultsConfig holds the fallbacks for omitted request fields. An empty
// value (or 0 for crop_id) makes the field required.
type DefaultsConfig struct {
	Category string `mapstructure:"category" json:"category" yaml:"category"`
	CropID   int64  `mapstructure:"crop_id" json:"crop_id" yaml:"crop_id"`
	Province string `mapstructure:"province" json:"province" yaml:"province"`
	Engine   string `mapstructure:"engine" json:"engine" yaml:"engine"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks cross-field rules the schema cannot express.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	if c.Calc.Interpreter == "" && len(c.Calc.Candidates) == 0 {
		errs = append(errs, "calc.candidates must not be empty when calc.interpreter is unset")
	}
	if len(c.Calc.Engines) == 0 {
		errs = append(errs, "calc.engines must register at least one engine")
	}
	if c.Defaults.Engine != "" {
		if _, ok := c.Calc.Engines[c.Defaults.Engine]; !ok {
			errs = append(errs, fmt.Sprintf("defaults.engine (%q) is not a registered engine", c.Defaults.Engine))
		}
	}
	if c.Calc.ProbeTimeout > c.Calc.Timeout {
		errs = append(errs, fmt.Sprintf("calc.probe_timeout (%s) must not exceed calc.timeout (%s)",
			c.Calc.ProbeTimeout, c.Calc.Timeout))
	}

	if len(errs) > 0 {
		return &ValidationError{Problems: errs}
	}
	return nil
}

// ValidationError lists every configuration problem found in one pass.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed:\n  - " + strings.Join(e.Problems, "\n  - ")
}

// String returns a one-line summary of the config for logging.
func (c *Config) String() string {
	engines := make([]string, 0, len(c.Calc.Engines))
	for k := range c.Calc.Engines {
		engines = append(engines, k)
	}
	sort.Strings(engines)

	interpreter := c.Calc.Interpreter
	if interpreter == "" {
		interpreter = "auto(" + strings.Join(c.Calc.Candidates, ",") + ")"
	}

	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Addr: %q}, ", c.Server.Addr()))
	b.WriteString(fmt.Sprintf("Database: {Path: %q}, ", c.Database.Path))
	b.WriteString(fmt.Sprintf("Log: {Level: %q, Format: %q}, ", c.Log.Level, c.Log.Format))
	b.WriteString(fmt.Sprintf("Calc: {Interpreter: %s, WorkDir: %q, Timeout: %s, Engines: [%s]}",
		interpreter, c.Calc.WorkDir, c.Calc.Timeout, strings.Join(engines, ", ")))
	b.WriteString("}")
	return b.String()
}
