package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FICHAS_DATABASE_PATH.
const EnvPrefix = "FICHAS"

//go:embed schema.cue
var schemaCUE string

// setDefaults registers every key so environment overrides are picked up
// by Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.allow_origins", []string{"*"})

	v.SetDefault("database.path", "fichas_tecnicas.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("calc.interpreter", "")
	v.SetDefault("calc.candidates", []string{"python3", "python", "py"})
	v.SetDefault("calc.workdir", ".")
	v.SetDefault("calc.timeout", 60*time.Second)
	v.SetDefault("calc.probe_timeout", 5*time.Second)
	v.SetDefault("calc.engines", map[string]string{
		"cacao-convencional": "calculadoras.cacao_convencional.ejecutar",
	})

	v.SetDefault("defaults.category", "PEREN_SEMI")
	v.SetDefault("defaults.crop_id", 1)
	v.SetDefault("defaults.province", "No especificada")
	v.SetDefault("defaults.engine", "cacao-convencional")
}

// Load reads configuration with this precedence (highest first):
// FICHAS_* environment variables, the YAML file, built-in defaults.
//
// When path is empty, fichas.yaml in the working directory is used if it
// exists. An explicit path that cannot be read is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("fichas")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)

	if err := CheckSchema(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Variables already set win. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// CheckSchema validates cfg against the embedded CUE schema and reports
// every violation at once.
func CheckSchema(cfg *Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	value := schema.Unify(ctx.CompileBytes(data))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Problems: schemaProblems(err)}
	}
	return nil
}

// schemaProblems reports one line per offending field. A value rejected by
// every branch of a disjunction yields one CUE error per branch; those are
// merged into a single line.
func schemaProblems(err error) []string {
	var (
		paths  []string
		byPath = map[string][]string{}
	)
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		path := strings.TrimPrefix(strings.Join(e.Path(), "."), "#Config.")
		msg := fmt.Sprintf(format, args...)
		if _, seen := byPath[path]; !seen {
			paths = append(paths, path)
		}
		if !slices.Contains(byPath[path], msg) {
			byPath[path] = append(byPath[path], msg)
		}
	}

	problems := make([]string, 0, len(paths))
	for _, path := range paths {
		msgs := byPath[path]
		if len(msgs) > 1 {
			// Drop summary headers such as "4 errors in empty disjunction:".
			msgs = slices.DeleteFunc(msgs, func(m string) bool {
				return strings.HasSuffix(m, ":") || strings.Contains(m, "empty disjunction")
			})
		}
		problems = append(problems, path+": "+strings.Join(msgs, "; "))
	}
	return problems
}
