package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:3000", cfg.Server.Addr())
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "fichas_tecnicas.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, []string{"python3", "python", "py"}, cfg.Calc.Candidates)
	assert.Equal(t, 60*time.Second, cfg.Calc.Timeout)
	assert.Equal(t, map[string]string{"cacao-convencional": "calculadoras.cacao_convencional.ejecutar"}, cfg.Calc.Engines)
	assert.Equal(t, DefaultsConfig{
		Category: "PEREN_SEMI",
		CropID:   1,
		Province: "No especificada",
		Engine:   "cacao-convencional",
	}, cfg.Defaults)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeFile(t, "fichas.yaml", `
server:
  port: 8080
database:
  path: /var/lib/fichas/fichas.db
log:
  level: DEBUG
  format: json
calc:
  interpreter: /usr/bin/python3.12
  timeout: 90s
  engines:
    cacao-convencional: calculadoras.cacao_convencional.ejecutar
    cafe-organico: calculadoras.cafe_organico.ejecutar
defaults:
  crop_id: 0
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "/var/lib/fichas/fichas.db", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "/usr/bin/python3.12", cfg.Calc.Interpreter)
	assert.Equal(t, 90*time.Second, cfg.Calc.Timeout)
	assert.Len(t, cfg.Calc.Engines, 2)
	assert.Zero(t, cfg.Defaults.CropID)
	assert.Equal(t, "PEREN_SEMI", cfg.Defaults.Category)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "fichas.yaml", "database:\n  path: from-file.db\n")
	t.Setenv("FICHAS_DATABASE_PATH", "from-env.db")
	t.Setenv("FICHAS_CALC_TIMEOUT", "2m")
	t.Setenv("FICHAS_DEFAULTS_PROVINCE", "Cusco")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env.db", cfg.Database.Path)
	assert.Equal(t, 2*time.Minute, cfg.Calc.Timeout)
	assert.Equal(t, "Cusco", cfg.Defaults.Province)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_SchemaViolationsReportedTogether(t *testing.T) {
	t.Setenv("FICHAS_SERVER_PORT", "70000")
	t.Setenv("FICHAS_LOG_LEVEL", "verbose")

	_, err := Load("")
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Problems, 2, "problems: %q", verr.Problems)

	byField := map[string]string{}
	for _, p := range verr.Problems {
		field, msg, _ := strings.Cut(p, ": ")
		byField[field] = msg
	}
	assert.Contains(t, byField, "server.port")
	assert.Contains(t, byField["log.level"], "verbose")
	assert.NotContains(t, byField["log.level"], "empty disjunction")

	msg := err.Error()
	assert.Contains(t, msg, "validation failed")
	assert.Contains(t, msg, "server.port")
	assert.Contains(t, msg, "log.level")
}

func TestLoad_BadEngineModule(t *testing.T) {
	path := writeFile(t, "fichas.yaml", `
calc:
  engines:
    cacao-convencional: "calculadoras/cacao; rm -rf"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "calc.engines")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Defaults.Engine = "cafe"
	cfg.Calc.Candidates = nil
	cfg.Calc.ProbeTimeout = time.Hour
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `defaults.engine ("cafe")`)
	assert.Contains(t, err.Error(), "calc.candidates")
	assert.Contains(t, err.Error(), "calc.probe_timeout")

	cfg = base()
	cfg.Calc.Interpreter = "/usr/bin/python3"
	cfg.Calc.Candidates = nil
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Calc.Engines = nil
	cfg.Defaults.Engine = ""
	assert.ErrorContains(t, cfg.Validate(), "calc.engines")
}

func TestString(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	s := cfg.String()
	assert.Contains(t, s, `Addr: "127.0.0.1:3000"`)
	assert.Contains(t, s, "auto(python3,python,py)")
	assert.Contains(t, s, "Engines: [cacao-convencional]")
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, ".env", "FICHAS_DOTENV_PROBE=from-dotenv\nFICHAS_DOTENV_KEEP=from-dotenv\n")
	t.Setenv("FICHAS_DOTENV_KEEP", "from-env")
	t.Setenv("FICHAS_DOTENV_PROBE", "")
	os.Unsetenv("FICHAS_DOTENV_PROBE")

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))

	assert.Equal(t, "from-dotenv", os.Getenv("FICHAS_DOTENV_PROBE"))
	assert.Equal(t, "from-env", os.Getenv("FICHAS_DOTENV_KEEP"))
}
