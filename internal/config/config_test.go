package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	EnvOutput, EnvAllPorts, EnvMaxHosts, EnvServicesFile,
	EnvLogLevel, EnvNoColor, EnvMongoDatabase, "NO_COLOR",
}

// clearEnv 清空相关变量, 测试结束后恢复
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "scan_results.json", cfg.Output)
	assert.False(t, cfg.AllPorts)
	assert.Zero(t, cfg.MaxHosts)
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvOutput, "scans.db")
	t.Setenv(EnvAllPorts, "true")
	t.Setenv(EnvMaxHosts, "1024")
	t.Setenv(EnvServicesFile, "/etc/services")
	t.Setenv(EnvLogLevel, "DEBUG")
	t.Setenv(EnvMongoDatabase, "lab")

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, &Config{
		Output:        "scans.db",
		AllPorts:      true,
		MaxHosts:      1024,
		ServicesFile:  "/etc/services",
		LogLevel:      "debug",
		MongoDatabase: "lab",
	}, cfg)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"NETSCOPE_OUTPUT=from-file.json\nNETSCOPE_NO_COLOR=1\nNETSCOPE_MAX_HOSTS=256\n"), 0o600))
	// 进程环境变量优先
	t.Setenv(EnvMaxHosts, "64")

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "from-file.json", cfg.Output)
	assert.True(t, cfg.NoColor)
	assert.Equal(t, uint64(64), cfg.MaxHosts)
}

func TestLoad_NoColorConvention(t *testing.T) {
	clearEnv(t)
	t.Setenv("NO_COLOR", "1")
	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)
	assert.True(t, cfg.NoColor)
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		EnvAllPorts: "sometimes",
		EnvNoColor:  "maybe",
		EnvMaxHosts: "-5",
		EnvLogLevel: "loud",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := Load(missingEnvFile(t))
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Output = "  "
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.MongoDatabase = ""
	assert.Error(t, cfg.Validate())
}
