package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "INR", cfg.Razorpay.Currency)
	assert.False(t, cfg.Razorpay.Configured(), "placeholder key means simulated checkout")
	assert.Equal(t, 1500*time.Millisecond, cfg.Workflow.SimulatedPaymentDelay)
	assert.Equal(t, uint64(3), cfg.Workflow.BackgroundAttempts)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("IMPULSE_SERVER_PORT", "9090")
	t.Setenv("IMPULSE_RAZORPAY_KEY_ID", "rzp_test_abc")
	t.Setenv("IMPULSE_BREVO_API_KEYS", "k1, k2")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.True(t, cfg.Razorpay.Configured())
	assert.Equal(t, []string{"k1", "k2"}, cfg.Brevo.APIKeys)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("admin:\n  username: ops\n  password: s3cret\n"), 0o600))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "ops", cfg.Admin.Username)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load(viper.New(), "/nonexistent/impulse.yaml")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Config{Workflow: WorkflowConfig{BackgroundAttempts: 1}}
	require.Error(t, cfg.Validate(), "admin password required")

	cfg.Admin.Password = "x"
	cfg.Razorpay.KeyID = "rzp_live_x"
	require.Error(t, cfg.Validate(), "secret required with live key")

	cfg.Razorpay.KeySecret = "secret"
	require.NoError(t, cfg.Validate())
}

func TestDatabaseURLs(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "impulse", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=impulse sslmode=disable", c.DSN())
	assert.Equal(t, "pgx5://u:p@db:5432/impulse?sslmode=disable", c.MigrateURL())

	c.URL = "postgres://u:p@db/impulse"
	assert.Equal(t, c.URL, c.DSN())
	assert.Equal(t, "pgx5://u:p@db/impulse", c.MigrateURL())
}
