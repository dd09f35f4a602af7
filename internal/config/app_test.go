package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, "3000", cfg.HTTPServer.Port)
	require.Equal(t, "https://api.exchangerate-api.com/v4/latest/USD", cfg.RatesAPI.URL)
	require.Equal(t, 5*time.Second, cfg.Rabbit.ReconnectInterval())
	require.Equal(t, 5*time.Second, cfg.Rabbit.PublishTimeout())
	require.Equal(t, ConsumerModeContinuous, cfg.Consumer.Mode)
	require.Equal(t, "*/1 * * * *", cfg.Consumer.PollSchedule)
	require.Empty(t, cfg.Rabbit.URL)
	require.Empty(t, cfg.Rabbit.Queue)
	require.False(t, cfg.DbServer.Enabled())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	yaml := "rabbit:\n  url: amqp://file/\n  queue: from_file\nconsumer:\n  mode: scheduled\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("QUEUE_NAME", "currency_rates")
	t.Setenv("RABBIT_RECONNECT_SECONDS", "2")
	t.Setenv("DB_HOST", "localhost")

	cfg, err := load(dir)
	require.NoError(t, err)
	require.Equal(t, "amqp://file/", cfg.Rabbit.URL)
	require.Equal(t, "currency_rates", cfg.Rabbit.Queue)
	require.Equal(t, 2*time.Second, cfg.Rabbit.ReconnectInterval())
	require.Equal(t, ConsumerModeScheduled, cfg.Consumer.Mode)
	require.True(t, cfg.DbServer.Enabled())
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("API_URL=http://rates.local/latest\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("API_URL") })

	cfg, err := load(dir)
	require.NoError(t, err)
	require.Equal(t, "http://rates.local/latest", cfg.RatesAPI.URL)
}

func TestLoad_UnknownConsumerMode(t *testing.T) {
	t.Setenv("CONSUMER_MODE", "sometimes")
	_, err := load(t.TempDir())
	require.ErrorContains(t, err, "unknown consumer mode")
}

func TestDbServer_GetConnectionStr(t *testing.T) {
	db := DbServer{Host: "h", Port: "5432", User: "u", Pass: "p", Name: "n"}
	require.Equal(t, "user=u password=p host=h port=5432 dbname=n sslmode=disable", db.GetConnectionStr())
}

func TestLoad_JobAndDedupEnv(t *testing.T) {
	t.Setenv("PRODUCER_JOB_TIMEOUT_SECONDS", "12")
	t.Setenv("CONSUMER_JOB_TIMEOUT_SECONDS", "7")
	t.Setenv("CONSUMER_DEDUP_MAX_ITEMS", "500")

	cfg, err := load(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 12, cfg.Producer.JobTimeoutSec)
	require.Equal(t, 7, cfg.Consumer.JobTimeoutSec)
	require.Equal(t, int64(500), cfg.Consumer.DedupMaxItems)
}

func TestLoad_NonPositiveLimitsFallBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	yaml := "producer:\n  job_timeout_seconds: 0\nconsumer:\n  job_timeout_seconds: -3\n  dedup_max_items: 0\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := load(dir)
	require.NoError(t, err)
	require.Equal(t, 30, cfg.Producer.JobTimeoutSec)
	require.Equal(t, 30, cfg.Consumer.JobTimeoutSec)
	require.Equal(t, int64(10000), cfg.Consumer.DedupMaxItems)
}
