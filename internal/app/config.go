package app

import (
	"time"

	"github.com/brightloop/geoscore-backend/internal/pkg/envutil"
	"github.com/brightloop/geoscore-backend/internal/runner"
)

type Config struct {
	Addr          string
	RunnerEnabled bool
	StaleRunning  time.Duration
	PolicyFile    string
	Runner        runner.Config
	Environment   string
	Version       string
}

func LoadConfig() Config {
	return Config{
		Addr:          envutil.Str("HTTP_ADDR", ":8080"),
		RunnerEnabled: envutil.Bool("RUNNER_ENABLED", true),
		StaleRunning:  envutil.Duration("JOB_STALE_RUNNING", 5*time.Minute),
		PolicyFile:    envutil.Str("RUNNER_POLICY_FILE", ""),
		Runner: runner.Config{
			PollInterval:      envutil.Duration("RUNNER_POLL_INTERVAL", time.Second),
			MaxBatchSize:      envutil.Int("RUNNER_MAX_BATCH", 5),
			HeartbeatInterval: envutil.Duration("RUNNER_HEARTBEAT_INTERVAL", 15*time.Second),
			HealthInterval:    envutil.Duration("RUNNER_HEALTH_INTERVAL", 30*time.Second),
			ShutdownGrace:     envutil.Duration("RUNNER_SHUTDOWN_GRACE", 30*time.Second),
		},
		Environment: envutil.Str("APP_ENV", "development"),
		Version:     envutil.Str("APP_VERSION", "dev"),
	}
}
