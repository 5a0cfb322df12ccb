package app

import (
	"time"

	"github.com/soulkun/soulkun-backend/internal/jobs"
	"github.com/soulkun/soulkun-backend/internal/platform/envutil"
	"github.com/soulkun/soulkun-backend/internal/platform/logger"
	"github.com/soulkun/soulkun-backend/internal/services"
)

// Config is the whole runtime configuration, loaded once at startup and
// injected into each component. No component reads the environment on its own
// after this point, so tests can construct any knob combination directly.
type Config struct {
	Environment        string
	Version            string
	ServiceTokenSecret string

	// Feature flags: proactive monitoring can be paused fleet-wide, and
	// dry-run evaluates promotions without writing them. Both are copied into
	// OutcomeConfig below, which is where they take effect.
	UseProactiveMonitor bool
	DryRun              bool

	GoalPatternSeedPath string

	GoalSession services.GoalSessionConfig
	Learning    services.LearningConfig
	Outcome     services.OutcomeConfig
	Worker      jobs.WorkerConfig
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Environment:        envutil.String("APP_ENV", "development"),
		Version:            envutil.String("APP_VERSION", "dev"),
		ServiceTokenSecret: envutil.String("SERVICE_TOKEN_SECRET", "defaultsecret"),

		UseProactiveMonitor: envutil.Bool("USE_PROACTIVE_MONITOR", true),
		DryRun:              envutil.Bool("DRY_RUN", false),

		GoalPatternSeedPath: envutil.String("GOAL_PATTERN_SEED_PATH", ""),

		GoalSession: services.GoalSessionConfig{
			SessionTTL: envutil.Duration("GOAL_SESSION_TTL", 24*time.Hour),
			MaxRetry:   envutil.Int("GOAL_MAX_RETRY", services.MaxRetryCount),
		},
		Learning: services.LearningConfig{
			DedupWindow: envutil.Duration("LEARNING_DEDUP_WINDOW", 10*time.Minute),
		},
		Outcome: services.OutcomeConfig{
			PromoteMinSamples:    int64(envutil.Int("OUTCOME_PROMOTE_MIN_SAMPLES", 10)),
			PromoteMinConfidence: envutil.Float("OUTCOME_PROMOTE_MIN_CONFIDENCE", 0.6),
		},
		Worker: jobs.WorkerConfig{
			Concurrency:       envutil.Int("WORKER_CONCURRENCY", 2),
			PollInterval:      envutil.Duration("WORKER_POLL_INTERVAL", 5*time.Second),
			HeartbeatInterval: envutil.Duration("WORKER_HEARTBEAT_INTERVAL", 15*time.Second),
			MaxAttempts:       envutil.Int("WORKER_MAX_ATTEMPTS", 3),
			RetryDelay:        envutil.Duration("WORKER_RETRY_DELAY", time.Minute),
			StaleRunning:      envutil.Duration("WORKER_STALE_RUNNING", 5*time.Minute),
			JobTimeout:        envutil.Duration("WORKER_JOB_TIMEOUT", 10*time.Minute),
		},
	}
	cfg.Outcome.Disabled = !cfg.UseProactiveMonitor
	cfg.Outcome.DryRun = cfg.DryRun

	if cfg.ServiceTokenSecret == "defaultsecret" {
		log.Warn("SERVICE_TOKEN_SECRET not set; using insecure default")
	}
	return cfg
}
