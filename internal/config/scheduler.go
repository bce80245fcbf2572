package config

import "time"

// SchedulerConfig holds the cron specs of the background jobs.  Specs use
// the robfig/cron syntax, so both "@every 1m" and "0 0 * * MON" work.
type SchedulerConfig struct {
	Enabled        bool
	StatusSpec     string        // reservation status sweep
	BlacklistSpec  string        // blacklist release
	PurgeSpec      string        // soft-delete purge
	PurgeRetention time.Duration // soft-deleted rows older than this are purged
	JobTimeout     time.Duration // upper bound for one job run
}

func LoadSchedulerConfig() SchedulerConfig {
	cfg := SchedulerConfig{
		Enabled:        envBool("SCHEDULER_ENABLED", true),
		StatusSpec:     envStr("SWEEP_STATUS_SPEC", "@every 1m"),
		BlacklistSpec:  envStr("SWEEP_BLACKLIST_SPEC", "@every 1h"),
		PurgeSpec:      envStr("SWEEP_PURGE_SPEC", "0 0 * * MON"),
		PurgeRetention: envDur("PURGE_RETENTION", 7*24*time.Hour),
		JobTimeout:     envDur("SCHEDULER_JOB_TIMEOUT", 50*time.Second),
	}
	if cfg.PurgeRetention <= 0 {
		cfg.PurgeRetention = 7 * 24 * time.Hour
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 50 * time.Second
	}
	return cfg
}
