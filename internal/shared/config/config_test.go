package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POLL_INTERVAL_SECONDS", "")
	t.Setenv("BATCH_SIZE", "")
	t.Setenv("OBJECT_STORE", "")

	cfg := Load()
	if cfg.PollIntervalSeconds != 5 {
		t.Fatalf("expected default poll interval 5, got %d", cfg.PollIntervalSeconds)
	}
	if cfg.BatchSize != 10 {
		t.Fatalf("expected default batch size 10, got %d", cfg.BatchSize)
	}
	if cfg.WorkerConcurrency != 1 {
		t.Fatalf("expected default concurrency 1, got %d", cfg.WorkerConcurrency)
	}
	if cfg.ObjectStoreType != "local" {
		t.Fatalf("expected local store, got %q", cfg.ObjectStoreType)
	}
	if cfg.SigningProvider != "docuseal" {
		t.Fatalf("expected docuseal provider, got %q", cfg.SigningProvider)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("POLL_INTERVAL_SECONDS", "30")
	t.Setenv("BATCH_SIZE", "50")
	t.Setenv("OBJECT_STORE", "S3")
	t.Setenv("S3_BUCKET", "docs")

	cfg := Load()
	if cfg.PollIntervalSeconds != 30 {
		t.Fatalf("expected poll interval 30, got %d", cfg.PollIntervalSeconds)
	}
	if cfg.BatchSize != 50 {
		t.Fatalf("expected batch size 50, got %d", cfg.BatchSize)
	}
	if cfg.ObjectStoreType != "s3" {
		t.Fatalf("expected s3 store, got %q", cfg.ObjectStoreType)
	}
	if got := cfg.PollInterval().Seconds(); got != 30 {
		t.Fatalf("expected 30s interval, got %vs", got)
	}
}

func TestValidateRejectsNonPositive(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"zero interval", Config{PollIntervalSeconds: 0, BatchSize: 10, WorkerConcurrency: 1}},
		{"negative interval", Config{PollIntervalSeconds: -1, BatchSize: 10, WorkerConcurrency: 1}},
		{"zero batch", Config{PollIntervalSeconds: 5, BatchSize: 0, WorkerConcurrency: 1}},
		{"negative batch", Config{PollIntervalSeconds: 5, BatchSize: -3, WorkerConcurrency: 1}},
		{"zero concurrency", Config{PollIntervalSeconds: 5, BatchSize: 10, WorkerConcurrency: 0}},
		{"s3 without bucket", Config{PollIntervalSeconds: 5, BatchSize: 10, WorkerConcurrency: 1, ObjectStoreType: "s3"}},
	}
	for _, tc := range cases {
		if err := tc.cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestGetEnvIntIgnoresGarbage(t *testing.T) {
	t.Setenv("BATCH_SIZE", "not-a-number")
	cfg := Load()
	if cfg.BatchSize != 10 {
		t.Fatalf("expected fallback batch size 10, got %d", cfg.BatchSize)
	}
}
