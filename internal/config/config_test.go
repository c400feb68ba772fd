package config

import (
	"os"
	"testing"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			}
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t, "REDIS_URL", "WORKER_CONCURRENCY", "WORKER_QUEUES")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RedisURL != "redis://localhost:6379" {
		t.Errorf("expected default redis url, got %q", cfg.RedisURL)
	}
	if cfg.Concurrency != 10 {
		t.Errorf("expected default concurrency 10, got %d", cfg.Concurrency)
	}
	if len(cfg.Queues) != 1 || cfg.Queues[0].Name != "default" || cfg.Queues[0].Weight != 1 {
		t.Errorf("expected default queue default:1, got %+v", cfg.Queues)
	}
}

func TestParseQueueSpecs_ParsesWeights(t *testing.T) {
	specs := parseQueueSpecs("critical:5,default:2,low")
	if len(specs) != 3 {
		t.Fatalf("expected 3 queues, got %d", len(specs))
	}
	if specs[0] != (QueueSpec{Name: "critical", Weight: 5}) {
		t.Errorf("unexpected first spec: %+v", specs[0])
	}
	if specs[2] != (QueueSpec{Name: "low", Weight: 1}) {
		t.Errorf("expected bare name to default to weight 1, got %+v", specs[2])
	}
}

func TestParseQueueSpecs_EmptyFallsBackToDefault(t *testing.T) {
	specs := parseQueueSpecs("")
	if len(specs) != 1 || specs[0].Name != "default" {
		t.Fatalf("expected fallback to default:1, got %+v", specs)
	}
}

func TestLoadConfig_RejectsZeroConcurrency(t *testing.T) {
	clearEnv(t, "WORKER_CONCURRENCY")
	os.Setenv("WORKER_CONCURRENCY", "0")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected an error for zero concurrency")
	}
}
