package config

import (
	"reflect"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/sciencebindu_test")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("PIPED_MIRRORS", "")
	t.Setenv("PIPED_TIMEOUT_SECONDS", "")
	t.Setenv("LOCALE", "")

	cfg := Load()
	if cfg.GeminiAPIKey != "" {
		t.Fatalf("GeminiAPIKey = %q, want empty", cfg.GeminiAPIKey)
	}
	if !reflect.DeepEqual(cfg.PipedMirrors, defaultPipedMirrors) {
		t.Fatalf("PipedMirrors = %v", cfg.PipedMirrors)
	}
	if cfg.PipedTimeout != 6*time.Second {
		t.Fatalf("PipedTimeout = %s, want 6s", cfg.PipedTimeout)
	}
	if cfg.Locale != "bn-BD" {
		t.Fatalf("Locale = %q", cfg.Locale)
	}
	if cfg.ExamSessionTTL != 2*time.Hour || cfg.ChatSessionTTL != 4*time.Hour {
		t.Fatalf("session TTLs = %s / %s", cfg.ExamSessionTTL, cfg.ChatSessionTTL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PIPED_MIRRORS", " https://x.example/ , https://y.example")
	t.Setenv("PIPED_TIMEOUT_SECONDS", "2")
	t.Setenv("GEMINI_CONCURRENT_REQUESTS", "not-a-number")
	t.Setenv("EXAM_SESSION_TTL_MINUTES", "30")

	cfg := Load()
	if want := []string{"https://x.example", "https://y.example"}; !reflect.DeepEqual(cfg.PipedMirrors, want) {
		t.Fatalf("PipedMirrors = %v, want %v", cfg.PipedMirrors, want)
	}
	if cfg.PipedTimeout != 2*time.Second {
		t.Fatalf("PipedTimeout = %s", cfg.PipedTimeout)
	}
	if cfg.GeminiConcurrentReqs != 5 {
		t.Fatalf("GeminiConcurrentReqs = %d, want default 5", cfg.GeminiConcurrentReqs)
	}
	if cfg.ExamSessionTTL != 30*time.Minute {
		t.Fatalf("ExamSessionTTL = %s", cfg.ExamSessionTTL)
	}
}

func TestLoad_PanicsWithoutRequired(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "REDIS_URL", "JWT_SECRET"} {
		t.Run(key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(key, "")
			defer func() {
				if recover() == nil {
					t.Fatalf("Load() did not panic without %s", key)
				}
			}()
			Load()
		})
	}
}

func TestGetEnvAsListOrDefault_OnlySeparators(t *testing.T) {
	defaults := []string{"https://a.example"}
	t.Setenv("MIRRORS_UNDER_TEST", " , ,")

	if got := getEnvAsListOrDefault("MIRRORS_UNDER_TEST", defaults); !reflect.DeepEqual(got, defaults) {
		t.Fatalf("got %v, want defaults", got)
	}
}
