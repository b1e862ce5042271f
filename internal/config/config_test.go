package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("VIDTUBE_ACCESS_TOKEN_SECRET", "access")
	t.Setenv("VIDTUBE_REFRESH_TOKEN_SECRET", "refresh")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.AppPort != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.AppPort)
	}
	if cfg.Auth.AccessTokenSecret != "access" || cfg.Auth.RefreshTokenSecret != "refresh" {
		t.Fatalf("expected token secrets from the environment, got %+v", cfg.Auth)
	}
	if cfg.Auth.RateLimit != 10 || cfg.Auth.RegisterRateLimit != 5 || cfg.Auth.RefreshRateLimit != 30 {
		t.Fatalf("unexpected default auth budgets %+v", cfg.Auth)
	}
	if cfg.ObjectStore.Bucket != "vidtube-media" || cfg.Media.JanitorWorkers != 2 {
		t.Fatalf("expected nested defaults, got %+v %+v", cfg.ObjectStore, cfg.Media)
	}
	if cfg.TrustProxy {
		t.Fatal("expected forwarded headers to be ignored by default")
	}
	if cfg.Auth.AccessTokenTTL != time.Hour {
		t.Fatalf("expected default access ttl, got %s", cfg.Auth.AccessTokenTTL)
	}
	if cfg.Auth.RefreshTokenTTL != 240*time.Hour {
		t.Fatalf("expected default refresh ttl, got %s", cfg.Auth.RefreshTokenTTL)
	}
	if cfg.Media.UploadDir == "" {
		t.Fatal("expected upload dir to fall back to the temp dir")
	}
	if !cfg.CookieSecure {
		t.Fatal("expected secure cookies by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults with secrets to validate: %v", err)
	}
}

func TestLoadReadsOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("VIDTUBE_PORT", "9090")
	t.Setenv("VIDTUBE_CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("VIDTUBE_S3_BUCKET", "media")
	t.Setenv("VIDTUBE_JANITOR_WORKERS", "4")
	t.Setenv("VIDTUBE_ACCESS_TOKEN_TTL", "2h")
	t.Setenv("VIDTUBE_REFRESH_RATE_LIMIT", "7")
	t.Setenv("VIDTUBE_TRUST_PROXY", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.AppPort != 9090 {
		t.Fatalf("expected port override, got %d", cfg.AppPort)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSOrigins)
	}
	if cfg.ObjectStore.Bucket != "media" {
		t.Fatalf("expected bucket override, got %q", cfg.ObjectStore.Bucket)
	}
	if cfg.Media.JanitorWorkers != 4 {
		t.Fatalf("expected janitor workers override, got %d", cfg.Media.JanitorWorkers)
	}
	if cfg.Auth.AccessTokenTTL != 2*time.Hour {
		t.Fatalf("expected access ttl override, got %s", cfg.Auth.AccessTokenTTL)
	}
	if cfg.Auth.RefreshRateLimit != 7 {
		t.Fatalf("expected refresh budget override, got %d", cfg.Auth.RefreshRateLimit)
	}
	if !cfg.TrustProxy {
		t.Fatal("expected trust proxy override")
	}
}

func TestLoadIgnoresGroupNamespacedVariables(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("VIDTUBE_AUTH_ACCESS_TOKEN_SECRET", "namespaced")
	t.Setenv("VIDTUBE_OBJECTSTORE_S3_BUCKET", "namespaced")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Auth.AccessTokenSecret != "" {
		t.Fatalf("expected only VIDTUBE_ACCESS_TOKEN_SECRET to be read, got %q", cfg.Auth.AccessTokenSecret)
	}
	if cfg.ObjectStore.Bucket != "vidtube-media" {
		t.Fatalf("expected only VIDTUBE_S3_BUCKET to be read, got %q", cfg.ObjectStore.Bucket)
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("VIDTUBE_ACCESS_TOKEN_TTL", "soon")

	if _, err := Load(); err == nil {
		t.Fatal("expected malformed duration to fail")
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		AppPort:     8080,
		DatabaseURL: "postgres://localhost/vidtube",
		Auth: AuthConfig{
			AccessTokenSecret:  "a",
			RefreshTokenSecret: "b",
			AccessTokenTTL:     time.Minute,
			RefreshTokenTTL:    time.Hour,
		},
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing access secret", mutate: func(c *Config) { c.Auth.AccessTokenSecret = "" }, wantErr: "ACCESS_TOKEN_SECRET"},
		{name: "shared secret", mutate: func(c *Config) { c.Auth.RefreshTokenSecret = "a" }, wantErr: "must differ"},
		{name: "zero ttl", mutate: func(c *Config) { c.Auth.RefreshTokenTTL = 0 }, wantErr: "ttls"},
		{name: "bad port", mutate: func(c *Config) { c.AppPort = 0 }, wantErr: "invalid port"},
		{name: "no database", mutate: func(c *Config) { c.DatabaseURL = " " }, wantErr: "DATABASE_URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
