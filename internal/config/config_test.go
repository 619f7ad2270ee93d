package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("REGISTRY_INTERVAL", "")
	t.Setenv("FRONTEND_URL", "https://sympep.example.org")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Driver != DriverPostgres {
		t.Errorf("expected driver %q, got %q", DriverPostgres, cfg.Database.Driver)
	}
	if cfg.Registry.Interval != time.Minute {
		t.Errorf("expected registry interval 1m, got %v", cfg.Registry.Interval)
	}
	if cfg.Registry.BatchSize != 100 {
		t.Errorf("expected batch size 100, got %d", cfg.Registry.BatchSize)
	}

	last := cfg.Server.AllowedOrigins[len(cfg.Server.AllowedOrigins)-1]
	if last != "https://sympep.example.org" {
		t.Errorf("expected FRONTEND_URL to be appended, got %q", last)
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when JWT_SECRET is missing")
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "mysql")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestLoadRejectsBadInterval(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("REGISTRY_INTERVAL", "soon")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unparsable interval")
	}
}

func TestGetDSN(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Host: "db", Port: "5433", User: "editor", Password: "pw", DBName: "sympep",
	}}

	want := "host=db port=5433 user=editor password=pw dbname=sympep sslmode=disable"
	if got := cfg.GetDSN(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
