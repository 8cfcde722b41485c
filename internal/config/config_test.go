package config

import "testing"

func TestLoadPoolSizesFromEnv(t *testing.T) {
	t.Setenv("DB_MAX_IDLE_CONNS", "5")
	t.Setenv("DB_MAX_OPEN_CONNS", "50")

	cfg := Load()
	if cfg.Database.MaxIdleConns != 5 {
		t.Errorf("MaxIdleConns = %d, want 5", cfg.Database.MaxIdleConns)
	}
	if cfg.Database.MaxOpenConns != 50 {
		t.Errorf("MaxOpenConns = %d, want 50", cfg.Database.MaxOpenConns)
	}
}

func TestGetEnvAsInt(t *testing.T) {
	t.Setenv("TEST_INT_VALUE", "42")
	if got := getEnvAsInt("TEST_INT_VALUE", 7); got != 42 {
		t.Errorf("got %d, want 42", got)
	}
	if got := getEnvAsInt("TEST_INT_MISSING", 7); got != 7 {
		t.Errorf("missing key: got %d, want fallback 7", got)
	}

	t.Setenv("TEST_INT_GARBAGE", "not-a-number")
	if got := getEnvAsInt("TEST_INT_GARBAGE", 7); got != 7 {
		t.Errorf("garbage value: got %d, want fallback 7", got)
	}
}
