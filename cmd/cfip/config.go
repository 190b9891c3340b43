package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/abczzz13/cloudflareip"
)

// envConfig is the process configuration read from CFIP_* variables.
type envConfig struct {
	CacheTTL        time.Duration
	FetchTimeout    time.Duration
	SpoofCheck      bool
	BaseURL         string
	RedisAddr       string
	RefreshSchedule string
	Listen          string
}

func defaultEnvConfig() envConfig {
	return envConfig{
		CacheTTL:        cloudflareip.DefaultCacheTTL,
		FetchTimeout:    cloudflareip.DefaultFetchTimeout,
		SpoofCheck:      true,
		BaseURL:         cloudflareip.DefaultBaseURL,
		RefreshSchedule: "@every 1h",
		Listen:          ":8080",
	}
}

// loadEnvFile loads path into the environment. A missing file is not an
// error unless the path was given explicitly.
func loadEnvFile(path string, explicit bool) error {
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

func loadEnvConfig() (envConfig, error) {
	cfg := defaultEnvConfig()

	if v := os.Getenv("CFIP_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("CFIP_CACHE_TTL: %w", err)
		}
		cfg.CacheTTL = d
	}
	if v := os.Getenv("CFIP_FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("CFIP_FETCH_TIMEOUT: %w", err)
		}
		cfg.FetchTimeout = d
	}
	if v := os.Getenv("CFIP_SPOOF_CHECK"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("CFIP_SPOOF_CHECK: %w", err)
		}
		cfg.SpoofCheck = b
	}
	if v := os.Getenv("CFIP_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("CFIP_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("CFIP_REFRESH_SCHEDULE"); v != "" {
		cfg.RefreshSchedule = v
	}
	if v := os.Getenv("CFIP_LISTEN"); v != "" {
		cfg.Listen = v
	}

	return cfg, nil
}
