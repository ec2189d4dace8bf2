// Package config reads the demo binary's settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xyproto/env/v2"
)

const (
	EnvDuration      = "OBJLOCATE_DURATION_SECONDS"
	EnvInterval      = "OBJLOCATE_INTERVAL_MS"
	EnvOutputDir     = "OBJLOCATE_OUTPUT_DIR"
	EnvImageCache    = "OBJLOCATE_IMAGEBASE_CACHE"
	EnvRoot          = "OBJLOCATE_ROOT"
	EnvStrategy      = "OBJLOCATE_STRATEGY"
	EnvDebug         = "OBJLOCATE_DEBUG"
	EnvRefreshMillis = "OBJLOCATE_REFRESH_MS"
)

type Config struct {
	Duration        time.Duration
	Interval        time.Duration
	RefreshInterval time.Duration
	OutputDir       string
	ImageCacheSize  int
	Root            string
	Strategy        string
	LogLevel        slog.Level
}

// Load reads the current environment. The env package caches variables, so
// the cache is reloaded on every call to pick up changes made since.
func Load() (*Config, error) {
	env.Load()
	c := &Config{
		Duration:        time.Duration(env.Int(EnvDuration, 10)) * time.Second,
		Interval:        time.Duration(env.Int(EnvInterval, 10)) * time.Millisecond,
		RefreshInterval: time.Duration(env.Int(EnvRefreshMillis, 1000)) * time.Millisecond,
		OutputDir:       env.Str(EnvOutputDir, "."),
		ImageCacheSize:  env.Int(EnvImageCache, 256),
		Root:            env.Str(EnvRoot),
		Strategy:        env.Str(EnvStrategy),
		LogLevel:        slog.LevelInfo,
	}
	if env.Bool(EnvDebug) {
		c.LogLevel = slog.LevelDebug
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Duration <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", EnvDuration))
	}
	if c.Interval <= time.Millisecond {
		errs = append(errs, fmt.Errorf("%s must be greater than 1", EnvInterval))
	}
	if c.ImageCacheSize <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", EnvImageCache))
	}
	if c.OutputDir == "" {
		errs = append(errs, fmt.Errorf("%s must not be empty", EnvOutputDir))
	}
	return errors.Join(errs...)
}
