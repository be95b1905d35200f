// Package config loads the server configuration from flags with KATANA_*
// environment overrides.
package config

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// Config holds all server configuration.
type Config struct {
	Port            int
	Workers         int
	Backlog         int
	ReusePort       bool
	PinThreads      bool
	ShutdownTimeout time.Duration
	Env             string
}

// New loads configuration from flags, then applies KATANA_* environment
// overrides.
func New() *Config {
	cfg := &Config{}

	flag.IntVar(&cfg.Port, "port", 8080, "HTTP server port")
	flag.IntVar(&cfg.Workers, "workers", 0, "reactor count (0 = one per core)")
	flag.IntVar(&cfg.Backlog, "backlog", 1024, "listen backlog")
	flag.BoolVar(&cfg.ReusePort, "reuseport", true, "one SO_REUSEPORT listener per reactor")
	flag.BoolVar(&cfg.PinThreads, "pin-threads", false, "pin reactor threads to cores")
	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", 5*time.Second, "graceful drain timeout")
	flag.StringVar(&cfg.Env, "env", "development", "Environment (development/production)")

	flag.Parse()
	cfg.ApplyEnv()
	return cfg
}

// ApplyEnv applies KATANA_* environment overrides onto the config.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("KATANA_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("KATANA_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
	if v := os.Getenv("KATANA_BACKLOG"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Backlog = n
		}
	}
	if v := os.Getenv("KATANA_REUSEPORT"); v != "" {
		c.ReusePort = v == "1" || v == "true" || v == "yes"
	}
	if v := os.Getenv("KATANA_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.ShutdownTimeout = d
		}
	}
	if v := os.Getenv("KATANA_ENV"); v != "" {
		c.Env = v
	}
}
