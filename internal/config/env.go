package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Deployment gates. These let one config file serve scheduler-only and
// API-only instances of the same binary: the env var, when set, wins
// over the file's enabled flag.
const (
	EnvScheduler = "JOBD_SCHEDULER"
	EnvAPI       = "JOBD_API"
)

// ApplyEnv applies process-level env overrides to cfg. The composition
// root calls it at startup and again on every hot reload; nothing deeper
// in the tree reads the environment.
func ApplyEnv(cfg *Config) error {
	return applyEnv(cfg, os.LookupEnv)
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if raw, ok := lookup(EnvScheduler); ok {
		v, err := parseBoolEnv(EnvScheduler, raw)
		if err != nil {
			return err
		}
		cfg.Scheduler.Enabled = v
	}
	if raw, ok := lookup(EnvAPI); ok {
		v, err := parseBoolEnv(EnvAPI, raw)
		if err != nil {
			return err
		}
		cfg.API.Enabled = v
	}
	return nil
}

func parseBoolEnv(key, raw string) (bool, error) {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("%s: invalid bool %q", key, raw)
	}
	return v, nil
}
