// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package paths resolves the default config/state/run directories used
// by both binaries, overridable through environment variables.
package paths

import (
	"os"
	"path/filepath"
)

// Defaults, overridable at build time by distributions that want
// /etc, /var/lib, /run rather than /opt/banhammer.
var (
	DefaultConfigDir = "/opt/banhammer/config"
	DefaultStateDir  = "/opt/banhammer/state"
	DefaultRunDir    = "/opt/banhammer/run"
)

const envPrefix = "BANHAMMER"

// ConfigDir returns the config directory, checking env vars first.
// Priority: BANHAMMER_CONFIG_DIR > BANHAMMER_PREFIX/config > DefaultConfigDir
func ConfigDir() string {
	if dir := os.Getenv(envPrefix + "_CONFIG_DIR"); dir != "" {
		return dir
	}
	if prefix := os.Getenv(envPrefix + "_PREFIX"); prefix != "" {
		return filepath.Join(prefix, "config")
	}
	return DefaultConfigDir
}

// StateDir returns the state directory, checking env vars first.
// Priority: BANHAMMER_STATE_DIR > BANHAMMER_PREFIX/state > DefaultStateDir
func StateDir() string {
	if dir := os.Getenv(envPrefix + "_STATE_DIR"); dir != "" {
		return dir
	}
	if prefix := os.Getenv(envPrefix + "_PREFIX"); prefix != "" {
		return filepath.Join(prefix, "state")
	}
	return DefaultStateDir
}

// RunDir returns the runtime directory for pid files, checking env vars first.
// Priority: BANHAMMER_RUN_DIR > BANHAMMER_PREFIX/run > DefaultRunDir
func RunDir() string {
	if dir := os.Getenv(envPrefix + "_RUN_DIR"); dir != "" {
		return dir
	}
	if prefix := os.Getenv(envPrefix + "_PREFIX"); prefix != "" {
		return filepath.Join(prefix, "run")
	}
	return DefaultRunDir
}
