// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package logging

import (
	"fmt"
	"log/syslog"
)

// SyslogConfig describes an optional remote syslog relay. Most
// deployments never set this -- the default diagnostics sink talks to
// the local syslog daemon directly (see newLocalSyslogWriter) -- but
// operators forwarding logs to a central collector can point Host at
// it.
type SyslogConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Protocol string
	Tag      string
	Facility int // RFC 5424 facility number; 1 = "user"
}

// DefaultSyslogConfig returns the disabled-by-default relay config.
func DefaultSyslogConfig() SyslogConfig {
	return SyslogConfig{
		Enabled:  false,
		Port:     514,
		Protocol: "udp",
		Tag:      "banhammer",
		Facility: 1,
	}
}

func (cfg SyslogConfig) priority() syslog.Priority {
	return syslog.Priority(cfg.Facility<<3) | syslog.LOG_INFO
}

// NewSyslogWriter dials a remote syslog relay and returns a writer that
// submits each Write as one syslog message at the configured facility.
func NewSyslogWriter(cfg SyslogConfig) (*syslog.Writer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("logging: syslog relay requires a host")
	}
	if cfg.Port == 0 {
		cfg.Port = 514
	}
	if cfg.Protocol == "" {
		cfg.Protocol = "udp"
	}
	if cfg.Tag == "" {
		cfg.Tag = "banhammer"
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	w, err := syslog.Dial(cfg.Protocol, addr, cfg.priority(), cfg.Tag)
	if err != nil {
		return nil, fmt.Errorf("logging: dial syslog relay %s: %w", addr, err)
	}
	return w, nil
}

// newLocalSyslogWriter opens the local syslog socket under the given
// facility and tag. This is what non-terminal runs of both binaries
// use by default, per the diagnostics sink's terminal-vs-syslog
// selection.
func newLocalSyslogWriter(facility int, tag string) (*syslog.Writer, error) {
	w, err := syslog.New(syslog.Priority(facility<<3)|syslog.LOG_INFO, tag)
	if err != nil {
		return nil, fmt.Errorf("logging: open local syslog: %w", err)
	}
	return w, nil
}
