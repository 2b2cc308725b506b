// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux

// Package procsignal names the platform-specific signals both binaries
// react to: status dump, config reload, and shutdown.
package procsignal

import "syscall"

// StatusSignal requests a status dump. Linux has no SIGINFO, so the
// detection engine borrows SIGUSR1 the way many Linux daemons do.
const StatusSignal = syscall.SIGUSR1

// ReloadSignal requests a configuration reload without restarting.
const ReloadSignal = syscall.SIGHUP

// TerminateSignals are the signals that trigger a clean shutdown.
var TerminateSignals = []syscall.Signal{syscall.SIGTERM, syscall.SIGINT}
