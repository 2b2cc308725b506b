// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build darwin || freebsd

package procsignal

import "syscall"

// StatusSignal requests a status dump. BSD-derived kernels (including
// Darwin) have a real SIGINFO, conventionally bound to Ctrl-T.
const StatusSignal = syscall.SIGINFO

// ReloadSignal requests a configuration reload without restarting.
const ReloadSignal = syscall.SIGHUP

// TerminateSignals are the signals that trigger a clean shutdown.
var TerminateSignals = []syscall.Signal{syscall.SIGTERM, syscall.SIGINT}
