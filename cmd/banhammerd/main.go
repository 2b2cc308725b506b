// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command banhammerd is the expiry daemon: it periodically sweeps the
// watched ban tables for expired entries and can list or persist their
// contents.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"grimm.is/banhammer/internal/banlib"
	"grimm.is/banhammer/internal/expiry"
	"grimm.is/banhammer/internal/logging"
	"grimm.is/banhammer/internal/paths"
	"grimm.is/banhammer/internal/privdrop"
	"grimm.is/banhammer/internal/procsignal"
	"grimm.is/banhammer/internal/resolver"
)

const (
	exOK    = 0
	exUsage = 64
	exOSErr = 71
)

// geteuid is a var so tests can stub root for the startup privilege check.
var geteuid = os.Geteuid

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout *os.File) int {
	fs := flag.NewFlagSet("banhammerd", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: banhammerd -t table[,table...] [-s seconds] [-S statefile] [-p pidfile] [-d dir] [-f|-C|-L] [-n] [-v|-q] [-h]\n")
		fs.PrintDefaults()
	}

	tables := fs.String("t", "", "comma-separated list of table ids to watch (required)")
	interval := fs.Int("s", 60, "sweep interval in seconds")
	statePath := fs.String("S", filepath.Join(paths.StateDir(), "banhammer.state"), "state file path")
	pidPath := fs.String("p", filepath.Join(paths.RunDir(), "banhammerd.pid"), "pid file path")
	chrootDir := fs.String("d", "", "chroot directory")
	foreground := fs.Bool("f", false, "run in the foreground (the same sweep loop as the default mode)")
	oneSweep := fs.Bool("C", false, "run one sweep and exit")
	listMode := fs.Bool("L", false, "list current table contents and exit")
	noReverse := fs.Bool("n", false, "disable reverse-DNS lookup in list mode")
	quiet := fs.Bool("q", false, "decrease log verbosity")
	verbose := fs.Bool("v", false, "increase log verbosity")

	if err := fs.Parse(args); err != nil {
		return exUsage
	}

	exclusive := 0
	for _, b := range []bool{*foreground, *oneSweep, *listMode} {
		if b {
			exclusive++
		}
	}
	if exclusive > 1 {
		fmt.Fprintln(fs.Output(), "banhammerd: -C, -f, and -L are mutually exclusive")
		return exUsage
	}

	if *tables == "" {
		fmt.Fprintln(fs.Output(), "banhammerd: -t is required")
		fs.Usage()
		return exUsage
	}
	tableIDs, err := parseTables(*tables)
	if err != nil {
		fmt.Fprintf(fs.Output(), "banhammerd: %v\n", err)
		return exUsage
	}

	level := logging.LevelInfo
	if *quiet {
		level = logging.LevelWarn
	}
	if *verbose {
		level = logging.LevelDebug
	}
	logCfg := logging.DefaultConfig()
	logCfg.Level = level
	log := logging.New(logCfg)
	logging.SetDefault(log)

	// Both binaries require superuser to open the ban-table backend;
	// fail fast here rather than partway through startup.
	if geteuid() != 0 {
		fmt.Fprintln(os.Stderr, "banhammerd: must be run as root")
		return exOSErr
	}

	if *chrootDir != "" {
		if err := privdrop.Apply(privdrop.Config{ChrootDir: *chrootDir}); err != nil {
			fmt.Fprintf(os.Stderr, "banhammerd: %v\n", err)
			return exOSErr
		}
	}

	client := newBackend()
	if err := client.Open(); err != nil {
		log.Error("failed to open ban-table backend", "error", err)
		return exOSErr
	}
	defer client.Close()

	res := resolver.NewSystem(true)
	if err := res.RefreshLocalInterfaces(); err != nil {
		log.Notice("failed to enumerate local interfaces", "error", err)
	}

	d := expiry.New(tableIDs, time.Duration(*interval)*time.Second, client, res, log.WithComponent("expiry"))
	d.StatePath = *statePath
	d.NoReverseDNS = *noReverse

	ctx := context.Background()
	d.LoadState(ctx)

	if *pidPath != "" {
		if err := writePIDFile(*pidPath); err != nil {
			log.Notice("failed to write pid file", "error", err)
		} else {
			defer os.Remove(*pidPath)
		}
	}

	switch {
	case *listMode:
		if err := d.List(ctx, stdout); err != nil {
			log.Error("list failed", "error", err)
			return exOSErr
		}
		return exOK
	case *oneSweep:
		d.Sweep()
		d.SaveState()
		return exOK
	default:
		return runDaemon(ctx, d, log, *foreground)
	}
}

// runDaemon loops sweep/sleep until a terminate signal arrives.
// Backgrounding (daemonizing without -f) is left to the caller's
// process supervisor, per the teacher's own cmd/start.go pattern of
// re-exec'ing itself rather than forking in-process.
func runDaemon(ctx context.Context, d *expiry.Daemon, log *logging.Logger, foreground bool) int {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var done atomic.Bool
	sigCh := make(chan os.Signal, 2)
	termSigs := make([]os.Signal, 0, len(procsignal.TerminateSignals))
	for _, s := range procsignal.TerminateSignals {
		termSigs = append(termSigs, s)
	}
	signal.Notify(sigCh, termSigs...)
	go func() {
		sig := <-sigCh
		log.Info("received signal, shutting down", "signal", sig)
		done.Store(true)
		cancel()
	}()

	d.Run(ctx, done.Load)
	return exOK
}

func parseTables(csv string) ([]banlib.TableID, error) {
	var out []banlib.TableID
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseUint(part, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid table id %q: %w", part, err)
		}
		out = append(out, banlib.TableID(n))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no table ids given")
	}
	return out, nil
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}

func newBackend() banlib.Client {
	if runtime.GOOS == "linux" {
		return banlib.NewNFTBackend(0)
	}
	return banlib.NewMemoryBackend()
}
