// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command banhammer is the detection engine: it reads log lines from
// stdin, matches them against a set of configured group files, and
// bans offending hosts through the ban-table client.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"grimm.is/banhammer/internal/banlib"
	"grimm.is/banhammer/internal/clock"
	"grimm.is/banhammer/internal/detect"
	"grimm.is/banhammer/internal/logging"
	"grimm.is/banhammer/internal/paths"
	"grimm.is/banhammer/internal/privdrop"
	"grimm.is/banhammer/internal/procsignal"
	"grimm.is/banhammer/internal/resolver"
)

// Exit codes, drawn from BSD sysexits.h as the original C source does.
const (
	exOK     = 0
	exUsage  = 64
	exConfig = 78
	exOSErr  = 71
)

const version = "banhammer 1.0.0"

// geteuid is a var so tests can stub root for the startup privilege check.
var geteuid = os.Geteuid

type flagList []string

func (f *flagList) String() string { return fmt.Sprint([]string(*f)) }
func (f *flagList) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin))
}

func run(args []string, stdin *os.File) int {
	fs := flag.NewFlagSet("banhammer", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: banhammer [-d dir] -f config [-f config ...] [-u user] [-g group] [-c] [-q|-V] [-v] [-h]\n")
		fs.PrintDefaults()
	}

	chrootDir := fs.String("d", "", "chroot to dir before dropping privileges")
	var configFiles flagList
	fs.Var(&configFiles, "f", "group config file (repeatable)")
	user := fs.String("u", "", "user to run as after startup")
	group := fs.String("g", "", "group to run as after startup")
	checkOnly := fs.Bool("c", false, "validate configuration and exit")
	quiet := fs.Bool("q", false, "decrease log verbosity")
	verbose := fs.Bool("V", false, "increase log verbosity")
	showVersion := fs.Bool("v", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return exUsage
	}
	if *showVersion {
		fmt.Println(version)
		return exOK
	}
	if len(configFiles) == 0 {
		// No -f given: fall back to every *.conf file in the default
		// config directory before giving up, the way the teacher's own
		// daemons treat an explicit flag as an override of a standard
		// install location rather than the only way to find config.
		if matches, err := filepath.Glob(filepath.Join(paths.ConfigDir(), "*.conf")); err == nil {
			configFiles = flagList(matches)
		}
	}
	if len(configFiles) == 0 {
		fmt.Fprintln(fs.Output(), "banhammer: at least one -f config is required")
		fs.Usage()
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
		fmt.Fprintln(os.Stderr, "banhammer: must be run as root")
		return exOSErr
	}

	groups, err := loadGroups(configFiles)
	if err != nil {
		fmt.Fprintf(os.Stderr, "banhammer: %v\n", err)
		return exConfig
	}

	totalPatterns := 0
	for _, g := range groups {
		totalPatterns += g.Patterns.Len()
	}
	if totalPatterns == 0 {
		fmt.Fprintln(os.Stderr, "banhammer: no patterns configured")
		return exConfig
	}

	if *checkOnly {
		for _, g := range groups {
			fmt.Printf("group %s: table=%d patterns=%d\n", g.Name, g.Table, g.Patterns.Len())
		}
		return exOK
	}

	if *chrootDir != "" || *user != "" || *group != "" {
		if err := privdrop.Apply(privdrop.Config{ChrootDir: *chrootDir, User: *user, Group: *group}); err != nil {
			fmt.Fprintf(os.Stderr, "banhammer: %v\n", err)
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var terminate, reload, dump atomic.Bool
	sigCh := make(chan os.Signal, 4)
	termSigs := make([]os.Signal, 0, len(procsignal.TerminateSignals)+1)
	for _, s := range procsignal.TerminateSignals {
		termSigs = append(termSigs, s)
	}
	signal.Notify(sigCh, append(termSigs, procsignal.ReloadSignal, procsignal.StatusSignal)...)
	go func() {
		for sig := range sigCh {
			switch sig {
			case procsignal.ReloadSignal:
				reload.Store(true)
			case procsignal.StatusSignal:
				dump.Store(true)
			default:
				terminate.Store(true)
				cancel()
				return
			}
		}
	}()

	// A reload signal takes effect when runLoop next checks the reload
	// flag, after processing the line just read (or at EOF); the read
	// itself is not interrupted, so a reload waits for the next input
	// line. The outer loop then re-parses the config files and resumes
	// reading the same stream through a new scanner.
	currentGroups := groups
	for {
		engine := detect.New(currentGroups, client, res, clock.Real{}, log.WithComponent("engine"))
		runLoop(ctx, engine, stdin, log, &dump, &reload, currentGroups)

		if terminate.Load() || ctx.Err() != nil {
			return exOK
		}
		if reload.Load() {
			reload.Store(false)
			fresh, err := loadGroups(configFiles)
			if err != nil {
				log.Error("reload failed, keeping prior configuration", "error", err)
				continue
			}
			currentGroups = fresh
			log.Info("configuration reloaded")
			continue
		}
		return exOK
	}
}

func runLoop(ctx context.Context, engine *detect.Engine, stdin *os.File, log *logging.Logger, dump, reload *atomic.Bool, groups []*detect.Group) {
	scanner := bufio.NewScanner(stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if dump.Load() {
			dump.Store(false)
			if err := detect.DumpStatus(os.Stderr, groups, clock.Now()); err != nil {
				log.Notice("status dump failed", "error", err)
			}
		}
		engine.ProcessLineNow(ctx, scanner.Text())
		if reload.Load() {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		log.Notice("input read error", "error", err)
	}
}

func loadGroups(files []string) ([]*detect.Group, error) {
	var all []*detect.Group
	for _, name := range files {
		f, err := os.Open(name)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		groups, err := detect.ParseFile(name, f)
		f.Close()
		if err != nil {
			return nil, err
		}
		all = append(all, groups...)
	}
	return all, nil
}

func newBackend() banlib.Client {
	if runtime.GOOS == "linux" {
		return banlib.NewNFTBackend(0)
	}
	return banlib.NewMemoryBackend()
}

