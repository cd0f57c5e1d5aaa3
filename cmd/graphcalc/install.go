package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
)

// runInstall writes settings.json from flags so later runs pick it up.
func runInstall(args []string) {
	def := defaultConfig()

	fs := flag.NewFlagSet("install", flag.ExitOnError)
	listenAddr := fs.String("listen-addr", def.ListenAddr, "TCP listen address")
	dbPath := fs.String("db-path", "", "database path (default: ~/.graphcalc/graphcalc.db)")
	logLevel := fs.String("log-level", def.LogLevel, "log level: debug, info, warn, error")
	logFormat := fs.String("log-format", def.LogFormat, "log format: text or json")
	maxDepth := fs.Int("max-depth", def.MaxDepth, "maximum substitution depth")
	strict := fs.Bool("strict-names", def.StrictNames, "reject definitions that call undefined names")
	sessionTTL := fs.String("session-ttl", def.SessionTTL, "idle time before a session is evicted (0 disables)")
	sweep := fs.String("sweep-schedule", def.SweepSchedule, "cron schedule of the idle-session sweep")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	dir := graphcalcDir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot create %s: %v\n", dir, err)
		os.Exit(1)
	}

	cfg := Config{
		ListenAddr:    *listenAddr,
		DBPath:        *dbPath,
		LogLevel:      *logLevel,
		LogFormat:     *logFormat,
		MaxDepth:      *maxDepth,
		StrictNames:   *strict,
		SessionTTL:    *sessionTTL,
		SweepSchedule: *sweep,
		DefaultRules:  def.DefaultRules,
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(dir, "graphcalc.db")
	}

	// Reject settings the server would refuse at startup.
	if _, err := newSessions(cfg, nil); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	data, _ := json.MarshalIndent(cfg, "", "  ")
	path := settingsPath()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot write %s: %v\n", path, err)
		os.Exit(1)
	}
	fmt.Printf("Config written to %s\n", path)
}
