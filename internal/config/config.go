package config

import (
	"flag"
	"os"
	"strings"
	"time"
)

// Config carries runtime options for sangtae.
type Config struct {
	Interval     time.Duration // base scheduler tick
	ProcessEvery int           // refresh top processes every N ticks
	DiskEvery    int           // refresh disks and battery every N ticks
	TopProcesses int           // top-list length
	Interfaces   []string      // network allow-list; empty picks the first two active adapters
	LogFile      string        // empty discards logs (the TUI owns the terminal)
}

// Volumes with total capacity at or below this floor are excluded; they are
// virtual or system volumes, not user storage.
const VolumeFloorBytes = 10 * 1024 * 1024 * 1024

// Processes at or below this CPU percentage are noise and never listed.
const ProcessNoiseFloorPct = 0.5

func Default() Config {
	return Config{
		Interval:     time.Second,
		ProcessEvery: 2,
		DiskEvery:    10,
		TopProcesses: 4,
	}
}

// FromFlags parses flags and environment overrides.
func FromFlags(args []string) Config {
	cfg := Default()
	fs := flag.NewFlagSet("sangtae", flag.ContinueOnError)
	fs.DurationVar(&cfg.Interval, "interval", cfg.Interval, "sampling tick period")
	fs.IntVar(&cfg.TopProcesses, "top", cfg.TopProcesses, "number of top processes to show")
	ifaces := fs.String("ifaces", "", "comma-separated network interfaces to track")
	fs.StringVar(&cfg.LogFile, "log", cfg.LogFile, "append diagnostics to this file")
	_ = fs.Parse(args)

	if *ifaces != "" {
		for _, name := range strings.Split(*ifaces, ",") {
			if name = strings.TrimSpace(name); name != "" {
				cfg.Interfaces = append(cfg.Interfaces, name)
			}
		}
	}
	if v := os.Getenv("SANGTAE_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Interval = parsed
		}
	}
	if v := os.Getenv("SANGTAE_LOG"); v != "" {
		cfg.LogFile = v
	}
	return cfg
}
