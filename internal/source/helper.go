package source

import (
	"bufio"
	"context"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/smok95/Sangtae/internal/config"
	"github.com/smok95/Sangtae/internal/model"
)

// Runner abstracts external command execution so the helper-backed samples
// (battery, process list) can be fed canned output in tests or swapped for a
// native OS API.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

// No timeout here on purpose: a hung helper stalls only that family's
// refresh for the pass, and the scheduler's drop-if-busy rule bounds the
// damage.
func (execRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// DefaultRunner executes real commands.
func DefaultRunner() Runner { return execRunner{} }

var batteryPctRe = regexp.MustCompile(`(\d+)%`)

// parseBattery reads `pmset -g batt` style output. Absent battery (no
// "InternalBattery" line) yields the -1 sentinel.
func parseBattery(out string) model.Battery {
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "InternalBattery") {
			continue
		}
		b := model.Battery{Level: -1}
		if m := batteryPctRe.FindStringSubmatch(line); m != nil {
			if pct, err := strconv.ParseFloat(m[1], 64); err == nil {
				b.Level = pct / 100
			}
		}
		lower := strings.ToLower(line)
		b.Charging = strings.Contains(lower, "charging") && !strings.Contains(lower, "discharging")
		return b
	}
	return model.NoBattery()
}

// parseProcesses reads `ps -Aceo %cpu,comm` style output: a header line, then
// whitespace-separated "%cpu command" pairs. Entries at or below the noise
// floor are dropped; the rest come back sorted descending by CPU, truncated
// to limit.
func parseProcesses(out string, limit int) []model.Process {
	var procs []model.Process
	sc := bufio.NewScanner(strings.NewReader(out))
	first := true
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if first {
			first = false
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		pct, err := strconv.ParseFloat(fields[0], 64)
		if err != nil || pct <= config.ProcessNoiseFloorPct {
			continue
		}
		procs = append(procs, model.Process{
			Name:       strings.Join(fields[1:], " "),
			CPUPercent: pct,
		})
	}
	sort.SliceStable(procs, func(i, j int) bool { return procs[i].CPUPercent > procs[j].CPUPercent })
	if len(procs) > limit {
		procs = procs[:limit]
	}
	return procs
}

// sysctlInt queries one integer sysctl key, 0 when unavailable.
func sysctlInt(ctx context.Context, run Runner, key string) int {
	out, err := run.Output(ctx, "sysctl", "-n", key)
	if err != nil {
		return 0
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0
	}
	return v
}
