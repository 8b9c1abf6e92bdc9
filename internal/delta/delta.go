// Package delta derives rate and ratio metrics from pairs of temporally
// ordered raw counter samples. The Engine owns all "previous sample" state;
// it has exactly one writer (the scheduler's sampling pass) and needs no
// internal locking.
package delta

import (
	"fmt"
	"sort"
	"time"

	"github.com/smok95/Sangtae/internal/model"
)

const bytesPerMiB = 1024 * 1024

// Engine compares each incoming raw sample against the previous one of the
// same family. The first sample of any family yields the neutral value 0.
type Engine struct {
	prevTotal model.TickCounters
	hasTotal  bool
	prevCore  []model.TickCounters
	prevNet   map[string]model.NetCounters
}

func New() *Engine {
	return &Engine{prevNet: make(map[string]model.NetCounters)}
}

// CPUBusy returns the machine-wide busy fraction since the previous call.
func (e *Engine) CPUBusy(cur model.TickCounters) float64 {
	if !e.hasTotal {
		e.prevTotal, e.hasTotal = cur, true
		return 0
	}
	f := busyFraction(e.prevTotal, cur)
	e.prevTotal = cur
	return f
}

// PerCoreBusy returns per-core busy fractions sorted descending by usage so
// the display surfaces hotspots first; ties keep core-index order. A core
// count different from the previous call discards the stale baseline and
// reports neutral values for this tick.
func (e *Engine) PerCoreBusy(cur []model.TickCounters) []model.CoreUsage {
	usages := make([]model.CoreUsage, len(cur))
	matched := len(e.prevCore) == len(cur)
	for i, c := range cur {
		usages[i] = model.CoreUsage{Name: fmt.Sprintf("Core %d", i+1)}
		if matched {
			usages[i].Usage = busyFraction(e.prevCore[i], c)
		}
	}
	e.prevCore = cur
	sort.SliceStable(usages, func(i, j int) bool { return usages[i].Usage > usages[j].Usage })
	return usages
}

// NetworkRates sums per-interface byte deltas into download/upload rates in
// MiB/s. A counter that went backwards (rollover, interface reset) counts as
// a zero delta for this tick; the true lost interval is not reconstructed.
func (e *Engine) NetworkRates(cur map[string]model.NetCounters, elapsed time.Duration) (down, up float64) {
	secs := elapsed.Seconds()
	next := make(map[string]model.NetCounters, len(cur))
	for name, c := range cur {
		if prev, ok := e.prevNet[name]; ok && secs > 0 {
			down += byteRate(prev.BytesIn, c.BytesIn, secs)
			up += byteRate(prev.BytesOut, c.BytesOut, secs)
		}
		next[name] = c
	}
	e.prevNet = next
	return down, up
}

// MemoryUsedRatio is (active + wired + compressed) / total, clamped.
func MemoryUsedRatio(m model.MemoryInfo) float64 {
	if m.TotalBytes == 0 {
		return 0
	}
	return clamp01(float64(m.UsedBytes()) / float64(m.TotalBytes))
}

// VolumeUsedRatio is (total - available) / total, clamped.
func VolumeUsedRatio(v model.Volume) float64 {
	if v.TotalBytes == 0 {
		return 0
	}
	return clamp01((float64(v.TotalBytes) - float64(v.AvailBytes)) / float64(v.TotalBytes))
}

func busyFraction(prev, cur model.TickCounters) float64 {
	dBusy := cur.Busy() - prev.Busy()
	dIdle := cur.Idle - prev.Idle
	// Negative deltas mean the counters reset underneath us.
	if dBusy < 0 || dIdle < 0 {
		return 0
	}
	total := dBusy + dIdle
	if total <= 0 {
		return 0
	}
	return clamp01(dBusy / total)
}

func byteRate(prev, cur uint64, secs float64) float64 {
	if cur < prev {
		return 0
	}
	return float64(cur-prev) / bytesPerMiB / secs
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
