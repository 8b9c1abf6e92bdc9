// Package source queries operating-system counters once per call and returns
// absolute/cumulative values. It keeps no per-sample state between calls; all
// "previous value" bookkeeping lives in the delta engine.
package source

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"

	"github.com/smok95/Sangtae/internal/config"
	"github.com/smok95/Sangtae/internal/model"
)

// Source is one pull-style query per metric family. Every method fails soft:
// a transient OS read error yields zeroed/neutral values, never a fatal
// error.
type Source interface {
	LoadAndCPUTicks(ctx context.Context) ([3]float64, model.TickCounters)
	PerCoreTicks(ctx context.Context) []model.TickCounters
	Memory(ctx context.Context) model.MemoryInfo
	NetworkBytes(ctx context.Context) map[string]model.NetCounters
	Volumes(ctx context.Context) []model.Volume
	Battery(ctx context.Context) model.Battery
	TopProcesses(ctx context.Context, limit int) []model.Process
	Topology() model.CoreTopology
}

// System reads real counters through gopsutil plus two helper commands
// (pmset for battery, ps for the process list).
type System struct {
	run    Runner
	log    zerolog.Logger
	ifaces []string
	topo   model.CoreTopology
}

// NewSystem resolves the interface allow-list and core topology once; both
// are fixed for the process lifetime.
func NewSystem(cfg config.Config, run Runner, log zerolog.Logger) *System {
	s := &System{run: run, log: log, ifaces: cfg.Interfaces}
	if len(s.ifaces) == 0 {
		s.ifaces = defaultInterfaces()
	}
	s.topo = detectTopology(context.Background(), run)
	log.Info().Strs("ifaces", s.ifaces).
		Int("logical", s.topo.Logical).
		Int("pcores", s.topo.Performance).
		Int("ecores", s.topo.Efficiency).
		Msg("source initialized")
	return s
}

func (s *System) Topology() model.CoreTopology { return s.topo }

func (s *System) LoadAndCPUTicks(ctx context.Context) ([3]float64, model.TickCounters) {
	var la [3]float64
	if avg, err := load.AvgWithContext(ctx); err == nil {
		la = [3]float64{avg.Load1, avg.Load5, avg.Load15}
	}
	times, err := cpu.TimesWithContext(ctx, false)
	if err != nil || len(times) == 0 {
		return la, model.TickCounters{}
	}
	return la, toTicks(times[0])
}

func (s *System) PerCoreTicks(ctx context.Context) []model.TickCounters {
	times, err := cpu.TimesWithContext(ctx, true)
	if err != nil {
		return nil
	}
	ticks := make([]model.TickCounters, len(times))
	for i, t := range times {
		ticks[i] = toTicks(t)
	}
	return ticks
}

func (s *System) Memory(ctx context.Context) model.MemoryInfo {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil || vm == nil {
		return model.MemoryInfo{}
	}
	info := model.MemoryInfo{
		ActiveBytes: vm.Active,
		WiredBytes:  vm.Wired,
		TotalBytes:  vm.Total,
	}
	// The compressor share is whatever the OS counts as used beyond the
	// active and wired classes.
	if vm.Used > info.ActiveBytes+info.WiredBytes {
		info.CompressedBytes = vm.Used - info.ActiveBytes - info.WiredBytes
	}
	return info
}

func (s *System) NetworkBytes(ctx context.Context) map[string]model.NetCounters {
	counters, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil
	}
	out := make(map[string]model.NetCounters, len(s.ifaces))
	for _, c := range counters {
		if !contains(s.ifaces, c.Name) {
			continue
		}
		out[c.Name] = model.NetCounters{BytesIn: c.BytesRecv, BytesOut: c.BytesSent}
	}
	return out
}

func (s *System) Volumes(ctx context.Context) []model.Volume {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil
	}
	var vols []model.Volume
	seen := make(map[string]bool)
	for _, p := range parts {
		if seen[p.Device] {
			continue
		}
		seen[p.Device] = true
		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			continue
		}
		vols = append(vols, model.Volume{
			Name:       p.Mountpoint,
			TotalBytes: usage.Total,
			AvailBytes: usage.Free,
		})
	}
	return filterVolumes(vols, config.VolumeFloorBytes)
}

func (s *System) Battery(ctx context.Context) model.Battery {
	out, err := s.run.Output(ctx, "pmset", "-g", "batt")
	if err != nil {
		s.log.Debug().Err(err).Msg("battery helper failed")
		return model.NoBattery()
	}
	return parseBattery(string(out))
}

func (s *System) TopProcesses(ctx context.Context, limit int) []model.Process {
	out, err := s.run.Output(ctx, "ps", "-Aceo", "%cpu,comm", "-r")
	if err != nil {
		s.log.Debug().Err(err).Msg("process helper failed")
		return nil
	}
	return parseProcesses(string(out), limit)
}

// filterVolumes keeps volumes strictly above the capacity floor; a volume of
// exactly the floor is excluded.
func filterVolumes(vols []model.Volume, floor uint64) []model.Volume {
	kept := vols[:0]
	for _, v := range vols {
		if v.TotalBytes > floor {
			kept = append(kept, v)
		}
	}
	return kept
}

// defaultInterfaces picks the first two non-loopback adapters that have
// moved any bytes.
func defaultInterfaces() []string {
	counters, err := net.IOCounters(true)
	if err != nil {
		return nil
	}
	var names []string
	for _, c := range counters {
		if strings.HasPrefix(c.Name, "lo") || c.BytesRecv+c.BytesSent == 0 {
			continue
		}
		names = append(names, c.Name)
		if len(names) == 2 {
			break
		}
	}
	return names
}

func detectTopology(ctx context.Context, run Runner) model.CoreTopology {
	logical, _ := cpu.Counts(true)
	return model.CoreTopology{
		Logical:     logical,
		Performance: sysctlInt(ctx, run, "hw.perflevel0.logicalcpu"),
		Efficiency:  sysctlInt(ctx, run, "hw.perflevel1.logicalcpu"),
	}
}

func toTicks(t cpu.TimesStat) model.TickCounters {
	return model.TickCounters{
		User:   t.User,
		System: t.System,
		Idle:   t.Idle + t.Iowait,
		Nice:   t.Nice,
	}
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
