package model

import "time"

// TickCounters buckets cumulative CPU scheduler ticks for one core or the
// whole machine. Values only ever grow, except across a counter reset.
type TickCounters struct {
	User   float64
	System float64
	Idle   float64
	Nice   float64
}

// Busy is the sum of the non-idle buckets.
func (t TickCounters) Busy() float64 { return t.User + t.System + t.Nice }

// NetCounters holds cumulative byte counters for one interface.
type NetCounters struct {
	BytesIn  uint64
	BytesOut uint64
}

// MemoryInfo captures the used-page classes in bytes (page counts already
// multiplied by the page size at the source).
type MemoryInfo struct {
	ActiveBytes     uint64
	WiredBytes      uint64
	CompressedBytes uint64
	TotalBytes      uint64
}

// UsedBytes is the sum of the page classes that count as "used".
func (m MemoryInfo) UsedBytes() uint64 {
	return m.ActiveBytes + m.WiredBytes + m.CompressedBytes
}

// Volume is one mounted volume's raw capacity counters.
type Volume struct {
	Name       string
	TotalBytes uint64
	AvailBytes uint64
}

// Battery shows charge state. Level is a fraction in [0,1], or -1 on
// machines without a battery.
type Battery struct {
	Level    float64
	Charging bool
}

// NoBattery is the sentinel for desktop machines.
func NoBattery() Battery { return Battery{Level: -1} }

// Process is one top-list entry, recomputed wholesale each refresh.
type Process struct {
	Name       string
	CPUPercent float64
}

// CoreUsage pairs a display name with a busy fraction in [0,1].
type CoreUsage struct {
	Name  string
	Usage float64
}

// CoreTopology counts logical cores by performance class, read once at
// startup. Zero Performance/Efficiency means the split was not detected.
type CoreTopology struct {
	Logical     int
	Performance int
	Efficiency  int
}

// DiskUsage is one volume's derived used fraction plus a capacity label.
type DiskUsage struct {
	Name      string
	UsedRatio float64
	Label     string
}

// Snapshot is the complete set of current metric values handed to the
// presentation layer. Once published it is never mutated; families not
// refreshed on a tick carry forward from the previous snapshot.
type Snapshot struct {
	Timestamp time.Time

	CPUTotal float64 // busy fraction 0-1
	LoadAvg  [3]float64
	Cores    []CoreUsage // sorted descending by usage

	MemUsedRatio float64
	MemUsedGB    float64
	MemAvailGB   float64
	MemTotalGB   float64

	Disks []DiskUsage

	NetDownMBs float64 // MiB/s
	NetUpMBs   float64

	Battery  Battery
	Topology CoreTopology

	TopProcesses []Process
}

// Zero returns an empty snapshot for initialization.
func Zero() Snapshot { return Snapshot{Timestamp: time.Now(), Battery: NoBattery()} }
