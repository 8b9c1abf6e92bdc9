package sched

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/smok95/Sangtae/internal/config"
	"github.com/smok95/Sangtae/internal/model"
	"github.com/smok95/Sangtae/internal/publish"
)

// fakeSource records which families each pass touched and serves adjustable
// canned values.
type fakeSource struct {
	mu        sync.Mutex
	pass      int
	procPass  []int
	diskPass  []int
	battPass  []int
	vols      []model.Volume
	batt      model.Battery
	procs     []model.Process
	blockOn   chan struct{} // when set, LoadAndCPUTicks waits for it
	started   chan struct{} // closed once a blocked pass has begun
	startOnce sync.Once
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		vols:  []model.Volume{{Name: "/", TotalBytes: 100 << 30, AvailBytes: 40 << 30}},
		batt:  model.Battery{Level: 0.8},
		procs: []model.Process{{Name: "Safari", CPUPercent: 12.0}},
	}
}

func (f *fakeSource) LoadAndCPUTicks(context.Context) ([3]float64, model.TickCounters) {
	f.mu.Lock()
	f.pass++
	block := f.blockOn
	f.mu.Unlock()
	if block != nil {
		f.startOnce.Do(func() { close(f.started) })
		<-block
	}
	return [3]float64{1, 2, 3}, model.TickCounters{User: 100, Idle: 900}
}

func (f *fakeSource) PerCoreTicks(context.Context) []model.TickCounters {
	return []model.TickCounters{{User: 100, Idle: 900}}
}

func (f *fakeSource) Memory(context.Context) model.MemoryInfo {
	return model.MemoryInfo{ActiveBytes: 4 << 30, WiredBytes: 2 << 30, TotalBytes: 16 << 30}
}

func (f *fakeSource) NetworkBytes(context.Context) map[string]model.NetCounters {
	return map[string]model.NetCounters{"en0": {BytesIn: 1000, BytesOut: 1000}}
}

func (f *fakeSource) Volumes(context.Context) []model.Volume {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.diskPass = append(f.diskPass, f.pass-1)
	return f.vols
}

func (f *fakeSource) Battery(context.Context) model.Battery {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.battPass = append(f.battPass, f.pass-1)
	return f.batt
}

func (f *fakeSource) TopProcesses(context.Context, int) []model.Process {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.procPass = append(f.procPass, f.pass-1)
	return f.procs
}

func (f *fakeSource) Topology() model.CoreTopology {
	return model.CoreTopology{Logical: 8, Performance: 4, Efficiency: 4}
}

func newScheduler(src *fakeSource) (*Scheduler, *publish.Publisher) {
	pub := publish.New()
	return New(config.Default(), src, pub, zerolog.Nop()), pub
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestTick_CadenceSequence(t *testing.T) {
	src := newFakeSource()
	sch, _ := newScheduler(src)

	ctx := context.Background()
	now := time.Now()
	for i := 0; i < 12; i++ {
		if !sch.Tick(ctx, now.Add(time.Duration(i)*time.Second)) {
			t.Fatalf("tick %d unexpectedly dropped", i)
		}
	}

	wantProc := []int{0, 2, 4, 6, 8, 10}
	if !equalInts(src.procPass, wantProc) {
		t.Fatalf("process refreshes at %v, want %v", src.procPass, wantProc)
	}
	wantDisk := []int{0, 10}
	if !equalInts(src.diskPass, wantDisk) {
		t.Fatalf("disk refreshes at %v, want %v", src.diskPass, wantDisk)
	}
	if !equalInts(src.battPass, wantDisk) {
		t.Fatalf("battery refreshes at %v, want %v", src.battPass, wantDisk)
	}
}

func TestTick_CounterWrapKeepsCadence(t *testing.T) {
	src := newFakeSource()
	sch, _ := newScheduler(src)

	ctx := context.Background()
	now := time.Now()
	for i := 0; i < tickWrap+1; i++ {
		sch.Tick(ctx, now.Add(time.Duration(i)*time.Second))
	}
	// Pass 1000 lands on wrapped tick 0, so disk refreshes again there.
	last := src.diskPass[len(src.diskPass)-1]
	if last != tickWrap {
		t.Fatalf("last disk refresh at pass %d, want %d", last, tickWrap)
	}
}

func TestTick_CarriesForwardFamiliesNotDue(t *testing.T) {
	src := newFakeSource()
	sch, pub := newScheduler(src)

	ctx := context.Background()
	now := time.Now()
	sch.Tick(ctx, now)
	first := pub.Current()
	if len(first.Disks) != 1 || first.Battery.Level != 0.8 {
		t.Fatalf("tick 0 snapshot missing disk/battery: %+v", first)
	}

	// The source changes, but disk/battery are not due again until tick 10.
	src.mu.Lock()
	src.vols = nil
	src.batt = model.NoBattery()
	src.mu.Unlock()

	sch.Tick(ctx, now.Add(time.Second))
	second := pub.Current()
	if len(second.Disks) != 1 || second.Disks[0].Name != "/" {
		t.Fatalf("disks not carried forward: %+v", second.Disks)
	}
	if second.Battery.Level != 0.8 {
		t.Fatalf("battery not carried forward: %+v", second.Battery)
	}
	if !second.Timestamp.After(first.Timestamp) {
		t.Fatal("timestamp did not advance")
	}
}

func TestTick_DropsWhilePassInFlight(t *testing.T) {
	src := newFakeSource()
	src.blockOn = make(chan struct{})
	src.started = make(chan struct{})
	sch, pub := newScheduler(src)

	ctx := context.Background()
	done := make(chan bool)
	go func() { done <- sch.Tick(ctx, time.Now()) }()
	<-src.started

	if sch.Tick(ctx, time.Now()) {
		t.Fatal("overlapping tick ran instead of being dropped")
	}
	// Nothing published yet either; the dropped tick left the initial
	// snapshot in place.
	if got := pub.Current(); len(got.Disks) != 0 {
		t.Fatalf("dropped tick published data: %+v", got)
	}

	close(src.blockOn)
	if !<-done {
		t.Fatal("blocked pass reported dropped")
	}
	if got := pub.Current(); len(got.Disks) != 1 {
		t.Fatalf("completed pass did not publish: %+v", got)
	}
}

func TestTick_PublishesDerivedMetrics(t *testing.T) {
	src := newFakeSource()
	sch, pub := newScheduler(src)

	ctx := context.Background()
	sch.Tick(ctx, time.Now())
	snap := pub.Current()

	if snap.LoadAvg != [3]float64{1, 2, 3} {
		t.Fatalf("load = %v", snap.LoadAvg)
	}
	if snap.CPUTotal != 0 {
		t.Fatalf("first-pass CPU = %v, want neutral 0", snap.CPUTotal)
	}
	if snap.MemUsedRatio != 0.375 {
		t.Fatalf("mem ratio = %v, want 0.375", snap.MemUsedRatio)
	}
	if snap.Topology.Performance != 4 || snap.Topology.Efficiency != 4 {
		t.Fatalf("topology = %+v", snap.Topology)
	}
	if snap.Disks[0].UsedRatio != 0.6 {
		t.Fatalf("disk ratio = %v, want 0.6", snap.Disks[0].UsedRatio)
	}
	if len(snap.TopProcesses) != 1 || snap.TopProcesses[0].Name != "Safari" {
		t.Fatalf("top processes = %+v", snap.TopProcesses)
	}
}
