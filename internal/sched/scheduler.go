// Package sched drives periodic sampling. A fixed ticker fires the base
// tick; each tick runs at most one sampling pass (overlapping ticks are
// dropped, not queued), refreshes the cheap families every time and the
// expensive ones on their own cadences, then publishes the merged snapshot.
package sched

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/smok95/Sangtae/internal/config"
	"github.com/smok95/Sangtae/internal/delta"
	"github.com/smok95/Sangtae/internal/model"
	"github.com/smok95/Sangtae/internal/publish"
	"github.com/smok95/Sangtae/internal/source"
)

// tickWrap bounds the tick counter; only its value modulo the cadence
// divisors matters.
const tickWrap = 1000

const bytesPerGB = 1024 * 1024 * 1024

// Scheduler owns the sampling loop. It is the single writer of the delta
// engine's state and the single producer of published snapshots.
type Scheduler struct {
	cfg config.Config
	src source.Source
	eng *delta.Engine
	pub *publish.Publisher
	log zerolog.Logger

	tick     int
	lastPass time.Time
	sampling atomic.Bool
}

func New(cfg config.Config, src source.Source, pub *publish.Publisher, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cfg: cfg,
		src: src,
		eng: delta.New(),
		pub: pub,
		log: log,
	}
}

// Run fires Tick at the configured interval until ctx is done. An immediate
// first pass seeds the delta baselines and fills the expensive families so
// the display is not empty for ten seconds.
func (s *Scheduler) Run(ctx context.Context) {
	s.Tick(ctx, time.Now())
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case t := <-ticker.C:
			s.Tick(ctx, t)
		case <-ctx.Done():
			return
		}
	}
}

// Tick runs one sampling pass. If a pass is already in flight the tick is
// dropped and Tick reports false; the published snapshot keeps the values
// from the prior completed pass.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) bool {
	if !s.sampling.CompareAndSwap(false, true) {
		s.log.Debug().Msg("tick dropped, pass in flight")
		return false
	}
	defer s.sampling.Store(false)
	s.pass(ctx, now)
	return true
}

// pass stages one tick's metrics and publishes them. Families not due this
// tick carry forward unchanged from the current snapshot.
func (s *Scheduler) pass(ctx context.Context, now time.Time) {
	snap := s.pub.Current()
	snap.Timestamp = now
	snap.Topology = s.src.Topology()

	elapsed := s.cfg.Interval
	if !s.lastPass.IsZero() {
		elapsed = now.Sub(s.lastPass)
	}
	s.lastPass = now

	loadAvg, ticks := s.src.LoadAndCPUTicks(ctx)
	snap.LoadAvg = loadAvg
	snap.CPUTotal = s.eng.CPUBusy(ticks)
	snap.Cores = s.eng.PerCoreBusy(s.src.PerCoreTicks(ctx))

	m := s.src.Memory(ctx)
	snap.MemUsedRatio = delta.MemoryUsedRatio(m)
	snap.MemUsedGB = toGB(m.UsedBytes())
	snap.MemTotalGB = toGB(m.TotalBytes)
	snap.MemAvailGB = snap.MemTotalGB - snap.MemUsedGB

	snap.NetDownMBs, snap.NetUpMBs = s.eng.NetworkRates(s.src.NetworkBytes(ctx), elapsed)

	if s.tick%s.cfg.ProcessEvery == 0 {
		snap.TopProcesses = s.src.TopProcesses(ctx, s.cfg.TopProcesses)
	}
	if s.tick%s.cfg.DiskEvery == 0 {
		snap.Disks = diskUsages(s.src.Volumes(ctx))
		snap.Battery = s.src.Battery(ctx)
	}

	s.tick = (s.tick + 1) % tickWrap
	s.pub.Publish(snap)
}

func diskUsages(vols []model.Volume) []model.DiskUsage {
	disks := make([]model.DiskUsage, len(vols))
	for i, v := range vols {
		disks[i] = model.DiskUsage{
			Name:      v.Name,
			UsedRatio: delta.VolumeUsedRatio(v),
			Label:     fmt.Sprintf("%.0fG", toGB(v.TotalBytes)),
		}
	}
	return disks
}

func toGB(b uint64) float64 { return float64(b) / bytesPerGB }
