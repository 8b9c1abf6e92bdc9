// Package publish is the producer/consumer boundary between the sampling
// worker and the presentation layer. The writer stages a complete snapshot
// and swaps it in with one atomic store; readers only ever load the current
// published reference, so they never observe a torn mix of old and new
// fields.
package publish

import (
	"sync/atomic"

	"github.com/smok95/Sangtae/internal/model"
)

// Publisher holds the currently visible snapshot. Single writer, any number
// of readers, no locking exposed to either side.
type Publisher struct {
	cur atomic.Pointer[model.Snapshot]
}

func New() *Publisher {
	p := &Publisher{}
	s := model.Zero()
	p.cur.Store(&s)
	return p
}

// Publish makes s the new visible snapshot.
func (p *Publisher) Publish(s model.Snapshot) {
	p.cur.Store(&s)
}

// Current returns the most recently published snapshot.
func (p *Publisher) Current() model.Snapshot {
	return *p.cur.Load()
}
