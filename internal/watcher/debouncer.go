package watcher

import (
	"sort"
	"sync"
	"time"
)

// Debouncer coalesces events per path and hands them over in batches once
// the window has passed without new events, or as soon as MaxBatch distinct
// paths are pending. Batches are delivered one at a time, sorted by path.
type Debouncer struct {
	window   time.Duration
	maxBatch int
	onFlush  func([]FileEvent)

	mu      sync.Mutex
	pending map[string]FileEvent
	timer   *time.Timer
	stopped bool

	deliver sync.Mutex
}

func NewDebouncer(window time.Duration, maxBatch int, onFlush func([]FileEvent)) *Debouncer {
	if maxBatch < 1 {
		maxBatch = 1
	}
	return &Debouncer{
		window:   window,
		maxBatch: maxBatch,
		onFlush:  onFlush,
		pending:  make(map[string]FileEvent),
	}
}

func (d *Debouncer) Add(event FileEvent) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}

	d.pending[event.Path] = event

	if len(d.pending) >= d.maxBatch {
		batch := d.takeLocked()
		d.mu.Unlock()
		d.emit(batch)
		return
	}

	if d.timer == nil {
		d.timer = time.AfterFunc(d.window, d.Flush)
	} else {
		d.timer.Reset(d.window)
	}
	d.mu.Unlock()
}

// Flush delivers whatever is pending right away.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	batch := d.takeLocked()
	d.mu.Unlock()
	d.emit(batch)
}

func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop flushes pending events and drops everything added afterwards.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	batch := d.takeLocked()
	d.mu.Unlock()
	d.emit(batch)
}

func (d *Debouncer) takeLocked() []FileEvent {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if len(d.pending) == 0 {
		return nil
	}

	batch := make([]FileEvent, 0, len(d.pending))
	for _, ev := range d.pending {
		batch = append(batch, ev)
	}
	d.pending = make(map[string]FileEvent)

	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
	return batch
}

func (d *Debouncer) emit(batch []FileEvent) {
	if len(batch) == 0 || d.onFlush == nil {
		return
	}
	d.deliver.Lock()
	defer d.deliver.Unlock()
	d.onFlush(batch)
}
