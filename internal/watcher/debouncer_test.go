package watcher

import (
	"sync"
	"testing"
	"time"
)

type batchSink struct {
	mu      sync.Mutex
	batches [][]FileEvent
}

func (s *batchSink) flush(events []FileEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, events)
}

func (s *batchSink) get() [][]FileEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]FileEvent(nil), s.batches...)
}

func TestDebouncerCoalescesPerPath(t *testing.T) {
	sink := &batchSink{}
	d := NewDebouncer(time.Hour, 100, sink.flush)

	d.Add(FileEvent{Path: "b", Type: EventCreate})
	d.Add(FileEvent{Path: "a", Type: EventCreate})
	d.Add(FileEvent{Path: "b", Type: EventModify})

	if d.Pending() != 2 {
		t.Fatalf("expected 2 pending, got %d", d.Pending())
	}

	d.Flush()

	batches := sink.get()
	if len(batches) != 1 || len(batches[0]) != 2 {
		t.Fatalf("expected one batch of 2, got %+v", batches)
	}
	if batches[0][0].Path != "a" || batches[0][1].Path != "b" {
		t.Errorf("batch not sorted: %+v", batches[0])
	}
	if batches[0][1].Type != EventModify {
		t.Errorf("latest event should win, got %s", batches[0][1].Type)
	}
}

func TestDebouncerFlushesAfterWindow(t *testing.T) {
	sink := &batchSink{}
	d := NewDebouncer(10*time.Millisecond, 100, sink.flush)
	d.Add(FileEvent{Path: "x"})

	deadline := time.Now().Add(2 * time.Second)
	for len(sink.get()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if len(sink.get()) != 1 {
		t.Fatal("window elapsed without a flush")
	}
	if d.Pending() != 0 {
		t.Errorf("expected nothing pending, got %d", d.Pending())
	}
}

func TestDebouncerMaxBatch(t *testing.T) {
	sink := &batchSink{}
	d := NewDebouncer(time.Hour, 2, sink.flush)

	d.Add(FileEvent{Path: "1"})
	d.Add(FileEvent{Path: "2"})
	d.Add(FileEvent{Path: "3"})

	batches := sink.get()
	if len(batches) != 1 || len(batches[0]) != 2 {
		t.Fatalf("expected an immediate batch of 2, got %+v", batches)
	}
	if d.Pending() != 1 {
		t.Errorf("expected 1 pending, got %d", d.Pending())
	}
}

func TestDebouncerStop(t *testing.T) {
	sink := &batchSink{}
	d := NewDebouncer(time.Hour, 100, sink.flush)

	d.Add(FileEvent{Path: "x"})
	d.Stop()
	d.Add(FileEvent{Path: "y"})
	d.Stop()

	batches := sink.get()
	if len(batches) != 1 || batches[0][0].Path != "x" {
		t.Fatalf("expected only the pre-stop event, got %+v", batches)
	}
	if d.Pending() != 0 {
		t.Error("events added after Stop must be dropped")
	}
}

func TestEventTypeConverts(t *testing.T) {
	for typ, want := range map[EventType]bool{
		EventCreate: true, EventModify: true, EventDelete: false, EventRename: false,
	} {
		if typ.Converts() != want {
			t.Errorf("%s.Converts() = %v", typ, !want)
		}
	}
}
