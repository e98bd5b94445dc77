package watcher

import (
	"time"

	"github.com/fsnotify/fsnotify"
)

type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Converts reports whether a file touched by this event may need a fresh
// output.
func (e EventType) Converts() bool {
	return e == EventCreate || e == EventModify
}

type FileEvent struct {
	Path      string
	Type      EventType
	Timestamp time.Time
}

func eventType(op fsnotify.Op) (EventType, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return EventCreate, true
	case op.Has(fsnotify.Write):
		return EventModify, true
	case op.Has(fsnotify.Remove):
		return EventDelete, true
	case op.Has(fsnotify.Rename):
		return EventRename, true
	}
	return 0, false
}
