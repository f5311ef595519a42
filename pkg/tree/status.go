package tree

import (
	"crypto/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// StatusType names an operation or UI state attached to a node.
type StatusType string

const (
	StatusRequestPending StatusType = "request-pending"
	StatusCut            StatusType = "cut"
	StatusRenaming       StatusType = "renaming"
)

// StatusTag is one entry of a node's status set.
type StatusTag struct {
	Type StatusType `json:"type"`
	ID   string     `json:"id"`
}

// Status is the set of tags attached to a node, keyed by (type, id).
// Several pending operations may coexist on one node, each under its own
// correlation id.
type Status struct {
	mu          sync.Mutex
	owner       string
	tags        []StatusTag
	subscribers map[int]func([]StatusTag)
	nextSub     int
}

func newStatus(owner string) *Status {
	return &Status{owner: owner, subscribers: make(map[int]func([]StatusTag))}
}

// Add inserts a tag. Adding an existing tag is a no-op.
func (s *Status) Add(typ StatusType, id string) StatusTag {
	if id == "" {
		id = s.owner
	}
	tag := StatusTag{Type: typ, ID: id}
	s.mu.Lock()
	for _, t := range s.tags {
		if t == tag {
			s.mu.Unlock()
			return tag
		}
	}
	s.tags = append(s.tags, tag)
	list, subs := s.snapshotLocked()
	s.mu.Unlock()
	notify(subs, list)
	return tag
}

// Remove drops the tag matching both type and id.
func (s *Status) Remove(typ StatusType, id string) {
	if id == "" {
		id = s.owner
	}
	s.mu.Lock()
	kept := s.tags[:0:0]
	removed := false
	for _, t := range s.tags {
		if t.Type == typ && t.ID == id {
			removed = true
			continue
		}
		kept = append(kept, t)
	}
	if !removed {
		s.mu.Unlock()
		return
	}
	s.tags = kept
	list, subs := s.snapshotLocked()
	s.mu.Unlock()
	notify(subs, list)
}

// Has reports whether any tag of the given type is present.
func (s *Status) Has(typ StatusType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tags {
		if t.Type == typ {
			return true
		}
	}
	return false
}

// Contains reports whether the exact (type, id) tag is present.
func (s *Status) Contains(typ StatusType, id string) bool {
	if id == "" {
		id = s.owner
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tags {
		if t.Type == typ && t.ID == id {
			return true
		}
	}
	return false
}

// List returns a copy of the current tags in insertion order.
func (s *Status) List() []StatusTag {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StatusTag, len(s.tags))
	copy(out, s.tags)
	return out
}

// Subscribe calls fn with the current tags and on every change.
func (s *Status) Subscribe(fn func([]StatusTag)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	list := make([]StatusTag, len(s.tags))
	copy(list, s.tags)
	s.mu.Unlock()
	fn(list)
	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *Status) snapshotLocked() ([]StatusTag, []func([]StatusTag)) {
	list := make([]StatusTag, len(s.tags))
	copy(list, s.tags)
	subs := make([]func([]StatusTag), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	return list, subs
}

func notify(subs []func([]StatusTag), list []StatusTag) {
	for _, fn := range subs {
		fn(list)
	}
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewCorrelationID returns a sortable id used to tag one in-flight request.
func NewCorrelationID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Now(), entropy).String()
}

// NewNodeID returns a random id for placeholders and client-side folder ids.
func NewNodeID() string {
	return uuid.NewString()
}
