package tree

import (
	"errors"
	"fmt"
)

// CommandKind is the structural edit an update describes.
type CommandKind int

const (
	CmdAddChild CommandKind = iota
	CmdRemoveNode
	CmdReplace
	CmdReplaceAttributes
)

func (k CommandKind) String() string {
	switch k {
	case CmdAddChild:
		return "add-child"
	case CmdRemoveNode:
		return "remove-node"
	case CmdReplace:
		return "replace"
	case CmdReplaceAttributes:
		return "replace-attributes"
	}
	return "unknown"
}

// Metadata travels with a command to its observers.
type Metadata struct {
	// ToBeSaved is false for edits that only mirror a change the backend
	// already holds. Defaults to true.
	ToBeSaved bool
	// OnAchieved runs once the backend round-trip of the edit completes.
	OnAchieved func()
}

// Command is the edit that produced an update.
type Command struct {
	Kind CommandKind
	// ParentNode is the parent of the edited position. For removals it is the
	// parent the node was detached from.
	ParentNode *Node
	Metadata   Metadata
}

// Update is emitted for every structural edit made with emit enabled.
type Update struct {
	Command      Command
	AddedNodes   []*Node
	RemovedNodes []*Node
}

// Achieved runs the command's OnAchieved callback if any.
func (u Update) Achieved() {
	if u.Command.Metadata.OnAchieved != nil {
		u.Command.Metadata.OnAchieved()
	}
}

// MergeFunc lets a caller adjust the node about to be installed by a replace.
type MergeFunc func(old, updated *Node) *Node

// Option configures a single structural edit.
type Option func(*editOptions)

type editOptions struct {
	emit  bool
	meta  Metadata
	merge MergeFunc
}

func newEditOptions(opts []Option) editOptions {
	o := editOptions{emit: true, meta: Metadata{ToBeSaved: true}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Silent applies the edit without emitting an update.
func Silent() Option {
	return func(o *editOptions) { o.emit = false }
}

// Emit sets whether the edit emits an update.
func Emit(emit bool) Option {
	return func(o *editOptions) { o.emit = emit }
}

// WithoutSave marks the edit as already persisted.
func WithoutSave() Option {
	return func(o *editOptions) { o.meta.ToBeSaved = false }
}

// Save sets the ToBeSaved flag of the edit.
func Save(save bool) Option {
	return func(o *editOptions) { o.meta.ToBeSaved = save }
}

// OnAchieved registers a callback run after the backend round-trip.
func OnAchieved(fn func()) Option {
	return func(o *editOptions) { o.meta.OnAchieved = fn }
}

// WithMerge sets the merge function of a replace.
func WithMerge(fn MergeFunc) Option {
	return func(o *editOptions) { o.merge = fn }
}

var (
	// ErrNotFound is matched by every NotFoundError.
	ErrNotFound = errors.New("node not found")
	// ErrDuplicateID is returned when an edit would put two nodes with the
	// same id in one snapshot.
	ErrDuplicateID = errors.New("duplicate node id")
	// ErrUnresolved is returned when adding under a node whose children were
	// never loaded.
	ErrUnresolved = errors.New("children not resolved")
	// ErrRoot is returned for edits that cannot apply to the root.
	ErrRoot = errors.New("operation not allowed on the root node")
)

// NotFoundError reports a structural edit on an id absent from the snapshot.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("node %q not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
