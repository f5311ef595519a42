package tree

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"
)

// Snapshot is one immutable version of a tree. Only resolved children are
// indexed; nodes behind a lazy loader are not part of the snapshot yet.
type Snapshot struct {
	root    *Node
	nodes   map[string]*Node
	parents map[string]string
}

func newSnapshot(root *Node) (*Snapshot, error) {
	s := &Snapshot{
		root:    root,
		nodes:   make(map[string]*Node),
		parents: make(map[string]string),
	}
	var walk func(n *Node, parent string) error
	walk = func(n *Node, parent string) error {
		if _, exists := s.nodes[n.ID]; exists {
			return fmt.Errorf("%w: %q", ErrDuplicateID, n.ID)
		}
		s.nodes[n.ID] = n
		if parent != "" {
			s.parents[n.ID] = parent
		}
		for _, c := range n.Children() {
			if err := walk(c, n.ID); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root, ""); err != nil {
		return nil, err
	}
	return s, nil
}

// Root returns the root node.
func (s *Snapshot) Root() *Node { return s.root }

// Get returns the node with the given id, or nil.
func (s *Snapshot) Get(id string) *Node { return s.nodes[id] }

// Len returns the number of indexed nodes.
func (s *Snapshot) Len() int { return len(s.nodes) }

// Parent returns the parent of id, or nil for the root and unknown ids.
func (s *Snapshot) Parent(id string) *Node {
	pid, ok := s.parents[id]
	if !ok {
		return nil
	}
	return s.nodes[pid]
}

// Children returns the resolved children of id.
func (s *Snapshot) Children(id string) []*Node {
	n := s.nodes[id]
	if n == nil {
		return nil
	}
	return n.Children()
}

// Path returns the chain of nodes from the root down to id, inclusive.
func (s *Snapshot) Path(id string) []*Node {
	n := s.nodes[id]
	if n == nil {
		return nil
	}
	var path []*Node
	for cur := id; ; {
		path = append(path, s.nodes[cur])
		pid, ok := s.parents[cur]
		if !ok {
			break
		}
		cur = pid
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Walk visits every indexed node depth first, parents before children.
func (s *Snapshot) Walk(fn func(n *Node, depth int) bool) {
	var walk func(n *Node, depth int) bool
	walk = func(n *Node, depth int) bool {
		if !fn(n, depth) {
			return false
		}
		for _, c := range n.Children() {
			if !walk(c, depth+1) {
				return false
			}
		}
		return true
	}
	walk(s.root, 0)
}

// ReducePath maps every node from the root down to id, e.g. to render
// breadcrumbs.
func ReducePath[T any](s *Snapshot, id string, fn func(n *Node) T) []T {
	path := s.Path(id)
	out := make([]T, 0, len(path))
	for _, n := range path {
		out = append(out, fn(n))
	}
	return out
}

// rebuild copies every ancestor of the node at id so that updated takes its
// place, and returns the new root.
func (s *Snapshot) rebuild(id string, updated *Node) *Node {
	cur := updated
	for {
		pid, ok := s.parents[id]
		if !ok {
			return cur
		}
		parent := s.nodes[pid]
		children := make([]*Node, len(parent.children))
		copy(children, parent.children)
		for i, c := range children {
			if c.ID == id {
				children[i] = cur
				break
			}
		}
		cur = parent.withChildren(children)
		id = pid
	}
}

type subscriber struct {
	id int
	fn func(Update)
}

// Store holds the current snapshot of one tree and serializes edits to it.
// Updates are delivered to subscribers in edit order; an edit made from
// within a subscriber is delivered after the update being processed.
type Store struct {
	logger *logrus.Entry

	mu          sync.Mutex
	snap        *Snapshot
	subscribers []subscriber
	nextSub     int
	queue       []Update
	draining    bool

	expanded    []string
	selected    string
	selectedSub map[int]func(*Node)
}

// NewStore creates a store rooted at root. The root is expanded.
func NewStore(root *Node, logger *logrus.Entry) (*Store, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	snap, err := newSnapshot(root)
	if err != nil {
		return nil, err
	}
	return &Store{
		logger:      logger.WithField("component", "tree"),
		snap:        snap,
		expanded:    []string{root.ID},
		selectedSub: make(map[int]func(*Node)),
	}, nil
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Root returns the current root node.
func (s *Store) Root() *Node { return s.Snapshot().Root() }

// Get returns the current version of a node, or nil.
func (s *Store) Get(id string) *Node { return s.Snapshot().Get(id) }

// Subscribe registers fn for every update emitted from now on.
func (s *Store) Subscribe(fn func(Update)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers = append(s.subscribers, subscriber{id: id, fn: fn})
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subscribers {
			if sub.id == id {
				s.subscribers = append(s.subscribers[:i:i], s.subscribers[i+1:]...)
				return
			}
		}
	}
}

// commit installs snap and queues u. Callers hold s.mu and must call flush
// after unlocking.
func (s *Store) commit(snap *Snapshot, u *Update) {
	s.snap = snap
	if u != nil {
		s.queue = append(s.queue, *u)
	}
}

func (s *Store) flush() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	for len(s.queue) > 0 {
		u := s.queue[0]
		s.queue = s.queue[1:]
		subs := make([]subscriber, len(s.subscribers))
		copy(subs, s.subscribers)
		s.mu.Unlock()
		for _, sub := range subs {
			sub.fn(u)
		}
		s.mu.Lock()
	}
	s.draining = false
	s.mu.Unlock()
}

// AddChild appends child under parentID. The parent's children must be
// resolved.
func (s *Store) AddChild(parentID string, child *Node, opts ...Option) error {
	o := newEditOptions(opts)
	s.mu.Lock()
	parent := s.snap.Get(parentID)
	if parent == nil {
		s.mu.Unlock()
		return &NotFoundError{ID: parentID}
	}
	if !parent.Resolved() {
		s.mu.Unlock()
		return fmt.Errorf("add %q under %q: %w", child.ID, parentID, ErrUnresolved)
	}
	children := make([]*Node, 0, len(parent.children)+1)
	children = append(children, parent.children...)
	children = append(children, child)
	updatedParent := parent.withChildren(children)
	snap, err := newSnapshot(s.snap.rebuild(parentID, updatedParent))
	if err != nil {
		s.mu.Unlock()
		return err
	}
	var u *Update
	if o.emit {
		u = &Update{
			Command:    Command{Kind: CmdAddChild, ParentNode: updatedParent, Metadata: o.meta},
			AddedNodes: []*Node{child},
		}
	}
	s.commit(snap, u)
	s.mu.Unlock()
	s.flush()
	return nil
}

// RemoveNode detaches id and its subtree. It reports false, and does
// nothing, when id is absent or is the root.
func (s *Store) RemoveNode(id string, opts ...Option) bool {
	o := newEditOptions(opts)
	s.mu.Lock()
	node := s.snap.Get(id)
	parent := s.snap.Parent(id)
	if node == nil || parent == nil {
		s.mu.Unlock()
		return false
	}
	children := make([]*Node, 0, len(parent.children))
	for _, c := range parent.children {
		if c.ID != id {
			children = append(children, c)
		}
	}
	updatedParent := parent.withChildren(children)
	snap, err := newSnapshot(s.snap.rebuild(parent.ID, updatedParent))
	if err != nil {
		s.mu.Unlock()
		s.logger.WithError(err).Error("remove produced an invalid snapshot")
		return false
	}
	var u *Update
	if o.emit {
		u = &Update{
			Command:      Command{Kind: CmdRemoveNode, ParentNode: updatedParent, Metadata: o.meta},
			RemovedNodes: []*Node{node},
		}
	}
	s.commit(snap, u)
	s.mu.Unlock()
	s.flush()
	return true
}

// ReplaceNode swaps the node at oldID for updated at the same position.
func (s *Store) ReplaceNode(oldID string, updated *Node, opts ...Option) error {
	return s.replace(oldID, CmdReplace, func(old *Node) *Node { return updated }, opts)
}

// ReplaceAttributes changes attributes of id in place. Children, loader and
// status are carried over.
func (s *Store) ReplaceAttributes(id string, attrs Attributes, opts ...Option) error {
	return s.replace(id, CmdReplaceAttributes, func(old *Node) *Node { return old.withAttributes(attrs) }, opts)
}

func (s *Store) replace(id string, kind CommandKind, build func(old *Node) *Node, opts []Option) error {
	o := newEditOptions(opts)
	s.mu.Lock()
	old := s.snap.Get(id)
	if old == nil {
		s.mu.Unlock()
		return &NotFoundError{ID: id}
	}
	updated := build(old)
	if o.merge != nil {
		updated = o.merge(old, updated)
	}
	snap, err := newSnapshot(s.snap.rebuild(id, updated))
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if s.selected == id {
		s.selected = updated.ID
	}
	if updated.ID != id {
		s.renameExpanded(id, updated.ID)
	}
	var u *Update
	if o.emit {
		u = &Update{
			Command:      Command{Kind: kind, ParentNode: s.snap.Parent(id), Metadata: o.meta},
			AddedNodes:   []*Node{updated},
			RemovedNodes: []*Node{old},
		}
		if u.Command.ParentNode != nil {
			u.Command.ParentNode = snap.Get(u.Command.ParentNode.ID)
		}
	}
	s.commit(snap, u)
	s.mu.Unlock()
	s.flush()
	return nil
}

// ResolveChildren returns the children of id, calling its loader the first
// time. The node is tagged request-pending while the loader runs. Resolved
// children are installed without emitting an update; a child whose id is
// already present elsewhere in the tree is dropped.
func (s *Store) ResolveChildren(ctx context.Context, id string) ([]*Node, error) {
	node := s.Get(id)
	if node == nil {
		return nil, &NotFoundError{ID: id}
	}
	if node.Resolved() {
		return node.Children(), nil
	}

	tag := node.AddStatus(StatusRequestPending, NewCorrelationID())
	children, err := node.loader(ctx)
	node.RemoveStatus(tag.Type, tag.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve children of %q: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.snap.Get(id)
	if cur == nil {
		return nil, &NotFoundError{ID: id}
	}
	if cur.Resolved() {
		return cur.Children(), nil
	}
	kept := make([]*Node, 0, len(children))
	seen := make(map[string]bool, len(children))
	for _, c := range children {
		if s.snap.Get(c.ID) != nil || seen[c.ID] {
			s.logger.WithField("id", c.ID).Debug("dropping child already present in tree")
			continue
		}
		seen[c.ID] = true
		kept = append(kept, c)
	}
	resolved := cur.withChildren(kept)
	snap, err := newSnapshot(s.snap.rebuild(id, resolved))
	if err != nil {
		return nil, err
	}
	s.commit(snap, nil)
	return kept, nil
}

// ResolvePath resolves the children of every id in order and returns the
// current version of each node along the path.
func (s *Store) ResolvePath(ctx context.Context, ids []string) ([]*Node, error) {
	for _, id := range ids {
		if _, err := s.ResolveChildren(ctx, id); err != nil {
			return nil, err
		}
	}
	snap := s.Snapshot()
	nodes := make([]*Node, 0, len(ids))
	for _, id := range ids {
		n := snap.Get(id)
		if n == nil {
			return nil, &NotFoundError{ID: id}
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// Expanded returns the ids of expanded nodes.
func (s *Store) Expanded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.expanded))
	copy(out, s.expanded)
	return out
}

// SetExpanded replaces the set of expanded nodes.
func (s *Store) SetExpanded(ids []string) {
	s.mu.Lock()
	s.expanded = append([]string(nil), ids...)
	s.mu.Unlock()
}

// Expand adds ids to the expanded set, keeping the order of first expansion.
func (s *Store) Expand(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expandLocked(ids)
}

func (s *Store) expandLocked(ids []string) {
	present := make(map[string]bool, len(s.expanded))
	for _, id := range s.expanded {
		present[id] = true
	}
	for _, id := range ids {
		if !present[id] {
			s.expanded = append(s.expanded, id)
			present[id] = true
		}
	}
}

// renameExpanded moves the expanded flag of from onto to. Callers hold s.mu.
func (s *Store) renameExpanded(from, to string) {
	i := slices.Index(s.expanded, from)
	if i < 0 {
		return
	}
	if slices.Contains(s.expanded, to) {
		s.expanded = slices.Delete(s.expanded, i, i+1)
		return
	}
	s.expanded[i] = to
}

// IsExpanded reports whether id is expanded.
func (s *Store) IsExpanded(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.expanded {
		if e == id {
			return true
		}
	}
	return false
}

// SelectNodeAndExpand selects id and expands all of its ancestors.
func (s *Store) SelectNodeAndExpand(id string) error {
	s.mu.Lock()
	path := s.snap.Path(id)
	if path == nil {
		s.mu.Unlock()
		return &NotFoundError{ID: id}
	}
	ancestors := make([]string, 0, len(path)-1)
	for _, n := range path[:len(path)-1] {
		ancestors = append(ancestors, n.ID)
	}
	s.expandLocked(ancestors)
	s.selected = id
	node := path[len(path)-1]
	subs := s.selectedListeners()
	s.mu.Unlock()
	for _, fn := range subs {
		fn(node)
	}
	return nil
}

// Selected returns the current version of the selected node, or nil.
func (s *Store) Selected() *Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == "" {
		return nil
	}
	return s.snap.Get(s.selected)
}

// SubscribeSelected calls fn on every selection change.
func (s *Store) SubscribeSelected(fn func(*Node)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.selectedSub[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.selectedSub, id)
		s.mu.Unlock()
	}
}

func (s *Store) selectedListeners() []func(*Node) {
	subs := make([]func(*Node), 0, len(s.selectedSub))
	for _, fn := range s.selectedSub {
		subs = append(subs, fn)
	}
	return subs
}
