// Package explorer holds an explorer session: one tree per group, the open
// folder, the selection and the clipboard.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mattsolo1/grove-explorer/pkg/backend"
	"github.com/mattsolo1/grove-explorer/pkg/reconcile"
	"github.com/mattsolo1/grove-explorer/pkg/tree"
)

var (
	// ErrGroupNotLoaded is returned by intents on nodes whose group tree was
	// never selected.
	ErrGroupNotLoaded = errors.New("group not loaded")
	// ErrNoLauncher is returned by LaunchApplication without a Launcher.
	ErrNoLauncher = errors.New("no application launcher configured")
	// ErrNotContainer is returned when a node is created under something
	// other than a folder or a drive.
	ErrNotContainer = errors.New("not a folder or drive")
)

// OpenFolder is the folder currently displayed and the tree it belongs to.
type OpenFolder struct {
	Tree   *TreeGroup
	Folder *tree.Node
}

type CutType string

const (
	CutMove   CutType = "move"
	CutBorrow CutType = "borrow"
)

// ItemCut is the single clipboard slot.
type ItemCut struct {
	Type CutType
	Node *tree.Node
}

// ItemAdded is published when a platform event adds an item to a loaded folder.
type ItemAdded struct {
	FolderID string
	Item     *tree.Node
}

// Launcher starts an application instance.
type Launcher interface {
	Launch(ctx context.Context, cdnPackage string, parameters map[string]string) error
}

// State is an explorer session. Each tree is owned by the session; views
// only read snapshots and subscribe.
type State struct {
	ctx       context.Context
	exec      backend.Executor
	cfg       Config
	rec       *reconcile.Reconciler
	launcher  Launcher
	favorites reconcile.Favorites
	onError   reconcile.ErrorHandler
	logger    *logrus.Entry

	mu      sync.Mutex
	groups  map[string]*TreeGroup
	itemCut *ItemCut
	loads   singleflight.Group

	selected   *subject[*tree.Node]
	openFolder *subject[*OpenFolder]
	itemAdded  *subject[ItemAdded]
}

type Option func(*State)

func WithConfig(cfg Config) Option {
	return func(s *State) { s.cfg = cfg }
}

func WithFavorites(f reconcile.Favorites) Option {
	return func(s *State) { s.favorites = f }
}

func WithLauncher(l Launcher) Option {
	return func(s *State) { s.launcher = l }
}

// WithErrorHandler receives failed reconciled calls.
func WithErrorHandler(h reconcile.ErrorHandler) Option {
	return func(s *State) { s.onError = h }
}

// New creates a session. Backend calls made on behalf of tree edits run
// under ctx.
func New(ctx context.Context, exec backend.Executor, logger *logrus.Entry, opts ...Option) *State {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	s := &State{
		ctx:        ctx,
		exec:       exec,
		cfg:        DefaultConfig(),
		logger:     logger.WithField("component", "explorer"),
		groups:     make(map[string]*TreeGroup),
		selected:   newSubject[*tree.Node](true),
		openFolder: newSubject[*OpenFolder](true),
		itemAdded:  newSubject[ItemAdded](false),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.PrivateGroupPath == "" {
		s.cfg.PrivateGroupPath = DefaultConfig().PrivateGroupPath
	}
	s.rec = reconcile.New(ctx, exec, logger,
		reconcile.WithFavorites(s.favorites),
		reconcile.WithDebugDelay(s.cfg.DebugDelay),
		reconcile.WithErrorHandler(s.onError),
	)
	return s
}

func (s *State) Config() Config                   { return s.cfg }
func (s *State) Executor() backend.Executor       { return s.exec }
func (s *State) Reconciler() *reconcile.Reconciler { return s.rec }

// Wait blocks until every reconciled backend call has completed or failed.
func (s *State) Wait() { s.rec.Wait() }

// Start loads the user's private group and opens its home folder.
func (s *State) Start(ctx context.Context) (*TreeGroup, error) {
	info, err := s.exec.GetUserInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("get user info: %w", err)
	}
	var private *backend.Group
	for i := range info.Groups {
		if info.Groups[i].Path == s.cfg.PrivateGroupPath {
			private = &info.Groups[i]
			break
		}
	}
	if private == nil {
		return nil, fmt.Errorf("no group with path %q for user %q", s.cfg.PrivateGroupPath, info.Name)
	}
	name := s.cfg.PrivateGroupName
	if name == "" {
		name = DefaultConfig().PrivateGroupName
	}
	tg, err := s.loadGroup(ctx, private.ID, name, tree.GroupUser)
	if err != nil {
		return nil, err
	}
	s.OpenFolder(tg.HomeNode())
	return tg, nil
}

// Group returns the loaded tree of groupID, or nil.
func (s *State) Group(groupID string) *TreeGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groups[groupID]
}

// Groups returns the loaded trees.
func (s *State) Groups() []*TreeGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*TreeGroup, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	return out
}

func (s *State) groupOf(n *tree.Node) (*TreeGroup, error) {
	tg := s.Group(n.GroupID)
	if tg == nil {
		return nil, fmt.Errorf("%w: %q", ErrGroupNotLoaded, n.GroupID)
	}
	return tg, nil
}

// SelectGroup returns the tree of groupID, loading it on first use.
// Concurrent loads of one group share a single backend round-trip.
func (s *State) SelectGroup(ctx context.Context, groupID string) (*TreeGroup, error) {
	if tg := s.Group(groupID); tg != nil {
		return tg, nil
	}
	info, err := s.exec.GetUserInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("get user info: %w", err)
	}
	name, kind := groupID, tree.GroupUsers
	for _, g := range info.Groups {
		if g.ID == groupID {
			parts := strings.Split(g.Path, "/")
			name = parts[len(parts)-1]
			if g.Path == s.cfg.PrivateGroupPath {
				kind = tree.GroupUser
			}
			break
		}
	}
	return s.loadGroup(ctx, groupID, name, kind)
}

func (s *State) loadGroup(ctx context.Context, groupID, name string, kind tree.GroupKind) (*TreeGroup, error) {
	// The load is shared by every waiter, so it must outlive the caller
	// that started it.
	loadCtx := context.WithoutCancel(ctx)
	ch := s.loads.DoChan(groupID, func() (interface{}, error) {
		if tg := s.Group(groupID); tg != nil {
			return tg, nil
		}
		var (
			defaultDrive *backend.DefaultDrive
			drives       *backend.Drives
		)
		g, gctx := errgroup.WithContext(loadCtx)
		g.Go(func() error {
			var err error
			defaultDrive, err = s.exec.GetDefaultDrive(gctx, groupID)
			return err
		})
		g.Go(func() error {
			var err error
			drives, err = s.exec.GetDrivesChildren(gctx, groupID)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("load group %q: %w", groupID, err)
		}
		tg, err := newTreeGroup(s.exec, name, kind, drives, defaultDrive, s.logger)
		if err != nil {
			return nil, err
		}
		s.rec.Attach(tg.Store)

		s.mu.Lock()
		s.groups[groupID] = tg
		s.mu.Unlock()
		s.logger.WithFields(logrus.Fields{"group": groupID, "drives": len(drives.Drives)}).Debug("group loaded")
		return tg, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*TreeGroup), nil
	}
}

// OpenFolder displays folder and clears the selection. It does nothing when
// the folder's group is not loaded.
func (s *State) OpenFolder(folder *tree.Node) {
	if folder == nil {
		return
	}
	tg := s.Group(folder.GroupID)
	if tg == nil {
		s.logger.WithField("group", folder.GroupID).Debug("open folder ignored, group not loaded")
		return
	}
	current := tg.Get(folder.ID)
	if current == nil {
		current = folder
	} else {
		_ = tg.SelectNodeAndExpand(folder.ID)
	}
	s.openFolder.Next(&OpenFolder{Tree: tg, Folder: current})
	s.selected.Next(nil)
}

// CurrentFolder returns the open folder, or nil before the first open.
func (s *State) CurrentFolder() *OpenFolder { return s.openFolder.Value() }

func (s *State) SubscribeOpenFolder(fn func(*OpenFolder)) (cancel func()) {
	return s.openFolder.Subscribe(fn)
}

// SelectItem sets the selection.
func (s *State) SelectItem(n *tree.Node) {
	if s.selected.Value() != n {
		s.selected.Next(n)
	}
}

func (s *State) Selected() *tree.Node { return s.selected.Value() }

func (s *State) SubscribeSelected(fn func(*tree.Node)) (cancel func()) {
	return s.selected.Subscribe(fn)
}

func (s *State) SubscribeItemAdded(fn func(ItemAdded)) (cancel func()) {
	return s.itemAdded.Subscribe(fn)
}

// NavigateTo loads the group owning folderID, resolves and expands the path
// down to it, then opens it.
func (s *State) NavigateTo(ctx context.Context, folderID string) (*tree.Node, error) {
	folder, err := s.exec.GetFolder(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("get folder %q: %w", folderID, err)
	}
	tg, err := s.SelectGroup(ctx, folder.GroupID)
	if err != nil {
		return nil, err
	}
	path, err := s.exec.GetPath(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("get path of %q: %w", folderID, err)
	}
	ids := []string{tg.Root().ID, path.Drive.DriveID}
	for _, f := range path.Folders {
		ids = append(ids, f.FolderID)
	}
	nodes, err := tg.ResolvePath(ctx, ids)
	if err != nil {
		return nil, err
	}
	tg.Expand(ids...)
	target := nodes[len(nodes)-1]
	s.OpenFolder(target)
	return target, nil
}

// NewFolder inserts a "new folder" placeholder under parent. The reconciler
// creates the folder and swaps the placeholder for it.
func (s *State) NewFolder(ctx context.Context, parent *tree.Node) (*tree.Node, error) {
	tg, err := s.groupOf(parent)
	if err != nil {
		return nil, err
	}
	if _, err := tg.ResolveChildren(ctx, parent.ID); err != nil {
		return nil, err
	}
	const name = "new folder"
	req := backend.CreateFolderRequest{Name: name, FolderID: tree.NewNodeID()}
	destination := containerID(parent)
	placeholder := tree.NewFutureFolderNode(tree.FutureParams{
		Name: name,
		Icon: tree.FolderIcon(tree.FolderRegular),
		Response: func(ctx context.Context) (any, error) {
			return s.exec.CreateFolder(ctx, destination, req)
		},
		OnResponse: func(resp any, placeholder *tree.Node) {
			created := resp.(*backend.Folder)
			folder := tree.NewFolderNode(tree.FolderParams{
				GroupID:        parent.GroupID,
				DriveID:        parent.DriveID,
				FolderID:       created.FolderID,
				ParentFolderID: destination,
				Name:           name,
				Kind:           tree.FolderRegular,
				Metadata:       created.Metadata,
			}, []*tree.Node{}, nil)
			if err := tg.ReplaceNode(placeholder.ID, folder, tree.WithoutSave()); err != nil {
				s.logger.WithError(err).Warn("new folder placeholder vanished")
			}
		},
	})
	if err := tg.AddChild(parent.ID, placeholder); err != nil {
		return nil, err
	}
	return placeholder, nil
}

// NewAsset inserts a placeholder for an item being created under parent. With
// a progress stream the placeholder is a progress node that runs response by
// itself; otherwise the reconciler runs it.
func (s *State) NewAsset(ctx context.Context, parent *tree.Node, pendingName string, response func(ctx context.Context) (*backend.Item, error), progress <-chan tree.Transfer) (*tree.Node, error) {
	if parent.Kind != tree.KindFolder && parent.Kind != tree.KindDrive {
		return nil, fmt.Errorf("new asset under %q: %w", parent.ID, ErrNotContainer)
	}
	tg, err := s.groupOf(parent)
	if err != nil {
		return nil, err
	}
	if _, err := tg.ResolveChildren(ctx, parent.ID); err != nil {
		return nil, err
	}
	uid := tree.NewCorrelationID()
	parent.AddStatus(tree.StatusRequestPending, uid)

	onResponse := func(resp any, target *tree.Node) {
		defer parent.RemoveStatus(tree.StatusRequestPending, uid)
		created, ok := resp.(*backend.Item)
		if !ok || created == nil {
			s.logger.WithField("placeholder", target.ID).Warn("asset created without a result")
			return
		}
		it := *created
		it.Borrowed = false
		if tg.Get(it.TreeID) != nil {
			// a file-added event got there first
			tg.RemoveNode(target.ID, tree.WithoutSave())
			return
		}
		if err := tg.ReplaceNode(target.ID, itemNode(it), tree.WithoutSave()); err != nil {
			s.logger.WithError(err).Warn("asset placeholder vanished")
		}
	}
	ready := make(chan struct{})
	respond := func(ctx context.Context) (any, error) {
		item, err := response(ctx)
		<-ready
		return item, err
	}

	var node *tree.Node
	if progress != nil {
		node = tree.NewProgressNode(s.ctx, tree.ProgressParams{
			Name:       pendingName,
			Direction:  tree.Download,
			Events:     progress,
			Response:   respond,
			OnResponse: onResponse,
		})
	} else {
		close(ready)
		node = tree.NewFutureItemNode(tree.FutureParams{
			Name:       pendingName,
			Response:   respond,
			OnResponse: onResponse,
		})
	}
	err = tg.AddChild(parent.ID, node)
	if progress != nil {
		close(ready)
	}
	if err != nil {
		parent.RemoveStatus(tree.StatusRequestPending, uid)
		return nil, err
	}
	return node, nil
}

// Rename renames a regular folder or an item. With save false the new name
// is only reflected locally.
func (s *State) Rename(node *tree.Node, newName string, save bool) error {
	tg, err := s.groupOf(node)
	if err != nil {
		return err
	}
	node.RemoveStatus(tree.StatusRenaming, "")
	err = tg.ReplaceAttributes(node.ID, tree.Attributes{Name: &newName},
		tree.Save(save),
		tree.OnAchieved(func() {
			if node.Kind == tree.KindItem {
				s.selected.Next(tg.Get(node.ID))
			}
		}),
	)
	if err != nil {
		return err
	}
	if open := s.CurrentFolder(); open != nil && open.Folder.ID == node.ID {
		s.OpenFolder(tg.Get(node.ID))
	}
	return nil
}

// DeleteItemOrFolder trashes node. Once the backend confirms, a loaded
// trash is refreshed so the entry shows up there.
func (s *State) DeleteItemOrFolder(node *tree.Node) error {
	tg, err := s.groupOf(node)
	if err != nil {
		return err
	}
	refreshTrash := func() {
		if trash := tg.TrashNodeOf(node); trash != nil {
			if err := s.Refresh(trash, false); err != nil {
				s.logger.WithError(err).Warn("refresh trash")
			}
		}
	}
	tg.RemoveNode(node.ID, tree.OnAchieved(refreshTrash))
	if node.Kind == tree.KindFolder && node.Folder != nil {
		if parent := tg.Get(node.Folder.ParentFolderID); parent != nil {
			s.OpenFolder(parent)
		}
	}
	return nil
}

// DeleteDrive removes a drive; the reconciler deletes it on the backend.
func (s *State) DeleteDrive(drive *tree.Node) error {
	tg, err := s.groupOf(drive)
	if err != nil {
		return err
	}
	tg.RemoveNode(drive.ID)
	return nil
}

// PurgeDrive empties the trash on the backend, then removes its entries from
// the tree. Only the last removal emits an update.
func (s *State) PurgeDrive(ctx context.Context, trash *tree.Node) error {
	tg, err := s.groupOf(trash)
	if err != nil {
		return err
	}
	uid := tree.NewCorrelationID()
	trash.AddStatus(tree.StatusRequestPending, uid)
	if err := s.exec.PurgeDrive(ctx, trash.DriveID); err != nil {
		return fmt.Errorf("purge drive %q: %w", trash.DriveID, err)
	}
	trash.RemoveStatus(tree.StatusRequestPending, uid)

	children, err := tg.ResolveChildren(ctx, trash.ID)
	if err != nil {
		return err
	}
	for i, deleted := range children {
		tg.RemoveNode(deleted.ID, tree.Emit(i == len(children)-1), tree.WithoutSave())
	}
	return nil
}

// CutItem puts a regular folder or an item in the clipboard for a move.
// A previous cut is discarded.
func (s *State) CutItem(node *tree.Node) {
	node.AddStatus(tree.StatusCut, "")
	s.mu.Lock()
	s.itemCut = &ItemCut{Type: CutMove, Node: node}
	s.mu.Unlock()
}

// BorrowItem puts an item in the clipboard for a borrow.
func (s *State) BorrowItem(node *tree.Node) {
	node.AddStatus(tree.StatusCut, "")
	s.mu.Lock()
	s.itemCut = &ItemCut{Type: CutBorrow, Node: node}
	s.mu.Unlock()
}

// ItemCut returns the clipboard content, or nil.
func (s *State) ItemCut() *ItemCut {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itemCut
}

// Refresh reloads the children of a folder or drive from the backend.
func (s *State) Refresh(folder *tree.Node, open bool) error {
	tg, err := s.groupOf(folder)
	if err != nil {
		return err
	}
	refreshed := folder.WithLoader(loaderFor(s.exec, folder))
	if err := tg.ReplaceNode(folder.ID, refreshed, tree.WithoutSave()); err != nil {
		return err
	}
	if open {
		s.OpenFolder(refreshed)
	}
	return nil
}

// UploadAsset uploads a local asset to the remote platform, then refreshes
// the open folder.
func (s *State) UploadAsset(ctx context.Context, node *tree.Node) error {
	if node.Item == nil {
		return fmt.Errorf("node %q is not an item", node.ID)
	}
	uid := tree.NewCorrelationID()
	node.AddStatus(tree.StatusRequestPending, uid)
	if err := s.exec.UploadLocalAsset(ctx, node.Item.AssetID); err != nil {
		return fmt.Errorf("upload asset %q: %w", node.Item.AssetID, err)
	}
	node.RemoveStatus(tree.StatusRequestPending, uid)
	if open := s.CurrentFolder(); open != nil && open.Folder.Kind == tree.KindFolder {
		return s.Refresh(open.Tree.Get(open.Folder.ID), true)
	}
	return nil
}

// LaunchApplication opens cdnPackage with parameters.
func (s *State) LaunchApplication(ctx context.Context, cdnPackage string, parameters map[string]string) error {
	if s.launcher == nil {
		return ErrNoLauncher
	}
	return s.launcher.Launch(ctx, cdnPackage, parameters)
}

// HandleFileAdded inserts a newly added item in its folder when that folder
// is loaded, and notifies SubscribeItemAdded listeners.
func (s *State) HandleFileAdded(ctx context.Context, itemID string) error {
	it, err := s.exec.GetItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("get item %q: %w", itemID, err)
	}
	tg := s.Group(it.GroupID)
	if tg == nil {
		return nil
	}
	node := itemNode(*it)
	if err := tg.AddChild(it.FolderID, node, tree.WithoutSave()); err != nil {
		s.logger.WithError(err).WithField("folder", it.FolderID).Debug("file added in a folder not resolved")
		return nil
	}
	s.itemAdded.Next(ItemAdded{FolderID: it.FolderID, Item: node})
	return nil
}

// WatchEvents handles platform events until events is closed or ctx is done.
func (s *State) WatchEvents(ctx context.Context, events <-chan backend.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if e.Type != backend.EventFileAdded {
				continue
			}
			if err := s.HandleFileAdded(ctx, e.TreeID); err != nil {
				s.logger.WithError(err).Warn("file added event")
			}
		}
	}
}
