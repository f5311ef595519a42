// Package favorites keeps the groups, folders, items and applications the
// user pinned, and follows renames and deletions made in the explorer.
package favorites

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-explorer/pkg/backend"
	"github.com/mattsolo1/grove-explorer/pkg/reconcile"
)

type Kind string

const (
	KindGroup       Kind = "group"
	KindFolder      Kind = "folder"
	KindItem        Kind = "item"
	KindApplication Kind = "application"
)

// Favorite is one pinned entity. Folders and items are keyed by their tree
// id, applications by their cdn package.
type Favorite struct {
	Kind      Kind
	ID        string
	Name      string
	GroupID   string
	DriveID   string
	CreatedAt time.Time
	LastUsed  time.Time
}

func (f Favorite) Validate() error {
	switch f.Kind {
	case KindGroup, KindFolder, KindItem, KindApplication:
	default:
		return fmt.Errorf("unknown favorite kind %q", f.Kind)
	}
	if f.ID == "" {
		return fmt.Errorf("favorite %s has no id", f.Kind)
	}
	return nil
}

// Store persists favorites.
type Store interface {
	List() ([]Favorite, error)
	Put(f Favorite) error
	Delete(kind Kind, id string) error
	DeleteID(id string) error
}

// Facade serves favorites from memory and writes through to a Store.
type Facade struct {
	store  Store
	exec   backend.Executor
	logger *logrus.Entry

	mu        sync.Mutex
	favorites []Favorite
	subs      map[int]func([]Favorite)
	nextSub   int
}

var _ reconcile.Favorites = (*Facade)(nil)

// NewFacade loads the favorites of store. exec is used to look up names.
func NewFacade(store Store, exec backend.Executor, logger *logrus.Entry) (*Facade, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	favorites, err := store.List()
	if err != nil {
		return nil, fmt.Errorf("load favorites: %w", err)
	}
	return &Facade{
		store:     store,
		exec:      exec,
		logger:    logger.WithField("component", "favorites"),
		favorites: favorites,
		subs:      make(map[int]func([]Favorite)),
	}, nil
}

func (f *Facade) byKind(kind Kind) []Favorite {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Favorite
	for _, fav := range f.favorites {
		if fav.Kind == kind {
			out = append(out, fav)
		}
	}
	return out
}

func (f *Facade) Groups() []Favorite       { return f.byKind(KindGroup) }
func (f *Facade) Folders() []Favorite      { return f.byKind(KindFolder) }
func (f *Facade) Items() []Favorite        { return f.byKind(KindItem) }
func (f *Facade) Applications() []Favorite { return f.byKind(KindApplication) }

// All returns every favorite in pin order.
func (f *Facade) All() []Favorite {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Favorite(nil), f.favorites...)
}

func (f *Facade) IsFavorite(kind Kind, id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.indexLocked(kind, id) >= 0
}

func (f *Facade) indexLocked(kind Kind, id string) int {
	for i, fav := range f.favorites {
		if fav.Kind == kind && fav.ID == id {
			return i
		}
	}
	return -1
}

// Subscribe calls fn with the whole list after every change.
func (f *Facade) Subscribe(fn func([]Favorite)) (cancel func()) {
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

func (f *Facade) publish() {
	f.mu.Lock()
	list := append([]Favorite(nil), f.favorites...)
	subs := make([]func([]Favorite), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()
	for _, fn := range subs {
		fn(list)
	}
}

func (f *Facade) put(fav Favorite) error {
	if err := f.store.Put(fav); err != nil {
		return fmt.Errorf("save favorite %s %q: %w", fav.Kind, fav.ID, err)
	}
	f.mu.Lock()
	if i := f.indexLocked(fav.Kind, fav.ID); i >= 0 {
		fav.CreatedAt = f.favorites[i].CreatedAt
		f.favorites[i] = fav
	} else {
		f.favorites = append(f.favorites, fav)
	}
	f.mu.Unlock()
	f.publish()
	return nil
}

// toggle removes the favorite when present. Otherwise it builds it with
// lookup and adds it. It reports whether the entity is now a favorite.
func (f *Facade) toggle(kind Kind, id string, lookup func() (Favorite, error)) (bool, error) {
	if f.IsFavorite(kind, id) {
		if err := f.store.Delete(kind, id); err != nil {
			return true, fmt.Errorf("delete favorite %s %q: %w", kind, id, err)
		}
		f.mu.Lock()
		if i := f.indexLocked(kind, id); i >= 0 {
			f.favorites = append(f.favorites[:i:i], f.favorites[i+1:]...)
		}
		f.mu.Unlock()
		f.publish()
		return false, nil
	}
	fav, err := lookup()
	if err != nil {
		return false, err
	}
	now := time.Now()
	fav.CreatedAt, fav.LastUsed = now, now
	return true, f.put(fav)
}

func (f *Facade) ToggleGroup(groupID, name string) (bool, error) {
	return f.toggle(KindGroup, groupID, func() (Favorite, error) {
		return Favorite{Kind: KindGroup, ID: groupID, Name: name, GroupID: groupID}, nil
	})
}

func (f *Facade) ToggleFolder(ctx context.Context, folderID string) (bool, error) {
	return f.toggle(KindFolder, folderID, func() (Favorite, error) {
		folder, err := f.exec.GetFolder(ctx, folderID)
		if err != nil {
			return Favorite{}, fmt.Errorf("get folder %q: %w", folderID, err)
		}
		return Favorite{Kind: KindFolder, ID: folderID, Name: folder.Name, GroupID: folder.GroupID, DriveID: folder.DriveID}, nil
	})
}

func (f *Facade) ToggleItem(ctx context.Context, itemID string) (bool, error) {
	return f.toggle(KindItem, itemID, func() (Favorite, error) {
		item, err := f.exec.GetItem(ctx, itemID)
		if err != nil {
			return Favorite{}, fmt.Errorf("get item %q: %w", itemID, err)
		}
		return Favorite{Kind: KindItem, ID: itemID, Name: item.Name, GroupID: item.GroupID, DriveID: item.DriveID}, nil
	})
}

func (f *Facade) ToggleApplication(cdnPackage, displayName string) (bool, error) {
	return f.toggle(KindApplication, cdnPackage, func() (Favorite, error) {
		return Favorite{Kind: KindApplication, ID: cdnPackage, Name: displayName}, nil
	})
}

// Refresh re-reads the name of the favorite folder or item id from the
// backend. Ids that are not favorites are ignored.
func (f *Facade) Refresh(ctx context.Context, id string) {
	for _, kind := range []Kind{KindFolder, KindItem} {
		f.mu.Lock()
		i := f.indexLocked(kind, id)
		var fav Favorite
		if i >= 0 {
			fav = f.favorites[i]
		}
		f.mu.Unlock()
		if i < 0 {
			continue
		}

		var err error
		switch kind {
		case KindFolder:
			var folder *backend.Folder
			if folder, err = f.exec.GetFolder(ctx, id); err == nil {
				fav.Name = folder.Name
			}
		case KindItem:
			var item *backend.Item
			if item, err = f.exec.GetItem(ctx, id); err == nil {
				fav.Name = item.Name
			}
		}
		if err != nil {
			f.logger.WithError(err).WithField("id", id).Warn("refresh favorite")
			continue
		}
		fav.LastUsed = time.Now()
		if err := f.put(fav); err != nil {
			f.logger.WithError(err).WithField("id", id).Warn("refresh favorite")
		}
	}
}

// Remove drops every favorite referring to id.
func (f *Facade) Remove(id string) {
	if err := f.store.DeleteID(id); err != nil {
		f.logger.WithError(err).WithField("id", id).Warn("remove favorite")
		return
	}
	f.mu.Lock()
	kept := f.favorites[:0:0]
	for _, fav := range f.favorites {
		if fav.ID != id {
			kept = append(kept, fav)
		}
	}
	changed := len(kept) != len(f.favorites)
	f.favorites = kept
	f.mu.Unlock()
	if changed {
		f.publish()
	}
}
