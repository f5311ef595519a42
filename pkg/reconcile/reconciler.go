// Package reconcile turns tree edits into backend calls and folds the
// responses back into the tree.
package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-explorer/pkg/backend"
	"github.com/mattsolo1/grove-explorer/pkg/tree"
)

// Favorites is notified when a favorited folder or item changes.
type Favorites interface {
	Refresh(ctx context.Context, id string)
	Remove(id string)
}

type noFavorites struct{}

func (noFavorites) Refresh(context.Context, string) {}
func (noFavorites) Remove(string)                   {}

// ErrorHandler receives failed backend calls. The nodes involved keep their
// request-pending status.
type ErrorHandler func(rule string, u tree.Update, err error)

// Reconciler applies the rule table to the updates of the stores it is
// attached to. Backend calls run concurrently and are never retried.
type Reconciler struct {
	ctx       context.Context
	exec      backend.Executor
	favorites Favorites
	delay     time.Duration
	onError   ErrorHandler
	logger    *logrus.Entry

	wg sync.WaitGroup
}

type Option func(*Reconciler)

func WithFavorites(f Favorites) Option {
	return func(r *Reconciler) {
		if f != nil {
			r.favorites = f
		}
	}
}

// WithDebugDelay adds latency before a response is folded back.
func WithDebugDelay(d time.Duration) Option {
	return func(r *Reconciler) { r.delay = d }
}

func WithErrorHandler(h ErrorHandler) Option {
	return func(r *Reconciler) { r.onError = h }
}

// New creates a reconciler whose backend calls run under ctx.
func New(ctx context.Context, exec backend.Executor, logger *logrus.Entry, opts ...Option) *Reconciler {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	r := &Reconciler{
		ctx:       ctx,
		exec:      exec,
		favorites: noFavorites{},
		logger:    logger.WithField("component", "reconciler"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Attach applies the rules to every update of s.
func (r *Reconciler) Attach(s *tree.Store) (cancel func()) {
	return s.Subscribe(func(u tree.Update) { r.Apply(u) })
}

// Apply runs the first rule matching u and reports whether one did.
func (r *Reconciler) Apply(u tree.Update) bool {
	rule, ok := Match(u)
	if !ok {
		return false
	}
	r.logger.WithFields(logrus.Fields{
		"rule":    rule.Name,
		"command": u.Command.Kind.String(),
	}).Debug("dispatching")
	rule.Then(r, u)
	return true
}

// Wait blocks until every dispatched call has completed or failed.
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

// dispatch tags pending with a fresh correlation id, runs call in the
// background, and on success clears the tags, runs done then the update's
// OnAchieved callback.
func (r *Reconciler) dispatch(rule string, u tree.Update, pending []*tree.Node, call func(ctx context.Context) (any, error), done func(resp any)) {
	uid := tree.NewCorrelationID()
	for _, n := range pending {
		if n != nil {
			n.AddStatus(tree.StatusRequestPending, uid)
		}
	}
	logger := r.logger.WithFields(logrus.Fields{"rule": rule, "correlation_id": uid})

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		resp, err := call(r.ctx)
		if r.delay > 0 {
			select {
			case <-time.After(r.delay):
			case <-r.ctx.Done():
			}
		}
		if err != nil {
			logger.WithError(err).Error("backend call failed")
			if r.onError != nil {
				r.onError(rule, u, err)
			}
			return
		}
		for _, n := range pending {
			if n != nil {
				n.RemoveStatus(tree.StatusRequestPending, uid)
			}
		}
		if done != nil {
			done(resp)
		}
		u.Achieved()
		logger.Debug("achieved")
	}()
}
