// Package service wires an explorer session together: the backend client,
// the explorer state, favorites, the install manifest and the action catalog.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-explorer/pkg/actions"
	"github.com/mattsolo1/grove-explorer/pkg/backend"
	"github.com/mattsolo1/grove-explorer/pkg/explorer"
	"github.com/mattsolo1/grove-explorer/pkg/favorites"
	"github.com/mattsolo1/grove-explorer/pkg/manifest"
	"github.com/mattsolo1/grove-explorer/pkg/tree"
)

// Config holds service configuration
type Config struct {
	BackendURL   string
	Token        string
	Timeout      time.Duration
	DataDir      string
	ManifestPath string
	// Applications are declared inline in the config file and merged into
	// the manifest.
	Applications []manifest.Application
	Explorer     explorer.Config
}

// Host is what the embedding program provides for side effects: clipboard,
// downloads and application launches.
type Host interface {
	actions.Host
	explorer.Launcher
}

// Service is one explorer session.
type Service struct {
	Config    *Config
	Executor  backend.Executor
	State     *explorer.State
	Favorites *favorites.Facade
	Manifests *manifest.Source
	Catalog   *actions.Catalog

	registry *favorites.Registry
	logger   *logrus.Entry

	mu       sync.Mutex
	failures []error
}

// New connects to the backend described by cfg.
func New(ctx context.Context, cfg *Config, host Host, logger *logrus.Entry) (*Service, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	client, err := backend.NewClient(backend.ClientOptions{
		BaseURL: cfg.BackendURL,
		Token:   cfg.Token,
		Timeout: cfg.Timeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create backend client: %w", err)
	}
	return NewWithExecutor(ctx, cfg, client, host, logger)
}

// NewWithExecutor builds a session over an existing executor.
func NewWithExecutor(ctx context.Context, cfg *Config, exec backend.Executor, host Host, logger *logrus.Entry) (*Service, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	registry, err := favorites.NewRegistry(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open favorites: %w", err)
	}
	facade, err := favorites.NewFacade(registry, exec, logger)
	if err != nil {
		registry.Close()
		return nil, fmt.Errorf("load favorites: %w", err)
	}
	manifests, err := manifest.NewSource(cfg.ManifestPath, cfg.Applications, logger)
	if err != nil {
		registry.Close()
		return nil, fmt.Errorf("load manifest: %w", err)
	}

	svc := &Service{
		Config:    cfg,
		Executor:  exec,
		Favorites: facade,
		Manifests: manifests,
		registry:  registry,
		logger:    logger.WithField("component", "service"),
	}
	opts := []explorer.Option{
		explorer.WithConfig(cfg.Explorer),
		explorer.WithFavorites(facade),
		explorer.WithErrorHandler(svc.recordFailure),
	}
	catalogOpts := []actions.Option{
		actions.WithFavorites(facade),
		actions.WithManifest(manifests),
		actions.WithBaseURL(cfg.BackendURL),
	}
	if host != nil {
		opts = append(opts, explorer.WithLauncher(host))
		catalogOpts = append(catalogOpts, actions.WithHost(host))
	}
	svc.State = explorer.New(ctx, exec, logger, opts...)
	svc.Catalog = actions.NewCatalog(svc.State, logger, catalogOpts...)
	return svc, nil
}

func (s *Service) recordFailure(rule string, u tree.Update, err error) {
	s.logger.WithError(err).WithField("rule", rule).Warn("backend call failed")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, fmt.Errorf("%s: %w", rule, err))
}

// Close waits for pending backend calls and releases the favorites database.
func (s *Service) Close() error {
	s.State.Wait()
	return s.registry.Close()
}

// Locate finds the node with the given id, loading the group and the folders
// leading to it when needed. Ids may name a drive, a trash, a folder or an
// item.
func (s *Service) Locate(ctx context.Context, id string) (*tree.Node, error) {
	if n := s.loaded(id); n != nil {
		return n, nil
	}

	folder, err := s.State.NavigateTo(ctx, id)
	if err == nil {
		return folder, nil
	}
	if !backend.IsNotFound(err) {
		return nil, err
	}

	item, err := s.Executor.GetItem(ctx, id)
	if err != nil {
		if backend.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %q", tree.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get item %q: %w", id, err)
	}
	parent, err := s.State.NavigateTo(ctx, item.FolderID)
	if err != nil {
		return nil, err
	}
	tg := s.State.Group(parent.GroupID)
	if _, err := tg.ResolveChildren(ctx, parent.ID); err != nil {
		return nil, err
	}
	if n := tg.Get(id); n != nil {
		return n, nil
	}
	return nil, fmt.Errorf("%w: %q", tree.ErrNotFound, id)
}

func (s *Service) loaded(id string) *tree.Node {
	for _, tg := range s.State.Groups() {
		if n := tg.Get(id); n != nil {
			return n
		}
	}
	return nil
}

// Do runs fn and waits for the backend calls it triggered. The first
// reconciler failure reported while waiting is returned.
func (s *Service) Do(fn func() error) error {
	s.mu.Lock()
	seen := len(s.failures)
	s.mu.Unlock()
	if err := fn(); err != nil {
		return err
	}
	s.State.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.failures) > seen {
		return s.failures[seen]
	}
	return nil
}

// ErrNotActionable is returned when an action is unknown or disabled.
var ErrNotActionable = errors.New("action not available")

// Run executes the named action on n.
func (s *Service) Run(ctx context.Context, n *tree.Node, name string) error {
	all, err := s.Catalog.Actions(ctx, n)
	if err != nil {
		return err
	}
	a, ok := actions.Find(all, name)
	if !ok || !a.Enabled() {
		return fmt.Errorf("%w: %q on %q", ErrNotActionable, name, n.Name)
	}
	return s.Do(func() error { return a.Exe(ctx) })
}

// Events returns the platform event stream, or nil when the session does not
// talk to an HTTP backend.
func (s *Service) Events() *backend.EventStream {
	if c, ok := s.Executor.(*backend.Client); ok {
		return c.Events()
	}
	return nil
}
