package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/hmm"
	"github.com/aretw0/hmm/internal/logging"
	"github.com/aretw0/hmm/pkg/domain"
	"github.com/aretw0/hmm/pkg/ports"
	"github.com/aretw0/hmm/pkg/registry"
	"golang.org/x/sync/singleflight"
)

// DefaultLockTTL bounds how long a distributed lock is held if the holder dies.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Catalog orchestrates access to stored models.
// It uses reference counting to garbage collect unused locks.
type Catalog struct {
	store    ports.ModelStore
	registry *registry.Registry

	mu    sync.Mutex
	locks map[string]*lockEntry

	// loads deduplicates concurrent reads of the same model.
	loads singleflight.Group

	locker    ports.DistributedLocker
	lockTTL   time.Duration
	modelOpts []hmm.Option
	logger    *slog.Logger
}

// Option configures the Catalog.
type Option func(*Catalog)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(c *Catalog) {
		c.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(c *Catalog) {
		c.lockTTL = ttl
	}
}

// WithRegistry sets the registry used to rebuild models (default: registry.Builtin()).
func WithRegistry(r *registry.Registry) Option {
	return func(c *Catalog) {
		c.registry = r
	}
}

// WithModelOptions adds options applied to every model the catalog builds,
// e.g. hmm.WithHooks or hmm.WithLogger.
func WithModelOptions(opts ...hmm.Option) Option {
	return func(c *Catalog) {
		c.modelOpts = append(c.modelOpts, opts...)
	}
}

// WithLogger configures a logger for the Catalog.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		c.logger = logger
	}
}

// New creates a catalog over the given store.
func New(store ports.ModelStore, opts ...Option) *Catalog {
	c := &Catalog{
		store:    store,
		registry: registry.Builtin(),
		locks:    make(map[string]*lockEntry),
		lockTTL:  DefaultLockTTL,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the underlying model store.
func (c *Catalog) Store() ports.ModelStore {
	return c.store
}

// Registry returns the registry used to build models.
func (c *Catalog) Registry() *registry.Registry {
	return c.registry
}

// Spec loads the stored spec of a model. Concurrent calls for the same name
// share one store read; each caller receives its own copy.
func (c *Catalog) Spec(ctx context.Context, name string) (*domain.ModelSpec, error) {
	v, err, shared := c.loads.Do(name, func() (any, error) {
		// The read outlives any single caller's cancellation.
		return c.store.Load(context.WithoutCancel(ctx), name)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("shared model load", "model", name)
	}
	return v.(*domain.ModelSpec).Clone(), nil
}

// Get loads and builds a model. The returned model is private to the
// caller; changes to it are not persisted unless passed to Put. opts are
// applied after the catalog's own model options.
func (c *Catalog) Get(ctx context.Context, name string, opts ...hmm.Option) (*hmm.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	spec, err := c.Spec(ctx, name)
	if err != nil {
		return nil, err
	}
	return c.build(name, spec, opts...)
}

// Put stores a snapshot of model under name.
func (c *Catalog) Put(ctx context.Context, name string, model *hmm.Model) error {
	spec, err := model.Spec()
	if err != nil {
		return err
	}
	return c.WithLock(ctx, name, func(ctx context.Context) error {
		return c.store.Save(ctx, name, spec)
	})
}

// PutSpec validates spec by building it and stores it under name.
func (c *Catalog) PutSpec(ctx context.Context, name string, spec *domain.ModelSpec) error {
	if _, err := c.build(name, spec); err != nil {
		return err
	}
	return c.WithLock(ctx, name, func(ctx context.Context) error {
		return c.store.Save(ctx, name, spec)
	})
}

// Delete removes a model from the store.
func (c *Catalog) Delete(ctx context.Context, name string) error {
	return c.WithLock(ctx, name, func(ctx context.Context) error {
		return c.store.Delete(ctx, name)
	})
}

// List delegates to the store.
func (c *Catalog) List(ctx context.Context) ([]string, error) {
	return c.store.List(ctx)
}

// Update loads a model, applies fn and saves the result, holding the model
// lock throughout. Nothing is saved if fn fails.
func (c *Catalog) Update(ctx context.Context, name string, fn func(context.Context, *hmm.Model) error) error {
	return c.WithLock(ctx, name, func(ctx context.Context) error {
		spec, err := c.store.Load(ctx, name)
		if err != nil {
			return err
		}
		model, err := c.build(name, spec)
		if err != nil {
			return err
		}
		if err := fn(ctx, model); err != nil {
			return err
		}
		updated, err := model.Spec()
		if err != nil {
			return err
		}
		if err := c.store.Save(ctx, name, updated); err != nil {
			return fmt.Errorf("failed to save model %q: %w", name, err)
		}
		c.logger.Info("model updated", "model", name)
		return nil
	})
}

func (c *Catalog) build(name string, spec *domain.ModelSpec, extra ...hmm.Option) (*hmm.Model, error) {
	opts := append(append([]hmm.Option(nil), c.modelOpts...), extra...)
	model, err := c.registry.Build(spec, opts...)
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", name, err)
	}
	return model, nil
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST lock entry.mu, and then call release(name) after unlocking.
func (c *Catalog) acquire(name string) *lockEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.locks[name]
	if !exists {
		entry = &lockEntry{}
		c.locks[name] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (c *Catalog) release(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.locks[name]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(c.locks, name)
	}
}

// WithLock executes fn while holding the lock for the model name.
func (c *Catalog) WithLock(ctx context.Context, name string, fn func(context.Context) error) error {
	entry := c.acquire(name)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		c.release(name)
	}()

	if c.locker != nil {
		unlock, err := c.locker.Lock(ctx, name, c.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// A cancelled ctx must not strand the lock until TTL expiry.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				c.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"model", name,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// IsNotFound reports whether err means the model does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrModelNotFound)
}
