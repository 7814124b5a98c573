package app

import (
	"context"
	"fmt"
	"os"
	"sync"

	"socialconnect/internal/auth"
	"socialconnect/internal/db"
	"socialconnect/internal/delay"
	"socialconnect/internal/feed"
	"socialconnect/internal/models"
	"socialconnect/internal/repository"
	"socialconnect/internal/seed"
	"socialconnect/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// App is the process-wide state: one store, one repository and the two
// managers built on it. The session drives the feed: logging in loads the
// user's posts, logging out clears them.
type App struct {
	Cfg      Config
	Log      *zap.Logger
	Store    storage.Store
	Repo     *repository.Repository
	Session  *auth.Manager
	Feed     *feed.Manager
	Registry *prometheus.Registry

	mu       sync.Mutex
	ctx      context.Context
	feedTask *delay.Task
}

func New(cfg Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	store, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	reg := prometheus.NewRegistry()
	repo := repository.New(
		storage.WithQuota(store, cfg.CapacityBytes, repository.KeyPrefix),
		repository.WithLogger(log),
		repository.WithMetrics(repository.NewMetrics(reg)),
		repository.WithCapacity(cfg.CapacityBytes),
	)

	a := &App{
		Cfg:      cfg,
		Log:      log,
		Store:    store,
		Repo:     repo,
		Registry: reg,
		ctx:      context.Background(),
		Session: auth.NewManager(repo,
			auth.WithLogger(log),
			auth.WithDelays(cfg.RestoreDelay, cfg.LoginDelay),
		),
		Feed: feed.New(repo,
			feed.WithLogger(log),
			feed.WithSeeds(SeedProvider(cfg)),
			feed.WithSeedDelay(cfg.SeedDelay),
		),
	}
	a.Session.Subscribe(a.onSession)
	return a, nil
}

// OpenStore builds the configured backend.
func OpenStore(cfg Config) (storage.Store, error) {
	switch cfg.Store {
	case StoreMemory:
		return storage.NewMemory(), nil
	case StoreSQLite, StorePostgres:
		driver := db.DriverSQLite
		if cfg.Store == StorePostgres {
			driver = db.DriverPostgres
		}
		d, err := db.Open(driver, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(d, driver); err != nil {
			d.Close()
			return nil, err
		}
		return storage.NewSQL(d), nil
	case StoreRedis:
		r := storage.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.OpTimeout)
		defer cancel()
		if err := r.Ping(ctx); err != nil {
			r.Close()
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("app: unknown store %q", cfg.Store)
	}
}

// SeedProvider returns the first-load dataset for cfg, or nil for none.
func SeedProvider(cfg Config) seed.Provider {
	switch cfg.Seed {
	case SeedFake:
		return seed.Fake{Count: cfg.SeedCount, Seed: cfg.SeedValue}
	case SeedNone:
		return nil
	default:
		return seed.Sample{}
	}
}

func (a *App) onSession(state auth.State, u *models.User) {
	a.mu.Lock()
	ctx := a.ctx
	a.mu.Unlock()

	var t *delay.Task
	switch state {
	case auth.StateAuthenticated:
		t = a.Feed.SetUser(ctx, u)
	case auth.StateAnonymous:
		t = a.Feed.SetUser(ctx, nil)
	default:
		return
	}
	a.mu.Lock()
	a.feedTask = t
	a.mu.Unlock()
}

// Start restores the saved session. ctx bounds every load the session
// triggers afterwards.
func (a *App) Start(ctx context.Context) *delay.Task {
	a.mu.Lock()
	a.ctx = ctx
	a.mu.Unlock()
	return a.Session.Start(ctx)
}

// Ready waits for the session restore and the feed load it triggered.
func (a *App) Ready(ctx context.Context, session *delay.Task) error {
	if err := session.Wait(ctx); err != nil {
		return err
	}
	return a.WaitFeed(ctx)
}

// WaitFeed waits for the most recent feed load. A load that failed leaves
// the feed empty and is only logged, so commands that repair the store
// still run; ctx errors are returned.
func (a *App) WaitFeed(ctx context.Context) error {
	a.mu.Lock()
	t := a.feedTask
	a.mu.Unlock()
	if t == nil {
		return nil
	}
	err := t.Wait(ctx)
	if err != nil && ctx.Err() == nil {
		a.Log.Warn("feed load failed", zap.Error(err))
		return nil
	}
	return err
}

// ClearAll deletes every stored record and drops the in-memory session and
// feed with it.
func (a *App) ClearAll(ctx context.Context) error {
	err := a.Repo.ClearAll(ctx)
	a.Session.Reset()
	// Reset notifies the feed already; this covers a session that was
	// still anonymous.
	a.Feed.SetUser(ctx, nil)
	return err
}

// Close cancels pending work and releases the store.
func (a *App) Close() error {
	a.Session.Close()
	a.Feed.Close()
	return a.Store.Close()
}

// Must exits on startup errors that happen before logging is set up.
func Must(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "socialconnect:", err)
		os.Exit(1)
	}
}
