package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"taskReminder/internal/clock"
	"taskReminder/internal/config"
	"taskReminder/internal/email"
	"taskReminder/internal/handlers"
	"taskReminder/internal/kvstore"
	"taskReminder/internal/logger"
	"taskReminder/internal/metrics"
	"taskReminder/internal/middleware"
	"taskReminder/internal/migrations"
	"taskReminder/internal/notify"
	"taskReminder/internal/pagecache"
	"taskReminder/internal/reminder"
	"taskReminder/internal/repository/inmemory"
	"taskReminder/internal/repository/postgres"
	"taskReminder/internal/repository/sqlite"
	"taskReminder/internal/service"
	"taskReminder/internal/worker"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/spf13/afero"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type repositories struct {
	tasks       service.TaskRepository
	subscribers service.SubscriberRepository
	settings    service.SettingsRepository
}

type App struct {
	config *config.Config
	loc    *time.Location
	clock  clock.Clock
	server *http.Server
	router *chi.Mux

	repos       repositories
	store       kvstore.Store
	tasks       *service.TaskService
	subscribers *service.SubscriberService
	worker      *worker.NotificationWorker
	scheduler   *reminder.Scheduler
	runner      *reminder.Runner
	inbox       *notify.Inbox
	relay       *notify.Relay
	cache       *pagecache.Cache

	closeStreams context.CancelFunc
	shutdowns    []func() // run in reverse order on shutdown
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

// Init builds every component. On error the parts already opened are closed.
func (a *App) Init(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			a.shutdown()
		}
	}()

	a.loc, err = a.config.Location()
	if err != nil {
		return err
	}
	a.clock = clock.New(a.loc)

	if err := a.initStorage(ctx); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := a.initKVStore(ctx); err != nil {
		return fmt.Errorf("key/value store: %w", err)
	}
	if err := a.initServices(ctx); err != nil {
		return err
	}
	a.initPageCache(ctx)
	a.initRouter()

	a.server = &http.Server{
		Addr:              a.config.GetServerAddr(),
		Handler:           otelhttp.NewHandler(a.router, "tugas-x1"),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	a.server.RegisterOnShutdown(a.closeStreams)

	logger.Info("App: initialized",
		zap.String("database", a.config.Database.Type),
		zap.String("storage", a.config.Storage.Type),
		zap.String("timezone", a.loc.String()))
	return nil
}

func (a *App) initStorage(ctx context.Context) error {
	db := a.config.Database
	switch db.Type {
	case "postgres":
		if db.Migrate {
			if err := migrations.Up(db.URL); err != nil {
				return err
			}
		}
		storage, err := postgres.New(ctx, db.URL, postgres.PoolOptions{
			MaxConns:        db.MaxConnections,
			MinConns:        db.MinConnections,
			MaxConnIdleTime: db.IdleTimeout,
		})
		if err != nil {
			return err
		}
		a.shutdowns = append(a.shutdowns, func() {
			logger.Info("App: closing postgres pool")
			storage.Close()
		})
		a.repos = repositories{tasks: storage.Tasks(), subscribers: storage.Subscribers(), settings: storage.Settings()}

	case "sqlite":
		storage, err := sqlite.New(db.SQLitePath)
		if err != nil {
			return err
		}
		a.shutdowns = append(a.shutdowns, func() {
			logger.Info("App: closing sqlite")
			if err := storage.Close(); err != nil {
				logger.Error("App: sqlite close failed", err)
			}
		})
		a.repos = repositories{tasks: storage.Tasks(), subscribers: storage.Subscribers(), settings: storage.Settings()}

	default:
		logger.Warn("App: using in-memory storage, data is lost on restart")
		a.repos = repositories{
			tasks:       inmemory.NewTaskStorage(),
			subscribers: inmemory.NewSubscriberStorage(),
			settings:    inmemory.NewSettingsStorage(),
		}
	}
	return nil
}

func (a *App) initKVStore(ctx context.Context) error {
	st := a.config.Storage
	switch st.Type {
	case "redis":
		store, err := kvstore.NewRedis(ctx, st.RedisURL, st.Prefix)
		if err != nil {
			return err
		}
		a.shutdowns = append(a.shutdowns, func() {
			if err := store.Close(); err != nil {
				logger.Error("App: redis close failed", err)
			}
		})
		a.store = store
	case "file":
		store, err := kvstore.NewFile(afero.NewOsFs(), st.FilePath)
		if err != nil {
			return err
		}
		a.store = store
	default:
		a.store = kvstore.NewMemory()
	}
	return nil
}

func (a *App) initServices(ctx context.Context) error {
	cfg := a.config

	mailer := email.NewClient(email.Options{
		Endpoint:               cfg.Email.Endpoint,
		ServiceID:              cfg.Email.ServiceID,
		PublicKey:              cfg.Email.PublicKey,
		PrivateKey:             cfg.Email.PrivateKey,
		VerificationTemplateID: cfg.Email.VerificationTemplateID,
		NewTaskTemplateID:      cfg.Email.NewTaskTemplateID,
		ReminderTemplateID:     cfg.Email.ReminderTemplateID,
		Timeout:                cfg.Email.Timeout,
		AppName:                cfg.App.Name,
		AppURL:                 cfg.App.URL,
		Location:               a.loc,
	}, a.clock)

	a.worker = worker.NewNotificationWorker(worker.Options{
		QueueSize:       cfg.Worker.QueueSize,
		MaxRetries:      cfg.Worker.MaxRetries,
		InitialInterval: cfg.Worker.InitialInterval,
		JobTimeout:      cfg.Worker.JobTimeout,
	})

	a.subscribers = service.NewSubscriberService(a.repos.subscribers, a.repos.tasks, mailer, a.clock)
	a.tasks = service.NewTaskService(a.repos.tasks, a.repos.settings,
		service.WithClock(a.clock),
		service.WithNewTaskFanOut(a.worker, a.subscribers),
	)

	if cfg.App.PIN != "" {
		if err := a.tasks.SetPin(ctx, cfg.App.PIN); err != nil {
			return fmt.Errorf("seeding pin: %w", err)
		}
		logger.Info("App: PIN seeded from config")
	}

	a.inbox = notify.NewInbox(cfg.Notifications.InboxSize)
	a.relay = notify.NewRelay(a.inbox, cfg.Notifications.HandshakeTimeout)

	a.scheduler = reminder.NewScheduler(a.tasks, a.subscribers, a.relay, a.store, a.clock, reminder.Options{
		FireHour:   cfg.Reminder.FireHour,
		FireMinute: cfg.Reminder.FireMinute,
		Location:   a.loc,
	})
	a.runner = reminder.NewRunner(a.scheduler, cfg.Reminder.Interval, cfg.Reminder.RunTimeout, a.loc)
	return nil
}

// initPageCache precaches the static routes. A failed install leaves the site served straight from disk.
func (a *App) initPageCache(ctx context.Context) {
	cfg := a.config.Cache
	static := afero.NewReadOnlyFs(afero.NewBasePathFs(afero.NewOsFs(), cfg.StaticDir))
	a.cache = pagecache.New(a.store, static, cfg.Version, cfg.Routes)
	if !cfg.Enabled {
		return
	}

	if err := a.cache.Install(ctx); err != nil {
		logger.Warn("App: page cache install failed, serving from disk", zap.Error(err))
		return
	}
	if err := a.cache.Activate(ctx); err != nil {
		logger.Warn("App: page cache activation failed", zap.Error(err))
	}
}

func (a *App) initRouter() {
	cfg := a.config

	streams, closeStreams := context.WithCancel(context.Background())
	a.closeStreams = closeStreams

	taskHandler := handlers.NewTaskHandler(a.tasks, a.runner, a.loc)
	subscriberHandler := handlers.NewSubscriberHandler(a.subscribers)
	notificationHandler := handlers.NewNotificationHandler(a.relay, a.relay, a.inbox, a.scheduler)
	notificationHandler.Closing = streams.Done()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Metrics)
	r.Use(middleware.Logging)
	r.Use(middleware.RateLimit(cfg.Server.RateLimit))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Pin", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", taskHandler.HealthCheck)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		// long-lived, so outside the request timeout
		r.Get("/notifications/stream", notificationHandler.Stream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", taskHandler.ListTasks)         // GET /api/tasks
				r.Post("/", taskHandler.CreateTask)       // POST /api/tasks
				r.Delete("/{id}", taskHandler.DeleteTask) // DELETE /api/tasks/{id}
			})
			r.Post("/pin/verify", taskHandler.VerifyPin)

			r.Route("/subscribers", func(r chi.Router) {
				r.Post("/", subscriberHandler.Subscribe)
				r.Get("/verify", subscriberHandler.Verify)
				r.Post("/test", subscriberHandler.SendTest)
			})

			r.Post("/reminders/run", notificationHandler.RunReminders)

			r.Get("/notifications", notificationHandler.Drain)
			r.Post("/notifications", notificationHandler.Show)
			r.Post("/push", notificationHandler.Push)
		})
	})

	r.With(a.cache.Middleware).Get("/*", a.cache.FileServer().ServeHTTP)

	a.router = r
}

// Handler exposes the router, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.router
}

// Run serves HTTP and runs the background worker and reminder runner until ctx is done.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("App: server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.worker.Start(gctx)
		return nil
	})

	g.Go(func() error {
		return a.runner.Start(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("App: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()
	a.shutdown()
	return err
}

func (a *App) shutdown() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
	a.shutdowns = nil
}
