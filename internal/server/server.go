// Package server assembles the storefront from a Config and runs it.
//
//	app, err := server.Boot(ctx, cfg)
//	defer app.Close()
//	err = app.Serve(ctx) // HTTP + gRPC + queue + scheduler until ctx ends
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/storefront-go/storefront/app/controllers"
	"github.com/storefront-go/storefront/app/jobs"
	"github.com/storefront-go/storefront/app/repositories"
	"github.com/storefront-go/storefront/app/routes"
	"github.com/storefront-go/storefront/app/services"
	"github.com/storefront-go/storefront/config"
	"github.com/storefront-go/storefront/internal/kernel"
	"github.com/storefront-go/storefront/pkg/audit"
	"github.com/storefront-go/storefront/pkg/auth"
	"github.com/storefront-go/storefront/pkg/cache"
	"github.com/storefront-go/storefront/pkg/database"
	"github.com/storefront-go/storefront/pkg/event"
	grpcserver "github.com/storefront-go/storefront/pkg/grpc"
	"github.com/storefront-go/storefront/pkg/logger"
	"github.com/storefront-go/storefront/pkg/mail"
	"github.com/storefront-go/storefront/pkg/migration"
	"github.com/storefront-go/storefront/pkg/queue"
	"github.com/storefront-go/storefront/pkg/router"
	"github.com/storefront-go/storefront/pkg/schedule"
	"github.com/storefront-go/storefront/pkg/storage"
	"github.com/storefront-go/storefront/pkg/ws"
)

const shutdownTimeout = 15 * time.Second

// App holds every long-lived component. Nil Cache and Audit mean Redis and
// MongoDB are not configured.
type App struct {
	Config *config.Config
	DB     *gorm.DB
	Cache  *cache.Store
	Disk   storage.Disk
	Mailer mail.Sender
	Queue  *queue.Manager
	Events *event.Bus
	Hub    *ws.Hub
	Audit  *audit.Sink
	Issuer *auth.Issuer

	Auth    *services.AuthService
	Users   *services.UserService
	Catalog *services.CatalogService
	Sales   *services.SaleService
	Sweeper *jobs.Sweeper

	redisQueue *queue.RedisDriver
}

// Boot opens every backend named by cfg and wires the services. On error
// whatever was already opened is closed.
func Boot(ctx context.Context, cfg *config.Config) (app *App, err error) {
	a := &App{Config: cfg, Events: event.NewBus(), Issuer: auth.NewIssuer(cfg.JWT)}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if a.DB, err = database.Open(cfg.Database); err != nil {
		return nil, err
	}

	if cfg.Redis.Enabled() {
		if a.Cache, err = cache.Connect(ctx, cfg.Redis); err != nil {
			return nil, err
		}
	}

	if a.Disk, err = storage.New(ctx, cfg.Storage); err != nil {
		return nil, err
	}

	var smtp *mail.SMTPSender
	if cfg.Mail.Driver == "smtp" {
		smtp = mail.NewSMTPSender(cfg.Mail)
	}
	a.Mailer = mail.New(cfg.Mail.Driver, smtp)

	if a.Audit, err = audit.Connect(ctx, cfg.Audit); err != nil {
		return nil, err
	}

	var driver queue.Driver = queue.NewMemoryDriver()
	if cfg.Queue.Driver == "redis" {
		if a.Cache == nil {
			return nil, errors.New("server: QUEUE_DRIVER=redis requires REDIS_ADDR")
		}
		a.redisQueue = queue.NewRedisDriver(a.Cache.Client())
		driver = a.redisQueue
	}
	a.Queue = queue.NewManager(driver,
		queue.WithMaxRetry(cfg.Queue.MaxRetry),
		queue.WithFailedJobStore(a.DB),
	)

	a.Hub = ws.NewHub(cfg.HTTP.CORSOrigins)
	a.Events.Listen(services.EventSaleStatus, func(p any) { a.Hub.Publish(p) })

	users := repositories.NewUserRepository(a.DB)
	sales := repositories.NewSaleRepository(a.DB)
	products := repositories.NewProductRepository(a.DB)

	a.Auth = services.NewAuthService(users, a.Issuer)
	a.Users = services.NewUserService(users)
	a.Catalog = services.NewCatalogService(repositories.NewCategoryRepository(a.DB), products, a.Cache)
	a.Sales = services.NewSaleService(cfg, sales, products, a.Disk, a.Mailer,
		services.WithEvents(a.Events),
		services.WithAudit(a.Audit),
	)
	a.Sweeper = jobs.NewSweeper(sales, a.Queue, cfg.Sales)
	jobs.Register(a.Queue, a.Sales)

	return a, nil
}

// Close releases every backend. Safe on a partially booted App.
func (a *App) Close() error {
	var errs []error
	if err := a.Audit.Close(); err != nil {
		errs = append(errs, fmt.Errorf("audit: %w", err))
	}
	if err := a.Cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("cache: %w", err))
	}
	if a.DB != nil {
		if err := database.Close(a.DB); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	return errors.Join(errs...)
}

// ─── Assembly ─────────────────────────────────────────────────────────────────

// Kernel builds the HTTP handler with every API route.
func (a *App) Kernel() (*kernel.HTTPKernel, error) {
	return kernel.NewHTTPKernel(a.Config.HTTP, func(r *router.Router) error {
		return routes.RegisterAPI(r, routes.Deps{
			Issuer:  a.Issuer,
			Auth:    a.Auth,
			Users:   a.Users,
			Catalog: a.Catalog,
			Sales:   a.Sales,
			Disk:    a.Disk,
			Hub:     a.Hub,
			Probes:  a.probes(),
		})
	})
}

// Scheduler registers the periodic tasks.
func (a *App) Scheduler() (*schedule.Scheduler, error) {
	s := schedule.New()
	if err := s.Cron(a.Config.Sales.SweepSpec).Name(jobs.SweepName).WithoutOverlapping().Run(a.Sweeper.Run); err != nil {
		return nil, err
	}
	err := s.Every(time.Hour).Name("audit.dropped").Run(func(ctx context.Context) error {
		if n := a.Audit.Dropped(); n > 0 {
			logger.WithCtx(ctx).Warn("audit: entries dropped", "count", n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Migrate applies pending migrations.
func (a *App) Migrate(ctx context.Context) error {
	ran, err := migration.New(a.DB).Run(ctx)
	if err != nil && !errors.Is(err, migration.ErrNoMigrations) {
		return err
	}
	if len(ran) > 0 {
		logger.Info("migrations applied", "count", len(ran))
	}
	return nil
}

func (a *App) probes() map[string]controllers.Probe {
	p := map[string]controllers.Probe{
		"database": func(ctx context.Context) error { return database.Ping(ctx, a.DB) },
	}
	if a.Cache != nil {
		p["redis"] = func(ctx context.Context) error { return a.Cache.Client().Ping(ctx).Err() }
	}
	return p
}

// ─── Lifecycle ────────────────────────────────────────────────────────────────

// StartWorkers runs the queue pool, and the delayed-job promoter when the
// queue lives in Redis, until ctx ends.
func (a *App) StartWorkers(ctx context.Context) error {
	if a.redisQueue != nil {
		go a.redisQueue.PromoteDelayed(ctx)
	}
	return a.Queue.Start(ctx, a.Config.Queue.Workers)
}

// Serve migrates, bootstraps the administrator and runs HTTP, gRPC, the
// queue workers, the WebSocket hub and the scheduler until ctx ends.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.Migrate(ctx); err != nil {
		return err
	}
	if _, err := a.Users.EnsureAdmin(ctx, a.Config.Admin); err != nil {
		return fmt.Errorf("server: bootstrap admin: %w", err)
	}

	k, err := a.Kernel()
	if err != nil {
		return err
	}
	sched, err := a.Scheduler()
	if err != nil {
		return err
	}

	go a.Hub.Run(ctx)
	go k.Limiter.Evict(ctx)
	if err := a.StartWorkers(ctx); err != nil {
		return err
	}
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		sched.Start(ctx)
	}()

	grpcSrv, err := grpcserver.Start(":"+a.Config.GRPC.Port, func(ctx context.Context) error {
		return database.Ping(ctx, a.DB)
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + a.Config.App.Port,
		Handler:           k.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("storefront HTTP server starting", "addr", srv.Addr, "env", a.Config.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}

	logger.Info("shutting down")
	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Error("http: shutdown", "error", serr)
	}
	grpcSrv.Stop()
	<-schedDone
	a.Queue.Wait()
	return err
}
