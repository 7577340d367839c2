package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/database"
	"github.com/iliyamo/cinema-ticketing/internal/handler"
	"github.com/iliyamo/cinema-ticketing/internal/jobs"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
	"github.com/iliyamo/cinema-ticketing/internal/repository/mysql"
	"github.com/iliyamo/cinema-ticketing/internal/router"
	"github.com/iliyamo/cinema-ticketing/internal/service"
	"github.com/iliyamo/cinema-ticketing/internal/utils"
)

func logLevel(s string) log.Lvl {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return log.DEBUG
	case "WARN":
		return log.WARN
	case "ERROR":
		return log.ERROR
	}
	return log.INFO
}

func main() {
	cfg := config.Load()

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(logLevel(cfg.LogLevel))
	e.Validator = handler.NewValidator()
	// X-Forwarded-For is honoured only when the peer is loopback, link-local
	// or a private network address.
	e.IPExtractor = echo.ExtractIPFromXFFHeader()
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg)
	if err != nil {
		e.Logger.Fatalf("db connection failed: %v", err)
	}
	defer db.Close()

	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = database.Migrate(migrateCtx, db)
	cancel()
	if err != nil {
		e.Logger.Fatalf("migration failed: %v", err)
	}

	repos := mysql.NewRepositories(db)

	rdb := config.NewRedisClient()
	if rdb == nil {
		e.Logger.Warn("redis unavailable: rate limiting and response caching disabled")
	} else {
		defer rdb.Close()
	}

	codec := utils.NewTokenCodec(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	auth := service.NewAuthService(repos.User, repos.Session, codec, utils.BcryptHasher{Cost: cfg.BcryptCost})

	seedCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	seed(seedCtx, e.Logger, auth, cfg.AdminUsername, cfg.AdminPassword, model.RoleAdmin, model.RoleUser)
	seed(seedCtx, e.Logger, auth, cfg.UserUsername, cfg.UserPassword, model.RoleUser)
	cancel()

	var events service.EventPublisher
	if cfg.TicketEventsEnabled {
		pub := queue.NewPublisher(cfg.AMQPURL, e.Logger)
		defer pub.Close()
		async := queue.NewAsyncPublisher(pub, e.Logger, 0)
		defer async.Close()
		events = async

		consumer := &queue.Consumer{URL: cfg.AMQPURL, LogDir: cfg.TicketLogDir, Logger: e.Logger}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				e.Logger.Errorf("ticket event consumer stopped: %v", err)
			}
		}()
	}
	inventory := service.NewInventoryService(repos.Inventory, events)

	jobs.StartSessionSweepJob(ctx, cfg.SessionSweepInterval, auth, e.Logger)

	router.Register(e, router.Deps{
		Auth:      handler.NewAuthHandler(auth),
		Catalog:   handler.NewCatalogHandler(repos, inventory),
		Tickets:   handler.NewTicketHandler(repos.Ticket, inventory),
		Tokens:    codec,
		DB:        db,
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
	})

	addr := ":" + cfg.Port
	go func() {
		e.Logger.Infof("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Errorf("shutdown error: %v", err)
	}
}

// seed creates an account from configuration.  A blank username skips it.
func seed(ctx context.Context, logger echo.Logger, auth *service.AuthService, username, password string, roles ...model.Role) {
	if strings.TrimSpace(username) == "" {
		return
	}
	created, err := auth.EnsureUser(ctx, username, password, roles...)
	if err != nil {
		logger.Errorf("seed %s: %v", username, err)
		return
	}
	if created {
		logger.Infof("seeded account %s", username)
	}
}
