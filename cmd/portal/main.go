package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/adapters/his"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/ai"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/audit"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/auth"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/narration"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/notification"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/portal"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/privacy"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/remote"
	sharedauth "github.com/kushagraameta123/RETINALAI-sub000/internal/shared/auth"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/config"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/database"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/events"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/logger"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/metrics"
	secmiddleware "github.com/kushagraameta123/RETINALAI-sub000/internal/shared/middleware"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/simulation"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/store"
)

// App holds the long-lived application dependencies.
type App struct {
	Config     *config.Config
	Log        *zap.Logger
	Store      *store.Store
	Bus        *events.LocalBus
	KurrentBus *events.KurrentBus
	DB         *database.DB
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "retinal-portal")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	app := &App{Config: cfg, Log: log}

	// Event bus: always the in-process bus; with KurrentDB enabled every
	// event is mirrored to the durable store as well.
	app.Bus = events.NewLocalBus(log)
	var bus events.EventBus = app.Bus
	if cfg.KurrentDB.Enabled {
		kb, err := events.NewKurrentBus(ctx, cfg.KurrentDB, log)
		if err != nil {
			log.Warn("kurrentdb not available, running without the durable event mirror", zap.Error(err))
		} else {
			app.KurrentBus = kb
			defer kb.Close()
			bus = events.Tee(app.Bus, kb)
			log.Info("kurrentdb event mirror enabled")
		}
	}

	// Store substrate.
	kv, err := buildKV(cfg.Store)
	if err != nil {
		log.Fatal("failed to open store substrate", zap.Error(err))
	}
	app.Store = store.New(kv, bus, log)
	if cfg.Store.SeedOnInit {
		if err := app.Store.Initialize(ctx); err != nil {
			log.Fatal("failed to initialize store", zap.Error(err))
		}
	}

	// Remote backend mirror (optional).
	if cfg.Remote.Enabled {
		db, err := database.New(ctx, cfg.Remote)
		if err != nil {
			log.Warn("remote backend not available", zap.Error(err))
		} else {
			app.DB = db
			defer db.Close()
			if err := database.Migrate(ctx, db.Pool); err != nil {
				log.Warn("remote migration failed", zap.Error(err))
			}

			// Two-way sync: store mutations upsert into portal_rows, and
			// rows edited by other writers come back as remote.* events.
			rows := remote.NewRowStore(db.Pool)
			feed := remote.NewChangeFeed(rows, time.Duration(cfg.Remote.PollIntervalSec)*time.Second, log)
			mirror := remote.NewMirror(rows, feed, app.Bus, log)
			if err := mirror.Start(ctx); err != nil {
				log.Warn("remote mirror failed to start", zap.Error(err))
			} else {
				defer mirror.Stop()
				log.Info("remote mirror started")
			}
		}
	}

	// Audit trail: durable when KurrentDB is up, in-memory otherwise.
	var auditRepo audit.Repository
	if app.KurrentBus != nil {
		auditRepo = audit.NewKurrentRepository(app.KurrentBus.Client())
	} else {
		auditRepo = audit.NewMemoryRepository()
	}
	if err := auditRepo.Initialize(ctx); err != nil {
		log.Warn("audit initialization failed", zap.Error(err))
	}
	auditSubscriber := audit.NewSubscriber(auditRepo, app.Bus)
	if err := auditSubscriber.Start(ctx); err != nil {
		log.Warn("audit subscriber failed to start", zap.Error(err))
	}

	// Notification center.
	notifier := notification.NewService(nil, nil, notification.DefaultServiceConfig(), log)
	if err := notifier.Start(ctx); err != nil {
		log.Fatal("failed to start notification service", zap.Error(err))
	}
	defer notifier.Stop()
	bridge := notification.NewBridge(notifier, app.Store, app.Bus, log)
	if err := bridge.Start(ctx); err != nil {
		log.Warn("notification bridge failed to start", zap.Error(err))
	}

	// Hospital imaging system importer (optional).
	if cfg.HIS.Enabled {
		importer := his.New(cfg.HIS, app.Store, log)
		if err := importer.Start(ctx); err != nil {
			log.Warn("imaging system importer failed to start", zap.Error(err))
		} else {
			defer importer.Stop(ctx)
			log.Info("imaging system importer started")
		}
	}

	// Narration. The logging engine keeps the flow exercisable on hosts with
	// no speech stack.
	narrator, err := narration.NewNarrator(narration.NewLogEngine(log), cfg.Narration, log)
	if err != nil {
		log.Warn("speech engine unsupported, narration routes disabled", zap.Error(err))
		narrator = nil
	}

	// Simulated analysis runner.
	runner := simulation.NewRunner(bus, 0, log)
	defer runner.Shutdown()

	guard := privacy.NewGuard(cfg.Privacy, log)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(secmiddleware.MaxBodySize(1 << 20))
	r.Use(secmiddleware.RateLimiter(50, 100))
	r.Use(secmiddleware.CORS([]string{"*"}))
	r.Use(metrics.Middleware)
	r.Use(guard.Middleware)

	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(app))
	r.Handle("/metrics", metrics.Handler())
	r.Get("/", infoHandler)

	r.Route("/api/v1", func(r chi.Router) {
		// Sign-in is backed by the remote mirror; without it the portal runs
		// with externally issued tokens only.
		if app.DB != nil {
			authClient := remote.NewAuthClient(app.DB.Pool, time.Duration(cfg.Auth.SessionTTLMinutes)*time.Minute, log)
			authService := auth.NewService(authClient, cfg.Auth, log).WithBus(bus)
			authHandler := auth.NewHandler(authService)
			r.Mount("/auth", authHandler.Routes())
			r.With(sharedauth.Middleware(cfg.Auth)).Mount("/session", authHandler.ProtectedRoutes())
		}

		r.Group(func(r chi.Router) {
			r.Use(sharedauth.Middleware(cfg.Auth))

			r.Mount("/portal", portal.NewHandler(app.Store, narrator).Routes())
			r.Mount("/analysis", simulation.NewHandler(runner).Routes())
			r.Mount("/audit", audit.NewHandler(auditRepo).Routes())

			if cfg.AI.Enabled {
				aiClient := ai.NewClient(cfg.AI, log)
				r.Mount("/ai", ai.NewHandler(aiClient, app.Store).Routes())
			}
		})
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", zap.Error(err))
		}
		close(done)
	}()

	log.Info("retinal portal listening",
		zap.Int("port", cfg.Server.Port),
		zap.String("env", cfg.Server.Env),
		zap.String("store_backend", cfg.Store.Backend),
		zap.Bool("remote", app.DB != nil),
		zap.Bool("kurrentdb", app.KurrentBus != nil),
		zap.Bool("his_importer", cfg.HIS.Enabled),
		zap.Bool("privacy_guard", cfg.Privacy.EnableGuard))

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("server error", zap.Error(err))
	}

	<-done
	log.Info("server stopped")
}

// buildKV opens the configured store substrate.
func buildKV(cfg config.StoreConfig) (store.KV, error) {
	switch cfg.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("redis substrate unreachable: %w", err)
		}
		return store.NewRedisKV(client), nil
	default:
		return store.NewFileKV(cfg.DataDir)
	}
}

func infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":    "RetinalAI Portal",
		"version": "1.0.0",
		"docs":    "/api/v1",
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

func readyHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{"server": "ready"}

		if app.DB != nil {
			if err := app.DB.Health(r.Context()); err != nil {
				checks["remote"] = "not ready: " + err.Error()
			} else {
				checks["remote"] = "ready"
			}
		} else {
			checks["remote"] = "not configured"
		}

		if app.KurrentBus != nil {
			if err := app.KurrentBus.Health(); err != nil {
				checks["kurrentdb"] = "not ready: " + err.Error()
			} else {
				checks["kurrentdb"] = "ready"
			}
		} else {
			checks["kurrentdb"] = "not configured"
		}

		allReady := true
		for _, status := range checks {
			if status != "ready" && status != "not configured" {
				allReady = false
				break
			}
		}

		status := http.StatusOK
		if !allReady {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"status": map[bool]string{true: "ready", false: "not ready"}[allReady],
			"checks": checks,
		})
	}
}
