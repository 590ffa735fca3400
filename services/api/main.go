package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/chatwire/internal/config"
	"github.com/chatwire/internal/event"
	"github.com/chatwire/internal/handler"
	"github.com/chatwire/internal/logger"
	"github.com/chatwire/internal/middleware"
	"github.com/chatwire/internal/presence"
	"github.com/chatwire/internal/push"
	"github.com/chatwire/internal/repository"
	"github.com/chatwire/internal/service"
	"github.com/chatwire/internal/startup"
	"github.com/chatwire/internal/ws"
	"github.com/chatwire/migrations"
)

func main() {
	logger.SetPrefix("api")
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	dev := flag.Bool("dev", false, "start with embedded PostgreSQL and in-memory presence (no external services required)")
	flag.Parse()

	logger.Info("starting API service")
	cfg := config.Load()

	var embeddedDB *embeddedpostgres.EmbeddedPostgres
	if *dev {
		var err error
		embeddedDB, err = startEmbeddedPostgres(cfg)
		if err != nil {
			logger.Errorf("embedded postgres: %v", err)
			os.Exit(1)
		}
		defer func() {
			logger.Info("stopping embedded postgres...")
			if err := embeddedDB.Stop(); err != nil {
				logger.Errorf("embedded postgres stop: %v", err)
			}
		}()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		logger.Errorf("parse db config: %v", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = int32(cfg.DBMaxConnections())
	poolCfg.MinConns = 4

	pool := startup.ConnectDBWithRetry(poolCfg, 60*time.Second)
	defer pool.Close()

	runMigrations(pool)
	if *migrate && !*dev {
		return
	}

	// Presence rows survive a crash; clear them before accepting sockets.
	resetCtx, resetCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if _, err := pool.Exec(resetCtx, "UPDATE users SET is_online = false"); err != nil {
		logger.Errorf("reset online status: %v", err)
	}
	resetCancel()
	logger.Info("database connected, migrations applied")

	userRepo := repository.NewUserRepository(pool)
	chatRepo := repository.NewChatRepository(pool)
	msgRepo := repository.NewMessageRepository(pool)
	reactRepo := repository.NewReactionRepository(pool)

	var (
		roster service.Roster
		rdb    *redis.Client
	)
	if *dev {
		roster = presence.NewMemoryRoster()
	} else {
		rdb = startup.ConnectRedisWithRetry(cfg.Redis.URL, 60*time.Second)
		defer rdb.Close()
		roster = presence.NewRedisRosterFromClient(rdb)
	}

	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		logger.Errorf("JWT_SECRET not set, using an insecure default (dev only)")
		secret = []byte("chatwire-dev-secret")
	}

	// The dispatcher publishes through the hub, the hub executes commands via
	// the services, and the services publish through the dispatcher. The
	// transport is bound last to close the cycle.
	gate := event.NewGate(chatRepo)
	dispatcher := event.NewDispatcher(gate, nil, chatRepo)

	chatSvc := service.NewChatService(chatRepo, userRepo, dispatcher)
	msgSvc := service.NewMessageService(msgRepo, chatRepo, dispatcher)
	reactSvc := service.NewReactionService(reactRepo, msgRepo, chatRepo, userRepo, dispatcher)
	presSvc := service.NewPresenceService(userRepo, chatRepo, roster, dispatcher)

	hub := ws.NewHub(msgSvc, reactSvc, presSvc, cfg.MaxWSConnections)
	dispatcher.SetTransport(hub)

	hubCtx, hubCancel := context.WithCancel(context.Background())
	var hubWg sync.WaitGroup
	hubWg.Add(2)
	go func() {
		defer hubWg.Done()
		hub.Run(hubCtx)
	}()
	go func() {
		defer hubWg.Done()
		dispatcher.Run(hubCtx)
	}()

	var pushH *handler.PushHandler
	if rdb != nil {
		keys, err := push.EnsureVAPIDKeys(cfg.VAPIDKeysFile)
		if err != nil {
			logger.Errorf("vapid keys: %v", err)
			os.Exit(1)
		}
		notifier := push.NewNotifier(rdb, keys)
		msgSvc.SetOfflinePush(push.NewMessageNotifier(notifier, chatRepo, userRepo, hub))
		pushH = handler.NewPushHandler(notifier)
	} else {
		logger.Info("push notifications disabled (no redis in dev mode)")
	}

	userH := handler.NewUserHandler(userRepo, secret)
	chatH := handler.NewChatHandler(chatSvc)
	msgH := handler.NewMessageHandler(msgSvc)
	reactH := handler.NewReactionHandler(reactSvc)
	presH := handler.NewPresenceHandler(presSvc)
	wsH := handler.NewWSHandler(hub, cfg.CORSAllowedOrigins)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(middleware.RecoverJSON)
	// Skip compression for WebSocket, otherwise the wrapped ResponseWriter
	// loses http.Hijacker and the upgrade fails with a 500.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if strings.EqualFold(req.Header.Get("Upgrade"), "websocket") {
				next.ServeHTTP(w, req)
				return
			}
			chimw.Compress(5)(next).ServeHTTP(w, req)
		})
	})
	r.Use(middleware.RequestLog)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.RateLimitAPI)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSAllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK); w.Write([]byte("ok")) })

	r.Post("/api/users", userH.Create)
	r.Post("/api/auth/token", userH.Token)
	if pushH != nil {
		r.Get("/api/push/vapid-public-key", pushH.VAPIDPublicKey)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTAuth(secret))
		r.Get("/api/users/me", userH.Me)
		r.Get("/api/users/{userID}", userH.Get)

		r.Get("/api/chats", chatH.ListChats)
		r.Post("/api/chats/private", chatH.CreatePrivateChat)
		r.Post("/api/chats/group", chatH.CreateGroupChat)
		r.Get("/api/chats/{chatID}", chatH.GetChat)
		r.Post("/api/chats/{chatID}/members", chatH.AddMember)
		r.Delete("/api/chats/{chatID}/members/{userID}", chatH.RemoveMember)
		r.Post("/api/chats/{chatID}/leave", chatH.Leave)
		r.Put("/api/chats/{chatID}/archive", chatH.SetArchived)
		r.Put("/api/chats/{chatID}/pin", chatH.SetPinned)
		r.Put("/api/chats/{chatID}/mute", chatH.SetMuted)

		r.Get("/api/chats/{chatID}/messages", msgH.List)
		r.Post("/api/chats/{chatID}/messages", msgH.Send)
		r.Post("/api/messages/forward", msgH.Forward)
		r.Delete("/api/messages/{messageID}", msgH.Delete)

		r.Post("/api/messages/{messageID}/reactions", reactH.Add)
		r.Get("/api/messages/{messageID}/reactions", reactH.Summary)
		r.Put("/api/reactions/{reactionID}", reactH.Update)
		r.Delete("/api/reactions/{reactionID}", reactH.Remove)

		r.Get("/api/presence/online", presH.Online)

		if pushH != nil {
			r.Post("/api/push/subscribe", pushH.Subscribe)
			r.Delete("/api/push/subscribe", pushH.Unsubscribe)
		}

		r.Get("/ws", wsH.ServeWS)
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	var srvWg sync.WaitGroup
	errCh := make(chan error, 1)
	srvWg.Add(1)
	go func() {
		defer srvWg.Done()
		logger.Infof("server listening on %s", cfg.ServerAddr)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Errorf("server error: %v", err)
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	logger.Info("server stopped accepting connections")
	hubCancel()
	hubWg.Wait()
	logger.Info("hub and dispatcher stopped")
	srvWg.Wait()
	logger.Info("server goroutine exited")
}

func runMigrations(pool *pgxpool.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entries, err := migrations.Files.ReadDir(".")
	if err != nil {
		logger.Errorf("read migrations: %v", err)
		os.Exit(1)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := migrations.Files.ReadFile(name)
		if err != nil {
			logger.Errorf("read migration %s: %v", name, err)
			os.Exit(1)
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			logger.Errorf("run migration %s: %v", name, err)
			os.Exit(1)
		}
	}
	logger.Info("migrations applied")
}

func startEmbeddedPostgres(cfg *config.Config) (*embeddedpostgres.EmbeddedPostgres, error) {
	const (
		port     = 5432
		user     = "chatwire"
		password = "chatwire_secret"
		database = "chatwire"
	)

	dataDir := filepath.Join(".", ".pgdata")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pgdata dir: %w", err)
	}

	db := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(port).
			Username(user).
			Password(password).
			Database(database).
			DataPath(dataDir).
			RuntimePath(filepath.Join(os.TempDir(), "embedded-pg-runtime")),
	)

	logger.Info("starting embedded PostgreSQL...")
	if err := db.Start(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	cfg.Database.URL = fmt.Sprintf(
		"postgres://%s:%s@localhost:%d/%s?sslmode=disable",
		user, password, port, database,
	)
	logger.Infof("embedded PostgreSQL running on port %d", port)
	return db, nil
}
