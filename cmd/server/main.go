package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"boardtalk/infrastructure/blob"
	"boardtalk/infrastructure/cache"
	"boardtalk/infrastructure/db"
	"boardtalk/infrastructure/ws"
	"boardtalk/internal/config"
	httpHandler "boardtalk/internal/delivery/http"
	"boardtalk/internal/delivery/websocket"
	"boardtalk/internal/entity"
	"boardtalk/internal/repository"
	"boardtalk/internal/usecase"
	"boardtalk/pkg/jwt"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("godotenv: no .env file loaded")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config.Load()); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	mongoDb, err := db.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return err
	}
	defer mongoDb.Close(context.Background())
	log.Println("Connected to MongoDB")

	if err := mongoDb.EnsureIndexes(ctx); err != nil {
		return err
	}

	userCache := cache.NewMemCache[entity.User](cfg.UserCacheTTL, time.Minute)
	defer userCache.Close()

	// Initialize repositories
	userRepo := repository.NewCachedUserRepository(repository.NewUserRepository(*mongoDb.DB), userCache)
	messageRepo := repository.NewMessageRepository(*mongoDb.DB)
	notificationRepo := repository.NewNotificationRepository(*mongoDb.DB)
	cardRepo := repository.NewCardRepository(*mongoDb.DB)
	memberRepo := repository.NewMemberRepository(*mongoDb.DB)

	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		jwtSecret = "your-secret-key-change-this-in-production"
		log.Println("Warning: Using default JWT secret. Set JWT_SECRET in .env for production")
	}
	jwtManager := jwt.NewJWTManager(jwtSecret, cfg.AccessTTL)

	hub, err := newHub(ctx, cfg)
	if err != nil {
		return err
	}
	go hub.Run()
	defer hub.Close()

	var files usecase.FileStore
	if cfg.MinioEndpoint != "" {
		store, err := blob.NewMinioStore(ctx, blob.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return err
		}
		files = store
		log.Printf("Attachments stored in bucket %s", cfg.MinioBucket)
	} else {
		log.Println("MINIO_ENDPOINT not set, attachments disabled")
	}

	if cfg.CronSecret == "" {
		log.Println("Warning: CRON_SECRET not set, deadline checks will be rejected")
	}

	// Initialize use cases
	authUc := usecase.NewAuthUsecase(userRepo, jwtManager)
	userUc := usecase.NewUserUseCase(userRepo)
	messageUc := usecase.NewMessageUseCase(userRepo, messageRepo, notificationRepo, hub, files)
	notificationUc := usecase.NewNotificationUseCase(notificationRepo, hub)
	deadlineUc := usecase.NewDeadlineUseCase(cardRepo, memberRepo, notificationRepo, hub, cfg.DeadlineLocation)

	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(httpHandler.CORS(cfg.CORSOrigin))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := mongoDb.Ping(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	httpHandler.MapHttpRoutes(router, httpHandler.Handlers{
		Http:           httpHandler.NewHttpHandler(messageUc, notificationUc, userUc, cfg.MaxUploadBytes),
		Auth:           httpHandler.NewAuthHandler(authUc),
		Cron:           httpHandler.NewCronHandler(deadlineUc, cfg.CronSecret),
		Websocket:      websocket.NewWebsocketHandler(hub, authUc, messageUc),
		AuthMiddleware: httpHandler.NewAuthMiddleware(authUc),
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP server is running on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newHub(ctx context.Context, cfg config.Config) (ws.IHub, error) {
	if cfg.RedisURL == "" {
		log.Println("Using in-memory hub (single server)")
		return ws.NewHub(), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}

	log.Printf("Using Redis hub at %s with server ID: %s", opts.Addr, cfg.ServerID)
	return ws.NewRedisHub(ctx, redis.NewClient(opts), cfg.ServerID)
}
