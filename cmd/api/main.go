package main

import (
	"context"
	"time"

	"hivechat/config"
	"hivechat/internal/handler"
	"hivechat/internal/redis"
	"hivechat/internal/server"
	"hivechat/internal/services"
	"hivechat/internal/storage"
	"hivechat/internal/store"
	"hivechat/internal/ws"
	"hivechat/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	logMode := logger.DevelopmentMode
	if cfg.AppMode == server.ReleaseMode {
		logMode = logger.ProductionMode
	}
	l := logger.New(logMode)
	logger.SetGlobalLogger(l)
	defer l.Logger.Sync()

	ctx := context.Background()

	// Pick the persistence backend
	var st store.Store
	var err error
	switch cfg.Backend {
	case config.BackendPostgres:
		st, err = store.NewPostgresStore(ctx, cfg.PostgresDSN())
	default:
		st, err = store.NewSQLiteStore(ctx, cfg.SQLitePath)
	}
	if err != nil {
		l.Errorf("Failed to open store (%s): %s", cfg.Backend, err)
		return
	}
	defer st.Close()

	// Redis is optional; rate limiting and presence degrade to no-ops
	// without it.
	var limiter *redis.RateLimiter
	var presence *redis.Presence
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			l.Warnf("Redis unavailable, continuing without it: %s", err)
			rdb.Close()
		} else {
			defer rdb.Close()
			limiter = redis.NewRateLimiter(rdb, cfg.RateLimitRPM, time.Minute)
			presence = redis.NewPresence(rdb)
		}
	}

	// Attachment blobs go to S3 when a bucket is configured, the local
	// filesystem otherwise.
	var blobs services.BlobStore
	if cfg.S3Bucket != "" {
		blobs, err = storage.NewS3Store(ctx, storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	} else {
		blobs, err = storage.NewFSStore(cfg.UploadDir)
	}
	if err != nil {
		l.Errorf("Failed to set up blob storage: %s", err)
		return
	}

	authService, err := services.NewAuthService(cfg.APIKey, cfg.TicketSecret, cfg.TicketTTL())
	if err != nil {
		l.Errorf("Failed to set up auth: %s", err)
		return
	}

	hub := ws.NewHub(l)
	defer hub.Shutdown()

	roomService := services.NewRoomService(st)
	messageService := services.NewMessageService(st, hub, l)
	attachmentService := services.NewAttachmentService(st, blobs, cfg.MaxUploadSize)

	var authHandler *handler.AuthHandler
	var wsAuth ws.Authorizer
	if authService != nil {
		authHandler = handler.NewAuthHandler(authService)
		wsAuth = authService
	}
	var wsPresence ws.PresenceTracker
	if presence != nil {
		wsPresence = presence
	}

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Rooms:       handler.NewRoomHandler(roomService),
		Messages:    handler.NewMessageHandler(messageService),
		Attachments: handler.NewAttachmentHandler(attachmentService),
		Auth:        authHandler,
		Presence:    handler.NewPresenceHandler(roomService, presence),
		Health:      handler.NewHealthHandler(st),
		WS:          ws.NewHandler(hub, roomService, messageService, wsAuth, wsPresence, l),
	}, authService, limiter)

	if err := srv.Start(); err != nil {
		l.Errorf("Server exited with error: %s", err)
	}
}
