package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/koopa0/openmusic/internal"
	"github.com/koopa0/openmusic/internal/migrations"
	"github.com/koopa0/openmusic/internal/store"
	"github.com/koopa0/openmusic/pkg/logger"
)

func main() {
	// 載入配置
	config, err := internal.LoadConfig("config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 設定日誌
	log := logger.Init(config.Log.Level, config.Log.Format)

	// 連接 Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:         config.Redis.Addr,
		Password:     config.Redis.Password,
		DB:           config.Redis.DB,
		PoolSize:     config.Redis.PoolSize,
		MinIdleConns: config.Redis.MinIdleConns,
		MaxRetries:   config.Redis.MaxRetries,
		ReadTimeout:  config.Redis.ReadTimeout,
		WriteTimeout: config.Redis.WriteTimeout,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// 連接 PostgreSQL
	pgConfig, err := pgxpool.ParseConfig(config.PostgresDSN())
	if err != nil {
		log.Error("failed to parse postgres config", "error", err)
		os.Exit(1)
	}

	pgConfig.MaxConns = config.Postgres.MaxConns
	pgConfig.MinConns = config.Postgres.MinConns

	pgPool, err := pgxpool.NewWithConfig(ctx, pgConfig)
	if err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()

	// 執行資料庫遷移
	migrator, err := migrations.New(migrateURL(config), log)
	if err != nil {
		log.Error("failed to create migrator", "error", err)
		os.Exit(1)
	}
	if err := migrator.Up(); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	if err := migrator.Close(); err != nil {
		log.Warn("failed to close migrator", "error", err)
	}

	// 連接 NATS
	natsConn, err := nats.Connect(
		config.NATS.URL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		log.Error("failed to connect to nats", "error", err)
		os.Exit(1)
	}
	defer natsConn.Close()

	// 所有外部客戶端建立一次，注入各服務
	queries := store.New(pgPool)
	cache := internal.NewRedisCache(redisClient)

	albums := internal.NewAlbumService(queries, cache, config.Cache.LikesTTL, log)
	songs := internal.NewSongService(queries, log)
	playlists := internal.NewPlaylistService(queries, log)
	exports := internal.NewExportService(
		internal.NewNATSPublisher(natsConn), playlists, config.NATS.ExportSubject, log)

	readiness := func(ctx context.Context) error {
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis not ready: %w", err)
		}
		if err := pgPool.Ping(ctx); err != nil {
			return fmt.Errorf("postgres not ready: %w", err)
		}
		return nil
	}

	handler := internal.NewHandler(albums, songs, playlists, exports, readiness, log)

	// 設定 HTTP 伺服器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Server.Port),
		Handler:      handler.Routes(),
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// 啟動伺服器
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("starting server", "port", config.Server.Port)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}

	case sig := <-shutdown:
		log.Info("shutdown signal received", "signal", sig)

		// 給予 30 秒時間完成當前請求
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("failed to shutdown server", "error", err)
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("failed to force close server", "error", closeErr)
			}
		}
	}

	log.Info("server stopped")
}

// migrateURL 生成 golang-migrate 使用的資料庫 URL
func migrateURL(config *internal.Config) string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		config.Postgres.User,
		config.Postgres.Password,
		config.Postgres.Host,
		config.Postgres.Port,
		config.Postgres.DBName,
	)
}
