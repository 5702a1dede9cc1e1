package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nullwave/goqtt/internal/auth"
	"github.com/nullwave/goqtt/internal/broker"
	"github.com/nullwave/goqtt/internal/config"
	"github.com/nullwave/goqtt/internal/logger"
	"github.com/nullwave/goqtt/internal/transport"
)

func gracefulShutdown(tcpServer *transport.TCPServer, cancel context.CancelFunc, done chan struct{}) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Println("graceful shutdown triggered")

	defer cancel()
	if err := tcpServer.Stop(); err != nil {
		log.Println(err)
	}
	time.Sleep(1 * time.Second)

	close(done)
}

func main() {
	configPath := flag.String("config", "config.yml", "path to config.yml or config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.InitGlobalLogger(logger.Config{
		Level:   parseLevel(cfg.Log.Level),
		Format:  cfg.Log.Format,
		Service: cfg.Name,
		Version: cfg.Version,
	})

	b := broker.New(broker.Config{
		Username:            cfg.Auth.Username,
		Password:            cfg.Auth.Password,
		IgnoreLoopDeliver:   cfg.Log.IgnoreLoopDeliver,
		PrefixSourceOnQoS01: cfg.Log.PrefixSourceOnQoS01,
		MaxConnections:      cfg.Server.MaxConnections,
	})

	if cfg.Auth.SQLiteDSN != "" {
		db, err := sql.Open("sqlite3", cfg.Auth.SQLiteDSN)
		if err != nil {
			log.Fatalf("failed to open sqlite db: %v", err)
		}
		b.WithAuthStore(auth.New(db))
	}

	if cfg.Log.AccessLogPath != "" {
		accessLog, err := logger.NewAccessLog(logger.AccessLogConfig{FilePath: cfg.Log.AccessLogPath})
		if err != nil {
			log.Fatalf("failed to open access log: %v", err)
		}
		b.SetAccessLog(accessLog)
	}

	b.SetCallbacks(broker.Callbacks{
		OnError: func(clientID string, code int, text string) {
			logger.Warn("broker error", logger.ClientID(clientID), logger.Int("code", code), logger.String("text", text))
		},
	})

	ctx, cancel := context.WithCancel(context.Background())

	srv := transport.New(cfg.Server.Port, b, cfg.Server.MaxConnections)

	if err := srv.Start(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
	log.Printf("%s %s listening on %s\n", cfg.Name, cfg.Version, cfg.Server.Port)

	done := make(chan struct{}, 1)
	go gracefulShutdown(srv, cancel, done)

	<-done
	log.Println("graceful shutdown complete")
}

func parseLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.LevelDebug
	case "warn":
		return logger.LevelWarn
	case "error":
		return logger.LevelError
	default:
		return logger.LevelInfo
	}
}
