package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"gorm.io/gorm"

	"github.com/zhouzirui/medassist/backend/internal/config"
	"github.com/zhouzirui/medassist/backend/internal/db"
	"github.com/zhouzirui/medassist/backend/internal/events"
	"github.com/zhouzirui/medassist/backend/internal/handler"
	"github.com/zhouzirui/medassist/backend/internal/model/persona"
	"github.com/zhouzirui/medassist/backend/internal/service/chat"
	"github.com/zhouzirui/medassist/backend/internal/service/pharmacy"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	personaStore := persona.NewMemoryStore(persona.Seed()).WithPreamble(cfg.Gemini.Preamble)

	// 可选：会话消息事件
	var nc *nats.Conn
	var opts []chat.Option
	if cfg.Events.Enabled() {
		nc, err = events.Connect(cfg.Events.NatsURL)
		if err != nil {
			log.Printf("warning: failed to connect NATS: %v", err)
		} else {
			opts = append(opts, chat.WithTurnSink(events.NewTurnPublisher(nc, cfg.Events.SubjectPrefix)))
			log.Printf("publishing turn events under %s.*", cfg.Events.SubjectPrefix)
		}
	}

	var chatService *chat.Service
	if cfg.Gemini.Enabled() {
		client, err := cfg.Gemini.NewClient()
		if err != nil {
			log.Printf("warning: failed to initialize Gemini client: %v", err)
		} else {
			chatService = chat.NewService(personaStore, client, cfg.Gemini.Composer(), opts...)
			log.Printf("chat enabled with model %s", client.Model())
		}
	} else {
		log.Println("GEMINI_API_KEY 未配置，跳过聊天功能初始化")
	}

	var pharmacyService *pharmacy.Service
	var database *gorm.DB
	database, err = db.Connect(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Printf("warning: pharmacy registry disabled: %v", err)
	} else {
		pharmacyService = pharmacy.NewService(database)
		log.Printf("pharmacy registry using %s", cfg.Database.Driver)
	}

	router := handler.NewRouter(handler.Dependencies{
		Personas:       personaStore,
		Chat:           chatService,
		Pharmacy:       pharmacyService,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	startServer(ctx, cfg.Server, router)

	if chatService != nil {
		chatService.Shutdown()
	}
	if nc != nil {
		if err := nc.Drain(); err != nil {
			log.Printf("nats drain: %v", err)
		}
	}
	if database != nil {
		if err := db.Close(database); err != nil {
			log.Printf("db close: %v", err)
		}
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		// 信号到达时结束 SSE 与 WebSocket 长连接
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	log.Printf("MedAssist backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
