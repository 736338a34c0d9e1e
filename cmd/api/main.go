package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"communityBoard/cmd/app"
	"communityBoard/internal/config"
	handlers "communityBoard/internal/handler"
	"communityBoard/internal/middleware"
)

// Idle sessions are checked this many times per TTL.
const reapDivisor = 4

func main() {
	// setting up config
	cfg := config.LoadConfig()

	if cfg.JWTSecretKey == "" {
		log.Fatal("JWT_SECRET_KEY не установлен в .env файле")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(ctx, cfg, logger)
	defer a.Close()

	handler := handlers.NewHandlers(a.Services, logger)

	handlerChain := middleware.Chain(
		handler.Router(),
		middleware.AuthMiddleware(a.Services.Auth),
		middleware.CORSMiddleware,
		middleware.LoggingMiddleware(logger),
	)

	if interval := cfg.Server.SessionIdleTTL / reapDivisor; interval > 0 {
		go a.Services.Sessions.Run(ctx, interval)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: handlerChain,
	}

	go func() {
		log.Printf("Сервер запущен на %s", srv.Addr)
		log.Printf("Хранилище документов: %s", cfg.DocstoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Ошибка запуска сервера: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Останавливаем сервер...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Ошибка при остановке сервера: %v", err)
	}

	a.Services.Sessions.CloseAll(shutdownCtx)
	log.Println("Сервер остановлен")
}
