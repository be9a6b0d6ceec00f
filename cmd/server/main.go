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

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/datawise/explore-assistant/internal/analytics"
	"github.com/datawise/explore-assistant/internal/auth"
	"github.com/datawise/explore-assistant/internal/config"
	"github.com/datawise/explore-assistant/internal/db"
	"github.com/datawise/explore-assistant/internal/genai"
	"github.com/datawise/explore-assistant/internal/httpapi"
	"github.com/datawise/explore-assistant/internal/httpapi/handlers"
	"github.com/datawise/explore-assistant/internal/thread"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}

	var cache *redis.Client
	if cfg.RedisAddr != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}

	gate := auth.NewGate(
		cfg.AdminToken,
		cfg.OAuthClientID,
		cfg.TokenInfoURL,
		cfg.DevJWTSecret,
		cfg.DirectoryAPIURL,
		cfg.DirectoryClientID,
		cfg.DirectoryClientSecret,
		cache,
	)

	reg := genai.NewRegistry()
	reg.Register("gemini", cfg.GenModel, func(ctx context.Context, model string) (genai.Provider, error) {
		return genai.NewGeminiProvider(cfg.GeminiBaseURL, cfg.GeminiAPIKey, model), nil
	})
	reg.Register("ollama", "llama3:latest", func(ctx context.Context, model string) (genai.Provider, error) {
		return genai.NewOllamaProvider(cfg.OllamaBaseURL, model), nil
	})

	provider, err := reg.Get(context.Background(), cfg.GenProvider, cfg.GenModel)
	if err != nil {
		log.Fatalf("generation provider: %v", err)
	}
	dispatcher := genai.NewDispatcher(provider, cfg.GenTimeout)

	var recorder analytics.Recorder = analytics.NopRecorder{}
	if cfg.RabbitURL != "" {
		pub, err := analytics.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			log.Fatalf("analytics publisher: %v", err)
		}
		defer pub.Close()
		recorder = pub
	}

	svc := thread.NewService(thread.NewRepo(gdb))
	h := handlers.NewHandler(svc, gate, dispatcher, recorder)

	router := httpapi.NewRouter(h, func(c *gin.Context, token string) bool {
		return gate.ValidateCredential(c.Request.Context(), token)
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("server listening on :%s provider=%s", cfg.Port, cfg.GenProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
