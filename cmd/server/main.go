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

	"github.com/charmbracelet/log"
	"github.com/suPer8Hu/ai-assistant/internal/ai"
	"github.com/suPer8Hu/ai-assistant/internal/auth"
	"github.com/suPer8Hu/ai-assistant/internal/chat"
	"github.com/suPer8Hu/ai-assistant/internal/config"
	"github.com/suPer8Hu/ai-assistant/internal/db"
	"github.com/suPer8Hu/ai-assistant/internal/httpapi"
	"github.com/suPer8Hu/ai-assistant/internal/httpapi/handlers"
	"github.com/suPer8Hu/ai-assistant/internal/httpapi/middleware"
	"github.com/suPer8Hu/ai-assistant/internal/session"
	"github.com/suPer8Hu/ai-assistant/internal/storage"
	"github.com/suPer8Hu/ai-assistant/internal/store/rabbitmq"
	"github.com/suPer8Hu/ai-assistant/internal/store/redisstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config", "err", err)
	}
	if !cfg.Production() {
		log.SetLevel(log.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// storage
	var store storage.Storage
	if cfg.RelationalStorage() {
		gdb, err := db.Connect(cfg.DBDSN)
		if err != nil {
			log.Fatal("database", "err", err)
		}
		store = storage.NewGormStore(gdb)
		log.Info("storage selected", "backend", storage.BackendRelational)
	} else {
		store = storage.NewMemoryStore()
		log.Info("storage selected", "backend", storage.BackendMemory)
	}
	defer store.Close()

	// sessions
	var sessStore session.Store
	if cfg.RedisAddr != "" {
		rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rds.Ping(pctx)
		cancel()
		if err != nil {
			log.Fatal("redis ping", "addr", cfg.RedisAddr, "err", err)
		}
		defer rds.Close()
		sessStore = rds
	} else {
		mem := session.NewMemoryStore()
		mem.StartJanitor(ctx, 10*time.Minute)
		sessStore = mem
	}
	sessions := session.NewManager(sessStore, cfg.SessionTTL, cfg.Production())

	// AI provider
	reg := providerRegistry(cfg)
	provider, err := reg.Get(ctx, cfg.AIProvider, "")
	if err != nil {
		log.Fatal("ai provider", "provider", cfg.AIProvider, "known", reg.Names(), "err", err)
	}
	assistant := ai.NewAssistant(provider, cfg.AITimeout)

	// turn events
	var events chat.EventPublisher = chat.NopPublisher{}
	if cfg.RabbitURL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			log.Warn("rabbitmq unavailable, turn events disabled", "err", err)
		} else {
			defer pub.Close()
			events = pub
		}
	}

	var google auth.IdentityProvider
	if gp := auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL); gp.Configured() {
		google = gp
	} else {
		log.Warn("google oauth not configured")
	}

	limiter := middleware.NewLimiterStore(cfg.AuthRatePerMinute, cfg.AuthRateBurst, time.Minute)
	defer limiter.Stop()

	h := handlers.NewHandler(handlers.Deps{
		Store:      store,
		ChatSvc:    chat.NewService(store, assistant, events, cfg.ChatContextWindowSize),
		Summarizer: assistant,
		Sessions:   sessions,
		Google:     google,
		State:      auth.NewStateSigner(cfg.SessionSecret, 10*time.Minute),
		Secure:     cfg.Production(),
	})
	r := httpapi.NewRouter(h, httpapi.Options{
		CORSOrigins: cfg.CORSOrigins,
		StaticDir:   cfg.StaticDir,
		AuthLimiter: limiter,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server started", "addr", cfg.HTTPAddr, "env", cfg.AppEnv, "ai_provider", cfg.AIProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("server shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error("shutdown", "err", err)
	}
}

func providerRegistry(cfg config.Config) *ai.Registry {
	reg := ai.NewRegistry()

	reg.Register("openai", func(ctx context.Context, model string) (ai.Provider, error) {
		if cfg.OpenAIAPIKey == "" {
			log.Warn("OPENAI_API_KEY is empty, replies will use the fallback")
		}
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.OpenAIModel
		}
		return ai.NewOpenAIProvider(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, m), nil
	})

	reg.Register("openrouter", func(ctx context.Context, model string) (ai.Provider, error) {
		if cfg.OpenRouterAPIKey == "" {
			return nil, errors.New("OPENROUTER_API_KEY is empty")
		}
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.OpenRouterModel
		}
		return ai.NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, m, cfg.OpenRouterSiteURL, cfg.OpenRouterAppName), nil
	})

	reg.Register("ollama", func(ctx context.Context, model string) (ai.Provider, error) {
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.OllamaModel
		}
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, m), nil
	})

	return reg
}
