package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/joho/godotenv"
	deltabot "github.com/phbpx/delta-agent"
	"github.com/phbpx/delta-agent/agent"
	"github.com/phbpx/delta-agent/handler"
	"github.com/phbpx/delta-agent/llm/providers"
	"github.com/phbpx/delta-agent/memory"
	"github.com/phbpx/delta-agent/postgres"
	"github.com/phbpx/delta-agent/tools"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "Delta-1 Agent"

func main() {

	log, err := newLog("delta-agent")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log); err != nil {
		log.Errorw("startup", "err", err)
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// A missing .env file is fine; the environment may already be set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg := struct {
		Http struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:60s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			Host            string        `conf:"default:0.0.0.0:8000"`
			TrustProxy      bool          `conf:"default:false"`
		}
		CORS struct {
			AllowedOrigins []string `conf:"default:http://localhost:3000;http://127.0.0.1:3000"`
		}
		RateLimit struct {
			PerMinute int `conf:"default:20"`
			Burst     int `conf:"default:5"`
		}
		LLM struct {
			Provider         string  `conf:"help:gemini groq or openai; empty picks the first with a key"`
			Model            string  `conf:"help:overrides the default model of the provider"`
			Temperature      float64 `conf:"default:0.3"`
			MaxIterations    int     `conf:"default:15"`
			MaxHistoryTokens int     `conf:"default:3500"`
		}
		Google struct {
			APIKey string `conf:"mask"`
		}
		Groq struct {
			APIKey  string `conf:"mask"`
			BaseURL string `conf:"default:https://api.groq.com/openai/v1"`
		}
		OpenAI struct {
			APIKey  string `conf:"mask"`
			BaseURL string `conf:"default:https://api.openai.com/v1"`
		}
		DB struct {
			Enabled      bool   `conf:"default:false"`
			User         string `conf:"default:delta"`
			Password     string `conf:"default:delta,mask"`
			Host         string `conf:"default:localhost"`
			Name         string `conf:"default:delta"`
			MaxIdleConns int    `conf:"default:2"`
			MaxOpenConns int    `conf:"default:0"`
			DisableTLS   bool   `conf:"default:true"`
		}
		Jaeger struct {
			ReporterURI string  `conf:"default:http://localhost:14268/api/traces"`
			ServiceName string  `conf:"default:delta-agent"`
			Probability float64 `conf:"default:0.5"`
		}
	}{}

	help, err := conf.Parse("DELTA", &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// Start Tracing Support

	log.Infow("startup", "status", "initializing OT/Jaeger tracing support")

	traceProvider, err := startTracing(
		cfg.Jaeger.ServiceName,
		cfg.Jaeger.ReporterURI,
		cfg.Jaeger.Probability,
	)
	if err != nil {
		return fmt.Errorf("starting tracing: %w", err)
	}
	defer traceProvider.Shutdown(context.Background())

	otelLog := otelzap.New(log.Desugar(), otelzap.WithStackTrace(true)).Sugar()

	// =========================================================================
	// Lead Storage

	var leads deltabot.LeadService

	if cfg.DB.Enabled {
		log.Infow("startup", "status", "initializing database support", "host", cfg.DB.Host)

		db, err := postgres.Open(postgres.Config{
			User:         cfg.DB.User,
			Password:     cfg.DB.Password,
			Host:         cfg.DB.Host,
			Name:         cfg.DB.Name,
			MaxIdleConns: cfg.DB.MaxIdleConns,
			MaxOpenConns: cfg.DB.MaxOpenConns,
			DisableTLS:   cfg.DB.DisableTLS,
		})
		if err != nil {
			return fmt.Errorf("connecting to db: %w", err)
		}
		defer func() {
			log.Infow("shutdown", "status", "stopping database support", "host", cfg.DB.Host)
			db.Close()
		}()

		log.Infow("startup", "status", "updating database schema", "database", cfg.DB.Name, "host", cfg.DB.Host)

		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := postgres.Migrate(migrateCtx, db); err != nil {
			return fmt.Errorf("updating database schema: %w", err)
		}

		leads = postgres.NewLeadService(db)
	} else {
		log.Infow("startup", "status", "using mock lead storage")
		leads = memory.NewLeadService(otelLog)
	}

	// =========================================================================
	// Model Provider

	providerCfg := providers.Config{
		Provider:      cfg.LLM.Provider,
		Model:         cfg.LLM.Model,
		Temperature:   float32(cfg.LLM.Temperature),
		GoogleAPIKey:  cfg.Google.APIKey,
		GroqAPIKey:    cfg.Groq.APIKey,
		GroqBaseURL:   cfg.Groq.BaseURL,
		OpenAIAPIKey:  cfg.OpenAI.APIKey,
		OpenAIBaseURL: cfg.OpenAI.BaseURL,
	}.WithEnvFallbacks(os.Getenv)

	providerName, err := providers.Select(providerCfg)
	if err != nil {
		return fmt.Errorf("selecting model provider: %w", err)
	}
	model := providers.Model(providerCfg, providerName)

	log.Infow("startup", "status", "initializing model provider", "provider", providerName, "model", model)

	provider, err := providers.New(context.Background(), providerCfg)
	if err != nil {
		return fmt.Errorf("creating model provider: %w", err)
	}
	if closer, ok := provider.(io.Closer); ok {
		defer closer.Close()
	}

	bot := agent.New(provider, tools.Default(leads, time.Now), otelLog, agent.Config{
		MaxIterations:    cfg.LLM.MaxIterations,
		MaxHistoryTokens: cfg.LLM.MaxHistoryTokens,
		Counter:          agent.NewTokenCounter(model),
	})

	// =========================================================================
	// Create router

	log.Infow("startup", "status", "initializing router")

	api := handler.API(handler.Config{
		ServiceName:        serviceName,
		Provider:           providerName,
		Agent:              bot,
		Leads:              leads,
		Log:                otelLog,
		TrustProxy:         cfg.Http.TrustProxy,
		AllowedOrigins:     cfg.CORS.AllowedOrigins,
		RateLimitPerMinute: cfg.RateLimit.PerMinute,
		RateLimitBurst:     cfg.RateLimit.Burst,
	})

	// =========================================================================
	// Start API Server

	log.Infow("startup", "status", "initializing http server", "host", cfg.Http.Host)

	server := &http.Server{
		Addr:         cfg.Http.Host,
		Handler:      api,
		ReadTimeout:  cfg.Http.ReadTimeout,
		WriteTimeout: cfg.Http.WriteTimeout,
		IdleTimeout:  cfg.Http.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.ListenAndServe()
	}()

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Http.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			server.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}

func newLog(serviceName string) (*zap.SugaredLogger, error) {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stdout"}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = true
	config.InitialFields = map[string]interface{}{
		"service": serviceName,
	}

	log, err := config.Build()
	if err != nil {
		return nil, err
	}

	return log.Sugar(), nil
}

func startTracing(serviceName, reporterURL string, probability float64) (*tracesdk.TracerProvider, error) {
	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(reporterURL)))
	if err != nil {
		return nil, fmt.Errorf("creating new exporter: %w", err)
	}

	tp := tracesdk.NewTracerProvider(
		tracesdk.WithSampler(tracesdk.ParentBased(tracesdk.TraceIDRatioBased(probability))),
		// Always be sure to batch in production.
		tracesdk.WithBatcher(exp,
			tracesdk.WithMaxExportBatchSize(tracesdk.DefaultMaxExportBatchSize),
			tracesdk.WithBatchTimeout(tracesdk.DefaultScheduleDelay*time.Millisecond),
		),
		// Record information about this application in a Resource.
		tracesdk.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
			attribute.String("exporter", "jaeger"),
		)),
	)

	otel.SetTracerProvider(tp)
	return tp, nil
}
