package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Skufu/interventions/internal/assistant"
	"github.com/Skufu/interventions/internal/catalog"
	"github.com/Skufu/interventions/internal/config"
	"github.com/Skufu/interventions/internal/gemini"
	"github.com/Skufu/interventions/internal/orchestrator"
	"github.com/Skufu/interventions/internal/recommend"
	"github.com/Skufu/interventions/internal/server"
	"github.com/Skufu/interventions/internal/session"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "server",
		Short:        "Behavioral intervention recommender",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	})
	root.AddCommand(newAskCmd())
	return root
}

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the Alzheimer's assistant a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.RequireAPIKey(); err != nil {
				return err
			}
			client, err := gemini.NewClient(cmd.Context(), cfg.GeminiAPIKey, cfg.GeminiBaseURL)
			if err != nil {
				return err
			}
			a := assistant.New(gemini.NewGenerator(client, cfg.AssistantModel), nil)
			return ask(cmd.Context(), a, strings.Join(args, " "), cmd.OutOrStdout())
		},
	}
}

func ask(ctx context.Context, a *assistant.Assistant, question string, out io.Writer) error {
	_, err := fmt.Fprintln(out, a.Ask(ctx, question))
	return err
}

func newLogger(ginMode string) (*zap.Logger, error) {
	if ginMode == gin.DebugMode {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	gin.SetMode(cfg.GinMode)

	log, err := newLogger(cfg.GinMode)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	cols, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Error("catalog unavailable", zap.Error(err))
		return err
	}

	genaiClient, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiBaseURL)
	if err != nil {
		return err
	}

	var (
		store session.Store = session.NewMemoryStore(cfg.SessionTTL)
		db    server.HealthChecker
	)
	if cfg.EnableDB {
		pool, err := session.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer pool.Close()

		pg := session.NewPostgresStore(pool, cfg.SessionTTL)
		store, db = pg, pool
		go purgeSessions(ctx, pg, log)
	}

	recGen := gemini.NewGenerator(genaiClient, cfg.GeminiModel)
	askGen := gemini.NewGenerator(genaiClient, cfg.AssistantModel)
	log.Info("gemini models", zap.String("recommendations", recGen.Model()), zap.String("assistant", askGen.Model()))

	metrics := server.NewMetrics()
	client := recommend.NewClient(
		recGen,
		recommend.ClientConfig{
			MaxAttempts: cfg.MaxAttempts,
			RetryDelay:  cfg.RetryDelay,
			CallTimeout: cfg.CallTimeout,
		},
		log.Named("client"),
	)
	client.OnAttempt(metrics.ObserveAttempt)

	router, err := server.NewRouter(server.Deps{
		Catalog:      cols,
		Orchestrator: orchestrator.New(client, store, log.Named("orchestrator")),
		Assistant:    assistant.New(askGen, log.Named("assistant")),
		DB:           db,
		Metrics:      metrics,
		Log:          log.Named("http"),
		SessionTTL:   cfg.SessionTTL,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Generation may retry several times; leave room for all attempts.
		WriteTimeout: writeTimeout(cfg),
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.Info("server listening", zap.String("addr", srv.Addr), zap.Stringer("config", cfg))
	return waitForShutdown(srv, errCh, log)
}

// writeTimeout covers every attempt and delay of a generation plus a
// regeneration margin.
func writeTimeout(cfg *config.Config) time.Duration {
	perCall := cfg.CallTimeout
	if perCall <= 0 {
		perCall = recommend.DefaultCallTimeout
	}
	n := time.Duration(cfg.MaxAttempts)
	return n*perCall + (n-1)*cfg.RetryDelay + 15*time.Second
}

func purgeSessions(ctx context.Context, store *session.PostgresStore, log *zap.Logger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PurgeExpired(ctx)
			if err != nil {
				log.Warn("purge expired sessions", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("purged expired sessions", zap.Int64("count", n))
			}
		}
	}
}

func waitForShutdown(srv *http.Server, errCh <-chan error, log *zap.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}

	log.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}
