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

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/tripgenie/agent-server/internal/agent/graph/llms"
	"github.com/tripgenie/agent-server/internal/agent/graph/tools"
	"github.com/tripgenie/agent-server/internal/agent/model"
	"github.com/tripgenie/agent-server/internal/agent/planner"
	"github.com/tripgenie/agent-server/internal/agent/repo"
	"github.com/tripgenie/agent-server/internal/api"
	"github.com/tripgenie/agent-server/internal/core"
	errx "github.com/tripgenie/agent-server/internal/core/error"
	logx "github.com/tripgenie/agent-server/pkg/logger"
	pkgredis "github.com/tripgenie/agent-server/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

// AppConfig defines all configurable parameters for the server, sourced from
// environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment core.Environment `envconfig:"ENVIRONMENT" default:"development"`
	HTTPAddr    string           `envconfig:"HTTP_ADDR" default:":8000"`
	LogLevel    string           `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Redis pkgredis.Config

	// Agent configs
	LLM          model.LLMConfig
	Tools        model.ToolsConfig
	Agent        model.AgentConfig
	ReplanRecord model.ReplanRecordConfig
}

func (c AppConfig) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return errx.New(errx.KindConfiguration, err, http.StatusInternalServerError, err.Error())
	}
	if err := c.Tools.Validate(); err != nil {
		return errx.New(errx.KindConfiguration, err, http.StatusInternalServerError, err.Error())
	}
	if c.Agent.MaxToolRounds < 1 {
		return errx.Configuration(fmt.Sprintf("AGENT_MAX_TOOL_ROUNDS must be positive, got %d", c.Agent.MaxToolRounds))
	}
	return nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env file: %v\n", err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to process environment config: %v\n", err)
		os.Exit(1)
	}

	logx.Init(logx.LoggerOpts{Environment: cfg.Environment, Level: cfg.LogLevel})

	if err := cfg.Validate(); err != nil {
		logx.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logx.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg AppConfig) error {
	var opts []planner.Option
	if cfg.Redis.Enabled() {
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			return fmt.Errorf("initialise redis client: %w", err)
		}
		defer rdb.Close()

		opts = append(opts, planner.WithReplanRecords(repo.NewRedisReplanRepository(rdb, cfg.ReplanRecord.TTL)))
		logx.Info().Msg("connected to redis, replan records enabled")
	} else {
		logx.Warn().Msg("REDIS_URL not set, replan records disabled")
	}

	loader, err := llms.NewLoader(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("create model loader: %w", err)
	}

	toolset := tools.NewToolset(cfg.Tools)
	svc := planner.New(
		planner.NewGraphFactory(loader, toolset, cfg.Agent.MaxToolRounds),
		toolset.Weather,
		cfg.Agent,
		opts...,
	)

	router := api.NewRouter(&api.Deps{
		ResponseHandler: api.NewResponseHandler(),
		PlannerSvc:      svc,
	}, *logx.Logger())

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logx.Info().
			Str("addr", cfg.HTTPAddr).
			Str("provider", cfg.LLM.Provider).
			Str("primary_model", cfg.LLM.PrimaryModel).
			Str("fallback_model", cfg.LLM.FallbackModel).
			Msg("agent server listening")
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

	logx.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
