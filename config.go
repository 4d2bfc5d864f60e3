package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/etkin-ai/webchat/internal/agent/model"
	"github.com/etkin-ai/webchat/internal/agent/repo"
	"github.com/etkin-ai/webchat/internal/agent/service"
	"github.com/etkin-ai/webchat/internal/core"
	logx "github.com/etkin-ai/webchat/pkg/logger"
	pkgredis "github.com/etkin-ai/webchat/pkg/redis"
	pkgsqlite "github.com/etkin-ai/webchat/pkg/sqlite"
)

// AppConfig defines all configurable parameters, sourced from environment
// variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	AppName     string `envconfig:"APP_NAME" default:"WebChat AI Assistant"`

	// Infrastructure
	Server model.ServerConfig
	Store  model.StoreConfig
	Redis  pkgredis.Config
	SQLite pkgsqlite.Config

	// Agent configs
	Knowledge    model.KnowledgeConfig
	Intent       model.IntentConfig
	Responder    model.ResponderConfig
	Prompt       model.ResponsePromptConfig
	Conversation model.ConversationConfig
}

// loadConfig reads .env (when present) and the process environment, then
// initializes logging for the configured environment.
func loadConfig(envFile string) (*AppConfig, error) {
	if err := godotenv.Load(envFile); err != nil {
		logx.Debug().Str("file", envFile).Msg("No .env file loaded")
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}
	logx.Init(logx.LoggerOpts{Environment: cfg.env()})
	return &cfg, nil
}

func (c *AppConfig) env() core.Environment {
	return core.ParseEnvironment(c.Environment)
}

// openRepository connects the configured conversation store. The returned
// func releases its resources.
func (c *AppConfig) openRepository(ctx context.Context) (model.ConversationRepository, func(), error) {
	switch strings.ToLower(strings.TrimSpace(c.Store.Driver)) {
	case "", "memory":
		return repo.NewMemoryConversationRepository(), func() {}, nil
	case "redis":
		rdb, err := c.Redis.New()
		if err != nil {
			return nil, nil, fmt.Errorf("initialise Redis client: %w", err)
		}
		logx.Info().Msg("Connected to Redis successfully")
		return repo.NewRedisConversationRepository(rdb, c.Conversation.TTL), func() { rdb.Close() }, nil
	case "sqlite":
		db, err := c.SQLite.New()
		if err != nil {
			return nil, nil, err
		}
		r, err := repo.NewSQLConversationRepository(ctx, db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		logx.Info().Str("path", c.SQLite.Path).Msg("SQLite store ready")
		return r, func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q (want memory, redis or sqlite)", c.Store.Driver)
	}
}

// buildAssistant wires the store and the dialogue graph.
func (c *AppConfig) buildAssistant(ctx context.Context) (*service.Assistant, func(), error) {
	store, closeStore, err := c.openRepository(ctx)
	if err != nil {
		return nil, nil, err
	}
	a, err := service.Build(ctx, service.Config{
		Environment:      c.env(),
		Knowledge:        c.Knowledge,
		Intent:           c.Intent,
		Responder:        c.Responder,
		ResponsePrompt:   c.Prompt,
		Conversation:     c.Conversation,
		ConversationRepo: store,
	})
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return a, closeStore, nil
}
