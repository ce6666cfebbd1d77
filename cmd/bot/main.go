package main

import (
	"net/http"

	"github.com/sashabaranov/go-openai"
	"github.com/velvetdaemon/daemon-bot/internal/admission"
	"github.com/velvetdaemon/daemon-bot/internal/classifier"
	"github.com/velvetdaemon/daemon-bot/internal/composer"
	"github.com/velvetdaemon/daemon-bot/internal/executor"
	"github.com/velvetdaemon/daemon-bot/internal/farcaster"
	"github.com/velvetdaemon/daemon-bot/internal/reputation"
	"github.com/velvetdaemon/daemon-bot/internal/storage"
	"github.com/velvetdaemon/daemon-bot/internal/thread"
	"github.com/velvetdaemon/daemon-bot/internal/webhook"
	"github.com/velvetdaemon/daemon-bot/pkg/config"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize reply journal
	var journal storage.Journal
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory reply journal")
		journal = storage.NewMemoryJournal()
	} else {
		logger.Info("Using PostgreSQL reply journal")
		dbConfig := storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		}
		journal, err = storage.NewPostgresJournal(dbConfig)
		if err != nil {
			logger.Fatal("Failed to initialize reply journal", zap.Error(err))
		}
	}
	defer journal.Close()

	// Load persona
	persona, err := composer.LoadPersona(cfg.PersonaPath)
	if err != nil {
		logger.Fatal("Failed to load persona", zap.Error(err), zap.String("path", cfg.PersonaPath))
	}

	// Platform and generation clients
	platform := farcaster.NewClient(cfg.Farcaster.BaseURL, cfg.Farcaster.APIKey, logger)
	generation := openai.NewClient(cfg.OpenAI.APIKey)

	// Admission state, constructed once and injected
	ctrl := admission.NewController(cfg.Limits.DedupWindow, cfg.Limits.RateCeiling, cfg.EmergencyStop)
	if cfg.EmergencyStop {
		logger.Warn("Emergency stop is set, all responses are suppressed")
	}

	clf := classifier.New(cfg.Farcaster.BotFID, cfg.Farcaster.BotUsernames)
	gate := reputation.NewGate(platform, cfg.Limits.ReputationThreshold, logger)
	inspector := thread.NewInspector(platform, journal, cfg.Farcaster.BotFID, cfg.Limits.MaxBotReplies, logger)
	comp := composer.New(
		generation,
		platform,
		persona,
		cfg.OpenAI.Model,
		cfg.OpenAI.MaxTokens,
		cfg.OpenAI.Temperature,
		cfg.Limits.ReplyMaxChars,
		cfg.Limits.ExtendedMaxChars,
		logger,
	)
	exec := executor.New(platform, cfg.Farcaster.SignerUUID, journal, logger)

	handler := webhook.NewHandler(
		cfg.Webhook.Secret,
		cfg.Limits.MaxThreadDepth,
		ctrl,
		clf,
		gate,
		inspector,
		comp,
		exec,
		logger,
	)

	logger.Info("Starting webhook server",
		zap.String("addr", cfg.Webhook.ListenAddr),
		zap.Int64("bot_fid", cfg.Farcaster.BotFID))
	if err := http.ListenAndServe(cfg.Webhook.ListenAddr, handler.Routes()); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}
