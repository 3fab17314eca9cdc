// ABOUTME: Run command starts the bot and supervises its Discord session
// ABOUTME: Wires config, clients, retry layer, metrics and the ops server
package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/harper/marcusbot/internal/bot"
	"github.com/harper/marcusbot/internal/chat"
	"github.com/harper/marcusbot/internal/config"
	"github.com/harper/marcusbot/internal/fetch"
	"github.com/harper/marcusbot/internal/gif"
	"github.com/harper/marcusbot/internal/health"
	"github.com/harper/marcusbot/internal/httpapi"
	"github.com/harper/marcusbot/internal/llm"
	"github.com/harper/marcusbot/internal/observability"
	"github.com/harper/marcusbot/internal/retry"
	"github.com/harper/marcusbot/internal/supervisor"
)

// NewRunCmd creates the run command
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the bot",
		Long: `Start the bot and keep it connected.

Connection failures are retried with exponential backoff (30s doubling,
capped at 5 minutes) up to RECONNECT_MAX_ATTEMPTS for the whole process.
The process exits non-zero once that budget is spent.`,
		Example: `  # Start with ./.env
  marcusbot run

  # Debug logging and metrics on :9090
  METRICS_ADDR=:9090 marcusbot run -v`,
		RunE: runBot,
	}
	return cmd
}

func runBot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	slog.SetDefault(logger)

	persona, err := config.LoadPersona(cfg.PersonaFile)
	if err != nil {
		return err
	}
	if !quiet {
		printKeys(cmd.OutOrStdout(), cfg)
	}

	metrics := observability.NewMetrics()
	exec := retry.NewExecutor(logger)
	exec.Observer = metrics
	guard := retry.NewSendGuard(logger)
	guard.MaxAttempts = cfg.SendMaxAttempts
	guard.Cooldown = cfg.SendCooldown
	guard.Observer = metrics
	fetcher := fetch.New(cfg.HTTPTimeout)

	discord, err := chat.NewDiscord(cfg.DiscordToken, cfg.HTTPTimeout, logger)
	if err != nil {
		return err
	}

	deps := bot.Deps{
		Platform:         discord,
		Downloader:       fetcher,
		Console:          bot.NewConsole(cmd.InOrStdin(), cmd.OutOrStdout()),
		Persona:          persona,
		GuildName:        cfg.GuildName,
		ConsoleChannelID: cfg.ConsoleChannelID,
		Executor:         exec,
		Guard:            guard,
		Policies:         bot.DefaultPolicies(cfg.RetryPermanentErrors),
		Logger:           logger,
	}

	if cfg.GeminiKey != "" {
		client, err := llm.NewGeminiClient(ctx, &llm.ClientConfig{
			APIKey:          cfg.GeminiKey,
			BaseURL:         cfg.GeminiBaseURL,
			GenerateBaseURL: cfg.GenerateBaseURL,
			ChatModel:       cfg.ChatModel,
			ImageModel:      cfg.ImageModel,
			Timeout:         cfg.HTTPTimeout,
		})
		if err != nil {
			return err
		}
		deps.Chat = client.NewChat()
		deps.Generator = client
	} else {
		logger.Warn("GEMINI_KEY not set - AI responses disabled")
	}

	if cfg.TenorKey != "" {
		deps.GIFs = gif.NewClient(gif.Config{
			BaseURL:   cfg.TenorBaseURL,
			APIKey:    cfg.TenorKey,
			ClientKey: cfg.TenorClientKey,
			Limit:     cfg.TenorLimit,
		}, fetcher)
	} else {
		logger.Warn("TENOR_KEY not set - random GIFs disabled")
	}

	handler := bot.New(deps)
	discord.Bind(ctx, chat.Handlers{
		OnMessage:    handler.HandleMessage,
		OnMemberJoin: handler.HandleMemberJoin,
	})

	sup := supervisor.New(discord, supervisor.Config{
		MaxAttempts: cfg.ReconnectMaxAttempts,
		BaseDelay:   cfg.ReconnectBaseDelay,
		MaxDelay:    cfg.ReconnectMaxDelay,
	}, logger)
	sup.Observer = metrics
	sup.OnReady(handler.HandleReady)

	checker := health.NewChecker(health.Config{
		URL:      cfg.HealthCheckURL,
		Interval: cfg.HealthCheckInterval,
		Timeout:  cfg.HealthCheckTimeout,
	}, fetch.New(cfg.HealthCheckTimeout), logger)
	checker.Observer = metrics
	sup.AddTask(checker)

	if cfg.MetricsAddr != "" {
		srv := httpapi.New(sup, checker, metrics.Handler(), logger)
		go func() {
			if err := srv.Serve(ctx, cfg.MetricsAddr); err != nil {
				logger.Error("ops server stopped", "error", err)
			}
		}()
	}

	if err := sup.Run(ctx); err != nil {
		logger.Error("bot stopped", "error", err)
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
