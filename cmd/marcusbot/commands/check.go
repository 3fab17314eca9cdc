// ABOUTME: Check command validates configuration without connecting to Discord
// ABOUTME: Reports which credentials are set and probes outbound connectivity once
package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/harper/marcusbot/internal/config"
	"github.com/harper/marcusbot/internal/fetch"
	"github.com/harper/marcusbot/internal/health"
)

// NewCheckCmd creates the check command
func NewCheckCmd() *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate configuration",
		Long: `Validate configuration and the persona file, report which API keys are
set, and probe the health-check URL once.`,
		Example: `  # Validate using ./.env
  marcusbot check

  # Skip the network probe
  marcusbot check --offline`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			persona, err := config.LoadPersona(cfg.PersonaFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printKeys(out, cfg)
			fmt.Fprintf(out, "Persona prefixes: %v\n", persona.Prefixes)

			if offline {
				return nil
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			checker := health.NewChecker(health.Config{
				URL:     cfg.HealthCheckURL,
				Timeout: cfg.HealthCheckTimeout,
			}, fetch.New(cfg.HealthCheckTimeout), logger)
			status := checker.Check(cmd.Context())
			fmt.Fprintf(out, "Health check (%s): %s\n", cfg.HealthCheckURL, status)
			if status != health.StatusOK {
				return fmt.Errorf("health check failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "skip the health-check probe")
	return cmd
}

func printKeys(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "DISCORD_KEY: %s\n", setOrNot(cfg.DiscordToken))
	fmt.Fprintf(w, "GEMINI_KEY:  %s\n", setOrNot(cfg.GeminiKey))
	fmt.Fprintf(w, "TENOR_KEY:   %s\n", setOrNot(cfg.TenorKey))
}

func setOrNot(v string) string {
	if v == "" {
		return "Not Set"
	}
	return "Set"
}
