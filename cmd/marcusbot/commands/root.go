// ABOUTME: Root command, global flags and process-wide setup
// ABOUTME: Loads .env files and wires the interrupt-aware context
package commands

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	quiet   bool
	envFile string
)

const banner = `
███╗   ███╗ █████╗ ██████╗  ██████╗██╗   ██╗███████╗
████╗ ████║██╔══██╗██╔══██╗██╔════╝██║   ██║██╔════╝
██╔████╔██║███████║██████╔╝██║     ██║   ██║███████╗
██║╚██╔╝██║██╔══██║██╔══██╗██║     ██║   ██║╚════██║
██║ ╚═╝ ██║██║  ██║██║  ██║╚██████╗╚██████╔╝███████║
╚═╝     ╚═╝╚═╝  ╚═╝╚═╝  ╚═╝ ╚═════╝ ╚═════╝ ╚══════╝`

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "marcusbot",
		Short: "Discord bot backed by Gemini and Tenor",
		Long: banner + `

MarcusBot answers Discord messages with Gemini, drops the occasional
Tenor GIF and keeps its gateway session alive through outages.

Every outbound call is retried with exponential backoff; sends that hit
Discord's rate limit wait out a cooldown instead of failing.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnv(envFile)
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command until it finishes or the process is interrupted
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// loadEnv loads path into the environment. A missing file is fine;
// variables already set win.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
