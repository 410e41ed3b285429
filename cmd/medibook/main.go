package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	appconfig "github.com/wolfman30/medibook-client/internal/config"
	"github.com/wolfman30/medibook-client/pkg/logging"
)

type rootOptions struct {
	apiURL   string
	profile  string
	logLevel string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errSilent) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

// errSilent marks failures that were already explained to the user.
var errSilent = errors.New("silent")

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	var a *app

	rootCmd := &cobra.Command{
		Use:           "medibook",
		Short:         "Browse doctors and book paid appointments from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env is fine; the environment may be set directly.
			_ = godotenv.Load()

			cfg := appconfig.Load()
			opts.apply(cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := logging.New(cfg.LogLevel)

			var err error
			a, err = newApp(cmd.Context(), cfg, logger, cmd.InOrStdin(), cmd.OutOrStdout())
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a != nil {
				return a.Close()
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "MediBook API base URL (overrides MEDIBOOK_API_URL)")
	rootCmd.PersistentFlags().StringVar(&opts.profile, "profile", "", "session profile name (overrides MEDIBOOK_PROFILE)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	current := func() *app { return a }
	rootCmd.AddCommand(doctorsCmd(current))
	rootCmd.AddCommand(homeCmd(current))
	rootCmd.AddCommand(bookCmd(current))
	rootCmd.AddCommand(loginCmd(current))
	rootCmd.AddCommand(registerCmd(current))
	rootCmd.AddCommand(logoutCmd(current))
	rootCmd.AddCommand(whoamiCmd(current))
	rootCmd.AddCommand(dashboardCmd(current))
	return rootCmd
}

func (o *rootOptions) apply(cfg *appconfig.Config) {
	if o.apiURL != "" {
		cfg.APIBaseURL = o.apiURL
	}
	if o.profile != "" {
		cfg.Profile = o.profile
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
}
