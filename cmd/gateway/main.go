package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/twoauth/twoauth/gateway"
	"github.com/twoauth/twoauth/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := gateway.FromEnv()
	var (
		origins string
		methods string
		logFile string
		console bool
	)

	cmd := &cobra.Command{
		Use:   "twoauth-gateway",
		Short: "Session-holding edge gateway",
		Long: "Fronts the authentication backend: keeps bearer tokens in " +
			"server-side sessions, enforces the per-account session cap and " +
			"CSRF protection, and relays authenticated traffic.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if origins != "" {
				cfg.AllowedOrigins = splitFlag(origins)
			}
			if methods != "" {
				cfg.AllowedMethods = splitFlag(methods)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			log := logger.New(logger.Config{
				Level:   cfg.LogLevel,
				File:    logFile,
				Console: console,
			}).With("service", "gateway")

			gw, err := gateway.New(cfg, log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Info("gateway listening", "addr", cfg.Addr, "backend", cfg.BackendURL)
			return gw.Start(ctx)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	flags.StringVar(&cfg.BackendURL, "backend-url", cfg.BackendURL, "base URL of the backend")
	flags.BoolVar(&cfg.TLSEnabled, "tls", cfg.TLSEnabled, "TLS terminates at this gateway")
	flags.StringVar(&cfg.SessionCookieName, "session-cookie", cfg.SessionCookieName, "session cookie name")
	flags.IntVar(&cfg.MaxSessions, "max-sessions", cfg.MaxSessions, "concurrent sessions per account")
	flags.StringVar(&origins, "allowed-origins", "", "comma-separated CORS origins")
	flags.StringVar(&methods, "allowed-methods", "", "comma-separated CORS methods")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	flags.StringVar(&logFile, "log-file", "", "write rotated logs to this file")
	flags.BoolVar(&console, "log-console", false, "pretty-print logs to stderr")

	return cmd
}

func splitFlag(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
