package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/twoauth/twoauth/backend"
	"github.com/twoauth/twoauth/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := backend.FromEnv()
	var (
		tokenTTLMS    int64
		keyRotationMS int64
		logFile       string
		console       bool
	)

	cmd := &cobra.Command{
		Use:   "twoauth-backend",
		Short: "Token-issuing authentication backend",
		Long: "Issues short-lived signed tokens against a rotating key, " +
			"manages account registration and activation, and serves the " +
			"protected user resource.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if tokenTTLMS > 0 {
				cfg.TokenTTL = time.Duration(tokenTTLMS) * time.Millisecond
			}
			if keyRotationMS > 0 {
				cfg.KeyRotationPeriod = time.Duration(keyRotationMS) * time.Millisecond
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			log := logger.New(logger.Config{
				Level:   cfg.LogLevel,
				File:    logFile,
				Console: console,
			}).With("service", "backend")

			srv, err := backend.New(cfg, log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Info("backend listening", "addr", cfg.Addr)
			return srv.Start(ctx)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	flags.StringVar(&cfg.DBPath, "db", cfg.DBPath, "sqlite database path")
	flags.Int64Var(&tokenTTLMS, "token-ttl-ms", 0, "token lifetime in milliseconds")
	flags.Int64Var(&keyRotationMS, "key-rotation-ms", 0, "signing key rotation period in milliseconds")
	flags.StringVar(&cfg.ActivationMode, "activation-mode", cfg.ActivationMode, "account activation mode: none, email, test")
	flags.StringVar(&cfg.SMTPAddr, "smtp-addr", cfg.SMTPAddr, "SMTP host:port for the email activation mode")
	flags.StringVar(&cfg.SMTPFrom, "smtp-from", cfg.SMTPFrom, "sender address for activation mail")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	flags.StringVar(&logFile, "log-file", "", "write rotated logs to this file")
	flags.BoolVar(&console, "log-console", false, "pretty-print logs to stderr")

	return cmd
}
