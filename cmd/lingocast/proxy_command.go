package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"lingocast/internal/aiproxy"
	"lingocast/internal/config"
	"lingocast/internal/logging"
	"lingocast/internal/services/ai"
)

func newProxyCommand(ctx *commandContext) *cobra.Command {
	proxyCmd := &cobra.Command{
		Use:   "proxy",
		Short: "Run the AI proxy that keeps the provider key on the server",
	}
	proxyCmd.AddCommand(newProxyServeCommand(ctx))
	return proxyCmd
}

func newProxyServeCommand(ctx *commandContext) *cobra.Command {
	var bind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve chat completions and speech with the configured provider key",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			if strings.TrimSpace(bind) == "" {
				bind = cfg.Proxy.Bind
			}

			// The proxy always talks to the provider directly, whatever
			// mode this host's client is configured for.
			upstream := cfg.GetAI()
			upstream.Mode = config.AIModeDirect
			upstream.BaseURL = cfg.AI.BaseURL
			upstream.Credential = cfg.AI.APIKey
			if strings.TrimSpace(upstream.Credential) == "" {
				return ai.ErrMissingCredential
			}
			client := ai.NewClient(ai.ConfigFromSettings(upstream), ai.WithLogger(logger))

			srv, err := aiproxy.New(bind, cfg.Proxy.Token, client, logger)
			if err != nil {
				return err
			}
			runCtx, stop := signal.NotifyContext(commandCtx(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := srv.Start(runCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "AI proxy listening on %s\n", srv.Addr())
			<-runCtx.Done()
			srv.Stop()
			return nil
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (defaults to proxy.bind)")
	return cmd
}

func commandCtx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
