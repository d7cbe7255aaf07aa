package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"lxmf-chat/pkg/agent"
	"lxmf-chat/pkg/auth"
	"lxmf-chat/pkg/events"
	"lxmf-chat/pkg/version"
)

func (a *app) runCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the sync engine and the local view API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("listen") {
				a.cfg.View.Listen = listen
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return agent.Run(ctx, a.cfg)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "view API listen address (overrides config)")
	return cmd
}

func (a *app) watchCmd() *cobra.Command {
	var view, token string
	var types []string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream events from a running agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if view == "" {
				view = "http://" + a.cfg.View.Listen
				if a.cfg.View.TLSCert != "" {
					view = "https://" + a.cfg.View.Listen
				}
			}
			c, err := agent.NewEventClient(view, token)
			if err != nil {
				return err
			}
			want := map[events.Type]bool{}
			for _, t := range types {
				want[events.Type(strings.TrimSpace(t))] = true
			}
			out := cmd.OutOrStdout()
			c.OnAny(func(e events.Event) {
				if len(want) > 0 && !want[e.Type] {
					return
				}
				data, err := e.Encode()
				if err != nil {
					return
				}
				fmt.Fprintln(out, string(data))
			})
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&view, "view", "", "agent view API URL (default from config)")
	cmd.Flags().StringVar(&token, "token", os.Getenv("LXMF_VIEW_TOKEN"), "view API token")
	cmd.Flags().StringSliceVar(&types, "type", nil, "only print these event types")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lxmf-agent %s\n", version.String())
		},
	}
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for view.password_hash",
		Args:  cobra.ExactArgs(1),
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
}
