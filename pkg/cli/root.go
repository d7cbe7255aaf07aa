// Package cli holds the lxmf-agent command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"lxmf-chat/pkg/agent"
	"lxmf-chat/pkg/backend"
	"lxmf-chat/pkg/config"
	"lxmf-chat/pkg/logging"
	"lxmf-chat/pkg/model"
	"lxmf-chat/pkg/peers"
	"lxmf-chat/pkg/session"
)

type app struct {
	cfgFile    string
	backendURL string
	logLevel   string
	cfg        *config.Config
}

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "lxmf-agent",
		Short:         "Headless LXMF chat client and sync engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (YAML)")
	root.PersistentFlags().StringVar(&a.backendURL, "backend", "", "chat backend URL (overrides config)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (overrides config)")

	root.AddCommand(
		a.runCmd(),
		a.peersCmd(),
		a.messagesCmd(),
		a.sendCmd(),
		a.sendFileCmd(),
		a.syncCmd(),
		a.configCmd(),
		a.exportCmd(),
		a.audioCmd(),
		a.rawCmd(),
		a.historyCmd(),
		a.favoriteCmd(),
		a.groupCmd(),
		a.identitiesCmd(),
		a.watchCmd(),
		versionCmd(),
		hashPasswordCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("backend") {
		cfg.Backend.URL = a.backendURL
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	logging.InitTo(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	a.cfg = cfg
	return nil
}

func (a *app) client() (*backend.Client, error) {
	return agent.NewBackendClient(a.cfg.Backend)
}

// session builds an unstarted session and loads the roster once.
func (a *app) session(ctx context.Context) (*session.Session, *backend.Client, error) {
	cl, err := a.client()
	if err != nil {
		return nil, nil, err
	}
	tab, err := model.ParseTab(a.cfg.Session.Tab)
	if err != nil {
		return nil, nil, err
	}
	mode, order, err := peers.ParseSort(a.cfg.Session.Sort, a.cfg.Session.Order)
	if err != nil {
		return nil, nil, err
	}
	s := session.New(session.Options{Backend: cl, Tab: tab, Sort: mode, Order: order})
	if err := s.RefreshPeers(ctx); err != nil {
		s.Close()
		return nil, nil, err
	}
	return s, cl, nil
}

// withPeer loads the roster, selects h and fetches its messages.
func (a *app) withPeer(ctx context.Context, h string) (*session.Session, *backend.Client, error) {
	s, cl, err := a.session(ctx)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.SelectPeer(h); err != nil {
		s.Close()
		return nil, nil, err
	}
	if err := s.RefreshMessages(ctx); err != nil {
		s.Close()
		return nil, nil, err
	}
	return s, cl, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
