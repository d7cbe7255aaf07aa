package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lxmf-chat/pkg/display"
	"lxmf-chat/pkg/model"
)

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read or change the chat server configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the server configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cl, err := a.client()
			if err != nil {
				return err
			}
			cfg, err := cl.Config(cmd.Context())
			if err != nil {
				return err
			}
			cfg.ApplyDefaults()
			return printJSON(cmd.OutOrStdout(), cfg)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key=value>...",
		Short: "Change configuration fields",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := a.client()
			if err != nil {
				return err
			}
			cfg, err := cl.Config(cmd.Context())
			if err != nil {
				return err
			}
			cfg.ApplyDefaults()
			if cfg, err = applyAssignments(cfg, args); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			saved, err := cl.SaveConfig(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), saved)
		},
	})
	return cmd
}

// applyAssignments sets json fields of cfg from key=value pairs. String
// fields take the value verbatim; other values are parsed as JSON.
func applyAssignments(cfg model.ServerConfig, args []string) (model.ServerConfig, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return cfg, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return cfg, err
	}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return cfg, fmt.Errorf("expected key=value, got %q", arg)
		}
		cur, known := fields[key]
		if !known && key != "propagation_node" {
			return cfg, fmt.Errorf("unknown config field %q", key)
		}
		isString := key == "propagation_node" || (len(cur) > 0 && cur[0] == '"')
		if !isString && json.Valid([]byte(value)) {
			fields[key] = json.RawMessage(value)
		} else {
			quoted, _ := json.Marshal(value)
			fields[key] = quoted
		}
	}
	raw, err = json.Marshal(fields)
	if err != nil {
		return cfg, err
	}
	var out model.ServerConfig
	if err := json.Unmarshal(raw, &out); err != nil {
		return cfg, fmt.Errorf("apply config: %w", err)
	}
	return out, nil
}

func (a *app) audioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audio",
		Short: "Server-side audio maintenance",
	}
	var opts model.ConvertOptions
	convert := &cobra.Command{
		Use:   "convert",
		Short: "Convert received audio files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cl, err := a.client()
			if err != nil {
				return err
			}
			res, err := cl.ConvertAudio(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "found=%d converted=%d failed=%d\n", res.Found, res.Converted, res.Failed)
			return nil
		},
	}
	convert.Flags().BoolVar(&opts.DeleteOriginal, "delete-original", false, "remove originals after conversion")
	convert.Flags().BoolVar(&opts.CreateWAV, "wav", true, "create WAV copies")
	convert.Flags().BoolVar(&opts.CreateOGG, "ogg", true, "create OGG copies")
	cmd.AddCommand(convert, &cobra.Command{
		Use:   "cleanup",
		Short: "Remove originals that were converted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cl, err := a.client()
			if err != nil {
				return err
			}
			res, err := cl.CleanupAudio(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed=%d freed=%s\n", res.Removed, display.FormatBytes(float64(res.FreedSpace)))
			return nil
		},
	})
	return cmd
}

func (a *app) rawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "raw <peer> <file>",
		Short: "Dump the stored LXMF payload of a message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := a.client()
			if err != nil {
				return err
			}
			p, err := cl.Raw(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "size: %s\n", display.FormatBytes(p.RawSize))
			fmt.Fprintf(out, "hex:\n%s\nascii:\n%s\n", p.RawHex, p.RawASCII)
			return nil
		},
	}
}

func (a *app) historyCmd() *cobra.Command {
	var rng string
	cmd := &cobra.Command{
		Use:   "history <peer>",
		Short: "Print stored telemetry samples",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := a.client()
			if err != nil {
				return err
			}
			samples, err := cl.TelemetryHistory(cmd.Context(), args[0], rng)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), samples)
		},
	}
	cmd.Flags().StringVar(&rng, "range", "24h", "time range (1h, 24h, 7d, 30d)")
	return cmd
}

func (a *app) identitiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identities",
		Short: "List local identities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cl, err := a.client()
			if err != nil {
				return err
			}
			ids, err := cl.Identities(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", display.CleanDisplayName(id.Name), id.Delivery(), id.Path)
			}
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "select <path>",
		Short: "Switch the backend to another identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := a.client()
			if err != nil {
				return err
			}
			id, err := cl.SelectIdentity(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "active identity %s (%s)\n", display.CleanDisplayName(id.Name), id.Delivery())
			return nil
		},
	})
	return cmd
}
