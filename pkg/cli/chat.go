package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"lxmf-chat/pkg/backend"
	"lxmf-chat/pkg/display"
	"lxmf-chat/pkg/export"
	"lxmf-chat/pkg/model"
	"lxmf-chat/pkg/peers"
	"lxmf-chat/pkg/telemetry"
)

func (a *app) peersCmd() *cobra.Command {
	var tab, sortMode, order, search string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "peers",
		Short: "List peers on a tab",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("tab") {
				a.cfg.Session.Tab = tab
			}
			if cmd.Flags().Changed("sort") {
				a.cfg.Session.Sort = sortMode
				a.cfg.Session.Order = order
			}
			s, _, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			list := s.Peers()
			if search != "" {
				list = peers.Search(list, search)
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), list)
			}
			sum := s.Summary()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d peers, %d online, avg hops %.1f\n", sum.Total, sum.Online, sum.AvgHops)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tHASH\tONLINE\tHOPS\tSIGNAL\tSEEN")
			now := time.Now()
			for _, p := range list {
				hops := "-"
				if p.Hops != nil {
					hops = fmt.Sprintf("%.0f", *p.Hops)
				}
				signal := display.RSSIClass(p.RSSI)
				if signal == "" {
					signal = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\t%s\n",
					display.CleanDisplayName(p.DisplayName), display.ShortHash(p.Key(), 16),
					p.Online, hops, signal, display.TimeAgo(p.LastSeen, now))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&tab, "tab", "all", "all, favorites or a group name")
	cmd.Flags().StringVar(&sortMode, "sort", "time", "time, hops or signal")
	cmd.Flags().StringVar(&order, "order", "", "asc or desc (default depends on --sort)")
	cmd.Flags().StringVar(&search, "search", "", "filter by name or hash")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (a *app) messagesCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "messages <peer>",
		Short: "Show the conversation with a peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := a.withPeer(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			th := s.Thread()
			if asJSON {
				return printJSON(cmd.OutOrStdout(), th)
			}
			out := cmd.OutOrStdout()
			now := time.Now()
			for _, m := range th {
				ts := time.Unix(int64(m.Timestamp), 0).Format("2006-01-02 15:04:05")
				arrow := "<"
				if !m.IsIncoming() {
					arrow = ">"
				}
				status := ""
				if m.Status != "" && !m.IsIncoming() {
					status = " [" + string(m.Status) + "]"
				}
				if m.InFlight() && m.Progress != nil {
					status += fmt.Sprintf(" %.0f%%", *m.Progress)
					if m.Speed != nil {
						status += " " + display.FormatSpeed(*m.Speed)
					}
					if el := display.FormatElapsed(float64(now.UnixMilli())/1000 - m.Timestamp); el != "" {
						status += " " + el
					}
				}
				c := telemetry.Classify(m.Content)
				switch c.Kind {
				case telemetry.KindWrapped:
					fmt.Fprintf(out, "%s %s%s\n", ts, arrow, status)
					for _, l := range c.Lines {
						fmt.Fprintf(out, "    %s\n", l)
					}
				default:
					fmt.Fprintf(out, "%s %s %s%s\n", ts, arrow, strings.ReplaceAll(m.Content, "\n", "\n    "), status)
				}
			}
			if rec, ok := s.Telemetry(args[0]); ok {
				fmt.Fprintf(out, "-- %s\n", telemetrySummary(rec))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (a *app) sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <peer> <text>",
		Short: "Send a text message",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := a.withPeer(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.Send(cmd.Context(), strings.Join(args[1:], " ")); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "sent")
			return nil
		},
	}
}

func (a *app) sendFileCmd() *cobra.Command {
	var description, codec string
	var mode int
	cmd := &cobra.Command{
		Use:   "send-file <peer> <path>",
		Short: "Send a file or voice note",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			s, _, err := a.withPeer(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			up := backend.FileUpload{
				FileName:    filepath.Base(args[1]),
				Body:        f,
				Description: description,
				AudioCodec:  codec,
			}
			if cmd.Flags().Changed("audio-mode") {
				up.AudioMode = &mode
			}
			if err := s.SendFile(cmd.Context(), up); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %s\n", up.FileName)
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "attachment description")
	cmd.Flags().StringVar(&codec, "audio-codec", "", "audio codec (opus, codec2)")
	cmd.Flags().IntVar(&mode, "audio-mode", 0, "codec mode")
	return cmd
}

func (a *app) syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Pull waiting messages from the propagation node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, _, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			st, err := s.SyncPropagation(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "state=%s received=%d progress=%.0f%%\n", st.State, st.MessagesReceived, st.Progress*100)
			return err
		},
	}
}

func (a *app) favoriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "favorite <peer>",
		Short: "Toggle a peer's favorite flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			fav, err := s.ToggleFavorite(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "favorite=%t\n", fav)
			return nil
		},
	}
}

func (a *app) groupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "group <peer> <name>",
		Short: "Toggle a group tag on a peer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			groups, err := s.ToggleGroup(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			verb := "removed from"
			if p, ok := peers.Find(s.Peers(), args[0]); ok && p.InGroup(args[1]) {
				verb = "added to"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s, groups=%s\n", verb, args[1], strings.Join(groups, ","))
			return nil
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	var dest string
	cmd := &cobra.Command{
		Use:   "export <peer>",
		Short: "Export a conversation with its telemetry as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dest == "" {
				dest = a.cfg.Export.Dest
			}
			w, err := export.NewWriter(cmd.Context(), dest)
			if err != nil {
				return err
			}
			s, _, err := a.withPeer(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			doc, err := s.Export(cmd.Context())
			if err != nil {
				return err
			}
			loc, err := export.Save(cmd.Context(), w, doc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d messages to %s\n", len(doc.Messages), loc)
			return nil
		},
	}
	cmd.Flags().StringVar(&dest, "dest", "", "directory or s3://bucket/prefix (overrides config)")
	return cmd
}

// telemetrySummary is the one-line footer printed under a thread.
func telemetrySummary(rec model.TelemetryRecord) string {
	var parts []string
	if pct := rec.Battery.Percent(); pct != nil {
		parts = append(parts, fmt.Sprintf("battery %.0f%%", *pct))
	}
	if loc := rec.Location; loc.HasFix() {
		parts = append(parts, fmt.Sprintf("at %.5f,%.5f", *loc.Latitude, *loc.Longitude))
	}
	info := rec.Information
	for _, kv := range [][2]string{{"up", info.Uptime()}, {"cpu", info.CPU()}, {"ram", info.RAM()}, {"disk", info.Disk()}} {
		if kv[1] != "" {
			parts = append(parts, kv[0]+" "+kv[1])
		}
	}
	parts = append(parts, fmt.Sprintf("%d telemetry samples", len(rec.History)))
	return strings.Join(parts, ", ")
}
