package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"eventhub/pkg/models"
)

const defaultBaseURL = "http://localhost:3000"

type globalOptions struct {
	api     string
	timeout time.Duration
	json    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "eventhub",
		Short:         "Client for the eventhub API and live feeds",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.api, "api", envOr("EVENTHUB_API", defaultBaseURL), "API base URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 90*time.Second, "HTTP timeout")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "print raw JSON")

	root.AddCommand(newEventsCmd(opts), newSyncCmd(opts), newNotifyCmd())
	return root
}

func newEventsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "events", Short: "List, inspect, refresh and save events"}

	var lo listOptions
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := newAPIClient(opts.api, opts.timeout).List(cmd.Context(), lo)
			if err != nil {
				return err
			}
			return printEvents(cmd, opts, items)
		},
	}
	list.Flags().StringVar(&lo.Saved, "saved", "", "filter by saved flag (true|false)")
	list.Flags().StringVar(&lo.Category, "category", "", "filter by category")
	list.Flags().StringVarP(&lo.Q, "query", "q", "", "search name and description")
	list.Flags().IntVar(&lo.Limit, "limit", 0, "max events (0 = all)")
	list.Flags().IntVar(&lo.Offset, "offset", 0, "skip events")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := newAPIClient(opts.api, opts.timeout).Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, ev)
		},
	}

	refresh := &cobra.Command{
		Use:   "refresh",
		Short: "Run an ingestion on the server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := newAPIClient(opts.api, opts.timeout).Refresh(cmd.Context())
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd, res)
			}
			origin := "upstream"
			if res.Fallback {
				origin = "fallback catalog"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d added from %s, %d total\n", res.Message, len(res.Added), origin, len(res.Data))
			if len(res.Added) > 0 {
				return printEvents(cmd, opts, res.Added)
			}
			return nil
		},
	}

	save := &cobra.Command{
		Use:   "save <id>",
		Short: "Toggle the saved flag of an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := newAPIClient(opts.api, opts.timeout).ToggleSave(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			state := "unsaved"
			if ev.Saved {
				state = "saved"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", ev.ID, state, ev.Name)
			return nil
		},
	}

	cmd.AddCommand(list, get, refresh, save)
	return cmd
}

func newSyncCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "sync", Short: "Follow the live event feed"}

	var addr string
	var pretty, reconnect bool
	watch := &cobra.Command{
		Use:   "watch",
		Short: "Follow the TCP feed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return watchTCP(cmd.Context(), cmd.OutOrStdout(), addr, pretty, reconnect)
		},
	}
	watch.Flags().StringVar(&addr, "addr", "127.0.0.1:7070", "TCP feed address")
	watch.Flags().BoolVar(&pretty, "pretty", true, "pretty print JSON messages")
	watch.Flags().BoolVar(&reconnect, "reconnect", true, "reconnect after a disconnect")

	ws := &cobra.Command{
		Use:   "ws",
		Short: "Follow the WebSocket feed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := websocketURL(opts.api, "/ws")
			if err != nil {
				return err
			}
			return watchWebSocket(cmd.Context(), cmd.OutOrStdout(), u)
		},
	}

	cmd.AddCommand(watch, ws)
	return cmd
}

func newNotifyCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "notify", Short: "UDP new-event notifications"}

	var addr, user string
	listen := &cobra.Command{
		Use:   "listen",
		Short: "Register with the UDP notifier and print notifications",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(user) == "" {
				return errors.New("--user is required")
			}
			return listenUDP(cmd.Context(), cmd.OutOrStdout(), addr, user)
		},
	}
	listen.Flags().StringVar(&addr, "addr", "127.0.0.1:7071", "UDP notifier address")
	listen.Flags().StringVar(&user, "user", envOr("USER", ""), "id to register with")

	cmd.AddCommand(listen)
	return cmd
}

func printEvents(cmd *cobra.Command, opts *globalOptions, items []models.Event) error {
	if opts.json {
		return printJSON(cmd, items)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tNAME\tLOCATION\tCATEGORY\tSAVED")
	for _, ev := range items {
		saved := ""
		if ev.Saved {
			saved = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", ev.ID, ev.Date, ev.Name, ev.Location, ev.Category, saved)
	}
	return w.Flush()
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
