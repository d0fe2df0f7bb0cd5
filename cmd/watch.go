package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/simonyos/wfgen/internal/config"
	"github.com/simonyos/wfgen/internal/events"
	"github.com/simonyos/wfgen/internal/logging"
)

var watchCmd = &cobra.Command{
	Use:   "watch [run-id]",
	Short: "Follow run events published on NATS",
	Long: `Print transitions of generation runs as they happen. Runs publish
events when started with --nats-url or with nats_url configured.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		runID := ""
		if len(args) == 1 {
			runID = args[0]
		}

		logger := logging.New(cmd.ErrOrStderr(), debugFlag)
		bus, err := events.Connect(events.DefaultNATSConfig(firstNonEmpty(natsURLFlag, config.GetNATSURL())), logger)
		if err != nil {
			return err
		}
		defer bus.Close()

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		err = bus.Watch(ctx, runID, func(ev events.Event) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s -> %s iteration=%d passed=%t approved=%t",
				ev.Timestamp.Format(time.TimeOnly), ev.RunID, ev.From, ev.To,
				ev.Iteration, ev.Passed, ev.Approved)
			if ev.Reason != "" {
				fmt.Fprintf(cmd.OutOrStdout(), " reason=%q", ev.Reason)
			}
			fmt.Fprintln(cmd.OutOrStdout())
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	watchCmd.Flags().StringVar(&natsURLFlag, "nats-url", "", "NATS server to watch (default: nats_url or NATS_URL)")
	watchCmd.Flags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
	rootCmd.AddCommand(watchCmd)
}
