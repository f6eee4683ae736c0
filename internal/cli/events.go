/*-------------------------------------------------------------------------
 *
 * events.go
 *    Event stream commands for approvals-cli
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/cli/events.go
 *
 *-------------------------------------------------------------------------
 */

package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neurondb/NeuronApprovals/internal/config"
	"github.com/neurondb/NeuronApprovals/internal/db"
	"github.com/neurondb/NeuronApprovals/internal/events"
	"github.com/spf13/cobra"
)

func newEventsCommand(s *state) *cobra.Command {
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect workflow events",
	}

	var eventType string
	listen := &cobra.Command{
		Use:   "listen",
		Short: "Print events published through the postgres backend until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(s.configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if db.DialectFor(db.DriverName(cfg.Database.Driver)) != db.DialectPostgres {
				return fmt.Errorf("events listen requires the pgx driver, configured driver is %q", cfg.Database.Driver)
			}

			topic := events.AllEvents
			if eventType != "" {
				topic = eventType
			}

			p := s.printer()
			err = events.Listen(cmd.Context(), cfg.Database.DSN(), cfg.Events.Channel, topic, func(ctx context.Context, e events.Event) error {
				return p.result(e, []string{"TIME", "TYPE", "SOURCE", "ID"}, [][]string{{
					e.Timestamp.UTC().Format(time.RFC3339), e.Type, e.Source, e.ID,
				}})
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	listen.Flags().StringVar(&eventType, "type", "", "Only print events of this type")

	types := &cobra.Command{
		Use:   "types",
		Short: "List the event types and whether they are dispatched",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(s.configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			enabled := make(map[string]bool, len(events.Types))
			rows := make([][]string, 0, len(events.Types))
			for _, t := range events.Types {
				on := cfg.Events.EventEnabled(string(t))
				enabled[string(t)] = on
				rows = append(rows, []string{string(t), yesNo(on)})
			}
			return s.printer().result(enabled, []string{"TYPE", "DISPATCHED"}, rows)
		},
	}

	eventsCmd.AddCommand(listen, types)
	return eventsCmd
}
