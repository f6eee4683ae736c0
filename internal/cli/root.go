/*-------------------------------------------------------------------------
 *
 * root.go
 *    Root command and global flags for approvals-cli
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/cli/root.go
 *
 *-------------------------------------------------------------------------
 */

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/neurondb/NeuronApprovals/internal/app"
	"github.com/neurondb/NeuronApprovals/internal/config"
	"github.com/neurondb/NeuronApprovals/internal/logging"
	"github.com/spf13/cobra"
)

/* EventSource tags events emitted by CLI invocations */
const EventSource = "approvals-cli"

/* state is shared by every subcommand of one invocation */
type state struct {
	configPath   string
	outputFormat string
	out          io.Writer
}

/* open loads configuration and wires an App; logs go to stderr */
func (s *state) open(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.New(logging.Options{
		Enabled: cfg.Logging.Enabled,
		Level:   "warn",
		Format:  "text",
		Output:  "stderr",
	})
	return app.New(cmd.Context(), cfg, logger, EventSource)
}

func (s *state) printer() *printer {
	return &printer{w: s.out, format: s.outputFormat}
}

/* NewRootCommand builds the command tree writing results to out */
func NewRootCommand(out io.Writer) *cobra.Command {
	s := &state{out: out}

	root := &cobra.Command{
		Use:   "approvals-cli",
		Short: "NeuronApprovals CLI - contacts, members and approval decisions",
		Long: `approvals-cli operates directly on the approvals database.

Examples:
  # Create the tables
  approvals-cli migrate --config approvals.yaml

  # Create a contact whose members are all approvers
  approvals-cli contacts create Legal --users 1,2 --approver

  # Request approval of document 42 from the Legal contact
  approvals-cli approvals request documents 42 --contact <contact-id>

  # Follow events published by running servers
  approvals-cli events listen
`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch s.outputFormat {
			case formatTable, formatJSON:
				return nil
			}
			return fmt.Errorf("unsupported output format %q (table, json)", s.outputFormat)
		},
	}

	root.PersistentFlags().StringVarP(&s.configPath, "config", "c", os.Getenv("CONFIG_PATH"), "Path to configuration file")
	root.PersistentFlags().StringVarP(&s.outputFormat, "output", "o", formatTable, "Output format (table, json)")

	root.AddCommand(newMigrateCommand(s))
	root.AddCommand(newUsersCommand(s))
	root.AddCommand(newContactsCommand(s))
	root.AddCommand(newMembersCommand(s))
	root.AddCommand(newApprovalsCommand(s))
	root.AddCommand(newEventsCommand(s))
	return root
}

/* Execute runs the CLI against os.Args */
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := NewRootCommand(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newMigrateCommand(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the approval tables (and a minimal users table when missing)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.Config.Database.AutoMigrate {
				if err := a.Migrate(cmd.Context()); err != nil {
					return err
				}
			}
			return s.printer().message("Migrations applied")
		},
	}
}
