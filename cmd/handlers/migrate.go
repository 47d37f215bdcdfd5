package handlers

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"storydesk/internal/config"
	"storydesk/internal/logger"
	"storydesk/internal/persistence"
)

// NewMigrateCmd creates the migrate command for database migrations
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Manage database schema migrations for the configured driver (postgres or sqlite).

Subcommands:
  up       Apply all pending migrations
  status   Show migration status
  down     Roll back the last applied migration (drops its tables!)

The vector column is created with embedding.dimensions, so set it before the
first "migrate up".

Examples:
  storydesk migrate up
  storydesk migrate status
  storydesk migrate down --force`,
	}

	cmd.AddCommand(newMigrateUpCmd())
	cmd.AddCommand(newMigrateStatusCmd())
	cmd.AddCommand(newMigrateDownCmd())

	return cmd
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(m *persistence.MigrationManager) error {
				if err := m.Migrate(cmd.Context()); err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "All migrations applied successfully")
				return nil
			})
		},
	}
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(m *persistence.MigrationManager) error {
				status, err := m.Status(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				writeMigrationStatus(cmd.OutOrStdout(), status)
				return nil
			})
		},
	}
}

func newMigrateDownCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "down",
		Aliases: []string{"rollback"},
		Short:   "Roll back the last applied migration",
		Long: `Run the down section of the last applied migration and remove its record.

WARNING: rolling back the initial schema drops the stories and articles tables.
Use --force to skip the confirmation prompt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				fmt.Fprint(cmd.OutOrStdout(), "This drops tables created by the last migration. Proceed? (yes/no): ")
				var response string
				if _, err := fmt.Fscanln(cmd.InOrStdin(), &response); err != nil {
					return fmt.Errorf("failed to read response: %w", err)
				}
				if response != "yes" {
					fmt.Fprintln(cmd.OutOrStdout(), "Rollback cancelled")
					return nil
				}
			}

			return withMigrator(cmd.Context(), func(m *persistence.MigrationManager) error {
				if err := m.Rollback(cmd.Context()); err != nil {
					return fmt.Errorf("rollback failed: %w", err)
				}
				logger.Warn("Rolled back last migration")
				fmt.Fprintln(cmd.OutOrStdout(), "Last migration rolled back")
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")
	return cmd
}

func withMigrator(ctx context.Context, fn func(m *persistence.MigrationManager) error) error {
	db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(persistence.NewMigrationManager(db, config.Get().Embedding.Dimensions))
}

func writeMigrationStatus(out io.Writer, status []persistence.MigrationStatus) {
	if len(status) == 0 {
		fmt.Fprintln(out, "No migrations found")
		return
	}

	fmt.Fprintf(out, "%-10s %-10s %s\n", "Version", "Status", "Description")
	applied, pending := 0, 0
	for _, m := range status {
		state := "pending"
		if m.Applied {
			state = "applied"
			applied++
		} else {
			pending++
		}
		fmt.Fprintf(out, "%-10d %-10s %s\n", m.Version, state, m.Description)
	}

	fmt.Fprintf(out, "\nApplied: %d | Pending: %d | Total: %d\n", applied, pending, len(status))
	if pending > 0 {
		fmt.Fprintln(out, "Run 'storydesk migrate up' to apply pending migrations")
	}
}
