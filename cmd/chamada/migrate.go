package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/chamada/internal/database"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the attendance mirror schema in DATABASE_URL",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.init(); err != nil {
				return err
			}
			return a.requireDatabase()
		},
	}

	migration := func(use, short string, args cobra.PositionalArgs, action func(*cobra.Command, *database.Migrator, []string) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  args,
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := database.OpenMigrator(cmd.Context(), a.cfg.DatabaseURL)
				if err != nil {
					return err
				}
				m.WithLogger(a.logger)
				defer func() { _ = m.Close() }()
				return action(cmd, m, args)
			},
		}
	}

	cmd.AddCommand(
		migration("up", "Apply all pending migrations", cobra.NoArgs,
			func(cmd *cobra.Command, m *database.Migrator, _ []string) error {
				applied, err := m.Up()
				if err != nil {
					return err
				}
				if !applied {
					fmt.Fprintln(cmd.OutOrStdout(), "schema already up to date")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			}),
		migration("down [N]", "Roll back the last N migrations (default 1)", cobra.MaximumNArgs(1),
			func(cmd *cobra.Command, m *database.Migrator, args []string) error {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil || n < 1 {
						return fmt.Errorf("invalid step count %q", args[0])
					}
					steps = n
				}
				if err := m.Steps(-steps); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", steps)
				return nil
			}),
		migration("version", "Print the current schema version", cobra.NoArgs,
			func(cmd *cobra.Command, m *database.Migrator, _ []string) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				if dirty {
					fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty, migration incomplete)\n", version)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "version %d\n", version)
				}
				return nil
			}),
		migration("force VERSION", "Set the schema version without running migrations", cobra.ExactArgs(1),
			func(cmd *cobra.Command, m *database.Migrator, args []string) error {
				version, err := parseVersion(args[0])
				if err != nil {
					return err
				}
				if err := m.Force(version); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version forced to %d\n", version)
				return nil
			}),
	)

	return cmd
}

func parseVersion(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil || v < -1 {
		return 0, fmt.Errorf("invalid migration version %q", s)
	}
	return v, nil
}
