package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/chamada/internal/audit"
	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ledger"
)

func newAttendanceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attendance",
		Short: "Inspect and edit the attendance ledger",
	}

	cmd.AddCommand(
		newAttendanceListCmd(a),
		newAttendanceExportCmd(a),
		&cobra.Command{
			Use:   "set NAME \"YYYY-MM-DD HH:MM:SS\"",
			Short: "Record an attendance time manually",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				at, err := domain.ParseTimestamp(args[1])
				if err != nil {
					return err
				}
				return a.withLedger(cmd.Context(), func(l *ledger.Ledger) error {
					return a.audited(cmd.Context(), audit.EventAttendanceEdited, args[0],
						map[string]string{"time": domain.FormatTimestamp(at)}, func() error {
							_, err := l.Update(cmd.Context(), args[0], at)
							return err
						})
				})
			},
		},
		&cobra.Command{
			Use:   "delete NAME",
			Short: "Remove a student's attendance record",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withLedger(cmd.Context(), func(l *ledger.Ledger) error {
					return a.audited(cmd.Context(), audit.EventAttendanceDeleted, args[0], nil, func() error {
						return l.Delete(cmd.Context(), args[0])
					})
				})
			},
		},
	)

	return cmd
}

func newAttendanceListCmd(a *app) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print every attendance record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(st *store) error {
				var records []domain.AttendanceRecord
				switch source {
				case "file":
					records = st.ledger.Records()
				case "db":
					if st.repo == nil {
						return a.requireDatabase()
					}
					var err error
					if records, err = st.repo.List(cmd.Context()); err != nil {
						return err
					}
				default:
					return fmt.Errorf("unknown --source %q (file or db)", source)
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tTIME\tLAST ATTENDANCE")
				for _, r := range records {
					fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name,
						domain.FormatTimestamp(r.Time), domain.FormatTimestamp(r.LastAttendanceTime))
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&source, "source", "file", "read from the attendance file or the database mirror (file, db)")

	return cmd
}

func newAttendanceExportCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a copy of the ledger for spreadsheets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = a.cfg.ExportFile
			}
			return a.withLedger(cmd.Context(), func(l *ledger.Ledger) error {
				if output == "-" {
					return l.Export(cmd.OutOrStdout())
				}
				err := a.audited(cmd.Context(), audit.EventAttendanceExport, "",
					map[string]string{"file": output}, func() error {
						return l.ExportFile(output)
					})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d records to %s\n", l.Len(), output)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "export file, - for stdout (default EXPORT_FILE)")

	return cmd
}

func (a *app) withLedger(ctx context.Context, fn func(l *ledger.Ledger) error) error {
	return a.withStore(ctx, func(st *store) error {
		return fn(st.ledger)
	})
}

func (a *app) withStore(ctx context.Context, fn func(st *store) error) error {
	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}
