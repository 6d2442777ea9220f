package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/chamada/internal/audit"
	"github.com/saturnino-fabrica-de-software/chamada/internal/gallery"
)

func newStudentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "student",
		Short: "Manage reference images in the gallery directory",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List enrolled identities",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				names, err := a.students().List()
				if err != nil {
					return err
				}
				for _, n := range names {
					fmt.Fprintln(cmd.OutOrStdout(), n)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:     "add NAME IMAGE",
			Short:   "Enroll a student from a JPEG or PNG photo",
			Example: `  chamada student add "Maria Silva" ~/photos/maria.png`,
			Args:    cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := os.ReadFile(args[1])
				if err != nil {
					return fmt.Errorf("read image: %w", err)
				}
				var path string
				err = a.audited(cmd.Context(), audit.EventStudentEnrolled, args[0], nil, func() (err error) {
					path, err = a.students().Add(args[0], data)
					return err
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "enrolled %s as %s\n", args[0], path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete NAME",
			Short: "Remove every reference image of a student",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.audited(cmd.Context(), audit.EventStudentRemoved, args[0], nil, func() error {
					return a.students().Delete(args[0])
				})
			},
		},
	)

	return cmd
}

func (a *app) students() gallery.Students {
	return gallery.Students{Dir: a.cfg.GalleryDir}
}
