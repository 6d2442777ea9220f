package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/chamada/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/chamada/internal/config"
)

// app carries what PersistentPreRunE prepares for every subcommand
type app struct {
	envFile string
	cfg     *config.Config
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "chamada",
		Short: "Face recognition attendance with blink liveness",
		Long: `Chamada watches a camera, recognizes enrolled students and records
their attendance once they blink. Reference images live in GALLERY_DIR,
attendance is written to ATTENDANCE_FILE.`,
		Version:       handler.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	root.SetVersionTemplate("chamada {{.Version}}\n")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(
		newCaptureCmd(a),
		newServeCmd(a),
		newGalleryCmd(a),
		newAttendanceCmd(a),
		newStudentCmd(a),
		newMigrateCmd(a),
	)

	return root
}

func (a *app) init() error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = cfg.NewLogger()
	slog.SetDefault(a.logger)
	return nil
}

// requireDatabase fails commands that only make sense with the mirror configured
func (a *app) requireDatabase() error {
	if !a.cfg.MirrorEnabled() {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	return nil
}
