package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/chamada/internal/capture"
)

func newCaptureCmd(a *app) *cobra.Command {
	var (
		input   string
		format  string
		preview string
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Run a capture session until Ctrl+C or the camera fails",
		Example: `  chamada capture
  chamada capture --input /dev/video2 --format v4l2 --preview live.jpg
  chamada capture --input class.mp4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			p, err := a.provider()
			if err != nil {
				return err
			}

			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			var sink capture.Sink = capture.NopSink{}
			if preview != "" {
				sink = capture.JPEGFileSink{Path: preview}
			}

			ctrl := a.newController(p, st.ledger, a.cameraConfig(input, format), sink, a.eventSinks(ctx))

			err = ctrl.Run(ctx)
			status := ctrl.Status()
			fmt.Fprintf(cmd.OutOrStdout(), "session %s: %d frames, %d marked, %d on the ledger\n",
				status.ID, status.Frames, status.Marked, st.ledger.Len())

			return err
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "camera device or video file (default CAMERA_INPUT)")
	cmd.Flags().StringVar(&format, "format", "", "ffmpeg input format used with --input, e.g. v4l2")
	cmd.Flags().StringVar(&preview, "preview", "", "write the latest annotated frame to this JPEG file")

	return cmd
}
