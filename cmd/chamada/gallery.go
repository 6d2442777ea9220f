package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/chamada/internal/gallery"
)

func newGalleryCmd(a *app) *cobra.Command {
	var (
		dir   string
		quiet bool
	)

	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "Load the reference images and report enrolled identities",
		Long: `Encodes every image in the gallery directory the same way a capture
session does at start, then prints the identities that were enrolled and the
files that were skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = a.cfg.GalleryDir
			}

			p, err := a.provider()
			if err != nil {
				return err
			}

			var opts []gallery.LoadOption
			if !quiet {
				var bar *progressbar.ProgressBar
				opts = append(opts, gallery.WithProgress(func(done, total int) {
					if bar == nil {
						bar = progressbar.NewOptions(total,
							progressbar.OptionSetDescription("Encoding gallery"),
							progressbar.OptionSetWriter(os.Stderr),
							progressbar.OptionShowCount(),
							progressbar.OptionClearOnFinish(),
						)
					}
					_ = bar.Set(done)
				}))
			}

			g, warnings, err := gallery.NewLoader(p, a.logger).Load(cmd.Context(), dir, opts...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d enrolled from %s\n", g.Len(), dir)
			for _, id := range g.Identities() {
				fmt.Fprintf(out, "  %s\n", id)
			}
			if len(warnings) > 0 {
				fmt.Fprintf(out, "%d skipped:\n", len(warnings))
				for _, w := range warnings {
					fmt.Fprintf(out, "  %s\n", w)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "gallery directory (default GALLERY_DIR)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide the progress bar")

	return cmd
}
