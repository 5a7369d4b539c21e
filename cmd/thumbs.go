package cmd

import (
	"fmt"

	"github.com/choiway/contactsheet/internal/thumbnail"
	"github.com/spf13/cobra"
)

var thumbsCmd = &cobra.Command{
	Use:   "thumbs",
	Short: "Write downscaled copies of the photos for the web",
	Long: `Writes a copy of every JPEG and PNG in the photos directory, rotated upright
and no wider than thumbnails.max_width, to the thumbnails directory.
Existing thumbnails are kept, so delete one to have it rebuilt.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stringFlag(cmd, "dir", &cfg.Photos.Dir)
		stringFlag(cmd, "output", &cfg.Thumbnails.Dir)
		intFlag(cmd, "max-width", &cfg.Thumbnails.MaxWidth)
		intFlag(cmd, "workers", &cfg.Thumbnails.Workers)
		if err := cfg.Validate(); err != nil {
			return err
		}

		g := &thumbnail.Generator{
			SrcDir:     cfg.Photos.Dir,
			DstDir:     cfg.Thumbnails.Dir,
			Extensions: cfg.Photos.Extensions,
			MaxWidth:   cfg.Thumbnails.MaxWidth,
			Quality:    cfg.Thumbnails.Quality,
			Workers:    cfg.Thumbnails.Workers,
			Logger:     logger,
		}
		res, err := g.Run(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Thumbnails written: %d, skipped: %d, failed: %d\n",
			res.Written, res.Skipped, res.Failed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(thumbsCmd)

	thumbsCmd.Flags().String("dir", "", "directory of photos (overrides photos.dir)")
	thumbsCmd.Flags().StringP("output", "o", "", "thumbnail directory (overrides thumbnails.dir)")
	thumbsCmd.Flags().Int("max-width", 0, "maximum width in pixels")
	thumbsCmd.Flags().Int("workers", 0, "concurrent workers, 0 for one per CPU")
}
