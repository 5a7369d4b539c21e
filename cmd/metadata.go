package cmd

import (
	"github.com/choiway/contactsheet/internal/index"
	"github.com/choiway/contactsheet/internal/metadata"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Build the photo metadata cache",
	Long: `Reads the capture date of every image in the photos directory and writes
the filename to date mapping to the cache file, replacing what was there.
Images without a usable date are left out; the server falls back to their
modification time.

When an index exists (see init) the run and its photos are recorded too.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stringFlag(cmd, "dir", &cfg.Photos.Dir)
		stringFlag(cmd, "output", &cfg.Photos.Cache)
		stringFlag(cmd, "reader", &cfg.Photos.Reader)
		if err := cfg.Validate(); err != nil {
			return err
		}

		resolver, closer, err := newResolver(cfg.Photos.Reader)
		if err != nil {
			return err
		}
		defer closer.Close()

		var store index.Store
		if noIndex, _ := cmd.Flags().GetBool("no-index"); !noIndex {
			if store, err = openIndex(cmd.Context()); err != nil {
				if explicitIndex() {
					return err
				}
				logger.WithError(err).Warn("Index unavailable, building the cache without it")
				store = nil
			}
			if store != nil {
				defer store.Close()
			}
		}

		b := &metadata.Builder{
			Dir:        cfg.Photos.Dir,
			Extensions: cfg.Photos.Extensions,
			Output:     cfg.Photos.Cache,
			Resolver:   resolver,
			Index:      store,
			Out:        cmd.OutOrStdout(),
			Logger:     logger,
		}
		res, err := b.Run(cmd.Context())
		if err != nil {
			return err
		}

		logger.WithFields(logrus.Fields{
			"scanned": res.Scanned,
			"dated":   res.Dated,
			"run":     res.RunID,
		}).Debug("Metadata run finished")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(metadataCmd)

	metadataCmd.Flags().String("dir", "", "directory of photos (overrides photos.dir)")
	metadataCmd.Flags().StringP("output", "o", "", "cache file to write (overrides photos.cache)")
	metadataCmd.Flags().String("reader", "", "metadata reader: identify, exiftool or exif")
	metadataCmd.Flags().Bool("no-index", false, "do not record the run in the index")
}
