package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/choiway/contactsheet/internal/gallery"
	"github.com/choiway/contactsheet/internal/metadata"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the gallery and the /api/photos listing",
	Long: `Serves the root directory as static files and lists the photos with their
capture dates at /api/photos.

With server.date_source "cache" the dates come from the cache file, read
once at startup. With "live" every request reads the photos' metadata
using server.live_reader, the in-process exif parser by default.
Photos without a date use their modification time.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stringFlag(cmd, "addr", &cfg.Server.Addr)
		stringFlag(cmd, "root", &cfg.Server.Root)
		stringFlag(cmd, "date-source", &cfg.Server.DateSource)
		stringFlag(cmd, "live-reader", &cfg.Server.LiveReader)
		if err := cfg.Validate(); err != nil {
			return err
		}

		source, closer, err := dateSource()
		if err != nil {
			return err
		}
		defer closer.Close()

		srv := &http.Server{
			Addr: cfg.Server.Addr,
			Handler: gallery.NewServer(gallery.Options{
				Root:       cfg.Server.Root,
				PhotoDir:   cfg.Photos.Dir,
				Extensions: cfg.Photos.Extensions,
				Source:     source,
				Logger:     logger,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Starting gallery server on %s...\n", cfg.Server.Addr)
		fmt.Fprintf(out, "API endpoint: http://%s%s\n", displayHost(cfg.Server.Addr), gallery.PhotosPath)

		return serve(ctx, srv)
	},
}

// serve runs srv until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func dateSource() (gallery.DateSource, io.Closer, error) {
	if cfg.Server.DateSource == "live" {
		resolver, closer, err := newResolver(cfg.Server.LiveReader)
		if err != nil {
			return nil, nil, err
		}
		return gallery.LiveSource{Resolver: resolver}, closer, nil
	}

	cache, err := metadata.LoadCache(cfg.Photos.Cache)
	if err != nil {
		logger.WithError(err).Warn("No usable metadata cache, dates will come from modification times")
		cache = metadata.Cache{}
	} else {
		logger.WithField("photos", len(cache)).Infof("Loaded %s", cfg.Photos.Cache)
	}
	return gallery.CacheSource{Cache: cache}, io.NopCloser(nil), nil
}

func displayHost(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().String("root", "", "directory served as static files (overrides server.root)")
	serveCmd.Flags().String("date-source", "", "cache or live (overrides server.date_source)")
	serveCmd.Flags().String("live-reader", "", "reader for live dates: identify, exiftool or exif (overrides server.live_reader)")
}
