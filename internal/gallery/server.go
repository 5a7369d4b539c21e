// Package gallery serves the photo gallery: a JSON listing of the images
// with their capture dates at /api/photos, and static files for
// everything else.
package gallery

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"

	"github.com/choiway/contactsheet/internal/logging"
	"github.com/choiway/contactsheet/internal/photo"
	"github.com/sirupsen/logrus"
)

const PhotosPath = "/api/photos"

type Options struct {
	// Root is served as static files.
	Root string
	// PhotoDir is scanned for the listing.
	PhotoDir   string
	Extensions []string
	Source     DateSource
	Logger     logrus.FieldLogger
}

// Server is an http.Handler. Its state is fixed at construction and only
// read while serving.
type Server struct {
	photoDir   string
	extensions []string
	source     DateSource
	logger     logrus.FieldLogger
	handler    http.Handler
}

func NewServer(opts Options) *Server {
	if opts.Extensions == nil {
		opts.Extensions = photo.DefaultExtensions
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	s := &Server{
		photoDir:   opts.PhotoDir,
		extensions: opts.Extensions,
		source:     opts.Source,
		logger:     opts.Logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(PhotosPath, s.handlePhotos)
	mux.Handle("/", http.FileServer(http.Dir(opts.Root)))

	s.handler = withLogging(s.logger, withCORS(mux))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handlePhotos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD, OPTIONS")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	entries, err := s.Photos(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("Listing photos")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	body, err := json.Marshal(entries)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		w.Write(body)
	}
}

// Photos lists the images in the photo dir sorted by date. Files the
// source has no date for get their modification date.
func (s *Server) Photos(ctx context.Context) ([]photo.Entry, error) {
	names, err := photo.Scan(s.photoDir, s.extensions)
	if err != nil {
		return nil, err
	}

	entries := make([]photo.Entry, 0, len(names))
	for _, name := range names {
		path := filepath.Join(s.photoDir, name)

		date, ok := "", false
		if s.source != nil {
			date, ok = s.source.Date(ctx, path)
		}
		if !ok {
			mod, err := photo.ModDate(path)
			if err != nil {
				s.logger.WithError(err).WithField("file", name).Warn("Skipping unreadable photo")
				continue
			}
			s.logger.WithField("file", name).Warn("No EXIF date, using modification time")
			date = mod
		}

		entries = append(entries, photo.Entry{File: name, Date: date})
	}

	photo.SortByDate(entries)
	return entries, nil
}
