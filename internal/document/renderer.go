// Package document turns a markdown manuscript into a styled, paginated
// PDF with a cover page and a table of contents.
package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTOCTitle  = "Table of Contents"
	DefaultTOCDepth  = 6
	DefaultCodeStyle = "monokai"
)

// Page is the paper geometry in inches.
type Page struct {
	Size         string
	Width        float64
	Height       float64
	MarginTop    float64
	MarginBottom float64
	MarginSide   float64
}

// Letter is US Letter with the default book margins.
var Letter = Page{Size: "Letter", Width: 8.5, Height: 11, MarginTop: 1, MarginBottom: 1, MarginSide: 0.75}

type Options struct {
	Input     string
	Output    string
	Title     string // defaults to the first level-1 heading
	Subtitle  string
	Author    string
	Version   string
	TOCTitle  string
	TOCDepth  int
	CodeStyle string
	Page      Page
}

func (o Options) tocTitle() string {
	if o.TOCTitle == "" {
		return DefaultTOCTitle
	}
	return o.TOCTitle
}

func (o Options) tocDepth() int {
	if o.TOCDepth <= 0 {
		return DefaultTOCDepth
	}
	return o.TOCDepth
}

func (o Options) codeStyle() string {
	if o.CodeStyle == "" {
		return DefaultCodeStyle
	}
	return o.CodeStyle
}

func (o Options) page() Page {
	if o.Page.Width <= 0 || o.Page.Height <= 0 {
		return Letter
	}
	return o.Page
}

type Result struct {
	Output string
	Size   int64
	Pages  int // 0 when the output could not be inspected
}

type Renderer struct {
	Options
	Printer Printer
	Logger  logrus.FieldLogger
}

func NewRenderer(opts Options, printer Printer, logger logrus.FieldLogger) *Renderer {
	return &Renderer{Options: opts, Printer: printer, Logger: logger}
}

// Render reads the input, prints it and writes the PDF. A missing input is
// an error and nothing is written.
func (r *Renderer) Render(ctx context.Context) (Result, error) {
	r.Logger.WithField("input", r.Input).Info("Reading markdown")
	src, err := os.ReadFile(r.Input)
	if err != nil {
		return Result{}, fmt.Errorf("reading markdown: %w", err)
	}

	r.Logger.Info("Converting to styled HTML")
	doc, title, err := r.build(src)
	if err != nil {
		return Result{}, err
	}

	r.Logger.Info("Generating PDF")
	pdf, err := r.Printer.PrintPDF(ctx, doc, r.page(), title)
	if err != nil {
		return Result{}, fmt.Errorf("printing pdf: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.Output), 0o755); err != nil {
		return Result{}, err
	}
	if err := os.WriteFile(r.Output, pdf, 0o644); err != nil {
		return Result{}, fmt.Errorf("writing pdf: %w", err)
	}

	info, err := os.Stat(r.Output)
	if err != nil {
		return Result{}, err
	}

	return Result{Output: r.Output, Size: info.Size(), Pages: r.inspect(r.Output)}, nil
}

func (r *Renderer) inspect(path string) int {
	if err := api.ValidateFile(path, model.NewDefaultConfiguration()); err != nil {
		r.Logger.WithError(err).Warn("PDF did not validate")
		return 0
	}
	n, err := api.PageCountFile(path)
	if err != nil {
		r.Logger.WithError(err).Warn("Could not count pages")
		return 0
	}
	return n
}

// HumanSize formats a byte count with one decimal, e.g. "1.5 MB".
func HumanSize(n int64) string {
	size := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if size < 1024 {
			return fmt.Sprintf("%.1f %s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.1f TB", size)
}
